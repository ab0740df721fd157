package templates

import (
	"fmt"
	"html/template"
	"strings"
)

// Template names accepted in mailer.EmailJob.
const (
	Welcome  = "welcome"
	LoginOTP = "login_otp"
)

var bodies = map[string]*template.Template{
	Welcome: template.Must(template.New(Welcome).Parse(`
<h3>Hello {{.Name}},</h3>
<p>Welcome to our platform! We're excited to have you on board.</p>
<p>You can now log in and start using the services.</p>
<p>Cheers,<br>Your App Team</p>
`)),
	LoginOTP: template.Must(template.New(LoginOTP).Parse(`
<h3>Hello {{.Name}},</h3>
<p>Your OTP is <strong>{{.Code}}</strong>. It will expire in {{.ExpiresIn}}.</p>
<p>If you did not request this code, you can safely ignore this email.</p>
`)),
}

// SubjectFor returns the subject line for a known template name.
func SubjectFor(name string) string {
	switch strings.ToLower(name) {
	case Welcome:
		return "Welcome to Our Platform!"
	case LoginOTP:
		return "Your OTP for Login"
	default:
		return "Notification"
	}
}

// RenderHTML renders a named template with the given data.
func RenderHTML(name string, data map[string]any) (string, error) {
	t, ok := bodies[strings.ToLower(name)]
	if !ok {
		return "", fmt.Errorf("unknown email template %q", name)
	}
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}
