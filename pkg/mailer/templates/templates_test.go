package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderWelcome(t *testing.T) {
	html, err := RenderHTML(Welcome, map[string]any{"Name": "Alice"})
	require.NoError(t, err)
	assert.Contains(t, html, "Hello Alice")
	assert.Contains(t, html, "Welcome to our platform")
}

func TestRenderLoginOTP(t *testing.T) {
	html, err := RenderHTML(LoginOTP, map[string]any{
		"Name":      "Bob",
		"Code":      "123456",
		"ExpiresIn": "5 minutes",
	})
	require.NoError(t, err)
	assert.Contains(t, html, "<strong>123456</strong>")
	assert.Contains(t, html, "expire in 5 minutes")
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, err := RenderHTML("nope", nil)
	assert.Error(t, err)
}

func TestSubjectFor(t *testing.T) {
	assert.Equal(t, "Welcome to Our Platform!", SubjectFor(Welcome))
	assert.Equal(t, "Your OTP for Login", SubjectFor(LoginOTP))
	assert.Equal(t, "Notification", SubjectFor("something_else"))
}
