package application

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/oksasatya/go-auth-otp-service/internal/domain/entity"
	repo "github.com/oksasatya/go-auth-otp-service/internal/domain/repository"
	"github.com/oksasatya/go-auth-otp-service/pkg/helpers"
	"github.com/oksasatya/go-auth-otp-service/pkg/mailer"
	tpl "github.com/oksasatya/go-auth-otp-service/pkg/mailer/templates"
)

// memRepo is an in-memory UserRepository with the same uniqueness
// semantics as the Mongo implementation.
type memRepo struct {
	mu    sync.Mutex
	users map[string]*entity.User // keyed by email
}

func newMemRepo() *memRepo {
	return &memRepo{users: map[string]*entity.User{}}
}

func (m *memRepo) Create(_ context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Email]; ok {
		return repo.ErrDuplicateEmail
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	cp := *u
	m.users[u.Email] = &cp
	return nil
}

func (m *memRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *memRepo) Save(_ context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for email, stored := range m.users {
		if stored.ID == u.ID {
			cp := *u
			delete(m.users, email)
			m.users[u.Email] = &cp
			return nil
		}
	}
	return repo.ErrDuplicateEmail
}

func (m *memRepo) CountByDay(_ context.Context) ([]repo.DailyRegistration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[string]int{}
	for _, u := range m.users {
		counts[u.CreatedAt.UTC().Format("2006-01-02")]++
	}
	out := make([]repo.DailyRegistration, 0, len(counts))
	for day, n := range counts {
		out = append(out, repo.DailyRegistration{Day: day, Registrations: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

// memPublisher records enqueued email jobs.
type memPublisher struct {
	mu   sync.Mutex
	jobs []mailer.EmailJob
}

func (p *memPublisher) PublishJSON(_ context.Context, body any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, body.(mailer.EmailJob))
	return nil
}

func (p *memPublisher) last(t *testing.T) mailer.EmailJob {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.jobs)
	return p.jobs[len(p.jobs)-1]
}

func newTestService(r repo.UserRepository, pub Publisher) *AuthService {
	jwt := helpers.NewJWTManager("testsecret", 3*time.Hour)
	return NewAuthService(r, jwt, nil, nil, pub, nil, "", true, 5*time.Minute, 5)
}

func TestRegister(t *testing.T) {
	r := newMemRepo()
	pub := &memPublisher{}
	svc := newTestService(r, pub)
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.False(t, u.ID.IsZero())
	assert.False(t, u.CreatedAt.IsZero())

	stored, err := r.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, "secret123", stored.Password, "password at rest must be hashed")
	assert.True(t, helpers.CompareHashAndPassword(stored.Password, "secret123"))

	job := pub.last(t)
	assert.Equal(t, "alice@example.com", job.To)
	assert.Equal(t, tpl.Welcome, job.Template)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	r := newMemRepo()
	svc := newTestService(r, &memPublisher{})
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Name: "Alice2", Email: "alice@example.com", Password: "secret456"})
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Len(t, r.users, 1, "exactly one user for the email")
}

func TestLogin(t *testing.T) {
	r := newMemRepo()
	svc := newTestService(r, &memPublisher{})
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "secret123"})
	require.NoError(t, err)

	got, token, err := svc.Login(ctx, "alice@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	claims, err := svc.JWT.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID.Hex(), claims.UserID)
}

func TestLoginUniformFailure(t *testing.T) {
	r := newMemRepo()
	svc := newTestService(r, &memPublisher{})
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "secret123"})
	require.NoError(t, err)

	// Wrong password and unknown email must be indistinguishable.
	_, _, errWrongPwd := svc.Login(ctx, "alice@example.com", "wrongpass")
	_, _, errUnknown := svc.Login(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, errWrongPwd, ErrInvalidCredentials)
	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
}

func TestOTPRoundTrip(t *testing.T) {
	r := newMemRepo()
	pub := &memPublisher{}
	svc := newTestService(r, pub)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, svc.RequestOTP(ctx, "alice@example.com"))

	job := pub.last(t)
	assert.Equal(t, tpl.LoginOTP, job.Template)
	code, _ := job.Data["Code"].(string)
	require.Len(t, code, 6)

	stored, _ := r.FindByEmail(ctx, "alice@example.com")
	assert.Equal(t, code, stored.OTP)
	require.NotNil(t, stored.OTPExpiry)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), *stored.OTPExpiry, 5*time.Second)

	u, token, err := svc.VerifyOTP(ctx, "alice@example.com", code)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.False(t, u.HasPendingOTP())

	// Code was cleared on first success; redeeming it again must fail.
	_, _, err = svc.VerifyOTP(ctx, "alice@example.com", code)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredOTP)
}

func TestVerifyOTPWrongCodeKeepsPending(t *testing.T) {
	r := newMemRepo()
	pub := &memPublisher{}
	svc := newTestService(r, pub)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "secret123"})
	require.NoError(t, err)
	require.NoError(t, svc.RequestOTP(ctx, "alice@example.com"))
	code, _ := pub.last(t).Data["Code"].(string)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	_, _, err = svc.VerifyOTP(ctx, "alice@example.com", wrong)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredOTP)

	// The stored code survives a failed attempt.
	_, _, err = svc.VerifyOTP(ctx, "alice@example.com", code)
	assert.NoError(t, err)
}

func TestVerifyOTPExpired(t *testing.T) {
	r := newMemRepo()
	pub := &memPublisher{}
	svc := newTestService(r, pub)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "secret123"})
	require.NoError(t, err)
	require.NoError(t, svc.RequestOTP(ctx, "alice@example.com"))
	code, _ := pub.last(t).Data["Code"].(string)

	// Age the pending code past its window.
	r.mu.Lock()
	expired := time.Now().Add(-time.Minute)
	r.users["alice@example.com"].OTPExpiry = &expired
	r.mu.Unlock()

	_, _, err = svc.VerifyOTP(ctx, "alice@example.com", code)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredOTP)
}

func TestRequestOTPOverwritesPending(t *testing.T) {
	r := newMemRepo()
	pub := &memPublisher{}
	svc := newTestService(r, pub)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, svc.RequestOTP(ctx, "alice@example.com"))
	first, _ := pub.last(t).Data["Code"].(string)
	require.NoError(t, svc.RequestOTP(ctx, "alice@example.com"))
	second, _ := pub.last(t).Data["Code"].(string)

	stored, _ := r.FindByEmail(ctx, "alice@example.com")
	assert.Equal(t, second, stored.OTP)
	if first != second {
		_, _, err = svc.VerifyOTP(ctx, "alice@example.com", first)
		assert.ErrorIs(t, err, ErrInvalidOrExpiredOTP)
	}
}

func TestRequestOTPUnknownUser(t *testing.T) {
	svc := newTestService(newMemRepo(), &memPublisher{})
	err := svc.RequestOTP(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestDailyRegistrations(t *testing.T) {
	r := newMemRepo()
	svc := newTestService(r, &memPublisher{})
	ctx := context.Background()

	mk := func(email string, created time.Time) {
		require.NoError(t, r.Create(ctx, &entity.User{
			Name:      "u",
			Email:     email,
			Password:  "hash",
			CreatedAt: created,
		}))
	}
	mk("a@example.com", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))
	mk("b@example.com", time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC))
	mk("c@example.com", time.Date(2024, 1, 2, 0, 1, 0, 0, time.UTC))

	got, err := svc.DailyRegistrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []repo.DailyRegistration{
		{Day: "2024-01-01", Registrations: 2},
		{Day: "2024-01-02", Registrations: 1},
	}, got)
}
