package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-otp-service/internal/domain/entity"
	repo "github.com/oksasatya/go-auth-otp-service/internal/domain/repository"
	"github.com/oksasatya/go-auth-otp-service/pkg/helpers"
	"github.com/oksasatya/go-auth-otp-service/pkg/mailer"
	tpl "github.com/oksasatya/go-auth-otp-service/pkg/mailer/templates"
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUserNotFound        = errors.New("user not found")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidOrExpiredOTP = errors.New("invalid or expired OTP")
	ErrTooManyOTPAttempts  = errors.New("too many OTP attempts")
)

// Publisher enqueues email jobs. Satisfied by helpers.RabbitPublisher.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// AuthService orchestrates the four auth flows: register, password login,
// OTP request and OTP verification, plus the daily-registration report.
type AuthService struct {
	Repo           repo.UserRepository
	JWT            *helpers.JWTManager
	Redis          *redis.Client
	Logger         *logrus.Logger
	Pub            Publisher
	ES             *elasticsearch.Client
	ESUsersIndex   string
	MailEnabled    bool
	OTPTTL         time.Duration
	OTPMaxAttempts int
}

func NewAuthService(repo repo.UserRepository, jwt *helpers.JWTManager, rdb *redis.Client, logger *logrus.Logger, pub Publisher, es *elasticsearch.Client, esUsersIndex string, mailEnabled bool, otpTTL time.Duration, otpMaxAttempts int) *AuthService {
	return &AuthService{
		Repo:           repo,
		JWT:            jwt,
		Redis:          rdb,
		Logger:         logger,
		Pub:            pub,
		ES:             es,
		ESUsersIndex:   esUsersIndex,
		MailEnabled:    mailEnabled,
		OTPTTL:         otpTTL,
		OTPMaxAttempts: otpMaxAttempts,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register hashes the password, persists the user, and sends the welcome
// email best-effort after the write. The unique index on email is the
// source of truth for duplicates; FindByEmail here only short-circuits the
// common case before paying for a bcrypt hash.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	if existing, err := s.Repo.FindByEmail(ctx, in.Email); err == nil && existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{
		Name:     in.Name,
		Email:    in.Email,
		Password: hash,
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.indexUser(ctx, u)
	s.enqueueMail(ctx, u.Email, tpl.Welcome, map[string]any{"Name": u.Name})
	return u, nil
}

// Login validates credentials and issues a bearer token carrying the user
// id and role. Unknown email and wrong password return the same error so
// the response never reveals which part failed.
func (s *AuthService) Login(ctx context.Context, email, password string) (*entity.User, string, error) {
	u, err := s.Repo.FindByEmail(ctx, email)
	if err != nil || u == nil {
		return nil, "", ErrInvalidCredentials
	}
	if !helpers.CompareHashAndPassword(u.Password, password) {
		return nil, "", ErrInvalidCredentials
	}
	token, _, err := s.JWT.Generate(u.ID.Hex(), u.Role)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// RequestOTP generates a fresh 6-digit code for the user, overwriting any
// pending one, persists it with its expiry, and emails it. The attempt
// counter for the previous code is discarded along with the code.
func (s *AuthService) RequestOTP(ctx context.Context, email string) error {
	u, err := s.Repo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrUserNotFound
	}

	code, err := helpers.GenOTPCode()
	if err != nil {
		return err
	}
	expiry := time.Now().Add(s.OTPTTL)
	u.OTP = code
	u.OTPExpiry = &expiry
	if err := s.Repo.Save(ctx, u); err != nil {
		return err
	}

	if s.Redis != nil {
		if err := s.Redis.Del(ctx, helpers.KeyOTPAttempts(u.ID.Hex())).Err(); err != nil && s.Logger != nil {
			s.Logger.WithError(err).Warn("reset otp attempts failed")
		}
	}

	s.enqueueMail(ctx, u.Email, tpl.LoginOTP, map[string]any{
		"Name":      u.Name,
		"Code":      code,
		"ExpiresIn": fmt.Sprintf("%d minutes", int(s.OTPTTL.Minutes())),
	})
	return nil
}

// VerifyOTP redeems a pending code. A mismatch or an expired code fails
// without clearing the stored code; a match within the window clears both
// otp fields and issues a bearer token. Attempts per pending code are
// capped via Redis; the limiter fails open when Redis is unavailable.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (*entity.User, string, error) {
	u, err := s.Repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if u == nil {
		return nil, "", ErrUserNotFound
	}

	if s.Redis != nil && s.OTPMaxAttempts > 0 {
		key := helpers.KeyOTPAttempts(u.ID.Hex())
		n, rErr := s.Redis.Incr(ctx, key).Result()
		if rErr == nil {
			if n == 1 {
				s.Redis.Expire(ctx, key, s.OTPTTL)
			}
			if n > int64(s.OTPMaxAttempts) {
				return nil, "", ErrTooManyOTPAttempts
			}
		}
	}

	if !u.HasPendingOTP() || u.OTP != code || time.Now().After(*u.OTPExpiry) {
		return nil, "", ErrInvalidOrExpiredOTP
	}

	// Code and expiry leave the record together; a second redemption of
	// the same code must fail.
	u.OTP = ""
	u.OTPExpiry = nil
	if err := s.Repo.Save(ctx, u); err != nil {
		return nil, "", err
	}
	if s.Redis != nil {
		_ = s.Redis.Del(ctx, helpers.KeyOTPAttempts(u.ID.Hex())).Err()
	}

	token, _, err := s.JWT.Generate(u.ID.Hex(), "")
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// DailyRegistrations returns registration counts grouped by UTC calendar
// day, ascending.
func (s *AuthService) DailyRegistrations(ctx context.Context) ([]repo.DailyRegistration, error) {
	return s.Repo.CountByDay(ctx)
}

func (s *AuthService) enqueueMail(ctx context.Context, to, template string, data map[string]any) {
	if s.Pub == nil || !s.MailEnabled {
		return
	}
	job := mailer.EmailJob{To: to, Template: template, Data: data}
	if err := s.Pub.PublishJSON(ctx, job); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{"to": to, "template": template}).Warn("enqueue email failed")
	}
}

func (s *AuthService) indexUser(ctx context.Context, u *entity.User) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return
	}
	doc := map[string]any{
		"id":         u.ID.Hex(),
		"email":      u.Email,
		"name":       u.Name,
		"created_at": u.CreatedAt.Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESUsersIndex, DocumentID: u.ID.Hex(), Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID.Hex()).Warn("es index failed")
		}
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("user_id", u.ID.Hex()).Warn("es index response error")
	}
}

// SearchUsers performs a simple multi_match search on email and name.
func (s *AuthService) SearchUsers(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "name"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(s.ES.Search.WithContext(c), s.ES.Search.WithIndex(s.ESUsersIndex), s.ES.Search.WithBody(strings.NewReader(string(b))))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
