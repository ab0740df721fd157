package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/go-auth-otp-service/internal/domain/entity"
)

// ErrDuplicateEmail is returned by Create when the store-level uniqueness
// constraint on email rejects the insert. The constraint, not any
// pre-check, is the source of truth for duplicate detection.
var ErrDuplicateEmail = errors.New("email already registered")

// DailyRegistration is one bucket of the registrations-per-day aggregation.
// The wire field names mirror the aggregation output.
type DailyRegistration struct {
	Day           string `bson:"_id" json:"_id"` // UTC date, YYYY-MM-DD
	Registrations int    `bson:"registrations" json:"registrations"`
}

// UserRepository defines the interface for user-related store operations.
type UserRepository interface {
	// Create inserts the user and fills in the generated ID and CreatedAt.
	// Returns ErrDuplicateEmail when the email unique index rejects the write.
	Create(ctx context.Context, u *entity.User) error
	// FindByEmail returns (nil, nil) when no user matches.
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	// Save persists the mutable fields of an existing user (OTP set/clear).
	Save(ctx context.Context, u *entity.User) error
	// CountByDay groups users by UTC calendar day of CreatedAt, ascending.
	CountByDay(ctx context.Context) ([]DailyRegistration, error)
}
