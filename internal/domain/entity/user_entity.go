package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the aggregate root for the auth domain, persisted as a document
// in the users collection. Password holds a bcrypt hash, never plaintext.
// OTP and OTPExpiry are set together while a login code is pending and
// cleared together on redemption. Sensitive fields are excluded from JSON
// so the entity can be returned in API responses as-is.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"-"`
	Role      string             `bson:"role,omitempty" json:"role,omitempty"`
	OTP       string             `bson:"otp,omitempty" json:"-"`
	OTPExpiry *time.Time         `bson:"otpExpiry,omitempty" json:"-"`
	CreatedAt time.Time          `bson:"createdAt" json:"created_at"`
}

// HasPendingOTP reports whether a login code is currently stored.
func (u *User) HasPendingOTP() bool {
	return u.OTP != "" && u.OTPExpiry != nil
}
