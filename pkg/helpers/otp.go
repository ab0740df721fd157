package helpers

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// KeyOTPAttempts is the Redis key counting verification attempts for the
// currently pending OTP of a user.
func KeyOTPAttempts(uid string) string {
	return "login:otp:attempts:" + uid
}

// GenOTPCode generates a secure random 6-digit OTP code in [100000, 999999].
func GenOTPCode() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint32(b)
	code := 100000 + n%900000
	return fmt.Sprintf("%06d", code), nil
}
