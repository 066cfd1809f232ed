package verification

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// Record is a persisted verification attempt. The store expires records
// 600 seconds after CreatedAt via a TTL index, whether or not the attempt
// succeeded.
type Record struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	GuildID   string    `bson:"guild_id"`
	Email     string    `bson:"email"`
	Code      string    `bson:"code"`
	Verified  bool      `bson:"verified"`
	CreatedAt time.Time `bson:"created_at"`
}

// RecordTTL is the store-enforced lifetime of a verification record.
const RecordTTL = 600 * time.Second

// Phase is the state of an in-memory verification session.
type Phase string

const (
	PhaseAwaitingEmail Phase = "awaiting_email"
	PhaseAwaitingOTP   Phase = "awaiting_otp"
)

func (p Phase) String() string {
	return string(p)
}

// CodeLength is the fixed width of a generated OTP.
const CodeLength = 6

// GenerateCode draws a 6-digit numeric code uniformly from 000000-999999.
// Leading zeros are preserved; the code is always exactly six characters.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
