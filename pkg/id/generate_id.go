package id

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewID32 returns exactly 32 hex characters (no separators/prefixes).
func NewID32() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// referenceSuffixLen is 48 random bits per prefix and day; references
// sit behind unique indexes.
const referenceSuffixLen = 12

// NewReference returns a human-auditable code such as LN-20240131-9F3A61C07B2E.
func NewReference(prefix string, at time.Time) string {
	return fmt.Sprintf("%s-%s-%s", prefix, at.UTC().Format("20060102"), strings.ToUpper(NewID32()[:referenceSuffixLen]))
}

// NewOTP returns a numeric code of the given length, leading zeros kept.
func NewOTP(digits int) (string, error) {
	if digits <= 0 {
		return "", fmt.Errorf("otp digits must be positive, got %d", digits)
	}
	var b strings.Builder
	b.Grow(digits)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
