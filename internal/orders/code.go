package orders

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const (
	// Uppercase letters and digits without 0, O, 1 or I.
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	CodeLength   = 8

	DefaultCodeAttempts = 5
)

// CodeGenerator returns a candidate order code. Uniqueness is checked by the
// caller.
type CodeGenerator func() (string, error)

// RandomCode draws CodeLength characters from codeAlphabet using crypto/rand.
func RandomCode() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	// len(codeAlphabet) == 32
	for i, b := range buf {
		buf[i] = codeAlphabet[b&31]
	}
	return string(buf), nil
}

// NormalizeCode canonicalises user input before lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
