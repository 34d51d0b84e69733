package registry

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Room code format
const (
	CodeLength   = 6
	CodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// largest multiple of len(CodeAlphabet) that fits in a byte
const codeByteLimit = 256 - 256%len(CodeAlphabet)

// GenerateCode returns a random room code for which exists reports false.
// It re-samples on collision.
func GenerateCode(exists func(code string) bool) string {
	for {
		code := randomCode()
		if !exists(code) {
			return code
		}
	}
}

func randomCode() string {
	var buf [CodeLength * 2]byte
	out := make([]byte, 0, CodeLength)

	for len(out) < CodeLength {
		if _, err := rand.Read(buf[:]); err != nil {
			panic(fmt.Sprintf("registry: read random bytes: %v", err))
		}
		for _, b := range buf {
			if int(b) >= codeByteLimit {
				continue
			}
			out = append(out, CodeAlphabet[int(b)%len(CodeAlphabet)])
			if len(out) == CodeLength {
				break
			}
		}
	}

	return string(out)
}

// NormalizeCode upper-cases and trims client input
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCode reports whether code is a well-formed room code
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(CodeAlphabet, rune(code[i])) {
			return false
		}
	}
	return true
}
