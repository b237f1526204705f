package models

import (
	"strings"

	"github.com/google/uuid"
)

const InviteCodeLength = 8

// GenerateInviteCode returns a fresh 8-character upper-case code. Uniqueness is
// enforced by the user directory, which retries on collision.
func GenerateInviteCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:InviteCodeLength])
}

// NormalizeInviteCode trims and upper-cases user input so lookups are
// case-insensitive.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func ValidInviteCode(code string) bool {
	if len(code) != InviteCodeLength {
		return false
	}
	for _, r := range code {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
