package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewSessionID returns a fresh register session identifier
func NewSessionID() string {
	return uuid.NewString()
}

// GenerateReferenceNo generates a reference number carrying a full random
// UUID in hex, like VTA-1A2B3C4D5E6F47A8B9C0D1E2F3A4B5C6
func GenerateReferenceNo(prefix string) string {
	return prefix + "-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}
