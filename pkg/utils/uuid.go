package utils

import (
	"strings"

	"github.com/google/uuid"
)

// ParseUUID parses a string into a UUID
func ParseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(s))
}

// ShortID returns the first eight hex digits of id in upper case, short
// enough to share a 32 column line with another identifier.
func ShortID(id uuid.UUID) string {
	return strings.ToUpper(id.String()[:8])
}

// GenerateReceiptNo generates a remote payment receipt reference for an order
func GenerateReceiptNo(prefix string, id uuid.UUID) string {
	return prefix + "_" + strings.ReplaceAll(id.String(), "-", "")
}
