package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// GenerateDocumentCode generates a document register code such as
// "RA-3F9A-C210" or "SWMS-0B7E-91D4".
func GenerateDocumentCode(prefix string) (string, error) {
	bytes := make([]byte, 4)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	code := strings.ToUpper(hex.EncodeToString(bytes))
	return fmt.Sprintf("%s-%s-%s", prefix, code[0:4], code[4:8]), nil
}
