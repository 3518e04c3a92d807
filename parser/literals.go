package parser

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/dr8co/txsc/bytescript"
)

// hexLiteralToBytes decodes a "0x..."-prefixed hex literal.
func hexLiteralToBytes(lit string) ([]byte, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(lit, "0x"), "0X")
	if len(trimmed)%2 != 0 {
		trimmed = "0" + trimmed
	}
	data, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid hex literal %q: %w", lit, err)
	}
	return data, nil
}

// isAddressLiteral reports whether s looks like a base58check address
// rather than an ordinary quoted byte string, by its conventional
// leading character(s).
func isAddressLiteral(s string) bool {
	if s == "" {
		return false
	}
	return s[0] == '1' || s[0] == '3' || strings.HasPrefix(s, "bc1")
}

func decodeAddressLiteral(s string) ([]byte, error) {
	return bytescript.DecodeAddressLiteral(s)
}
