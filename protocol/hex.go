package protocol

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// HexToBytes decodes a hex string such as "0f1A2b". Whitespace is ignored.
//
// Decoding is strict: an odd number of digits fails with ErrOddHexLength and
// any non-hex character fails with ErrInvalidHex. Nothing is truncated.
func HexToBytes(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("%w: %d digits", ErrOddHexLength, len(s))
	}

	data, err := hex.DecodeString(s)
	if err != nil {
		var inv hex.InvalidByteError
		if errors.As(err, &inv) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidHex, byte(inv))
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidHex, err)
	}

	return data, nil
}

// BytesToHex encodes data as lowercase hex with two digits per byte.
func BytesToHex(data []byte) string {
	return hex.EncodeToString(data)
}
