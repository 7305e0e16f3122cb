// Package addr validates and normalizes EVM account addresses. All score and
// loan state is keyed by the lower-cased form; mixed-case input is accepted
// only when its EIP-55 checksum is intact.
package addr

import (
	"encoding/hex"
	"errors"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

var ErrInvalid = errors.New("invalid address")

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Normalize returns the canonical lower-cased form of an address, or
// ErrInvalid if the input is not a well-formed address. Inputs that carry a
// mixed-case checksum are verified before being lowered.
func Normalize(address string) (string, error) {
	trimmed := strings.TrimSpace(address)
	if !addressPattern.MatchString(trimmed) {
		return "", ErrInvalid
	}
	hexPart := trimmed[2:]
	lower := strings.ToLower(hexPart)
	upper := strings.ToUpper(hexPart)
	if hexPart != lower && hexPart != upper && checksum(lower) != hexPart {
		return "", ErrInvalid
	}
	return "0x" + lower, nil
}

// Checksum returns the EIP-55 mixed-case form of an address already known to
// be valid.
func Checksum(address string) string {
	lower := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(address), "0x"))
	return "0x" + checksum(lower)
}

func checksum(lowerHex string) string {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(lowerHex))
	hash := hex.EncodeToString(h.Sum(nil))

	out := make([]byte, len(lowerHex))
	for i := 0; i < len(lowerHex); i++ {
		c := lowerHex[i]
		if c >= 'a' && c <= 'f' && hash[i] >= '8' {
			c = c - 'a' + 'A'
		}
		out[i] = c
	}
	return string(out)
}
