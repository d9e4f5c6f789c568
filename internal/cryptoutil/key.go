package cryptoutil

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
)

const KeySize = 32

// ParseKey decodes a 32-byte export or config key. Accepted forms:
//
//	base64:<data>   hex:<data>   file:<path>   env:<NAME>
//
// A bare value is tried as base64, then hex. file: and env: point at a value in one
// of the other forms.
func ParseKey(value string) ([]byte, error) {
	return parseKey(strings.TrimSpace(value), 0)
}

func parseKey(value string, depth int) ([]byte, error) {
	if value == "" {
		return nil, errors.New("encryption key is empty")
	}
	if depth > 1 {
		return nil, errors.New("encryption key source refers to another source")
	}
	prefix, rest, _ := strings.Cut(value, ":")
	var data []byte
	var err error
	switch prefix {
	case "file":
		raw, rerr := os.ReadFile(rest)
		if rerr != nil {
			return nil, fmt.Errorf("read key file: %w", rerr)
		}
		return parseKey(strings.TrimSpace(string(raw)), depth+1)
	case "env":
		v, ok := os.LookupEnv(rest)
		if !ok {
			return nil, fmt.Errorf("key variable %s is not set", rest)
		}
		return parseKey(strings.TrimSpace(v), depth+1)
	case "base64":
		data, err = base64.StdEncoding.DecodeString(rest)
	case "hex":
		data, err = hex.DecodeString(rest)
	default:
		if data, err = base64.StdEncoding.DecodeString(value); err != nil {
			data, err = hex.DecodeString(value)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(data) != KeySize {
		return nil, fmt.Errorf("invalid key length: %d (expected %d bytes)", len(data), KeySize)
	}
	return data, nil
}

// Fingerprint identifies a key without revealing it. Export manifests record it so an
// import with the wrong key fails before any download.
func Fingerprint(key []byte) string {
	sum := sha256.Sum256(append([]byte("scenesnap-key:"), key...))
	return hex.EncodeToString(sum[:8])
}
