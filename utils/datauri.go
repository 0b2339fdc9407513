package utils

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// EncodeDataURI builds a self-describing base64 payload embedding the MIME type.
func EncodeDataURI(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURI splits a "data:<mime>;base64,<payload>" string into its MIME
// type and decoded bytes.
func ParseDataURI(dataURI string) (string, []byte, error) {
	if !strings.HasPrefix(dataURI, "data:") {
		return "", nil, fmt.Errorf("not a data URI")
	}
	rest := dataURI[len("data:"):]
	sep := strings.Index(rest, ",")
	if sep < 0 {
		return "", nil, fmt.Errorf("malformed data URI: missing payload separator")
	}
	meta, payload := rest[:sep], rest[sep+1:]

	mime := meta
	if idx := strings.Index(meta, ";"); idx >= 0 {
		mime = meta[:idx]
		if !strings.Contains(meta[idx:], "base64") {
			return "", nil, fmt.Errorf("unsupported data URI encoding: %s", meta)
		}
	} else {
		return "", nil, fmt.Errorf("unsupported data URI encoding: %s", meta)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode data URI payload: %w", err)
	}
	return strings.ToLower(mime), data, nil
}
