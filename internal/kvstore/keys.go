package kvstore

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
)

// NATS KV keys allow [-/_=.a-zA-Z0-9] with '.' as the token separator, so
// ':' separated keys are stored with each segment as a token. Segments with
// other characters (usernames, arbitrary ids) are stored as '=' followed by
// their unpadded base64url encoding.

var plainSegment = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

var segmentEncoding = base64.RawURLEncoding

// EncodeKey maps a ':' separated key to a NATS KV key.
func EncodeKey(key string) string {
	segs := strings.Split(key, ":")
	for i, s := range segs {
		if !plainSegment.MatchString(s) {
			segs[i] = "=" + segmentEncoding.EncodeToString([]byte(s))
		}
	}
	return strings.Join(segs, ".")
}

// DecodeKey reverses EncodeKey.
func DecodeKey(natsKey string) (string, error) {
	segs := strings.Split(natsKey, ".")
	for i, s := range segs {
		if !strings.HasPrefix(s, "=") {
			continue
		}
		b, err := segmentEncoding.DecodeString(s[1:])
		if err != nil {
			return "", fmt.Errorf("decode key %q: %w", natsKey, err)
		}
		segs[i] = string(b)
	}
	return strings.Join(segs, ":"), nil
}
