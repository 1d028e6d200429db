package pub

import (
	"encoding/base64"

	"github.com/klauspost/compress/zstd"
)

var enc, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
var dec, _ = zstd.NewReader(nil)

// EncodeText compresses s and base64-url encodes it.
func EncodeText(s string) string {
	b := enc.EncodeAll([]byte(s), make([]byte, 0, len(s)))
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeText reverses EncodeText.
func DecodeText(in string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(in)
	if err != nil {
		return "", err
	}
	out, err := dec.DecodeAll(b, nil)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
