package codec

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/GriffinCanCode/gitdrive/internal/objectstore"
)

// DefaultLimit is the largest object the backend accepts in a single call.
const DefaultLimit int64 = 100 << 20

// ErrPayloadTooLarge is returned before any transport call when data exceeds the limit.
var ErrPayloadTooLarge = fmt.Errorf("payload too large: %w", objectstore.ErrTooLarge)

// Codec converts between raw bytes and the text-safe transfer encoding.
type Codec struct {
	// Limit is the maximum payload size in bytes. Zero means DefaultLimit.
	Limit int64
}

// New returns a codec enforcing limit.
func New(limit int64) Codec {
	return Codec{Limit: limit}
}

// Max returns the effective ceiling.
func (c Codec) Max() int64 {
	if c.Limit <= 0 {
		return DefaultLimit
	}
	return c.Limit
}

// EnforceLimit fails when n bytes would exceed the ceiling.
func (c Codec) EnforceLimit(n int64) error {
	if n > c.Max() {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrPayloadTooLarge, n, c.Max())
	}
	return nil
}

// Encode returns the padded standard base64 form of data.
func (c Codec) Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Decode reverses Encode, ignoring the line breaks the backend inserts.
func (c Codec) Decode(s string) ([]byte, error) {
	if strings.ContainsAny(s, "\r\n") {
		s = strings.NewReplacer("\n", "", "\r", "").Replace(s)
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	return data, nil
}

// EncodedLen is the size of the encoded form of n bytes.
func (c Codec) EncodedLen(n int64) int64 {
	return int64(base64.StdEncoding.EncodedLen(int(n)))
}
