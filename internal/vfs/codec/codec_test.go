package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/gitdrive/internal/objectstore"
)

func TestRoundTrip(t *testing.T) {
	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: []byte{}},
		{name: "single byte", data: []byte{0xff}},
		{name: "ascii", data: []byte("hello, world")},
		{name: "every byte value", data: all},
		{name: "needs padding", data: []byte("ab")},
	}

	c := New(0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Decode(c.Encode(tt.data))
			require.NoError(t, err)
			assert.Equal(t, len(tt.data), len(got))
			if len(tt.data) > 0 {
				assert.Equal(t, tt.data, got)
			}
		})
	}
}

func TestDecodeIgnoresLineBreaks(t *testing.T) {
	c := New(0)
	got, err := c.Decode("aGVs\nbG8s\r\nIHdvcmxk\n")
	require.NoError(t, err)
	assert.Equal(t, "hello, world", string(got))
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := New(0).Decode("not base64!!")
	assert.Error(t, err)
}

func TestEnforceLimit(t *testing.T) {
	c := New(0)
	assert.NoError(t, c.EnforceLimit(DefaultLimit))
	err := c.EnforceLimit(DefaultLimit + 1)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
	assert.ErrorIs(t, err, objectstore.ErrTooLarge)

	small := New(10)
	assert.NoError(t, small.EnforceLimit(10))
	assert.ErrorIs(t, small.EnforceLimit(11), ErrPayloadTooLarge)
}

func TestEncodedLen(t *testing.T) {
	c := New(0)
	assert.Equal(t, int64(len(c.Encode(make([]byte, 100)))), c.EncodedLen(100))
}
