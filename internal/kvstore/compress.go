package kvstore

import (
	"fmt"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// zstdMagic marks a compressed value. JSON documents never start with a
// NUL byte, so uncompressed values pass through untouched.
const zstdMagic = "\x00zst"

// Compressed wraps a Store and zstd-compresses values at or above
// Threshold bytes. Reads accept both compressed and plain values.
type Compressed struct {
	Store
	threshold int
	enc       *zstd.Encoder
	dec       *zstd.Decoder
}

// NewCompressed wraps inner. threshold <= 0 compresses every value.
func NewCompressed(inner Store, threshold int) (*Compressed, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	return &Compressed{Store: inner, threshold: threshold, enc: enc, dec: dec}, nil
}

func (c *Compressed) Get(key string) (string, bool, error) {
	v, ok, err := c.Store.Get(key)
	if err != nil || !ok {
		return v, ok, err
	}
	if !strings.HasPrefix(v, zstdMagic) {
		return v, true, nil
	}
	out, err := c.dec.DecodeAll([]byte(v[len(zstdMagic):]), nil)
	if err != nil {
		return "", false, fmt.Errorf("decompressing %s: %w", key, err)
	}
	return string(out), true, nil
}

func (c *Compressed) Set(key, value string) error {
	if len(value) < c.threshold {
		return c.Store.Set(key, value)
	}
	buf := c.enc.EncodeAll([]byte(value), []byte(zstdMagic))
	return c.Store.Set(key, string(buf))
}

// Keys forwards to the wrapped store. It fails with ErrNotListable when
// the wrapped store cannot enumerate keys.
func (c *Compressed) Keys(prefix string) ([]string, error) {
	if l, ok := c.Store.(Lister); ok {
		return l.Keys(prefix)
	}
	return nil, ErrNotListable
}

// Close releases the codec and the wrapped store.
func (c *Compressed) Close() error {
	c.dec.Close()
	c.enc.Close()
	return Close(c.Store)
}
