// ABOUTME: Durable client-local lead cache
// ABOUTME: Stores the lead collection as zstd-compressed JSON under a single key
package cache

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"

	"github.com/harperreed/leadsync/models"
)

// LeadsKey is where the collection is stored.
var LeadsKey = []byte("leads")

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

type Cache struct {
	kv      KV
	log     zerolog.Logger
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func New(kv KV, log zerolog.Logger) (*Cache, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &Cache{kv: kv, log: log, encoder: encoder, decoder: decoder}, nil
}

// Load returns the cached collection. Missing or unreadable data yields an
// empty collection; it never fails.
func (c *Cache) Load() []models.Lead {
	raw, err := c.kv.Get(LeadsKey)
	if errors.Is(err, ErrNotFound) {
		return []models.Lead{}
	}
	if err != nil {
		c.log.Warn().Err(err).Msg("cache read failed, starting empty")
		return []models.Lead{}
	}

	if bytes.HasPrefix(raw, zstdMagic) {
		raw, err = c.decoder.DecodeAll(raw, nil)
		if err != nil {
			c.log.Warn().Err(err).Msg("cache blob corrupt, starting empty")
			return []models.Lead{}
		}
	}

	var leads []models.Lead
	if err := json.Unmarshal(raw, &leads); err != nil {
		c.log.Warn().Err(err).Msg("cache json malformed, starting empty")
		return []models.Lead{}
	}
	if leads == nil {
		leads = []models.Lead{}
	}
	return leads
}

// Save replaces the cached collection.
func (c *Cache) Save(leads []models.Lead) error {
	if leads == nil {
		leads = []models.Lead{}
	}
	data, err := json.Marshal(leads)
	if err != nil {
		return fmt.Errorf("failed to encode leads: %w", err)
	}
	blob := c.encoder.EncodeAll(data, make([]byte, 0, len(data)/2))
	if err := c.kv.Set(LeadsKey, blob); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// Close releases the codec and the backend.
func (c *Cache) Close() error {
	c.decoder.Close()
	_ = c.encoder.Close()
	return c.kv.Close()
}
