package valkey

import (
	"testing"

	"github.com/lhudash/chisa-api/core/config"
	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	c := &Client{keyPrefix: normalizePrefix("chisa")}

	assert.Equal(t, "chisa:", c.KeyPrefix())
	assert.Equal(t, "chisa:nonce:abc", c.Key("nonce", "abc"))
	assert.Equal(t, "chisa", c.Key())
}

func TestKeyWithoutPrefix(t *testing.T) {
	c := &Client{}
	assert.Equal(t, "nonce:abc", c.Key("nonce", "abc"))
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.DatabaseConfig{
		ValkeyAddress:   "cache:6379",
		ValkeyPassword:  "pw",
		ValkeyDB:        2,
		ValkeyKeyPrefix: "chisa:",
	})

	assert.Equal(t, "cache:6379", cfg.Address)
	assert.Equal(t, "pw", cfg.Password)
	assert.Equal(t, 2, cfg.DB)
	assert.Equal(t, "chisa:", cfg.KeyPrefix)
}
