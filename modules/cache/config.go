package cache

import "time"

// Config defines the configuration for the cache module, read from the
// "cache" prefix.
type Config struct {
	// Address of an external Redis server. When empty an embedded server is
	// started for the service and discarded when it stops.
	Address string `config:"address"`

	Password string `config:"password"`

	// DB is the Redis database number.
	DB int `config:"db" validate:"min=0,max=15"`

	// KeyPrefix is prepended to every key, so services sharing an external
	// server do not see each other's entries.
	KeyPrefix string `config:"key-prefix"`

	// DefaultTTL applies to Set calls with a zero TTL. 0 means no expiry.
	DefaultTTL time.Duration `config:"default-ttl" validate:"min=0"`

	DialTimeout time.Duration `config:"dial-timeout" validate:"gt=0"`
}

// DefaultConfig returns the values used for keys missing from the
// configuration.
func DefaultConfig() Config {
	return Config{
		DefaultTTL:  5 * time.Minute,
		DialTimeout: 5 * time.Second,
	}
}
