package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/appetiteclub/comandas/services/kitchendisplay/internal/cache"
	"github.com/appetiteclub/comandas/services/kitchendisplay/internal/kitchen"
	"github.com/appetiteclub/comandas/services/kitchendisplay/internal/mongo"
	"github.com/appetiteclub/comandas/services/kitchendisplay/internal/ordersource"
	"github.com/aquamarinepk/aqm"
)

const (
	CacheDriverFile  = "file"
	CacheDriverMongo = "mongo"

	defaultCacheDir = ".comandas"
	defaultTimezone = "America/Lima"
	defaultNATSURL  = "nats://localhost:4222"
)

// NewOrderSource builds the order service client from order_source.* keys.
func NewOrderSource(config *aqm.Config) (*ordersource.Client, error) {
	baseURL, _ := config.GetString("order_source.url")
	if baseURL == "" {
		return nil, fmt.Errorf("order_source.url is required")
	}

	tz := config.GetStringOrDef("order_source.timezone", defaultTimezone)
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid order_source.timezone %q: %w", tz, err)
	}

	timeout, err := durationOrDef(config, "order_source.timeout", ordersource.DefaultTimeout)
	if err != nil {
		return nil, err
	}

	return ordersource.NewClient(baseURL,
		ordersource.WithLocation(loc),
		ordersource.WithTimeout(timeout),
	), nil
}

// NewStore returns the local cache backend selected by cache.driver. A
// MongoDB store must be started before use.
func NewStore(config *aqm.Config, logger aqm.Logger) (cache.Store, error) {
	driver := strings.ToLower(config.GetStringOrDef("cache.driver", CacheDriverFile))
	switch driver {
	case CacheDriverFile:
		return cache.NewFileStore(config.GetStringOrDef("cache.dir", defaultCacheDir)), nil
	case CacheDriverMongo:
		return mongo.NewSnapshotRepo(config, logger), nil
	default:
		return nil, fmt.Errorf("unknown cache.driver %q", driver)
	}
}

// PollInterval reads poll.interval, falling back to the engine default.
func PollInterval(config *aqm.Config) (time.Duration, error) {
	return durationOrDef(config, "poll.interval", kitchen.DefaultPollInterval)
}

func durationOrDef(config *aqm.Config, key string, def time.Duration) (time.Duration, error) {
	raw, _ := config.GetString(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, raw)
	}
	return d, nil
}

func enabled(config *aqm.Config, key string) bool {
	v, _ := config.GetString(key)
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}
