package domain

import (
	"context"
	"time"
)

// Setting is a single store configuration entry
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SettingRepository defines read access to persisted store settings
type SettingRepository interface {
	GetByKey(ctx context.Context, key string) (*Setting, error)
}

// SettingsCache is an explicit get-or-compute cache port with a caller
// supplied TTL. A cache miss runs compute and stores the result; cache
// failures degrade to computing directly.
type SettingsCache interface {
	GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) (string, error)) (string, error)
	Invalidate(ctx context.Context, key string) error
}
