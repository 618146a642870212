package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/insider-one/order-confirmation-service/internal/domain"
)

// SettingsService serves store settings through the TTL cache port
type SettingsService struct {
	repo   domain.SettingRepository
	cache  domain.SettingsCache
	ttl    time.Duration
	logger *slog.Logger
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(repo domain.SettingRepository, cache domain.SettingsCache, ttl time.Duration, logger *slog.Logger) *SettingsService {
	return &SettingsService{
		repo:   repo,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

// Get returns the value for key, served from cache when fresh
func (s *SettingsService) Get(ctx context.Context, key string) (string, error) {
	return s.cache.GetOrCompute(ctx, key, s.ttl, func(ctx context.Context) (string, error) {
		setting, err := s.repo.GetByKey(ctx, key)
		if err != nil {
			return "", err
		}
		s.logger.Debug("setting loaded from store",
			"key", key,
		)
		return setting.Value, nil
	})
}

// Refresh drops the cached value so the next Get hits the store
func (s *SettingsService) Refresh(ctx context.Context, key string) error {
	return s.cache.Invalidate(ctx, key)
}
