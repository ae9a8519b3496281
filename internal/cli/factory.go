package cli

import (
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/aretw0/convo"
	"github.com/aretw0/convo/pkg/adapters/redis"
	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/convo/pkg/persistence/middleware"
	"github.com/aretw0/convo/pkg/ports"
)

// NewFactory builds a factory from cfg. A nil transport selects the HTTP runtime.
// Sessions always receive the runtime's variables unmasked; MaskVariables only
// applies to output paths.
func NewFactory(cfg Config, transport ports.Transport, logger *slog.Logger, hooks ...domain.LifecycleHooks) (*convo.Factory, error) {
	if err := middleware.ValidatePatterns(cfg.MaskVariables); err != nil {
		return nil, fmt.Errorf("invalid mask_variables: %w", err)
	}

	opts := []convo.Option{
		convo.WithLogger(logger),
		convo.WithDataConfig(cfg.Data),
		convo.WithVariables(cfg.Variables),
	}
	if cfg.APIKey != "" {
		opts = append(opts, convo.WithAPIKey(cfg.APIKey))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, convo.WithEndpoint(cfg.Endpoint))
	}
	if transport != nil {
		opts = append(opts, convo.WithTransport(transport))
	}
	if len(hooks) > 0 {
		opts = append(opts, convo.WithLifecycleHooks(domain.CombineHooks(hooks...)))
	}

	if cfg.Redis.Addr != "" {
		var cacheOpts []redis.Option
		if cfg.Redis.TTL > 0 {
			cacheOpts = append(cacheOpts, redis.WithTTL(cfg.Redis.TTL))
		}
		if cfg.Redis.Prefix != "" {
			cacheOpts = append(cacheOpts, redis.WithPrefix(cfg.Redis.Prefix))
		}
		cache := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cacheOpts...)
		mws, err := cacheMiddlewares(cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts,
			convo.WithStateCache(middleware.Chain(cache, mws...)),
			convo.WithFetchLocker(redis.NewLocker(cache.Client(), cache.Prefix())),
		)
		logger.Debug("Using Redis state cache", "addr", cfg.Redis.Addr)
	}

	factory, err := convo.New(cfg.VersionID, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing convo: %w", err)
	}
	return factory, nil
}

// cacheMiddlewares builds the decorators of the shared state cache.
// They must return exactly the state they were given.
func cacheMiddlewares(cfg Config) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if cfg.Redis.EncryptionKey != "" {
		key, err := base64.StdEncoding.DecodeString(cfg.Redis.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("invalid redis.encryption_key: %w", err)
		}
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return nil, err
		}
		mws = append(mws, enc)
	}
	return mws, nil
}
