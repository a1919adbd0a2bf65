package config

import "context"

type contextKey struct{}

// NewContext returns a copy of ctx carrying cfg.
func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, contextKey{}, cfg)
}

// FromContext returns the configuration stored in ctx, or nil.
func FromContext(ctx context.Context) *Config {
	if ctx == nil {
		return nil
	}
	cfg, _ := ctx.Value(contextKey{}).(*Config)
	return cfg
}
