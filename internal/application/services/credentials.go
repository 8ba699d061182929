package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/DanielPopoola/pesapal-gateway/internal/application"
	"github.com/DanielPopoola/pesapal-gateway/internal/config"
	"github.com/DanielPopoola/pesapal-gateway/internal/domain"
)

const credentialFlightKey = "credential"

// CredentialCache holds the process-wide gateway bearer token. Refresh is
// reactive: on expiry or after a caller reports a 401 through Invalidate.
type CredentialCache struct {
	gateway application.Gateway
	request application.TokenRequest
	ttl     time.Duration
	skew    time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.RWMutex
	current domain.Credential
	flight  singleflight.Group
}

func NewCredentialCache(gateway application.Gateway, cfg config.PesapalConfig, logger *slog.Logger) *CredentialCache {
	return &CredentialCache{
		gateway: gateway,
		request: application.TokenRequest{
			ConsumerKey:    cfg.ConsumerKey,
			ConsumerSecret: cfg.ConsumerSecret,
		},
		ttl:    cfg.TokenTTL,
		skew:   cfg.TokenExpirySkew,
		logger: logger,
		now:    time.Now,
	}
}

// Acquire returns the cached credential, fetching a new one when none is usable.
// Concurrent callers on a cold cache share a single token request.
func (c *CredentialCache) Acquire(ctx context.Context) (domain.Credential, error) {
	if cred, ok := c.cached(); ok {
		return cred, nil
	}

	// The fetch outlives any single caller so a disconnecting client does not
	// fail the others waiting on the same flight.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(credentialFlightKey, func() (interface{}, error) {
		if cred, ok := c.cached(); ok {
			return cred, nil
		}
		return c.fetch(fetchCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return domain.Credential{}, res.Err
		}
		return res.Val.(domain.Credential), nil
	case <-ctx.Done():
		return domain.Credential{}, ctx.Err()
	}
}

// Invalidate drops token if it is still the cached one. A newer token fetched
// by another goroutine is left alone.
func (c *CredentialCache) Invalidate(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current.Token == token {
		c.current = domain.Credential{}
		c.logger.Info("gateway credential invalidated")
	}
}

func (c *CredentialCache) cached() (domain.Credential, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current, c.current.Usable(c.now(), c.skew)
}

func (c *CredentialCache) fetch(ctx context.Context) (domain.Credential, error) {
	resp, err := c.gateway.RequestToken(ctx, c.request)
	if err != nil {
		if application.IsRetryable(err) {
			c.logger.Warn("gateway token request failed", "error", err)
			return domain.Credential{}, application.NewGatewayFailure("Payment gateway unavailable for authentication", err)
		}
		c.logger.Error("gateway rejected merchant credentials", "error", err)
		return domain.Credential{}, application.NewAuthError(err)
	}
	if resp.Token == "" {
		return domain.Credential{}, application.NewAuthError(errors.New("gateway returned an empty token"))
	}

	now := c.now()
	expiresAt := resp.ExpiresAt
	if expiresAt.IsZero() || expiresAt.After(now.Add(c.ttl)) {
		expiresAt = now.Add(c.ttl)
	}
	cred := domain.Credential{Token: resp.Token, ExpiresAt: expiresAt}

	c.mu.Lock()
	c.current = cred
	c.mu.Unlock()

	c.logger.Debug("gateway credential refreshed", "expires_at", expiresAt)
	return cred, nil
}

// withCredential runs call with the cached token, refreshing it once if the
// gateway answers 401.
func withCredential[T any](ctx context.Context, creds application.CredentialSource, call func(token string) (T, error)) (T, error) {
	var zero T

	cred, err := creds.Acquire(ctx)
	if err != nil {
		return zero, err
	}

	result, err := call(cred.Token)
	if err == nil || !application.IsUnauthorized(err) {
		return result, err
	}

	creds.Invalidate(cred.Token)
	cred, err = creds.Acquire(ctx)
	if err != nil {
		return zero, err
	}
	return call(cred.Token)
}
