package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/DanielPopoola/pesapal-gateway/internal/application"
	"github.com/DanielPopoola/pesapal-gateway/internal/config"
)

// WebhookRegistrar resolves the gateway notification id for a callback URL at
// most once per URL for the lifetime of the process.
type WebhookRegistrar struct {
	gateway          application.Gateway
	creds            application.CredentialSource
	notificationType string
	logger           *slog.Logger

	mu     sync.RWMutex
	ids    map[string]string
	flight singleflight.Group
}

// NewWebhookRegistrar seeds the cache with cfg.NotificationID when the
// operator has pinned one for cfg.IPNURL.
func NewWebhookRegistrar(gateway application.Gateway, creds application.CredentialSource, cfg config.PesapalConfig, logger *slog.Logger) *WebhookRegistrar {
	r := &WebhookRegistrar{
		gateway:          gateway,
		creds:            creds,
		notificationType: cfg.IPNNotificationType,
		logger:           logger,
		ids:              make(map[string]string),
	}
	if cfg.NotificationID != "" && cfg.IPNURL != "" {
		r.ids[normalizeURL(cfg.IPNURL)] = cfg.NotificationID
	}
	return r
}

func (r *WebhookRegistrar) EnsureRegistered(ctx context.Context, callbackURL string) (string, error) {
	key := normalizeURL(callbackURL)
	if id, ok := r.cached(key); ok {
		return id, nil
	}

	registerCtx := context.WithoutCancel(ctx)
	ch := r.flight.DoChan(key, func() (interface{}, error) {
		if id, ok := r.cached(key); ok {
			return id, nil
		}

		id := r.lookup(registerCtx, key)
		if id == "" {
			var err error
			if id, err = r.register(registerCtx, callbackURL); err != nil {
				return "", err
			}
		}

		r.mu.Lock()
		r.ids[key] = id
		r.mu.Unlock()
		return id, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (r *WebhookRegistrar) cached(key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.ids[key]
	return id, ok
}

// lookup reuses an id the gateway already holds for the URL, so a restart does
// not leave a second registration behind. Failures fall through to register.
func (r *WebhookRegistrar) lookup(ctx context.Context, key string) string {
	regs, err := withCredential(ctx, r.creds, func(token string) ([]application.IPNRegistration, error) {
		return r.gateway.ListIPNs(ctx, token)
	})
	if err != nil {
		r.logger.Warn("could not list registered IPN URLs", "error", err)
		return ""
	}

	fallback := ""
	for _, reg := range regs {
		if normalizeURL(reg.URL) != key || reg.IPNID == "" {
			continue
		}
		if strings.EqualFold(reg.NotificationType, r.notificationType) {
			r.logger.Info("reusing IPN registration", "ipn_id", reg.IPNID, "url", reg.URL)
			return reg.IPNID
		}
		fallback = reg.IPNID
	}
	if fallback != "" {
		r.logger.Info("reusing IPN registration with different notification type", "ipn_id", fallback)
	}
	return fallback
}

func (r *WebhookRegistrar) register(ctx context.Context, callbackURL string) (string, error) {
	req := application.RegisterIPNRequest{URL: callbackURL, NotificationType: r.notificationType}
	resp, err := withCredential(ctx, r.creds, func(token string) (*application.RegisterIPNResponse, error) {
		return r.gateway.RegisterIPN(ctx, token, req)
	})
	if err != nil {
		if svcErr, ok := application.IsServiceError(err); ok && svcErr.Code == application.ErrCodeAuth {
			return "", err
		}
		r.logger.Error("IPN registration failed", "url", callbackURL, "error", err)
		return "", application.NewRegistrationError(err)
	}
	if resp.IPNID == "" {
		return "", application.NewRegistrationError(errors.New("gateway returned no ipn_id"))
	}

	r.logger.Info("IPN URL registered", "ipn_id", resp.IPNID, "url", callbackURL)
	return resp.IPNID, nil
}

func normalizeURL(raw string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(raw), "/"))
}
