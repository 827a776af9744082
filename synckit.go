// Package synckit is the data layer of the qytetaret municipal
// issue-reporting client: it keeps report data synchronized between the
// remote gateway and a durable local store, bounds and expires cached
// responses, owns the auth session, and polls for notifications while a
// session is active. The embedding UI talks only to the services wired
// up here.
package synckit

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/qytetaret/synckit/internal/cache"
	"github.com/qytetaret/synckit/internal/config"
	"github.com/qytetaret/synckit/internal/gateway"
	"github.com/qytetaret/synckit/internal/notify"
	"github.com/qytetaret/synckit/internal/session"
	"github.com/qytetaret/synckit/internal/store"
	"github.com/qytetaret/synckit/internal/syncstore"
)

// Client bundles the explicitly constructed service instances. Create
// one per process with New and release it with Close; tests create
// isolated instances the same way.
type Client struct {
	// Reports is the synchronizing data store for report data.
	Reports *syncstore.Store

	// Notifications delivers polled notifications and their side effects.
	Notifications *notify.Service

	// Sessions owns the current identity and the fallback registry.
	Sessions *session.Store

	// Cache is the bounded response cache beside gateway reads.
	Cache *cache.Cache

	gw    *gateway.Client
	local *store.SQLiteStore
}

// New constructs the full layer from cfg: it opens the local store,
// probes the gateway once to decide the operating mode, restores a
// persisted session token, and wires the notification service to sink
// (nil discards side effects). Initialization fails only when durable
// storage is unusable.
func New(ctx context.Context, cfg *config.Config, sink notify.Sink, log zerolog.Logger) (*Client, error) {
	local, err := store.NewSQLiteStore(cfg.Store.Path, log)
	if err != nil {
		return nil, fmt.Errorf("opening local store: %w", err)
	}

	gw := gateway.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.Timeout(), log)

	tokens := session.KeyringTokenStore{}
	if token, err := tokens.Get(); err == nil && token != "" {
		gw.SetToken(token)
	}

	sessions := session.New(local, gw, tokens, false, log)

	cc := cache.New(cfg.Cache, log)

	reports, err := syncstore.New(ctx, gw, local, sessions, cc, log)
	if err != nil {
		local.Close()
		return nil, err
	}
	sessions.SetRemote(reports.Available())

	notifications := notify.New(gw, local, sessions, sink, cfg.Notify, log)

	return &Client{
		Reports:       reports,
		Notifications: notifications,
		Sessions:      sessions,
		Cache:         cc,
		gw:            gw,
		local:         local,
	}, nil
}

// Close stops the notification schedule and releases the local store.
func (c *Client) Close() error {
	c.Notifications.Stop()
	return c.local.Close()
}
