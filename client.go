// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package admin

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/luxfi/admin/cache"
	"github.com/luxfi/admin/transport"
)

// Client dispatches admin actions to the handlers registered for them.
// It is safe for concurrent use.
type Client struct {
	settings Settings
	env      Environment
	registry *Registry

	pool      *Pool
	transport transport.Transport
	addresses *transport.AddressBook
	shared    *cache.Set
	metrics   *metrics
	log       *slog.Logger

	shutdownTimeout time.Duration
	state           atomic.Int32
}

// NewDefault creates a client from the config file and environment only.
func NewDefault(opts ...Option) (*Client, error) {
	return New(EmptySettings, true, opts...)
}

// New creates a client. When loadConfig is true the config file and LUXADMIN_
// environment variables are merged under settings. The client never acts as
// a server: network.server is forced to false and node.client to true.
//
// Any failure is a *ConfigurationError and leaves nothing running.
func New(settings Settings, loadConfig bool, opts ...Option) (*Client, error) {
	o := newOptions(opts...)

	prepared, env, err := PrepareSettings(settings, loadConfig)
	if err != nil {
		return nil, err
	}
	s := NewSettingsBuilder().
		PutAll(prepared).
		Put(SettingNetworkServer, false).
		Put(SettingNodeClient, true).
		Build()

	shutdownTimeout, err := s.Duration(SettingShutdownTimeout, DefaultShutdownTimeout)
	if err != nil {
		return nil, &ConfigurationError{Source: "settings", Key: SettingShutdownTimeout, Err: err}
	}
	poolSize, err := s.Int(SettingPoolSize, 0)
	if err != nil {
		return nil, &ConfigurationError{Source: "settings", Key: SettingPoolSize, Err: err}
	}
	queueSize, err := s.Int(SettingQueueSize, DefaultQueueSize)
	if err != nil {
		return nil, &ConfigurationError{Source: "settings", Key: SettingQueueSize, Err: err}
	}
	timeout, err := s.Duration(SettingTransportTimeout, 0)
	if err != nil {
		return nil, &ConfigurationError{Source: "settings", Key: SettingTransportTimeout, Err: err}
	}
	retries, err := s.Int(SettingTransportRetries, 0)
	if err != nil {
		return nil, &ConfigurationError{Source: "settings", Key: SettingTransportRetries, Err: err}
	}

	registry, err := NewRegistry(o.actions...)
	if err != nil {
		return nil, &ConfigurationError{Source: "actions", Err: err}
	}

	log := o.logger
	tr := o.transport
	if tr == nil {
		kind := s.String(SettingTransportType, transport.DefaultType)
		tr, err = transport.New(kind, transport.Options{
			Streams:    o.shared.Streams,
			Timeout:    timeout,
			MaxRetries: retries,
			Logger:     log,
		})
		if err != nil {
			return nil, &ConfigurationError{Source: "settings", Key: SettingTransportType, Err: err}
		}
	}

	clientID := s.String(SettingClientID, "")
	// Worker names key scratch slots, and the scratch table may be shared
	// with other clients.
	pool := NewPool("admin-"+ulid.Make().String(), poolSize, queueSize, o.shared.Scratch, log)

	m, err := newMetrics(o.registerer, clientID, pool)
	if err != nil {
		pool.ShutdownNow()
		_ = tr.Close()
		return nil, &ConfigurationError{Source: "metrics", Err: err}
	}

	c := &Client{
		settings:        s,
		env:             env,
		registry:        registry,
		pool:            pool,
		transport:       tr,
		addresses:       transport.NewAddressBook(s.List(SettingAddresses)...),
		shared:          o.shared,
		metrics:         m,
		log:             log.With("client_id", clientID),
		shutdownTimeout: shutdownTimeout,
	}
	c.state.Store(int32(StateOpen))

	c.log.Info("admin client started",
		"actions", registry.Len(),
		"addresses", c.addresses.Len(),
		"config_file", env.ConfigFile,
	)
	return c, nil
}

// Settings returns the finalised settings.
func (c *Client) Settings() Settings { return c.settings }

// Environment returns the paths the settings were prepared from.
func (c *Client) Environment() Environment { return c.env }

// ID returns the client.id setting.
func (c *Client) ID() string { return c.settings.String(SettingClientID, "") }

// Registry returns the client's action registry.
func (c *Client) Registry() *Registry { return c.registry }

// Pool returns the worker pool handlers may submit work to.
func (c *Client) Pool() *Pool { return c.pool }

// Transport returns the transport handlers use to reach remote nodes.
func (c *Client) Transport() transport.Transport { return c.transport }

// SharedState returns the cache set the client clears on Close.
func (c *Client) SharedState() *cache.Set { return c.shared }

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger { return c.log }

// AddAddress adds remote node addresses. Duplicates are ignored.
func (c *Client) AddAddress(addrs ...string) *Client {
	c.addresses.Add(addrs...)
	return c
}

// RemoveAddress removes a remote node address.
func (c *Client) RemoveAddress(addr string) *Client {
	c.addresses.Remove(addr)
	return c
}

// Addresses lists the known remote node addresses.
func (c *Client) Addresses() []string { return c.addresses.List() }

// NextAddress picks the address for the next remote call, round robin.
func (c *Client) NextAddress() (string, error) { return c.addresses.Next() }
