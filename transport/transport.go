// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package transport carries admin requests to remote cluster nodes.
//
// Handlers depend only on the Transport interface. Which wire protocol is
// used is a deployment decision made through the "transport.type" setting:
//
//	http    JSON-RPC 2.0 over HTTP (default)
//	grpc    gRPC with a JSON content subtype
//	framed  length-prefixed binary frames over TCP
//
// Methods are named "Service.Method", for example "Cluster.Health". Each
// transport maps that name onto its own protocol.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/luxfi/admin/cache"
)

// Transport types
const (
	TypeHTTP   = "http"   // JSON-RPC over HTTP
	TypeGRPC   = "grpc"   // gRPC, configured codec
	TypeFramed = "framed" // binary frames over TCP
)

// DefaultType is the transport used when none is configured.
const DefaultType = TypeHTTP

var (
	ErrUnknownTransport = errors.New("transport: unknown type")
	ErrClosed           = errors.New("transport: closed")
)

// Transport sends one request to one node and waits for its reply.
type Transport interface {
	// Call invokes method on the node at addr. args is encoded with the
	// transport's codec and the result is decoded into reply.
	Call(ctx context.Context, addr, method string, args, reply any) error

	// Close releases connections held by the transport.
	Close() error
}

// Options configures a transport instance.
type Options struct {
	Codec      Codec
	Streams    *cache.Streams
	Timeout    time.Duration
	MaxRetries int
	Logger     *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Codec == nil {
		o.Codec = JSON
	}
	if o.Streams == nil {
		o.Streams = cache.Default.Streams
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	o.Logger = o.Logger.With("component", "transport")
	return o
}

// Factory builds a transport from options.
type Factory func(o Options) (Transport, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{}
)

// Register makes a transport type available to New. Registering an existing
// name replaces it.
func Register(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// New builds a transport of the named type.
func New(name string, o Options) (Transport, error) {
	if name == "" {
		name = DefaultType
	}
	factoriesMu.RLock()
	f, ok := factories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransport, name)
	}
	return f(o.withDefaults())
}

// Available returns the registered transport types, sorted.
func Available() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	result := make([]string, 0, len(factories))
	for name := range factories {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// Has checks if a transport type is registered.
func Has(name string) bool {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	_, ok := factories[name]
	return ok
}

// RemoteError is an error reported by the remote node rather than by the
// transport itself.
type RemoteError struct {
	Method  string
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s: %s", e.Method, e.Message)
}

// IsRemote reports whether err carries a RemoteError.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
