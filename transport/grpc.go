// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"
)

// grpcPackage prefixes service names on the gRPC wire.
const grpcPackage = "luxadmin"

// GRPCCodec adapts a Codec to grpc's encoding.Codec. Its name, and so the
// content subtype on the wire, is the wrapped codec's name.
type GRPCCodec struct {
	Codec Codec
}

func (c GRPCCodec) Marshal(v any) ([]byte, error)      { return c.Codec.Encode(v) }
func (c GRPCCodec) Unmarshal(data []byte, v any) error { return c.Codec.Decode(data, v) }
func (c GRPCCodec) Name() string                       { return c.Codec.Name() }

func init() {
	// Servers look codecs up by content subtype.
	encoding.RegisterCodec(GRPCCodec{Codec: JSON})
	encoding.RegisterCodec(GRPCCodec{Codec: Binary})
	Register(TypeGRPC, newGRPC)
}

// GRPCMethod converts "Cluster.Health" into "/luxadmin.Cluster/Health".
func GRPCMethod(method string) string {
	service, name, ok := strings.Cut(method, ".")
	if !ok {
		return "/" + grpcPackage + "/" + method
	}
	return "/" + grpcPackage + "." + service + "/" + name
}

// MethodFromGRPC is the inverse of GRPCMethod.
func MethodFromGRPC(full string) string {
	full = strings.TrimPrefix(full, "/")
	full = strings.TrimPrefix(full, grpcPackage+".")
	return strings.Replace(full, "/", ".", 1)
}

type grpcTransport struct {
	mu      sync.Mutex
	conns   map[string]*grpc.ClientConn
	closed  bool
	codec   GRPCCodec
	timeout time.Duration
	log     *slog.Logger
}

func newGRPC(o Options) (Transport, error) {
	return &grpcTransport{
		conns:   make(map[string]*grpc.ClientConn),
		codec:   GRPCCodec{Codec: o.Codec},
		timeout: o.Timeout,
		log:     o.Logger.With("transport", TypeGRPC, "codec", o.Codec.Name()),
	}, nil
}

func (t *grpcTransport) conn(addr string) (*grpc.ClientConn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrClosed
	}
	if c, ok := t.conns[addr]; ok {
		return c, nil
	}
	c, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	t.conns[addr] = c
	t.log.Debug("grpc connection created", "addr", addr)
	return c, nil
}

func (t *grpcTransport) Call(ctx context.Context, addr, method string, args, reply any) error {
	c, err := t.conn(addr)
	if err != nil {
		return err
	}
	if reply == nil {
		reply = new(json.RawMessage)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	err = c.Invoke(ctx, GRPCMethod(method), args, reply, grpc.ForceCodec(t.codec))
	if err == nil {
		return nil
	}
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unknown, codes.NotFound, codes.InvalidArgument, codes.FailedPrecondition,
			codes.Internal, codes.Unimplemented:
			return &RemoteError{Method: method, Code: int(s.Code()), Message: s.Message()}
		}
	}
	return fmt.Errorf("grpc %s: %w", method, err)
}

func (t *grpcTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	var errs []error
	for addr, c := range t.conns {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", addr, err))
		}
	}
	clear(t.conns)
	return errors.Join(errs...)
}
