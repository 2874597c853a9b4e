// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package devnode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	rpc "github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/luxfi/admin/cluster"
	"github.com/luxfi/admin/transport"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// ErrUnknownMethod is returned for methods the node does not serve.
var ErrUnknownMethod = errors.New("unknown method")

type nodeMetrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
}

func newNodeMetrics() *nodeMetrics {
	m := &nodeMetrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "luxadmin_devnode_requests_total",
			Help: "Requests served by the development node.",
		}, []string{"method", "transport", "outcome"}),
	}
	m.registry.MustRegister(m.requests)
	return m
}

func (m *nodeMetrics) observe(method, via string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.requests.WithLabelValues(method, via, outcome).Inc()
}

// method decodes a JSON payload and runs one cluster operation.
type method func(ctx context.Context, payload []byte) (any, error)

func bind[Req, Resp any](fn func(context.Context, *Req) (*Resp, error)) method {
	return func(ctx context.Context, payload []byte) (any, error) {
		req := new(Req)
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, req); err != nil {
				return nil, fmt.Errorf("decode request: %w", err)
			}
		}
		return fn(ctx, req)
	}
}

func (n *Node) methodTable() map[string]method {
	return map[string]method{
		cluster.MethodHealth:         bind(n.Health),
		cluster.MethodState:          bind(n.State),
		cluster.MethodNodesInfo:      bind(n.NodesInfo),
		cluster.MethodUpdateSettings: bind(n.UpdateSettings),
		cluster.MethodReroute:        bind(n.Reroute),
	}
}

// Call runs method with a JSON payload. It backs the gRPC and framed
// servers.
func (n *Node) Call(ctx context.Context, name string, payload []byte, via string) (any, error) {
	m, ok := n.methods[name]
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownMethod, name)
		n.metrics.observe(name, via, err)
		return nil, err
	}
	resp, err := m(ctx, payload)
	n.metrics.observe(name, via, err)
	if err != nil {
		n.log.Debug("request failed", "method", name, "transport", via, "error", err)
	}
	return resp, err
}

// Service exposes the node to gorilla/rpc as the "Cluster" service.
type Service struct {
	node *Node
}

func serve[Req, Resp any](s *Service, r *http.Request, name string, fn func(context.Context, *Req) (*Resp, error), args *Req, reply *Resp) error {
	resp, err := fn(r.Context(), args)
	s.node.metrics.observe(name, transport.TypeHTTP, err)
	if err != nil {
		return err
	}
	*reply = *resp
	return nil
}

func (s *Service) Health(r *http.Request, args *cluster.HealthRequest, reply *cluster.HealthResponse) error {
	return serve(s, r, cluster.MethodHealth, s.node.Health, args, reply)
}

func (s *Service) State(r *http.Request, args *cluster.StateRequest, reply *cluster.StateResponse) error {
	return serve(s, r, cluster.MethodState, s.node.State, args, reply)
}

func (s *Service) NodesInfo(r *http.Request, args *cluster.NodesInfoRequest, reply *cluster.NodesInfoResponse) error {
	return serve(s, r, cluster.MethodNodesInfo, s.node.NodesInfo, args, reply)
}

func (s *Service) UpdateSettings(r *http.Request, args *cluster.UpdateSettingsRequest, reply *cluster.UpdateSettingsResponse) error {
	return serve(s, r, cluster.MethodUpdateSettings, s.node.UpdateSettings, args, reply)
}

func (s *Service) Reroute(r *http.Request, args *cluster.RerouteRequest, reply *cluster.RerouteResponse) error {
	return serve(s, r, cluster.MethodReroute, s.node.Reroute, args, reply)
}

// Router serves JSON-RPC on transport.HTTPPath plus /healthz and /metrics.
func (n *Node) Router() (*chi.Mux, error) {
	rpcServer := rpc.NewServer()
	rpcServer.RegisterCodec(json2.NewCodec(), "application/json")
	if err := rpcServer.RegisterService(&Service{node: n}, "Cluster"); err != nil {
		return nil, fmt.Errorf("register cluster service: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Handle(transport.HTTPPath, rpcServer)
	r.Get("/healthz", n.handleHealthz)
	r.Handle("/metrics", promhttp.HandlerFor(n.metrics.registry, promhttp.HandlerOpts{}))
	return r, nil
}

func (n *Node) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp, err := n.Health(r.Context(), &cluster.HealthRequest{})
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	if resp.Status == cluster.StatusRed {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(map[string]string{
		"cluster": resp.ClusterName,
		"status":  string(resp.Status),
	})
}

// GRPCServer returns a gRPC server that routes every method through Call.
func (n *Node) GRPCServer() *grpc.Server {
	return grpc.NewServer(grpc.UnknownServiceHandler(n.handleGRPC))
}

func (n *Node) handleGRPC(_ any, stream grpc.ServerStream) error {
	full, ok := grpc.MethodFromServerStream(stream)
	if !ok {
		return status.Error(codes.Internal, "no method in stream")
	}
	var payload json.RawMessage
	if err := stream.RecvMsg(&payload); err != nil {
		return err
	}

	resp, err := n.Call(stream.Context(), transport.MethodFromGRPC(full), payload, transport.TypeGRPC)
	switch {
	case errors.Is(err, ErrUnknownMethod):
		return status.Error(codes.Unimplemented, err.Error())
	case err != nil:
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	return stream.SendMsg(resp)
}

// FrameHandler returns the handler for a transport.FrameServer.
func (n *Node) FrameHandler() transport.FrameHandler {
	return func(ctx context.Context, name string, payload []byte) ([]byte, error) {
		resp, err := n.Call(ctx, name, payload, transport.TypeFramed)
		if err != nil {
			return nil, err
		}
		return json.Marshal(resp)
	}
}

// Listeners are the sockets Serve answers on. Nil listeners are skipped.
type Listeners struct {
	HTTP   net.Listener
	GRPC   net.Listener
	Framed net.Listener
}

// Serve answers on every listener until ctx is done or one server fails.
func (n *Node) Serve(ctx context.Context, ls Listeners) error {
	g, ctx := errgroup.WithContext(ctx)

	if ls.HTTP != nil {
		router, err := n.Router()
		if err != nil {
			return err
		}
		srv := &http.Server{Handler: router, ReadHeaderTimeout: readHeaderTimeout}
		g.Go(func() error {
			n.log.Info("serving json-rpc", "addr", ls.HTTP.Addr().String())
			if err := srv.Serve(ls.HTTP); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	if ls.GRPC != nil {
		srv := n.GRPCServer()
		g.Go(func() error {
			n.log.Info("serving grpc", "addr", ls.GRPC.Addr().String())
			if err := srv.Serve(ls.GRPC); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("grpc: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			srv.GracefulStop()
			return nil
		})
	}

	if ls.Framed != nil {
		srv := transport.NewFrameServer(ls.Framed, n.FrameHandler(), n.log)
		g.Go(func() error {
			n.log.Info("serving framed", "addr", ls.Framed.Addr().String())
			return srv.Serve(ctx)
		})
		g.Go(func() error {
			<-ctx.Done()
			return srv.Close()
		})
	}

	return g.Wait()
}
