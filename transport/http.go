// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/rpc/v2/json2"

	"github.com/luxfi/admin/cache"
)

// HTTPPath is the endpoint JSON-RPC requests are posted to.
const HTTPPath = "/rpc"

const retryBaseWait = 100 * time.Millisecond

func init() {
	Register(TypeHTTP, newHTTP)
}

type httpTransport struct {
	client     *http.Client
	streams    *cache.Streams
	maxRetries int
	log        *slog.Logger
}

func newHTTP(o Options) (Transport, error) {
	return &httpTransport{
		client: &http.Client{
			Timeout:   o.Timeout,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		},
		streams:    o.Streams,
		maxRetries: o.MaxRetries,
		log:        o.Logger.With("transport", TypeHTTP),
	}, nil
}

// endpoint turns a node address into the JSON-RPC URL. Bare host:port
// addresses are assumed to be plain HTTP.
func endpoint(addr string) string {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return strings.TrimSuffix(addr, "/") + HTTPPath
}

// CleanlyCloseBody drains and closes an HTTP response body so the
// connection can be reused.
func CleanlyCloseBody(body io.ReadCloser) error {
	if body == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, body)
	return body.Close()
}

// isRetryableError reports whether the request failed while dialing. Such a
// request never reached the node, so sending it again cannot apply it twice.
// Failures after the connection was up (resets, EOF) are not retried.
func isRetryableError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func (t *httpTransport) Call(ctx context.Context, addr, method string, args, reply any) error {
	body, err := json2.EncodeClientRequest(method, args)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", method, err)
	}
	url := endpoint(addr)

	var lastErr error
	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		if attempt > 0 {
			wait := retryBaseWait * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		err := t.do(ctx, url, method, body, reply)
		if err == nil {
			if attempt > 0 {
				t.log.Debug("request succeeded after retry", "method", method, "attempt", attempt+1)
			}
			return nil
		}
		if !isRetryableError(err) {
			return err
		}
		lastErr = err
		t.log.Debug("request attempt failed", "method", method, "addr", addr, "attempt", attempt+1, "error", err)
	}
	return fmt.Errorf("%s failed after %d attempts: %w", method, t.maxRetries+1, lastErr)
}

func (t *httpTransport) do(ctx context.Context, url, method string, body []byte, reply any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("issue %s request: %w", method, err)
	}
	defer CleanlyCloseBody(resp.Body)

	// json2 servers answer application errors with 400 and a JSON body.
	isJSON := strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json")
	ok := resp.StatusCode >= 200 && resp.StatusCode <= 299
	if !ok && !(resp.StatusCode == http.StatusBadRequest && isJSON) {
		return fmt.Errorf("%s: received status code %d", method, resp.StatusCode)
	}

	buf := t.streams.Get()
	defer t.streams.Put(buf)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}

	if reply == nil {
		reply = new(any)
	}
	if err := json2.DecodeClientResponse(bytes.NewReader(buf.Bytes()), reply); err != nil {
		var rpcErr *json2.Error
		if errors.As(err, &rpcErr) {
			return &RemoteError{Method: method, Code: int(rpcErr.Code), Message: rpcErr.Message}
		}
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	return nil
}

func (t *httpTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}
