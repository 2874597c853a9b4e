// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package transport

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/luxfi/admin/cache"
)

var (
	ErrFrameTooLarge = errors.New("framed: frame too large")
	ErrBadFrame      = errors.New("framed: malformed frame")
)

const maxFrameSize = 64 << 20

type frameType uint8

const (
	frameRequest  frameType = 0x01
	frameResponse frameType = 0x02
	frameError    frameType = 0x03
)

// Wire layout, all integers big endian:
//
//	request:  [4 len][1 type][4 id][2 methodLen][method][payload]
//	response: [4 len][1 type][4 id][payload]
//
// len counts every byte after the length prefix.

func requestFrameSize(method string, payload []byte) int {
	return 4 + 1 + 4 + 2 + len(method) + len(payload)
}

func putRequestFrame(buf []byte, id uint32, method string, payload []byte) {
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(buf)-4))
	buf[4] = byte(frameRequest)
	binary.BigEndian.PutUint32(buf[5:9], id)
	binary.BigEndian.PutUint16(buf[9:11], uint16(len(method)))
	n := copy(buf[11:], method)
	copy(buf[11+n:], payload)
}

func appendResponseFrame(buf *bytes.Buffer, typ frameType, id uint32, payload []byte) {
	var hdr [9]byte
	binary.BigEndian.PutUint32(hdr[0:4], uint32(1+4+len(payload)))
	hdr[4] = byte(typ)
	binary.BigEndian.PutUint32(hdr[5:9], id)
	buf.Write(hdr[:])
	buf.Write(payload)
}

// readFrame reads one frame and returns it without the length prefix.
func readFrame(r io.Reader, header []byte) ([]byte, error) {
	if _, err := io.ReadFull(r, header[:4]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(header[:4])
	if n == 0 || n > maxFrameSize {
		return nil, ErrFrameTooLarge
	}
	msg := make([]byte, n)
	if _, err := io.ReadFull(r, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func init() {
	Register(TypeFramed, newFramed)
}

type framedTransport struct {
	mu      sync.Mutex
	conns   map[string]*frameConn
	closed  bool
	codec   Codec
	timeout time.Duration
	log     *slog.Logger
}

func newFramed(o Options) (Transport, error) {
	return &framedTransport{
		conns:   make(map[string]*frameConn),
		codec:   o.Codec,
		timeout: o.Timeout,
		log:     o.Logger.With("transport", TypeFramed),
	}, nil
}

func (t *framedTransport) conn(ctx context.Context, addr string) (*frameConn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrClosed
	}
	if c, ok := t.conns[addr]; ok {
		if !c.closed.Load() {
			return c, nil
		}
		_ = c.close()
		delete(t.conns, addr)
	}

	dialCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	c, err := dialFrame(dialCtx, addr)
	if err != nil {
		return nil, err
	}
	t.conns[addr] = c
	t.log.Debug("framed connection opened", "addr", addr)
	return c, nil
}

func (t *framedTransport) Call(ctx context.Context, addr, method string, args, reply any) error {
	var payload []byte
	if args != nil {
		var err error
		if payload, err = t.codec.Encode(args); err != nil {
			return fmt.Errorf("encode args: %w", err)
		}
	}

	c, err := t.conn(ctx, addr)
	if err != nil {
		return err
	}
	resp, err := c.call(ctx, method, payload)
	if err != nil {
		return err
	}

	if reply != nil && len(resp) > 0 {
		if err := t.codec.Decode(resp, reply); err != nil {
			return fmt.Errorf("decode reply: %w", err)
		}
	}
	return nil
}

func (t *framedTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	var errs []error
	for _, c := range t.conns {
		errs = append(errs, c.close())
	}
	clear(t.conns)
	return errors.Join(errs...)
}

type frameReply struct {
	data []byte
	err  error
}

// frameConn multiplexes concurrent calls over one TCP connection.
type frameConn struct {
	conn     net.Conn
	writeMu  sync.Mutex
	pending  sync.Map // id -> chan frameReply
	nextID   atomic.Uint32
	closed   atomic.Bool
	readDone chan struct{}
}

func dialFrame(ctx context.Context, addr string) (*frameConn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("framed dial: %w", err)
	}

	c := &frameConn{
		conn:     conn,
		readDone: make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *frameConn) call(ctx context.Context, method string, payload []byte) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	if len(method) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: method name is %d bytes", ErrBadFrame, len(method))
	}

	id := c.nextID.Add(1)
	replyCh := make(chan frameReply, 1)
	c.pending.Store(id, replyCh)
	defer c.pending.Delete(id)

	frame := cache.ScratchBuffer(ctx, requestFrameSize(method, payload))
	putRequestFrame(frame, id, method, payload)

	c.writeMu.Lock()
	_, err := c.conn.Write(frame)
	c.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("framed write: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-replyCh:
		if r.err != nil {
			var re *RemoteError
			if errors.As(r.err, &re) {
				re.Method = method
			}
			return nil, r.err
		}
		return r.data, nil
	case <-c.readDone:
		return nil, ErrClosed
	}
}

func (c *frameConn) readLoop() {
	defer close(c.readDone)
	defer c.close()

	header := make([]byte, 4)
	for {
		msg, err := readFrame(c.conn, header)
		if err != nil {
			return
		}
		if len(msg) < 5 {
			continue
		}

		id := binary.BigEndian.Uint32(msg[1:5])
		payload := msg[5:]
		v, ok := c.pending.Load(id)
		if !ok {
			continue
		}
		replyCh := v.(chan frameReply)
		switch frameType(msg[0]) {
		case frameResponse:
			replyCh <- frameReply{data: payload}
		case frameError:
			replyCh <- frameReply{err: &RemoteError{Message: string(payload)}}
		}
	}
}

// close marks the connection dead and releases the socket. The read loop
// calls it on exit, so a connection the peer broke is released too.
func (c *frameConn) close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.conn.Close()
}

// FrameHandler answers one framed request.
type FrameHandler func(ctx context.Context, method string, payload []byte) ([]byte, error)

// FrameServer serves framed requests from a listener.
type FrameServer struct {
	listener net.Listener
	handler  FrameHandler
	streams  *cache.Streams
	conns    sync.Map
	closed   atomic.Bool
	log      *slog.Logger
}

// NewFrameServer creates a server answering requests on l with h.
func NewFrameServer(l net.Listener, h FrameHandler, logger *slog.Logger) *FrameServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &FrameServer{
		listener: l,
		handler:  h,
		streams:  cache.Default.Streams,
		log:      logger.With("component", "frame-server"),
	}
}

// Serve accepts connections until Close is called.
func (s *FrameServer) Serve(ctx context.Context) error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closed.Load() {
				return nil
			}
			return fmt.Errorf("framed accept: %w", err)
		}
		go s.handleConn(ctx, conn)
	}
}

type serverConn struct {
	net.Conn
	writeMu sync.Mutex
}

func (s *FrameServer) handleConn(ctx context.Context, nc net.Conn) {
	conn := &serverConn{Conn: nc}
	defer conn.Close()
	s.conns.Store(conn, struct{}{})
	defer s.conns.Delete(conn)

	header := make([]byte, 4)
	for {
		msg, err := readFrame(conn, header)
		if err != nil {
			if !errors.Is(err, io.EOF) && !s.closed.Load() {
				s.log.Debug("connection dropped", "remote", nc.RemoteAddr().String(), "error", err)
			}
			return
		}
		if len(msg) < 7 || frameType(msg[0]) != frameRequest {
			continue
		}

		id := binary.BigEndian.Uint32(msg[1:5])
		methodLen := int(binary.BigEndian.Uint16(msg[5:7]))
		if len(msg) < 7+methodLen {
			continue
		}
		method := string(msg[7 : 7+methodLen])
		payload := msg[7+methodLen:]

		go func() {
			data, err := s.handler(ctx, method, payload)
			s.sendResponse(conn, id, data, err)
		}()
	}
}

func (s *FrameServer) sendResponse(conn *serverConn, id uint32, data []byte, err error) {
	typ := frameResponse
	if err != nil {
		typ = frameError
		data = []byte(err.Error())
	}

	buf := s.streams.Get()
	defer s.streams.Put(buf)
	appendResponseFrame(buf, typ, id, data)

	conn.writeMu.Lock()
	defer conn.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
	if _, err := conn.Write(buf.Bytes()); err != nil {
		s.log.Debug("write response failed", "error", err)
	}
}

// Close stops accepting and drops open connections.
func (s *FrameServer) Close() error {
	s.closed.Store(true)
	s.conns.Range(func(key, _ any) bool {
		key.(*serverConn).Close()
		return true
	})
	return s.listener.Close()
}

// Addr returns the listener address
func (s *FrameServer) Addr() net.Addr {
	return s.listener.Addr()
}
