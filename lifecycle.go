// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package admin

import (
	"fmt"
	"time"
)

// State is the client lifecycle state. It only moves forward.
type State int32

const (
	StateOpen State = iota
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// State returns the current lifecycle state.
func (c *Client) State() State { return State(c.state.Load()) }

type shutdownStep struct {
	name string
	run  func() error
}

// Close shuts the client down. It waits up to client.shutdown_timeout for
// queued and running work, then forces the pool down, closes the transport
// and clears the shared caches. A failing step is logged and the next one
// still runs. Close always returns nil; only the first call does any work.
func (c *Client) Close() error {
	if !c.state.CompareAndSwap(int32(StateOpen), int32(StateClosing)) {
		return nil
	}
	log := c.log.With("component", "lifecycle")
	start := time.Now()

	for _, step := range c.shutdownSteps() {
		if err := runShutdownStep(step); err != nil {
			log.Warn("shutdown step failed", "step", err.Step, "error", err.Err)
		}
	}

	c.state.Store(int32(StateClosed))
	log.Info("admin client closed", "duration", time.Since(start))
	return nil
}

func (c *Client) shutdownSteps() []shutdownStep {
	terminated := false
	return []shutdownStep{
		{"shutdown pool", func() error {
			c.pool.Shutdown()
			return nil
		}},
		{"await termination", func() error {
			terminated = c.pool.AwaitTermination(c.shutdownTimeout)
			return nil
		}},
		{"force termination", func() error {
			if terminated {
				return nil
			}
			dropped := c.pool.ShutdownNow()
			c.log.Warn("worker pool did not drain in time",
				"timeout", c.shutdownTimeout,
				"dropped", dropped,
				"active", c.pool.Stats().Active,
			)
			return nil
		}},
		{"close transport", c.transport.Close},
		{"unregister metrics", c.metrics.unregister},
		{"clear streams", func() error {
			c.shared.Streams.Clear()
			return nil
		}},
		{"clear scratch", func() error {
			c.shared.Scratch.Clear()
			return nil
		}},
	}
}

func runShutdownStep(step shutdownStep) (serr *ShutdownError) {
	defer func() {
		if r := recover(); r != nil {
			serr = &ShutdownError{Step: step.name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if err := step.run(); err != nil {
		return &ShutdownError{Step: step.name, Err: err}
	}
	return nil
}
