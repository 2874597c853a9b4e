// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package transport

import (
	"errors"
	"slices"
	"sync"
	"sync/atomic"
)

var ErrNoAddresses = errors.New("transport: no node addresses configured")

// AddressBook is the list of node addresses a client may send requests to.
// It only records addresses; connections are owned by the Transport.
type AddressBook struct {
	mu    sync.RWMutex
	addrs []string
	next  atomic.Uint64
}

// NewAddressBook creates a book holding addrs, skipping empties and duplicates.
func NewAddressBook(addrs ...string) *AddressBook {
	b := &AddressBook{}
	b.Add(addrs...)
	return b
}

// Add appends addresses that are not already present.
func (b *AddressBook) Add(addrs ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, a := range addrs {
		if a == "" || slices.Contains(b.addrs, a) {
			continue
		}
		b.addrs = append(b.addrs, a)
	}
}

// Remove deletes addr and reports whether it was present.
func (b *AddressBook) Remove(addr string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := slices.Index(b.addrs, addr)
	if i < 0 {
		return false
	}
	b.addrs = slices.Delete(b.addrs, i, i+1)
	return true
}

// List returns a copy of the addresses in insertion order.
func (b *AddressBook) List() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.addrs)
}

// Len returns the number of addresses.
func (b *AddressBook) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.addrs)
}

// Next returns addresses in round-robin order.
func (b *AddressBook) Next() (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.addrs) == 0 {
		return "", ErrNoAddresses
	}
	i := b.next.Add(1) - 1
	return b.addrs[i%uint64(len(b.addrs))], nil
}
