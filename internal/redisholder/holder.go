// Package redisholder owns the process-wide redis client and swaps it out
// transparently when the health loop reconnects.
package redisholder

import (
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

// clientBox keeps the atomic.Value's concrete type constant; storing the
// interface directly would panic when a reconnect swaps a single-node client
// for a cluster client.
type clientBox struct {
	c redis.UniversalClient
}

type Holder struct {
	v atomic.Value // stores clientBox
}

func NewHolder(initial redis.UniversalClient) *Holder {
	h := &Holder{}
	h.v.Store(clientBox{c: initial})
	return h
}

func (h *Holder) Get() redis.UniversalClient {
	box, _ := h.v.Load().(clientBox)
	return box.c
}

func (h *Holder) swap(newc redis.UniversalClient) (old redis.UniversalClient) {
	old = h.Get()
	h.v.Store(clientBox{c: newc})
	return old
}

func (h *Holder) Close() error {
	if c := h.Get(); c != nil {
		return c.Close()
	}
	return nil
}
