package index

import (
	"context"
	"sync/atomic"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/schema"
)

// coordinate is the single writer for the index key. It applies append
// requests strictly one at a time; because no other code path writes the
// key, the read-modify-write inside applyAppend can never interleave
// with another writer from this process.
func (m *Manager) coordinate() {
	defer m.wg.Done()

	for {
		select {
		case <-m.done:
			m.drain()
			return
		case req := <-m.requests:
			req.reply <- m.applyAppend(req.ctx, req.id)
		}
	}
}

// drain fails any requests that were queued when Close ran. Senders
// unblock with a definite answer instead of hanging.
func (m *Manager) drain() {
	for {
		select {
		case req := <-m.requests:
			req.reply <- ErrClosed
		default:
			return
		}
	}
}

// applyAppend performs one read-modify-write cycle on the index key.
//
// A base list that fails to decode is treated as empty and rebuilt; the
// warning matters more than the loss because a corrupt index was already
// unreadable to every consumer.
func (m *Manager) applyAppend(ctx context.Context, id string) error {
	var base []string

	err := m.retry.Do(ctx, m.logger, "index read", func() error {
		data, readErr := m.client.GetData(ctx, schema.IndexKey(m.ns))
		if readErr != nil {
			return readErr
		}
		if len(data) == 0 {
			base = []string{}
			return nil
		}
		ids, decodeErr := schema.DecodeIndex(data)
		if decodeErr != nil {
			m.logger.Printf("index is unreadable, rebuilding from empty: %v", decodeErr)
			base = []string{}
			return nil
		}
		base = ids
		return nil
	})
	if err != nil {
		return err
	}

	for _, existing := range base {
		if existing == id {
			atomic.AddInt64(&m.deduped, 1)
			return nil
		}
	}

	updated := append(base, id)
	payload, err := schema.EncodeIndex(updated)
	if err != nil {
		return err
	}

	err = m.retry.Do(ctx, m.logger, "index write", func() error {
		return m.client.SetData(ctx, schema.IndexKey(m.ns), payload)
	})
	if err != nil {
		return err
	}

	atomic.AddInt64(&m.applied, 1)
	return nil
}
