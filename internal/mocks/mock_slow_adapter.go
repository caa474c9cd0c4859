package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/hcengineering/platform-sub028/pkg/core"
	"github.com/hcengineering/platform-sub028/pkg/storage"
)

// slowAdapter is a proxy to the actual adapter except writes and reads are
// delayed by delay. This allows simulating a storage back-end that times out.
type slowAdapter struct {
	delay time.Duration
	storage.Adapter
}

// NewSlowAdapter returns a wrapper of an adapter that adds artificial delays
// into reads and writes.
func NewSlowAdapter(inner storage.Adapter, delay time.Duration) storage.Adapter {
	return &slowAdapter{delay: delay, Adapter: inner}
}

func (s *slowAdapter) Tx(ctx context.Context, txes ...core.Tx) ([]core.Result, error) {
	time.Sleep(s.delay)
	return s.Adapter.Tx(ctx, txes...)
}

func (s *slowAdapter) Load(ctx context.Context, domain core.Domain, ids []core.Ref) ([]*core.Doc, error) {
	time.Sleep(s.delay)
	return s.Adapter.Load(ctx, domain, ids)
}

func (s *slowAdapter) FindAll(ctx context.Context, class core.Ref, query core.Query, options *core.FindOptions) ([]*core.Doc, error) {
	time.Sleep(s.delay)
	return s.Adapter.FindAll(ctx, class, query, options)
}

// RecordingAdapter is a proxy that counts calls into the wrapped adapter, for
// asserting how often a back-end is actually touched.
type RecordingAdapter struct {
	storage.Adapter

	mu      sync.Mutex
	txCalls int
	txSeen  int
}

// NewRecordingAdapter wraps inner with call counting.
func NewRecordingAdapter(inner storage.Adapter) *RecordingAdapter {
	return &RecordingAdapter{Adapter: inner}
}

func (r *RecordingAdapter) Tx(ctx context.Context, txes ...core.Tx) ([]core.Result, error) {
	r.mu.Lock()
	r.txCalls++
	r.txSeen += len(txes)
	r.mu.Unlock()
	return r.Adapter.Tx(ctx, txes...)
}

// TxCalls returns the number of Tx invocations.
func (r *RecordingAdapter) TxCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.txCalls
}

// TxSeen returns the total number of transactions received across calls.
func (r *RecordingAdapter) TxSeen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.txSeen
}
