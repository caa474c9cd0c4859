// Package null provides an adapter that accepts and discards everything.
// The adapter manager hands it out for domains that were never marked in
// use, and benchmarks use it to measure pipeline overhead without storage.
package null

import (
	"context"

	"github.com/hcengineering/platform-sub028/pkg/core"
	"github.com/hcengineering/platform-sub028/pkg/storage"
)

// Adapter discards writes and answers every read with an empty result.
type Adapter struct{}

var _ storage.Adapter = Adapter{}

// New returns the discarding adapter.
func New() Adapter { return Adapter{} }

func (Adapter) Tx(_ context.Context, txes ...core.Tx) ([]core.Result, error) {
	results := make([]core.Result, len(txes))
	for i := range results {
		results[i] = core.Result{Matched: true}
	}
	return results, nil
}

func (Adapter) Load(context.Context, core.Domain, []core.Ref) ([]*core.Doc, error) {
	return nil, nil
}

func (Adapter) FindAll(context.Context, core.Ref, core.Query, *core.FindOptions) ([]*core.Doc, error) {
	return nil, nil
}

func (Adapter) Close() error { return nil }
