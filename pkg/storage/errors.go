package storage

import (
	"errors"
	"fmt"

	"github.com/hcengineering/platform-sub028/pkg/core"
)

var (
	// ErrNotFound if a requested document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrUnsupportedTx if an adapter receives a transaction variant it
	// cannot apply. The router only dispatches CUD and mixin transactions,
	// so hitting this means a caller bypassed the chain.
	ErrUnsupportedTx = errors.New("unsupported transaction variant")

	// ErrAdapterClosed if an operation is attempted after Close.
	ErrAdapterClosed = errors.New("adapter is closed")
)

// UnsupportedTxError wraps ErrUnsupportedTx with the offending transaction's
// identifier.
func UnsupportedTxError(tx core.Tx) error {
	return fmt.Errorf("tx %q: %w", tx.Header().ID, ErrUnsupportedTx)
}
