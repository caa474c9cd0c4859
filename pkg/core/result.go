package core

// Result is the per-transaction outcome of a submitted batch. Callers receive
// one Result per transaction, in submission order.
type Result struct {
	// Object is the stored document for creates when the adapter returns
	// it; nil otherwise.
	Object *Doc

	// Matched reports the precondition outcome of a TxApplyIf. It is true
	// for every unconditional transaction.
	Matched bool
}

// Single collapses a one-element result slice to its element, the convenience
// for callers submitting a single transaction.
func Single(results []Result) (Result, bool) {
	if len(results) == 1 {
		return results[0], true
	}
	return Result{}, false
}
