package core

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Tx is one immutable state change. The variant set is closed: every stage
// switches exhaustively over *TxCreateDoc, *TxUpdateDoc, *TxRemoveDoc,
// *TxMixin and *TxApplyIf. Transactions are never mutated after creation;
// corrections are expressed as new transactions.
type Tx interface {
	// Header returns the common transaction header.
	Header() *TxHeader

	sealed()
}

// TxHeader carries the fields shared by every transaction variant.
type TxHeader struct {
	ID         Ref
	ModifiedBy Ref
	ModifiedOn int64

	// ObjectSpace is the space of the target document. SpaceDerived marks
	// server-generated transactions.
	ObjectSpace Ref
}

func (h *TxHeader) Header() *TxHeader { return h }

// IsDerived reports whether the transaction was produced server-side
// (triggers, versioning) rather than submitted by a client.
func (h *TxHeader) IsDerived() bool { return h.ObjectSpace == SpaceDerived }

// TxCreateDoc creates a new document with a full initial attribute set.
type TxCreateDoc struct {
	TxHeader
	ObjectID    Ref
	ObjectClass Ref
	Attributes  map[string]any
}

// TxUpdateDoc applies a partial set of operations to an existing document.
type TxUpdateDoc struct {
	TxHeader
	ObjectID    Ref
	ObjectClass Ref
	Operations  DocumentUpdate
}

// TxRemoveDoc removes a document. The classifier is carried because the
// document itself may already be gone by the time a downstream stage needs it.
type TxRemoveDoc struct {
	TxHeader
	ObjectID    Ref
	ObjectClass Ref
}

// TxMixin grafts a trait's attributes onto an existing document without
// changing its primary classifier.
type TxMixin struct {
	TxHeader
	ObjectID    Ref
	ObjectClass Ref
	Mixin       Ref
	Attributes  map[string]any
}

// QueryMatch is one precondition of a TxApplyIf.
type QueryMatch struct {
	Class Ref
	Query Query
}

// TxApplyIf is a conditional batch: Txes are applied only when every Match
// query returns at least one document and every NotMatch query returns none.
// ApplyIf transactions sharing a Scope are verified serially.
type TxApplyIf struct {
	TxHeader
	Scope    string
	Match    []QueryMatch
	NotMatch []QueryMatch
	Txes     []Tx
}

func (*TxCreateDoc) sealed() {}
func (*TxUpdateDoc) sealed() {}
func (*TxRemoveDoc) sealed() {}
func (*TxMixin) sealed()     {}
func (*TxApplyIf) sealed()   {}

// DocumentUpdate is the operation set of a TxUpdateDoc: field replacement,
// numeric increment and array push/pull.
type DocumentUpdate struct {
	Set  map[string]any
	Inc  map[string]float64
	Push map[string]any
	Pull map[string]any
}

// HasArrayOps reports whether the update uses push or pull operators.
func (u *DocumentUpdate) HasArrayOps() bool {
	return len(u.Push) > 0 || len(u.Pull) > 0
}

// Fields returns the set of top-level fields the update touches.
func (u *DocumentUpdate) Fields() []string {
	fields := make([]string, 0, len(u.Set)+len(u.Inc)+len(u.Push)+len(u.Pull))
	for k := range u.Set {
		fields = append(fields, k)
	}
	for k := range u.Inc {
		fields = append(fields, k)
	}
	for k := range u.Push {
		fields = append(fields, k)
	}
	for k := range u.Pull {
		fields = append(fields, k)
	}
	return fields
}

// TargetOf returns the document identifier and classifier a CUD or mixin
// transaction addresses, and false for conditional batches.
func TargetOf(tx Tx) (id, class Ref, ok bool) {
	switch t := tx.(type) {
	case *TxCreateDoc:
		return t.ObjectID, t.ObjectClass, true
	case *TxUpdateDoc:
		return t.ObjectID, t.ObjectClass, true
	case *TxRemoveDoc:
		return t.ObjectID, t.ObjectClass, true
	case *TxMixin:
		return t.ObjectID, t.ObjectClass, true
	case *TxApplyIf:
		return "", "", false
	}
	return "", "", false
}

// TxFactory mints transactions on behalf of one actor. Generated identifiers
// are ULIDs, so they sort by creation time.
type TxFactory struct {
	actor   Ref
	derived bool

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewTxFactory returns a factory stamping transactions with the given actor.
// When derived is set, transactions are placed in SpaceDerived.
func NewTxFactory(actor Ref, derived bool) *TxFactory {
	return &TxFactory{
		actor:   actor,
		derived: derived,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

// GenerateID returns a fresh ULID-based identifier.
func (f *TxFactory) GenerateID() Ref {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Ref(ulid.MustNew(ulid.Now(), f.entropy).String())
}

func (f *TxFactory) header(objectSpace Ref) TxHeader {
	space := objectSpace
	if f.derived {
		space = SpaceDerived
	}
	return TxHeader{
		ID:          f.GenerateID(),
		ModifiedBy:  f.actor,
		ModifiedOn:  time.Now().UnixMilli(),
		ObjectSpace: space,
	}
}

// CreateDoc mints a TxCreateDoc. An empty objectID is replaced by a
// generated one.
func (f *TxFactory) CreateDoc(class, space, objectID Ref, attributes map[string]any) *TxCreateDoc {
	if objectID == "" {
		objectID = f.GenerateID()
	}
	if attributes == nil {
		attributes = map[string]any{}
	}
	return &TxCreateDoc{
		TxHeader:    f.header(space),
		ObjectID:    objectID,
		ObjectClass: class,
		Attributes:  attributes,
	}
}

// UpdateDoc mints a TxUpdateDoc.
func (f *TxFactory) UpdateDoc(class, space, objectID Ref, ops DocumentUpdate) *TxUpdateDoc {
	return &TxUpdateDoc{
		TxHeader:    f.header(space),
		ObjectID:    objectID,
		ObjectClass: class,
		Operations:  ops,
	}
}

// RemoveDoc mints a TxRemoveDoc.
func (f *TxFactory) RemoveDoc(class, space, objectID Ref) *TxRemoveDoc {
	return &TxRemoveDoc{
		TxHeader:    f.header(space),
		ObjectID:    objectID,
		ObjectClass: class,
	}
}

// MixinDoc mints a TxMixin.
func (f *TxFactory) MixinDoc(class, space, objectID, mixin Ref, attributes map[string]any) *TxMixin {
	if attributes == nil {
		attributes = map[string]any{}
	}
	return &TxMixin{
		TxHeader:    f.header(space),
		ObjectID:    objectID,
		ObjectClass: class,
		Mixin:       mixin,
		Attributes:  attributes,
	}
}

// ApplyIf mints a conditional batch.
func (f *TxFactory) ApplyIf(scope string, match, notMatch []QueryMatch, txes []Tx) *TxApplyIf {
	return &TxApplyIf{
		TxHeader: f.header(""),
		Scope:    scope,
		Match:    match,
		NotMatch: notMatch,
		Txes:     txes,
	}
}

// BuildDoc materializes the document a TxCreateDoc describes.
func BuildDoc(tx *TxCreateDoc) *Doc {
	attrs := make(map[string]any, len(tx.Attributes))
	for k, v := range tx.Attributes {
		attrs[k] = v
	}
	return &Doc{
		ID:         tx.ObjectID,
		Class:      tx.ObjectClass,
		Space:      tx.ObjectSpace,
		ModifiedBy: tx.ModifiedBy,
		ModifiedOn: tx.ModifiedOn,
		Attributes: attrs,
	}
}

// ApplyUpdate applies a DocumentUpdate to a document in place and stamps the
// modification header.
func ApplyUpdate(doc *Doc, tx *TxUpdateDoc) {
	if doc.Attributes == nil {
		doc.Attributes = map[string]any{}
	}
	for k, v := range tx.Operations.Set {
		doc.Attributes[k] = v
	}
	for k, delta := range tx.Operations.Inc {
		cur, _ := toFloat(doc.Attributes[k])
		doc.Attributes[k] = cur + delta
	}
	for k, v := range tx.Operations.Push {
		arr, _ := doc.Attributes[k].([]any)
		doc.Attributes[k] = append(arr, v)
	}
	for k, v := range tx.Operations.Pull {
		arr, _ := doc.Attributes[k].([]any)
		// The backing array may still be referenced by previously
		// cloned snapshots, so filter into a fresh slice.
		kept := make([]any, 0, len(arr))
		for _, el := range arr {
			if el != v {
				kept = append(kept, el)
			}
		}
		doc.Attributes[k] = kept
	}
	doc.ModifiedBy = tx.ModifiedBy
	doc.ModifiedOn = tx.ModifiedOn
}

// ApplyMixin grafts a mixin transaction onto a document in place.
func ApplyMixin(doc *Doc, tx *TxMixin) {
	if doc.Attributes == nil {
		doc.Attributes = map[string]any{}
	}
	cur, _ := doc.Attributes[string(tx.Mixin)].(map[string]any)
	if cur == nil {
		cur = map[string]any{}
		doc.Attributes[string(tx.Mixin)] = cur
	}
	for k, v := range tx.Attributes {
		cur[k] = v
	}
	doc.ModifiedBy = tx.ModifiedBy
	doc.ModifiedOn = tx.ModifiedOn
}
