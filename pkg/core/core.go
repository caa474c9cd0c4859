// Package core defines the document, classifier and transaction shapes shared
// by every stage of the pipeline.
package core

// Ref is an identifier of a document or classifier, unique within a workspace.
type Ref string

// Domain names a logical storage partition. Every concrete classifier
// resolves to exactly one domain through the hierarchy.
type Domain string

const (
	// DomainModel is the reserved domain of schema/bootstrap documents,
	// served from the in-memory model store rather than an adapter.
	DomainModel Domain = "model"

	// DomainTx is the reserved domain holding the transaction log.
	DomainTx Domain = "tx"

	// DomainTransient marks documents that are never persisted.
	DomainTransient Domain = "transient"
)

const (
	// SpaceModel is the space of model documents.
	SpaceModel Ref = "core:space:Model"

	// SpaceDerived marks transactions produced by triggers and other
	// server-side machinery rather than submitted by a client.
	SpaceDerived Ref = "core:space:DerivedTx"
)

// Doc is the universal unit of storage.
type Doc struct {
	ID         Ref
	Class      Ref
	Space      Ref
	ModifiedBy Ref
	ModifiedOn int64

	// Attributes holds the open, class-defined attribute set. Attributes
	// grafted by a mixin are stored under the mixin identifier key.
	Attributes map[string]any
}

// Attr returns a top-level attribute value.
func (d *Doc) Attr(key string) any {
	if d.Attributes == nil {
		return nil
	}
	return d.Attributes[key]
}

// BoolAttr returns a boolean attribute, false when absent or of another type.
func (d *Doc) BoolAttr(key string) bool {
	v, _ := d.Attr(key).(bool)
	return v
}

// StringAttr returns a string attribute, "" when absent or of another type.
func (d *Doc) StringAttr(key string) string {
	v, _ := d.Attr(key).(string)
	return v
}

// NumberAttr returns a numeric attribute coerced to float64.
func (d *Doc) NumberAttr(key string) (float64, bool) {
	return toFloat(d.Attr(key))
}

// Mixin returns the attribute set grafted onto the document by the given
// trait, or nil if the trait was never applied.
func (d *Doc) Mixin(trait Ref) map[string]any {
	m, _ := d.Attr(string(trait)).(map[string]any)
	return m
}

// Clone returns a deep enough copy of the document for hand-off across
// middleware boundaries: the attribute map is copied one level deep.
func (d *Doc) Clone() *Doc {
	cp := *d
	cp.Attributes = make(map[string]any, len(d.Attributes))
	for k, v := range d.Attributes {
		cp.Attributes[k] = v
	}
	return &cp
}

// Account is the authenticated identity a session acts under.
type Account struct {
	ID     Ref
	UUID   string
	Person Ref

	// SocialIDs are identifiers of identity documents linked to this
	// account (email, oauth and similar records).
	SocialIDs []Ref

	// Restricted marks a guest / read-mostly identity whose writes are
	// subject to per-classifier access policies.
	Restricted bool
}

// HasSocialID reports whether id is one of the account's linked identities.
func (a *Account) HasSocialID(id Ref) bool {
	for _, s := range a.SocialIDs {
		if s == id {
			return true
		}
	}
	return false
}

// AsNumber coerces the numeric types a JSON round trip can produce to
// float64.
func AsNumber(v any) (float64, bool) {
	return toFloat(v)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
