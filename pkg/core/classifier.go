package core

// ClassifierKind distinguishes concrete document classes from composable
// traits (mixins).
type ClassifierKind int

const (
	KindClass ClassifierKind = iota
	KindMixin
)

// Classifier describes a document class or trait. Classes form a
// single-inheritance chain through Extends; traits compose orthogonally and
// never carry a domain of their own.
type Classifier struct {
	ID      Ref
	Extends Ref
	Kind    ClassifierKind

	// Domain is the storage partition of documents of this class. Empty
	// means "inherit from the ancestor chain"; a class whose whole chain
	// declares no domain cannot be routed.
	Domain Domain

	// Traits are descriptors attached to this classifier, keyed by trait
	// identifier. Descendants inherit them; the nearest declaration wins.
	Traits map[Ref]map[string]any
}

// Well-known classifier identifiers the pipeline special-cases.
const (
	// ClassDoc is the root of the class chain.
	ClassDoc Ref = "core:class:Doc"

	// ClassSpace is the base class of container/space documents, subject
	// to the stricter guest rules.
	ClassSpace Ref = "core:class:Space"

	// ClassPerson is the base class of person records, relevant to the
	// identity-bound update carve-out.
	ClassPerson Ref = "contact:class:Person"

	// ClassReaction is an individual reaction document.
	ClassReaction Ref = "activity:class:Reaction"

	// ClassRating is an aggregate rating document, derivable only from
	// reactions.
	ClassRating Ref = "activity:class:Rating"
)

// Attribute keys maintained by the versioning stage.
const (
	AttrVersion   = "version"
	AttrBaseChain = "baseChain"
	AttrIsLatest  = "isLatest"
	AttrReadonly  = "readonly"
	AttrCreatedBy = "createdBy"
)

// Attribute keys of reaction documents.
const (
	AttrReactionKind  = "kind"
	AttrReactionValue = "value"
	AttrReactionEmoji = "emoji"
	AttrAttachedTo    = "attachedTo"
)

// Well-known trait identifiers read by the pipeline. The descriptors are
// produced by the schema builder; the pipeline only consumes them.
const (
	// MixinAccessPolicy declares guest-level grants for a classifier.
	MixinAccessPolicy Ref = "core:mixin:AccessPolicy"

	// MixinVersioned marks a classifier whose documents form append-only
	// version chains.
	MixinVersioned Ref = "core:mixin:Versioned"
)

// AccessPolicy attribute keys within a MixinAccessPolicy descriptor.
const (
	PolicyGuestCanCreate = "guestCanCreate"
	PolicyGuestCanUpdate = "guestCanUpdate"
	PolicyGuestCanRemove = "guestCanRemove"
	PolicyIdentityBound  = "identityBound"
)

// AccessPolicy is the decoded form of a MixinAccessPolicy descriptor.
type AccessPolicy struct {
	GuestCanCreate bool
	GuestCanUpdate bool
	GuestCanRemove bool

	// IdentityBound allows an identity to update documents representing
	// itself without an explicit update grant.
	IdentityBound bool
}

// DecodeAccessPolicy reads an access policy from a raw trait descriptor.
func DecodeAccessPolicy(raw map[string]any) AccessPolicy {
	get := func(key string) bool {
		v, _ := raw[key].(bool)
		return v
	}
	return AccessPolicy{
		GuestCanCreate: get(PolicyGuestCanCreate),
		GuestCanUpdate: get(PolicyGuestCanUpdate),
		GuestCanRemove: get(PolicyGuestCanRemove),
		IdentityBound:  get(PolicyIdentityBound),
	}
}
