package model

import "github.com/hcengineering/platform-sub028/pkg/core"

// DomainDocs is the default partition for ordinary user documents.
const DomainDocs core.Domain = "docs"

// DomainActivity holds reactions, ratings and other activity records.
const DomainActivity core.Domain = "activity"

// Bootstrap returns the built-in classifier set every workspace starts with.
// Deployments extend it with product-specific classes through model
// transactions; the built-ins only cover what the pipeline itself
// special-cases.
func Bootstrap() []core.Classifier {
	return []core.Classifier{
		{ID: core.ClassDoc, Kind: core.KindClass},
		{ID: "core:class:Tx", Extends: core.ClassDoc, Kind: core.KindClass, Domain: core.DomainTx},
		{ID: "core:class:Class", Extends: core.ClassDoc, Kind: core.KindClass, Domain: core.DomainModel},
		{ID: core.ClassSpace, Extends: core.ClassDoc, Kind: core.KindClass, Domain: DomainDocs},
		{ID: core.ClassPerson, Extends: core.ClassDoc, Kind: core.KindClass, Domain: DomainDocs,
			Traits: map[core.Ref]map[string]any{
				core.MixinAccessPolicy: {core.PolicyIdentityBound: true},
			}},
		{ID: core.ClassReaction, Extends: core.ClassDoc, Kind: core.KindClass, Domain: DomainActivity,
			Traits: map[core.Ref]map[string]any{
				core.MixinAccessPolicy: {
					core.PolicyGuestCanCreate: true,
					core.PolicyGuestCanUpdate: true,
					core.PolicyGuestCanRemove: true,
				},
			}},
		{ID: core.ClassRating, Extends: core.ClassDoc, Kind: core.KindClass, Domain: DomainActivity},
		{ID: core.MixinAccessPolicy, Extends: core.ClassDoc, Kind: core.KindMixin},
		{ID: core.MixinVersioned, Extends: core.ClassDoc, Kind: core.KindMixin},
	}
}
