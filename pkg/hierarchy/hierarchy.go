// Package hierarchy holds the boot-time classifier graph driving domain
// resolution and trait lookup.
package hierarchy

import (
	"fmt"

	"github.com/hcengineering/platform-sub028/pkg/core"
)

// Hierarchy is the derived-at-boot graph of document classes and traits. It
// is built once from trusted schema data and only read afterwards, so it is
// safe for concurrent use without locking. An unknown classifier identifier
// is a caller error.
type Hierarchy struct {
	classifiers map[core.Ref]*core.Classifier
}

// New builds a hierarchy from schema classifiers. It fails on duplicate
// identifiers or a parent reference to a classifier that is not part of the
// set.
func New(classifiers []core.Classifier) (*Hierarchy, error) {
	byID := make(map[core.Ref]*core.Classifier, len(classifiers))
	for i := range classifiers {
		c := &classifiers[i]
		if _, ok := byID[c.ID]; ok {
			return nil, fmt.Errorf("duplicate classifier %q", c.ID)
		}
		byID[c.ID] = c
	}
	for _, c := range byID {
		if c.Extends == "" {
			continue
		}
		if _, ok := byID[c.Extends]; !ok {
			return nil, fmt.Errorf("classifier %q extends unknown %q", c.ID, c.Extends)
		}
	}
	return &Hierarchy{classifiers: byID}, nil
}

// Classifier returns a classifier by identifier.
func (h *Hierarchy) Classifier(id core.Ref) *core.Classifier {
	return h.classifiers[id]
}

// IsDerived reports whether candidate equals ancestor or reaches it by
// walking parent links.
func (h *Hierarchy) IsDerived(candidate, ancestor core.Ref) bool {
	for id := candidate; id != ""; {
		if id == ancestor {
			return true
		}
		c := h.classifiers[id]
		if c == nil {
			return false
		}
		id = c.Extends
	}
	return false
}

// Ancestors returns the classifier chain starting at id, nearest first.
func (h *Hierarchy) Ancestors(id core.Ref) []core.Ref {
	var chain []core.Ref
	for cur := id; cur != ""; {
		c := h.classifiers[cur]
		if c == nil {
			break
		}
		chain = append(chain, cur)
		cur = c.Extends
	}
	return chain
}

// FindDomain walks the parent chain and returns the first declared domain.
// The second return is false when no classifier in the chain declares one;
// such documents cannot be routed and the caller must treat this as a routing
// error, not silently default.
func (h *Hierarchy) FindDomain(classifier core.Ref) (core.Domain, bool) {
	for cur := classifier; cur != ""; {
		c := h.classifiers[cur]
		if c == nil {
			return "", false
		}
		if c.Domain != "" {
			return c.Domain, true
		}
		cur = c.Extends
	}
	return "", false
}

// ClassHierarchyMixin looks up a trait descriptor attached anywhere along the
// ancestor chain, returning the nearest declaration.
func (h *Hierarchy) ClassHierarchyMixin(classifier, trait core.Ref) (map[string]any, bool) {
	for cur := classifier; cur != ""; {
		c := h.classifiers[cur]
		if c == nil {
			return nil, false
		}
		if desc, ok := c.Traits[trait]; ok {
			return desc, true
		}
		cur = c.Extends
	}
	return nil, false
}

// Domains returns every domain declared by at least one classifier.
func (h *Hierarchy) Domains() []core.Domain {
	seen := make(map[core.Domain]struct{})
	var domains []core.Domain
	for _, c := range h.classifiers {
		if c.Domain == "" {
			continue
		}
		if _, ok := seen[c.Domain]; ok {
			continue
		}
		seen[c.Domain] = struct{}{}
		domains = append(domains, c.Domain)
	}
	return domains
}
