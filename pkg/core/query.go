package core

import (
	"sort"
	"strings"
)

// Query is a filter over document attributes and header fields. Keys name a
// field ("_id", "space", "modifiedBy" or any attribute); values are matched
// by equality, or by membership when the value is an In list.
type Query map[string]any

// In matches a field against any of the listed values.
type In []any

// SortOrder of one FindOptions sort entry.
type SortOrder int

const (
	Ascending SortOrder = iota
	Descending
)

// SortBy names a field and a direction.
type SortBy struct {
	Field string
	Order SortOrder
}

// FindOptions narrows and orders a FindAll result.
type FindOptions struct {
	Limit int
	Sort  []SortBy
}

// Field resolves a query field against a document. Header fields use the
// reserved names "_id", "_class", "space", "modifiedBy" and "modifiedOn".
func Field(doc *Doc, name string) any {
	switch name {
	case "_id":
		return doc.ID
	case "_class":
		return doc.Class
	case "space":
		return doc.Space
	case "modifiedBy":
		return doc.ModifiedBy
	case "modifiedOn":
		return doc.ModifiedOn
	}
	if i := strings.IndexByte(name, '.'); i > 0 {
		outer, _ := doc.Attr(name[:i]).(map[string]any)
		if outer == nil {
			return nil
		}
		return outer[name[i+1:]]
	}
	return doc.Attr(name)
}

// Matches reports whether a document satisfies every query term.
func Matches(doc *Doc, query Query) bool {
	for field, want := range query {
		got := Field(doc, field)
		if in, ok := want.(In); ok {
			found := false
			for _, candidate := range in {
				if looseEqual(got, candidate) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
			continue
		}
		if !looseEqual(got, want) {
			return false
		}
	}
	return true
}

// ApplyOptions sorts and truncates docs per options. The input slice is
// sorted in place; the returned slice aliases it.
func ApplyOptions(docs []*Doc, options *FindOptions) []*Doc {
	if options == nil {
		return docs
	}
	for i := len(options.Sort) - 1; i >= 0; i-- {
		by := options.Sort[i]
		sort.SliceStable(docs, func(a, b int) bool {
			less := lessValue(Field(docs[a], by.Field), Field(docs[b], by.Field))
			if by.Order == Descending {
				return !less && !looseEqual(Field(docs[a], by.Field), Field(docs[b], by.Field))
			}
			return less
		})
	}
	if options.Limit > 0 && len(docs) > options.Limit {
		docs = docs[:options.Limit]
	}
	return docs
}

// looseEqual compares scalars across the numeric types a JSON round trip can
// produce, and Refs against strings.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
		return false
	}
	if as, ok := asString(a); ok {
		if bs, ok := asString(b); ok {
			return as == bs
		}
		return false
	}
	return a == b
}

func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case Ref:
		return string(s), true
	case Domain:
		return string(s), true
	}
	return "", false
}

func lessValue(a, b any) bool {
	if af, ok := toFloat(a); ok {
		bf, _ := toFloat(b)
		return af < bf
	}
	as, _ := asString(a)
	bs, _ := asString(b)
	return as < bs
}
