package diagram

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cast"

	"github.com/starford/modeler/internal/models"
)

// maxListItems caps reply, training phrase and action lists.
const maxListItems = 5

// maxMembers caps attribute and method lists of a single class.
const maxMembers = 12

// str returns the first non-empty trimmed value among keys of m.
func str(m map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		if s := strings.TrimSpace(cast.ToString(v)); s != "" {
			return s
		}
	}
	return ""
}

// list returns the first present list among keys of m. A lone string or
// object is treated as a list of one.
func list(m map[string]any, keys ...string) []any {
	for _, k := range keys {
		switch v := m[k].(type) {
		case []any:
			return v
		case string, map[string]any:
			return []any{v}
		}
	}
	return nil
}

// objects keeps the map entries of items.
func objects(items []any) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if m, err := cast.ToStringMapE(it); err == nil && m != nil {
			out = append(out, m)
		}
	}
	return out
}

// texts coerces items that are plain strings or objects carrying the text
// under one of keys. Entries are trimmed, empty ones dropped, and the
// result is capped at limit (0 means no cap). Never nil.
func texts(items []any, limit int, keys ...string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		var s string
		if m, ok := it.(map[string]any); ok {
			s = str(m, keys...)
		} else {
			s = strings.TrimSpace(cast.ToString(it))
		}
		if s == "" {
			continue
		}
		out = append(out, s)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// boolOr reads a boolean-ish value, returning def when absent or unreadable.
func boolOr(m map[string]any, key string, def bool) bool {
	v, ok := m[key]
	if !ok || v == nil {
		return def
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return def
	}
	return b
}

// visibility maps UML symbols and names to a canonical visibility.
// Anything unrecognized is public.
func visibility(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "-", "private":
		return models.VisibilityPrivate
	case "#", "protected":
		return models.VisibilityProtected
	default:
		return models.VisibilityPublic
	}
}

var relationshipTypes = map[string]string{
	"association":    models.RelAssociation,
	"bidirectional":  models.RelAssociation,
	"unidirectional": models.RelAssociation,
	"inheritance":    models.RelInheritance,
	"generalization": models.RelInheritance,
	"extends":        models.RelInheritance,
	"composition":    models.RelComposition,
	"aggregation":    models.RelAggregation,
	"realization":    models.RelRealization,
	"implements":     models.RelRealization,
	"dependency":     models.RelDependency,
}

// relationshipType canonicalizes a class relationship type. Unknown types
// become associations.
func relationshipType(s string) string {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.TrimPrefix(key, "class")
	if t, ok := relationshipTypes[key]; ok {
		return t
	}
	return models.RelAssociation
}

// condition canonicalizes an agent transition condition. An unknown or
// missing condition means an intent match when an intent is given,
// otherwise an automatic transition.
func condition(s, intent string) string {
	c := strings.ToLower(strings.TrimSpace(s))
	for _, known := range models.Conditions {
		if c == known {
			return c
		}
	}
	if intent != "" {
		return models.ConditionIntentMatched
	}
	return models.ConditionAuto
}

// nameSet tracks names already used in one category of a spec.
type nameSet map[string]struct{}

// add reports whether name was new.
func (s nameSet) add(name string) bool {
	if _, ok := s[name]; ok {
		return false
	}
	s[name] = struct{}{}
	return true
}

func (s nameSet) has(name string) bool {
	_, ok := s[name]
	return ok
}

// fallbackNamespace scopes the name-derived ids of fallback elements.
var fallbackNamespace = uuid.MustParse("6f1d0c52-8a0e-4c3b-9a57-3e1f2b7d9c44")

// idSet hands out element ids, keeping supplied ones unless already taken.
// Without a seed, new ids are random; with one, the n-th new id is derived
// from the seed so the same input yields the same ids.
type idSet struct {
	used map[string]struct{}
	seed string
	n    int
}

func newIDs() *idSet { return &idSet{} }

// seededIDs returns an idSet whose ids depend only on parts and claim order.
func seededIDs(parts ...string) *idSet {
	return &idSet{seed: strings.Join(parts, "/")}
}

func (s *idSet) claim(id string) string {
	if s.used == nil {
		s.used = make(map[string]struct{})
	}
	if _, taken := s.used[id]; id == "" || taken {
		id = s.next()
		for _, taken := s.used[id]; taken; _, taken = s.used[id] {
			id = s.next()
		}
	}
	s.used[id] = struct{}{}
	return id
}

func (s *idSet) next() string {
	if s.seed == "" {
		return uuid.NewString()
	}
	s.n++
	return uuid.NewSHA1(fallbackNamespace, fmt.Appendf(nil, "%s/%d", s.seed, s.n)).String()
}
