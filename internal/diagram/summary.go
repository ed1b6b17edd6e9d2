package diagram

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Summary bounds keep modification prompts small.
const (
	summaryClasses = 8
	summaryMembers = 4
	summaryItems   = 10
)

// countElements counts the top-level elements of an editor model, that is
// elements without an owner.
func countElements(model json.RawMessage) int {
	if len(model) == 0 {
		return 0
	}
	n := 0
	gjson.GetBytes(model, "elements").ForEach(func(_, el gjson.Result) bool {
		if !el.Get("owner").Exists() || el.Get("owner").Type == gjson.Null {
			n++
		}
		return true
	})
	return n
}

type modelIndex struct {
	elements gjson.Result
	names    map[string]string // id -> name
}

func indexModel(model json.RawMessage) (modelIndex, bool) {
	if len(model) == 0 || !gjson.ValidBytes(model) {
		return modelIndex{}, false
	}
	idx := modelIndex{elements: gjson.GetBytes(model, "elements"), names: map[string]string{}}
	idx.elements.ForEach(func(key, el gjson.Result) bool {
		id := el.Get("id").String()
		if id == "" {
			id = key.String()
		}
		idx.names[id] = el.Get("name").String()
		return true
	})
	return idx, true
}

// ofType returns the names of elements whose type is one of types, in
// document order.
func (idx modelIndex) ofType(limit int, types ...string) []string {
	var out []string
	idx.elements.ForEach(func(_, el gjson.Result) bool {
		if !matchesType(el.Get("type").String(), types) {
			return true
		}
		if name := el.Get("name").String(); name != "" {
			out = append(out, name)
		}
		return len(out) < limit
	})
	return out
}

// memberNames resolves the ids listed under field of el.
func (idx modelIndex) memberNames(el gjson.Result, field string) []string {
	var out []string
	el.Get(field).ForEach(func(_, id gjson.Result) bool {
		if name := idx.names[id.String()]; name != "" {
			out = append(out, name)
		}
		return len(out) < summaryMembers
	})
	return out
}

func matchesType(t string, types []string) bool {
	for _, want := range types {
		if t == want {
			return true
		}
	}
	return false
}

// transitions renders "A -> B" pairs for relationships whose type is one of
// types.
func transitions(model json.RawMessage, limit int, types ...string) []string {
	idx, ok := indexModel(model)
	if !ok {
		return nil
	}
	var out []string
	gjson.GetBytes(model, "relationships").ForEach(func(_, rel gjson.Result) bool {
		if !matchesType(rel.Get("type").String(), types) {
			return true
		}
		src := idx.names[rel.Get("source.element").String()]
		dst := idx.names[rel.Get("target.element").String()]
		if src == "" || dst == "" {
			return true
		}
		line := src + " -> " + dst
		if label := rel.Get("name").String(); label != "" {
			line += " (" + label + ")"
		}
		out = append(out, line)
		return len(out) < limit
	})
	return out
}

func summarizeClasses(model json.RawMessage) string {
	idx, ok := indexModel(model)
	if !ok {
		return ""
	}
	var lines []string
	idx.elements.ForEach(func(_, el gjson.Result) bool {
		if !matchesType(el.Get("type").String(), []string{"Class", "AbstractClass", "Interface", "Enumeration"}) {
			return true
		}
		line := "Class " + orDefault(el.Get("name").String(), "Unknown")
		if attrs := idx.memberNames(el, "attributes"); len(attrs) > 0 {
			line += " | attributes: " + strings.Join(attrs, ", ")
		}
		if methods := idx.memberNames(el, "methods"); len(methods) > 0 {
			line += " | methods: " + strings.Join(methods, ", ")
		}
		lines = append(lines, line)
		return len(lines) < summaryClasses
	})
	return block("class diagram", lines)
}

func summarizeObjects(model json.RawMessage) string {
	idx, ok := indexModel(model)
	if !ok {
		return ""
	}
	var lines []string
	for _, name := range idx.ofType(summaryItems, "ObjectName", "Object") {
		lines = append(lines, "Object "+name)
	}
	for _, link := range transitions(model, summaryItems, "ObjectLink") {
		lines = append(lines, "Link "+link)
	}
	return block("object diagram", lines)
}

func summarizeStates(model json.RawMessage, title string, stateTypes, intentTypes, transitionTypes []string) string {
	idx, ok := indexModel(model)
	if !ok {
		return ""
	}
	var lines []string
	if states := idx.ofType(summaryItems, stateTypes...); len(states) > 0 {
		lines = append(lines, "States: "+strings.Join(states, ", "))
	}
	if len(intentTypes) > 0 {
		if intents := idx.ofType(summaryItems, intentTypes...); len(intents) > 0 {
			lines = append(lines, "Intents: "+strings.Join(intents, ", "))
		}
	}
	if ts := transitions(model, summaryItems, transitionTypes...); len(ts) > 0 {
		lines = append(lines, "Transitions: "+strings.Join(ts, "; "))
	}
	return block(title, lines)
}

func block(title string, lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return fmt.Sprintf("\n\nCurrent %s:\n- %s", title, strings.Join(lines, "\n- "))
}
