package diagram

import (
	"regexp"
	"strings"

	"github.com/starford/modeler/internal/models"
)

// memberRe matches UML member strings such as "+ email: String" or
// "- login(password: String): boolean".
var memberRe = regexp.MustCompile(`^\s*([+\-#~])?\s*([A-Za-z_$][\w$]*)\s*(\(([^)]*)\))?\s*(:\s*(.+?))?\s*$`)

type member struct {
	visibility string
	name       string
	typ        string
	params     []models.Parameter
	isMethod   bool
}

// parseMember parses a UML member string. ok is false when s does not look
// like a member.
func parseMember(s string) (member, bool) {
	m := memberRe.FindStringSubmatch(s)
	if m == nil {
		return member{}, false
	}
	out := member{
		visibility: visibility(m[1]),
		name:       m[2],
		typ:        strings.TrimSpace(m[6]),
		isMethod:   m[3] != "",
	}
	if out.isMethod {
		out.params = parseParams(m[4])
	}
	return out, true
}

// parseParams splits "a: String, b: int" into parameters. A bare name
// gets type String.
func parseParams(s string) []models.Parameter {
	out := make([]models.Parameter, 0)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, typ, found := strings.Cut(part, ":")
		name = strings.TrimSpace(name)
		typ = strings.TrimSpace(typ)
		if !found || typ == "" {
			typ = "String"
		}
		if name == "" {
			continue
		}
		out = append(out, models.Parameter{Name: name, Type: typ})
	}
	return out
}

func parameters(items []any) []models.Parameter {
	out := make([]models.Parameter, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, parseParams(s)...)
			continue
		}
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		name := str(m, "name")
		if name == "" {
			continue
		}
		typ := str(m, "type")
		if typ == "" {
			typ = "String"
		}
		out = append(out, models.Parameter{Name: name, Type: typ})
	}
	return out
}

// attribute reads an attribute from a UML string or an object.
func attribute(it any) (models.Attribute, bool) {
	switch v := it.(type) {
	case string:
		mb, ok := parseMember(v)
		if !ok || mb.isMethod {
			return models.Attribute{}, false
		}
		return models.Attribute{Name: mb.name, Type: orDefault(mb.typ, "String"), Visibility: mb.visibility}, true
	case map[string]any:
		name := str(v, "name", "attributeName")
		if name == "" {
			return models.Attribute{}, false
		}
		return models.Attribute{
			ID:         str(v, "id"),
			Name:       name,
			Type:       orDefault(str(v, "type", "attributeType", "dataType"), "String"),
			Visibility: visibility(str(v, "visibility")),
		}, true
	}
	return models.Attribute{}, false
}

// method reads a method from a UML string or an object.
func method(it any) (models.Method, bool) {
	switch v := it.(type) {
	case string:
		mb, ok := parseMember(v)
		if !ok {
			return models.Method{}, false
		}
		params := mb.params
		if params == nil {
			params = make([]models.Parameter, 0)
		}
		return models.Method{Name: mb.name, ReturnType: orDefault(mb.typ, "void"), Visibility: mb.visibility, Parameters: params}, true
	case map[string]any:
		name := strings.TrimSuffix(str(v, "name", "methodName"), "()")
		if name == "" {
			return models.Method{}, false
		}
		return models.Method{
			ID:         str(v, "id"),
			Name:       name,
			ReturnType: orDefault(str(v, "returnType", "type"), "void"),
			Visibility: visibility(str(v, "visibility")),
			Parameters: parameters(list(v, "parameters", "params")),
		}, true
	}
	return models.Method{}, false
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
