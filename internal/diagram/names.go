package diagram

import (
	"strings"
	"unicode"
)

// nameMarkers are nouns after which a request usually names the element:
// "create User class", "a library system".
var nameMarkers = map[string]bool{
	"class": true, "model": true, "system": true, "object": true,
	"agent": true, "state": true, "diagram": true, "intent": true,
	"machine": true, "instance": true, "bot": true,
}

var skipWords = map[string]bool{
	"a": true, "an": true, "the": true, "new": true, "my": true, "basic": true,
	"create": true, "add": true, "make": true, "generate": true, "insert": true,
	"complete": true, "full": true, "entire": true, "simple": true,
}

var commonEntities = []string{
	"user", "customer", "product", "order", "book", "person", "student",
	"employee", "account", "payment", "invoice", "car", "library", "bank",
}

// extractName derives a PascalCase element name from a request, or returns
// def when nothing usable is found.
func extractName(request, def string) string {
	words := strings.Fields(strings.ToLower(request))
	for i := range words {
		words[i] = strings.Trim(words[i], `.,!?;:'"()[]{}`)
	}

	for i, w := range words {
		if !nameMarkers[w] || i == 0 {
			continue
		}
		prev := words[i-1]
		if prev != "" && !skipWords[prev] && !nameMarkers[prev] {
			if name := pascalCase(prev); name != "" {
				return name
			}
		}
	}
	for _, w := range words {
		for _, e := range commonEntities {
			if w == e {
				return pascalCase(w)
			}
		}
	}
	return def
}

// pascalCase joins the alphanumeric runs of s, capitalizing each one.
func pascalCase(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
		} else {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out != "" && unicode.IsDigit(rune(out[0])) {
		return ""
	}
	return out
}

// lowerFirst turns a class-style name into an instance-style one.
func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
