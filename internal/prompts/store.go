// Package prompts holds system prompt overrides loaded from Markdown files.
package prompts

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/starford/modeler/internal/models"
	"github.com/starford/modeler/internal/storage"
)

// Kind selects which generation step a prompt drives.
type Kind string

const (
	KindElement      Kind = "element"
	KindSystem       Kind = "system"
	KindModification Kind = "modification"
	KindHelp         Kind = "help"
)

// ParseKind accepts a kind name in any case.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindElement, KindSystem, KindModification, KindHelp:
		return k, true
	}
	return "", false
}

type key struct {
	dt   models.DiagramType
	kind Kind
}

// Store is safe for concurrent use. The zero value has no overrides.
type Store struct {
	mu        sync.RWMutex
	overrides map[key]string
	checksums map[string]string
}

func NewStore() *Store { return &Store{} }

// Lookup returns the override for (dt, kind). A prompt declared without a
// diagram type matches every diagram.
func (s *Store) Lookup(dt models.DiagramType, kind Kind) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if body, ok := s.overrides[key{dt, kind}]; ok {
		return body, true
	}
	body, ok := s.overrides[key{"", kind}]
	return body, ok
}

// Resolve returns the override for (dt, kind) or builtin.
func (s *Store) Resolve(dt models.DiagramType, kind Kind, builtin string) string {
	if body, ok := s.Lookup(dt, kind); ok {
		return body
	}
	return builtin
}

// Len reports the number of loaded overrides.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.overrides)
}

// Load replaces the overrides with the contents of p. Files that fail to
// parse are logged and skipped. It reports whether anything changed since
// the previous load.
func (s *Store) Load(p storage.Provider, logger *slog.Logger) (bool, error) {
	metas, err := p.List("")
	if err != nil {
		return false, fmt.Errorf("prompts: %w", err)
	}

	sums := make(map[string]string, len(metas))
	for _, m := range metas {
		sums[m.Path] = m.Checksum
	}
	s.mu.RLock()
	same := sameChecksums(s.checksums, sums)
	s.mu.RUnlock()
	if same {
		return false, nil
	}

	overrides := make(map[key]string, len(metas))
	for _, m := range metas {
		data, err := p.Read(m.Path)
		if err != nil {
			logger.Warn("prompts: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		pr, err := Parse(data)
		if err != nil {
			logger.Warn("prompts: skipped", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		k := key{pr.DiagramType, pr.Kind}
		if _, dup := overrides[k]; dup {
			logger.Warn("prompts: duplicate override ignored", slog.String("path", m.Path))
			continue
		}
		overrides[k] = pr.Body
	}

	s.mu.Lock()
	s.overrides = overrides
	s.checksums = sums
	s.mu.Unlock()
	logger.Info("prompts: loaded", slog.Int("overrides", len(overrides)))
	return true, nil
}

func sameChecksums(a, b map[string]string) bool {
	if a == nil || len(a) != len(b) {
		return false
	}
	for p, sum := range b {
		if a[p] != sum {
			return false
		}
	}
	return true
}
