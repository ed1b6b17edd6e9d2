package prompts

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/modeler/internal/models"
	"github.com/starford/modeler/internal/storage"
)

var quiet = slog.New(slog.NewJSONHandler(io.Discard, nil))

func TestParse(t *testing.T) {
	p, err := Parse([]byte("---\ndiagramType: agent\nkind: System\n---\n\nYou design bots.\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.DiagramType != models.AgentDiagram || p.Kind != KindSystem {
		t.Errorf("got %q/%q", p.DiagramType, p.Kind)
	}
	if p.Body != "You design bots." {
		t.Errorf("body = %q", p.Body)
	}
}

func TestParse_HelpWithoutDiagramType(t *testing.T) {
	p, err := Parse([]byte("---\nkind: help\n---\nBe brief.\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.DiagramType != "" || p.Kind != KindHelp {
		t.Errorf("got %q/%q", p.DiagramType, p.Kind)
	}
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"no frontmatter":  "just text",
		"unclosed":        "---\nkind: help\nbody",
		"bad yaml":        "---\n: invalid: yaml: {{{\n---\nbody",
		"unknown kind":    "---\ndiagramType: class\nkind: poem\n---\nbody",
		"unknown diagram": "---\ndiagramType: gantt\nkind: element\n---\nbody",
		"missing diagram": "---\nkind: element\n---\nbody",
		"empty body":      "---\nkind: help\n---\n   \n",
	}
	for name, in := range cases {
		if _, err := Parse([]byte(in)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func promptDir(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

func TestStore_LoadAndResolve(t *testing.T) {
	dir, fs := promptDir(t)
	_ = os.WriteFile(filepath.Join(dir, "class.md"), []byte("---\ndiagramType: ClassDiagram\nkind: element\n---\nCLASS"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "help.md"), []byte("---\nkind: help\n---\nHELP"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "broken.md"), []byte("no frontmatter"), 0o644)

	s := NewStore()
	changed, err := s.Load(fs, quiet)
	if err != nil || !changed {
		t.Fatalf("Load = %v, %v", changed, err)
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
	if got := s.Resolve(models.ClassDiagram, KindElement, "builtin"); got != "CLASS" {
		t.Errorf("class element = %q", got)
	}
	if got := s.Resolve(models.ClassDiagram, KindSystem, "builtin"); got != "builtin" {
		t.Errorf("class system = %q", got)
	}
	if got := s.Resolve(models.AgentDiagram, KindHelp, "builtin"); got != "HELP" {
		t.Errorf("help = %q", got)
	}

	changed, err = s.Load(fs, quiet)
	if err != nil || changed {
		t.Errorf("second Load = %v, %v; want unchanged", changed, err)
	}
}

func TestStore_ZeroValue(t *testing.T) {
	var s Store
	if got := s.Resolve(models.ClassDiagram, KindElement, "b"); got != "b" {
		t.Errorf("got %q", got)
	}
}

func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	dir, fs := promptDir(t)
	s := NewStore()
	if _, err := s.Load(fs, quiet); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var reloads atomic.Int32
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, s, fs, dir, quiet, func() { reloads.Add(1) }) }()

	time.Sleep(100 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(dir, "obj.md"), []byte("---\ndiagramType: object\nkind: system\n---\nOBJ"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		body, ok := s.Lookup(models.ObjectDiagram, KindSystem)
		return ok && body == "OBJ"
	}, "override not reloaded")
	eventually(t, 2*time.Second, 20*time.Millisecond, func() bool {
		return reloads.Load() > 0
	}, "onReload not called")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Watch did not stop")
	}
}
