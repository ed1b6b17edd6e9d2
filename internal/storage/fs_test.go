package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func tempRoot(t *testing.T) (*FS, string) {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs, dir
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRead(t *testing.T) {
	s, root := tempRoot(t)
	writeFile(t, root, "class.md", "prompt")
	got, err := s.Read("class.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "prompt" {
		t.Errorf("content = %q", got)
	}
}

func TestList(t *testing.T) {
	s, root := tempRoot(t)
	writeFile(t, root, "b.md", "b")
	writeFile(t, root, "sub/a.md", "a")
	writeFile(t, root, "readme.txt", "not md")
	writeFile(t, root, ".swap.md", "hidden")

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].Path != "b.md" || items[1].Path != "sub/a.md" {
		t.Errorf("paths = %q, %q", items[0].Path, items[1].Path)
	}
	if items[0].Checksum == items[1].Checksum {
		t.Error("different content should have different checksums")
	}
}

func TestList_ChecksumTracksContent(t *testing.T) {
	s, root := tempRoot(t)
	writeFile(t, root, "x.md", "one")
	before, _ := s.List("")
	writeFile(t, root, "x.md", "two")
	after, _ := s.List("")
	if before[0].Checksum == after[0].Checksum {
		t.Error("checksum did not change")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s, _ := tempRoot(t)
	for _, p := range []string{"../../etc/passwd", "../outside.md", "/etc/shadow"} {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(f, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFS(f); err == nil {
		t.Error("expected error when root is a file")
	}
}
