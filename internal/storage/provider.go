// Package storage gives read-only access to the prompt override directory.
package storage

import "time"

// FileMeta describes one Markdown file under the root.
type FileMeta struct {
	Path      string // relative to root, slash-separated
	Checksum  string
	UpdatedAt time.Time
}

// Provider is the interface for reading prompt files.
type Provider interface {
	// List returns metadata for every .md file under dir (relative to root).
	List(dir string) ([]FileMeta, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
}
