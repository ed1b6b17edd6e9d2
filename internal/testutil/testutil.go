// Package testutil provides shared test helpers for session databases and
// scripted model predictors.
package testutil

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/starford/modeler/internal/session"
)

// TestStore creates a temporary session database that is automatically cleaned up.
func TestStore(t *testing.T) *session.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "modeler-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := session.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// ScriptedPredictor answers with canned replies in order. Once the script is
// exhausted it keeps returning the last reply (or "" for an empty script).
type ScriptedPredictor struct {
	mu      sync.Mutex
	replies []string
	prompts []string
}

func NewScriptedPredictor(replies ...string) *ScriptedPredictor {
	return &ScriptedPredictor{replies: replies}
}

func (p *ScriptedPredictor) Predict(_ context.Context, prompt string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts = append(p.prompts, prompt)
	if len(p.replies) == 0 {
		return "", nil
	}
	n := len(p.prompts) - 1
	if n >= len(p.replies) {
		n = len(p.replies) - 1
	}
	return p.replies[n], nil
}

// Prompts returns a copy of every prompt received so far.
func (p *ScriptedPredictor) Prompts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.prompts...)
}

// Calls returns the number of predictions made.
func (p *ScriptedPredictor) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.prompts)
}
