// Package editor connects the formatter to the buffer it rewrites: an
// in-memory buffer for the MCP server and the terminal, or a file on disk.
package editor

import (
	"context"
	"errors"
	"sync"
)

// Editor is the document surface the formatter works against. Replace must
// apply the whole text or nothing. SetLanguage and FoldAll are display
// requests; callers do not depend on their outcome.
type Editor interface {
	Text(ctx context.Context) (string, error)
	Replace(ctx context.Context, text string) error
	SetLanguage(ctx context.Context, id string) error
	FoldAll(ctx context.Context) error
}

var (
	// ErrNoText is returned when there is no document to format.
	ErrNoText = errors.New("no active editor found")
	// ErrEditRejected wraps a failed Replace. The document is unchanged.
	ErrEditRejected = errors.New("failed to format output")
)

// view is the display state shared by the Editor implementations.
type view struct {
	mu       sync.Mutex
	language string
	folded   bool
}

func (v *view) setLanguage(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.language = id
}

func (v *view) fold() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.folded = true
}

// Language returns the content type last set on the document.
func (v *view) Language() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.language
}

// Folded reports whether fold-all has been requested.
func (v *view) Folded() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.folded
}
