package editor

import (
	"context"
	"sync"
)

// Buffer is an in-memory Editor.
type Buffer struct {
	view

	textMu sync.RWMutex
	text   string
	edits  int
}

// NewBuffer returns a Buffer holding text.
func NewBuffer(text string) *Buffer {
	return &Buffer{text: text}
}

func (b *Buffer) Text(ctx context.Context) (string, error) {
	b.textMu.RLock()
	defer b.textMu.RUnlock()
	return b.text, nil
}

func (b *Buffer) Replace(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.textMu.Lock()
	defer b.textMu.Unlock()
	b.text = text
	b.edits++
	return nil
}

func (b *Buffer) SetLanguage(ctx context.Context, id string) error {
	b.setLanguage(id)
	return nil
}

func (b *Buffer) FoldAll(ctx context.Context) error {
	b.fold()
	return nil
}

// String returns the current text.
func (b *Buffer) String() string {
	b.textMu.RLock()
	defer b.textMu.RUnlock()
	return b.text
}

// Edits counts the replacements applied so far.
func (b *Buffer) Edits() int {
	b.textMu.RLock()
	defer b.textMu.RUnlock()
	return b.edits
}

// Folds returns the foldable regions of the current text.
func (b *Buffer) Folds() []FoldRange {
	return FoldRegions(b.String())
}

// Render returns the text as it should be displayed: folded when fold-all
// was requested.
func (b *Buffer) Render() string {
	text := b.String()
	if !b.Folded() {
		return text
	}
	return RenderFolded(text, FoldRegions(text))
}
