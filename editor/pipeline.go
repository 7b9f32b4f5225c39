package editor

import (
	"context"
	"fmt"
	"log"
	"time"

	"ansible-output-formatter/ansiblefmt"
	"ansible-output-formatter/utils"

	"github.com/google/uuid"
)

const (
	// DefaultLanguageID is the content type a formatted document switches to.
	DefaultLanguageID = "ansible-output"
	// DefaultFoldDelay gives the language switch time to land before folding.
	DefaultFoldDelay = 200 * time.Millisecond
)

// AfterFunc runs once a formatted document has been committed.
type AfterFunc func(ctx context.Context, ed Editor)

// Outcome describes a committed format.
type Outcome struct {
	RequestID string
	Report    ansiblefmt.Report
	// Settled is closed when the AfterFunc has returned.
	Settled <-chan struct{}
}

// Pipeline formats documents held by an Editor.
type Pipeline struct {
	LanguageID string
	FoldDelay  time.Duration
}

// NewPipeline returns a Pipeline with the default language and fold delay.
func NewPipeline() *Pipeline {
	return &Pipeline{
		LanguageID: DefaultLanguageID,
		FoldDelay:  DefaultFoldDelay,
	}
}

func (p *Pipeline) languageID() string {
	if p.LanguageID == "" {
		return DefaultLanguageID
	}
	return p.LanguageID
}

// Format reads the document, rewrites it and commits the result in one
// Replace. after runs in its own goroutine once the edit is committed; it
// may be nil. Nothing is written when any step before the commit fails.
func (p *Pipeline) Format(ctx context.Context, ed Editor, after AfterFunc) (*Outcome, error) {
	if ed == nil {
		return nil, ErrNoText
	}
	requestID := uuid.NewString()

	text, err := ed.Text(ctx)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := ansiblefmt.Run(text)
	if err != nil {
		log.Printf("[FORMAT] %s failed on %q: %v", requestID, utils.Preview(text, 80), err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := ed.Replace(ctx, res.Text); err != nil {
		log.Printf("[FORMAT] %s edit rejected: %v", requestID, err)
		return nil, fmt.Errorf("%w: %v", ErrEditRejected, err)
	}

	r := res.Report
	log.Printf("[FORMAT] %s rewrote %d region(s) (%d item, %d arrow, %d bare; %d repaired, %d skipped) in %v",
		requestID, r.Formatted(), r.Items, r.Arrows, r.Bare, r.Repaired, r.Skipped, time.Since(start))

	settled := make(chan struct{})
	if after == nil {
		close(settled)
	} else {
		afterCtx := context.WithoutCancel(ctx)
		go func() {
			defer close(settled)
			after(afterCtx, ed)
		}()
	}

	return &Outcome{RequestID: requestID, Report: r, Settled: settled}, nil
}

// FormatAndHighlight formats the document, then switches it to the
// ansible-output language and folds it.
func (p *Pipeline) FormatAndHighlight(ctx context.Context, ed Editor) (*Outcome, error) {
	return p.Format(ctx, ed, p.highlightAndFold)
}

// SetLanguage only switches the document's content type.
func (p *Pipeline) SetLanguage(ctx context.Context, ed Editor) error {
	if ed == nil {
		return ErrNoText
	}
	return ed.SetLanguage(ctx, p.languageID())
}

func (p *Pipeline) highlightAndFold(ctx context.Context, ed Editor) {
	if err := ed.SetLanguage(ctx, p.languageID()); err != nil {
		log.Printf("[EDITOR] set language %q: %v", p.languageID(), err)
	}

	if p.FoldDelay > 0 {
		timer := time.NewTimer(p.FoldDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}

	if err := ed.FoldAll(ctx); err != nil {
		log.Printf("[EDITOR] fold all: %v", err)
	}
}
