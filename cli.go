package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"ansible-output-formatter/editor"
	"ansible-output-formatter/highlight"
)

// cliOptions are the terminal-mode flags.
type cliOptions struct {
	path          string // file to read, "" or "-" for stdin
	write         bool
	color         string
	style         string
	fold          bool
	highlightOnly bool
	report        bool
	quiet         bool
}

// runCLI formats one document and prints it. It returns the exit code.
func runCLI(ctx context.Context, opts cliOptions, stdin io.Reader, stdout, stderr io.Writer) int {
	if opts.quiet {
		prev := log.Writer()
		log.SetOutput(io.Discard)
		defer log.SetOutput(prev)
	}

	cfg := GetConfig()
	color := opts.color
	if color == "" {
		color = cfg.Color
	}
	if !isColorMode(color) {
		fmt.Fprintf(stderr, "invalid -color %q: want one of %v\n", color, validColorModes)
		return 2
	}
	style := opts.style
	if style == "" {
		style = cfg.Style
	}

	p := newPipeline(cfg)
	if !opts.fold {
		// nothing displays the fold, so there is nothing to wait for
		p.FoldDelay = 0
	}

	var (
		ed  editor.Editor
		buf *editor.Buffer
	)
	switch {
	case opts.path == "" || opts.path == "-":
		if opts.write {
			fmt.Fprintln(stderr, "-w needs a file argument")
			return 2
		}
		text, err := readInput(stdin, cfg.MaxInputBytes)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		buf = editor.NewBuffer(text)
		ed = buf
	case opts.write:
		ed = editor.NewFileEditor(opts.path, cfg.MaxInputBytes)
	default:
		text, err := editor.NewFileEditor(opts.path, cfg.MaxInputBytes).Text(ctx)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		buf = editor.NewBuffer(text)
		ed = buf
	}

	if opts.highlightOnly {
		if err := p.SetLanguage(ctx, ed); err != nil {
			fmt.Fprintln(stderr, userMessage(err))
			return 1
		}
		if opts.write {
			fmt.Fprintf(stderr, languageMessage+"\n", highlight.DisplayName(cfg.LanguageID))
		}
	} else {
		out, err := p.FormatAndHighlight(ctx, ed)
		if err != nil {
			fmt.Fprintln(stderr, userMessage(err))
			return 1
		}
		<-out.Settled

		if opts.report {
			data, err := json.Marshal(out.Report)
			if err == nil {
				fmt.Fprintf(stderr, "%s\n", data)
			}
		}
		if opts.write {
			fmt.Fprintln(stderr, successMessage)
		}
	}

	if buf == nil {
		return 0
	}

	text := buf.String()
	if opts.fold {
		text = buf.Render()
	}
	if useColor(color, stdout) && buf.Language() == highlight.LanguageID {
		if err := highlight.Write(stdout, text, style, ""); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		return 0
	}
	if _, err := io.WriteString(stdout, text); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

// readInput reads at most limit bytes and decodes them to UTF-8.
func readInput(r io.Reader, limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("input exceeds %d bytes", limit)
	}
	return editor.DecodeText(data)
}

// useColor resolves a color mode against the output stream. "auto" colors
// terminals only and honours NO_COLOR.
func useColor(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
