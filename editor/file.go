package editor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// FileEditor edits a file in place.
type FileEditor struct {
	view

	Path string
	// MaxBytes rejects larger files; zero means no limit.
	MaxBytes int64
}

// NewFileEditor returns a FileEditor for path.
func NewFileEditor(path string, maxBytes int64) *FileEditor {
	return &FileEditor{Path: path, MaxBytes: maxBytes}
}

func (f *FileEditor) Text(ctx context.Context) (string, error) {
	info, err := os.Stat(f.Path)
	if err != nil {
		return "", err
	}
	if f.MaxBytes > 0 && info.Size() > f.MaxBytes {
		return "", fmt.Errorf("%s is %d bytes, limit is %d", f.Path, info.Size(), f.MaxBytes)
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", err
	}
	return DecodeText(data)
}

// Replace writes text to a temporary file next to the original and renames
// it into place, so readers see either the old or the new content.
func (f *FileEditor) Replace(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	mode := os.FileMode(0o644)
	if info, err := os.Stat(f.Path); err == nil {
		mode = info.Mode().Perm()
	}

	dir, base := filepath.Split(f.Path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return err
	}
	return os.Rename(tmpName, f.Path)
}

func (f *FileEditor) SetLanguage(ctx context.Context, id string) error {
	f.setLanguage(id)
	return nil
}

func (f *FileEditor) FoldAll(ctx context.Context) error {
	f.fold()
	return nil
}

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	utf16LEBOM = []byte{0xFF, 0xFE}
	utf16BEBOM = []byte{0xFE, 0xFF}
)

// DecodeText turns raw bytes into text. A UTF-8 byte order mark is
// dropped and UTF-16 input with a byte order mark is transcoded, which
// covers logs saved from Windows terminals. Anything else is returned
// byte for byte, invalid UTF-8 included.
func DecodeText(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, utf8BOM):
		return string(data[len(utf8BOM):]), nil
	case bytes.HasPrefix(data, utf16LEBOM), bytes.HasPrefix(data, utf16BEBOM):
		out, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), data)
		if err != nil {
			return "", fmt.Errorf("decode text: %w", err)
		}
		return string(out), nil
	}
	return string(data), nil
}
