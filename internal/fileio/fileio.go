// Package fileio moves constellation documents between the workspace and
// the filesystem.
package fileio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"constellation/internal/cas"
	"constellation/internal/model"
)

// Extension is appended to exported file names.
const Extension = ".json"

// ErrNoMatches is returned by ImportGlob when the pattern matched no file.
var ErrNoMatches = errors.New("no files match pattern")

// File is a document read from disk.
type File struct {
	Path     string
	Data     []byte
	Digest   string
	Document *model.ConstellationDocument
	Err      error // parse or validation failure; Document is nil
}

// Digest returns the BLAKE3 digest of an exported file's bytes.
func Digest(data []byte) string {
	return cas.Blake3Hex(data)
}

// ExportFile writes data to path atomically and returns its digest.
func ExportFile(path string, data []byte) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating export dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("writing export: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("renaming export: %w", err)
	}
	return Digest(data), nil
}

// ReadFile reads and validates a document file. A file that exists but
// fails validation is returned with Err set.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f := &File{Path: path, Data: data, Digest: Digest(data)}
	f.Document, f.Err = model.ParseDocument(data)
	return f, nil
}

// ImportGlob reads every file matching pattern, in path order. Patterns
// use doublestar syntax, so "analyses/**/*.json" walks subdirectories.
func ImportGlob(pattern string) ([]*File, error) {
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%s: %w", pattern, ErrNoMatches)
	}
	sort.Strings(matches)

	files := make([]*File, 0, len(matches))
	for _, path := range matches {
		f, err := ReadFile(path)
		if err != nil {
			files = append(files, &File{Path: path, Err: err})
			continue
		}
		files = append(files, f)
	}
	return files, nil
}

// FileName turns a document title into a file name.
func FileName(title string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash && b.Len() > 0:
			b.WriteByte('-')
			lastDash = true
		}
	}
	name := strings.TrimSuffix(b.String(), "-")
	if name == "" {
		name = "constellation"
	}
	return name + Extension
}
