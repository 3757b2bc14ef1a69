// Package files turns command-line file selections into upload payloads.
package files

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ziadkadry99/flowchat/internal/client"
)

// DefaultMaxFileSize is the largest file that will be attached (1 MB).
const DefaultMaxFileSize int64 = 1 << 20

// DefaultExcludes are directory names never descended into by a glob.
var DefaultExcludes = []string{
	".git",
	"node_modules",
	"vendor",
	"__pycache__",
	".flowchat",
	"dist",
	"build",
	".venv",
	".idea",
	".vscode",
}

// Selector resolves patterns to files on disk.
type Selector struct {
	MaxFileSize int64    // Files larger than this are skipped (0 = use default).
	Exclude     []string // Extra glob patterns to skip.
}

// Expand resolves each pattern (plain path or doublestar glob) to a sorted,
// de-duplicated list of regular files. A pattern that matches nothing is an
// error so typos do not go unnoticed.
func (s Selector) Expand(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string

	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("files: bad pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("files: no files match %q", pattern)
		}

		for _, m := range matches {
			if inExcludedDir(m) || s.excluded(m) || seen[m] {
				continue
			}
			seen[m] = true
			out = append(out, m)
		}
	}

	sort.Strings(out)
	return out, nil
}

// LoadCode reads every file matched by patterns. Binary and oversized files
// are skipped with a warning on stderr.
func (s Selector) LoadCode(patterns []string) ([]client.File, error) {
	paths, err := s.Expand(patterns)
	if err != nil {
		return nil, err
	}

	maxSize := s.maxSize()
	var out []client.File
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("files: stat %s: %w", p, err)
		}
		if info.Size() > maxSize {
			fmt.Fprintf(os.Stderr, "Warning: skipping %s (larger than %d bytes)\n", p, maxSize)
			continue
		}
		if isBinary(p) {
			fmt.Fprintf(os.Stderr, "Warning: skipping binary file %s\n", p)
			continue
		}
		f, err := Load(p)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// LoadDiagram reads a single diagram image.
func (s Selector) LoadDiagram(path string) (*client.File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("files: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("files: %s is a directory", path)
	}
	if info.Size() > s.maxSize() {
		return nil, fmt.Errorf("files: %s is larger than %d bytes", path, s.maxSize())
	}
	f, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Load reads one file into an upload payload named after its base name.
func Load(path string) (client.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return client.File{}, fmt.Errorf("files: read %s: %w", path, err)
	}
	f := client.File{Name: filepath.Base(path), Content: data}
	f.ContentType = f.MediaType()
	return f, nil
}

// Names joins the file names the way the picker displays them.
func Names(files []client.File) string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	return strings.Join(names, ", ")
}

func (s Selector) maxSize() int64 {
	if s.MaxFileSize <= 0 {
		return DefaultMaxFileSize
	}
	return s.MaxFileSize
}

func (s Selector) excluded(path string) bool {
	normalized := filepath.ToSlash(path)
	base := filepath.Base(normalized)
	for _, pattern := range s.Exclude {
		pattern = filepath.ToSlash(pattern)
		if ok, err := doublestar.PathMatch(pattern, normalized); err == nil && ok {
			return true
		}
		if ok, err := doublestar.PathMatch(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}

// inExcludedDir reports whether any directory component of path is one of
// DefaultExcludes.
func inExcludedDir(path string) bool {
	parts := strings.Split(filepath.ToSlash(filepath.Dir(path)), "/")
	for _, part := range parts {
		for _, excl := range DefaultExcludes {
			if strings.EqualFold(part, excl) {
				return true
			}
		}
	}
	return false
}

// isBinary checks the first 512 bytes for NUL.
func isBinary(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return true
	}
	for i := 0; i < n; i++ {
		if buf[i] == 0 {
			return true
		}
	}
	return false
}
