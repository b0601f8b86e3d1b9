// Package scanner finds model files below a directory. It respects
// .cegarignore files with gitignore-style patterns and recognises models by
// their declared kind.
package scanner

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/l3aro/go-cegar/internal/model"
)

// FileInfo describes a discovered model file.
type FileInfo struct {
	Path     string     // Relative path from root, slash separated
	FullPath string     // Absolute path
	Kind     model.Kind // Declared model kind
	Size     int64      // File size in bytes
}

// Options configures the scanner behavior.
type Options struct {
	SkipHidden      bool     // Skip hidden files and directories (starting with .)
	DefaultExcludes []string // Directory names that are never entered
	IgnoreFileName  string   // Name of the ignore file (default: .cegarignore)
	Extensions      []string // Lower-case file extensions considered
}

// DefaultOptions returns scanner options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		SkipHidden:      true,
		IgnoreFileName:  ".cegarignore",
		Extensions:      []string{".yaml", ".yml"},
		DefaultExcludes: []string{"node_modules", "vendor", ".git", ".cegar"},
	}
}

// Scanner walks a directory tree.
type Scanner struct {
	opts Options
}

func New(opts Options) *Scanner {
	if opts.IgnoreFileName == "" {
		opts.IgnoreFileName = ".cegarignore"
	}
	return &Scanner{opts: opts}
}

// Scan returns the model files below root in lexical order. Unreadable
// entries are skipped.
func (s *Scanner) Scan(root string) ([]FileInfo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}
	patterns, err := loadIgnoreFile(absRoot, "", s.opts.IgnoreFileName)
	if err != nil {
		return nil, fmt.Errorf("loading ignore patterns: %w", err)
	}

	var files []FileInfo
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == absRoot {
				return err
			}
			return nil
		}
		rel, err := filepath.Rel(absRoot, path)
		if err != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if s.skipDir(d.Name()) || ignored(rel, true, patterns) {
				return filepath.SkipDir
			}
			nested, err := loadIgnoreFile(path, rel, s.opts.IgnoreFileName)
			if err == nil {
				patterns = append(patterns, nested...)
			}
			return nil
		}

		if !d.Type().IsRegular() || (s.opts.SkipHidden && isHidden(d.Name())) {
			return nil
		}
		if !hasExt(d.Name(), s.opts.Extensions) || ignored(rel, false, patterns) {
			return nil
		}
		kind, ok := SniffKind(path)
		if !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, FileInfo{Path: rel, FullPath: path, Kind: kind, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}
	return files, nil
}

func (s *Scanner) skipDir(name string) bool {
	if s.opts.SkipHidden && isHidden(name) {
		return true
	}
	for _, exclude := range s.opts.DefaultExcludes {
		if strings.EqualFold(name, exclude) {
			return true
		}
	}
	return false
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// Scan scans root with default options.
func Scan(root string) ([]FileInfo, error) {
	return New(DefaultOptions()).Scan(root)
}
