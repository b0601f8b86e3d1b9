package scanner

import (
	"bufio"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// IgnorePattern is one line of a .cegarignore file. The syntax is a subset
// of gitignore: '#' comments, '!' negation, a trailing '/' for directories
// and a leading '/' (or any inner '/') to anchor the glob to the directory
// holding the ignore file. A leading "**/" unanchors a pattern again.
type IgnorePattern struct {
	base     string
	glob     string
	negate   bool
	dirOnly  bool
	anchored bool
}

// ParseIgnorePattern parses a pattern found in the ignore file of base, a
// slash separated path relative to the scan root ("" for the root).
func ParseIgnorePattern(base, line string) IgnorePattern {
	p := IgnorePattern{base: base}
	if rest, ok := strings.CutPrefix(line, "!"); ok {
		p.negate = true
		line = rest
	}
	if rest, ok := strings.CutSuffix(line, "/"); ok {
		p.dirOnly = true
		line = rest
	}
	if rest, ok := strings.CutPrefix(line, "**/"); ok {
		line = rest
	} else if rest, ok := strings.CutPrefix(line, "/"); ok {
		p.anchored = true
		line = rest
	} else if strings.Contains(line, "/") {
		p.anchored = true
	}
	p.glob = line
	return p
}

// Match reports whether the root-relative slash path rel is matched.
// Negation is left to the caller.
func (p IgnorePattern) Match(rel string, isDir bool) bool {
	if p.dirOnly && !isDir {
		return false
	}
	if p.base != "" {
		rest, ok := strings.CutPrefix(rel, p.base+"/")
		if !ok {
			return false
		}
		rel = rest
	}
	name := rel
	if !p.anchored {
		name = path.Base(rel)
	}
	ok, err := path.Match(p.glob, name)
	return err == nil && ok
}

func (p IgnorePattern) IsNegation() bool { return p.negate }

// ignored applies patterns in order; the last match wins.
func ignored(rel string, isDir bool, patterns []IgnorePattern) bool {
	out := false
	for _, p := range patterns {
		if p.Match(rel, isDir) {
			out = !p.negate
		}
	}
	return out
}

// loadIgnoreFile reads the ignore file in dir. A missing file yields no
// patterns.
func loadIgnoreFile(dir, base, name string) ([]IgnorePattern, error) {
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var patterns []IgnorePattern
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, ParseIgnorePattern(base, line))
	}
	return patterns, sc.Err()
}
