package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrNoStoreDir is returned when a PrecStore has no directory to persist to.
var ErrNoStoreDir = errors.New("no precision store directory set")

// PrecEntry is a precision learned for one model under one abstract domain.
// Predicates are kept in their textual form and re-parsed on load.
type PrecEntry struct {
	ModelHash string    `msgpack:"model_hash" json:"model_hash"`
	Domain    string    `msgpack:"domain" json:"domain"`
	Vars      []string  `msgpack:"vars" json:"vars"`
	Preds     []string  `msgpack:"preds" json:"preds"`
	UpdatedAt time.Time `msgpack:"updated_at" json:"updated_at"`
}

// Key identifies the entry in a store.
func (e PrecEntry) Key() string { return precKey(e.ModelHash, e.Domain) }

func precKey(hash, domain string) string { return hash + "." + domain }

// PrecStore persists learned precisions under dir/<hash>.<domain>.msgpack,
// with an LRU in front of the files.
type PrecStore struct {
	dir   string
	cache *LRUCache
}

// NewPrecStore creates a store rooted at dir. The directory is created on
// the first Put.
func NewPrecStore(dir string, maxEntries int) *PrecStore {
	return &PrecStore{dir: dir, cache: New(Options{MaxSize: maxEntries})}
}

func (s *PrecStore) path(key string) string {
	return filepath.Join(s.dir, key+".msgpack")
}

// Get returns the entry for a model and domain. A missing entry is not an
// error.
func (s *PrecStore) Get(hash, domain string) (PrecEntry, bool, error) {
	key := precKey(hash, domain)
	if v, ok := s.cache.Get(key); ok {
		return v.(PrecEntry), true, nil
	}
	if s.dir == "" {
		return PrecEntry{}, false, nil
	}

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return PrecEntry{}, false, nil
		}
		return PrecEntry{}, false, fmt.Errorf("failed to read precision %s: %w", key, err)
	}
	var e PrecEntry
	if err := msgpack.Unmarshal(data, &e); err != nil {
		return PrecEntry{}, false, fmt.Errorf("failed to decode precision %s: %w", key, err)
	}
	s.cache.Set(key, e)
	return e, true, nil
}

// Put writes the entry, merging it with what is already stored so that a
// warm start never loses vars or predicates.
func (s *PrecStore) Put(e PrecEntry) error {
	if s.dir == "" {
		return ErrNoStoreDir
	}
	old, ok, err := s.Get(e.ModelHash, e.Domain)
	if err != nil {
		return err
	}
	if ok {
		e.Vars = union(old.Vars, e.Vars)
		e.Preds = union(old.Preds, e.Preds)
	} else {
		e.Vars = union(nil, e.Vars)
		e.Preds = union(nil, e.Preds)
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now().UTC()
	}

	data, err := msgpack.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode precision: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create precision store: %w", err)
	}
	tmp := s.path(e.Key()) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write precision: %w", err)
	}
	if err := os.Rename(tmp, s.path(e.Key())); err != nil {
		return fmt.Errorf("failed to write precision: %w", err)
	}
	s.cache.Set(e.Key(), e)
	return nil
}

// Delete removes an entry from memory and disk.
func (s *PrecStore) Delete(hash, domain string) error {
	key := precKey(hash, domain)
	s.cache.Delete(key)
	if s.dir == "" {
		return nil
	}
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
