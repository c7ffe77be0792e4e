// Package history remembers where playback of each file stopped.
package history

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/metafates/gache"
	"github.com/samber/lo"
	"github.com/spf13/afero"
)

// maxEntries bounds the file; the oldest entries are dropped first.
const maxEntries = 500

// endMargin is how close to either end a position is treated as finished or
// not started.
const endMargin = 2.0

// Entry is the saved state of one file.
type Entry struct {
	Position  float64   `json:"position"`
	Duration  float64   `json:"duration"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists entries keyed by absolute file path.
type Store struct {
	cache *gache.Cache[map[string]Entry]
	now   func() time.Time
}

// gacheFs adapts an afero filesystem to gache.FileSystem.
type gacheFs struct{ fs afero.Fs }

func (g gacheFs) OpenFile(name string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	return g.fs.OpenFile(name, flag, perm)
}

func (g gacheFs) MkdirAll(path string, perm os.FileMode) error {
	return g.fs.MkdirAll(path, perm)
}

// DefaultPath is history.json under the user cache directory.
func DefaultPath(name string) string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, name, "history.json")
}

// Open returns a store backed by path on fs. Nothing is read until used.
func Open(fs afero.Fs, path string) *Store {
	return &Store{
		cache: gache.New[map[string]Entry](&gache.Options{
			Path:       path,
			FileSystem: gacheFs{fs: fs},
		}),
		now: time.Now,
	}
}

func (s *Store) entries() (map[string]Entry, error) {
	cached, expired, err := s.cache.Get()
	if err != nil {
		return nil, err
	}
	if expired || cached == nil {
		return make(map[string]Entry), nil
	}
	return cached, nil
}

func key(file string) string {
	if abs, err := filepath.Abs(file); err == nil {
		return abs
	}
	return file
}

// Position returns where file was left, if it was left somewhere worth
// resuming.
func (s *Store) Position(file string) (float64, bool) {
	all, err := s.entries()
	if err != nil {
		return 0, false
	}
	e, ok := all[key(file)]
	if !ok || !resumable(e.Position, e.Duration) {
		return 0, false
	}
	return e.Position, true
}

// Remember records position for file. Positions near either end clear the
// entry instead.
func (s *Store) Remember(file string, position, duration float64) error {
	all, err := s.entries()
	if err != nil {
		return err
	}
	k := key(file)
	if !resumable(position, duration) {
		if _, ok := all[k]; !ok {
			return nil
		}
		delete(all, k)
		return s.cache.Set(all)
	}

	all[k] = Entry{Position: position, Duration: duration, UpdatedAt: s.now()}
	for len(all) > maxEntries {
		oldest := lo.MinBy(lo.Keys(all), func(a, b string) bool {
			return all[a].UpdatedAt.Before(all[b].UpdatedAt)
		})
		delete(all, oldest)
	}
	return s.cache.Set(all)
}

// Forget drops the entry for file.
func (s *Store) Forget(file string) error {
	all, err := s.entries()
	if err != nil {
		return err
	}
	delete(all, key(file))
	return s.cache.Set(all)
}

func resumable(position, duration float64) bool {
	if position < endMargin {
		return false
	}
	return duration <= 0 || position < duration-endMargin
}
