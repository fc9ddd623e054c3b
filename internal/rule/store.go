package rule

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/selact/internal/logging"
)

// Store errors.
var (
	ErrNoRulesFound = errors.New("no importable rules found")
)

// Store holds the loaded rule set and keeps it fresh. The set is replaced
// wholesale on every reload; callers always work on snapshots.
type Store struct {
	mu      sync.RWMutex
	path    string
	rules   []Rule
	lastMod time.Time

	log      *logging.Logger
	onReload func(count int)

	watcher *fsnotify.Watcher
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the store's logger.
func WithLogger(l *logging.Logger) StoreOption {
	return func(s *Store) { s.log = l }
}

// WithReloadHook registers a callback invoked after each successful reload
// with the new rule count.
func WithReloadHook(fn func(count int)) StoreOption {
	return func(s *Store) { s.onReload = fn }
}

// NewStore creates a store backed by the actions file at path. If the file
// does not exist the built-in defaults are served and the path is where a
// later Save will land.
func NewStore(path string, opts ...StoreOption) *Store {
	s := &Store{
		path: path,
		log:  logging.NullLogger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithComponent("rulestore")
	s.reloadIfNeeded()
	if len(s.rules) == 0 {
		s.log.Info("no actions file found, using built-in defaults")
		s.mu.Lock()
		s.rules = Defaults()
		s.mu.Unlock()
	}
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// Actions returns a fresh snapshot of the current rule set. The file's
// modification time is checked on every call so triggers always match
// against the latest saved rules, never a stale cache.
func (s *Store) Actions() []Rule {
	s.reloadIfNeeded()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Save replaces the rule set on disk and reloads it. The write is atomic:
// a temp file in the same directory is renamed over the target.
func (s *Store) Save(rules []Rule) error {
	data, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal rules: %w", err)
	}
	if err := s.writeAtomic(data); err != nil {
		return err
	}
	s.ForceReload()
	s.log.Info("saved %d rules to %s", len(rules), s.path)
	return nil
}

// Import merges rules from an external file into the stored set, replacing
// entries with the same meta.id. The file may hold a rule array or a single
// rule object. Returns the number of rules imported.
//
// The merge is performed on the raw JSON document so fields this version
// does not model survive a round trip.
func (s *Store) Import(path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read import file: %w", err)
	}

	incoming := gjson.ParseBytes(content)
	var items []gjson.Result
	switch {
	case incoming.IsArray():
		items = incoming.Array()
	case incoming.IsObject():
		items = []gjson.Result{incoming}
	default:
		return 0, fmt.Errorf("%s: not a rule or rule list", path)
	}
	if len(items) == 0 {
		return 0, ErrNoRulesFound
	}

	existing, err := os.ReadFile(s.path)
	if err != nil {
		existing = []byte("[]")
	}
	if !gjson.ParseBytes(existing).IsArray() {
		existing = []byte("[]")
	}

	count := 0
	for _, item := range items {
		id := item.Get("meta.id").String()
		if id == "" {
			continue
		}
		// Drop any existing rule with the same id, then append.
		for {
			idx := indexOfID(existing, id)
			if idx < 0 {
				break
			}
			existing, err = sjson.DeleteBytes(existing, fmt.Sprintf("%d", idx))
			if err != nil {
				return count, fmt.Errorf("merge rules: %w", err)
			}
		}
		existing, err = sjson.SetRawBytes(existing, "-1", []byte(item.Raw))
		if err != nil {
			return count, fmt.Errorf("merge rules: %w", err)
		}
		count++
	}
	if count == 0 {
		return 0, ErrNoRulesFound
	}

	if err := s.writeAtomic(existing); err != nil {
		return count, err
	}
	s.ForceReload()
	s.log.Info("imported %d rules from %s", count, path)
	return count, nil
}

// ForceReload resets the modification stamp and reloads from disk.
func (s *Store) ForceReload() {
	s.mu.Lock()
	s.lastMod = time.Time{}
	s.mu.Unlock()
	s.reloadIfNeeded()
}

// Watch starts a filesystem watcher on the actions file's directory and
// reloads when the file changes. Close stops it.
func (s *Store) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("rule watcher: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	s.watcher = w

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					s.reloadIfNeeded()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.log.Warn("rule watcher error: %v", err)
			}
		}
	}()
	return nil
}

// Close stops the filesystem watcher if one is running.
func (s *Store) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

// reloadIfNeeded reloads the actions file when its modification time has
// advanced past the last load.
func (s *Store) reloadIfNeeded() {
	info, err := os.Stat(s.path)
	if err != nil {
		return
	}
	mod := info.ModTime()

	s.mu.RLock()
	stale := mod.After(s.lastMod)
	s.mu.RUnlock()
	if !stale {
		return
	}

	content, err := os.ReadFile(s.path)
	if err != nil {
		s.log.Warn("read actions file: %v", err)
		return
	}

	var loaded []Rule
	if err := json.Unmarshal(content, &loaded); err != nil {
		s.log.Warn("parse actions file: %v", err)
		return
	}

	compiled := loaded[:0]
	seen := make(map[ID]bool, len(loaded))
	for i := range loaded {
		r := loaded[i]
		if err := r.Validate(); err != nil {
			s.log.Warn("skipping rule: %v", err)
			continue
		}
		if seen[r.Meta.ID] {
			s.log.Warn("duplicate rule id %q, keeping first", r.Meta.ID)
			continue
		}
		seen[r.Meta.ID] = true
		if err := r.Compile(); err != nil {
			// Kept but excluded from matching; see Rule.TriggerMatches.
			s.log.Warn("trigger pattern failed to compile: %v", err)
		}
		compiled = append(compiled, r)
	}

	s.mu.Lock()
	s.rules = compiled
	s.lastMod = mod
	s.mu.Unlock()

	s.log.Info("loaded %d rules from %s", len(compiled), s.path)
	if s.onReload != nil {
		s.onReload(len(compiled))
	}
}

// writeAtomic writes data to the store path via a same-directory temp file.
func (s *Store) writeAtomic(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".actions-*.json")
	if err != nil {
		return fmt.Errorf("write rules: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write rules: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write rules: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write rules: %w", err)
	}
	return nil
}

// indexOfID returns the array index of the rule with the given meta.id,
// or -1.
func indexOfID(doc []byte, id string) int {
	idx := -1
	gjson.ParseBytes(doc).ForEach(func(key, value gjson.Result) bool {
		if value.Get("meta.id").String() == id {
			idx = int(key.Int())
			return false
		}
		return true
	})
	return idx
}
