// Package history persists saved assessments as a single newest-first JSON
// collection in a kv.Storage, plus the per-installation device identifier.
package history

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/hpungsan/nihss/internal/kv"
	"github.com/hpungsan/nihss/internal/scale"
)

// Storage keys. These are part of the on-disk layout.
const (
	AssessmentsKey = "nihss-assessments"
	DeviceIDKey    = "nihss-device-id"
)

// Store is the assessment history. A Store without storage (New(nil)) is
// the non-interactive guard: reads return empty results and writes do nothing.
// Operations are read-modify-write on the whole collection. Writes through
// one Store are serialized; separate Stores over the same storage are
// last-write-wins.
type Store struct {
	mu         sync.Mutex
	storage    kv.Storage
	log        zerolog.Logger
	now        func() time.Time
	exportsDir string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for fail-soft recoveries.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithClock overrides time.Now, used for export timestamps and device ids.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithExportsDir sets the default directory for file exports and imports.
func WithExportsDir(dir string) Option {
	return func(s *Store) { s.exportsDir = dir }
}

// New creates a Store over storage. A nil storage yields the no-op guard.
func New(storage kv.Storage, opts ...Option) *Store {
	s := &Store{
		storage: storage,
		log:     zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Available reports whether the store has a storage substrate.
func (s *Store) Available() bool {
	return s != nil && s.storage != nil
}

// ListResult is the outcome of reading the collection. When the stored
// payload could not be read or parsed, Assessments is empty, Recovered is
// true and Err holds the cause. Recovery is not a failure.
type ListResult struct {
	Assessments []scale.Assessment
	Recovered   bool
	Err         error
}

// List returns the collection, newest first.
func (s *Store) List() ListResult {
	if !s.Available() {
		return ListResult{Assessments: []scale.Assessment{}}
	}

	records, err := s.read()
	if err != nil {
		s.log.Warn().Err(err).Str("key", AssessmentsKey).Msg("history unreadable, treating as empty")
		return ListResult{Assessments: []scale.Assessment{}, Recovered: true, Err: err}
	}
	return ListResult{Assessments: records}
}

// Save prepends a to the collection and persists the whole collection.
// Saving never deduplicates by id.
func (s *Store) Save(a scale.Assessment) error {
	if !s.Available() {
		s.log.Debug().Str("id", a.ID).Msg("no storage, save skipped")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readForWrite()
	if err != nil {
		return err
	}

	records = slices.Insert(records, 0, a)
	if err := s.write(records); err != nil {
		return err
	}

	s.log.Debug().Str("id", a.ID).Int("total", a.TotalScore).Int("count", len(records)).Msg("assessment saved")
	return nil
}

// Get returns the record with the given id. found is false when no record matches.
func (s *Store) Get(id string) (a scale.Assessment, found bool) {
	for _, rec := range s.List().Assessments {
		if rec.ID == id {
			return rec, true
		}
	}
	return scale.Assessment{}, false
}

// Delete removes every record with the given id and persists the rest.
// Deleting an absent id is a no-op.
func (s *Store) Delete(id string) error {
	if !s.Available() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readForWrite()
	if err != nil {
		return err
	}

	kept := slices.DeleteFunc(slices.Clone(records), func(a scale.Assessment) bool {
		return a.ID == id
	})
	if len(kept) == len(records) {
		return nil
	}

	if err := s.write(kept); err != nil {
		return err
	}
	s.log.Debug().Str("id", id).Msg("assessment deleted")
	return nil
}

// ClearAll removes the collection from storage. The device id is kept.
func (s *Store) ClearAll() error {
	if !s.Available() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Remove(AssessmentsKey); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// ExportAll returns the collection as indented JSON.
func (s *Store) ExportAll() (string, error) {
	data, err := json.MarshalIndent(s.List().Assessments, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal history: %w", err)
	}
	return string(data), nil
}

// DeviceID returns the installation identifier, generating and persisting
// it on first use. Without storage it returns "".
func (s *Store) DeviceID() (string, error) {
	if !s.Available() {
		return "", nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok, err := s.storage.Get(DeviceIDKey)
	if err != nil {
		return "", fmt.Errorf("read device id: %w", err)
	}
	if ok && strings.TrimSpace(id) != "" {
		return id, nil
	}

	uid, err := ulid.New(ulid.Timestamp(s.now()), ulid.Monotonic(rand.Reader, 0))
	if err != nil {
		return "", fmt.Errorf("generate device id: %w", err)
	}
	id = "device-" + strings.ToLower(uid.String())

	if err := s.storage.Set(DeviceIDKey, id); err != nil {
		return "", fmt.Errorf("store device id: %w", err)
	}
	s.log.Info().Str("device_id", id).Msg("device id generated")
	return id, nil
}

// read loads and parses the collection. A missing key is an empty collection.
func (s *Store) read() ([]scale.Assessment, error) {
	payload, ok, err := s.storage.Get(AssessmentsKey)
	if err != nil {
		return nil, &readError{err: err}
	}
	if !ok {
		return []scale.Assessment{}, nil
	}

	var records []scale.Assessment
	if err := json.Unmarshal([]byte(payload), &records); err != nil {
		return nil, &parseError{err: err}
	}
	if records == nil {
		records = []scale.Assessment{}
	}
	return records, nil
}

// readForWrite loads the collection for a read-modify-write cycle.
// A corrupt payload is replaced (treated as empty); a storage failure aborts
// the write so a transient error cannot wipe history.
func (s *Store) readForWrite() ([]scale.Assessment, error) {
	records, err := s.read()
	if err == nil {
		return records, nil
	}
	if _, ok := err.(*parseError); ok {
		s.log.Warn().Err(err).Str("key", AssessmentsKey).Msg("replacing unparseable history")
		return []scale.Assessment{}, nil
	}
	return nil, err
}

func (s *Store) write(records []scale.Assessment) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	if err := s.storage.Set(AssessmentsKey, string(data)); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}

type parseError struct{ err error }

func (e *parseError) Error() string { return "parse history: " + e.err.Error() }
func (e *parseError) Unwrap() error { return e.err }

type readError struct{ err error }

func (e *readError) Error() string { return "read history: " + e.err.Error() }
func (e *readError) Unwrap() error { return e.err }
