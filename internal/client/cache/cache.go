// Package cache is the client data cache: a durable local mirror of
// contributions that drives list/map rendering while offline. The whole
// collection lives under one named key in a local key-value store, the
// same shape the browser client keeps in localStorage.
package cache

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	apperrors "greenalgeria-api/internal/errors"
	"greenalgeria-api/internal/models"
)

// StorageKey is the named entry holding the serialized contribution array.
const StorageKey = "algerie_verte_v3"

// Store keeps the ordered contribution collection (newest first) in memory
// and persists it as a whole on every mutation.
type Store struct {
	db      *badger.DB
	mu      sync.Mutex
	entries []*models.Contribution
}

// Open loads the collection from the key-value store at dir. A missing key
// or an unparseable payload yields an empty collection, never an error:
// local state is best-effort by design.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	s := &Store{db: db}
	s.load()
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) load() {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(StorageKey))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if err != badger.ErrKeyNotFound {
			log.Printf("[Cache] Failed to read local store: %v", err)
		}
		s.entries = nil
		return
	}

	var entries []*models.Contribution
	if err := json.Unmarshal(raw, &entries); err != nil {
		log.Printf("[Cache] Parse error, starting from an empty collection: %v", err)
		s.entries = nil
		return
	}

	// Old exports carry quantite as 0 or negative; coerce on load.
	for _, e := range entries {
		if e.Quantite < 1 {
			e.Quantite = 1
		}
	}
	s.entries = entries
}

// persist writes the whole collection under the storage key. Callers hold
// the mutex.
func (s *Store) persist() error {
	raw, err := json.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("failed to serialize collection: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(StorageKey), raw)
	})
	if err != nil {
		return fmt.Errorf("failed to persist collection: %w", err)
	}
	return nil
}

// All returns a copy of the collection in order (newest first).
func (s *Store) All() []*models.Contribution {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Contribution, len(s.entries))
	copy(out, s.entries)
	return out
}

// Get looks an entry up by id.
func (s *Store) Get(id string) (*models.Contribution, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.ID == id {
			return e, true
		}
	}
	return nil, false
}

// Len returns the number of cached entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Add prepends a new entry and persists the collection.
func (s *Store) Add(c *models.Contribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append([]*models.Contribution{c}, s.entries...)
	return s.persist()
}

// Edit merges the patch into the entry with the given id and stamps
// updatedAt. An unknown id or a persist failure reports an error and
// leaves the collection untouched (the patch is applied to a copy and
// swapped in only once the write lands). The photo is replaced only when
// the patch carries one.
func (s *Store) Edit(id string, patch *models.ContributionPatch) (*models.Contribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.entries {
		if e.ID == id {
			updated := *e
			patch.Apply(&updated)
			s.entries[i] = &updated
			if err := s.persist(); err != nil {
				s.entries[i] = e
				return nil, err
			}
			return &updated, nil
		}
	}
	return nil, fmt.Errorf("contribution %s: %w", id, apperrors.ErrNotFound)
}

// Remove filters the entry out and persists. The caller is responsible for
// having confirmed the deletion with the user first.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	found := false
	for _, e := range s.entries {
		if e.ID == id {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	if !found {
		return fmt.Errorf("contribution %s: %w", id, apperrors.ErrNotFound)
	}

	s.entries = kept
	return s.persist()
}

// Import merges records into the collection: records without an id get one
// synthesized, records whose id already exists are silently skipped, the
// rest are prepended. Returns the number actually imported, so importing
// the same file twice reports zero the second time.
func (s *Store) Import(records []*models.Contribution) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make(map[string]struct{}, len(s.entries))
	for _, e := range s.entries {
		existing[e.ID] = struct{}{}
	}

	imported := 0
	for _, rec := range records {
		if rec.ID == "" {
			rec.ID = ImportedID()
		}
		if rec.Quantite < 1 {
			rec.Quantite = 1
		}
		if _, ok := existing[rec.ID]; ok {
			continue
		}
		existing[rec.ID] = struct{}{}
		s.entries = append([]*models.Contribution{rec}, s.entries...)
		imported++
	}

	if imported > 0 {
		if err := s.persist(); err != nil {
			return 0, err
		}
	}
	return imported, nil
}

// Export serializes the full collection as a pretty-printed JSON array,
// the same document shape Import accepts.
func (s *Store) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entries == nil {
		return []byte("[]"), nil
	}
	return json.MarshalIndent(s.entries, "", "  ")
}

// ParseExport decodes an exported document.
func ParseExport(data []byte) ([]*models.Contribution, error) {
	var records []*models.Contribution
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("invalid import file: %w", err)
	}
	return records, nil
}

// LocalID generates a provisional client-side id for a new submission,
// replaced by the store-assigned id once the server persists it.
func LocalID() string {
	return fmt.Sprintf("e_%d_%s", time.Now().UnixMilli(), shortID())
}

// ImportedID marks ids synthesized during import.
func ImportedID() string {
	return fmt.Sprintf("imp_%d_%s", time.Now().UnixMilli(), shortID())
}

func shortID() string {
	return uuid.New().String()[:8]
}
