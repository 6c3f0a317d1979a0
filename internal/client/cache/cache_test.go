package cache

import (
	"errors"
	"strings"
	"testing"

	"github.com/dgraph-io/badger/v4"

	apperrors "greenalgeria-api/internal/errors"
	"greenalgeria-api/internal/models"
)

func openStore(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func entry(id, nom string) *models.Contribution {
	return &models.Contribution{
		ID:        id,
		Nom:       nom,
		Type:      "olivier",
		Quantite:  1,
		Lat:       36.75,
		Lng:       3.06,
		CreatedAt: models.NowMillis(),
	}
}

func TestAddPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Add(entry("a", "Amine")); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(entry("b", "Yacine")); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened := openStore(t, dir)
	all := reopened.All()
	if len(all) != 2 {
		t.Fatalf("got %d entries after reopen, want 2", len(all))
	}
	// Newest first.
	if all[0].ID != "b" || all[1].ID != "a" {
		t.Errorf("order lost across reopen: %s, %s", all[0].ID, all[1].ID)
	}
}

func TestEdit(t *testing.T) {
	s := openStore(t, t.TempDir())
	e := entry("a", "Amine")
	e.Photo = "https://example.com/a.jpg"
	if err := s.Add(e); err != nil {
		t.Fatal(err)
	}

	nom := "Yacine"
	updated, err := s.Edit("a", &models.ContributionPatch{Nom: &nom})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Nom != "Yacine" {
		t.Errorf("nom = %q, want Yacine", updated.Nom)
	}
	if updated.Photo != "https://example.com/a.jpg" {
		t.Error("photo replaced although the patch carried none")
	}
	if updated.UpdatedAt == 0 {
		t.Error("updatedAt not stamped")
	}

	if _, err := s.Edit("ghost", &models.ContributionPatch{Nom: &nom}); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if got, _ := s.Get("a"); got.Nom != "Yacine" {
		t.Error("failed edit must leave the collection untouched")
	}
}

// When the write does not land, the in-memory collection must still match
// what is on disk.
func TestEditRollsBackOnPersistFailure(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Add(entry("a", "Amine")); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	nom := "Yacine"
	if _, err := s.Edit("a", &models.ContributionPatch{Nom: &nom}); err == nil {
		t.Fatal("expected an error once the store is closed")
	}
	got, ok := s.Get("a")
	if !ok {
		t.Fatal("entry lost")
	}
	if got.Nom != "Amine" {
		t.Errorf("nom = %q after a failed edit, want Amine", got.Nom)
	}
	if got.UpdatedAt != 0 {
		t.Error("updatedAt stamped although the edit never landed")
	}
}

func TestRemove(t *testing.T) {
	s := openStore(t, t.TempDir())
	if err := s.Add(entry("a", "Amine")); err != nil {
		t.Fatal(err)
	}

	if err := s.Remove("a"); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 0 {
		t.Errorf("len = %d after remove, want 0", s.Len())
	}

	if err := s.Remove("a"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestImport(t *testing.T) {
	s := openStore(t, t.TempDir())
	if err := s.Add(entry("a", "Amine")); err != nil {
		t.Fatal(err)
	}

	records := []*models.Contribution{
		entry("a", "duplicate"),
		entry("b", "Yacine"),
		{Nom: "Sans ID", Type: "palmier", Quantite: 0, Lat: 35.0, Lng: 1.0},
	}

	imported, err := s.Import(records)
	if err != nil {
		t.Fatal(err)
	}
	if imported != 2 {
		t.Errorf("imported = %d, want 2 (duplicate skipped)", imported)
	}
	if s.Len() != 3 {
		t.Errorf("len = %d, want 3", s.Len())
	}

	if got, _ := s.Get("a"); got.Nom != "Amine" {
		t.Error("import overwrote an existing entry")
	}

	var synthesized *models.Contribution
	for _, e := range s.All() {
		if e.Nom == "Sans ID" {
			synthesized = e
		}
	}
	if synthesized == nil {
		t.Fatal("record without an id was not imported")
	}
	if !strings.HasPrefix(synthesized.ID, "imp_") {
		t.Errorf("synthesized id = %q, want imp_ prefix", synthesized.ID)
	}
	if synthesized.Quantite != 1 {
		t.Errorf("quantite = %d, want coerced to 1", synthesized.Quantite)
	}
}

func TestImportTwiceIsIdempotent(t *testing.T) {
	s := openStore(t, t.TempDir())

	records := []*models.Contribution{entry("a", "Amine"), entry("b", "Yacine")}
	if _, err := s.Import(records); err != nil {
		t.Fatal(err)
	}

	again, err := s.Import([]*models.Contribution{entry("a", "Amine"), entry("b", "Yacine")})
	if err != nil {
		t.Fatal(err)
	}
	if again != 0 {
		t.Errorf("second import reported %d new entries, want 0", again)
	}
	if s.Len() != 2 {
		t.Errorf("len = %d, want 2", s.Len())
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	s := openStore(t, t.TempDir())
	if err := s.Add(entry("a", "Amine")); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(entry("b", "Yacine")); err != nil {
		t.Fatal(err)
	}

	data, err := s.Export()
	if err != nil {
		t.Fatal(err)
	}

	records, err := ParseExport(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("exported %d records, want 2", len(records))
	}

	other := openStore(t, t.TempDir())
	imported, err := other.Import(records)
	if err != nil {
		t.Fatal(err)
	}
	if imported != 2 {
		t.Errorf("imported = %d, want 2", imported)
	}
}

func TestExportEmpty(t *testing.T) {
	s := openStore(t, t.TempDir())
	data, err := s.Export()
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("empty export = %q, want []", data)
	}
}

func TestParseExportRejectsGarbage(t *testing.T) {
	if _, err := ParseExport([]byte("not json")); err == nil {
		t.Error("expected an error")
	}
}

// A corrupted stored payload must yield an empty collection, not an error.
func TestOpenWithCorruptPayload(t *testing.T) {
	dir := t.TempDir()

	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		t.Fatal(err)
	}
	err = db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(StorageKey), []byte("][ not json"))
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	s := openStore(t, dir)
	if s.Len() != 0 {
		t.Errorf("len = %d for a corrupt payload, want 0", s.Len())
	}
}

// Entries stored with a zero quantity are coerced on load.
func TestOpenCoercesQuantite(t *testing.T) {
	dir := t.TempDir()

	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		t.Fatal(err)
	}
	raw := `[{"id":"a","nom":"Amine","type":"olivier","quantite":0,"lat":36.75,"lng":3.06,"createdAt":1700000000000}]`
	err = db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(StorageKey), []byte(raw))
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	s := openStore(t, dir)
	got, ok := s.Get("a")
	if !ok {
		t.Fatal("entry not loaded")
	}
	if got.Quantite != 1 {
		t.Errorf("quantite = %d, want 1", got.Quantite)
	}
}

func TestIDGenerators(t *testing.T) {
	if id := LocalID(); !strings.HasPrefix(id, "e_") {
		t.Errorf("LocalID() = %q, want e_ prefix", id)
	}
	if id := ImportedID(); !strings.HasPrefix(id, "imp_") {
		t.Errorf("ImportedID() = %q, want imp_ prefix", id)
	}
	if LocalID() == LocalID() {
		t.Error("LocalID() produced a duplicate")
	}
}
