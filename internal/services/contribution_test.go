package services

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "greenalgeria-api/internal/errors"
	"greenalgeria-api/internal/geo"
	"greenalgeria-api/internal/models"
)

type fakeStore struct {
	ready      bool
	insertedID string
	createErr  error
	created    *models.Contribution
	listed     []*models.Contribution
	listCalls  int
	lastLimit  int
	updateErr  error
	deleteErr  error
}

func (f *fakeStore) Ready() bool { return f.ready }

func (f *fakeStore) Create(_ context.Context, c *models.Contribution) (string, error) {
	f.created = c
	return f.insertedID, f.createErr
}

func (f *fakeStore) List(_ context.Context, limit int) ([]*models.Contribution, error) {
	f.listCalls++
	f.lastLimit = limit
	return f.listed, nil
}

func (f *fakeStore) Get(_ context.Context, id string) (*models.Contribution, error) {
	for _, c := range f.listed {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeStore) Update(ctx context.Context, id string, patch *models.ContributionPatch) (*models.Contribution, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	c, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(c)
	return c, nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	return f.deleteErr
}

type fakeGeocoder struct {
	locality Locality
	err      error
	calls    int
}

func (f *fakeGeocoder) ReverseGeocode(_ context.Context, lat, lng float64) (Locality, error) {
	f.calls++
	return f.locality, f.err
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, DefaultListLimit},
		{-5, 1},
		{1, 1},
		{250, 250},
		{MaxListLimit, MaxListLimit},
		{9999, MaxListLimit},
	}
	for _, tc := range tests {
		if got := ClampLimit(tc.in); got != tc.want {
			t.Errorf("ClampLimit(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestServiceCreate(t *testing.T) {
	t.Run("fills locality", func(t *testing.T) {
		store := &fakeStore{ready: true, insertedID: "doc1"}
		geocoder := &fakeGeocoder{locality: Locality{City: "Alger", District: "Bab El Oued"}}
		svc := NewContributionService(store, geocoder, nil, nil)

		id, err := svc.Create(context.Background(), &models.Contribution{Nom: "Amine", Lat: 36.75, Lng: 3.06})
		if err != nil {
			t.Fatal(err)
		}
		if id != "doc1" {
			t.Errorf("id = %q, want doc1", id)
		}
		if store.created.City != "Alger" || store.created.District != "Bab El Oued" {
			t.Errorf("locality not filled: %+v", store.created)
		}
	})

	t.Run("geocoder failure does not block the insert", func(t *testing.T) {
		store := &fakeStore{ready: true, insertedID: "doc1"}
		geocoder := &fakeGeocoder{err: errors.New("nominatim down")}
		svc := NewContributionService(store, geocoder, nil, nil)

		if _, err := svc.Create(context.Background(), &models.Contribution{Nom: "Amine"}); err != nil {
			t.Fatalf("insert failed on a geocoding error: %v", err)
		}
	})

	t.Run("submitted locality wins", func(t *testing.T) {
		store := &fakeStore{ready: true, insertedID: "doc1"}
		geocoder := &fakeGeocoder{locality: Locality{City: "Alger"}}
		svc := NewContributionService(store, geocoder, nil, nil)

		if _, err := svc.Create(context.Background(), &models.Contribution{Nom: "Amine", City: "Oran"}); err != nil {
			t.Fatal(err)
		}
		if geocoder.calls != 0 {
			t.Error("geocoder consulted although the city was given")
		}
		if store.created.City != "Oran" {
			t.Errorf("city = %q, want Oran", store.created.City)
		}
	})

	t.Run("out-of-region inserts skip geocoding but still land", func(t *testing.T) {
		store := &fakeStore{ready: true, insertedID: "doc1"}
		geocoder := &fakeGeocoder{locality: Locality{City: "Alger"}}
		svc := NewContributionService(store, geocoder, nil, geo.Approximate())

		id, err := svc.Create(context.Background(), &models.Contribution{Nom: "Amine", Lat: 48.85, Lng: 2.35})
		if err != nil {
			t.Fatal(err)
		}
		if id != "doc1" {
			t.Errorf("id = %q, want doc1", id)
		}
		if geocoder.calls != 0 {
			t.Error("geocoder consulted for an out-of-region position")
		}
	})

	t.Run("not ready", func(t *testing.T) {
		svc := NewContributionService(&fakeStore{}, nil, nil, nil)
		if _, err := svc.Create(context.Background(), &models.Contribution{}); !errors.Is(err, apperrors.ErrUnavailable) {
			t.Errorf("err = %v, want ErrUnavailable", err)
		}
	})
}

func TestServiceList(t *testing.T) {
	entries := []*models.Contribution{{ID: "a", CreatedAt: 2000}, {ID: "b", CreatedAt: 1000}}

	t.Run("clamps the limit", func(t *testing.T) {
		store := &fakeStore{ready: true, listed: entries}
		svc := NewContributionService(store, nil, nil, nil)

		if _, err := svc.List(context.Background(), 9999); err != nil {
			t.Fatal(err)
		}
		if store.lastLimit != MaxListLimit {
			t.Errorf("store received limit %d, want %d", store.lastLimit, MaxListLimit)
		}

		if _, err := svc.List(context.Background(), 0); err != nil {
			t.Fatal(err)
		}
		if store.lastLimit != DefaultListLimit {
			t.Errorf("store received limit %d, want %d", store.lastLimit, DefaultListLimit)
		}
	})

	t.Run("serves repeats from the sample cache", func(t *testing.T) {
		store := &fakeStore{ready: true, listed: entries}
		samples := NewSampleCache(time.Minute, time.Hour)
		svc := NewContributionService(store, nil, samples, nil)

		for i := 0; i < 3; i++ {
			got, err := svc.List(context.Background(), 100)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 2 {
				t.Fatalf("got %d entries, want 2", len(got))
			}
		}
		if store.listCalls != 1 {
			t.Errorf("store queried %d times, want 1", store.listCalls)
		}
	})

	t.Run("writes invalidate the cache", func(t *testing.T) {
		store := &fakeStore{ready: true, listed: entries, insertedID: "doc2"}
		samples := NewSampleCache(time.Minute, time.Hour)
		svc := NewContributionService(store, nil, samples, nil)

		if _, err := svc.List(context.Background(), 100); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.Create(context.Background(), &models.Contribution{Nom: "Amine", City: "Alger"}); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.List(context.Background(), 100); err != nil {
			t.Fatal(err)
		}
		if store.listCalls != 2 {
			t.Errorf("store queried %d times after a write, want 2", store.listCalls)
		}
	})

	t.Run("not ready", func(t *testing.T) {
		svc := NewContributionService(&fakeStore{}, nil, nil, nil)
		if _, err := svc.List(context.Background(), 10); !errors.Is(err, apperrors.ErrUnavailable) {
			t.Errorf("err = %v, want ErrUnavailable", err)
		}
	})
}

func TestServiceUpdateDelete(t *testing.T) {
	entries := []*models.Contribution{{ID: "a", Nom: "Amine", CreatedAt: 2000}}

	t.Run("update applies the patch", func(t *testing.T) {
		store := &fakeStore{ready: true, listed: entries}
		svc := NewContributionService(store, nil, nil, nil)

		nom := "Yacine"
		got, err := svc.Update(context.Background(), "a", &models.ContributionPatch{Nom: &nom})
		if err != nil {
			t.Fatal(err)
		}
		if got.Nom != "Yacine" || got.UpdatedAt == 0 {
			t.Errorf("patch not applied: %+v", got)
		}
	})

	t.Run("update unknown id", func(t *testing.T) {
		store := &fakeStore{ready: true}
		svc := NewContributionService(store, nil, nil, nil)

		if _, err := svc.Update(context.Background(), "ghost", &models.ContributionPatch{}); !errors.Is(err, apperrors.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("delete invalidates the cache", func(t *testing.T) {
		store := &fakeStore{ready: true, listed: entries}
		samples := NewSampleCache(time.Minute, time.Hour)
		svc := NewContributionService(store, nil, samples, nil)

		if _, err := svc.List(context.Background(), 100); err != nil {
			t.Fatal(err)
		}
		if err := svc.Delete(context.Background(), "a"); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.List(context.Background(), 100); err != nil {
			t.Fatal(err)
		}
		if store.listCalls != 2 {
			t.Errorf("store queried %d times after a delete, want 2", store.listCalls)
		}
	})
}
