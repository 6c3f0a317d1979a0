package services

import (
	"context"
	"log"

	apperrors "greenalgeria-api/internal/errors"
	"greenalgeria-api/internal/geo"
	"greenalgeria-api/internal/models"
)

// Store is the persistence surface the contribution service needs.
// *ContributionStore implements it; tests substitute fakes.
type Store interface {
	Ready() bool
	Create(ctx context.Context, c *models.Contribution) (string, error)
	List(ctx context.Context, limit int) ([]*models.Contribution, error)
	Get(ctx context.Context, id string) (*models.Contribution, error)
	Update(ctx context.Context, id string, patch *models.ContributionPatch) (*models.Contribution, error)
	Delete(ctx context.Context, id string) error
}

// Geocoder resolves coordinates to locality metadata.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (Locality, error)
}

// ContributionService composes the store, the locality geocoder and the
// sample cache behind the contribution endpoints.
type ContributionService struct {
	store    Store
	geocoder Geocoder // may be nil; locality enrichment is best-effort
	samples  *SampleCache
	boundary *geo.Boundary
}

func NewContributionService(store Store, geocoder Geocoder, samples *SampleCache, boundary *geo.Boundary) *ContributionService {
	return &ContributionService{
		store:    store,
		geocoder: geocoder,
		samples:  samples,
		boundary: boundary,
	}
}

// Ready reports whether the backing store is usable.
func (s *ContributionService) Ready() bool {
	return s.store != nil && s.store.Ready()
}

// Create persists a contribution, filling city/district from the geocoder
// when the submitter left them empty. Geocoding failures never fail the
// insert.
func (s *ContributionService) Create(ctx context.Context, c *models.Contribution) (string, error) {
	if !s.Ready() {
		return "", apperrors.ErrUnavailable
	}

	// Submitting clients validate coordinates before the POST, so an
	// out-of-region point here means an old or misbehaving client. The
	// contract still accepts it; a Nominatim lookup for it is pointless.
	inRegion := s.boundary == nil || s.boundary.Contains(c.Lat, c.Lng)
	if !inRegion {
		log.Printf("[Contribution] Position %.4f,%.4f outside the covered region", c.Lat, c.Lng)
	}

	if inRegion && s.geocoder != nil && c.City == "" && c.District == "" {
		locality, err := s.geocoder.ReverseGeocode(ctx, c.Lat, c.Lng)
		if err != nil {
			log.Printf("[Contribution] Locality lookup failed for %.4f,%.4f: %v", c.Lat, c.Lng, err)
		} else {
			c.City = locality.City
			c.District = locality.District
		}
	}

	id, err := s.store.Create(ctx, c)
	if err != nil {
		return "", err
	}

	if s.samples != nil {
		s.samples.Invalidate()
	}

	return id, nil
}

// List returns contributions newest-first. The requested limit is clamped
// to [1, MaxListLimit] (default 100); results are served from the sample
// cache when a fresh enough copy exists.
func (s *ContributionService) List(ctx context.Context, limit int) ([]*models.Contribution, error) {
	if !s.Ready() {
		return nil, apperrors.ErrUnavailable
	}

	limit = ClampLimit(limit)

	if s.samples != nil {
		if cached, ok := s.samples.Get(limit); ok {
			log.Printf("[Contribution] Cache hit: limit=%d", limit)
			return cached, nil
		}
	}

	results, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, err
	}

	if s.samples != nil {
		s.samples.Set(limit, results)
	}

	return results, nil
}

// Update merges an edit into a stored contribution.
func (s *ContributionService) Update(ctx context.Context, id string, patch *models.ContributionPatch) (*models.Contribution, error) {
	if !s.Ready() {
		return nil, apperrors.ErrUnavailable
	}

	c, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	if s.samples != nil {
		s.samples.Invalidate()
	}

	return c, nil
}

// Delete removes a stored contribution.
func (s *ContributionService) Delete(ctx context.Context, id string) error {
	if !s.Ready() {
		return apperrors.ErrUnavailable
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	if s.samples != nil {
		s.samples.Invalidate()
	}

	return nil
}
