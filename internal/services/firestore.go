package services

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "greenalgeria-api/internal/errors"
	"greenalgeria-api/internal/models"
)

const (
	// DefaultListLimit applies when the caller does not request a limit.
	DefaultListLimit = 100
	// MaxListLimit is the hard cap on a single list query.
	MaxListLimit = 500
)

// ClampLimit normalizes a requested list limit into [1, MaxListLimit],
// with 0 meaning "use the default".
func ClampLimit(limit int) int {
	if limit == 0 {
		return DefaultListLimit
	}
	if limit < 1 {
		return 1
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// ContributionStore persists contributions in a Firestore collection.
type ContributionStore struct {
	client     *firestore.Client
	collection string
}

func NewContributionStore(client *firestore.Client, collection string) *ContributionStore {
	return &ContributionStore{
		client:     client,
		collection: collection,
	}
}

// Ready reports whether the store has a usable connection. Handlers fail
// closed with 503 when it does not.
func (s *ContributionStore) Ready() bool {
	return s != nil && s.client != nil
}

// Create inserts a contribution and returns the store-generated document
// ID. createdAt is stamped when the payload lacks one (the original client
// never sent it, yet listing sorts by it).
func (s *ContributionStore) Create(ctx context.Context, c *models.Contribution) (string, error) {
	if !s.Ready() {
		return "", apperrors.ErrUnavailable
	}
	if c.CreatedAt == 0 {
		c.CreatedAt = models.NowMillis()
	}

	ref := s.client.Collection(s.collection).NewDoc()
	c.ID = ref.ID
	if _, err := ref.Set(ctx, c); err != nil {
		return "", fmt.Errorf("failed to insert contribution: %w", err)
	}

	return ref.ID, nil
}

// List returns up to limit contributions ordered by createdAt descending.
// The limit must already be clamped by the caller.
func (s *ContributionStore) List(ctx context.Context, limit int) ([]*models.Contribution, error) {
	if !s.Ready() {
		return nil, apperrors.ErrUnavailable
	}
	if limit < 1 {
		return nil, fmt.Errorf("limit must be positive")
	}

	query := s.client.Collection(s.collection).
		OrderBy("createdAt", firestore.Desc).
		Limit(limit)

	iter := query.Documents(ctx)
	defer iter.Stop()

	var results []*models.Contribution
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate documents: %w", err)
		}

		var c models.Contribution
		if err := doc.DataTo(&c); err != nil {
			// Log but don't fail on individual document parse errors
			continue
		}
		if c.ID == "" {
			c.ID = doc.Ref.ID
		}

		results = append(results, &c)
	}

	return results, nil
}

// Get retrieves a contribution by document ID.
func (s *ContributionStore) Get(ctx context.Context, id string) (*models.Contribution, error) {
	if !s.Ready() {
		return nil, apperrors.ErrUnavailable
	}

	doc, err := s.client.Collection(s.collection).Doc(id).Get(ctx)
	if err != nil {
		// Check if document not found
		if status.Code(err) == codes.NotFound {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	var c models.Contribution
	if err := doc.DataTo(&c); err != nil {
		return nil, fmt.Errorf("failed to parse contribution: %w", err)
	}
	if c.ID == "" {
		c.ID = doc.Ref.ID
	}

	return &c, nil
}

// Update merges the patch into an existing contribution and stamps
// updatedAt. createdAt is never touched.
func (s *ContributionStore) Update(ctx context.Context, id string, patch *models.ContributionPatch) (*models.Contribution, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	patch.Apply(c)

	if _, err := s.client.Collection(s.collection).Doc(id).Set(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to update contribution: %w", err)
	}

	return c, nil
}

// Delete removes a contribution by document ID. Deleting an unknown ID
// reports not-found rather than succeeding silently.
func (s *ContributionStore) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	if _, err := s.client.Collection(s.collection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete contribution: %w", err)
	}

	return nil
}
