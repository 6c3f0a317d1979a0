package handlers

import (
	"context"

	"greenalgeria-api/internal/models"
)

// ContributionAPI is what the handlers need from the contribution service.
// Implemented by *services.ContributionService; tests use fakes.
type ContributionAPI interface {
	Ready() bool
	Create(ctx context.Context, c *models.Contribution) (string, error)
	List(ctx context.Context, limit int) ([]*models.Contribution, error)
	Update(ctx context.Context, id string, patch *models.ContributionPatch) (*models.Contribution, error)
	Delete(ctx context.Context, id string) error
}

// PhotoStorage is the upload surface for contribution photos.
type PhotoStorage interface {
	SaveFile(ctx context.Context, filePath string, data []byte, contentType string) error
	ObjectURL(filePath string) string
}

type Handler struct {
	contributions  ContributionAPI
	photos         PhotoStorage
	maxUploadBytes int64
}

func New(contributions ContributionAPI, photos PhotoStorage, maxUploadBytes int64) *Handler {
	return &Handler{
		contributions:  contributions,
		photos:         photos,
		maxUploadBytes: maxUploadBytes,
	}
}
