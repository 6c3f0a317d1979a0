// Package api is the HTTP client for the contribution service.
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	apperrors "greenalgeria-api/internal/errors"
	"greenalgeria-api/internal/geo"
	"greenalgeria-api/internal/models"
)

// Client talks to the contribution API. Submissions are validated locally,
// including the region boundary check, before any request goes out.
type Client struct {
	baseURL    string
	apiKey     string
	boundary   *geo.Boundary
	httpClient *http.Client
}

func New(baseURL, apiKey string, boundary *geo.Boundary) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		boundary:   boundary,
		httpClient: &http.Client{},
	}
}

// ValidateSubmission enforces the rules a submission must pass before it
// is sent: name and species present, a positive quantity, and coordinates
// inside the covered region.
func (c *Client) ValidateSubmission(contrib *models.Contribution) error {
	if strings.TrimSpace(contrib.Nom) == "" {
		return fmt.Errorf("missing nom: %w", apperrors.ErrInvalidInput)
	}
	if strings.TrimSpace(contrib.Type) == "" {
		return fmt.Errorf("missing type: %w", apperrors.ErrInvalidInput)
	}
	if contrib.Quantite < 1 {
		return fmt.Errorf("quantite must be at least 1: %w", apperrors.ErrInvalidInput)
	}
	if !c.boundary.Contains(contrib.Lat, contrib.Lng) {
		return fmt.Errorf("position %.4f,%.4f: %w", contrib.Lat, contrib.Lng, apperrors.ErrOutsideBoundary)
	}
	return nil
}

// Submit validates and creates a contribution, returning the id the store
// assigned. Provisional client-side ids are not sent.
func (c *Client) Submit(ctx context.Context, contrib *models.Contribution) (string, error) {
	if err := c.ValidateSubmission(contrib); err != nil {
		return "", err
	}

	payload := *contrib
	payload.ID = ""
	body, err := json.Marshal(&payload)
	if err != nil {
		return "", fmt.Errorf("failed to serialize contribution: %w", err)
	}

	var created models.CreateResponse
	if err := c.do(ctx, http.MethodPost, "/api/contributions", body, &created); err != nil {
		return "", err
	}
	if !created.Success {
		return "", fmt.Errorf("submission rejected: %s", created.Error)
	}
	return created.InsertedID, nil
}

// List fetches the newest contributions. A non-positive limit lets the
// server apply its default.
func (c *Client) List(ctx context.Context, limit int) ([]*models.Contribution, error) {
	path := "/api/contributions"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var out []*models.Contribution
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Latest fetches the most recent contribution, or nil when none exist.
func (c *Client) Latest(ctx context.Context) (*models.Contribution, error) {
	out, err := c.List(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

// Update applies a partial edit to an existing contribution.
func (c *Client) Update(ctx context.Context, id string, patch *models.ContributionPatch) (*models.Contribution, error) {
	body, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize patch: %w", err)
	}

	var updated models.Contribution
	if err := c.do(ctx, http.MethodPut, "/api/contributions/"+url.PathEscape(id), body, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a contribution by id.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/contributions/"+url.PathEscape(id), nil, nil)
}

// Upload sends a photo and returns its public URL along with any
// positional metadata the server extracted from it.
func (c *Client) Upload(ctx context.Context, filename string, data []byte) (*models.UploadResponse, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w: %v", apperrors.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var uploaded models.UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return nil, fmt.Errorf("invalid upload response: %w", err)
	}
	return &uploaded, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w: %v", apperrors.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid response body: %w", err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	var failure models.CreateResponse
	if err := json.Unmarshal(raw, &failure); err == nil && failure.Error != "" {
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%s: %w", failure.Error, apperrors.ErrNotFound)
		}
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, failure.Error)
	}
	if resp.StatusCode == http.StatusNotFound {
		return apperrors.ErrNotFound
	}
	return fmt.Errorf("server error (%d)", resp.StatusCode)
}
