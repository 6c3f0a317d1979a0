package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// PhotoKind discriminates the three photo representations that coexist in
// the store: no photo, a URL to a stored image, and the legacy inline
// Base64 data URI format.
type PhotoKind int

const (
	PhotoAbsent PhotoKind = iota
	PhotoURL
	PhotoInline
)

// Photo is a tagged string variant. The raw value is kept verbatim (legacy
// inline images must round-trip unchanged); Kind() is the single place that
// inspects the format.
type Photo string

func (p Photo) Kind() PhotoKind {
	switch {
	case p == "":
		return PhotoAbsent
	case strings.HasPrefix(string(p), "data:"):
		return PhotoInline
	default:
		return PhotoURL
	}
}

// On the wire an absent photo is null, matching the original documents.
func (p Photo) MarshalJSON() ([]byte, error) {
	if p == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(p))
}

func (p *Photo) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*p = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("photo must be a string or null: %w", err)
	}
	*p = Photo(s)
	return nil
}

// Contribution is one user-submitted tree-planting record.
// createdAt/updatedAt are epoch milliseconds, the format the existing
// documents already use.
type Contribution struct {
	ID        string  `firestore:"id,omitempty" json:"id,omitempty"`
	Nom       string  `firestore:"nom" json:"nom"`
	Adresse   string  `firestore:"adresse,omitempty" json:"adresse,omitempty"`
	Type      string  `firestore:"type" json:"type"`
	Quantite  int     `firestore:"quantite" json:"quantite"`
	Lat       float64 `firestore:"lat" json:"lat"`
	Lng       float64 `firestore:"lng" json:"lng"`
	Date      *string `firestore:"date" json:"date"`
	Photo     Photo   `firestore:"photo" json:"photo"`
	City      string  `firestore:"city,omitempty" json:"city,omitempty"`
	District  string  `firestore:"district,omitempty" json:"district,omitempty"`
	CreatedAt int64   `firestore:"createdAt" json:"createdAt"`
	UpdatedAt int64   `firestore:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// Edited reports whether the entry has been modified since creation.
func (c *Contribution) Edited() bool {
	return c.UpdatedAt != 0
}

// EnsureDate fills the planting date with the submission time when the
// submitter left it empty, so stored and transmitted entries always carry
// one.
func (c *Contribution) EnsureDate() {
	if c.Date == nil || *c.Date == "" {
		d := time.Now().UTC().Format(time.RFC3339)
		c.Date = &d
	}
}

// ContributionPatch carries the fields an edit may change. Nil fields are
// left untouched; Photo is replaced only when a new one was uploaded.
type ContributionPatch struct {
	Nom      *string  `json:"nom,omitempty"`
	Adresse  *string  `json:"adresse,omitempty"`
	Type     *string  `json:"type,omitempty"`
	Quantite *int     `json:"quantite,omitempty"`
	Lat      *float64 `json:"lat,omitempty"`
	Lng      *float64 `json:"lng,omitempty"`
	Date     *string  `json:"date,omitempty"`
	Photo    *Photo   `json:"photo,omitempty"`
}

// Apply merges the patch into the contribution and stamps updatedAt.
func (p *ContributionPatch) Apply(c *Contribution) {
	if p.Nom != nil {
		c.Nom = *p.Nom
	}
	if p.Adresse != nil {
		c.Adresse = *p.Adresse
	}
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.Quantite != nil {
		c.Quantite = *p.Quantite
	}
	if p.Lat != nil {
		c.Lat = *p.Lat
	}
	if p.Lng != nil {
		c.Lng = *p.Lng
	}
	if p.Date != nil {
		c.Date = p.Date
	}
	if p.Photo != nil {
		c.Photo = *p.Photo
	}
	c.UpdatedAt = NowMillis()
}

// CreateResponse is the body of POST /api/contributions (and the error
// shape shared by all failure responses).
type CreateResponse struct {
	Success    bool   `json:"success"`
	InsertedID string `json:"insertedId,omitempty"`
	Error      string `json:"error,omitempty"`
}

// UploadResponse is the body of POST /api/upload. Lat/Lng/TakenAt are
// suggestions extracted from the photo's EXIF data when present.
type UploadResponse struct {
	URL     string   `json:"url"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
	TakenAt string   `json:"takenAt,omitempty"`
}

// NowMillis returns the current time as epoch milliseconds.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
