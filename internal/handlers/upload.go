package handlers

import (
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"greenalgeria-api/internal/models"
	"greenalgeria-api/internal/utils"
)

// HandleUpload accepts a multipart photo upload, normalizes it (HEIC to
// JPEG, oversized images scaled down), stores it, and returns its URL
// along with any GPS/timestamp suggestions found in the EXIF data.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.photos == nil {
		writeError(w, http.StatusServiceUnavailable, "photo storage not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse upload: "+err.Error())
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing image field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "empty image")
		return
	}

	resp := models.UploadResponse{}

	// EXIF first: conversion and resize both strip it.
	if lat, lng, takenAt, err := utils.ExtractData(data); err == nil {
		resp.Lat = &lat
		resp.Lng = &lng
		resp.TakenAt = takenAt
	}

	name := header.Filename
	mime := header.Header.Get("Content-Type")

	name, mime, data = utils.ConvertIfHeic(name, mime, data)
	mime, data = utils.ResizeIfLarge(mime, data)

	objectPath := "images/" + uuid.New().String() + extensionFor(mime)
	if err := h.photos.SaveFile(r.Context(), objectPath, data, mime); err != nil {
		log.Printf("[Upload] Failed to store %s: %v", name, err)
		writeError(w, http.StatusInternalServerError, "failed to store image")
		return
	}

	resp.URL = h.photos.ObjectURL(objectPath)

	log.Printf("[Upload] Stored %s as %s (%d bytes) in %v", name, objectPath, len(data), time.Since(start))

	writeJSON(w, http.StatusOK, resp)
}

func extensionFor(mime string) string {
	switch mime {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
