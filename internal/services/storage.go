package services

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
)

type StorageService struct {
	client     *storage.Client
	bucketName string
}

func NewStorageService(client *storage.Client, bucketName string) *StorageService {
	return &StorageService{
		client:     client,
		bucketName: bucketName,
	}
}

// Writes a file to Google Cloud Storage under the given path.
func (s *StorageService) SaveFile(ctx context.Context, filePath string, data []byte, contentType string) error {
	bucket := s.client.Bucket(s.bucketName)
	obj := bucket.Object(filePath)

	writer := obj.NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write object %s: %w", filePath, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize object %s: %w", filePath, err)
	}

	return nil
}

// ObjectURL returns the public download URL for a stored object. The CDN
// in front of the bucket rewrites these; the API only hands out the plain
// storage URL.
func (s *StorageService) ObjectURL(filePath string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucketName, filePath)
}
