package services

import (
	"testing"
	"time"

	"greenalgeria-api/internal/models"
)

func TestSampleCache(t *testing.T) {
	entries := []*models.Contribution{{ID: "a"}}

	t.Run("hit within ttl", func(t *testing.T) {
		sc := NewSampleCache(time.Minute, time.Hour)
		sc.Set(1, entries)

		got, ok := sc.Get(1)
		if !ok || len(got) != 1 || got[0].ID != "a" {
			t.Errorf("Get(1) = %v, %v", got, ok)
		}
	})

	t.Run("miss on an unseen limit", func(t *testing.T) {
		sc := NewSampleCache(time.Minute, time.Hour)
		sc.Set(1, entries)

		if _, ok := sc.Get(100); ok {
			t.Error("unexpected hit for a different limit")
		}
	})

	t.Run("expired entry misses", func(t *testing.T) {
		sc := NewSampleCache(-time.Second, time.Hour)
		sc.Set(1, entries)

		if _, ok := sc.Get(1); ok {
			t.Error("expired entry served")
		}
	})

	t.Run("invalidate drops everything", func(t *testing.T) {
		sc := NewSampleCache(time.Minute, time.Hour)
		sc.Set(1, entries)
		sc.Set(100, entries)
		sc.Invalidate()

		if _, ok := sc.Get(1); ok {
			t.Error("entry survived invalidation")
		}
		if _, ok := sc.Get(100); ok {
			t.Error("entry survived invalidation")
		}
	})
}
