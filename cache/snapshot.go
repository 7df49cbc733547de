package cache

import (
	"time"

	photarium "github.com/bleeckerj/nfl-photarium-sub000"
)

// Snapshot is one tier's belief about the whole collection at a point in
// time. The record list and its id index always correspond; different tiers'
// snapshots need not agree. Snapshots are immutable: mutation produces a new
// one, so slices handed to callers never change underneath them.
type Snapshot struct {
	Images    []photarium.ImageRecord
	Timestamp time.Time
	index     map[string]int
}

// NewSnapshot builds a snapshot and its id index.
func NewSnapshot(images []photarium.ImageRecord, ts time.Time) *Snapshot {
	s := &Snapshot{
		Images:    images,
		Timestamp: ts,
		index:     make(map[string]int, len(images)),
	}
	for i := range images {
		s.index[images[i].ID] = i
	}
	return s
}

// Lookup returns the record with the given id, or nil.
func (s *Snapshot) Lookup(imageID string) *photarium.ImageRecord {
	i, ok := s.index[imageID]
	if !ok {
		return nil
	}
	rec := s.Images[i]
	return &rec
}

// With returns a copy of the snapshot with rec added or replaced.
func (s *Snapshot) With(rec photarium.ImageRecord) *Snapshot {
	images := make([]photarium.ImageRecord, 0, len(s.Images)+1)
	replaced := false
	for _, r := range s.Images {
		if r.ID == rec.ID {
			images = append(images, rec)
			replaced = true
			continue
		}
		images = append(images, r)
	}
	if !replaced {
		images = append(images, rec)
	}
	return NewSnapshot(images, s.Timestamp)
}

// Without returns a copy of the snapshot with the record removed.
func (s *Snapshot) Without(imageID string) *Snapshot {
	images := make([]photarium.ImageRecord, 0, len(s.Images))
	for _, r := range s.Images {
		if r.ID == imageID {
			continue
		}
		images = append(images, r)
	}
	return NewSnapshot(images, s.Timestamp)
}
