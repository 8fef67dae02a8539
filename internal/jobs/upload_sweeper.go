package jobs

import (
	"context"
	"log"
	"time"

	"docreview/internal/metrics"
	"docreview/internal/storage"
)

// ReferenceLister returns the storage keys still referenced by attachments.
type ReferenceLister interface {
	AttachmentFilenames(ctx context.Context) (map[string]struct{}, error)
}

// UploadSweeper removes uploaded files that no attachment references. Files
// younger than minAge are left alone so in-flight uploads are not raced.
type UploadSweeper struct {
	refs     ReferenceLister
	files    storage.Store
	interval time.Duration
	minAge   time.Duration
	now      func() time.Time
}

// NewUploadSweeper creates a new upload sweeper.
func NewUploadSweeper(refs ReferenceLister, files storage.Store, interval, minAge time.Duration) *UploadSweeper {
	return &UploadSweeper{
		refs:     refs,
		files:    files,
		interval: interval,
		minAge:   minAge,
		now:      time.Now,
	}
}

// Start begins the background sweep loop.
func (s *UploadSweeper) Start(ctx context.Context) {
	log.Printf("Upload sweeper started (interval: %v, minAge: %v)", s.interval, s.minAge)

	// Run immediately on start
	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Upload sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs one pass and returns the number of files removed.
func (s *UploadSweeper) Sweep(ctx context.Context) int {
	referenced, err := s.refs.AttachmentFilenames(ctx)
	if err != nil {
		log.Printf("Upload sweeper: failed to load references: %v", err)
		return 0
	}

	files, err := s.files.List()
	if err != nil {
		log.Printf("Upload sweeper: failed to list files: %v", err)
		return 0
	}

	cutoff := s.now().Add(-s.minAge)
	removed := 0
	for _, f := range files {
		select {
		case <-ctx.Done():
			return removed
		default:
		}

		if _, ok := referenced[f.Name]; ok || f.ModTime.After(cutoff) {
			continue
		}
		if err := s.files.Remove(f.Name); err != nil {
			log.Printf("Upload sweeper: failed to remove %s: %v", f.Name, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		log.Printf("Upload sweeper: removed %d orphaned files", removed)
		metrics.RecordSweptUploads(removed)
	}
	return removed
}
