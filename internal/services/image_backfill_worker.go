package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/codyseavey/deckistry/internal/metrics"
	"github.com/codyseavey/deckistry/internal/models"
)

const (
	defaultBackfillInterval  = time.Hour
	defaultBackfillBatchSize = 50
)

// ImageBackfillWorker periodically re-fetches cached cards that have no
// image and writes the image fields back.
type ImageBackfillWorker struct {
	cache     *CardCache
	interval  time.Duration
	batchSize int

	mu      sync.RWMutex
	lastRun time.Time
	updated int
}

// BackfillStatus is reported by the worker for monitoring
type BackfillStatus struct {
	LastRun      time.Time `json:"last_run"`
	CardsUpdated int       `json:"cards_updated"`
	Interval     string    `json:"interval"`
	BatchSize    int       `json:"batch_size"`
}

func NewImageBackfillWorker(cache *CardCache, interval time.Duration, batchSize int) *ImageBackfillWorker {
	if interval <= 0 {
		interval = defaultBackfillInterval
	}
	if batchSize <= 0 {
		batchSize = defaultBackfillBatchSize
	}
	return &ImageBackfillWorker{cache: cache, interval: interval, batchSize: batchSize}
}

// Start runs a batch immediately and then on every interval until ctx is done
func (w *ImageBackfillWorker) Start(ctx context.Context) {
	log.Printf("Image backfill worker started: up to %d cards every %v", w.batchSize, w.interval)

	w.runLogged(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Image backfill worker stopping...")
			return
		case <-ticker.C:
			w.runLogged(ctx)
		}
	}
}

func (w *ImageBackfillWorker) runLogged(ctx context.Context) {
	updated, err := w.RunBatch(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Image backfill worker: batch failed: %v", err)
		return
	}
	if updated > 0 {
		log.Printf("Image backfill worker: updated images of %d cards", updated)
	}
}

// RunBatch processes one batch and returns how many cards now have an image.
// A remote failure on one card does not stop the batch.
func (w *ImageBackfillWorker) RunBatch(ctx context.Context) (int, error) {
	metrics.CardDatabaseSize.Set(float64(w.cache.Count()))

	ids, err := w.cache.MissingImages(w.batchSize)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		ok, err := w.cache.BackfillImages(ctx, id)
		switch {
		case errors.Is(err, models.ErrCardNotFound):
			metrics.ImageBackfillTotal.WithLabelValues("missing").Inc()
		case err != nil:
			metrics.ImageBackfillTotal.WithLabelValues("failed").Inc()
			log.Printf("Warning: image backfill of card %s failed: %v", id, err)
		case ok:
			metrics.ImageBackfillTotal.WithLabelValues("updated").Inc()
			updated++
		default:
			metrics.ImageBackfillTotal.WithLabelValues("missing").Inc()
		}
	}

	w.mu.Lock()
	w.lastRun = time.Now()
	w.updated += updated
	w.mu.Unlock()
	return updated, nil
}

func (w *ImageBackfillWorker) Status() BackfillStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return BackfillStatus{
		LastRun:      w.lastRun,
		CardsUpdated: w.updated,
		Interval:     w.interval.String(),
		BatchSize:    w.batchSize,
	}
}
