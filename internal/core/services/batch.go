package services

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/harmonia-labs/cadenza/internal/core/ports"
)

// DefaultBatchParallelism bounds the similarity sweep worker count.
// The per-track computations are independent, so a small pool is
// enough to keep the store busy without flooding it.
const DefaultBatchParallelism = 2

// BatchResult summarizes one similarity sweep. Failed units are
// skipped and counted; one bad record never stops the run.
type BatchResult struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// SimilarityBatch computes and persists the top-K similar list for
// every eligible track in the library.
type SimilarityBatch struct {
	repo     ports.TrackRepository
	engine   *SimilarityEngine
	topK     int
	parallel int
	log      *zap.SugaredLogger
}

// NewSimilarityBatch constructs a batch processor. topK and parallel
// fall back to the package defaults when non-positive.
func NewSimilarityBatch(repo ports.TrackRepository, engine *SimilarityEngine, topK, parallel int, log *zap.SugaredLogger) *SimilarityBatch {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if parallel <= 0 {
		parallel = DefaultBatchParallelism
	}
	return &SimilarityBatch{
		repo:     repo,
		engine:   engine,
		topK:     topK,
		parallel: parallel,
		log:      log,
	}
}

// ProcessAll sweeps the library, computing and storing similar-track
// lists. limit caps how many anchors are processed (0 means all); it
// is a cutoff between per-track units, not preemptive cancellation,
// though a cancelled context stops the sweep between units too.
func (b *SimilarityBatch) ProcessAll(ctx context.Context, limit int) (BatchResult, error) {
	tracks, err := b.repo.ListCandidates(ctx, "", true)
	if err != nil {
		return BatchResult{}, fmt.Errorf("similarity batch: list tracks: %w", err)
	}
	if limit > 0 && len(tracks) > limit {
		tracks = tracks[:limit]
	}

	ids := make(chan string)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var result BatchResult

	for i := 0; i < b.parallel; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range ids {
				if err := b.processOne(ctx, id); err != nil {
					b.log.Warnw("similarity batch: track skipped", "track", id, "error", err)
					mu.Lock()
					result.Failed++
					mu.Unlock()
					continue
				}
				mu.Lock()
				result.Processed++
				mu.Unlock()
			}
		}()
	}

	for _, t := range tracks {
		if ctx.Err() != nil {
			break
		}
		ids <- t.ID
	}
	close(ids)
	wg.Wait()

	return result, ctx.Err()
}

func (b *SimilarityBatch) processOne(ctx context.Context, id string) error {
	similar, err := b.engine.SimilarTo(ctx, id, b.topK)
	if err != nil {
		return err
	}
	if _, err := b.repo.SaveSimilarTracks(ctx, id, similar); err != nil {
		return err
	}
	return nil
}
