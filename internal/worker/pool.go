// Package worker provides background processing for track analysis jobs.
package worker

import (
	"context"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/harmonia-labs/cadenza/internal/core/domain"
	"github.com/harmonia-labs/cadenza/internal/core/ports"
	"github.com/harmonia-labs/cadenza/internal/core/services"
)

// Job represents a background analysis task for one track: refine the
// energy estimate from the preview stream when one is available, then
// compose and persist the 12-D feature vector.
type Job struct {
	TrackID     string
	Descriptors domain.RawDescriptors
	PreviewURL  string
}

// Pool manages background workers for analysis jobs.
type Pool struct {
	repo     ports.TrackRepository
	composer *services.VectorComposer
	log      *zap.SugaredLogger
	jobs     chan Job
	wg       sync.WaitGroup
}

// NewPool creates a worker pool with the given queue size.
func NewPool(repo ports.TrackRepository, composer *services.VectorComposer, queueSize int, log *zap.SugaredLogger) *Pool {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pool{
		repo:     repo,
		composer: composer,
		log:      log,
		jobs:     make(chan Job, queueSize),
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.processJob(job)
			}
		}()
	}
}

// Stop waits for workers to finish after closing the queue.
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
}

// Submit queues a job without blocking.
func (p *Pool) Submit(job Job) {
	select {
	case p.jobs <- job:
	default:
		p.log.Warnw("worker: dropping job", "track", job.TrackID)
	}
}

func (p *Pool) processJob(job Job) {
	ctx := context.Background()
	desc := job.Descriptors

	aux := map[string]float64{
		"source_bpm": desc.BPM,
	}

	if job.PreviewURL != "" {
		energy, err := EstimatePreviewEnergyFunc(job.PreviewURL)
		if err != nil {
			p.log.Warnw("worker: preview analysis failed", "track", job.TrackID, "error", err)
		} else {
			desc.Energy = energy
			aux["preview_energy"] = energy
			p.updateTrackEnergy(ctx, job.TrackID, energy)
		}
	}

	vector := p.composer.Compose(desc)
	if err := p.repo.SaveVector(ctx, job.TrackID, vector, aux); err != nil {
		p.log.Warnw("worker: failed to save vector", "track", job.TrackID, "error", err)
		return
	}
	p.log.Infow("worker: track analyzed", "track", job.TrackID)
}

func (p *Pool) updateTrackEnergy(ctx context.Context, trackID string, energy float64) {
	track, err := p.repo.GetTrack(ctx, trackID)
	if err != nil {
		p.log.Warnw("worker: failed to load track for energy update", "track", trackID, "error", err)
		return
	}

	level := int(math.Round(energy * 10))
	if level < 1 {
		level = 1
	}
	track.Energy = &level

	if err := p.repo.SaveTrack(ctx, track); err != nil {
		p.log.Warnw("worker: failed to update track energy", "track", trackID, "error", err)
	}
}
