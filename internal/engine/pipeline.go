package engine

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"cdrecon/internal/config"
	"cdrecon/internal/jobs"
	"cdrecon/internal/logging"
	"cdrecon/internal/recon"
	"cdrecon/internal/report"
)

// Pipeline drives queued reconciliation jobs through their lifecycle.
type Pipeline struct {
	cfg    *config.Config
	store  *jobs.Store
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewPipeline constructs the job processor.
func NewPipeline(cfg *config.Config, store *jobs.Store, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Start launches the polling loop. Interrupted jobs from a previous run are
// reset to pending first so they are retried rather than stranded.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("pipeline already running")
	}

	reset, err := p.store.ResetStuck(ctx)
	if err != nil {
		return err
	}
	if reset > 0 {
		p.logger.Info("reset interrupted jobs", logging.Int64("count", reset))
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	go p.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for the loop to exit.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	cancel()
	<-done
}

func (p *Pipeline) run(ctx context.Context) {
	defer close(p.done)

	interval := time.Duration(p.cfg.Server.PollInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		p.drainPending(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// drainPending claims and processes jobs until the queue is empty or the
// context is cancelled.
func (p *Pipeline) drainPending(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		job, err := p.store.ClaimNextPending(ctx)
		if err != nil {
			p.logger.Error("claim pending job", logging.Error(err))
			return
		}
		if job == nil {
			return
		}
		p.processJob(ctx, job)
	}
}

func (p *Pipeline) processJob(ctx context.Context, job *jobs.Job) {
	logger := p.logger.With(
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String(logging.FieldSessionID, uuid.NewString()),
	)
	logger.Info("processing job", logging.String("token", job.Token))

	outcome, err := p.executeJob(ctx, job, logger)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Shutdown mid-job: leave it for ResetStuck on the next start.
			logger.Info("job interrupted by shutdown")
			return
		}
		logger.Error("job failed", logging.Error(err))
		if failErr := p.store.MarkFailed(ctx, job.ID, err.Error()); failErr != nil {
			logger.Error("record job failure", logging.Error(failErr))
		}
		return
	}

	summaryJSON, err := outcome.SummaryJSON()
	if err != nil {
		logger.Error("serialize summary", logging.Error(err))
		_ = p.store.MarkFailed(ctx, job.ID, err.Error())
		return
	}
	if err := p.store.MarkCompleted(ctx, job.ID, summaryJSON, p.reportDir(job)); err != nil {
		logger.Error("record job completion", logging.Error(err))
		return
	}
	logger.Info("job completed",
		logging.Int("matched", outcome.Summary.Matched),
		logging.Float64("match_rate", outcome.Summary.MatchRate),
	)
}

// executeJob runs the three pipeline stages with store transitions between
// them so job listings reflect live progress.
func (p *Pipeline) executeJob(ctx context.Context, job *jobs.Job, logger *slog.Logger) (*Outcome, error) {
	day, err := ParseDay(job.ReconDate)
	if err != nil {
		return nil, err
	}

	params := Params{
		CarrierAPath: job.CarrierAPath,
		CarrierBPath: job.CarrierBPath,
		OutputDir:    p.reportDir(job),
		Day:          day,
		Matching: recon.Config{
			MaxTimeDelta:     job.TimeTolerance,
			MaxDurationDelta: job.DurationTolerance,
			GroupCeiling:     job.GroupCeiling,
			Workers:          p.cfg.Matching.Workers,
		},
	}

	stageLogger := logger.With(logging.String(logging.FieldStage, string(jobs.StatusNormalizing)))
	outA, outB, err := loadRecords(p.cfg, stageLogger, params)
	if err != nil {
		return nil, err
	}

	if err := p.store.Transition(ctx, job.ID, jobs.StatusNormalizing, jobs.StatusMatching); err != nil {
		return nil, err
	}
	result, err := recon.Reconcile(ctx, outA.Records, outB.Records, params.Matching)
	if err != nil {
		return nil, err
	}

	if err := p.store.Transition(ctx, job.ID, jobs.StatusMatching, jobs.StatusReporting); err != nil {
		return nil, err
	}
	summary := report.BuildSummary(p.cfg.Carriers.A.Name, p.cfg.Carriers.B.Name, outA, outB, result, params.Matching)
	writer := report.NewWriter(params.OutputDir, p.cfg.Carriers.A.Name, p.cfg.Carriers.B.Name, p.cfg.Reports.Formats)
	files, err := writer.Write(result, summary)
	if err != nil {
		return nil, err
	}

	return &Outcome{
		Summary:  summary,
		Files:    files,
		Result:   result,
		RejectsA: outA.Rejects,
		RejectsB: outB.Rejects,
	}, nil
}

func (p *Pipeline) reportDir(job *jobs.Job) string {
	return filepath.Join(p.cfg.JobsDir(), job.Token, "reports")
}
