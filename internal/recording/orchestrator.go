package recording

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"aircheck/internal/config"
	"aircheck/internal/encoder"
	"aircheck/internal/logging"
	"aircheck/internal/radiko"
	"aircheck/internal/services"
)

// Authenticator produces session snapshots for the streaming service.
type Authenticator interface {
	Authenticate(ctx context.Context) (radiko.Session, error)
}

// PlaylistSource resolves the ordered segment list for a broadcast window.
type PlaylistSource interface {
	Resolve(ctx context.Context, stationID string, session radiko.Session, window radiko.TimeWindow) ([]radiko.PlaylistEntry, error)
}

// EncoderProcess is one running encoder child fed over stdin.
type EncoderProcess interface {
	Stdin() io.WriteCloser
	Wait(ctx context.Context) error
	Stop()
}

// EncoderStarter launches encoder children.
type EncoderStarter interface {
	Start(ctx context.Context, outputPath string) (EncoderProcess, error)
}

// encoderStarter adapts the concrete encoder client to EncoderStarter.
type encoderStarter struct {
	client *encoder.Client
}

func (s encoderStarter) Start(ctx context.Context, outputPath string) (EncoderProcess, error) {
	proc, err := s.client.Start(ctx, outputPath)
	if err != nil {
		return nil, err
	}
	return proc, nil
}

// OrchestratorOption configures the orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithAuthenticator replaces the default handshake client.
func WithAuthenticator(auth Authenticator) OrchestratorOption {
	return func(o *Orchestrator) {
		if auth != nil {
			o.auth = auth
		}
	}
}

// WithPlaylistSource replaces the default playlist resolver.
func WithPlaylistSource(source PlaylistSource) OrchestratorOption {
	return func(o *Orchestrator) {
		if source != nil {
			o.playlist = source
		}
	}
}

// WithSegmentSource replaces the default segment fetcher.
func WithSegmentSource(source SegmentSource) OrchestratorOption {
	return func(o *Orchestrator) {
		if source != nil {
			o.segments = source
		}
	}
}

// WithEncoderStarter replaces the default encoder client.
func WithEncoderStarter(starter EncoderStarter) OrchestratorOption {
	return func(o *Orchestrator) {
		if starter != nil {
			o.encoder = starter
		}
	}
}

// WithClock overrides the time source used for deadlines and session expiry.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithOrchestratorLogger attaches a logger for job lifecycle events.
func WithOrchestratorLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logging.NewComponentLogger(logger, "recording")
		}
	}
}

// Orchestrator drives one recording job through its status sequence: it
// authenticates, resolves the playlist, streams segments into the encoder,
// and finalizes the output. Collaborators default to the real service
// clients and are replaceable per option for tests.
type Orchestrator struct {
	cfg      *config.Config
	auth     Authenticator
	playlist PlaylistSource
	segments SegmentSource
	encoder  EncoderStarter
	now      func() time.Time
	logger   *slog.Logger
}

// NewOrchestrator wires default clients from configuration.
func NewOrchestrator(cfg *config.Config, opts ...OrchestratorOption) (*Orchestrator, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	o := &Orchestrator{
		cfg:    cfg,
		now:    time.Now,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	if o.auth == nil {
		auth, err := radiko.NewAuthClient(cfg, radiko.WithAuthLogger(o.logger))
		if err != nil {
			return nil, fmt.Errorf("build auth client: %w", err)
		}
		o.auth = auth
	}
	if o.playlist == nil {
		resolver, err := radiko.NewResolver(cfg, radiko.WithResolverLogger(o.logger))
		if err != nil {
			return nil, fmt.Errorf("build playlist resolver: %w", err)
		}
		o.playlist = resolver
	}
	if o.segments == nil {
		segments, err := radiko.NewSegmentClient(cfg, radiko.WithSegmentLogger(o.logger))
		if err != nil {
			return nil, fmt.Errorf("build segment client: %w", err)
		}
		o.segments = segments
	}
	if o.encoder == nil {
		client, err := encoder.New(cfg, encoder.WithLogger(o.logger))
		if err != nil {
			return nil, fmt.Errorf("build encoder client: %w", err)
		}
		o.encoder = encoderStarter{client: client}
	}
	return o, nil
}

// Run executes job to a terminal status and returns the failure cause, if
// any. The whole run shares one deadline: the window duration plus the
// configured safety margin. Run never deletes the output file; whatever was
// flushed before a failure stays on disk for inspection.
func (o *Orchestrator) Run(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	if job.Status != StatusPending {
		return fmt.Errorf("job %s is %s, want %s", job.ID, job.Status, StatusPending)
	}

	budget := job.Window.Duration + time.Duration(o.cfg.Recording.SafetyMargin)*time.Second
	runCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()
	runCtx = services.WithJobID(runCtx, job.ID)
	runCtx = services.WithStation(runCtx, job.Station.ID)

	started := o.now()
	logging.WithContext(runCtx, o.logger).Info("job started",
		logging.String(logging.FieldEventType, "job_start"),
		logging.String("station_name", job.Station.Name),
		logging.String("window_start", radiko.FormatTimestamp(job.Window.Start)),
		logging.String("window_end", radiko.FormatTimestamp(job.Window.End())),
		logging.Duration("budget", budget),
		logging.String("output", job.OutputPath))

	err := o.execute(runCtx, job)
	if err == nil {
		logging.WithContext(runCtx, o.logger).Info("job completed",
			logging.String(logging.FieldEventType, "job_complete"),
			logging.Duration("elapsed", o.now().Sub(started)),
			logging.String("output", job.OutputPath))
		return nil
	}

	err = o.settleFailure(runCtx, budget, err)
	job.SetFailed(err)
	if errors.Is(err, context.Canceled) {
		logging.WithContext(runCtx, o.logger).Warn("job canceled",
			logging.String(logging.FieldEventType, "job_canceled"),
			logging.Duration("elapsed", o.now().Sub(started)))
		return err
	}
	logging.ErrorWithContext(runCtx, o.logger, "job failed",
		logging.Error(err),
		logging.String(logging.FieldErrorCode, services.Kind(err)),
		logging.String(logging.FieldEventType, "job_failed"),
		logging.String(logging.FieldErrorHint, "see error_code for the failing subsystem"),
		logging.String(logging.FieldImpact, fmt.Sprintf("recording %s is incomplete", job.OutputPath)),
		logging.Duration("elapsed", o.now().Sub(started)))
	return err
}

// settleFailure pins the job's root cause. A spent run deadline outranks
// whatever error surfaced beneath it, while plain cancellation passes
// through so callers can treat an interrupt as an interrupt.
func (o *Orchestrator) settleFailure(runCtx context.Context, budget time.Duration, err error) error {
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return services.Wrap(services.ErrJobTimeout, "recording", "run",
			fmt.Sprintf("budget %s exhausted: %v", budget, err), nil)
	}
	return err
}

func (o *Orchestrator) execute(runCtx context.Context, job *Job) error {
	stageCtx, stageLog, err := o.enterStage(runCtx, job, StatusAuthenticating)
	if err != nil {
		return err
	}
	stageStart := o.now()
	session, err := o.auth.Authenticate(stageCtx)
	if err != nil {
		return err
	}
	job.Session = session
	o.stageDone(stageLog, stageStart,
		logging.String("area_id", session.AreaID))

	stageCtx, stageLog, err = o.enterStage(runCtx, job, StatusResolvingPlaylist)
	if err != nil {
		return err
	}
	stageStart = o.now()
	entries, err := o.playlist.Resolve(stageCtx, job.Station.ID, job.Session, job.Window)
	if err != nil {
		return err
	}
	o.stageDone(stageLog, stageStart,
		logging.Int("segment_count", len(entries)))

	return o.capture(runCtx, job, entries)
}

// capture owns the encoder child across the fetching and finalizing stages.
func (o *Orchestrator) capture(runCtx context.Context, job *Job, entries []radiko.PlaylistEntry) error {
	stageCtx, stageLog, err := o.enterStage(runCtx, job, StatusFetching)
	if err != nil {
		return err
	}

	lock, err := o.acquireOutputLock(job.OutputPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = lock.Unlock()
	}()

	proc, err := o.encoder.Start(stageCtx, job.OutputPath)
	if err != nil {
		return err
	}
	defer proc.Stop()

	// If the run deadline fires while the writer is blocked on the pipe,
	// stopping the encoder is what unblocks it.
	watchdogDone := make(chan struct{})
	var watchdogWG sync.WaitGroup
	watchdogWG.Add(1)
	go func() {
		defer watchdogWG.Done()
		select {
		case <-runCtx.Done():
			proc.Stop()
		case <-watchdogDone:
		}
	}()
	defer func() {
		close(watchdogDone)
		watchdogWG.Wait()
	}()

	stageStart := o.now()
	written, err := o.fetchAll(stageCtx, job, entries, proc.Stdin(), stageLog)
	if err != nil {
		return err
	}
	o.stageDone(stageLog, stageStart,
		logging.Int("segment_count", len(entries)),
		logging.Int64("bytes_written", written))

	_, stageLog, err = o.enterStage(runCtx, job, StatusFinalizing)
	if err != nil {
		return err
	}
	stageStart = o.now()
	if err := proc.Stdin().Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return services.Wrap(services.ErrEncoderPipe, "recording", "finalize", "close encoder stdin", err)
	}

	finalizeTimeout := time.Duration(o.cfg.Encoder.FinalizeTimeout) * time.Second
	if finalizeTimeout <= 0 {
		finalizeTimeout = 30 * time.Second
	}
	finalizeCtx, cancel := context.WithTimeout(runCtx, finalizeTimeout)
	defer cancel()
	if err := proc.Wait(finalizeCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && runCtx.Err() == nil {
			return services.Wrap(services.ErrEncoderExit, "encoder", "finalize",
				fmt.Sprintf("no exit within %s of input close", finalizeTimeout), nil)
		}
		return err
	}

	if err := job.Transition(StatusCompleted); err != nil {
		return err
	}
	o.stageDone(stageLog, stageStart)
	return nil
}

// fetchAll streams every playlist entry into sink in order. When the session
// expires between segments it re-authenticates and resumes from the next
// unfetched entry without touching the playlist again.
func (o *Orchestrator) fetchAll(ctx context.Context, job *Job, entries []radiko.PlaylistEntry, sink io.Writer, logger *slog.Logger) (int64, error) {
	pipe := &pipeline{
		source:   o.segments,
		prefetch: o.cfg.Segments.Prefetch,
		now:      o.now,
		logger:   logger,
		sampler:  logging.NewProgressSampler(10),
	}

	var total int64
	next := 0
	for {
		index, written, err := pipe.run(ctx, job.Session, entries, next, sink)
		total += written
		next = index
		if err == nil {
			return total, nil
		}
		if !errors.Is(err, errSessionExpired) {
			return total, err
		}

		logger.Info("session expired, renewing",
			logging.String(logging.FieldEventType, "session_renewal"),
			logging.Int("resume_at", next),
			logging.Int("segment_count", len(entries)))
		session, err := o.auth.Authenticate(ctx)
		if err != nil {
			return total, err
		}
		if session.Expired(o.now()) {
			return total, services.Wrap(services.ErrConfiguration, "recording", "fetch",
				"renewed session expired immediately; raise auth.session_ttl", nil)
		}
		job.Session = session
	}
}

// acquireOutputLock claims the sidecar lock for an output path so two
// recorders cannot interleave writes into the same file.
func (o *Orchestrator) acquireOutputLock(outputPath string) (*flock.Flock, error) {
	lock := flock.New(outputPath + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire output lock: %w", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "recording", "lock",
			fmt.Sprintf("output %s is already being written by another recorder", outputPath), nil)
	}
	return lock, nil
}

// enterStage advances the job and returns a context and logger carrying the
// stage identity, honoring any configured per-stage level override.
func (o *Orchestrator) enterStage(ctx context.Context, job *Job, next Status) (context.Context, *slog.Logger, error) {
	if err := job.Transition(next); err != nil {
		return ctx, o.logger, err
	}
	stageCtx := services.WithStage(ctx, string(next))
	stageCtx = services.WithRequestID(stageCtx, uuid.NewString())
	logger := logging.ApplyStageOverride(o.logger, string(next), o.cfg.Logging.StageOverrides)
	logger = logging.WithContext(stageCtx, logger)
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"))
	return stageCtx, logger, nil
}

func (o *Orchestrator) stageDone(logger *slog.Logger, started time.Time, attrs ...logging.Attr) {
	attrs = append(attrs,
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", o.now().Sub(started)))
	logger.Info("stage completed", logging.Args(attrs...)...)
}
