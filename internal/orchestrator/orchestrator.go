// Package orchestrator owns the refresh lifecycle: pulling submissions,
// persisting the snapshot, and rebuilding the dashboard document. At most one
// refresh runs at a time; concurrent triggers are rejected, never queued.
package orchestrator

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sahan-field/surveyqc/internal/config"
	"github.com/sahan-field/surveyqc/internal/dataset"
	"github.com/sahan-field/surveyqc/internal/quality"
	"github.com/sahan-field/surveyqc/internal/report"
)

// ErrBusy is returned when a refresh is triggered while one is running.
var ErrBusy = eris.New("orchestrator: refresh already in progress")

// Fetcher pulls the current submission export.
type Fetcher interface {
	Fetch(ctx context.Context) (*dataset.Table, error)
}

// Status is the externally visible refresh state.
type Status struct {
	Running     bool      `json:"running"`
	RunID       string    `json:"run_id,omitempty"`
	LastAttempt time.Time `json:"last_attempt,omitzero"`
	LastSuccess time.Time `json:"last_success,omitzero"`
	LastError   string    `json:"last_error,omitempty"`
	RecordCount int       `json:"record_count"`
	HasReport   bool      `json:"has_report"`
}

// Orchestrator coordinates fetch, snapshot, and report generation.
type Orchestrator struct {
	cfg     *config.Config
	fetcher Fetcher
	now     func() time.Time

	mu     sync.Mutex
	status Status

	docMu sync.RWMutex
	doc   *report.Document
	html  []byte
}

// New builds an orchestrator. now defaults to time.Now and exists for tests.
func New(cfg *config.Config, fetcher Fetcher) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		fetcher: fetcher,
		now:     time.Now,
	}
}

// Status returns a copy of the current refresh state.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Document returns the current dashboard document, or nil before the first
// successful build.
func (o *Orchestrator) Document() *report.Document {
	o.docMu.RLock()
	defer o.docMu.RUnlock()
	return o.doc
}

// HTML returns the current rendered page, or nil before the first build.
func (o *Orchestrator) HTML() []byte {
	o.docMu.RLock()
	defer o.docMu.RUnlock()
	return o.html
}

// TriggerRefresh starts a refresh in the background. Returns ErrBusy without
// queueing if one is already running.
func (o *Orchestrator) TriggerRefresh(ctx context.Context) (string, error) {
	runID, err := o.begin()
	if err != nil {
		return "", err
	}
	go func() {
		err := o.run(ctx, runID, true)
		o.finish(runID, err)
	}()
	return runID, nil
}

// RunRefresh fetches, persists, and rebuilds synchronously. Returns ErrBusy
// if a refresh is already running.
func (o *Orchestrator) RunRefresh(ctx context.Context) error {
	runID, err := o.begin()
	if err != nil {
		return err
	}
	err = o.run(ctx, runID, true)
	o.finish(runID, err)
	return err
}

// Rebuild regenerates the dashboard from the existing snapshot without
// contacting the API. Used at startup and by the render command.
func (o *Orchestrator) Rebuild(ctx context.Context) error {
	runID, err := o.begin()
	if err != nil {
		return err
	}
	err = o.run(ctx, runID, false)
	o.finish(runID, err)
	return err
}

// Loop runs refreshes on the configured interval until ctx is cancelled.
// It refreshes once immediately so the dashboard is never stale at startup.
func (o *Orchestrator) Loop(ctx context.Context) {
	interval := o.cfg.Refresh.Interval()
	if interval <= 0 {
		interval = time.Hour
	}

	log := zap.L().With(zap.String("component", "orchestrator.loop"))
	log.Info("starting refresh loop", zap.Duration("interval", interval))

	o.refreshOnce(ctx, log)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("refresh loop stopped")
			return
		case <-ticker.C:
			o.refreshOnce(ctx, log)
		}
	}
}

func (o *Orchestrator) refreshOnce(ctx context.Context, log *zap.Logger) {
	if err := o.RunRefresh(ctx); err != nil {
		if eris.Is(err, ErrBusy) {
			log.Warn("scheduled refresh skipped, previous run still in progress")
			return
		}
		log.Error("scheduled refresh failed", zap.Error(err))
	}
}

func (o *Orchestrator) begin() (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status.Running {
		return "", ErrBusy
	}
	runID := uuid.NewString()
	o.status.Running = true
	o.status.RunID = runID
	o.status.LastAttempt = o.now()
	return runID, nil
}

func (o *Orchestrator) finish(runID string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status.Running = false
	o.status.RunID = ""
	if err != nil {
		o.status.LastError = err.Error()
		zap.L().Error("refresh failed",
			zap.String("run_id", runID),
			zap.Error(err),
		)
		return
	}
	o.status.LastError = ""
	o.status.LastSuccess = o.now()
}

// run executes one refresh. With fetch set, it pulls from the API and replaces
// the snapshot; a failed fetch leaves the previous snapshot and report intact.
// Without fetch, it rebuilds from whatever snapshot is on disk.
func (o *Orchestrator) run(ctx context.Context, runID string, fetch bool) error {
	log := zap.L().With(zap.String("run_id", runID))
	started := o.now()

	var t *dataset.Table
	if fetch {
		fetched, err := o.fetcher.Fetch(ctx)
		if err != nil {
			return eris.Wrap(err, "orchestrator: fetch")
		}
		t = dataset.Normalize(fetched, o.cfg.Survey)
		if err := dataset.SaveCSV(t, o.cfg.Storage.DataFile); err != nil {
			return eris.Wrap(err, "orchestrator: save snapshot")
		}
		log.Info("snapshot saved",
			zap.String("file", o.cfg.Storage.DataFile),
			zap.Int("records", t.Len()),
		)
	} else {
		loaded, err := o.loadSnapshot()
		if err != nil {
			return err
		}
		t = loaded
	}

	doc, err := o.build(ctx, t)
	if err != nil {
		return err
	}

	html, err := report.RenderHTML(doc)
	if err != nil {
		return err
	}
	if err := report.WriteHTML(doc, o.cfg.Storage.DashboardFile); err != nil {
		return err
	}

	o.docMu.Lock()
	o.doc = doc
	o.html = html
	o.docMu.Unlock()

	o.mu.Lock()
	o.status.RecordCount = t.Len()
	o.status.HasReport = true
	o.mu.Unlock()

	log.Info("dashboard rebuilt",
		zap.Int("records", t.Len()),
		zap.Int("sections", len(doc.Sections)),
		zap.Duration("elapsed", o.now().Sub(started)),
	)
	return nil
}

// loadSnapshot reads the persisted CSV. A missing file is the empty dataset,
// not an error, so a fresh deployment still renders the placeholder page.
func (o *Orchestrator) loadSnapshot() (*dataset.Table, error) {
	t, err := dataset.LoadCSV(o.cfg.Storage.DataFile)
	if err != nil {
		if os.IsNotExist(eris.Cause(err)) {
			zap.L().Info("no snapshot on disk yet", zap.String("file", o.cfg.Storage.DataFile))
			return &dataset.Table{}, nil
		}
		return nil, eris.Wrap(err, "orchestrator: load snapshot")
	}
	return t, nil
}

func (o *Orchestrator) build(ctx context.Context, t *dataset.Table) (*report.Document, error) {
	now := o.now()
	if t.Len() == 0 {
		return report.Placeholder(o.cfg, now), nil
	}

	cols := dataset.ResolveColumns(t, o.cfg.Survey.ColumnMapping)
	flags := quality.Classify(t, cols, o.cfg.Survey)
	scores := quality.Score(t, cols, flags, o.cfg.Quality, now)

	agg, err := report.Collect(ctx, t, cols, flags, o.cfg, now)
	if err != nil {
		return nil, eris.Wrap(err, "orchestrator: aggregate")
	}
	return report.Assemble(t, cols, flags, scores, agg, o.cfg, now), nil
}
