package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rocketship-ai/rpbdd/internal/bdd"
	"github.com/rocketship-ai/rpbdd/internal/config"
	"github.com/rocketship-ai/rpbdd/internal/reportportal"
)

// Name identifies this agent in launch attributes
const Name = "rpbdd"

// Version is overridden at build time with -ldflags
var Version = "dev"

// SkipTag marks a feature or scenario that must not run
const SkipTag = "skip"

// ErrNoParent is returned when a child item is started before its parent
var ErrNoParent = errors.New("parent item is not started")

// Reporter is the part of the ReportPortal client the agent drives
type Reporter interface {
	LaunchUUID() string
	StartLaunch(ctx context.Context, rq reportportal.StartLaunchRQ) (string, error)
	FinishLaunch(ctx context.Context, rq reportportal.FinishExecutionRQ) error
	StartTestItem(ctx context.Context, rq reportportal.StartTestItemRQ) (string, error)
	FinishTestItem(ctx context.Context, id string, rq reportportal.FinishTestItemRQ) error
	Log(ctx context.Context, rq reportportal.SaveLogRQ) error
	Close(ctx context.Context) error
}

// NewReporter builds a ReportPortal client for cfg, or returns nil when
// reporting is disabled
func NewReporter(cfg *config.Config) Reporter {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	return reportportal.New(reportportal.Options{
		Endpoint:            cfg.Endpoint,
		Project:             cfg.Project,
		APIKey:              cfg.APIKey,
		LaunchUUID:          cfg.LaunchID,
		Retries:             cfg.Retries,
		Timeout:             cfg.HTTPTimeout,
		LogBatchSize:        cfg.LogBatchSize,
		LogBatchPayloadSize: cfg.LogBatchPayloadSize,
		SkippedIsIssue:      cfg.IsSkippedAnIssue,
		DebugMode:           cfg.DebugMode,
	})
}

// Option customizes an Agent
type Option func(*Agent)

// WithClock replaces the time source used for item timestamps
func WithClock(now func() time.Time) Option {
	return func(a *Agent) { a.now = now }
}

// WithVersion overrides the agent version reported in launch attributes
func WithVersion(version string) Option {
	return func(a *Agent) { a.version = version }
}

// Agent maps runner lifecycle events onto the remote item tree. It keeps the
// IDs of the currently open launch, feature, scenario and step. Lifecycle
// events must be delivered sequentially; PostLog and PostLaunchLog may be
// called from any goroutine.
type Agent struct {
	cfg     *config.Config
	rp      Reporter
	now     func() time.Time
	version string

	launchID   string
	ownsLaunch bool
	featureID  string
	scenarioID string
	stepID     string

	// mu guards logItemID, the target of free-form logs
	mu        sync.Mutex
	logItemID string
}

// New creates an agent. Every operation is a no-op when cfg is disabled or
// rp is nil.
func New(cfg *config.Config, rp Reporter, opts ...Option) *Agent {
	a := &Agent{
		cfg:     cfg,
		rp:      rp,
		now:     time.Now,
		version: Version,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Enabled reports whether events are forwarded to ReportPortal
func (a *Agent) Enabled() bool {
	return a.rp != nil && a.cfg != nil && a.cfg.Enabled
}

// LaunchID returns the current launch, adopted or owned
func (a *Agent) LaunchID() string {
	return a.launchID
}

func (a *Agent) currentLogItem() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.logItemID
}

func (a *Agent) setLogItem(id string) {
	a.mu.Lock()
	a.logItemID = id
	a.mu.Unlock()
}

func (a *Agent) timestamp() reportportal.Millis {
	return reportportal.Millis(a.now())
}

// FinishOption customizes a finish event
type FinishOption func(*finishOptions)

type finishOptions struct {
	status reportportal.Status
}

// WithStatus sets an explicit status instead of deriving it from the runner
func WithStatus(status reportportal.Status) FinishOption {
	return func(o *finishOptions) { o.status = status }
}

func (a *Agent) finishStatus(item bdd.Item, opts []FinishOption) reportportal.Status {
	o := finishOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if bdd.HasTag(item, SkipTag) {
		return reportportal.StatusSkipped
	}
	if o.status != "" {
		return o.status
	}
	return ConvertStatus(item.ItemStatus())
}

// StartLaunch adopts the launch the client was configured with, or starts a
// new one
func (a *Agent) StartLaunch(ctx context.Context, _ *bdd.Context) error {
	if !a.Enabled() {
		return nil
	}
	if id := a.rp.LaunchUUID(); id != "" {
		a.launchID = id
		a.ownsLaunch = false
		slog.InfoContext(reportportal.Quiet(ctx), "reporting to existing launch", "launch_uuid", id)
		return nil
	}

	id, err := a.rp.StartLaunch(ctx, reportportal.StartLaunchRQ{
		Name:        a.cfg.LaunchName,
		StartTime:   a.timestamp(),
		Description: a.cfg.LaunchDescription,
		Attributes:  a.launchAttributes(),
		Rerun:       a.cfg.Rerun,
		RerunOf:     a.cfg.RerunOf,
	})
	if err != nil {
		return err
	}
	a.launchID = id
	a.ownsLaunch = true
	slog.InfoContext(reportportal.Quiet(ctx), "started launch", "launch_uuid", id, "name", a.cfg.LaunchName)
	return nil
}

// FinishLaunch finishes the launch if the agent started it and always closes
// the client
func (a *Agent) FinishLaunch(ctx context.Context, _ *bdd.Context) error {
	if !a.Enabled() {
		return nil
	}
	var finishErr error
	if a.ownsLaunch {
		finishErr = a.rp.FinishLaunch(ctx, reportportal.FinishExecutionRQ{EndTime: a.timestamp()})
	}
	closeErr := a.rp.Close(ctx)
	return errors.Join(finishErr, closeErr)
}

// StartFeature reports a feature as a suite. A feature tagged @skip is
// marked skipped in the runner model first.
func (a *Agent) StartFeature(ctx context.Context, rc *bdd.Context, f *bdd.Feature) error {
	if !a.Enabled() {
		return nil
	}
	if bdd.HasTag(f, SkipTag) {
		f.Skip("Marked with @skip")
	}

	id, err := a.rp.StartTestItem(ctx, reportportal.StartTestItemRQ{
		Name:        f.Name,
		StartTime:   a.timestamp(),
		Type:        reportportal.ItemSuite,
		Description: itemDescription(rc, f),
		CodeRef:     codeRef(f.Location),
		Attributes:  DeriveAttributes(f.Tags),
	})
	if err != nil {
		return err
	}
	a.featureID = id
	a.setLogItem(id)
	return a.logFixtures(ctx, f, reportportal.ItemBeforeSuite, id)
}

// FinishFeature reports feature-scope cleanups and finishes the suite
func (a *Agent) FinishFeature(ctx context.Context, rc *bdd.Context, f *bdd.Feature, opts ...FinishOption) error {
	if !a.Enabled() {
		return nil
	}
	status := a.finishStatus(f, opts)
	if err := a.logCleanups(ctx, rc, bdd.LayerFeature); err != nil {
		return err
	}
	err := a.rp.FinishTestItem(ctx, a.featureID, reportportal.FinishTestItemRQ{
		EndTime: a.timestamp(),
		Status:  status,
	})
	a.featureID = ""
	a.setLogItem("")
	return err
}

// StartScenario reports a scenario as a child of the current suite
func (a *Agent) StartScenario(ctx context.Context, rc *bdd.Context, sc *bdd.Scenario) error {
	if !a.Enabled() {
		return nil
	}
	if a.featureID == "" {
		return fmt.Errorf("%w: scenario %q has no open suite", ErrNoParent, sc.Name)
	}
	if bdd.HasTag(sc, SkipTag) {
		sc.Skip("Marked with @skip")
	}

	id, err := a.rp.StartTestItem(ctx, reportportal.StartTestItemRQ{
		Name:        sc.Name,
		StartTime:   a.timestamp(),
		Type:        reportportal.ItemStep,
		ParentID:    a.featureID,
		Description: itemDescription(rc, sc),
		CodeRef:     codeRef(sc.Location),
		Attributes:  DeriveAttributes(sc.Tags),
		Parameters:  parameters(sc.Row),
		TestCaseID:  TestCaseID(sc.Tags),
	})
	if err != nil {
		return err
	}
	a.scenarioID = id
	a.setLogItem(id)
	return a.logFixtures(ctx, sc, reportportal.ItemBeforeTest, id)
}

// FinishScenario back-fills skipped steps and logs the failure of a failed
// scenario, reports scenario-scope cleanups and finishes the item
func (a *Agent) FinishScenario(ctx context.Context, rc *bdd.Context, sc *bdd.Scenario, opts ...FinishOption) error {
	if !a.Enabled() {
		return nil
	}
	status := a.finishStatus(sc, opts)
	if sc.Status == bdd.StatusFailed {
		if err := a.logSkippedSteps(ctx, rc, sc); err != nil {
			return err
		}
		header := fmt.Sprintf("Scenario '%s' finished with error.", sc.Name)
		if err := a.logFailure(ctx, header, sc.Failure, a.scenarioID); err != nil {
			return err
		}
	}
	if err := a.logCleanups(ctx, rc, bdd.LayerScenario); err != nil {
		return err
	}
	err := a.rp.FinishTestItem(ctx, a.scenarioID, reportportal.FinishTestItemRQ{
		EndTime: a.timestamp(),
		Status:  status,
	})
	a.scenarioID = ""
	a.setLogItem(a.featureID)
	return err
}

// StartStep opens a step item under the per-step layouts. It does nothing
// under the scenario layout.
func (a *Agent) StartStep(ctx context.Context, _ *bdd.Context, st *bdd.Step) error {
	if !a.Enabled() || !a.cfg.LogLayout.PerStep() {
		return nil
	}
	if a.scenarioID == "" {
		return fmt.Errorf("%w: step %q has no open scenario", ErrNoParent, st.Name)
	}

	content := stepContent(st)
	hasStats := a.hasStats()
	id, err := a.rp.StartTestItem(ctx, reportportal.StartTestItemRQ{
		Name:        stepName(st),
		StartTime:   a.timestamp(),
		Type:        reportportal.ItemStep,
		ParentID:    a.scenarioID,
		Description: content,
		CodeRef:     codeRef(st.Location),
		HasStats:    &hasStats,
	})
	if err != nil {
		return err
	}
	a.stepID = id
	a.setLogItem(id)

	if a.cfg.LogLayout == config.LayoutNested && content != "" {
		return a.PostLog(ctx, content, reportportal.LevelInfo)
	}
	return nil
}

// FinishStep closes the step item under the per-step layouts, or logs the
// step against the scenario under the scenario layout
func (a *Agent) FinishStep(ctx context.Context, _ *bdd.Context, st *bdd.Step, opts ...FinishOption) error {
	if !a.Enabled() {
		return nil
	}
	if a.cfg.LogLayout.PerStep() {
		return a.finishStepItem(ctx, st, opts)
	}
	return a.finishStepAggregated(ctx, st)
}

func (a *Agent) finishStepItem(ctx context.Context, st *bdd.Step, opts []FinishOption) error {
	if st.Status == bdd.StatusFailed {
		if err := a.logFailure(ctx, stepFailureHeader(st), st.Failure, a.stepID); err != nil {
			return err
		}
	}
	err := a.rp.FinishTestItem(ctx, a.stepID, reportportal.FinishTestItemRQ{
		EndTime: a.timestamp(),
		Status:  a.finishStatus(st, opts),
	})
	a.stepID = ""
	a.setLogItem(a.scenarioID)
	return err
}

func (a *Agent) finishStepAggregated(ctx context.Context, st *bdd.Step) error {
	err := a.rp.Log(ctx, reportportal.SaveLogRQ{
		ItemUUID: a.scenarioID,
		Time:     a.timestamp(),
		Message:  fmt.Sprintf("%s.\n%s", stepName(st), stepContent(st)),
		Level:    reportportal.LevelInfo,
	})
	if err != nil {
		return err
	}
	if st.Status == bdd.StatusFailed {
		return a.logFailure(ctx, stepFailureHeader(st), st.Failure, a.scenarioID)
	}
	return nil
}

// logSkippedSteps reports the steps the runner never executed so they show
// up in the tree. Only the per-step layouts have step items to back-fill.
func (a *Agent) logSkippedSteps(ctx context.Context, rc *bdd.Context, sc *bdd.Scenario) error {
	if !a.cfg.LogLayout.PerStep() {
		return nil
	}
	for _, st := range sc.Steps {
		if st.Status != bdd.StatusSkipped {
			continue
		}
		if err := a.StartStep(ctx, rc, st); err != nil {
			return err
		}
		if err := a.FinishStep(ctx, rc, st); err != nil {
			return err
		}
	}
	return nil
}

func (a *Agent) hasStats() bool {
	return a.cfg.LogLayout != config.LayoutNested
}

func stepName(st *bdd.Step) string {
	return fmt.Sprintf("[%s]: %s", strings.TrimSpace(st.Keyword), st.Name)
}

func stepFailureHeader(st *bdd.Step) string {
	return fmt.Sprintf("Step %s was finished with exception.", stepName(st))
}
