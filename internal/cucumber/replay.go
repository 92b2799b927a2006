package cucumber

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rocketship-ai/rpbdd/internal/agent"
	"github.com/rocketship-ai/rpbdd/internal/bdd"
)

// Listener receives the lifecycle events of a replayed run. *agent.Agent
// implements it.
type Listener interface {
	StartLaunch(ctx context.Context, rc *bdd.Context) error
	FinishLaunch(ctx context.Context, rc *bdd.Context) error
	StartFeature(ctx context.Context, rc *bdd.Context, f *bdd.Feature) error
	FinishFeature(ctx context.Context, rc *bdd.Context, f *bdd.Feature, opts ...agent.FinishOption) error
	StartScenario(ctx context.Context, rc *bdd.Context, sc *bdd.Scenario) error
	FinishScenario(ctx context.Context, rc *bdd.Context, sc *bdd.Scenario, opts ...agent.FinishOption) error
	StartStep(ctx context.Context, rc *bdd.Context, st *bdd.Step) error
	FinishStep(ctx context.Context, rc *bdd.Context, st *bdd.Step, opts ...agent.FinishOption) error
}

var _ Listener = (*agent.Agent)(nil)

// Summary counts what a replay reported
type Summary struct {
	Features  int
	Scenarios int
	Passed    int
	Failed    int
	Skipped   int
	Steps     int
}

func (s *Summary) count(sc *bdd.Scenario) {
	s.Scenarios++
	switch sc.Status {
	case bdd.StatusPassed:
		s.Passed++
	case bdd.StatusFailed:
		s.Failed++
	default:
		s.Skipped++
	}
}

// Replay feeds converted features to the listener in runner order. The launch
// is finished even when an earlier event fails.
func Replay(ctx context.Context, l Listener, features []Converted, userData map[string]string) (Summary, error) {
	rc := bdd.NewContext(userData)
	rc.PushLayer(bdd.LayerTestRun)

	var sum Summary
	if err := l.StartLaunch(ctx, rc); err != nil {
		return sum, err
	}
	err := replayFeatures(ctx, l, rc, features, &sum)
	if err != nil {
		slog.Error("replay aborted", "error", err)
	}
	return sum, errors.Join(err, l.FinishLaunch(ctx, rc))
}

func replayFeatures(ctx context.Context, l Listener, rc *bdd.Context, features []Converted, sum *Summary) error {
	for _, c := range features {
		if err := ctx.Err(); err != nil {
			return err
		}
		rc.PushLayer(bdd.LayerFeature)
		if err := l.StartFeature(ctx, rc, c.Feature); err != nil {
			return err
		}
		for _, sc := range c.Scenarios {
			if err := replayScenario(ctx, l, rc, sc); err != nil {
				return err
			}
			sum.count(sc.Scenario)
			for _, st := range sc.Steps {
				if st.Status != bdd.StatusSkipped && st.Status != bdd.StatusUntested {
					sum.Steps++
				}
			}
		}
		if err := l.FinishFeature(ctx, rc, c.Feature); err != nil {
			return err
		}
		rc.PopLayer()
		sum.Features++
	}
	return nil
}

func replayScenario(ctx context.Context, l Listener, rc *bdd.Context, sc Scenario) error {
	rc.PushLayer(bdd.LayerScenario)
	defer rc.PopLayer()
	rc.ActiveOutline = sc.Row
	defer func() { rc.ActiveOutline = nil }()
	for _, name := range sc.Cleanups {
		rc.AddCleanup(name)
	}

	if err := l.StartScenario(ctx, rc, sc.Scenario); err != nil {
		return err
	}
	for _, st := range sc.Steps {
		if st.Status == bdd.StatusSkipped || st.Status == bdd.StatusUntested {
			continue
		}
		if err := l.StartStep(ctx, rc, st); err != nil {
			return err
		}
		if err := l.FinishStep(ctx, rc, st); err != nil {
			return err
		}
	}
	return l.FinishScenario(ctx, rc, sc.Scenario)
}
