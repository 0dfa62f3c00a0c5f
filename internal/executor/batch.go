package executor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"boardpilot/internal/config"
	"boardpilot/internal/logging"
	"boardpilot/internal/mapper"
	"boardpilot/internal/recovery"
	"boardpilot/internal/types"
)

// Default window sizing and pacing, used when config leaves them unset.
// User assignment hits a stricter upstream rate limit, so its windows are
// smaller.
const (
	defaultWindow       = 25
	defaultAssignWindow = 10
	defaultPause        = 200 * time.Millisecond
)

// Coordinator fans one operation template out over many targets in paced,
// fixed-size concurrent windows.
type Coordinator struct {
	exec         *Executor
	window       int
	assignWindow int
	pause        time.Duration
	log          *zap.Logger
	sleep        SleepFunc
}

// NewCoordinator builds a coordinator on top of an executor.
func NewCoordinator(exec *Executor, cfg config.BatchConfig) *Coordinator {
	c := &Coordinator{
		exec:         exec,
		window:       cfg.WindowSize,
		assignWindow: cfg.AssignWindowSize,
		pause:        time.Duration(cfg.PacingMillis) * time.Millisecond,
		log:          logging.For(logging.CategoryBatch),
		sleep:        defaultSleep,
	}
	if c.window <= 0 {
		c.window = defaultWindow
	}
	if c.assignWindow <= 0 {
		c.assignWindow = defaultAssignWindow
	}
	if c.pause <= 0 {
		c.pause = defaultPause
	}
	return c
}

// BatchOptions carries per-batch settings. ConfirmToken is required for
// destructive batches and must match ConfirmationToken over the targets.
type BatchOptions struct {
	ConfirmToken string
}

// ConfirmationToken computes the deterministic token a caller must echo back
// before a destructive batch runs: "DELETE-{count}-{prefix}" where prefix is
// the first ten characters of the sorted, concatenated target IDs.
func ConfirmationToken(targets []string) string {
	ids := make([]string, len(targets))
	copy(ids, targets)
	sort.Strings(ids)
	joined := strings.Join(ids, "")
	if len(joined) > 10 {
		joined = joined[:10]
	}
	return fmt.Sprintf("DELETE-%d-%s", len(targets), joined)
}

// ExecuteBatch runs the template once per target. Windows execute their
// targets concurrently; failures never abort siblings. Results come back in
// launch order regardless of completion order.
func (c *Coordinator) ExecuteBatch(ctx context.Context, targets []string, template *types.ApiOperation, ec ExecContext, opts BatchOptions) *types.BatchReport {
	report := &types.BatchReport{Total: len(targets)}
	if len(targets) == 0 {
		report.Suggestions = append(report.Suggestions, "no targets given; nothing to do")
		return report
	}

	// The token check is intentionally all-or-nothing: a mismatch means
	// zero upstream calls, not a partial run.
	if template.Method == mapper.MethodDeleteItem {
		want := ConfirmationToken(targets)
		if opts.ConfirmToken != want {
			c.log.Warn("confirmation token mismatch, batch aborted",
				zap.Int("targets", len(targets)))
			report.Suggestions = append(report.Suggestions,
				fmt.Sprintf("confirmation token mismatch; recompute it for these %d targets and resubmit", len(targets)))
			return report
		}
	}

	window := c.window
	if template.Kind == types.OpUserAssign {
		window = c.assignWindow
	}

	results := make([]types.TargetResult, len(targets))
	for start := 0; start < len(targets); start += window {
		end := start + window
		if end > len(targets) {
			end = len(targets)
		}
		if start > 0 {
			c.sleep(ctx, c.pause)
		}
		c.runWindow(ctx, targets[start:end], template, ec, results[start:end])
		c.log.Debug("window complete",
			zap.Int("from", start),
			zap.Int("to", end),
			zap.Int("total", len(targets)))
	}

	report.Results = results
	for _, r := range results {
		if r.Outcome.Success {
			report.Successful++
		} else {
			report.Failed++
		}
	}
	c.groupFailures(report)
	return report
}

// runWindow executes one window's targets concurrently. Outcomes land in the
// results slice by launch index; the group never sees an error because
// per-target failures belong in the report, not the control flow.
func (c *Coordinator) runWindow(ctx context.Context, targets []string, template *types.ApiOperation, ec ExecContext, results []types.TargetResult) {
	g, gctx := errgroup.WithContext(ctx)
	for i, target := range targets {
		g.Go(func() error {
			op := perTarget(template, target)
			results[i] = types.TargetResult{
				TargetID: target,
				Outcome:  c.exec.Execute(gctx, op, ec),
			}
			return nil
		})
	}
	// Always nil; Wait only synchronizes the window.
	_ = g.Wait()
}

// perTarget instantiates the template for one target ID. The template is
// never mutated; every target gets its own variable and parameter maps.
func perTarget(template *types.ApiOperation, target string) *types.ApiOperation {
	op := &types.ApiOperation{
		Kind:       template.Kind,
		Method:     template.Method,
		Query:      template.Query,
		Variables:  cloneMap(template.Variables),
		Parameters: cloneMap(template.Parameters),
	}
	if op.Variables == nil {
		op.Variables = map[string]any{}
	}
	op.Variables["itemId"] = &types.ItemRef{ID: target, SearchBy: "id"}
	if op.Parameters != nil {
		delete(op.Parameters, "targetIds")
		op.Parameters["itemId"] = target
	}
	return op
}

// groupSuggestions maps failure classifications to remediation advice.
var groupSuggestions = map[types.ErrorKind]string{
	types.ErrRateLimit:   "reduce batch size or add pacing between runs",
	types.ErrNetwork:     "check connectivity and retry the failed targets",
	types.ErrPermission:  "ask a board admin to grant the missing permission",
	types.ErrInvalidData: "review the column value formats for the failed targets",
	types.ErrNotFound:    "refresh the board and retry; some targets no longer exist",
	types.ErrDuplicate:   "update the existing items instead of re-creating them",
}

// groupFailures buckets failed targets by error classification and attaches
// one suggestion per group.
func (c *Coordinator) groupFailures(report *types.BatchReport) {
	if report.Failed == 0 {
		return
	}
	report.ErrorGroups = map[types.ErrorKind][]string{}
	for _, r := range report.Results {
		if r.Outcome.Success {
			continue
		}
		kind := types.ErrUnknown
		if r.Outcome.Err != nil {
			kind = recovery.Classify(r.Outcome.Err)
		}
		report.ErrorGroups[kind] = append(report.ErrorGroups[kind], r.TargetID)
	}
	for kind := range report.ErrorGroups {
		if s, ok := groupSuggestions[kind]; ok {
			report.Suggestions = append(report.Suggestions, s)
		} else {
			report.Suggestions = append(report.Suggestions, "inspect the per-target errors and retry manually")
		}
	}
	sort.Strings(report.Suggestions)
}
