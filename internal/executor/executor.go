// Package executor dispatches validated operations to the transport layer
// with bounded retries, recovery-driven waits, optional transactional
// rollback, and windowed batch fan-out. Attempt state is immutable: each
// retry works on fresh parameter copies, never on shared mutable counters.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"boardpilot/internal/logging"
	"boardpilot/internal/recovery"
	"boardpilot/internal/transport"
	"boardpilot/internal/types"
)

// maxAttempts bounds the retry loop per target.
const maxAttempts = 3

// SleepFunc waits for the given duration or until the context is done.
// Injected so tests run without real time passing.
type SleepFunc func(ctx context.Context, d time.Duration)

func defaultSleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// ItemResolver resolves a deferred name reference to an item ID with a live
// query. Optional; without one, resolution falls back to the snapshot's
// sample items.
type ItemResolver interface {
	ResolveItem(ctx context.Context, boardID, name string) (string, error)
}

// ExecContext carries request-scoped execution state. A zero RequestID is
// filled in with a fresh UUID.
type ExecContext struct {
	RequestID string
	Snapshot  *types.Context
}

// Executor runs operations against the transport registry.
type Executor struct {
	registry   *transport.Registry
	strategist *recovery.Strategist
	resolver   ItemResolver
	log        *zap.Logger
	sleep      SleepFunc
}

// New builds an executor. resolver may be nil.
func New(registry *transport.Registry, strategist *recovery.Strategist, resolver ItemResolver) *Executor {
	return &Executor{
		registry:   registry,
		strategist: strategist,
		resolver:   resolver,
		log:        logging.For(logging.CategoryExecute),
		sleep:      defaultSleep,
	}
}

// Execute runs one operation with up to maxAttempts attempts. On failure the
// recovery strategist decides whether and how to retry; fixed data from a
// recovery plan applies to the next attempt's copies only.
func (e *Executor) Execute(ctx context.Context, op *types.ApiOperation, ec ExecContext) types.ExecutionOutcome {
	if ec.RequestID == "" {
		ec.RequestID = uuid.NewString()
	}
	log := e.log.With(zap.String("requestId", ec.RequestID), zap.String("method", op.Method))

	if len(op.Errors) > 0 {
		return types.ExecutionOutcome{
			Err: types.NewOpError(types.ErrInvalidData, fmt.Sprintf("operation carries unresolved errors: %v", op.Errors)),
		}
	}

	// Attempt state lives in these locals; the caller's operation is never
	// mutated across retries.
	variables := cloneMap(op.Variables)
	parameters := cloneMap(op.Parameters)
	var applied []string

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := e.dispatch(ctx, op, variables, ec)
		if err == nil {
			log.Info("operation succeeded", zap.Int("attempt", attempt))
			return types.ExecutionOutcome{
				Success:         true,
				Result:          result,
				Attempts:        attempt,
				RecoveryApplied: applied,
			}
		}

		plan := e.strategist.Recover(err, recovery.Request{
			Operation: &types.ApiOperation{Kind: op.Kind, Method: op.Method, Parameters: parameters},
			Attempt:   attempt,
			Snapshot:  ec.Snapshot,
		})
		if plan.Strategy != "" {
			applied = append(applied, plan.Strategy)
		}
		log.Warn("attempt failed",
			zap.Int("attempt", attempt),
			zap.String("classification", string(plan.Kind)),
			zap.Error(err))

		if !plan.ShouldRetry || attempt == maxAttempts {
			return types.ExecutionOutcome{
				Err:             failureError(err, plan),
				Attempts:        attempt,
				RecoveryApplied: applied,
			}
		}

		if plan.NewData != nil {
			variables = mergeMaps(variables, plan.NewData)
			parameters = mergeMaps(parameters, plan.NewData)
		}
		if plan.Wait > 0 {
			e.sleep(ctx, plan.Wait)
		}
		if ctx.Err() != nil {
			return types.ExecutionOutcome{
				Err:             types.WrapOpError(types.ErrNetwork, ctx.Err()),
				Attempts:        attempt,
				RecoveryApplied: applied,
			}
		}
	}
	// Unreachable: the loop always returns.
	return types.ExecutionOutcome{}
}

// dispatch resolves deferred item refs and hands the mutation to the routed
// transport.
func (e *Executor) dispatch(ctx context.Context, op *types.ApiOperation, variables map[string]any, ec ExecContext) (map[string]any, error) {
	d, err := e.registry.For(op.Method)
	if err != nil {
		return nil, err
	}
	resolved, err := e.resolveRefs(ctx, variables, ec)
	if err != nil {
		return nil, err
	}
	return d.Dispatch(ctx, op.Method, op.Query, resolved)
}

// resolveRefs replaces *types.ItemRef values with concrete IDs: direct IDs
// pass through, name refs go to the snapshot's sample items first and the
// live resolver second.
func (e *Executor) resolveRefs(ctx context.Context, variables map[string]any, ec ExecContext) (map[string]any, error) {
	var out map[string]any
	for key, value := range variables {
		ref, ok := value.(*types.ItemRef)
		if !ok {
			continue
		}
		id, err := e.resolveItem(ctx, ref, variables, ec)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = cloneMap(variables)
		}
		out[key] = id
	}
	if out == nil {
		return variables, nil
	}
	return out, nil
}

func (e *Executor) resolveItem(ctx context.Context, ref *types.ItemRef, variables map[string]any, ec ExecContext) (string, error) {
	if !ref.NeedsResolution {
		return ref.ID, nil
	}
	if ec.Snapshot != nil {
		for _, b := range ec.Snapshot.Boards {
			for _, item := range b.SampleItems {
				if item.Name == ref.Name {
					return item.ID, nil
				}
			}
		}
	}
	if e.resolver != nil {
		boardID, _ := variables["boardId"].(string)
		id, err := e.resolver.ResolveItem(ctx, boardID, ref.Name)
		if err != nil {
			return "", types.WrapOpError(types.ErrNotFound, err)
		}
		return id, nil
	}
	return "", types.NewOpError(types.ErrNotFound, fmt.Sprintf("no item named %q found", ref.Name))
}

// failureError attaches the recovery diagnostic to the terminal error.
func failureError(err error, plan recovery.Plan) *types.OpError {
	opErr, ok := types.AsOpError(err)
	if !ok {
		opErr = types.WrapOpError(plan.Kind, err)
	}
	if opErr.Kind == "" {
		opErr.Kind = plan.Kind
	}
	if plan.Suggestion != "" {
		opErr.Message = opErr.Message + " (" + plan.Suggestion + ")"
	}
	return opErr
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// mergeMaps returns a fresh map with overrides layered on top of base.
func mergeMaps(base, overrides map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(overrides))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}
