package executor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"boardpilot/internal/recovery"
	"boardpilot/internal/transport"
	"boardpilot/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeDispatcher scripts per-call outcomes and records every call.
type fakeDispatcher struct {
	mu     sync.Mutex
	calls  []map[string]any
	fail   func(call int, variables map[string]any) error
	result map[string]any
}

func (f *fakeDispatcher) Dispatch(_ context.Context, _ string, _ string, variables map[string]any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, variables)
	if f.fail != nil {
		if err := f.fail(len(f.calls), variables); err != nil {
			return nil, err
		}
	}
	return f.result, nil
}

func (f *fakeDispatcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// sleepRecorder replaces real waits and captures the requested durations.
type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
}

func newTestExecutor(d transport.Dispatcher) (*Executor, *sleepRecorder) {
	reg := transport.NewRegistry()
	reg.RegisterAll(d)
	e := New(reg, recovery.NewStrategist(), nil)
	rec := &sleepRecorder{}
	e.sleep = rec.sleep
	return e, rec
}

func deleteOp(id string) *types.ApiOperation {
	return &types.ApiOperation{
		Kind:      types.OpItemDelete,
		Method:    "delete_item",
		Query:     "mutation {...}",
		Variables: map[string]any{"itemId": &types.ItemRef{ID: id, SearchBy: "id"}},
	}
}

func TestExecuteFirstAttemptSuccess(t *testing.T) {
	d := &fakeDispatcher{result: map[string]any{"delete_item": map[string]any{"id": "1"}}}
	e, rec := newTestExecutor(d)

	out := e.Execute(context.Background(), deleteOp("1"), ExecContext{})
	require.True(t, out.Success)
	require.Equal(t, 1, out.Attempts)
	require.Empty(t, out.RecoveryApplied)
	require.Empty(t, rec.waits)
}

func TestExecuteRateLimitRetriesThenSucceeds(t *testing.T) {
	// Rate limits on attempts 1 and 2, success on attempt 3: two waits of
	// the strategist's default, three dispatches total.
	d := &fakeDispatcher{
		fail: func(call int, _ map[string]any) error {
			if call <= 2 {
				return types.NewOpError(types.ErrRateLimit, "too many requests")
			}
			return nil
		},
	}
	e, rec := newTestExecutor(d)

	out := e.Execute(context.Background(), deleteOp("1"), ExecContext{})
	require.True(t, out.Success)
	require.Equal(t, 3, out.Attempts)
	require.Equal(t, []time.Duration{time.Second, time.Second}, rec.waits)
	require.Equal(t, 3, d.callCount())
}

func TestExecuteExhaustsAttempts(t *testing.T) {
	d := &fakeDispatcher{
		fail: func(int, map[string]any) error {
			return types.NewOpError(types.ErrRateLimit, "too many requests")
		},
	}
	e, _ := newTestExecutor(d)

	out := e.Execute(context.Background(), deleteOp("1"), ExecContext{})
	require.False(t, out.Success)
	require.Equal(t, 3, out.Attempts)
	require.Equal(t, types.ErrRateLimit, out.Err.Kind)
	require.Equal(t, 3, d.callCount())
}

func TestExecutePermissionFailsWithoutRetry(t *testing.T) {
	d := &fakeDispatcher{
		fail: func(int, map[string]any) error {
			return types.NewOpError(types.ErrPermission, "permission denied")
		},
	}
	e, rec := newTestExecutor(d)

	out := e.Execute(context.Background(), deleteOp("1"), ExecContext{})
	require.False(t, out.Success)
	require.Equal(t, 1, out.Attempts)
	require.Equal(t, 1, d.callCount())
	require.Empty(t, rec.waits)
	require.Contains(t, out.Err.Message, "permission")
}

func TestExecuteFixPassAppliesToNextAttemptOnly(t *testing.T) {
	d := &fakeDispatcher{
		fail: func(call int, _ map[string]any) error {
			if call == 1 {
				return types.NewOpError(types.ErrInvalidData, "invalid column value")
			}
			return nil
		},
	}
	e, _ := newTestExecutor(d)

	op := &types.ApiOperation{
		Kind:   types.OpItemUpdate,
		Method: "change_multiple_column_values",
		Query:  "mutation {...}",
		Variables: map[string]any{
			"itemId":       &types.ItemRef{ID: "9001", SearchBy: "id"},
			"columnValues": map[string]any{"due_date": "01/15/2026"},
		},
		Parameters: map[string]any{
			"columnValues": map[string]any{"due_date": "01/15/2026"},
		},
	}

	out := e.Execute(context.Background(), op, ExecContext{})
	require.True(t, out.Success)
	require.Equal(t, 2, out.Attempts)
	require.Contains(t, out.RecoveryApplied, recovery.StrategyFixData)

	// The second dispatch saw the coerced date.
	second := d.calls[1]["columnValues"].(map[string]any)
	require.Equal(t, "2026-01-15", second["due_date"])

	// The caller's operation kept the original value: attempt state is
	// copied, never written back.
	original := op.Variables["columnValues"].(map[string]any)
	require.Equal(t, "01/15/2026", original["due_date"])
}

func TestExecuteRejectsOperationWithErrors(t *testing.T) {
	d := &fakeDispatcher{}
	e, _ := newTestExecutor(d)

	op := deleteOp("1")
	op.Errors = []string{"missing permission for delete_item"}
	out := e.Execute(context.Background(), op, ExecContext{})
	require.False(t, out.Success)
	require.Zero(t, d.callCount())
}

func TestExecuteResolvesNameRefFromSnapshot(t *testing.T) {
	d := &fakeDispatcher{}
	e, _ := newTestExecutor(d)

	snap := &types.Context{
		Boards: []types.Board{{
			ID:          "101",
			SampleItems: []types.Item{{ID: "9001", Name: "Fix login bug"}},
		}},
	}
	op := &types.ApiOperation{
		Kind:   types.OpItemDelete,
		Method: "delete_item",
		Query:  "mutation {...}",
		Variables: map[string]any{
			"itemId": &types.ItemRef{Name: "Fix login bug", SearchBy: "name", NeedsResolution: true},
		},
	}

	out := e.Execute(context.Background(), op, ExecContext{Snapshot: snap})
	require.True(t, out.Success)
	require.Equal(t, "9001", d.calls[0]["itemId"])
	// The original variables still hold the ref.
	_, isRef := op.Variables["itemId"].(*types.ItemRef)
	require.True(t, isRef)
}

func TestExecuteUnresolvableNameRefIsNotFound(t *testing.T) {
	d := &fakeDispatcher{}
	e, _ := newTestExecutor(d)

	op := &types.ApiOperation{
		Kind:   types.OpItemDelete,
		Method: "delete_item",
		Query:  "mutation {...}",
		Variables: map[string]any{
			"itemId": &types.ItemRef{Name: "Ghost", SearchBy: "name", NeedsResolution: true},
		},
	}
	out := e.Execute(context.Background(), op, ExecContext{})
	require.False(t, out.Success)
	require.Equal(t, types.ErrNotFound, out.Err.Kind)
	require.Zero(t, d.callCount())
}

func createOp(name string) *types.ApiOperation {
	return &types.ApiOperation{
		Kind:      types.OpItemCreate,
		Method:    "create_item",
		Query:     "mutation {...}",
		Variables: map[string]any{"boardId": "101", "itemName": name},
	}
}

func TestExecuteSequenceTransactionalRollback(t *testing.T) {
	// Step 1 creates an item; step 2 fails hard. The rollback deletes the
	// created item and the original failure survives.
	var deleted []string
	var mu sync.Mutex
	d := &fakeDispatcher{}
	d.result = map[string]any{"create_item": map[string]any{"id": "new-1"}}
	d.fail = func(_ int, variables map[string]any) error {
		if id, ok := variables["itemId"].(string); ok {
			mu.Lock()
			deleted = append(deleted, id)
			mu.Unlock()
			return nil
		}
		if variables["itemName"] == "second" {
			return types.NewOpError(types.ErrPermission, "permission denied")
		}
		return nil
	}
	e, _ := newTestExecutor(d)

	seq := e.ExecuteSequence(context.Background(),
		[]*types.ApiOperation{createOp("first"), createOp("second")},
		ExecContext{}, true)

	require.False(t, seq.Succeeded())
	require.Len(t, seq.Outcomes, 2)
	require.True(t, seq.Outcomes[0].Success)
	require.Equal(t, types.ErrPermission, seq.Outcomes[1].Err.Kind)
	require.True(t, seq.RolledBack)
	require.Empty(t, seq.RollbackErrors)
	require.Equal(t, []string{"new-1"}, deleted)
}

func TestExecuteSequenceRollbackFailureDoesNotMaskOriginal(t *testing.T) {
	d := &fakeDispatcher{}
	d.result = map[string]any{"create_item": map[string]any{"id": "new-1"}}
	d.fail = func(_ int, variables map[string]any) error {
		if _, ok := variables["itemId"].(string); ok {
			return types.NewOpError(types.ErrNotFound, "item not found")
		}
		if variables["itemName"] == "second" {
			return types.NewOpError(types.ErrPermission, "permission denied")
		}
		return nil
	}
	e, _ := newTestExecutor(d)

	seq := e.ExecuteSequence(context.Background(),
		[]*types.ApiOperation{createOp("first"), createOp("second")},
		ExecContext{}, true)

	require.True(t, seq.RolledBack)
	require.NotEmpty(t, seq.RollbackErrors)
	// The surfaced failure is still the permission error, not the rollback's.
	require.Equal(t, types.ErrPermission, seq.Outcomes[1].Err.Kind)
}

func TestExecuteSequenceNonTransactionalStopsWithoutRollback(t *testing.T) {
	d := &fakeDispatcher{}
	d.result = map[string]any{"create_item": map[string]any{"id": "new-1"}}
	d.fail = func(_ int, variables map[string]any) error {
		if variables["itemName"] == "second" {
			return types.NewOpError(types.ErrPermission, "permission denied")
		}
		return nil
	}
	e, _ := newTestExecutor(d)

	seq := e.ExecuteSequence(context.Background(),
		[]*types.ApiOperation{createOp("first"), createOp("second"), createOp("third")},
		ExecContext{}, false)

	require.False(t, seq.RolledBack)
	// Execution stops at the failure; the third operation never runs.
	require.Len(t, seq.Outcomes, 2)
}
