package executor

import (
	"context"

	"go.uber.org/zap"

	"boardpilot/internal/mapper"
	"boardpilot/internal/types"
)

// SequenceOutcome reports a multi-step run. When a transactional sequence
// fails partway, RolledBack is true and RollbackErrors lists any rollback
// steps that themselves failed; the original failure stays in Outcomes.
type SequenceOutcome struct {
	Outcomes       []types.ExecutionOutcome `json:"outcomes"`
	RolledBack     bool                     `json:"rolledBack,omitempty"`
	RollbackErrors []string                 `json:"rollbackErrors,omitempty"`
}

// Succeeded reports whether every step completed.
func (s SequenceOutcome) Succeeded() bool {
	for _, o := range s.Outcomes {
		if !o.Success {
			return false
		}
	}
	return len(s.Outcomes) > 0
}

// ExecuteSequence runs operations strictly in order; later operations may
// depend on earlier side effects, so there is no concurrency here. In
// transactional mode each success pushes its inverse onto a stack, and the
// first failure unwinds the stack in reverse order before returning.
// Rollback failures are reported alongside, never in place of, the original
// error.
func (e *Executor) ExecuteSequence(ctx context.Context, ops []*types.ApiOperation, ec ExecContext, transactional bool) SequenceOutcome {
	var seq SequenceOutcome
	var rollbacks []*types.ApiOperation

	for i, op := range ops {
		outcome := e.Execute(ctx, op, ec)
		seq.Outcomes = append(seq.Outcomes, outcome)

		if !outcome.Success {
			if transactional && len(rollbacks) > 0 {
				seq.RolledBack = true
				seq.RollbackErrors = e.unwind(ctx, rollbacks, ec)
			}
			e.log.Warn("sequence aborted",
				zap.Int("step", i+1),
				zap.Int("total", len(ops)),
				zap.Bool("rolledBack", seq.RolledBack))
			return seq
		}
		if transactional {
			if rb := rollbackFor(op, outcome); rb != nil {
				rollbacks = append(rollbacks, rb)
			}
		}
	}
	return seq
}

// unwind executes rollbacks last-in-first-out. Each rollback gets the normal
// retry treatment; failures are collected, not propagated.
func (e *Executor) unwind(ctx context.Context, rollbacks []*types.ApiOperation, ec ExecContext) []string {
	var failures []string
	for i := len(rollbacks) - 1; i >= 0; i-- {
		outcome := e.Execute(ctx, rollbacks[i], ec)
		if !outcome.Success {
			msg := rollbacks[i].Method + " rollback failed"
			if outcome.Err != nil {
				msg += ": " + outcome.Err.Message
			}
			failures = append(failures, msg)
		}
	}
	return failures
}

// rollbackFor derives the inverse operation for an invertible success. Item
// creation is the only invertible mutation in the method set; everything
// else returns nil and is simply not unwound.
func rollbackFor(op *types.ApiOperation, outcome types.ExecutionOutcome) *types.ApiOperation {
	if op.Method != mapper.MethodCreateItem {
		return nil
	}
	id := createdItemID(outcome.Result)
	if id == "" {
		return nil
	}
	return mapper.DeleteItemOperation(id)
}

// createdItemID digs the new item's ID out of a create_item response.
func createdItemID(result any) string {
	data, ok := result.(map[string]any)
	if !ok {
		return ""
	}
	created, ok := data["create_item"].(map[string]any)
	if !ok {
		return ""
	}
	id, _ := created["id"].(string)
	return id
}
