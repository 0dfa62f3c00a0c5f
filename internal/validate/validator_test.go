package validate

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"boardpilot/internal/types"
)

func testSnapshot() *types.Context {
	board := types.Board{
		ID:   "101",
		Name: "Development Board",
		Groups: []types.Group{
			{ID: "g_todo", Title: "To Do"},
			{ID: "g_done", Title: "Done"},
		},
		Columns: []types.Column{
			{ID: "text_1", Title: "Notes", Type: types.ColumnText},
			{ID: "status_1", Title: "Status", Type: types.ColumnStatus},
			{ID: "num_1", Title: "Estimate", Type: types.ColumnNumber},
		},
		SampleItems: []types.Item{
			{ID: "9001", Name: "Fix login bug", GroupID: "g_todo"},
		},
		ItemCount:       120,
		AutomationCount: 3,
	}
	return &types.Context{
		AccountID:    "acct-1",
		Boards:       []types.Board{board},
		CurrentBoard: &board,
		Users: []types.User{
			{ID: "u1", Name: "Jordan Smith", Email: "jordan@example.com"},
		},
		Permissions: types.Permissions{
			CanCreateBoards:      true,
			CanDeleteItems:       true,
			CanCreateAutomations: true,
		},
	}
}

type fakeLookup struct {
	existing map[string]bool
	err      error
}

func (f *fakeLookup) Exists(_ context.Context, resource, id string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.existing[resource+":"+id], nil
}

func createOp(params map[string]any) *types.ApiOperation {
	return &types.ApiOperation{
		Kind:       types.OpItemCreate,
		Method:     "create_item",
		Parameters: params,
	}
}

func TestValidateCleanOperation(t *testing.T) {
	v := New(nil)
	op := createOp(map[string]any{"itemName": "Ship release"})
	res := v.Validate(context.Background(), op, testSnapshot())
	require.True(t, res.Valid)
	require.True(t, res.CanProceed())
	require.Empty(t, res.Errors)
}

func TestValidateMissingRequiredParameter(t *testing.T) {
	v := New(nil)
	op := createOp(map[string]any{})
	res := v.Validate(context.Background(), op, testSnapshot())
	require.False(t, res.Valid)
	require.Contains(t, strings.Join(res.Errors, "; "), "itemName")
}

func TestValidateAlternateSatisfiesRequirement(t *testing.T) {
	// ITEM_DELETE requires itemId, but a resolvable itemName is accepted in
	// its place.
	v := New(nil)
	op := &types.ApiOperation{
		Kind:       types.OpItemDelete,
		Method:     "delete_item",
		Parameters: map[string]any{"itemName": "Fix login bug"},
	}
	res := v.Validate(context.Background(), op, testSnapshot())
	require.Empty(t, res.Errors)
}

func TestValidateMoveWithoutColumnValues(t *testing.T) {
	// A move-to-group update carries groupName instead of columnValues and
	// must clear the basic layer.
	v := New(nil)
	op := &types.ApiOperation{
		Kind:   types.OpItemUpdate,
		Method: "move_item_to_group",
		Parameters: map[string]any{
			"itemName":  "Fix login bug",
			"groupName": "Done",
		},
	}
	res := v.Validate(context.Background(), op, testSnapshot())
	require.True(t, res.Valid)
	require.Empty(t, res.Errors)
}

func TestValidatePermissionLayer(t *testing.T) {
	v := New(nil)
	snap := testSnapshot()
	snap.Permissions.CanDeleteItems = false

	op := &types.ApiOperation{
		Kind:       types.OpItemDelete,
		Method:     "delete_item",
		Parameters: map[string]any{"itemId": "9001"},
	}
	res := v.Validate(context.Background(), op, snap)
	require.False(t, res.Valid)
	require.Contains(t, strings.Join(res.Errors, "; "), "delete-item")
}

func TestValidateGuestHardBlock(t *testing.T) {
	// Guests are blocked from the restricted methods even when the
	// capability flags would otherwise allow them.
	v := New(nil)
	snap := testSnapshot()
	snap.Permissions.IsGuest = true
	snap.Permissions.CanCreateAutomations = true

	op := &types.ApiOperation{
		Kind:   types.OpAutomationCreate,
		Method: "create_automation",
		Parameters: map[string]any{
			"triggerType": "status_change",
			"actionType":  "notify",
		},
	}
	res := v.Validate(context.Background(), op, snap)
	require.False(t, res.Valid)
	require.Contains(t, strings.Join(res.Errors, "; "), "guest")
}

func TestValidateResourceExistence(t *testing.T) {
	lookup := &fakeLookup{existing: map[string]bool{"item:9001": true}}
	v := New(lookup)

	tests := []struct {
		name    string
		params  map[string]any
		wantErr string
	}{
		{"known_board", map[string]any{"itemName": "x", "boardId": "101"}, ""},
		{"unknown_board", map[string]any{"itemName": "x", "boardId": "999"}, "board 999"},
		{"unknown_group", map[string]any{"itemName": "x", "groupId": "g_missing"}, "group g_missing"},
		{"unknown_user", map[string]any{"itemName": "x", "userId": "u9"}, "user u9"},
		{"known_item", map[string]any{"itemName": "x", "itemId": "9001"}, ""},
		{"unknown_item", map[string]any{"itemName": "x", "itemId": "404"}, "item 404"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.Validate(context.Background(), createOp(tt.params), testSnapshot())
			joined := strings.Join(res.Errors, "; ")
			if tt.wantErr == "" {
				require.Empty(t, res.Errors)
			} else {
				require.Contains(t, joined, tt.wantErr)
			}
		})
	}
}

func TestValidateLookupFailureIsAnError(t *testing.T) {
	v := New(&fakeLookup{err: fmt.Errorf("upstream down")})
	op := createOp(map[string]any{"itemName": "x", "itemId": "9001"})
	res := v.Validate(context.Background(), op, testSnapshot())
	require.False(t, res.Valid)
	require.Contains(t, strings.Join(res.Errors, "; "), "could not verify")
}

func TestValidateDataLayer(t *testing.T) {
	v := New(nil)

	t.Run("empty_item_name", func(t *testing.T) {
		res := v.Validate(context.Background(), createOp(map[string]any{"itemName": "   "}), testSnapshot())
		require.False(t, res.Valid)
	})

	t.Run("overlong_item_name", func(t *testing.T) {
		res := v.Validate(context.Background(), createOp(map[string]any{"itemName": strings.Repeat("x", 256)}), testSnapshot())
		require.False(t, res.Valid)
	})

	t.Run("bad_column_value", func(t *testing.T) {
		op := createOp(map[string]any{
			"itemName":     "ok",
			"columnValues": map[string]any{"Estimate": "not-a-number"},
		})
		res := v.Validate(context.Background(), op, testSnapshot())
		require.False(t, res.Valid)
		require.Contains(t, strings.Join(res.Errors, "; "), "Estimate")
	})

	t.Run("unknown_column", func(t *testing.T) {
		op := createOp(map[string]any{
			"itemName":     "ok",
			"columnValues": map[string]any{"Nope": "v"},
		})
		res := v.Validate(context.Background(), op, testSnapshot())
		require.False(t, res.Valid)
	})

	t.Run("empty_batch", func(t *testing.T) {
		op := &types.ApiOperation{
			Kind:       types.OpBulk,
			Method:     "bulk",
			Parameters: map[string]any{"targetIds": []any{}},
		}
		res := v.Validate(context.Background(), op, testSnapshot())
		require.False(t, res.Valid)
	})

	t.Run("oversized_batch_warns", func(t *testing.T) {
		targets := make([]any, 150)
		for i := range targets {
			targets[i] = fmt.Sprintf("%d", i)
		}
		op := &types.ApiOperation{
			Kind:       types.OpBulk,
			Method:     "bulk",
			Parameters: map[string]any{"targetIds": targets},
		}
		res := v.Validate(context.Background(), op, testSnapshot())
		require.True(t, res.Valid)
		require.NotEmpty(t, res.Warnings)
		require.True(t, res.CanProceed())
	})
}

func TestValidateConstraintCeilings(t *testing.T) {
	v := New(nil)

	t.Run("item_limit_hard_stop", func(t *testing.T) {
		snap := testSnapshot()
		snap.Boards[0].ItemCount = 10000
		snap.CurrentBoard = &snap.Boards[0]
		res := v.Validate(context.Background(), createOp(map[string]any{"itemName": "x"}), snap)
		require.False(t, res.Valid)
	})

	t.Run("item_limit_warning_band", func(t *testing.T) {
		snap := testSnapshot()
		snap.Boards[0].ItemCount = 9500
		snap.CurrentBoard = &snap.Boards[0]
		res := v.Validate(context.Background(), createOp(map[string]any{"itemName": "x"}), snap)
		require.True(t, res.Valid)
		require.NotEmpty(t, res.Warnings)
	})

	t.Run("automation_count_warning", func(t *testing.T) {
		snap := testSnapshot()
		snap.Boards[0].AutomationCount = 60
		snap.CurrentBoard = &snap.Boards[0]
		op := &types.ApiOperation{
			Kind:   types.OpAutomationCreate,
			Method: "create_automation",
			Parameters: map[string]any{
				"triggerType": "status_change",
				"actionType":  "notify",
			},
		}
		res := v.Validate(context.Background(), op, snap)
		require.NotEmpty(t, res.Warnings)
	})
}

func TestValidateBusinessLogic(t *testing.T) {
	v := New(nil)

	t.Run("self_triggering_automation_blocks", func(t *testing.T) {
		op := &types.ApiOperation{
			Kind:   types.OpAutomationCreate,
			Method: "create_automation",
			Parameters: map[string]any{
				"triggerType":   "status_change",
				"actionType":    "status_change",
				"triggerStatus": "Done",
				"actionStatus":  "done",
			},
		}
		res := v.Validate(context.Background(), op, testSnapshot())
		require.True(t, res.Valid, "a loop is a blocking warning, not a schema error")
		require.False(t, res.CanProceed())
	})

	t.Run("duplicate_item_name_warns", func(t *testing.T) {
		res := v.Validate(context.Background(), createOp(map[string]any{"itemName": "fix login bug"}), testSnapshot())
		require.True(t, res.Valid)
		require.NotEmpty(t, res.Warnings)
		require.True(t, res.CanProceed())
	})

	t.Run("move_within_same_group_warns", func(t *testing.T) {
		op := &types.ApiOperation{
			Kind:   types.OpItemUpdate,
			Method: "move_item_to_group",
			Parameters: map[string]any{
				"itemName":  "Fix login bug",
				"groupName": "To Do",
			},
		}
		res := v.Validate(context.Background(), op, testSnapshot())
		require.True(t, res.Valid)
		joined := ""
		for _, w := range res.Warnings {
			joined += w.Message + "; "
		}
		require.Contains(t, joined, "already in group")
	})
}

func TestValidateIsIdempotent(t *testing.T) {
	// Validation is a pure function of (operation, snapshot): running it
	// twice yields identical results and mutates neither input.
	v := New(&fakeLookup{existing: map[string]bool{"item:9001": true}})
	op := createOp(map[string]any{
		"itemName":     "fix login bug",
		"itemId":       "9001",
		"columnValues": map[string]any{"Estimate": "abc"},
	})
	snap := testSnapshot()

	first := v.Validate(context.Background(), op, snap)
	second := v.Validate(context.Background(), op, snap)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("results differ between runs (-first +second):\n%s", diff)
	}
	require.Empty(t, op.Errors, "validation must not write into the operation")
}
