package mapper

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"boardpilot/internal/types"
)

func testContext() *types.Context {
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
			{ID: "people_1", Title: "Owner", Type: types.ColumnPeople},
		},
		SampleItems: []types.Item{{ID: "9001", Name: "Fix login bug"}},
	}
	return &types.Context{
		AccountID:    "acct-1",
		Boards:       []types.Board{board},
		CurrentBoard: &board,
		Users: []types.User{
			{ID: "u1", Name: "Jordan Smith", Email: "jordan@example.com"},
			{ID: "u2", Name: "Sam Lee", Email: "sam@example.com"},
		},
		Permissions: types.Permissions{
			CanCreateBoards: true,
			CanDeleteItems:  true,
		},
	}
}

func TestMapItemCreate(t *testing.T) {
	m := New()
	in := &types.Interpretation{
		Kind: types.OpItemCreate,
		Parameters: map[string]any{
			"itemName":  "Ship release",
			"boardName": "development board", // case-insensitive name match
			"groupName": "To Do",
			"columnValues": map[string]any{
				"Status": "completed",
			},
		},
	}

	op := m.Map(in, testContext())
	require.Empty(t, op.Errors)
	require.Equal(t, "create_item", op.Method)
	require.Contains(t, op.Query, "create_item")
	require.Equal(t, "101", op.Variables["boardId"])
	require.Equal(t, "g_todo", op.Variables["groupId"])
	require.Equal(t, "Ship release", op.Variables["itemName"])

	values := op.Variables["columnValues"].(map[string]any)
	status := values["status_1"].(map[string]any)
	require.Equal(t, "Done", status["label"])
}

func TestMapItemCreateFallsBackToCurrentBoard(t *testing.T) {
	m := New()
	in := &types.Interpretation{
		Kind:       types.OpItemCreate,
		Parameters: map[string]any{"itemName": "Quick task"},
	}
	op := m.Map(in, testContext())
	require.Empty(t, op.Errors)
	require.Equal(t, "101", op.Variables["boardId"])
}

func TestMapItemCreateNoBoardIsHardError(t *testing.T) {
	m := New()
	in := &types.Interpretation{
		Kind:       types.OpItemCreate,
		Parameters: map[string]any{"itemName": "Orphan"},
	}
	op := m.Map(in, &types.Context{AccountID: "acct-1"})
	require.NotEmpty(t, op.Errors)
}

func TestMapItemUpdateMoveUsesDeferredRef(t *testing.T) {
	m := New()
	in := &types.Interpretation{
		Kind: types.OpItemUpdate,
		Parameters: map[string]any{
			"itemName":  "Fix login bug",
			"groupName": "Done",
		},
	}
	op := m.Map(in, testContext())
	require.Empty(t, op.Errors)
	require.Equal(t, "move_item_to_group", op.Method)

	ref := op.Variables["itemId"].(*types.ItemRef)
	require.Equal(t, "name", ref.SearchBy)
	require.True(t, ref.NeedsResolution)
	require.Equal(t, "Fix login bug", ref.Name)
}

func TestMapItemDeleteByID(t *testing.T) {
	m := New()
	in := &types.Interpretation{
		Kind:       types.OpItemDelete,
		Parameters: map[string]any{"itemId": "9001"},
	}
	op := m.Map(in, testContext())
	require.Empty(t, op.Errors)
	ref := op.Variables["itemId"].(*types.ItemRef)
	require.Equal(t, "id", ref.SearchBy)
	require.False(t, ref.NeedsResolution)
}

func TestMapUserAssignResolvesFuzzy(t *testing.T) {
	m := New()
	tests := []struct {
		userRef string
		wantID  string
	}{
		{"u1", "u1"},                  // exact id
		{"Jordan Smith", "u1"},        // exact name
		{"sam@example.com", "u2"},     // email substring
		{"jordan", "u1"},              // fuzzy name containment
	}
	for _, tt := range tests {
		in := &types.Interpretation{
			Kind: types.OpUserAssign,
			Parameters: map[string]any{
				"itemName": "Fix login bug",
				"userName": tt.userRef,
			},
		}
		op := m.Map(in, testContext())
		require.Empty(t, op.Errors, "userRef %q", tt.userRef)
		require.Equal(t, "change_column_value", op.Method)
		value := op.Variables["value"].(map[string]any)
		persons := value["personsAndTeams"].([]map[string]any)
		require.Len(t, persons, 1)
		require.Equal(t, tt.wantID, persons[0]["id"])
	}
}

func TestMapStatusUpdate(t *testing.T) {
	m := New()
	in := &types.Interpretation{
		Kind: types.OpStatusUpdate,
		Parameters: map[string]any{
			"itemId":      "9001",
			"statusValue": "blocked",
		},
	}
	op := m.Map(in, testContext())
	require.Empty(t, op.Errors)
	value := op.Variables["value"].(map[string]any)
	require.Equal(t, "Stuck", value["label"])
	require.Equal(t, "status_1", op.Variables["columnId"])
}

func TestMapPermissionCorrelation(t *testing.T) {
	m := New()
	snap := testContext()
	snap.Permissions.CanCreateBoards = false

	in := &types.Interpretation{
		Kind:       types.OpBoardCreate,
		Parameters: map[string]any{"boardName": "Secret Board"},
	}
	op := m.Map(in, snap)
	require.NotEmpty(t, op.Errors)
	found := false
	for _, e := range op.Errors {
		if strings.Contains(e, "permission") {
			found = true
		}
	}
	require.True(t, found, "errors should name the missing permission: %v", op.Errors)
}

func TestMapSentinels(t *testing.T) {
	m := New()
	snap := testContext()
	snap.Permissions.CanCreateAutomations = true

	for _, kind := range []types.OperationKind{types.OpAutomationCreate, types.OpBulk} {
		in := &types.Interpretation{Kind: kind, Parameters: map[string]any{}}
		op := m.Map(in, snap)
		require.NotEmpty(t, op.Errors, "kind %s", kind)
		require.Contains(t, op.Method, "_NOT_IMPLEMENTED")
	}
}

func TestMapIsRebuildable(t *testing.T) {
	// Mapping the same interpretation twice yields equivalent operations:
	// the mapper holds no per-request state.
	m := New()
	in := &types.Interpretation{
		Kind:       types.OpItemCreate,
		Parameters: map[string]any{"itemName": "Idempotent"},
	}
	snap := testContext()
	first := m.Map(in, snap)
	second := m.Map(in, snap)
	require.Equal(t, first.Method, second.Method)
	require.Equal(t, first.Query, second.Query)
	require.Equal(t, first.Variables, second.Variables)
}
