package pattern

import (
	"testing"

	"boardpilot/internal/types"
)

func TestFind(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantKind   types.OperationKind
		wantParams map[string]string
		wantOK     bool
	}{
		{
			name:       "create_task_quoted",
			input:      `Create a new task called "Fix login bug"`,
			wantKind:   types.OpItemCreate,
			wantParams: map[string]string{"itemName": "Fix login bug"},
			wantOK:     true,
		},
		{
			name:       "create_item_on_board",
			input:      `add item "Ship release" on board "Development Board"`,
			wantKind:   types.OpItemCreate,
			wantParams: map[string]string{"itemName": "Ship release", "boardName": "Development Board"},
			wantOK:     true,
		},
		{
			name:       "delete_item",
			input:      `delete the task "Old ticket"`,
			wantKind:   types.OpItemDelete,
			wantParams: map[string]string{"itemName": "Old ticket"},
			wantOK:     true,
		},
		{
			name:       "create_board",
			input:      `create board "Q3 Roadmap"`,
			wantKind:   types.OpBoardCreate,
			wantParams: map[string]string{"boardName": "Q3 Roadmap"},
			wantOK:     true,
		},
		{
			name:       "status_update",
			input:      `set the status of "Fix login bug" to Done`,
			wantKind:   types.OpStatusUpdate,
			wantParams: map[string]string{"itemName": "Fix login bug", "statusValue": "Done"},
			wantOK:     true,
		},
		{
			name:       "assign_user",
			input:      `assign "Fix login bug" to Jordan Smith`,
			wantKind:   types.OpUserAssign,
			wantParams: map[string]string{"itemName": "Fix login bug", "userName": "Jordan Smith"},
			wantOK:     true,
		},
		{
			name:       "bulk_move",
			input:      `move all completed items to Done`,
			wantKind:   types.OpBulk,
			wantParams: map[string]string{"filterStatus": "completed", "groupName": "Done"},
			wantOK:     true,
		},
		{
			name:       "move_single_item",
			input:      `move "Fix login bug" to Done`,
			wantKind:   types.OpItemUpdate,
			wantParams: map[string]string{"itemName": "Fix login bug", "groupName": "Done"},
			wantOK:     true,
		},
		{
			name:       "column_create",
			input:      `add a status column called "Priority"`,
			wantKind:   types.OpColumnCreate,
			wantParams: map[string]string{"columnType": "status", "columnTitle": "Priority"},
			wantOK:     true,
		},
		{
			name:   "free_form_no_match",
			input:  "update something",
			wantOK: false,
		},
		{
			name:   "empty",
			input:  "   ",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := Find(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("Find(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if m.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", m.Kind, tt.wantKind)
			}
			if m.Confidence < 80 || m.Confidence > 100 {
				t.Errorf("static confidence %d outside [80,100]", m.Confidence)
			}
			for k, want := range tt.wantParams {
				got, _ := m.Parameters[k].(string)
				if got != want {
					t.Errorf("param %s = %q, want %q", k, got, want)
				}
			}
		})
	}
}

func TestFindFirstRuleWins(t *testing.T) {
	// "move all ... items" must hit the bulk rule, not the single-item move.
	m, ok := Find(`move all stuck items to "Blocked"`)
	if !ok {
		t.Fatal("expected a match")
	}
	if m.Kind != types.OpBulk {
		t.Fatalf("kind = %s, want %s", m.Kind, types.OpBulk)
	}
}
