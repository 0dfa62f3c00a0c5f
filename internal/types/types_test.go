package types

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestParseOperationKind(t *testing.T) {
	tests := []struct {
		raw  string
		want OperationKind
	}{
		{"ITEM_CREATE", OpItemCreate},
		{"  item_update ", OpItemUpdate},
		{"ERROR", OpErrorKind},
		{"error", OpErrorKind},
		{"nonsense", OpUnknown},
		{"", OpUnknown},
	}
	for _, tt := range tests {
		if got := ParseOperationKind(tt.raw); got != tt.want {
			t.Errorf("ParseOperationKind(%q) = %s, want %s", tt.raw, got, tt.want)
		}
	}
}

func TestErrorKindMemberAndErrorType(t *testing.T) {
	// The "ERROR" enum member and the structured error type live side by
	// side in this package; the kind constant must not shadow the type.
	if OpErrorKind != OperationKind("ERROR") {
		t.Fatalf("OpErrorKind = %q, want ERROR", OpErrorKind)
	}
	var err error = &OpError{Kind: ErrRateLimit, Message: "slow down", RetryAfter: 5 * time.Second}
	wrapped := fmt.Errorf("dispatch: %w", err)
	oe, ok := AsOpError(wrapped)
	if !ok {
		t.Fatal("AsOpError failed to extract through a wrap")
	}
	if oe.Kind != ErrRateLimit || oe.RetryAfter != 5*time.Second {
		t.Fatalf("extracted %+v, want rate-limit with 5s retry-after", oe)
	}
}

func TestOpErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	oe := WrapOpError(ErrNetwork, cause)
	if !errors.Is(oe, cause) {
		t.Fatal("WrapOpError lost the cause chain")
	}
}

func TestHasParameterAlternates(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
		lookup string
		want   bool
	}{
		{"direct", map[string]any{"itemId": "42"}, "itemId", true},
		{"item_name_stands_in", map[string]any{"itemName": "Fix login bug"}, "itemId", true},
		{"group_name_stands_in_for_column_values", map[string]any{"groupName": "Done"}, "columnValues", true},
		{"column_values_direct", map[string]any{"columnValues": map[string]any{"status": "Done"}}, "columnValues", true},
		{"absent", map[string]any{}, "columnValues", false},
		{"blank_not_populated", map[string]any{"itemName": "  "}, "itemId", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasParameter(tt.params, tt.lookup); got != tt.want {
				t.Errorf("HasParameter(%v, %q) = %v, want %v", tt.params, tt.lookup, got, tt.want)
			}
		})
	}
}
