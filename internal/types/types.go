// Package types provides shared type definitions used across boardpilot packages.
// This package exists to break import cycles between interpret, mapper, validate,
// and executor. Types in this package should be foundational data structures with
// no complex dependencies.
package types

import (
	"strings"
	"time"
)

// =============================================================================
// OPERATION KINDS
// =============================================================================

// OperationKind identifies one of the closed set of operations the pipeline
// can describe. The set is closed on purpose: every component that dispatches
// on kind does so with an exhaustive switch, so adding a kind is a
// compile-time-checked, single-place change.
type OperationKind string

const (
	OpItemCreate       OperationKind = "ITEM_CREATE"
	OpItemUpdate       OperationKind = "ITEM_UPDATE"
	OpItemDelete       OperationKind = "ITEM_DELETE"
	OpBoardCreate      OperationKind = "BOARD_CREATE"
	OpBoardUpdate      OperationKind = "BOARD_UPDATE"
	OpColumnCreate     OperationKind = "COLUMN_CREATE"
	OpColumnUpdate     OperationKind = "COLUMN_UPDATE"
	OpUserAssign       OperationKind = "USER_ASSIGN"
	OpStatusUpdate     OperationKind = "STATUS_UPDATE"
	OpAutomationCreate OperationKind = "AUTOMATION_CREATE"
	OpBulk             OperationKind = "BULK_OPERATION"
	OpUnknown          OperationKind = "UNKNOWN"
	OpErrorKind        OperationKind = "ERROR"
)

// AllOperationKinds lists every kind the pipeline recognizes, in a stable order.
var AllOperationKinds = []OperationKind{
	OpItemCreate, OpItemUpdate, OpItemDelete,
	OpBoardCreate, OpBoardUpdate,
	OpColumnCreate, OpColumnUpdate,
	OpUserAssign, OpStatusUpdate,
	OpAutomationCreate, OpBulk,
	OpUnknown, OpErrorKind,
}

// ParseOperationKind normalizes a raw string (typically from the language
// oracle) into a known kind. Unrecognized values map to OpUnknown rather
// than failing, because oracle output is untrusted.
func ParseOperationKind(raw string) OperationKind {
	k := OperationKind(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range AllOperationKinds {
		if k == known {
			return known
		}
	}
	return OpUnknown
}

// Valid reports whether k is a member of the closed kind set.
func (k OperationKind) Valid() bool {
	for _, known := range AllOperationKinds {
		if k == known {
			return true
		}
	}
	return false
}

// RequiredParameters returns the static list of parameter names an operation
// of this kind must carry. The same table backs both the confidence
// calculator's completeness sub-score and the validator's basic layer.
func (k OperationKind) RequiredParameters() []string {
	switch k {
	case OpItemCreate:
		return []string{"itemName"}
	case OpItemUpdate:
		return []string{"itemId", "columnValues"}
	case OpItemDelete:
		return []string{"itemId"}
	case OpBoardCreate:
		return []string{"boardName"}
	case OpBoardUpdate:
		return []string{"boardId"}
	case OpColumnCreate:
		return []string{"columnTitle", "columnType"}
	case OpColumnUpdate:
		return []string{"columnId"}
	case OpUserAssign:
		return []string{"itemId", "userName"}
	case OpStatusUpdate:
		return []string{"itemId", "statusValue"}
	case OpAutomationCreate:
		return []string{"triggerType", "actionType"}
	case OpBulk:
		return []string{"targetIds"}
	case OpUnknown, OpErrorKind:
		return nil
	}
	return nil
}

// parameterAlternates maps a required parameter to the symbolic stand-ins
// that satisfy it before resolution. An instruction naming an item satisfies
// the itemId requirement; the mapper turns the name into a deferred lookup.
var parameterAlternates = map[string][]string{
	"itemId":   {"itemName"},
	"boardId":  {"boardName"},
	"columnId": {"columnTitle"},
	"userName": {"userId", "userEmail"},
	// A move-to-group update carries a groupName instead of column values.
	"columnValues": {"groupName"},
}

// HasParameter reports whether params carries a non-empty value for name or
// one of its accepted stand-ins.
func HasParameter(params map[string]any, name string) bool {
	if populatedValue(params[name]) {
		return true
	}
	for _, alt := range parameterAlternates[name] {
		if populatedValue(params[alt]) {
			return true
		}
	}
	return false
}

func populatedValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}

// =============================================================================
// BOARD CONTEXT SNAPSHOT
// =============================================================================

// Context is an immutable snapshot of account, board, user, and permission
// state captured at a single point in time. It is shared by reference across
// every component processing one request and is never patched in place:
// staleness is tolerated up to the part TTLs and refreshed wholesale.
type Context struct {
	AccountID    string      `json:"accountId"`
	Boards       []Board     `json:"boards"`
	Users        []User      `json:"users"`
	CurrentBoard *Board      `json:"currentBoard,omitempty"`
	Permissions  Permissions `json:"permissions"`
	CapturedAt   time.Time   `json:"capturedAt"`
}

// Empty reports whether the snapshot carries no usable board or user data.
func (c *Context) Empty() bool {
	return c == nil || (len(c.Boards) == 0 && len(c.Users) == 0 && c.CurrentBoard == nil)
}

// Board is one board in the snapshot, with enough structure for name
// resolution, column-value formatting, and quantitative validation.
type Board struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Groups          []Group  `json:"groups"`
	Columns         []Column `json:"columns"`
	SampleItems     []Item   `json:"sampleItems,omitempty"`
	ItemCount       int      `json:"itemCount"`
	AutomationCount int      `json:"automationCount"`
}

// Group is a section of a board ("To Do", "Done", ...).
type Group struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Column describes one board column. SettingsRaw carries the upstream
// settings JSON verbatim; only the dropdown formatter inspects it.
type Column struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Type        ColumnType `json:"type"`
	SettingsRaw string     `json:"settingsRaw,omitempty"`
}

// Item is a sample item used for duplicate detection and item-name resolution.
type Item struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	GroupID string `json:"groupId,omitempty"`
}

// User is an account member.
type User struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsGuest bool   `json:"isGuest,omitempty"`
}

// Permissions is the capability set of the requesting user.
type Permissions struct {
	CanCreateBoards      bool `json:"canCreateBoards"`
	CanDeleteBoards      bool `json:"canDeleteBoards"`
	CanDeleteItems       bool `json:"canDeleteItems"`
	CanCreateAutomations bool `json:"canCreateAutomations"`
	CanManageUsers       bool `json:"canManageUsers"`
	IsGuest              bool `json:"isGuest"`
}

// ColumnType enumerates the column value types the mapper can format and the
// validator can check.
type ColumnType string

const (
	ColumnText     ColumnType = "text"
	ColumnNumber   ColumnType = "numbers"
	ColumnStatus   ColumnType = "status"
	ColumnDate     ColumnType = "date"
	ColumnPeople   ColumnType = "people"
	ColumnCheckbox ColumnType = "checkbox"
	ColumnDropdown ColumnType = "dropdown"
	ColumnEmail    ColumnType = "email"
	ColumnPhone    ColumnType = "phone"
	ColumnLink     ColumnType = "link"
	ColumnRating   ColumnType = "rating"
)

// =============================================================================
// INTERPRETATION
// =============================================================================

// Interpretation is the pipeline's structured guess at user intent.
// Confidence is always within [0,100]. A new Interpretation supersedes, never
// mutates, a prior one during ambiguity resolution.
type Interpretation struct {
	Kind                OperationKind  `json:"operation"`
	Confidence          int            `json:"confidence"`
	Parameters          map[string]any `json:"parameters"`
	MissingInfo         []string       `json:"missingInfo,omitempty"`
	ClarifyingQuestions []string       `json:"clarifyingQuestions,omitempty"`
	Warnings            []string       `json:"warnings,omitempty"`
	Alternatives        []Alternative  `json:"alternatives,omitempty"`

	// Sequence is the 1-based position within a multi-operation request,
	// or 0 for a single-operation request.
	Sequence int `json:"sequence,omitempty"`

	// SourceText is the raw instruction segment this interpretation was
	// derived from. Ambiguity resolution re-prompts with it.
	SourceText string `json:"sourceText,omitempty"`

	// FromPattern records that the kind came from the deterministic pattern
	// matcher rather than the oracle. Feeds the confidence calculator.
	FromPattern bool `json:"-"`
}

// Alternative is a lower-confidence candidate reading of the input, offered
// when the primary interpretation falls below the confirmation threshold.
type Alternative struct {
	Kind        OperationKind `json:"operation"`
	Description string        `json:"description"`
	Confidence  int           `json:"confidence"`
}

// Param returns the named parameter as a string, or "" when absent or not
// string-shaped.
func (i *Interpretation) Param(name string) string {
	if i == nil || i.Parameters == nil {
		return ""
	}
	if v, ok := i.Parameters[name]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// ClampConfidence bounds a raw score to the [0,100] contract.
func ClampConfidence(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// =============================================================================
// API OPERATION
// =============================================================================

// ApiOperation is a fully-formed request ready for dispatch: a method name,
// the GraphQL mutation text, and typed variables. It is stateless and
// re-buildable from its Interpretation; after validation it is only ever
// extended with diagnostics, never otherwise mutated.
type ApiOperation struct {
	Kind      OperationKind  `json:"kind"`
	Method    string         `json:"method"`
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`

	// Parameters carries the interpretation parameters forward so the
	// validator's layers can see symbolic values (names, batch targets)
	// that the variables no longer contain.
	Parameters map[string]any `json:"parameters,omitempty"`

	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// ItemRef is a deferred item lookup marker. Mapping never performs live item
// queries; the executor's transport resolves the ref at dispatch time.
type ItemRef struct {
	ID              string `json:"id,omitempty"`
	Name            string `json:"name,omitempty"`
	SearchBy        string `json:"searchBy"` // "id" or "name"
	NeedsResolution bool   `json:"needsResolution"`
}

// =============================================================================
// VALIDATION
// =============================================================================

// Warning is a non-fatal diagnostic. A blocking warning must prevent
// unattended execution even though it is not a hard error.
type Warning struct {
	Message  string `json:"message"`
	Blocking bool   `json:"blocking,omitempty"`
}

// ValidationResult aggregates the output of all validation layers.
type ValidationResult struct {
	Valid    bool      `json:"valid"`
	Errors   []string  `json:"errors,omitempty"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// CanProceed reports whether the operation may run without human
// confirmation: no hard errors and no blocking warnings.
func (r ValidationResult) CanProceed() bool {
	if len(r.Errors) > 0 {
		return false
	}
	for _, w := range r.Warnings {
		if w.Blocking {
			return false
		}
	}
	return true
}

// =============================================================================
// EXECUTION
// =============================================================================

// ExecutionOutcome is the per-target, per-run result of executing one
// ApiOperation, including how many attempts were spent and which recovery
// strategies were applied along the way.
type ExecutionOutcome struct {
	Success         bool     `json:"success"`
	Result          any      `json:"result,omitempty"`
	Err             *OpError `json:"error,omitempty"`
	Attempts        int      `json:"attempts"`
	RecoveryApplied []string `json:"recoveryApplied,omitempty"`
}

// TargetResult pairs a batch target with its outcome. Results are collected
// in launch order regardless of completion order.
type TargetResult struct {
	TargetID string           `json:"targetId"`
	Outcome  ExecutionOutcome `json:"outcome"`
}

// BatchReport aggregates a multi-target run. Failures are grouped by error
// classification, each group carrying a human-readable remediation
// suggestion.
type BatchReport struct {
	Total       int                    `json:"total"`
	Successful  int                    `json:"successful"`
	Failed      int                    `json:"failed"`
	Results     []TargetResult         `json:"results"`
	ErrorGroups map[ErrorKind][]string `json:"errorGroups,omitempty"`
	Suggestions []string               `json:"suggestions,omitempty"`
}
