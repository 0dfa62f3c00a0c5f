// Package validate runs a mapped operation through six independent,
// order-independent check layers: basic shape, permissions, resource
// existence, data format, quantitative constraints, and business-logic
// conflicts. Layers only ever append diagnostics; the operation itself is
// never mutated, so validating twice yields identical results.
package validate

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"boardpilot/internal/logging"
	"boardpilot/internal/mapper"
	"boardpilot/internal/types"
)

// Quantitative ceilings for the constraints layer.
const (
	maxItemsPerBoard     = 10000
	warnItemsPerBoard    = 9000
	maxGroupsPerBoard    = 100
	warnAutomationsBoard = 50
	maxItemNameLength    = 255
	warnBatchSize        = 100
)

// Lookup answers read-only existence queries for resources the snapshot
// cannot see (items, foreign boards). A nil Lookup skips live checks and
// relies on the snapshot alone.
type Lookup interface {
	Exists(ctx context.Context, resource, id string) (bool, error)
}

// Validator validates operations against a context snapshot.
type Validator struct {
	lookup Lookup
	log    *zap.Logger
}

// New builds a validator. lookup may be nil.
func New(lookup Lookup) *Validator {
	return &Validator{lookup: lookup, log: logging.For(logging.CategoryValidate)}
}

type layerResult struct {
	errors   []string
	warnings []types.Warning
}

func (r *layerResult) errf(format string, args ...any) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func (r *layerResult) warnf(format string, args ...any) {
	r.warnings = append(r.warnings, types.Warning{Message: fmt.Sprintf(format, args...)})
}

func (r *layerResult) blockf(format string, args ...any) {
	r.warnings = append(r.warnings, types.Warning{Message: fmt.Sprintf(format, args...), Blocking: true})
}

// Validate runs every layer and concatenates their diagnostics. The layers
// are independent: one layer's failure never short-circuits another.
func (v *Validator) Validate(ctx context.Context, op *types.ApiOperation, snap *types.Context) types.ValidationResult {
	layers := []func(context.Context, *types.ApiOperation, *types.Context) layerResult{
		v.checkBasic,
		v.checkPermissions,
		v.checkResources,
		v.checkData,
		v.checkConstraints,
		v.checkBusinessLogic,
	}

	var result types.ValidationResult
	for _, layer := range layers {
		lr := layer(ctx, op, snap)
		result.Errors = append(result.Errors, lr.errors...)
		result.Warnings = append(result.Warnings, lr.warnings...)
	}
	result.Valid = len(result.Errors) == 0

	v.log.Debug("validated",
		zap.String("method", op.Method),
		zap.Int("errors", len(result.Errors)),
		zap.Int("warnings", len(result.Warnings)),
		zap.Bool("canProceed", result.CanProceed()))
	return result
}

// checkBasic verifies the operation's shape: a known kind, a parameter map,
// and every kind-required parameter populated.
func (v *Validator) checkBasic(_ context.Context, op *types.ApiOperation, _ *types.Context) layerResult {
	var r layerResult
	if !op.Kind.Valid() || op.Kind == types.OpUnknown || op.Kind == types.OpErrorKind {
		r.errf("operation has no executable kind (%s)", op.Kind)
		return r
	}
	if op.Parameters == nil {
		r.errf("operation carries no parameters")
		return r
	}
	for _, name := range op.Kind.RequiredParameters() {
		if !types.HasParameter(op.Parameters, name) {
			r.errf("required parameter %q is missing", name)
		}
	}
	return r
}

func (v *Validator) checkPermissions(_ context.Context, op *types.ApiOperation, snap *types.Context) layerResult {
	var r layerResult
	perms := snap.Permissions

	// Board deletion and user management never map to an operation, so the
	// guest-restricted surface collapses to automation creation.
	if perms.IsGuest && op.Kind == types.OpAutomationCreate {
		r.errf("guest users cannot run %s", op.Method)
	}

	switch op.Kind {
	case types.OpBoardCreate:
		if !perms.CanCreateBoards {
			r.errf("account lacks the create-board permission")
		}
	case types.OpItemDelete:
		if !perms.CanDeleteItems {
			r.errf("account lacks the delete-item permission")
		}
	case types.OpAutomationCreate:
		if !perms.CanCreateAutomations {
			r.errf("account lacks the create-automation permission")
		}
	case types.OpItemCreate, types.OpItemUpdate, types.OpBoardUpdate,
		types.OpColumnCreate, types.OpColumnUpdate, types.OpUserAssign,
		types.OpStatusUpdate, types.OpBulk, types.OpUnknown, types.OpErrorKind:
		// no dedicated capability
	}
	return r
}

// checkResources confirms that every ID-shaped parameter names something
// that actually exists: boards, groups, users, and columns against the
// snapshot, items against the live lookup.
func (v *Validator) checkResources(ctx context.Context, op *types.ApiOperation, snap *types.Context) layerResult {
	var r layerResult

	if id := paramString(op, "boardId"); id != "" {
		if findBoard(snap, id) == nil {
			r.errf("board %s does not exist", id)
		}
	}
	if id := paramString(op, "groupId"); id != "" {
		if !groupExists(snap, id) {
			r.errf("group %s does not exist", id)
		}
	}
	if id := paramString(op, "userId"); id != "" {
		if !userExists(snap, id) {
			r.errf("user %s does not exist", id)
		}
	}
	if id := paramString(op, "columnId"); id != "" {
		if !columnExists(snap, id) {
			r.errf("column %s does not exist", id)
		}
	}
	if id := paramString(op, "itemId"); id != "" && v.lookup != nil {
		exists, err := v.lookup.Exists(ctx, "item", id)
		if err != nil {
			r.errf("could not verify item %s: %v", id, err)
		} else if !exists {
			r.errf("item %s does not exist", id)
		}
	}
	return r
}

// checkData validates value formats: item-name bounds, per-type column
// values, and batch-target array sizing.
func (v *Validator) checkData(_ context.Context, op *types.ApiOperation, snap *types.Context) layerResult {
	var r layerResult

	if name, ok := op.Parameters["itemName"].(string); ok {
		if strings.TrimSpace(name) == "" {
			r.errf("item name must not be empty")
		} else if len(name) > maxItemNameLength {
			r.errf("item name exceeds %d characters (%d)", maxItemNameLength, len(name))
		}
	}

	if raw, ok := op.Parameters["columnValues"].(map[string]any); ok {
		if board := boardForOp(snap, op); board != nil {
			for ref, value := range raw {
				col := findColumn(board, ref)
				if col == nil {
					r.errf("column %q does not exist on board %q", ref, board.Name)
					continue
				}
				// Same type dispatch as the mapper, run purely as a check.
				if _, err := mapper.FormatColumnValue(*col, value); err != nil {
					r.errf("invalid value for column %q: %v", col.Title, err)
				}
			}
		}
	}

	if targets, ok := op.Parameters["targetIds"].([]any); ok {
		switch {
		case len(targets) == 0:
			r.errf("batch operation has no targets")
		case len(targets) > warnBatchSize:
			r.warnf("batch of %d targets is large; consider batches of %d or fewer", len(targets), warnBatchSize)
		}
	}
	return r
}

// checkConstraints enforces the quantitative ceilings on the target board.
func (v *Validator) checkConstraints(_ context.Context, op *types.ApiOperation, snap *types.Context) layerResult {
	var r layerResult
	board := boardForOp(snap, op)
	if board == nil {
		return r
	}

	switch op.Kind {
	case types.OpItemCreate, types.OpBulk:
		if board.ItemCount >= maxItemsPerBoard {
			r.errf("board %q is at the %d item limit", board.Name, maxItemsPerBoard)
		} else if board.ItemCount >= warnItemsPerBoard {
			r.warnf("board %q is approaching the item limit (%d of %d)", board.Name, board.ItemCount, maxItemsPerBoard)
		}
		if groupName := paramString(op, "groupName"); groupName != "" {
			if !groupTitled(board, groupName) && len(board.Groups) >= maxGroupsPerBoard {
				r.errf("board %q is at the %d group limit", board.Name, maxGroupsPerBoard)
			}
		}
	case types.OpAutomationCreate:
		if board.AutomationCount >= warnAutomationsBoard {
			r.warnf("board %q already has %d automations", board.Name, board.AutomationCount)
		}
	case types.OpItemUpdate, types.OpItemDelete, types.OpBoardCreate,
		types.OpBoardUpdate, types.OpColumnCreate, types.OpColumnUpdate,
		types.OpUserAssign, types.OpStatusUpdate, types.OpUnknown, types.OpErrorKind:
		// no per-board ceiling applies
	}
	return r
}

// checkBusinessLogic flags conflicts that are technically executable but
// probably not what the user wants.
func (v *Validator) checkBusinessLogic(_ context.Context, op *types.ApiOperation, snap *types.Context) layerResult {
	var r layerResult
	board := boardForOp(snap, op)

	// Moving an item within its own board is legal but often a sign the
	// user expected a cross-board move.
	if op.Method == "move_item_to_group" && board != nil {
		r.warnf("move stays within board %q", board.Name)
		if itemName := paramString(op, "itemName"); itemName != "" {
			if group := paramString(op, "groupName"); group != "" {
				if itemAlreadyInGroup(board, itemName, group) {
					r.warnf("item %q is already in group %q", itemName, group)
				}
			}
		}
	}

	// An automation whose trigger status equals its action status loops
	// forever. Blocking: it must not run unattended even though it is not
	// a schema error.
	if op.Kind == types.OpAutomationCreate {
		trigger := paramString(op, "triggerStatus")
		action := paramString(op, "actionStatus")
		if trigger != "" && strings.EqualFold(trigger, action) {
			r.blockf("automation trigger status %q equals its action status; this would loop forever", trigger)
		}
	}

	// Creating an item whose name already exists usually means the user
	// wanted an update.
	if op.Kind == types.OpItemCreate && board != nil {
		if name := paramString(op, "itemName"); name != "" {
			for _, item := range board.SampleItems {
				if strings.EqualFold(item.Name, name) {
					r.warnf("an item named %q already exists (id %s); did you mean to update it?", name, item.ID)
					break
				}
			}
		}
	}
	return r
}

// --- snapshot helpers -------------------------------------------------------

func paramString(op *types.ApiOperation, name string) string {
	if v, ok := op.Parameters[name].(string); ok {
		return v
	}
	return ""
}

func findBoard(snap *types.Context, id string) *types.Board {
	for i := range snap.Boards {
		if snap.Boards[i].ID == id {
			return &snap.Boards[i]
		}
	}
	return nil
}

// boardForOp resolves the board an operation touches: explicit ID, then
// name, then the snapshot's current board.
func boardForOp(snap *types.Context, op *types.ApiOperation) *types.Board {
	if id := paramString(op, "boardId"); id != "" {
		return findBoard(snap, id)
	}
	if name := paramString(op, "boardName"); name != "" {
		for i := range snap.Boards {
			if strings.EqualFold(snap.Boards[i].Name, name) {
				return &snap.Boards[i]
			}
		}
	}
	return snap.CurrentBoard
}

func groupExists(snap *types.Context, id string) bool {
	for _, b := range snap.Boards {
		for _, g := range b.Groups {
			if g.ID == id {
				return true
			}
		}
	}
	return false
}

func groupTitled(board *types.Board, nameOrID string) bool {
	for _, g := range board.Groups {
		if g.ID == nameOrID || strings.EqualFold(g.Title, nameOrID) {
			return true
		}
	}
	return false
}

func userExists(snap *types.Context, id string) bool {
	for _, u := range snap.Users {
		if u.ID == id {
			return true
		}
	}
	return false
}

func columnExists(snap *types.Context, id string) bool {
	for _, b := range snap.Boards {
		for _, c := range b.Columns {
			if c.ID == id {
				return true
			}
		}
	}
	return false
}

func findColumn(board *types.Board, ref string) *types.Column {
	for i := range board.Columns {
		if board.Columns[i].ID == ref || strings.EqualFold(board.Columns[i].Title, ref) {
			return &board.Columns[i]
		}
	}
	return nil
}

func itemAlreadyInGroup(board *types.Board, itemName, groupRef string) bool {
	var groupID string
	for _, g := range board.Groups {
		if g.ID == groupRef || strings.EqualFold(g.Title, groupRef) {
			groupID = g.ID
			break
		}
	}
	if groupID == "" {
		return false
	}
	for _, item := range board.SampleItems {
		if strings.EqualFold(item.Name, itemName) && item.GroupID == groupID {
			return true
		}
	}
	return false
}
