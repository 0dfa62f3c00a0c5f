// Package mapper turns a typed interpretation plus live board context into a
// concrete API operation: symbolic names resolved to IDs, column values
// formatted per column type, and the matching GraphQL mutation selected.
// Mapping never throws: failures are attached to the returned operation as
// diagnostics so callers always get a value to inspect.
package mapper

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"boardpilot/internal/logging"
	"boardpilot/internal/types"
)

// Mapper maps interpretations to API operations. It is stateless; one
// instance serves all requests.
type Mapper struct {
	log *zap.Logger
}

// New builds a mapper.
func New() *Mapper {
	return &Mapper{log: logging.For(logging.CategoryMapper)}
}

// Map dispatches on the operation kind. The switch is exhaustive over the
// closed kind set: a new kind fails compilation review here, not at runtime.
func (m *Mapper) Map(in *types.Interpretation, snap *types.Context) *types.ApiOperation {
	op := &types.ApiOperation{
		Kind:       in.Kind,
		Variables:  map[string]any{},
		Parameters: in.Parameters,
	}

	var err error
	switch in.Kind {
	case types.OpItemCreate:
		err = m.mapItemCreate(op, in, snap)
	case types.OpItemUpdate:
		err = m.mapItemUpdate(op, in, snap)
	case types.OpItemDelete:
		err = m.mapItemDelete(op, in)
	case types.OpBoardCreate:
		err = m.mapBoardCreate(op, in)
	case types.OpBoardUpdate:
		err = m.mapBoardUpdate(op, in, snap)
	case types.OpColumnCreate:
		err = m.mapColumnCreate(op, in, snap)
	case types.OpColumnUpdate:
		err = m.mapColumnUpdate(op, in, snap)
	case types.OpUserAssign:
		err = m.mapUserAssign(op, in, snap)
	case types.OpStatusUpdate:
		err = m.mapStatusUpdate(op, in, snap)
	case types.OpAutomationCreate:
		// Automation composition is a stub: the sentinel carries the error
		// contract, not real behavior.
		op.Method = MethodAutomationNotImplemented
		op.Errors = append(op.Errors, "automation creation is not implemented")
	case types.OpBulk:
		// Bulk requests are decomposed by the batch coordinator, which maps
		// a per-target operation from a template. Direct mapping of the
		// composite is intentionally unimplemented.
		op.Method = MethodBulkNotImplemented
		op.Errors = append(op.Errors, "bulk composition must go through the batch coordinator")
	case types.OpUnknown, types.OpErrorKind:
		op.Errors = append(op.Errors, fmt.Sprintf("cannot map operation kind %s", in.Kind))
	default:
		op.Errors = append(op.Errors, fmt.Sprintf("unhandled operation kind %s", in.Kind))
	}
	if err != nil {
		op.Errors = append(op.Errors, err.Error())
	}

	m.finalize(op, snap)
	if len(op.Errors) > 0 {
		m.log.Warn("mapping produced errors",
			zap.String("kind", string(in.Kind)),
			zap.Strings("errors", op.Errors))
	}
	return op
}

func (m *Mapper) mapItemCreate(op *types.ApiOperation, in *types.Interpretation, snap *types.Context) error {
	board, err := resolveBoard(snap, in)
	if err != nil {
		return err
	}
	itemName := in.Param("itemName")
	if itemName == "" {
		return fmt.Errorf("item name is required")
	}

	op.Method = MethodCreateItem
	op.Query = queryCreateItem
	op.Variables["boardId"] = board.ID
	op.Variables["itemName"] = itemName

	if groupName := in.Param("groupName"); groupName != "" {
		group, err := resolveGroup(board, groupName)
		if err != nil {
			return err
		}
		op.Variables["groupId"] = group.ID
	}

	values, err := m.formatColumnValues(board, in)
	if err != nil {
		return err
	}
	if values != nil {
		op.Variables["columnValues"] = values
	}
	return nil
}

func (m *Mapper) mapItemUpdate(op *types.ApiOperation, in *types.Interpretation, snap *types.Context) error {
	board, err := resolveBoard(snap, in)
	if err != nil {
		return err
	}
	ref, err := itemRef(in)
	if err != nil {
		return err
	}

	// A bare group target is a move; column values are a multi-column update.
	if groupName := in.Param("groupName"); groupName != "" {
		group, err := resolveGroup(board, groupName)
		if err != nil {
			return err
		}
		op.Method = MethodMoveItemToGroup
		op.Query = queryMoveItemToGroup
		op.Variables["itemId"] = ref
		op.Variables["groupId"] = group.ID
		return nil
	}

	values, err := m.formatColumnValues(board, in)
	if err != nil {
		return err
	}
	if values == nil {
		return fmt.Errorf("item update needs column values or a target group")
	}
	op.Method = MethodUpdateItemColumns
	op.Query = queryUpdateItemColumns
	op.Variables["boardId"] = board.ID
	op.Variables["itemId"] = ref
	op.Variables["columnValues"] = values
	return nil
}

func (m *Mapper) mapItemDelete(op *types.ApiOperation, in *types.Interpretation) error {
	ref, err := itemRef(in)
	if err != nil {
		return err
	}
	op.Method = MethodDeleteItem
	op.Query = queryDeleteItem
	op.Variables["itemId"] = ref
	return nil
}

func (m *Mapper) mapBoardCreate(op *types.ApiOperation, in *types.Interpretation) error {
	name := in.Param("boardName")
	if name == "" {
		return fmt.Errorf("board name is required")
	}
	op.Method = MethodCreateBoard
	op.Query = queryCreateBoard
	op.Variables["boardName"] = name
	op.Variables["boardKind"] = "public"
	return nil
}

func (m *Mapper) mapBoardUpdate(op *types.ApiOperation, in *types.Interpretation, snap *types.Context) error {
	board, err := resolveBoard(snap, in)
	if err != nil {
		return err
	}
	newName := in.Param("newName")
	if newName == "" {
		return fmt.Errorf("board update needs a new name")
	}
	op.Method = MethodUpdateBoard
	op.Query = queryUpdateBoard
	op.Variables["boardId"] = board.ID
	op.Variables["boardAttribute"] = "name"
	op.Variables["newValue"] = newName
	return nil
}

func (m *Mapper) mapColumnCreate(op *types.ApiOperation, in *types.Interpretation, snap *types.Context) error {
	board, err := resolveBoard(snap, in)
	if err != nil {
		return err
	}
	title := in.Param("columnTitle")
	if title == "" {
		return fmt.Errorf("column title is required")
	}
	op.Method = MethodCreateColumn
	op.Query = queryCreateColumn
	op.Variables["boardId"] = board.ID
	op.Variables["title"] = title
	op.Variables["columnType"] = normalizeColumnType(in.Param("columnType"))
	return nil
}

func (m *Mapper) mapColumnUpdate(op *types.ApiOperation, in *types.Interpretation, snap *types.Context) error {
	board, err := resolveBoard(snap, in)
	if err != nil {
		return err
	}
	ref := in.Param("columnId")
	if ref == "" {
		ref = in.Param("columnTitle")
	}
	if ref == "" {
		return fmt.Errorf("column update needs a column id or title")
	}
	col, err := columnByRef(board, ref)
	if err != nil {
		return err
	}
	newTitle := in.Param("newName")
	if newTitle == "" {
		return fmt.Errorf("column update needs a new title")
	}
	op.Method = MethodChangeColumnTitle
	op.Query = queryChangeColumnTitle
	op.Variables["boardId"] = board.ID
	op.Variables["columnId"] = col.ID
	op.Variables["title"] = newTitle
	return nil
}

func (m *Mapper) mapUserAssign(op *types.ApiOperation, in *types.Interpretation, snap *types.Context) error {
	board, err := resolveBoard(snap, in)
	if err != nil {
		return err
	}
	ref, err := itemRef(in)
	if err != nil {
		return err
	}
	userRef := in.Param("userName")
	if userRef == "" {
		userRef = in.Param("userId")
	}
	if userRef == "" {
		userRef = in.Param("userEmail")
	}
	user, err := resolveUser(snap, userRef)
	if err != nil {
		return err
	}
	col, err := columnByType(board, types.ColumnPeople)
	if err != nil {
		return err
	}
	value, err := FormatColumnValue(*col, user.ID)
	if err != nil {
		return err
	}
	op.Method = MethodChangeColumnValue
	op.Query = queryChangeColumnValue
	op.Variables["boardId"] = board.ID
	op.Variables["itemId"] = ref
	op.Variables["columnId"] = col.ID
	op.Variables["value"] = value
	return nil
}

func (m *Mapper) mapStatusUpdate(op *types.ApiOperation, in *types.Interpretation, snap *types.Context) error {
	board, err := resolveBoard(snap, in)
	if err != nil {
		return err
	}
	ref, err := itemRef(in)
	if err != nil {
		return err
	}
	status := in.Param("statusValue")
	if status == "" {
		return fmt.Errorf("status update needs a status value")
	}
	col, err := columnByType(board, types.ColumnStatus)
	if err != nil {
		return err
	}
	value, err := FormatColumnValue(*col, status)
	if err != nil {
		return err
	}
	op.Method = MethodChangeColumnValue
	op.Query = queryChangeColumnValue
	op.Variables["boardId"] = board.ID
	op.Variables["itemId"] = ref
	op.Variables["columnId"] = col.ID
	op.Variables["value"] = value
	return nil
}

// formatColumnValues formats the interpretation's columnValues map against
// the board's column definitions. Returns nil when the parameter is absent.
func (m *Mapper) formatColumnValues(board *types.Board, in *types.Interpretation) (map[string]any, error) {
	raw, ok := in.Parameters["columnValues"].(map[string]any)
	if !ok || len(raw) == 0 {
		return nil, nil
	}
	formatted := make(map[string]any, len(raw))
	for ref, value := range raw {
		col, err := columnByRef(board, ref)
		if err != nil {
			return nil, err
		}
		v, err := FormatColumnValue(*col, value)
		if err != nil {
			return nil, err
		}
		formatted[col.ID] = v
	}
	return formatted, nil
}

// methodPermissions correlates mutation methods with the capability they
// require. Methods outside the table need no specific capability.
var methodPermissions = map[string]func(types.Permissions) bool{
	MethodCreateBoard: func(p types.Permissions) bool { return p.CanCreateBoards },
	MethodDeleteItem:  func(p types.Permissions) bool { return p.CanDeleteItems },
	MethodAutomationNotImplemented: func(p types.Permissions) bool {
		return p.CanCreateAutomations
	},
}

// finalize applies the post-mapping checks: a missing method or query is a
// hard error, null variable values are warnings, and the method must be
// covered by the caller's permissions.
func (m *Mapper) finalize(op *types.ApiOperation, snap *types.Context) {
	if op.Method == "" {
		op.Errors = append(op.Errors, "mapping produced no method")
	}
	if op.Query == "" && !strings.HasSuffix(op.Method, "_NOT_IMPLEMENTED") {
		op.Errors = append(op.Errors, "mapping produced no query")
	}
	for name, v := range op.Variables {
		if v == nil {
			op.Warnings = append(op.Warnings, fmt.Sprintf("variable %q is null", name))
		}
	}
	if check, ok := methodPermissions[op.Method]; ok && !check(snap.Permissions) {
		op.Errors = append(op.Errors, fmt.Sprintf("missing permission for %s", op.Method))
	}
}

// normalizeColumnType maps loose user wording onto the API's column types.
func normalizeColumnType(raw string) types.ColumnType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "number", "numbers", "numeric":
		return types.ColumnNumber
	case "status":
		return types.ColumnStatus
	case "date":
		return types.ColumnDate
	case "people", "person":
		return types.ColumnPeople
	case "checkbox":
		return types.ColumnCheckbox
	case "dropdown":
		return types.ColumnDropdown
	case "email":
		return types.ColumnEmail
	case "phone":
		return types.ColumnPhone
	case "link", "url":
		return types.ColumnLink
	case "rating":
		return types.ColumnRating
	default:
		return types.ColumnText
	}
}
