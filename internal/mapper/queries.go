package mapper

import "boardpilot/internal/types"

// GraphQL mutation templates. These strings are part of the external
// contract with the upstream API and must match its schema exactly; do not
// reformat them.
const (
	queryCreateItem = `mutation CreateItem($boardId: ID!, $groupId: String, $itemName: String!, $columnValues: JSON) {
  create_item(board_id: $boardId, group_id: $groupId, item_name: $itemName, column_values: $columnValues) {
    id
    name
  }
}`

	queryUpdateItemColumns = `mutation UpdateItemColumns($boardId: ID!, $itemId: ID!, $columnValues: JSON!) {
  change_multiple_column_values(board_id: $boardId, item_id: $itemId, column_values: $columnValues) {
    id
  }
}`

	queryMoveItemToGroup = `mutation MoveItemToGroup($itemId: ID!, $groupId: String!) {
  move_item_to_group(item_id: $itemId, group_id: $groupId) {
    id
  }
}`

	queryDeleteItem = `mutation DeleteItem($itemId: ID!) {
  delete_item(item_id: $itemId) {
    id
  }
}`

	queryCreateBoard = `mutation CreateBoard($boardName: String!, $boardKind: BoardKind!) {
  create_board(board_name: $boardName, board_kind: $boardKind) {
    id
    name
  }
}`

	queryUpdateBoard = `mutation UpdateBoard($boardId: ID!, $boardAttribute: BoardAttributes!, $newValue: String!) {
  update_board(board_id: $boardId, board_attribute: $boardAttribute, new_value: $newValue)
}`

	queryCreateColumn = `mutation CreateColumn($boardId: ID!, $title: String!, $columnType: ColumnType!) {
  create_column(board_id: $boardId, title: $title, column_type: $columnType) {
    id
    title
  }
}`

	queryChangeColumnTitle = `mutation ChangeColumnTitle($boardId: ID!, $columnId: String!, $title: String!) {
  change_column_title(board_id: $boardId, column_id: $columnId, title: $title) {
    id
  }
}`

	queryChangeColumnValue = `mutation ChangeColumnValue($boardId: ID!, $itemId: ID!, $columnId: String!, $value: JSON!) {
  change_column_value(board_id: $boardId, item_id: $itemId, column_id: $columnId, value: $value) {
    id
  }
}`
)

// Method names for each mutation, used for shim routing and permission
// correlation.
const (
	MethodCreateItem        = "create_item"
	MethodUpdateItemColumns = "change_multiple_column_values"
	MethodMoveItemToGroup   = "move_item_to_group"
	MethodDeleteItem        = "delete_item"
	MethodCreateBoard       = "create_board"
	MethodUpdateBoard       = "update_board"
	MethodCreateColumn      = "create_column"
	MethodChangeColumnTitle = "change_column_title"
	MethodChangeColumnValue = "change_column_value"

	// Sentinel methods for stubbed compositions. They intentionally carry
	// no query: callers get a typed error, never a dispatch.
	MethodAutomationNotImplemented = "create_automation_NOT_IMPLEMENTED"
	MethodBulkNotImplemented       = "bulk_composition_NOT_IMPLEMENTED"
)

// DeleteItemOperation builds a delete mutation for a known item ID. The
// executor uses it to unwind a successful create during transactional
// rollback.
func DeleteItemOperation(itemID string) *types.ApiOperation {
	return &types.ApiOperation{
		Kind:      types.OpItemDelete,
		Method:    MethodDeleteItem,
		Query:     queryDeleteItem,
		Variables: map[string]any{"itemId": itemID},
	}
}
