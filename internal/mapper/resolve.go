package mapper

import (
	"fmt"
	"strings"

	"boardpilot/internal/types"
)

// resolveBoard finds the board an operation targets: numeric/exact ID first,
// then case-insensitive exact name, then the snapshot's current board.
// Board-scoped operations cannot proceed without one.
func resolveBoard(snap *types.Context, in *types.Interpretation) (*types.Board, error) {
	if id := in.Param("boardId"); id != "" {
		for i := range snap.Boards {
			if snap.Boards[i].ID == id {
				return &snap.Boards[i], nil
			}
		}
		return nil, fmt.Errorf("no board with id %q", id)
	}
	if name := in.Param("boardName"); name != "" {
		for i := range snap.Boards {
			if strings.EqualFold(snap.Boards[i].Name, name) {
				return &snap.Boards[i], nil
			}
		}
		return nil, fmt.Errorf("no board named %q", name)
	}
	if snap.CurrentBoard != nil {
		return snap.CurrentBoard, nil
	}
	return nil, fmt.Errorf("no board specified and no current board in context")
}

// resolveGroup finds a group on the board by ID, then case-insensitive title.
func resolveGroup(board *types.Board, nameOrID string) (*types.Group, error) {
	for i := range board.Groups {
		if board.Groups[i].ID == nameOrID {
			return &board.Groups[i], nil
		}
	}
	for i := range board.Groups {
		if strings.EqualFold(board.Groups[i].Title, nameOrID) {
			return &board.Groups[i], nil
		}
	}
	return nil, fmt.Errorf("no group %q on board %q", nameOrID, board.Name)
}

// resolveUser finds a user by ID, exact name (case-insensitive), email
// substring, or fuzzy name containment, in that order.
func resolveUser(snap *types.Context, nameOrID string) (*types.User, error) {
	for i := range snap.Users {
		if snap.Users[i].ID == nameOrID {
			return &snap.Users[i], nil
		}
	}
	for i := range snap.Users {
		if strings.EqualFold(snap.Users[i].Name, nameOrID) {
			return &snap.Users[i], nil
		}
	}
	needle := strings.ToLower(nameOrID)
	for i := range snap.Users {
		if strings.Contains(strings.ToLower(snap.Users[i].Email), needle) {
			return &snap.Users[i], nil
		}
	}
	for i := range snap.Users {
		if strings.Contains(strings.ToLower(snap.Users[i].Name), needle) {
			return &snap.Users[i], nil
		}
	}
	return nil, fmt.Errorf("no user matching %q", nameOrID)
}

// itemRef builds the deferred item-lookup marker. Mapping never performs
// live item queries; refs by name are resolved at execution time.
func itemRef(in *types.Interpretation) (*types.ItemRef, error) {
	if id := in.Param("itemId"); id != "" {
		return &types.ItemRef{ID: id, SearchBy: "id"}, nil
	}
	if name := in.Param("itemName"); name != "" {
		return &types.ItemRef{Name: name, SearchBy: "name", NeedsResolution: true}, nil
	}
	return nil, fmt.Errorf("no item id or name in parameters")
}

// columnByRef finds a column by ID first, then case-insensitive title.
func columnByRef(board *types.Board, ref string) (*types.Column, error) {
	for i := range board.Columns {
		if board.Columns[i].ID == ref {
			return &board.Columns[i], nil
		}
	}
	for i := range board.Columns {
		if strings.EqualFold(board.Columns[i].Title, ref) {
			return &board.Columns[i], nil
		}
	}
	return nil, fmt.Errorf("no column %q on board %q", ref, board.Name)
}

// columnByType finds the first column of the wanted type on the board.
func columnByType(board *types.Board, want types.ColumnType) (*types.Column, error) {
	for i := range board.Columns {
		if board.Columns[i].Type == want {
			return &board.Columns[i], nil
		}
	}
	return nil, fmt.Errorf("board %q has no %s column", board.Name, want)
}
