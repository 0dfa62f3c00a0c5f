package oracle

import (
	"fmt"
	"strings"

	"boardpilot/internal/types"
)

// systemPrompt pins the oracle to the structured interpretation contract.
// Low temperature plus an explicit JSON shape keeps output parseable; the
// scanner still tolerates surrounding prose.
const systemPrompt = `You translate project-management instructions into a single JSON object.

Respond with exactly one JSON object of this shape and nothing else:
{
  "operation": "ITEM_CREATE|ITEM_UPDATE|ITEM_DELETE|BOARD_CREATE|BOARD_UPDATE|COLUMN_CREATE|COLUMN_UPDATE|USER_ASSIGN|STATUS_UPDATE|AUTOMATION_CREATE|BULK_OPERATION|UNKNOWN",
  "confidence": 0-100,
  "parameters": { "itemName": "...", "boardName": "...", "groupName": "...", "userName": "...", "statusValue": "...", "columnValues": {} },
  "missingInfo": ["..."],
  "clarifyingQuestions": ["..."]
}

Only include parameters you can actually extract from the instruction.
If the instruction is ambiguous, lower the confidence and ask a clarifying question.
Never invent board, group, or user names that are not in the provided context.`

const suggestionPrompt = `You propose alternative readings of an ambiguous project-management instruction.

Respond with exactly one JSON object:
{"alternatives": [{"operation": "...", "description": "...", "confidence": 0-100}]}

Give at most 3 alternatives, most plausible first.`

// buildInterpretPrompt assembles the user prompt: the instruction plus a
// compressed context block (names only, no settings payloads) to keep token
// cost bounded.
func buildInterpretPrompt(text string, snap *types.Context) string {
	var b strings.Builder
	b.WriteString("Instruction:\n")
	b.WriteString(text)
	b.WriteString("\n\nWorkspace context:\n")
	b.WriteString(compressContext(snap))
	return b.String()
}

// buildResolvePrompt concatenates the original request, the prior reading,
// and the user's clarification into one re-interpretation prompt.
func buildResolvePrompt(original string, prior *types.Interpretation, clarification string, snap *types.Context) string {
	var b strings.Builder
	b.WriteString("Original instruction:\n")
	b.WriteString(original)
	b.WriteString("\n\nPrevious interpretation:\n")
	fmt.Fprintf(&b, "operation=%s confidence=%d parameters=%v\n", prior.Kind, prior.Confidence, prior.Parameters)
	b.WriteString("\nUser clarification:\n")
	b.WriteString(clarification)
	b.WriteString("\n\nWorkspace context:\n")
	b.WriteString(compressContext(snap))
	b.WriteString("\nRe-interpret the instruction using the clarification.")
	return b.String()
}

// compressContext renders the snapshot as a compact name-only listing.
func compressContext(snap *types.Context) string {
	if snap.Empty() {
		return "(no workspace context available)\n"
	}
	var b strings.Builder
	if snap.CurrentBoard != nil {
		fmt.Fprintf(&b, "current board: %q (id %s)\n", snap.CurrentBoard.Name, snap.CurrentBoard.ID)
	}
	for _, board := range snap.Boards {
		fmt.Fprintf(&b, "board %q (id %s)", board.Name, board.ID)
		if len(board.Groups) > 0 {
			names := make([]string, 0, len(board.Groups))
			for _, g := range board.Groups {
				names = append(names, g.Title)
			}
			fmt.Fprintf(&b, " groups: %s", strings.Join(names, ", "))
		}
		if len(board.Columns) > 0 {
			cols := make([]string, 0, len(board.Columns))
			for _, c := range board.Columns {
				cols = append(cols, fmt.Sprintf("%s(%s)", c.Title, c.Type))
			}
			fmt.Fprintf(&b, " columns: %s", strings.Join(cols, ", "))
		}
		b.WriteString("\n")
	}
	if len(snap.Users) > 0 {
		names := make([]string, 0, len(snap.Users))
		for _, u := range snap.Users {
			names = append(names, u.Name)
		}
		fmt.Fprintf(&b, "users: %s\n", strings.Join(names, ", "))
	}
	return b.String()
}
