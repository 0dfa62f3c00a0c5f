package interpret

import (
	"context"
	"strings"

	"boardpilot/internal/types"
)

// separators split a compound instruction into segments, applied in this
// order. Splitting is literal-string based, not clause-aware: a separator
// token inside a quoted item name will still split the sentence. Known
// limitation, kept so compound detection stays deterministic and cheap.
var separators = []string{" and ", " then ", ", ", " also ", " plus "}

// DetectMultiple splits a compound instruction into independently
// interpreted segments, each tagged with a 1-based sequence. Input with no
// separators delegates to single-shot Interpret.
func (it *Interpreter) DetectMultiple(ctx context.Context, text string, snap *types.Context) []*types.Interpretation {
	segments := splitSegments(text)
	if len(segments) <= 1 {
		return []*types.Interpretation{it.Interpret(ctx, text, snap)}
	}

	// Segments execute strictly in detected order downstream, because later
	// operations may depend on earlier side effects.
	results := make([]*types.Interpretation, 0, len(segments))
	for i, seg := range segments {
		in := it.Interpret(ctx, seg, snap)
		in.Sequence = i + 1
		results = append(results, in)
	}
	return results
}

func splitSegments(text string) []string {
	parts := []string{text}
	for _, sep := range separators {
		var next []string
		for _, p := range parts {
			next = append(next, strings.Split(p, sep)...)
		}
		parts = next
	}

	segments := parts[:0]
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			segments = append(segments, trimmed)
		}
	}
	return segments
}
