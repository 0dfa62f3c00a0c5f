package interpret

import (
	"math"
	"regexp"
	"strings"

	"boardpilot/internal/types"
)

// Sub-score weights. They must sum to 1.0.
const (
	weightOperationMatch   = 0.4
	weightParamCompletion  = 0.3
	weightContextRelevance = 0.2
	weightInputClarity     = 0.1
)

var (
	intentVerbs = []string{"create", "add", "update", "delete", "assign", "change", "set", "move", "remove", "rename"}
	quotedRe    = regexp.MustCompile(`"[^"]+"`)
)

// Score computes the final confidence for an interpretation: a weighted sum
// of operation-match, parameter-completeness, context-relevance, and
// input-clarity sub-scores, rounded and clamped to [0,100].
//
// It is a pure function of its inputs. Identical inputs always produce
// identical output; nothing here reads clocks, maps in iteration-order-
// sensitive ways, or global state.
func Score(i *types.Interpretation, rawText string, snap *types.Context) int {
	// An interpretation with no recognized operation carries no confidence
	// at all, regardless of the other signals.
	if i.Kind == types.OpUnknown || i.Kind == types.OpErrorKind {
		return 0
	}

	total := weightOperationMatch*operationMatchScore(i) +
		weightParamCompletion*parameterCompleteness(i) +
		weightContextRelevance*contextRelevance(i.Kind, snap) +
		weightInputClarity*inputClarity(rawText)

	return types.ClampConfidence(int(math.Round(total)))
}

// operationMatchScore is the kind's own provisional confidence, with a +10
// bump when a deterministic pattern produced it.
func operationMatchScore(i *types.Interpretation) float64 {
	score := float64(i.Confidence)
	if i.FromPattern {
		score += 10
	}
	if score > 100 {
		score = 100
	}
	return score
}

// parameterCompleteness is the populated fraction of the kind's required
// parameters, scaled to 100. Kinds with no required parameters score 100.
func parameterCompleteness(i *types.Interpretation) float64 {
	required := i.Kind.RequiredParameters()
	if len(required) == 0 {
		return 100
	}
	populated := 0
	for _, name := range required {
		if types.HasParameter(i.Parameters, name) {
			populated++
		}
	}
	return float64(populated) / float64(len(required)) * 100
}

// contextRelevance scores how well the snapshot supports the operation:
// base 70 for having any context, plus kind-keyed bonuses, capped at 100.
func contextRelevance(kind types.OperationKind, snap *types.Context) float64 {
	if snap.Empty() {
		return 0
	}
	score := 70.0
	switch kind {
	case types.OpItemCreate, types.OpItemUpdate, types.OpItemDelete, types.OpStatusUpdate:
		if snap.CurrentBoard != nil || len(snap.Boards) > 0 {
			score += 20
		}
	case types.OpUserAssign:
		if len(snap.Users) > 0 {
			score += 30
		}
	case types.OpColumnCreate, types.OpColumnUpdate:
		if snap.CurrentBoard != nil {
			score += 20
		}
	case types.OpBulk:
		if len(snap.Boards) > 0 {
			score += 15
		}
	case types.OpBoardCreate, types.OpBoardUpdate, types.OpAutomationCreate,
		types.OpUnknown, types.OpErrorKind:
		// no kind-specific bonus
	}
	if score > 100 {
		score = 100
	}
	return score
}

// inputClarity scores the raw text itself: verbs and quoted literals read as
// deliberate instructions; very short or very long input reads as noise.
func inputClarity(rawText string) float64 {
	score := 50.0
	lower := strings.ToLower(rawText)
	for _, verb := range intentVerbs {
		if strings.Contains(lower, verb) {
			score += 20
			break
		}
	}
	if quotedRe.MatchString(rawText) {
		score += 15
	}
	if len(rawText) < 10 {
		score -= 20
	}
	if len(rawText) > 200 {
		score -= 10
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}
