// Package interpret turns free-text instructions into typed interpretations.
// It merges the deterministic pattern matcher with the language oracle,
// recomputes confidence, detects multi-operation input, and supports
// ambiguity-resolution re-prompts. Nothing in this package returns an error
// to its callers: every failure becomes an ERROR interpretation with a
// clarifying question, so raw exceptions never escape this boundary.
package interpret

import (
	"context"

	"go.uber.org/zap"

	"boardpilot/internal/logging"
	"boardpilot/internal/pattern"
	"boardpilot/internal/types"
)

// ConfirmThreshold is the confidence below which execution requires explicit
// user confirmation and alternatives are offered.
const ConfirmThreshold = 70

// patternAuthoritative is the pattern confidence at or above which the
// pattern matcher's kind wins the merge over the oracle's.
const patternAuthoritative = 80

// Oracle is the language-model surface the interpreter consumes.
// *oracle.Client satisfies it; tests inject fakes.
type Oracle interface {
	Interpret(ctx context.Context, text string, snap *types.Context) (*types.Interpretation, error)
	Resolve(ctx context.Context, original string, prior *types.Interpretation, clarification string, snap *types.Context) (*types.Interpretation, error)
	Suggestions(ctx context.Context, text string, snap *types.Context) []types.Alternative
}

// Interpreter orchestrates pattern matching, the oracle, and confidence
// scoring into a single interpretation per instruction segment.
type Interpreter struct {
	oracle Oracle
	log    *zap.Logger
}

// New builds an interpreter.
func New(o Oracle) *Interpreter {
	return &Interpreter{oracle: o, log: logging.For(logging.CategoryInterpret)}
}

// Interpret produces one interpretation for one instruction.
func (it *Interpreter) Interpret(ctx context.Context, text string, snap *types.Context) (result *types.Interpretation) {
	// The never-throw contract is absolute: a panic anywhere in the merge
	// pipeline still has to come back as an ERROR interpretation.
	defer func() {
		if r := recover(); r != nil {
			it.log.Error("interpret panic recovered", zap.Any("panic", r))
			result = errorInterpretation(text)
		}
	}()

	pm, patternHit := pattern.Find(text)

	oi, err := it.oracle.Interpret(ctx, text, snap)
	if err != nil {
		it.log.Warn("oracle interpretation unavailable", zap.Error(err))
		oi = nil
	}

	merged := it.merge(text, pm, patternHit, oi)
	if merged == nil {
		return errorInterpretation(text)
	}

	// The calculator's score overrides any provisional confidence from the
	// pattern table or the oracle.
	merged.Confidence = Score(merged, text, snap)

	if merged.Confidence < ConfirmThreshold &&
		merged.Kind != types.OpUnknown && merged.Kind != types.OpErrorKind {
		merged.Alternatives = it.oracle.Suggestions(ctx, text, snap)
		if len(merged.Alternatives) > 3 {
			merged.Alternatives = merged.Alternatives[:3]
		}
	}

	it.log.Info("interpreted",
		zap.String("kind", string(merged.Kind)),
		zap.Int("confidence", merged.Confidence),
		zap.Bool("fromPattern", merged.FromPattern))
	return merged
}

// merge applies the authority rule: a strong pattern match owns the kind and
// provisional confidence, with oracle-extracted parameters overriding on a
// per-key basis; otherwise the oracle's reading is authoritative.
func (it *Interpreter) merge(text string, pm *pattern.Match, patternHit bool, oi *types.Interpretation) *types.Interpretation {
	switch {
	case patternHit && pm.Confidence >= patternAuthoritative:
		merged := &types.Interpretation{
			Kind:        pm.Kind,
			Confidence:  pm.Confidence,
			Parameters:  unionParams(pm.Parameters, oi),
			FromPattern: true,
			SourceText:  text,
		}
		if oi != nil {
			merged.MissingInfo = oi.MissingInfo
			merged.ClarifyingQuestions = oi.ClarifyingQuestions
			merged.Warnings = oi.Warnings
		}
		return merged

	case oi != nil:
		oi.SourceText = text
		return oi

	case patternHit:
		// Oracle unavailable; a weak pattern match is still better than
		// nothing.
		return &types.Interpretation{
			Kind:        pm.Kind,
			Confidence:  pm.Confidence,
			Parameters:  pm.Parameters,
			FromPattern: true,
			SourceText:  text,
		}
	}
	return nil
}

// unionParams starts from the pattern captures and lets non-null oracle
// values override per key. The oracle sees more of the sentence than the
// regexes do, so its extraction wins where both produced a value.
func unionParams(patternParams map[string]any, oi *types.Interpretation) map[string]any {
	merged := make(map[string]any, len(patternParams))
	for k, v := range patternParams {
		merged[k] = v
	}
	if oi != nil {
		for k, v := range oi.Parameters {
			if v == nil {
				continue
			}
			if s, ok := v.(string); ok && s == "" {
				continue
			}
			merged[k] = v
		}
	}
	return merged
}

// errorInterpretation is the typed sentinel for any interpretation failure.
func errorInterpretation(text string) *types.Interpretation {
	return &types.Interpretation{
		Kind:       types.OpErrorKind,
		Confidence: 0,
		Parameters: map[string]any{},
		ClarifyingQuestions: []string{
			"I could not work out what to do from that. Could you rephrase the request?",
		},
		SourceText: text,
	}
}
