package interpret

import (
	"context"

	"go.uber.org/zap"

	"boardpilot/internal/types"
)

// clarificationBoost is added to the prior confidence after a successful
// human-in-the-loop clarification. The boost is additive and capped, not a
// recomputation: the user answering the question is itself the signal.
const clarificationBoost = 15

// ResolveAmbiguity re-interprets the prior instruction in light of a user
// clarification. The returned interpretation supersedes the prior one; the
// prior is never mutated. On oracle failure it degrades to an ERROR
// interpretation like every other interpreter path.
func (it *Interpreter) ResolveAmbiguity(ctx context.Context, prior *types.Interpretation, clarification string, snap *types.Context) *types.Interpretation {
	if prior == nil {
		return errorInterpretation("")
	}

	resolved, err := it.oracle.Resolve(ctx, prior.SourceText, prior, clarification, snap)
	if err != nil {
		it.log.Warn("ambiguity resolution failed", zap.Error(err))
		return errorInterpretation(prior.SourceText)
	}

	resolved.SourceText = prior.SourceText
	resolved.Confidence = types.ClampConfidence(prior.Confidence + clarificationBoost)
	it.log.Info("ambiguity resolved",
		zap.String("kind", string(resolved.Kind)),
		zap.Int("confidence", resolved.Confidence))
	return resolved
}
