// Package oracle wraps the external language model behind a small client:
// prompt assembly, bounded exponential-backoff retry, a hard wall-clock
// timeout per call, and tolerant JSON extraction from the raw response.
// The model is an oracle, not a framework: everything it returns is treated
// as untrusted input.
package oracle

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"boardpilot/internal/config"
	"boardpilot/internal/logging"
	"boardpilot/internal/types"
)

// Completer is the minimal surface the client needs from a model provider.
// Tests inject fakes; production uses the genai-backed implementation.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Client calls the language oracle and decodes its output into typed
// interpretations.
type Client struct {
	completer Completer
	cfg       config.OracleConfig
	log       *zap.Logger

	// sleep is swappable so tests run backoff without real waits.
	sleep func(time.Duration)
}

// NewClient builds an oracle client.
func NewClient(completer Completer, cfg config.OracleConfig) *Client {
	return &Client{
		completer: completer,
		cfg:       cfg,
		log:       logging.For(logging.CategoryOracle),
		sleep:     time.Sleep,
	}
}

// wireInterpretation is the JSON contract the oracle is prompted to emit.
type wireInterpretation struct {
	Operation           string         `json:"operation"`
	Confidence          int            `json:"confidence"`
	Parameters          map[string]any `json:"parameters"`
	MissingInfo         []string       `json:"missingInfo"`
	ClarifyingQuestions []string       `json:"clarifyingQuestions"`
	Warnings            []string       `json:"warnings"`
}

type wireSuggestions struct {
	Alternatives []struct {
		Operation   string `json:"operation"`
		Description string `json:"description"`
		Confidence  int    `json:"confidence"`
	} `json:"alternatives"`
}

// Interpret asks the oracle for a structured reading of the instruction.
func (c *Client) Interpret(ctx context.Context, text string, snap *types.Context) (*types.Interpretation, error) {
	raw, err := c.complete(ctx, systemPrompt, buildInterpretPrompt(text, snap))
	if err != nil {
		return nil, err
	}
	return c.decode(raw)
}

// Resolve re-interprets the original instruction in light of a user
// clarification. The caller owns the +15 confidence boost; this method just
// returns what the oracle said.
func (c *Client) Resolve(ctx context.Context, original string, prior *types.Interpretation, clarification string, snap *types.Context) (*types.Interpretation, error) {
	raw, err := c.complete(ctx, systemPrompt, buildResolvePrompt(original, prior, clarification, snap))
	if err != nil {
		return nil, err
	}
	return c.decode(raw)
}

// Suggestions asks for alternative readings of an ambiguous instruction.
// Failures degrade to an empty list; alternatives are best-effort.
func (c *Client) Suggestions(ctx context.Context, text string, snap *types.Context) []types.Alternative {
	user := fmt.Sprintf("Instruction:\n%s\n\nWorkspace context:\n%s", text, compressContext(snap))
	raw, err := c.complete(ctx, suggestionPrompt, user)
	if err != nil {
		c.log.Warn("suggestion generation failed", zap.Error(err))
		return nil
	}
	var wire wireSuggestions
	if err := decodeFirstObject(raw, &wire); err != nil {
		c.log.Warn("suggestion response unparseable", zap.Error(err))
		return nil
	}
	alts := make([]types.Alternative, 0, 3)
	for _, a := range wire.Alternatives {
		if len(alts) == 3 {
			break
		}
		alts = append(alts, types.Alternative{
			Kind:        types.ParseOperationKind(a.Operation),
			Description: a.Description,
			Confidence:  types.ClampConfidence(a.Confidence),
		})
	}
	return alts
}

// complete runs one prompt through the model with bounded retry.
// Each attempt gets its own hard wall-clock timeout; between attempts the
// client backs off 1s, 2s, 4s. In-flight attempts are not interruptible
// mid-backoff; the per-attempt timeout is the only cancellation mechanism.
func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	attempts := c.cfg.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			c.sleep(time.Duration(1<<uint(i-1)) * time.Second)
		}

		callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout())
		start := time.Now()
		resp, err := c.completer.Complete(callCtx, system, user)
		cancel()

		if err == nil {
			if logging.Verbose() {
				c.log.Debug("oracle response",
					zap.Duration("elapsed", time.Since(start)),
					zap.Int("bytes", len(resp)))
			}
			return resp, nil
		}
		lastErr = err
		c.log.Warn("oracle call failed",
			zap.Int("attempt", i+1),
			zap.Int("maxAttempts", attempts),
			zap.Error(err))

		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("oracle call failed after %d attempts: %w", attempts, lastErr)
}

// decode turns raw model output into a typed Interpretation. Unknown
// operation strings degrade to UNKNOWN; confidence is clamped to [0,100].
func (c *Client) decode(raw string) (*types.Interpretation, error) {
	var wire wireInterpretation
	if err := decodeFirstObject(raw, &wire); err != nil {
		return nil, err
	}
	params := wire.Parameters
	if params == nil {
		params = map[string]any{}
	}
	return &types.Interpretation{
		Kind:                types.ParseOperationKind(wire.Operation),
		Confidence:          types.ClampConfidence(wire.Confidence),
		Parameters:          params,
		MissingInfo:         wire.MissingInfo,
		ClarifyingQuestions: wire.ClarifyingQuestions,
		Warnings:            wire.Warnings,
	}, nil
}
