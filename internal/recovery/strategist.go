package recovery

import (
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"boardpilot/internal/logging"
	"boardpilot/internal/types"
)

// Strategy names carried on recovery plans and batch reports.
const (
	StrategyWaitRetry    = "wait_and_retry"
	StrategyBackoffRetry = "backoff_and_retry"
	StrategyFixData      = "fix_data_and_retry"
	StrategyNone         = ""
)

const (
	defaultRateLimitWait = time.Second
	maxNetworkBackoff    = 30 * time.Second
)

// Request describes the failure the strategist must decide on.
type Request struct {
	Operation *types.ApiOperation
	Attempt   int // 1-based attempt that just failed
	Snapshot  *types.Context
}

// Plan is the strategist's decision. Recovered means a fix was applied and
// NewData carries replacement parameter values; ShouldRetry tells the
// executor whether another attempt is worthwhile.
type Plan struct {
	Kind         types.ErrorKind
	Recovered    bool
	ShouldRetry  bool
	Strategy     string
	Wait         time.Duration
	NewData      map[string]any
	Suggestion   string
	Alternatives []string
	// Alternative is a replacement interpretation for failures where a
	// different operation would succeed (duplicate create becomes update).
	Alternative *types.Interpretation
}

// Strategist maps classified failures onto recovery plans.
type Strategist struct {
	log *zap.Logger
}

// NewStrategist builds a strategist.
func NewStrategist() *Strategist {
	return &Strategist{log: logging.For(logging.CategoryExecute)}
}

// Recover classifies err and returns the plan for it. Every error gets a
// plan; unclassifiable failures get the no-strategy plan.
func (s *Strategist) Recover(err error, req Request) Plan {
	kind := Classify(err)
	plan := s.planFor(kind, err, req)
	plan.Kind = kind

	s.log.Debug("recovery plan",
		zap.String("kind", string(kind)),
		zap.String("strategy", plan.Strategy),
		zap.Bool("retry", plan.ShouldRetry),
		zap.Duration("wait", plan.Wait),
		zap.Int("attempt", req.Attempt))
	return plan
}

func (s *Strategist) planFor(kind types.ErrorKind, err error, req Request) Plan {
	switch kind {
	case types.ErrRateLimit:
		return Plan{
			ShouldRetry: true,
			Strategy:    StrategyWaitRetry,
			Wait:        rateLimitWait(err),
			Suggestion:  "the API is throttling requests; reduce batch size or slow down",
		}
	case types.ErrNetwork:
		return Plan{
			ShouldRetry: true,
			Strategy:    StrategyBackoffRetry,
			Wait:        networkBackoff(req.Attempt),
		}
	case types.ErrPermission:
		return Plan{
			Suggestion: "your account lacks permission for this operation; ask a board admin to grant it or run it for you",
		}
	case types.ErrInvalidData:
		return s.fixDataPlan(req)
	case types.ErrNotFound:
		return Plan{
			Suggestion: "the target no longer exists; refresh the board and retry",
			Alternatives: []string{
				"search the board for the item by name",
				"create the item first, then repeat the operation",
			},
		}
	case types.ErrDuplicate:
		return duplicatePlan(req)
	case types.ErrParse, types.ErrUnknown:
		return Plan{}
	default:
		return Plan{}
	}
}

// rateLimitWait honors the structured retry-after when the transport
// supplied one.
func rateLimitWait(err error) time.Duration {
	if opErr, ok := types.AsOpError(err); ok && opErr.RetryAfter > 0 {
		return opErr.RetryAfter
	}
	return defaultRateLimitWait
}

// networkBackoff is min(1s * 2^attempt, 30s) for the 1-based failed attempt.
func networkBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	wait := time.Second * (1 << uint(attempt))
	if wait > maxNetworkBackoff || wait <= 0 {
		wait = maxNetworkBackoff
	}
	return wait
}

// fixDataPlan re-coerces parameter values whose key names hint at a type the
// upstream rejected. The retry happens only if at least one value actually
// changed; re-sending identical data would fail identically.
func (s *Strategist) fixDataPlan(req Request) Plan {
	if req.Operation == nil || req.Operation.Parameters == nil {
		return Plan{Suggestion: "the API rejected the request data and no parameters are available to fix"}
	}

	fixed := map[string]any{}
	for key, value := range req.Operation.Parameters {
		if nested, ok := value.(map[string]any); ok && key == "columnValues" {
			newNested, changed := coerceMap(nested)
			if changed {
				fixed[key] = newNested
			}
			continue
		}
		if coerced, changed := coerceByKeyHint(key, value); changed {
			fixed[key] = coerced
		}
	}

	if len(fixed) == 0 {
		return Plan{Suggestion: "the API rejected the request data; check the column value formats"}
	}
	return Plan{
		Recovered:   true,
		ShouldRetry: true,
		Strategy:    StrategyFixData,
		NewData:     fixed,
	}
}

func coerceMap(values map[string]any) (map[string]any, bool) {
	out := make(map[string]any, len(values))
	changed := false
	for key, value := range values {
		coerced, c := coerceByKeyHint(key, value)
		out[key] = coerced
		changed = changed || c
	}
	return out, changed
}

// coerceByKeyHint applies the key-name heuristics: "date" keys get ISO date
// formatting, "number"/"count" keys get a numeric string, "status" keys get
// the {label} wrapper, "person"/"people" keys get the personsAndTeams shape.
func coerceByKeyHint(key string, value any) (any, bool) {
	lower := strings.ToLower(key)
	switch {
	case strings.Contains(lower, "date"):
		return coerceDate(value)
	case strings.Contains(lower, "number"), strings.Contains(lower, "count"):
		return coerceNumericString(value)
	case strings.Contains(lower, "status"):
		if str, ok := value.(string); ok {
			return map[string]any{"label": str}, true
		}
		return value, false
	case strings.Contains(lower, "person"), strings.Contains(lower, "people"):
		if str, ok := value.(string); ok {
			return map[string]any{
				"personsAndTeams": []map[string]any{{"id": str, "kind": "person"}},
			}, true
		}
		return value, false
	default:
		return value, false
	}
}

var fixableDateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-01-02 15:04:05",
}

func coerceDate(value any) (any, bool) {
	str, ok := value.(string)
	if !ok {
		return value, false
	}
	for _, layout := range fixableDateLayouts {
		if t, err := time.Parse(layout, str); err == nil {
			iso := t.Format("2006-01-02")
			if iso != str {
				return iso, true
			}
			return value, false
		}
	}
	return value, false
}

func coerceNumericString(value any) (any, bool) {
	switch v := value.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed != v {
			return trimmed, true
		}
		return value, false
	default:
		return value, false
	}
}

// duplicatePlan converts a failed create into an update against the existing
// resource. Resolution still happens by name at execution time; the existing
// item's ID is not in the error payload.
func duplicatePlan(req Request) Plan {
	plan := Plan{
		Suggestion: "a resource with that name already exists; update it instead of creating a duplicate",
	}
	if req.Operation == nil || req.Operation.Kind != types.OpItemCreate {
		return plan
	}

	params := make(map[string]any, len(req.Operation.Parameters))
	for k, v := range req.Operation.Parameters {
		params[k] = v
	}
	plan.Alternative = &types.Interpretation{
		Kind:       types.OpItemUpdate,
		Confidence: 0,
		Parameters: params,
	}
	return plan
}
