// Package recovery decides what to do about a failed operation: classify the
// failure into the fixed error taxonomy, then pick a deterministic strategy
// (retry, fix-and-retry, or abort with a suggestion). Both steps are total
// functions; they never return an error and never panic.
package recovery

import (
	"strings"

	"boardpilot/internal/types"
)

// classifyRule is one entry in the ordered fallback table. First match wins.
type classifyRule struct {
	kind       types.ErrorKind
	substrings []string
	statuses   []int
}

// Rules are checked in this order. A structured *types.OpError with an
// explicit kind bypasses the table entirely; the substrings exist for errors
// born outside this system (raw transport failures, upstream messages).
var classifyRules = []classifyRule{
	{types.ErrRateLimit, []string{"rate limit", "too many requests"}, []int{429}},
	{types.ErrNetwork, []string{"network", "timeout", "connection refused", "connection reset"}, nil},
	{types.ErrPermission, []string{"permission", "unauthorized", "forbidden"}, []int{401, 403}},
	{types.ErrInvalidData, []string{"invalid", "validation"}, []int{400}},
	{types.ErrNotFound, []string{"not found"}, []int{404}},
	{types.ErrDuplicate, []string{"duplicate", "already exists"}, nil},
}

// Classify maps any error onto exactly one taxonomy kind. A nil error
// classifies as unknown rather than panicking; callers should not pass one.
func Classify(err error) types.ErrorKind {
	if err == nil {
		return types.ErrUnknown
	}

	var status int
	if opErr, ok := types.AsOpError(err); ok {
		if opErr.Kind != "" && opErr.Kind != types.ErrUnknown {
			return opErr.Kind
		}
		status = opErr.Status
	}

	msg := strings.ToLower(err.Error())
	for _, rule := range classifyRules {
		for _, s := range rule.statuses {
			if status == s {
				return rule.kind
			}
		}
		for _, sub := range rule.substrings {
			if strings.Contains(msg, sub) {
				return rule.kind
			}
		}
	}
	return types.ErrUnknown
}
