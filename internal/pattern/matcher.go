// Package pattern implements the deterministic first-pass operation guesser:
// a priority-ordered table of regexes, each tagged with an operation kind, a
// static confidence, and a named-capture-to-parameter mapping. It makes zero
// external calls, so it runs before (and independently of) the language
// oracle.
package pattern

import (
	"regexp"
	"strings"

	"boardpilot/internal/types"
)

// Match is a deterministic interpretation candidate.
type Match struct {
	Kind       types.OperationKind
	Confidence int
	Parameters map[string]any
}

type rule struct {
	re         *regexp.Regexp
	kind       types.OperationKind
	confidence int
}

// rules is scanned in order; the first match wins and stops the scan.
// Higher-signal patterns (explicit verb + quoted literal) sit first.
var rules = []rule{
	{
		re:         regexp.MustCompile(`(?i)^create\s+(?:a\s+)?(?:new\s+)?board\s+(?:called\s+|named\s+)?"(?P<boardName>[^"]+)"\s*$`),
		kind:       types.OpBoardCreate,
		confidence: 95,
	},
	{
		re:         regexp.MustCompile(`(?i)^(?:create|add)\s+(?:a\s+)?(?:new\s+)?(?:item|task|row)\s+(?:called\s+|named\s+)?"(?P<itemName>[^"]+)"(?:\s+(?:on|in|to)\s+(?:board\s+)?"?(?P<boardName>[^"]*[^"\s])"?)?\s*$`),
		kind:       types.OpItemCreate,
		confidence: 95,
	},
	{
		re:         regexp.MustCompile(`(?i)^(?:delete|remove)\s+(?:the\s+)?(?:item|task|row)\s+(?:called\s+|named\s+)?"(?P<itemName>[^"]+)"\s*$`),
		kind:       types.OpItemDelete,
		confidence: 90,
	},
	{
		re:         regexp.MustCompile(`(?i)^(?:create|add)\s+(?:a\s+)?(?P<columnType>text|numbers?|status|date|people|checkbox|dropdown|rating)\s+column\s+(?:called\s+|named\s+)?"(?P<columnTitle>[^"]+)"\s*$`),
		kind:       types.OpColumnCreate,
		confidence: 90,
	},
	{
		re:         regexp.MustCompile(`(?i)^(?:set|change|update)\s+(?:the\s+)?status\s+of\s+"(?P<itemName>[^"]+)"\s+to\s+"?(?P<statusValue>[^"]+?)"?\s*$`),
		kind:       types.OpStatusUpdate,
		confidence: 90,
	},
	{
		re:         regexp.MustCompile(`(?i)^assign\s+"(?P<itemName>[^"]+)"\s+to\s+(?P<userName>\S.*?)\s*$`),
		kind:       types.OpUserAssign,
		confidence: 88,
	},
	{
		// "move all completed items to Done": batch shape, filter + group.
		re:         regexp.MustCompile(`(?i)^move\s+all\s+(?P<filterStatus>\w+)\s+items?\s+to\s+"?(?P<groupName>[^"]+?)"?\s*$`),
		kind:       types.OpBulk,
		confidence: 85,
	},
	{
		re:         regexp.MustCompile(`(?i)^move\s+"(?P<itemName>[^"]+)"\s+to\s+"?(?P<groupName>[^"]+?)"?\s*$`),
		kind:       types.OpItemUpdate,
		confidence: 85,
	},
	{
		re:         regexp.MustCompile(`(?i)^rename\s+board\s+"(?P<boardName>[^"]+)"\s+to\s+"(?P<newName>[^"]+)"\s*$`),
		kind:       types.OpBoardUpdate,
		confidence: 90,
	},
}

// Find scans the rule table in priority order and returns the first hit.
func Find(text string) (*Match, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, false
	}
	for _, r := range rules {
		m := r.re.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		params := make(map[string]any)
		for i, name := range r.re.SubexpNames() {
			if name == "" || i >= len(m) {
				continue
			}
			if v := strings.TrimSpace(m[i]); v != "" {
				params[name] = v
			}
		}
		return &Match{Kind: r.kind, Confidence: r.confidence, Parameters: params}, true
	}
	return nil, false
}
