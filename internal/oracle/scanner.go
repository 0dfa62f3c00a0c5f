package oracle

import (
	"bytes"
	"encoding/json"

	"boardpilot/internal/types"
)

// jsonCandidates scans s for top-level `{...}` blocks using a byte-level
// state machine that skips over string contents and escape sequences.
// Language-model output routinely wraps its JSON in prose, so the decoder
// must tolerate leading and trailing text around the object.
//
// Iterating bytes is safe for the ASCII delimiters involved: UTF-8 never
// encodes '{', '}', '"', or '\' inside a multi-byte sequence.
func jsonCandidates(s string) []string {
	var (
		candidates []string
		depth      int
		start      = -1
		inString   bool
		escape     bool
	)

	for i := 0; i < len(s); i++ {
		b := s[i]

		if escape {
			escape = false
			continue
		}
		if inString {
			switch b {
			case '\\':
				escape = true
			case '"':
				inString = false
			}
			continue
		}

		switch b {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start != -1 {
					candidates = append(candidates, s[start:i+1])
					start = -1
				}
			}
		}
	}
	return candidates
}

// decodeFirstObject extracts the first decodable JSON object from raw model
// output into dst. It returns a PARSE_ERROR when no candidate decodes.
func decodeFirstObject(raw string, dst any) error {
	for _, candidate := range jsonCandidates(raw) {
		dec := json.NewDecoder(bytes.NewReader([]byte(candidate)))
		if err := dec.Decode(dst); err == nil {
			return nil
		}
	}
	return types.NewOpError(types.ErrParse, "no decodable JSON object in oracle response")
}
