package mapper

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"boardpilot/internal/types"
)

// statusSynonyms maps colloquial status words onto the canonical board
// labels. Unlisted values pass through unchanged.
var statusSynonyms = map[string]string{
	"done": "Done", "complete": "Done", "completed": "Done", "finished": "Done", "closed": "Done",
	"working": "Working on it", "progress": "Working on it", "in progress": "Working on it",
	"ongoing": "Working on it", "active": "Working on it",
	"todo": "To Do", "to do": "To Do", "pending": "To Do", "new": "To Do", "open": "To Do",
	"stuck": "Stuck", "blocked": "Stuck", "issue": "Stuck", "problem": "Stuck",
	"waiting": "Waiting", "hold": "Waiting", "on hold": "Waiting", "paused": "Waiting",
}

// CanonicalStatus maps a colloquial status word to its board label.
func CanonicalStatus(raw string) string {
	if canonical, ok := statusSynonyms[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return canonical
	}
	return raw
}

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
	"01/02/2006",
}

// FormatColumnValue transforms a raw parameter value into the wire shape the
// upstream API expects for the column's type.
func FormatColumnValue(col types.Column, value any) (any, error) {
	switch col.Type {
	case types.ColumnText:
		return toString(value), nil

	case types.ColumnNumber:
		switch v := value.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		default:
			f, err := strconv.ParseFloat(strings.TrimSpace(toString(value)), 64)
			if err != nil {
				return nil, fmt.Errorf("column %q: %q is not a number", col.Title, toString(value))
			}
			return f, nil
		}

	case types.ColumnStatus:
		return map[string]any{"label": CanonicalStatus(toString(value))}, nil

	case types.ColumnDate:
		raw := strings.TrimSpace(toString(value))
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return map[string]any{
					"date": t.Format("2006-01-02"),
					"time": t.Format("15:04:05"),
				}, nil
			}
		}
		return nil, fmt.Errorf("column %q: unrecognized date %q", col.Title, raw)

	case types.ColumnPeople:
		ids, err := personIDs(value)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col.Title, err)
		}
		persons := make([]map[string]any, 0, len(ids))
		for _, id := range ids {
			persons = append(persons, map[string]any{"id": id, "kind": "person"})
		}
		return map[string]any{"personsAndTeams": persons}, nil

	case types.ColumnCheckbox:
		return map[string]any{"checked": truthy(value)}, nil

	case types.ColumnDropdown:
		label := toString(value)
		options := dropdownOptions(col)
		for _, opt := range options {
			if strings.EqualFold(opt, label) {
				return map[string]any{"labels": []string{opt}}, nil
			}
		}
		return nil, fmt.Errorf("column %q: no dropdown option matching %q (have %v)", col.Title, label, options)

	case types.ColumnEmail:
		addr := toString(value)
		return map[string]any{"email": addr, "text": addr}, nil

	case types.ColumnPhone:
		return map[string]any{"phone": toString(value)}, nil

	case types.ColumnLink:
		url := toString(value)
		return map[string]any{"url": url, "text": url}, nil

	case types.ColumnRating:
		n := 0
		switch v := value.(type) {
		case float64:
			n = int(math.Round(v))
		case int:
			n = v
		default:
			parsed, err := strconv.Atoi(strings.TrimSpace(toString(value)))
			if err != nil {
				return nil, fmt.Errorf("column %q: %q is not a rating", col.Title, toString(value))
			}
			n = parsed
		}
		if n < 1 {
			n = 1
		}
		if n > 5 {
			n = 5
		}
		return map[string]any{"rating": n}, nil
	}
	// Unrecognized column types pass through untouched rather than failing:
	// the upstream API is the authority on what it accepts.
	return value, nil
}

// ParseColumnValue is the inverse transform: it recovers the plain value
// from a formatted wire shape. Round-trips hold for text, numbers, date,
// checkbox, and people columns.
func ParseColumnValue(col types.Column, formatted any) (any, error) {
	switch col.Type {
	case types.ColumnText:
		return toString(formatted), nil

	case types.ColumnNumber:
		if f, ok := formatted.(float64); ok {
			return f, nil
		}
		return nil, fmt.Errorf("column %q: formatted number has type %T", col.Title, formatted)

	case types.ColumnStatus:
		m, ok := formatted.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("column %q: formatted status has type %T", col.Title, formatted)
		}
		return toString(m["label"]), nil

	case types.ColumnDate:
		m, ok := formatted.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("column %q: formatted date has type %T", col.Title, formatted)
		}
		date, clock := toString(m["date"]), toString(m["time"])
		if clock == "" || clock == "00:00:00" {
			return date, nil
		}
		return date + " " + clock, nil

	case types.ColumnPeople:
		m, ok := formatted.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("column %q: formatted people has type %T", col.Title, formatted)
		}
		raw, _ := m["personsAndTeams"].([]map[string]any)
		ids := make([]string, 0, len(raw))
		for _, p := range raw {
			ids = append(ids, toString(p["id"]))
		}
		return ids, nil

	case types.ColumnCheckbox:
		m, ok := formatted.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("column %q: formatted checkbox has type %T", col.Title, formatted)
		}
		checked, _ := m["checked"].(bool)
		return checked, nil

	case types.ColumnDropdown, types.ColumnEmail, types.ColumnPhone,
		types.ColumnLink, types.ColumnRating:
		return formatted, nil
	}
	return formatted, nil
}

// dropdownOptions pulls the option labels out of the column's raw settings.
func dropdownOptions(col types.Column) []string {
	if col.SettingsRaw == "" {
		return nil
	}
	var settings struct {
		Labels []string `json:"labels"`
	}
	if err := json.Unmarshal([]byte(col.SettingsRaw), &settings); err != nil {
		return nil
	}
	return settings.Labels
}

func personIDs(value any) ([]string, error) {
	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, fmt.Errorf("empty person id")
		}
		return []string{v}, nil
	case []string:
		return v, nil
	case []any:
		ids := make([]string, 0, len(v))
		for _, e := range v {
			ids = append(ids, toString(e))
		}
		return ids, nil
	}
	return nil, fmt.Errorf("unsupported people value type %T", value)
}

func truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "checked", "1", "on":
			return true
		}
		return false
	case float64:
		return v != 0
	case int:
		return v != 0
	}
	return false
}

func toString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	}
	return fmt.Sprintf("%v", value)
}
