/*
document.go - JSON encoding of ledger documents and the store-boundary checks

PURPOSE:
  Stores persist ledgers as opaque JSON. Everything that crosses the store
  boundary goes through EncodeDocument / DecodeDocument so the rest of the
  engine only ever sees a strongly typed Document.

SHAPE RULES (checked on the raw JSON before decoding):
  required:  user (string), xp_total / xp_effective / xp_regulatory (number),
             level (string), badges (object), history (array of objects),
             lab_credits (array)
  optional:  labs_unlocked, labs_locked, domains, feedback (array),
             last_seen, last_decay (string)

  A null value counts as absent. All problems are collected into a single
  MalformedError rather than stopping at the first one.

TIMESTAMPS:
  ParseTimestamp accepts RFC 3339 (with or without fractional seconds),
  ISO-8601 without a zone (read as UTC), and plain dates.
*/
package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// EncodeDocument serializes a document for storage.
func EncodeDocument(d *Document) ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("encode ledger: nil document")
	}
	if !d.User.Valid() {
		return nil, fmt.Errorf("encode ledger: %w: %q", ErrInvalidUser, d.User)
	}
	d.normalize()
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode ledger %s: %w", d.User, err)
	}
	return data, nil
}

// DecodeDocument checks the shape of a stored document and decodes it.
func DecodeDocument(data []byte) (*Document, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, &MalformedError{Problems: []string{"document is not a JSON object"}}
	}

	problems := CheckShape(fields)
	user := rawUser(fields)
	if len(problems) > 0 {
		return nil, &MalformedError{User: user, Problems: problems}
	}

	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, &MalformedError{User: user, Problems: []string{err.Error()}}
	}
	return &d, nil
}

type jsonKind int

const (
	kindAbsent jsonKind = iota
	kindObject
	kindArray
	kindString
	kindNumber
	kindBool
)

var kindNames = map[jsonKind]string{
	kindObject: "object",
	kindArray:  "array",
	kindString: "string",
	kindNumber: "number",
	kindBool:   "boolean",
}

func kindOf(raw json.RawMessage) jsonKind {
	b := bytes.TrimSpace(raw)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return kindAbsent
	}
	switch c := b[0]; {
	case c == '{':
		return kindObject
	case c == '[':
		return kindArray
	case c == '"':
		return kindString
	case c == 't' || c == 'f':
		return kindBool
	default:
		return kindNumber
	}
}

type fieldRule struct {
	name     string
	kind     jsonKind
	required bool
}

var shapeRules = []fieldRule{
	{"user", kindString, true},
	{"xp_total", kindNumber, true},
	{"xp_effective", kindNumber, true},
	{"xp_regulatory", kindNumber, true},
	{"level", kindString, true},
	{"badges", kindObject, true},
	{"history", kindArray, true},
	{"lab_credits", kindArray, true},
	{"labs_unlocked", kindArray, false},
	{"labs_locked", kindArray, false},
	{"domains", kindArray, false},
	{"feedback", kindArray, false},
	{"last_seen", kindString, false},
	{"last_decay", kindString, false},
}

// CheckShape returns one message per field whose JSON type does not match
// the ledger schema. History entries must each be objects.
func CheckShape(fields map[string]json.RawMessage) []string {
	var problems []string
	for _, r := range shapeRules {
		k := kindOf(fields[r.name])
		switch {
		case k == kindAbsent && r.required:
			problems = append(problems, fmt.Sprintf("%s is missing", r.name))
		case k != kindAbsent && k != r.kind:
			problems = append(problems, fmt.Sprintf("%s must be %s, found %s", r.name, kindNames[r.kind], kindNames[k]))
		}
	}

	if kindOf(fields["history"]) == kindArray {
		var entries []json.RawMessage
		if err := json.Unmarshal(fields["history"], &entries); err != nil {
			problems = append(problems, "history is not a valid array")
		}
		for i, e := range entries {
			if kindOf(e) != kindObject {
				problems = append(problems, fmt.Sprintf("history[%d] must be object", i))
			}
		}
	}
	return problems
}

func rawUser(fields map[string]json.RawMessage) UserID {
	var s string
	if err := json.Unmarshal(fields["user"], &s); err != nil {
		return ""
	}
	return UserID(s)
}

// =============================================================================
// TIMESTAMPS
// =============================================================================

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05Z0700",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp. Values without a zone are UTC.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// FormatTimestamp renders a time the way the engine writes timestamps.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
