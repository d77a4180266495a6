package search

import (
	"strconv"
	"strings"
	"time"

	"github.com/justyntemme/twinpane/internal/provider"
)

// Operator compares an entry attribute against a directive value.
type Operator int

const (
	OpEquals Operator = iota
	OpGreater
	OpLess
	OpGreaterEq
	OpLessEq
)

// Filter holds the directives the provider search does not understand.
// They are applied to the hits afterwards.
type Filter struct {
	sizeOp  Operator
	size    int64
	hasSize bool

	modOp  Operator
	mod    time.Time
	hasMod bool
}

// directives recognised in a query
var directives = []string{"ext:", "size:", "modified:"}

// Parse splits a raw query into the text handed to Provider.Search (free
// words and ext: tokens) and a post-filter for size: and modified:.
func Parse(input string, now time.Time) (string, Filter) {
	var f Filter
	var words []string

	for _, tok := range strings.Fields(input) {
		name, value, ok := strings.Cut(tok, ":")
		if !ok || value == "" {
			words = append(words, tok)
			continue
		}
		switch strings.ToLower(name) {
		case "size":
			op, num := parseOperator(value)
			f.sizeOp, f.size, f.hasSize = op, parseSize(num), true
		case "modified", "date", "mtime":
			op, ds := parseOperator(value)
			if t := parseDate(ds, now); !t.IsZero() {
				f.modOp, f.mod, f.hasMod = op, t, true
			}
		case "extension", "type":
			words = append(words, "ext:"+value)
		default:
			words = append(words, tok)
		}
	}
	return strings.Join(words, " "), f
}

// Empty reports whether the filter accepts everything.
func (f Filter) Empty() bool { return !f.hasSize && !f.hasMod }

// Match reports whether e passes every directive. Folders have no size and
// always pass a size directive.
func (f Filter) Match(e provider.Entry) bool {
	if f.hasSize && !e.IsDir() && !compareInt(e.Size, f.size, f.sizeOp) {
		return false
	}
	if f.hasMod && !compareTime(e.ModifiedAt, f.mod, f.modOp) {
		return false
	}
	return true
}

// Incomplete reports whether the query ends in a directive still waiting for
// its value, e.g. "kick ext:". Such queries are not sent.
func Incomplete(query string) bool {
	lower := strings.ToLower(strings.TrimSpace(query))
	for _, prefix := range directives {
		if strings.HasSuffix(lower, prefix) {
			return true
		}
	}
	return false
}

func parseOperator(s string) (Operator, string) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, ">="):
		return OpGreaterEq, strings.TrimSpace(s[2:])
	case strings.HasPrefix(s, "<="):
		return OpLessEq, strings.TrimSpace(s[2:])
	case strings.HasPrefix(s, ">"):
		return OpGreater, strings.TrimSpace(s[1:])
	case strings.HasPrefix(s, "<"):
		return OpLess, strings.TrimSpace(s[1:])
	case strings.HasPrefix(s, "="):
		return OpEquals, strings.TrimSpace(s[1:])
	default:
		return OpEquals, s
	}
}

// parseSize converts "1KB", "10MB", "1.5GB" to bytes
func parseSize(s string) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))

	multiplier := int64(1)
	numStr := s

	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1 << 30
		numStr = s[:len(s)-2]
	case strings.HasSuffix(s, "MB"):
		multiplier = 1 << 20
		numStr = s[:len(s)-2]
	case strings.HasSuffix(s, "KB"):
		multiplier = 1 << 10
		numStr = s[:len(s)-2]
	case strings.HasSuffix(s, "B"):
		numStr = s[:len(s)-1]
	}

	n, err := strconv.ParseFloat(strings.TrimSpace(numStr), 64)
	if err != nil {
		return 0
	}
	return int64(n * float64(multiplier))
}

// parseDate accepts "2024-01-01", "2024-01", "today", "yesterday", "week",
// "month" and "year", relative to now.
func parseDate(s string, now time.Time) time.Time {
	s = strings.ToLower(strings.TrimSpace(s))

	switch s {
	case "today":
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case "yesterday":
		y, m, d := now.AddDate(0, 0, -1).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case "week":
		return now.AddDate(0, 0, -7)
	case "month":
		return now.AddDate(0, -1, 0)
	case "year":
		return now.AddDate(-1, 0, 0)
	}

	for _, layout := range []string{"2006-01-02", "2006-01", "2006/01/02"} {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t
		}
	}
	return time.Time{}
}

func compareInt(val, target int64, op Operator) bool {
	switch op {
	case OpGreater:
		return val > target
	case OpLess:
		return val < target
	case OpGreaterEq:
		return val >= target
	case OpLessEq:
		return val <= target
	default:
		return val == target
	}
}

func compareTime(val, target time.Time, op Operator) bool {
	switch op {
	case OpGreater:
		return val.After(target)
	case OpLess:
		return val.Before(target)
	case OpGreaterEq:
		return !val.Before(target)
	case OpLessEq:
		return !val.After(target)
	default:
		// equality compares the calendar day only
		vy, vm, vd := val.In(target.Location()).Date()
		ty, tm, td := target.Date()
		return vy == ty && vm == tm && vd == td
	}
}
