package filter

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ShimLayout is the timestamp layout the backend expects for last_visited_at.
const ShimLayout = "2006-01-02 15:04"

var quotedPattern = regexp.MustCompile(`^".+"$`)

// Format renders conditions as the canonical search text shown in the
// search box. Parsing the result yields the same conditions, with each
// between split into its ">" and "<" halves.
func Format(conds []Condition) string {
	clauses := make([]string, 0, len(conds))
	for _, c := range conds {
		if s := c.Format(); s != "" {
			clauses = append(clauses, s)
		}
	}
	return strings.Join(clauses, " ")
}

// FormatShim renders conditions for the link listing endpoint. The backend
// has no days_not_visit column, so those clauses are rewritten against
// last_visited_at relative to now.
func FormatShim(conds []Condition, now time.Time) string {
	clauses := make([]string, 0, len(conds))
	for _, c := range conds {
		for _, shimmed := range ShimCondition(c, now) {
			if s := shimmed.Format(); s != "" {
				clauses = append(clauses, s)
			}
		}
	}
	return strings.Join(clauses, " ")
}

// Format renders a single condition. Any-conditions render empty.
func (c Condition) Format() string {
	if c.Operator == OpAny {
		return ""
	}

	if c.Operator == OpBetween && c.Value.IsRange() {
		lo, hi, _ := c.Value.Bounds()
		return string(c.Key) + ">" + operand(lo, c.Unit) + " " + string(c.Key) + "<" + operand(hi, c.Unit)
	}

	return string(c.Key) + string(c.Operator) + operand(c.Value, c.Unit)
}

// Tag is the short chip text of a condition.
func (c Condition) Tag() string {
	return string(c.Key) + string(c.Operator) + c.Value.String() + c.Unit
}

func Tags(conds []Condition) []string {
	tags := make([]string, 0, len(conds))
	for _, c := range conds {
		tags = append(tags, c.Tag())
	}
	return tags
}

// ShimCondition rewrites a days_not_visit condition into last_visited_at
// conditions. Fewer days since the last visit means a later timestamp, so
// comparison operators are inverted and a between becomes an upper bound on
// the lower day count plus a lower bound on the higher one. Other
// conditions are returned unchanged.
func ShimCondition(c Condition, now time.Time) []Condition {
	if c.Key != KeyDaysNotVisit || c.Operator == OpAny {
		return []Condition{c}
	}

	if c.Operator == OpBetween && c.Value.IsRange() {
		lo, hi, _ := c.Value.Bounds()
		return []Condition{
			{Key: KeyLastVisitedAt, Operator: OpLessThan, Value: String(daysAgo(now, lo))},
			{Key: KeyLastVisitedAt, Operator: OpGreaterThan, Value: String(daysAgo(now, hi))},
		}
	}

	return []Condition{{
		Key:      KeyLastVisitedAt,
		Operator: invert(c.Operator),
		Value:    String(daysAgo(now, c.Value)),
	}}
}

func operand(v Value, unit string) string {
	if v.IsRange() {
		lo, hi, _ := v.Bounds()
		return operand(lo, unit) + "," + operand(hi, unit)
	}

	if unit != "" {
		return quote(v.String() + unit)
	}
	if n, ok := v.Num(); ok {
		return formatNumber(n)
	}
	return quote(v.String())
}

func quote(s string) string {
	if quotedPattern.MatchString(s) {
		return s
	}
	return `"` + s + `"`
}

func invert(op Operator) Operator {
	switch op {
	case OpGreaterThan:
		return OpLessThan
	case OpLessThan:
		return OpGreaterThan
	case OpGreaterOrEqual:
		return OpLessOrEqual
	case OpLessOrEqual:
		return OpGreaterOrEqual
	}
	return op
}

// daysAgo formats now minus the number of days held by v. A value that is
// not a number counts as zero days.
func daysAgo(now time.Time, v Value) string {
	days, ok := v.Num()
	if !ok {
		days, _ = strconv.ParseFloat(strings.Trim(v.String(), `"`), 64)
	}
	return now.Add(-time.Duration(days * float64(Day))).Format(ShimLayout)
}
