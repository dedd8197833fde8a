package filter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Key names a shared-link field that can appear on the left side of a clause.
type Key string

const (
	KeyTitle          Key = "title"
	KeyOriginalLink   Key = "original_link"
	KeyHostSharedLink Key = "host_shared_link"
	KeyCreatedAt      Key = "created_at"
	KeyCreatedBy      Key = "created_by"
	KeyState          Key = "state"
	KeyStored         Key = "stored"
	KeyDaysNotVisit   Key = "days_not_visit"
	KeyVisitor        Key = "visitor"
	KeySize           Key = "size"

	// KeyLastVisitedAt only exists on the backend side, days_not_visit is
	// rewritten to it in shim mode.
	KeyLastVisitedAt Key = "last_visited_at"
)

// Keys are the keys recognized in the search box.
var Keys = []Key{
	KeyTitle,
	KeyOriginalLink,
	KeyHostSharedLink,
	KeyCreatedAt,
	KeyCreatedBy,
	KeyState,
	KeyStored,
	KeyDaysNotVisit,
	KeyVisitor,
	KeySize,
}

// BackendKeys are the keys accepted by the link listing endpoint.
var BackendKeys = append(append([]Key{}, Keys...), KeyLastVisitedAt)

// UnitGB is the only supported value unit.
const UnitGB = "GB"

type Operator string

const (
	OpAny            Operator = "*"
	OpEquals         Operator = "="
	OpNotEquals      Operator = "!="
	OpGreaterThan    Operator = ">"
	OpGreaterOrEqual Operator = ">="
	OpLessThan       Operator = "<"
	OpLessOrEqual    Operator = "<="
	OpBetween        Operator = "between"
	OpMatch          Operator = ":"
)

var operatorLabels = map[Operator]string{
	OpAny:            "[Any]",
	OpEquals:         "Equals",
	OpNotEquals:      "Not Equals",
	OpGreaterThan:    "Greater Than",
	OpGreaterOrEqual: "Greater Than or Equal To",
	OpLessThan:       "Less Than",
	OpLessOrEqual:    "Less Than or Equal To",
	OpBetween:        "Between",
	OpMatch:          "Match",
}

// Label returns the human readable operator name shown in operator selects.
func (o Operator) Label() string {
	if label, ok := operatorLabels[o]; ok {
		return label
	}
	return string(o)
}

// Valid reports whether o is one of the known operators.
func (o Operator) Valid() bool {
	_, ok := operatorLabels[o]
	return ok
}

// OperatorFromLabel resolves a label such as "Greater Than" to its operator.
func OperatorFromLabel(label string) (Operator, bool) {
	for op, l := range operatorLabels {
		if strings.EqualFold(l, strings.TrimSpace(label)) {
			return op, true
		}
	}
	return "", false
}

// ComparisonOperators is the operator list offered by numeric filter items.
func ComparisonOperators() []Operator {
	return []Operator{
		OpAny,
		OpEquals,
		OpNotEquals,
		OpGreaterThan,
		OpGreaterOrEqual,
		OpLessThan,
		OpLessOrEqual,
		OpBetween,
	}
}

type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindStringRange
	KindNumberRange
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindStringRange:
		return "string-range"
	case KindNumberRange:
		return "number-range"
	}
	return "unknown"
}

// Value holds the right side of a clause: a string, a number or a
// two-element range of either. The zero Value is the empty string.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	strs [2]string
	nums [2]float64
}

func String(s string) Value {
	return Value{kind: KindString, str: s}
}

func Number(n float64) Value {
	return Value{kind: KindNumber, num: n}
}

func StringRange(lo, hi string) Value {
	return Value{kind: KindStringRange, strs: [2]string{lo, hi}}
}

func NumberRange(lo, hi float64) Value {
	return Value{kind: KindNumberRange, nums: [2]float64{lo, hi}}
}

func (v Value) Kind() ValueKind {
	return v.kind
}

func (v Value) Str() (string, bool) {
	return v.str, v.kind == KindString
}

func (v Value) Num() (float64, bool) {
	return v.num, v.kind == KindNumber
}

func (v Value) StrRange() ([2]string, bool) {
	return v.strs, v.kind == KindStringRange
}

func (v Value) NumRange() ([2]float64, bool) {
	return v.nums, v.kind == KindNumberRange
}

func (v Value) IsRange() bool {
	return v.kind == KindStringRange || v.kind == KindNumberRange
}

// IsEmpty is true for the empty string only; zero is a valid number.
func (v Value) IsEmpty() bool {
	return v.kind == KindString && v.str == ""
}

// Bounds splits a range into its lower and upper scalar values.
func (v Value) Bounds() (Value, Value, bool) {
	switch v.kind {
	case KindStringRange:
		return String(v.strs[0]), String(v.strs[1]), true
	case KindNumberRange:
		return Number(v.nums[0]), Number(v.nums[1]), true
	}
	return Value{}, Value{}, false
}

// String renders the value without quoting. Ranges are joined by a comma.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return formatNumber(v.num)
	case KindStringRange:
		return v.strs[0] + "," + v.strs[1]
	case KindNumberRange:
		return formatNumber(v.nums[0]) + "," + formatNumber(v.nums[1])
	}
	return v.str
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.native())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	parsed, err := valueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) MarshalYAML() (any, error) {
	return v.native(), nil
}

func (v Value) native() any {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindStringRange:
		return []string{v.strs[0], v.strs[1]}
	case KindNumberRange:
		return []float64{v.nums[0], v.nums[1]}
	}
	return v.str
}

func valueOf(raw any) (Value, error) {
	switch t := raw.(type) {
	case string:
		return String(t), nil
	case float64:
		return Number(t), nil
	case []any:
		if len(t) != 2 {
			return Value{}, fmt.Errorf("range value must have 2 elements, got %d", len(t))
		}
		if lo, ok := t[0].(float64); ok {
			if hi, ok := t[1].(float64); ok {
				return NumberRange(lo, hi), nil
			}
		}
		if lo, ok := t[0].(string); ok {
			if hi, ok := t[1].(string); ok {
				return StringRange(lo, hi), nil
			}
		}
		return Value{}, fmt.Errorf("range value must hold two numbers or two strings")
	}
	return Value{}, fmt.Errorf("unsupported value type %T", raw)
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// Condition is one clause of a search: key, operator, value and an
// optional unit suffix.
type Condition struct {
	Key      Key      `json:"key"             yaml:"key"`
	Operator Operator `json:"operator"        yaml:"operator"`
	Value    Value    `json:"value"           yaml:"value"`
	Unit     string   `json:"unit,omitempty"  yaml:"unit,omitempty"`
}

// Collapse reconstitutes a between condition from every key that holds
// exactly one ">" and one "<" condition with matching unit and value kind.
// The merged condition takes the position of the first of the pair.
func Collapse(conds []Condition) []Condition {
	type pair struct {
		lower, upper []int
	}
	pairs := make(map[Key]*pair)
	for i, c := range conds {
		p, ok := pairs[c.Key]
		if !ok {
			p = &pair{}
			pairs[c.Key] = p
		}
		switch c.Operator {
		case OpGreaterThan:
			p.lower = append(p.lower, i)
		case OpLessThan:
			p.upper = append(p.upper, i)
		}
	}

	merged := make(map[int]Condition)
	skip := make(map[int]bool)
	for key, p := range pairs {
		if len(p.lower) != 1 || len(p.upper) != 1 {
			continue
		}
		lo, hi := conds[p.lower[0]], conds[p.upper[0]]
		if lo.Unit != hi.Unit || lo.Value.Kind() != hi.Value.Kind() {
			continue
		}

		var value Value
		switch lo.Value.Kind() {
		case KindNumber:
			value = NumberRange(lo.Value.num, hi.Value.num)
		case KindString:
			value = StringRange(lo.Value.str, hi.Value.str)
		default:
			continue
		}

		first, second := p.lower[0], p.upper[0]
		if second < first {
			first, second = second, first
		}
		merged[first] = Condition{Key: key, Operator: OpBetween, Value: value, Unit: lo.Unit}
		skip[second] = true
	}

	out := make([]Condition, 0, len(conds))
	for i, c := range conds {
		if skip[i] {
			continue
		}
		if m, ok := merged[i]; ok {
			c = m
		}
		out = append(out, c)
	}
	return out
}
