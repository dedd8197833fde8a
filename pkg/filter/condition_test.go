package filter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConditionJSON(t *testing.T) {
	conds := []Condition{
		{Key: KeyTitle, Operator: OpMatch, Value: String("hello")},
		{Key: KeySize, Operator: OpBetween, Value: NumberRange(1, 2.5), Unit: UnitGB},
		{Key: KeyCreatedAt, Operator: OpBetween, Value: StringRange("a", "b")},
	}

	data, err := json.Marshal(conds)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"key":"title","operator":":","value":"hello"},
		{"key":"size","operator":"between","value":[1,2.5],"unit":"GB"},
		{"key":"created_at","operator":"between","value":["a","b"]}
	]`, string(data))

	var decoded []Condition
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, conds, decoded)
}

func TestValueUnmarshalErrors(t *testing.T) {
	for _, input := range []string{`[1,"a"]`, `[1,2,3]`, `true`, `{"a":1}`} {
		var v Value
		assert.Error(t, json.Unmarshal([]byte(input), &v), input)
	}

	var v Value
	require.NoError(t, json.Unmarshal([]byte(`null`), &v))
	assert.True(t, v.IsEmpty())
}

func TestValueYAML(t *testing.T) {
	data, err := yaml.Marshal(Condition{Key: KeyVisitor, Operator: OpBetween, Value: NumberRange(10, 100)})
	require.NoError(t, err)
	assert.Contains(t, string(data), "key: visitor")
	assert.Contains(t, string(data), "- 10")
	assert.Contains(t, string(data), "- 100")
}

func TestValueAccessors(t *testing.T) {
	n, ok := Number(3).Num()
	assert.True(t, ok)
	assert.Equal(t, 3.0, n)

	_, ok = Number(3).Str()
	assert.False(t, ok)

	lo, hi, ok := NumberRange(1, 2).Bounds()
	assert.True(t, ok)
	assert.Equal(t, Number(1), lo)
	assert.Equal(t, Number(2), hi)

	_, _, ok = String("x").Bounds()
	assert.False(t, ok)

	assert.False(t, Number(0).IsEmpty())
	assert.True(t, Value{}.IsEmpty())
	assert.Equal(t, "1,2.5", NumberRange(1, 2.5).String())
}

func TestOperatorLabels(t *testing.T) {
	op, ok := OperatorFromLabel("greater than or equal to")
	assert.True(t, ok)
	assert.Equal(t, OpGreaterOrEqual, op)

	_, ok = OperatorFromLabel("Roughly")
	assert.False(t, ok)

	assert.Equal(t, "Match", OpMatch.Label())
	assert.True(t, OpBetween.Valid())
	assert.False(t, Operator("~").Valid())
	assert.NotContains(t, ComparisonOperators(), OpMatch)
}

func TestCollapse(t *testing.T) {
	t.Run("pair becomes between", func(t *testing.T) {
		got := Collapse([]Condition{
			{Key: KeyTitle, Operator: OpMatch, Value: String("x")},
			{Key: KeyStored, Operator: OpGreaterThan, Value: Number(10), Unit: UnitGB},
			{Key: KeyVisitor, Operator: OpEquals, Value: Number(1)},
			{Key: KeyStored, Operator: OpLessThan, Value: Number(20), Unit: UnitGB},
		})
		assert.Equal(t, []Condition{
			{Key: KeyTitle, Operator: OpMatch, Value: String("x")},
			{Key: KeyStored, Operator: OpBetween, Value: NumberRange(10, 20), Unit: UnitGB},
			{Key: KeyVisitor, Operator: OpEquals, Value: Number(1)},
		}, got)
	})

	t.Run("upper bound first", func(t *testing.T) {
		got := Collapse([]Condition{
			{Key: KeyStored, Operator: OpLessThan, Value: Number(20)},
			{Key: KeyStored, Operator: OpGreaterThan, Value: Number(10)},
		})
		assert.Equal(t, []Condition{
			{Key: KeyStored, Operator: OpBetween, Value: NumberRange(10, 20)},
		}, got)
	})

	t.Run("unmatched pairs are kept", func(t *testing.T) {
		conds := []Condition{
			{Key: KeyStored, Operator: OpGreaterThan, Value: Number(10), Unit: UnitGB},
			{Key: KeyStored, Operator: OpLessThan, Value: Number(20)},
			{Key: KeyVisitor, Operator: OpGreaterThan, Value: Number(1)},
			{Key: KeyVisitor, Operator: OpGreaterThan, Value: Number(2)},
			{Key: KeyVisitor, Operator: OpLessThan, Value: Number(3)},
		}
		assert.Equal(t, conds, Collapse(conds))
	})
}
