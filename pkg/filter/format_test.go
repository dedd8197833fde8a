package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testNow = time.Date(2024, time.March, 10, 15, 4, 0, 0, time.UTC)

func TestFormat(t *testing.T) {
	tests := []struct {
		name  string
		conds []Condition
		want  string
	}{
		{
			name:  "unit is appended and quoted",
			conds: []Condition{{Key: KeyStored, Operator: OpGreaterThan, Value: Number(10), Unit: UnitGB}},
			want:  `stored>"10GB"`,
		},
		{
			name:  "string is quoted",
			conds: []Condition{{Key: KeyTitle, Operator: OpMatch, Value: String("hello world")}},
			want:  `title:"hello world"`,
		},
		{
			name:  "already quoted string is kept",
			conds: []Condition{{Key: KeyTitle, Operator: OpMatch, Value: String(`"hello"`)}},
			want:  `title:"hello"`,
		},
		{
			name:  "number is bare",
			conds: []Condition{{Key: KeyVisitor, Operator: OpGreaterOrEqual, Value: Number(5)}},
			want:  `visitor>=5`,
		},
		{
			name:  "between numbers",
			conds: []Condition{{Key: KeyStored, Operator: OpBetween, Value: NumberRange(10, 100)}},
			want:  `stored>10 stored<100`,
		},
		{
			name:  "between with unit quotes each bound",
			conds: []Condition{{Key: KeySize, Operator: OpBetween, Value: NumberRange(50, 100), Unit: UnitGB}},
			want:  `size>"50GB" size<"100GB"`,
		},
		{
			name:  "between dates",
			conds: []Condition{{Key: KeyCreatedAt, Operator: OpBetween, Value: StringRange("2024-01-01 10:00", "2024-01-02 10:00")}},
			want:  `created_at>"2024-01-01 10:00" created_at<"2024-01-02 10:00"`,
		},
		{
			name: "any conditions are skipped",
			conds: []Condition{
				{Key: KeyTitle, Operator: OpAny, Value: String("")},
				{Key: KeyVisitor, Operator: OpGreaterThan, Value: Number(1)},
				{Key: KeyState, Operator: OpEquals, Value: String("Valid")},
			},
			want: `visitor>1 state="Valid"`,
		},
		{
			name:  "days not visit is untouched in display mode",
			conds: []Condition{{Key: KeyDaysNotVisit, Operator: OpGreaterThan, Value: Number(7)}},
			want:  `days_not_visit>7`,
		},
		{
			name: "fractional numbers",
			conds: []Condition{{Key: KeySize, Operator: OpLessThan, Value: Number(1.5), Unit: UnitGB}},
			want: `size<"1.5GB"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.conds))
		})
	}

	assert.Equal(t, "", Format(nil))
}

func TestFormatShim(t *testing.T) {
	t.Run("greater than is inverted", func(t *testing.T) {
		got := FormatShim([]Condition{{Key: KeyDaysNotVisit, Operator: OpGreaterThan, Value: Number(7)}}, testNow)
		assert.Equal(t, `last_visited_at<"2024-03-03 15:04"`, got)
	})

	t.Run("less than is inverted", func(t *testing.T) {
		got := FormatShim([]Condition{{Key: KeyDaysNotVisit, Operator: OpLessThan, Value: Number(7)}}, testNow)
		assert.Equal(t, `last_visited_at>"2024-03-03 15:04"`, got)
	})

	t.Run("inclusive bounds are inverted", func(t *testing.T) {
		got := FormatShim([]Condition{
			{Key: KeyDaysNotVisit, Operator: OpGreaterOrEqual, Value: Number(1)},
			{Key: KeyDaysNotVisit, Operator: OpLessOrEqual, Value: Number(2)},
		}, testNow)
		assert.Equal(t, `last_visited_at<="2024-03-09 15:04" last_visited_at>="2024-03-08 15:04"`, got)
	})

	t.Run("equals keeps its operator", func(t *testing.T) {
		got := FormatShim([]Condition{{Key: KeyDaysNotVisit, Operator: OpEquals, Value: String("3")}}, testNow)
		assert.Equal(t, `last_visited_at="2024-03-07 15:04"`, got)
	})

	t.Run("between swaps bounds", func(t *testing.T) {
		got := FormatShim([]Condition{{Key: KeyDaysNotVisit, Operator: OpBetween, Value: NumberRange(10, 100)}}, testNow)
		want := `last_visited_at<"` + testNow.Add(-10*Day).Format(ShimLayout) + `" ` +
			`last_visited_at>"` + testNow.Add(-100*Day).Format(ShimLayout) + `"`
		assert.Equal(t, want, got)
		assert.Contains(t, got, `last_visited_at<"2024-02-29 15:04"`)
	})

	t.Run("other keys match display mode", func(t *testing.T) {
		conds := []Condition{
			{Key: KeySize, Operator: OpBetween, Value: NumberRange(1, 5), Unit: UnitGB},
			{Key: KeyTitle, Operator: OpMatch, Value: String("movie")},
			{Key: KeyVisitor, Operator: OpAny, Value: String("")},
		}
		assert.Equal(t, Format(conds), FormatShim(conds, testNow))
	})

	t.Run("mixed order is kept", func(t *testing.T) {
		got := FormatShim([]Condition{
			{Key: KeyStored, Operator: OpGreaterThan, Value: Number(1)},
			{Key: KeyDaysNotVisit, Operator: OpGreaterThan, Value: Number(7)},
			{Key: KeyTitle, Operator: OpMatch, Value: String("x")},
		}, testNow)
		assert.Equal(t, `stored>1 last_visited_at<"2024-03-03 15:04" title:"x"`, got)
	})
}

func TestShimCondition(t *testing.T) {
	c := Condition{Key: KeyDaysNotVisit, Operator: OpGreaterThan, Value: Number(7)}
	assert.Equal(t, []Condition{
		{Key: KeyLastVisitedAt, Operator: OpLessThan, Value: String("2024-03-03 15:04")},
	}, ShimCondition(c, testNow))

	other := Condition{Key: KeyStored, Operator: OpGreaterThan, Value: Number(7)}
	assert.Equal(t, []Condition{other}, ShimCondition(other, testNow))

	anyCond := Condition{Key: KeyDaysNotVisit, Operator: OpAny, Value: String("")}
	assert.Equal(t, []Condition{anyCond}, ShimCondition(anyCond, testNow))
}

func TestTags(t *testing.T) {
	conds := []Condition{
		{Key: KeyStored, Operator: OpGreaterThan, Value: Number(10), Unit: UnitGB},
		{Key: KeyTitle, Operator: OpMatch, Value: String("hello world")},
		{Key: KeySize, Operator: OpBetween, Value: NumberRange(1, 2)},
	}
	assert.Equal(t, []string{"stored>10GB", "title:hello world", "sizebetween1,2"}, Tags(conds))
}
