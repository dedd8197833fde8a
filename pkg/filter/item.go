package filter

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

type ItemKind string

const (
	ItemEnum         ItemKind = "enum"
	ItemStringMatch  ItemKind = "string-match"
	ItemMultiple     ItemKind = "multiple"
	ItemTimeDuration ItemKind = "time-duration"
)

// Field is the part shared by every advanced filter item.
type Field struct {
	Title string
	Key   Key
	Unit  string
}

// Item is one row of the advanced filter pane. The set of variants is
// closed: EnumItem, StringMatchItem, MultipleItem and TimeDurationItem.
type Item interface {
	Kind() ItemKind
	field() Field
}

// EnumItem picks one value out of a fixed list.
type EnumItem struct {
	Field
	Options []string
}

// StringMatchItem is a free text substring match.
type StringMatchItem struct {
	Field
}

// MultipleItem is a numeric comparison, entered by operator and value or
// picked from presets.
type MultipleItem struct {
	Field
	Operators       []Operator
	DefaultOperator Operator
	Selections      []string
}

// TimeDurationItem is a date range, entered directly or picked from presets.
type TimeDurationItem struct {
	Field
	Presets []string
}

func (EnumItem) Kind() ItemKind         { return ItemEnum }
func (StringMatchItem) Kind() ItemKind  { return ItemStringMatch }
func (MultipleItem) Kind() ItemKind     { return ItemMultiple }
func (TimeDurationItem) Kind() ItemKind { return ItemTimeDuration }

func (i EnumItem) field() Field         { return i.Field }
func (i StringMatchItem) field() Field  { return i.Field }
func (i MultipleItem) field() Field     { return i.Field }
func (i TimeDurationItem) field() Field { return i.Field }

// AdvancedItems returns the advanced filter pane, top to bottom.
func AdvancedItems() []Item {
	count := func(title string, key Key) MultipleItem {
		return MultipleItem{
			Field:           Field{Title: title, Key: key},
			Operators:       ComparisonOperators(),
			DefaultOperator: OpAny,
			Selections:      CountSelections,
		}
	}

	size := count("Size", KeySize)
	size.Unit = UnitGB
	size.Selections = StorageSelections

	return []Item{
		StringMatchItem{Field: Field{Title: "Title", Key: KeyTitle}},
		StringMatchItem{Field: Field{Title: "Original Links", Key: KeyOriginalLink}},
		StringMatchItem{Field: Field{Title: "Host Shared Link", Key: KeyHostSharedLink}},
		TimeDurationItem{Field: Field{Title: "Created at", Key: KeyCreatedAt}, Presets: TimeSelections},
		EnumItem{Field: Field{Title: "Created by", Key: KeyCreatedBy}, Options: []string{AnySelection, "Auto Share", "Link to Share"}},
		EnumItem{Field: Field{Title: "State", Key: KeyState}, Options: []string{AnySelection, "Valid", "In Blacklist"}},
		count("Stored", KeyStored),
		count("Days not visit", KeyDaysNotVisit),
		count("Visitor", KeyVisitor),
		size,
	}
}

// FindItem returns the advanced pane item of the key.
func FindItem(key Key) (Item, bool) {
	for _, item := range AdvancedItems() {
		if item.field().Key == key {
			return item, true
		}
	}
	return nil, false
}

// Apply turns a selection made on an item into a condition for that item's
// key: an enum option, the text of a string match, or a preset label of a
// multiple or time item.
func Apply(item Item, selection string, now time.Time) Condition {
	f := item.field()

	switch it := item.(type) {
	case EnumItem:
		if selection == "" || selection == AnySelection {
			return Condition{Key: f.Key, Operator: OpAny, Value: String("")}
		}
		return Condition{Key: f.Key, Operator: OpEquals, Value: String(selection)}

	case StringMatchItem:
		return Condition{Key: f.Key, Operator: OpMatch, Value: String(selection)}

	case MultipleItem:
		c := Translate(selection, now)
		c.Key = it.Key
		if c.Operator != OpAny {
			c.Unit = it.Unit
		}
		return c

	case TimeDurationItem:
		c := Translate(selection, now)
		c.Key = it.Key
		return c
	}

	panic(fmt.Sprintf("filter: unknown item %T", item))
}

// ApplyRange turns an explicit lower and upper bound entered on an item into
// a between condition. A missing bound clears the item.
func ApplyRange(item Item, lo, hi string) Condition {
	f := item.field()
	lo, hi = strings.TrimSpace(lo), strings.TrimSpace(hi)
	cleared := Condition{Key: f.Key, Operator: OpAny, Value: String("")}
	if lo == "" || hi == "" {
		return cleared
	}

	switch item.(type) {
	case EnumItem, StringMatchItem:
		return cleared

	case MultipleItem:
		// bounds must stay within the parser's integer grammar
		l, errLo := strconv.ParseUint(lo, 10, 53)
		h, errHi := strconv.ParseUint(hi, 10, 53)
		if errLo != nil || errHi != nil {
			return cleared
		}
		return Condition{Key: f.Key, Operator: OpBetween, Value: NumberRange(float64(l), float64(h)), Unit: f.Unit}

	case TimeDurationItem:
		return Condition{Key: f.Key, Operator: OpBetween, Value: StringRange(lo, hi)}
	}

	panic(fmt.Sprintf("filter: unknown item %T", item))
}

// Selected describes the state an item shows for the given conditions, in
// the same vocabulary its presets use.
func Selected(item Item, conds []Condition) string {
	f := item.field()

	var own []Condition
	for _, c := range Collapse(conds) {
		if c.Key == f.Key {
			own = append(own, c)
		}
	}

	switch it := item.(type) {
	case EnumItem:
		if len(own) > 0 && slices.Contains(it.Options, own[0].Value.String()) {
			return own[0].Value.String()
		}
		if len(it.Options) > 0 {
			return it.Options[0]
		}
		return ""

	case StringMatchItem:
		if len(own) == 0 {
			return ""
		}
		return own[0].Value.String()

	case MultipleItem:
		if len(own) == 0 {
			return AnySelection
		}
		c := own[0]
		if lo, hi, ok := c.Value.Bounds(); ok {
			return lo.String() + c.Unit + " - " + hi.String() + c.Unit
		}
		return string(c.Operator) + c.Value.String() + c.Unit

	case TimeDurationItem:
		if len(own) == 0 {
			return ""
		}
		if lo, hi, ok := own[0].Value.Bounds(); ok {
			return lo.String() + " ~ " + hi.String()
		}
		return own[0].Tag()
	}

	panic(fmt.Sprintf("filter: unknown item %T", item))
}

// OperatorOption is an operator as offered in a select box.
type OperatorOption struct {
	Value Operator `json:"value" yaml:"value"`
	Label string   `json:"label" yaml:"label"`
}

// ItemView is the serializable form of an item, discriminated by Type.
type ItemView struct {
	Type            ItemKind         `json:"type"                       yaml:"type"`
	Title           string           `json:"title"                      yaml:"title"`
	Key             Key              `json:"key"                        yaml:"key"`
	Unit            string           `json:"unit,omitempty"             yaml:"unit,omitempty"`
	Options         []string         `json:"options,omitempty"          yaml:"options,omitempty"`
	Operators       []OperatorOption `json:"operators,omitempty"        yaml:"operators,omitempty"`
	DefaultOperator Operator         `json:"default_operator,omitempty" yaml:"default_operator,omitempty"`
}

func Describe(item Item) ItemView {
	f := item.field()
	view := ItemView{Type: item.Kind(), Title: f.Title, Key: f.Key, Unit: f.Unit}

	switch it := item.(type) {
	case EnumItem:
		view.Options = it.Options
	case StringMatchItem:
	case MultipleItem:
		view.Options = it.Selections
		view.DefaultOperator = it.DefaultOperator
		for _, op := range it.Operators {
			view.Operators = append(view.Operators, OperatorOption{Value: op, Label: op.Label()})
		}
	case TimeDurationItem:
		view.Options = it.Presets
	default:
		panic(fmt.Sprintf("filter: unknown item %T", item))
	}

	return view
}
