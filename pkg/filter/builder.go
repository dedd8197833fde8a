package filter

// Builder stages conditions edited in the advanced filter pane until the
// search is committed. Each key holds at most one logical condition; a
// between is stored as its ">" and "<" halves.
type Builder struct {
	conds []Condition
}

func NewBuilder(conds ...Condition) *Builder {
	b := &Builder{}
	b.Reset(conds)
	return b
}

// Set replaces every staged condition of c.Key with c. Conditions with an
// empty key are ignored, any-conditions and empty values only clear the key,
// and a between without a two-element range only clears the key.
func (b *Builder) Set(c Condition) *Builder {
	if c.Key == "" {
		return b
	}
	b.Remove(c.Key)

	if c.Operator == OpBetween {
		lo, hi, ok := c.Value.Bounds()
		if !ok {
			return b
		}
		b.conds = append(b.conds,
			Condition{Key: c.Key, Operator: OpGreaterThan, Value: lo, Unit: c.Unit},
			Condition{Key: c.Key, Operator: OpLessThan, Value: hi, Unit: c.Unit},
		)
		return b
	}

	if c.Operator != OpAny && !c.Value.IsEmpty() {
		b.conds = append(b.conds, c)
	}
	return b
}

// Remove drops all staged conditions of the key.
func (b *Builder) Remove(key Key) *Builder {
	kept := b.conds[:0]
	for _, c := range b.conds {
		if c.Key != key {
			kept = append(kept, c)
		}
	}
	b.conds = kept
	return b
}

// Reset replaces the staged conditions with a copy of conds.
func (b *Builder) Reset(conds []Condition) *Builder {
	b.conds = append([]Condition(nil), conds...)
	return b
}

// Conditions returns a copy of the staged conditions.
func (b *Builder) Conditions() []Condition {
	return append([]Condition(nil), b.conds...)
}
