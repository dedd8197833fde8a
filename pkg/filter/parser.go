package filter

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	digitsPattern    = regexp.MustCompile(`^\d+$`)
	gigabytesPattern = regexp.MustCompile(`(?i)^(\d+)GB$`)
)

// Parser turns free search text into conditions over a fixed key set.
type Parser struct {
	keys    []Key
	pattern *regexp.Regexp
}

// NewParser builds a parser recognizing the given keys, case-insensitively.
func NewParser(keys ...Key) *Parser {
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, regexp.QuoteMeta(string(k)))
	}

	// key, operator, then a quoted string or a bare integer
	expr := `(?i)(` + strings.Join(names, "|") + `)\s*(!?=|<=?|>=?|:)\s*(?:"([^"]+)"|(\d+))`

	return &Parser{
		keys:    keys,
		pattern: regexp.MustCompile(expr),
	}
}

var defaultParser = NewParser(Keys...)

// Parse parses text with the search box key set.
func Parse(text string) []Condition {
	return defaultParser.Parse(text)
}

// Parse extracts every key/operator/value clause in match order. Text that
// no clause consumed becomes a trailing title match, unless the input
// already carries an explicit title match. Parse never fails: fragments
// that do not form a clause end up in that leftover text.
func (p *Parser) Parse(text string) []Condition {
	matches := p.pattern.FindAllStringSubmatchIndex(text, -1)
	conds := make([]Condition, 0, len(matches)+1)

	explicitTitle := false
	for _, m := range matches {
		key := Key(strings.ToLower(text[m[2]:m[3]]))
		op := Operator(text[m[4]:m[5]])

		var raw string
		if m[6] >= 0 {
			raw = text[m[6]:m[7]]
		} else {
			raw = text[m[8]:m[9]]
		}

		if key == KeyTitle && op == OpMatch {
			explicitTitle = true
		}

		value, unit := parseValue(raw)
		conds = append(conds, Condition{Key: key, Operator: op, Value: value, Unit: unit})
	}

	if explicitTitle {
		return conds
	}

	rest := strings.Join(strings.Fields(p.pattern.ReplaceAllString(text, "")), " ")
	if rest != "" {
		conds = append(conds, Condition{Key: KeyTitle, Operator: OpMatch, Value: String(rest)})
	}
	return conds
}

// Keys returns the keys this parser recognizes.
func (p *Parser) Keys() []Key {
	return append([]Key(nil), p.keys...)
}

func parseValue(raw string) (Value, string) {
	if digitsPattern.MatchString(raw) {
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return Number(n), ""
		}
	}

	if sm := gigabytesPattern.FindStringSubmatch(raw); sm != nil {
		if n, err := strconv.ParseFloat(sm[1], 64); err == nil {
			return Number(n), UnitGB
		}
	}

	return String(raw), ""
}
