package filter

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	Day  = 24 * time.Hour
	Year = 365 * Day

	// PresetLayout formats date preset bounds. It uses the 12-hour clock.
	PresetLayout = "2006-01-02 03:04"

	// AnySelection is the preset that clears a filter item.
	AnySelection = "[Any]"
)

var (
	// CountSelections are the presets of stored, visitor and days-not-visit.
	CountSelections = []string{AnySelection, "<10", "10 - 100", "100 - 1000", "1000 - 10000", ">10000"}

	// StorageSelections are the presets of size, in GB.
	StorageSelections = []string{AnySelection, "<1GB", "1GB - 5GB", "10GB - 50GB", "50GB - 100GB", ">100GB"}

	// TimeSelections are the relative date presets of time items.
	TimeSelections = []string{"Today", "Yesterday", "Last 7 Days", "Last 14 Days", "Last 30 Days", "Last 90 Days", "Last 1 Years"}
)

var (
	anyPattern       = regexp.MustCompile(`(?i)\[any\]`)
	todayPattern     = regexp.MustCompile(`(?i)today`)
	yesterdayPattern = regexp.MustCompile(`(?i)yesterday`)
	lastDaysPattern  = regexp.MustCompile(`(?i)last\s*(\d+)\s*days?`)
	lastYearsPattern = regexp.MustCompile(`(?i)last\s*(\d+)\s*years?`)
	comparePattern   = regexp.MustCompile(`^(<=|>=|<|>)\s*(\d+)`)
	rangePattern     = regexp.MustCompile(`(?i)^(\d+)\s*[a-z]*\s*-\s*(\d+)\s*[a-z]*$`)
)

// Translate maps a preset label to a condition template. The key is left
// empty for the caller to fill in. Rules are tried in order and the first
// match wins; an unknown label yields an any-condition.
func Translate(label string, now time.Time) Condition {
	content := strings.TrimSpace(label)

	if anyPattern.MatchString(content) {
		return Condition{Operator: OpAny, Value: String("")}
	}

	if todayPattern.MatchString(content) {
		return since(now, Day)
	}

	if yesterdayPattern.MatchString(content) {
		return Condition{
			Operator: OpBetween,
			Value:    StringRange(now.Add(-2*Day).Format(PresetLayout), now.Add(-Day).Format(PresetLayout)),
		}
	}

	if sm := lastDaysPattern.FindStringSubmatch(content); sm != nil {
		n, _ := strconv.Atoi(sm[1])
		return since(now, time.Duration(n)*Day)
	}

	if sm := lastYearsPattern.FindStringSubmatch(content); sm != nil {
		n, _ := strconv.Atoi(sm[1])
		return since(now, time.Duration(n)*Year)
	}

	if sm := comparePattern.FindStringSubmatch(content); sm != nil {
		n, _ := strconv.ParseFloat(sm[2], 64)
		return Condition{Operator: Operator(sm[1]), Value: Number(n)}
	}

	if sm := rangePattern.FindStringSubmatch(content); sm != nil {
		lo, _ := strconv.ParseFloat(sm[1], 64)
		hi, _ := strconv.ParseFloat(sm[2], 64)
		return Condition{Operator: OpBetween, Value: NumberRange(lo, hi)}
	}

	return Condition{Operator: OpAny, Value: String("")}
}

func since(now time.Time, d time.Duration) Condition {
	return Condition{
		Operator: OpBetween,
		Value:    StringRange(now.Add(-d).Format(PresetLayout), now.Format(PresetLayout)),
	}
}
