package store

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mwantia/linkfilter/pkg/db/models"
	"github.com/mwantia/linkfilter/pkg/filter"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 10
	gigabyte        = 1 << 30
)

// LinkQuery selects one page of a user's shared links
type LinkQuery struct {
	UserID string
	// Search is a raw query expression, parsed with the backend key set
	Search string
	// Filters are applied before the conditions parsed from Search
	Filters   []filter.Condition
	PageIndex int
	Limit     int
	// Now anchors days_not_visit conditions, defaults to the current time
	Now      time.Time
	Location *time.Location
}

// LinkPage is one page of query results
type LinkPage struct {
	// Total is only counted for the first page
	Total   int64               `json:"total"`
	Links   []models.SharedLink `json:"links"`
	Ignored []filter.Condition  `json:"ignored,omitempty"`
}

type columnKind int

const (
	columnText columnKind = iota
	columnInteger
	columnTime
)

var columns = map[filter.Key]columnKind{
	filter.KeyTitle:          columnText,
	filter.KeyOriginalLink:   columnText,
	filter.KeyHostSharedLink: columnText,
	filter.KeyCreatedBy:      columnText,
	filter.KeyState:          columnText,
	filter.KeyStored:         columnInteger,
	filter.KeyVisitor:        columnInteger,
	filter.KeySize:           columnInteger,
	filter.KeyCreatedAt:      columnTime,
	filter.KeyLastVisitedAt:  columnTime,
}

var comparisons = map[filter.Operator]string{
	filter.OpEquals:         "=",
	filter.OpNotEquals:      "<>",
	filter.OpGreaterThan:    ">",
	filter.OpGreaterOrEqual: ">=",
	filter.OpLessThan:       "<",
	filter.OpLessOrEqual:    "<=",
}

var (
	gigabytePattern = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)\s*GB$`)
	timeLayouts     = []string{"2006-01-02 15:04:05", filter.ShimLayout, "2006-01-02", time.RFC3339}
)

// QueryLinks returns the links of query.UserID that match every condition of
// the query. Conditions on unknown keys or with unusable values are skipped
// and reported in LinkPage.Ignored.
func (s *SQLiteStore) QueryLinks(ctx context.Context, query LinkQuery) (*LinkPage, error) {
	now := query.Now
	if now.IsZero() {
		now = time.Now()
	}
	loc := query.Location
	if loc == nil {
		loc = time.UTC
	}
	if query.Limit <= 0 {
		query.Limit = DefaultPageSize
	}
	if query.PageIndex <= 0 {
		query.PageIndex = 1
	}

	conds := append([]filter.Condition(nil), query.Filters...)
	if query.Search != "" {
		conds = append(conds, filter.NewParser(filter.BackendKeys...).Parse(query.Search)...)
	}

	page := &LinkPage{}
	tx := s.db.WithContext(ctx).Model(&models.SharedLink{}).Where("user_id = ?", query.UserID)
	for _, c := range conds {
		ignored := false
		for _, shimmed := range filter.ShimCondition(c, now.In(loc)) {
			var ok bool
			if tx, ok = applyCondition(tx, shimmed, loc); !ok {
				ignored = true
			}
		}
		if ignored {
			page.Ignored = append(page.Ignored, c)
		}
	}

	if query.PageIndex == 1 {
		if err := tx.Session(&gorm.Session{}).Count(&page.Total).Error; err != nil {
			return nil, fmt.Errorf("failed to count links: %w", err)
		}
	}

	err := tx.Order("auto_id DESC").
		Offset((query.PageIndex - 1) * query.Limit).
		Limit(query.Limit).
		Find(&page.Links).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query links: %w", err)
	}

	for i := range page.Links {
		page.Links[i].ComputeDaysNotVisit(now)
	}
	return page, nil
}

func applyCondition(tx *gorm.DB, c filter.Condition, loc *time.Location) (*gorm.DB, bool) {
	kind, known := columns[c.Key]
	if !known {
		return tx, false
	}
	column := string(c.Key)

	switch c.Operator {
	case filter.OpAny:
		return tx, true

	case filter.OpMatch:
		if kind != columnText {
			return tx, false
		}
		return tx.Where(column+" LIKE ?", "%"+strings.Trim(c.Value.String(), `"`)+"%"), true

	case filter.OpBetween:
		lo, hi, ok := c.Value.Bounds()
		if !ok {
			return tx, false
		}
		from, ok := columnValue(kind, lo, c.Unit, loc)
		if !ok {
			return tx, false
		}
		to, ok := columnValue(kind, hi, c.Unit, loc)
		if !ok {
			return tx, false
		}
		return tx.Where(column+" BETWEEN ? AND ?", from, to), true
	}

	sqlOp, ok := comparisons[c.Operator]
	if !ok || c.Value.IsRange() {
		return tx, false
	}
	arg, ok := columnValue(kind, c.Value, c.Unit, loc)
	if !ok {
		return tx, false
	}
	return tx.Where(column+" "+sqlOp+" ?", arg), true
}

// columnValue converts a condition value into the argument stored in a column
// of the given kind.
func columnValue(kind columnKind, v filter.Value, unit string, loc *time.Location) (any, bool) {
	switch kind {
	case columnInteger:
		n, ok := v.Num()
		if !ok {
			raw := strings.Trim(v.String(), `"`)
			if m := gigabytePattern.FindStringSubmatch(raw); m != nil {
				raw, unit = m[1], filter.UnitGB
			}
			var err error
			if n, err = strconv.ParseFloat(raw, 64); err != nil {
				return nil, false
			}
		}
		if strings.EqualFold(unit, filter.UnitGB) {
			n *= gigabyte
		}
		return int64(n), true

	case columnTime:
		raw := strings.Trim(v.String(), `"`)
		for _, layout := range timeLayouts {
			if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
				return t.UTC(), true
			}
		}
		return nil, false
	}

	return strings.Trim(v.String(), `"`), true
}
