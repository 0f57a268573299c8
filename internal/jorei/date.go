package jorei

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// jst is the civil calendar the API's dates are read in.
var jst = time.FixedZone("JST", 9*60*60)

// Date is a civil calendar date.
type Date struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// ToInternalDate converts an API instant to its calendar date in UTC+9.
func ToInternalDate(t time.Time) Date {
	local := t.In(jst)
	return Date{Year: local.Year(), Month: int(local.Month()), Day: local.Day()}
}

func toDatePtr(t *time.Time) *Date {
	if t == nil {
		return nil
	}
	d := ToInternalDate(*t)
	return &d
}

// DateRange bounds the announcement date of a list query. A nil bound is
// open-ended.
type DateRange struct {
	Start *Date
	End   *Date
}

// Unbounded reports whether neither bound is set.
func (r DateRange) Unbounded() bool {
	return r.Start == nil && r.End == nil
}

// Validate rejects ranges whose start falls after their end.
func (r DateRange) Validate() error {
	if r.Start == nil || r.End == nil {
		return nil
	}
	if r.Start.String() > r.End.String() {
		return fmt.Errorf("date range start %s is after end %s", r.Start, r.End)
	}
	return nil
}

// ParseBound parses a range bound given as "" or a year "YYYY". The query
// only carries years, so full dates are rejected rather than truncated.
// An empty string yields a nil (unbounded) date.
func ParseBound(raw string) (*Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if strings.Contains(raw, "-") {
		return nil, fmt.Errorf("invalid year %q: bounds are years only (YYYY)", raw)
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 0 || year > 9999 {
		return nil, fmt.Errorf("invalid year %q", raw)
	}
	return &Date{Year: year, Month: 1, Day: 1}, nil
}
