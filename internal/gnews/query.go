package gnews

import (
	"fmt"
	"strings"
)

// TimeRange restricts results to a recent publication window.
type TimeRange string

const (
	TimeRangeNone  TimeRange = ""
	TimeRangeDay   TimeRange = "day"
	TimeRangeWeek  TimeRange = "week"
	TimeRangeMonth TimeRange = "month"
	TimeRangeYear  TimeRange = "year"
)

// ParseTimeRange accepts the lowercase range names and the empty string.
func ParseTimeRange(s string) (TimeRange, error) {
	switch tr := TimeRange(strings.ToLower(strings.TrimSpace(s))); tr {
	case TimeRangeNone, TimeRangeDay, TimeRangeWeek, TimeRangeMonth, TimeRangeYear:
		return tr, nil
	default:
		return TimeRangeNone, fmt.Errorf("unknown time range %q", s)
	}
}

// SafeSearch is the ordinal content filter level.
type SafeSearch int

const (
	SafeSearchOff SafeSearch = iota
	SafeSearchModerate
	SafeSearchStrict
)

func (s SafeSearch) String() string {
	switch s {
	case SafeSearchOff:
		return "off"
	case SafeSearchModerate:
		return "moderate"
	case SafeSearchStrict:
		return "strict"
	default:
		return fmt.Sprintf("safesearch(%d)", int(s))
	}
}

// ParseSafeSearch accepts either the level name or its ordinal ("0", "1", "2").
// The empty string means off.
func ParseSafeSearch(s string) (SafeSearch, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "off":
		return SafeSearchOff, nil
	case "1", "moderate":
		return SafeSearchModerate, nil
	case "2", "strict":
		return SafeSearchStrict, nil
	default:
		return SafeSearchOff, fmt.Errorf("unknown safesearch level %q", s)
	}
}

// Query is the provider-independent description of one search.
type Query struct {
	Terms      string
	Language   string
	Country    string
	TimeRange  TimeRange
	SafeSearch SafeSearch
	// PageNo is accepted for interface compatibility with paging providers.
	// Google News serves a single page, so it never reaches the request.
	PageNo int
}
