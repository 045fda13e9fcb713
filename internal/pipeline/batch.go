package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/FranksOps/newsprobe/internal/gnews"
)

// ParseBatch reads one query per line:
//
//	terms[<TAB>language[<TAB>time_range[<TAB>safesearch[<TAB>country]]]]
//
// Blank lines and lines starting with '#' are ignored.
func ParseBatch(r io.Reader) ([]gnews.Query, error) {
	var queries []gnews.Query
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" || strings.HasPrefix(strings.TrimSpace(text), "#") {
			continue
		}

		fields := strings.Split(text, "\t")
		if len(fields) > 5 {
			return nil, fmt.Errorf("line %d: expected at most 5 fields, got %d", line, len(fields))
		}
		q := gnews.Query{Terms: strings.TrimSpace(fields[0])}
		if q.Terms == "" {
			return nil, fmt.Errorf("line %d: empty terms", line)
		}
		if len(fields) > 1 {
			q.Language = strings.TrimSpace(fields[1])
		}
		if len(fields) > 2 {
			tr, err := gnews.ParseTimeRange(fields[2])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			q.TimeRange = tr
		}
		if len(fields) > 3 {
			ss, err := gnews.ParseSafeSearch(fields[3])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			q.SafeSearch = ss
		}
		if len(fields) > 4 {
			q.Country = strings.TrimSpace(fields[4])
		}
		queries = append(queries, q)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read batch: %w", err)
	}
	return queries, nil
}
