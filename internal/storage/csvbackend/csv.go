package csvbackend

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/FranksOps/newsprobe/internal/gnews"
	"github.com/FranksOps/newsprobe/internal/storage"
)

// ensure csvBackend implements storage.Backend
var _ storage.Backend = (*csvBackend)(nil)

type csvBackend struct {
	mu   sync.Mutex
	file *os.File
}

// headers defines the CSV column order
var headers = []string{
	"id",
	"provider",
	"terms",
	"language",
	"country",
	"time_range",
	"safesearch",
	"request_url",
	"final_url",
	"status_code",
	"detected_bot",
	"detection_src",
	"interception",
	"results_json",
	"duration_ms",
	"created_at",
	"error",
}

// New creates a new CSV-backed storage.Backend. The header row is written
// when the file is empty.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filePath, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", filePath, err)
	}

	if info.Size() == 0 {
		w := csv.NewWriter(f)
		if err := w.Write(headers); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	return &csvBackend{
		file: f,
	}, nil
}

func (b *csvBackend) Save(ctx context.Context, record *storage.SearchRecord) error {
	results := record.Results
	if results == nil {
		results = []gnews.Result{}
	}
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal results of %s: %w", record.ID, err)
	}

	row := []string{
		record.ID,
		record.Provider,
		record.Terms,
		record.Language,
		record.Country,
		record.TimeRange,
		strconv.Itoa(record.SafeSearch),
		record.RequestURL,
		record.FinalURL,
		strconv.Itoa(record.StatusCode),
		strconv.FormatBool(record.DetectedBot),
		record.DetectionSrc,
		record.Interception,
		string(resultsJSON),
		strconv.FormatInt(record.Duration.Milliseconds(), 10),
		record.CreatedAt.Format(time.RFC3339Nano),
		record.Error,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek: %w", err)
	}

	w := csv.NewWriter(b.file)
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write record %s: %w", record.ID, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write record %s: %w", record.ID, err)
	}
	return nil
}

func (b *csvBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.SearchRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek: %w", err)
	}
	defer func() {
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	r := csv.NewReader(b.file)

	if _, err := r.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return []*storage.SearchRecord{}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	var matched []*storage.SearchRecord
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if len(row) != len(headers) {
			continue // malformed
		}

		rec := parseRow(row)
		if filter.Match(rec) {
			matched = append(matched, rec)
		}
	}

	return filter.Page(matched), nil
}

func parseRow(row []string) *storage.SearchRecord {
	safe, _ := strconv.Atoi(row[6])
	status, _ := strconv.Atoi(row[9])
	detected, _ := strconv.ParseBool(row[10])
	var results []gnews.Result
	if err := json.Unmarshal([]byte(row[13]), &results); err != nil {
		results = nil
	}
	durationMs, _ := strconv.ParseInt(row[14], 10, 64)
	createdAt, _ := time.Parse(time.RFC3339Nano, row[15])

	return &storage.SearchRecord{
		ID:           row[0],
		Provider:     row[1],
		Terms:        row[2],
		Language:     row[3],
		Country:      row[4],
		TimeRange:    row[5],
		SafeSearch:   safe,
		RequestURL:   row[7],
		FinalURL:     row[8],
		StatusCode:   status,
		DetectedBot:  detected,
		DetectionSrc: row[11],
		Interception: row[12],
		Results:      results,
		Duration:     time.Duration(durationMs) * time.Millisecond,
		CreatedAt:    createdAt,
		Error:        row[16],
	}
}

func (b *csvBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
