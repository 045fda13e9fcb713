package report

import (
	"cmp"
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"io"
	"maps"
	"net/url"
	"slices"
	"strings"
	"text/template"
	"time"

	"github.com/FranksOps/newsprobe/internal/analyzer"
	"github.com/FranksOps/newsprobe/internal/storage"
)

// topSourceCount bounds Summary.TopSources.
const topSourceCount = 10

// SourceCount is how often a publisher host appeared in results.
type SourceCount struct {
	Host  string `json:"host"`
	Count int    `json:"count"`
}

// Summary aggregates a set of stored search records.
type Summary struct {
	TotalSearches   int            `json:"total_searches"`
	Succeeded       int            `json:"succeeded"`
	Empty           int            `json:"empty"`
	Failed          int            `json:"failed"`
	HardBlocks      int            `json:"hard_blocks"`
	Captchas        int            `json:"captchas"`
	TotalDetections int            `json:"total_detections"`
	DetectionsBySrc map[string]int `json:"detections_by_src"`
	StatusCodes     map[int]int    `json:"status_codes"`
	Languages       map[string]int `json:"languages"`
	TotalResults    int            `json:"total_results"`
	AvgResults      float64        `json:"avg_results"`
	// MeanRelevance averages analyzer.Coverage.Relevance over searches that
	// returned results.
	MeanRelevance float64       `json:"mean_relevance"`
	TopSources    []SourceCount `json:"top_sources"`
	StartTime     time.Time     `json:"start_time"`
	EndTime       time.Time     `json:"end_time"`
	Duration      time.Duration `json:"duration"`
}

// InterceptionRate is the share of searches that hit a challenge page.
func (s Summary) InterceptionRate() float64 {
	if s.TotalSearches == 0 {
		return 0
	}
	return float64(s.HardBlocks+s.Captchas) / float64(s.TotalSearches)
}

// GenerateSummary processes search records into a Summary.
func GenerateSummary(records []*storage.SearchRecord) Summary {
	s := Summary{
		DetectionsBySrc: make(map[string]int),
		StatusCodes:     make(map[int]int),
		Languages:       make(map[string]int),
	}
	if len(records) == 0 {
		return s
	}

	s.StartTime = records[0].CreatedAt
	s.EndTime = records[0].CreatedAt
	sources := make(map[string]int)
	var relevanceSum float64
	var withResults int

	for _, r := range records {
		s.TotalSearches++
		switch r.Outcome() {
		case "ok":
			s.Succeeded++
		case "empty":
			s.Empty++
		case "error":
			s.Failed++
		case "hard_block":
			s.HardBlocks++
		case "captcha":
			s.Captchas++
		}
		if r.DetectedBot {
			s.TotalDetections++
			s.DetectionsBySrc[r.DetectionSrc]++
		}
		if r.StatusCode > 0 {
			s.StatusCodes[r.StatusCode]++
		}
		if r.Language != "" {
			s.Languages[r.Language]++
		}

		s.TotalResults += len(r.Results)
		if len(r.Results) > 0 {
			withResults++
			relevanceSum += analyzer.Analyze(r.Terms, r.Results).Relevance()
		}
		for _, res := range r.Results {
			if host := sourceHost(res.URL); host != "" {
				sources[host]++
			}
		}

		if r.CreatedAt.Before(s.StartTime) {
			s.StartTime = r.CreatedAt
		}
		if r.CreatedAt.After(s.EndTime) {
			s.EndTime = r.CreatedAt
		}
	}

	s.AvgResults = float64(s.TotalResults) / float64(s.TotalSearches)
	if withResults > 0 {
		s.MeanRelevance = relevanceSum / float64(withResults)
	}
	s.TopSources = topSources(sources, topSourceCount)
	s.Duration = s.EndTime.Sub(s.StartTime)
	return s
}

func sourceHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func topSources(counts map[string]int, n int) []SourceCount {
	hosts := slices.SortedFunc(maps.Keys(counts), func(a, b string) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	if len(hosts) > n {
		hosts = hosts[:n]
	}
	out := make([]SourceCount, len(hosts))
	for i, h := range hosts {
		out[i] = SourceCount{Host: h, Count: counts[h]}
	}
	return out
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}

var funcs = map[string]any{
	"pct": func(f float64) string { return fmt.Sprintf("%.1f%%", f*100) },
}

const textTmpl = `newsprobe Summary
-----------------
Time:          {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}}
Duration:      {{.Duration}}
Searches:      {{.TotalSearches}} ({{.Succeeded}} ok, {{.Empty}} empty, {{.Failed}} failed)
Intercepted:   {{.HardBlocks}} hard blocks, {{.Captchas}} captchas ({{pct .InterceptionRate}})
Results:       {{.TotalResults}} (avg {{printf "%.1f" .AvgResults}} per search)
Relevance:     {{pct .MeanRelevance}}

Status Codes:
{{- range $code, $count := .StatusCodes}}
  {{$code}}: {{$count}}
{{- else}}
  None
{{- end}}

Detections: {{.TotalDetections}}
{{- range $src, $count := .DetectionsBySrc}}
  {{$src}}: {{$count}}
{{- else}}
  None
{{- end}}

Languages:
{{- range $lang, $count := .Languages}}
  {{$lang}}: {{$count}}
{{- else}}
  None
{{- end}}

Top Sources:
{{- range .TopSources}}
  {{.Host}}: {{.Count}}
{{- else}}
  None
{{- end}}
`

var textReport = template.Must(template.New("textReport").Funcs(funcs).Parse(textTmpl))

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	if err := textReport.Execute(w, summary); err != nil {
		return fmt.Errorf("render text report: %w", err)
	}
	return nil
}

const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>newsprobe Report</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  .bad { color: red; }
  .good { color: green; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; }
  th { background: #eaeaea; }
</style>
</head>
<body>
  <h1>newsprobe Report</h1>
  <p><strong>Time:</strong> {{.StartTime.Format "2006-01-02 15:04:05"}} to {{.EndTime.Format "2006-01-02 15:04:05"}} ({{.Duration}})</p>

  <div class="stat-card">
    <div>Searches</div>
    <div class="stat-val">{{.TotalSearches}}</div>
  </div>
  <div class="stat-card">
    <div>Results</div>
    <div class="stat-val">{{.TotalResults}}</div>
  </div>
  <div class="stat-card">
    <div>Intercepted</div>
    <div class="stat-val {{if gt (add .HardBlocks .Captchas) 0}}bad{{else}}good{{end}}">{{pct .InterceptionRate}}</div>
  </div>
  <div class="stat-card">
    <div>Failed</div>
    <div class="stat-val">{{.Failed}}</div>
  </div>
  <div class="stat-card">
    <div>Relevance</div>
    <div class="stat-val">{{pct .MeanRelevance}}</div>
  </div>

  <h3>Status Codes</h3>
  <table>
    <tr><th>Code</th><th>Count</th></tr>
    {{- range $code, $count := .StatusCodes}}
    <tr><td>{{$code}}</td><td>{{$count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>

  <h3>Detections By Source</h3>
  <table>
    <tr><th>Source</th><th>Count</th></tr>
    {{- range $src, $count := .DetectionsBySrc}}
    <tr><td>{{$src}}</td><td>{{$count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>

  <h3>Top Sources</h3>
  <table>
    <tr><th>Host</th><th>Results</th></tr>
    {{- range .TopSources}}
    <tr><td>{{.Host}}</td><td>{{.Count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>
</body>
</html>
`

var htmlReport = htmltemplate.Must(htmltemplate.New("htmlReport").Funcs(htmltemplate.FuncMap{
	"pct": funcs["pct"],
	"add": func(a, b int) int { return a + b },
}).Parse(htmlTmpl))

// WriteHTML writes an HTML report to the provided writer. Values are escaped.
func WriteHTML(w io.Writer, summary Summary) error {
	if err := htmlReport.Execute(w, summary); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	return nil
}
