package gnews

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"
)

// Result is one normalized news result.
type Result struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Thumbnail string `json:"thumbnail_url,omitempty"`
}

// blockSelector matches one result block in the news result page.
const blockSelector = "div.xrnccd"

var (
	errNoArticle = errors.New("no article element")
	errNoLink    = errors.New("no article link with jslog attribute")
	errNoURL     = errors.New("jslog carries no absolute url")
)

type blockError struct {
	index int
	err   error
}

func (e *blockError) Error() string {
	return fmt.Sprintf("result block %d: %v", e.index, e.err)
}

func (e *blockError) Unwrap() error { return e.err }

// Extractor turns a result page into Results. It does no I/O beyond reading
// the body and is safe for concurrent use.
type Extractor struct {
	cfg    *Config
	logger *slog.Logger
}

// NewExtractor returns an extractor bound to cfg. A nil cfg uses
// DefaultConfig.
func NewExtractor(cfg *Config, logger *slog.Logger) *Extractor {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{cfg: cfg, logger: logger}
}

// Extract checks finalURL for an interception and otherwise parses body. The
// returned sequence yields results lazily in document order. Blocks that do
// not match the expected layout are logged and skipped. The sequence can be
// ranged over once; call Extract again to start over.
func (e *Extractor) Extract(body io.Reader, finalURL string) (iter.Seq[Result], error) {
	if ie := e.cfg.CheckInterception(finalURL); ie != nil {
		return nil, ie
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse result page: %w", err)
	}
	base, _ := url.Parse(finalURL)

	blocks := doc.Find(blockSelector)
	var used atomic.Bool

	return func(yield func(Result) bool) {
		if used.Swap(true) {
			e.logger.Warn("result sequence already consumed", "url", finalURL)
			return
		}
		for i := range blocks.Length() {
			res, err := parseBlock(blocks.Eq(i), base)
			if err != nil {
				e.logger.Warn("skipping result block",
					"url", finalURL,
					"err", &blockError{index: i, err: err})
				continue
			}
			if !yield(res) {
				return
			}
		}
	}, nil
}

func parseBlock(block *goquery.Selection, base *url.URL) (Result, error) {
	article := block.ChildrenFiltered("article").First()
	if article.Length() == 0 {
		return Result{}, errNoArticle
	}

	link := article.ChildrenFiltered("a[jslog]").First()
	if link.Length() == 0 {
		return Result{}, errNoLink
	}
	target, ok := parseJSLogURL(link.AttrOr("jslog", ""))
	if !ok {
		return Result{}, errNoURL
	}

	divs := article.ChildrenFiltered("div")
	snippet := flatten(divs.Eq(0))
	meta := divs.Eq(1)
	date := flatten(meta.Find("time"))
	publisher := flatten(meta.Find("a"))

	return Result{
		URL:       target,
		Title:     flatten(article.ChildrenFiltered("h3").First()),
		Content:   withPubInfo(snippet, publisher, date),
		Thumbnail: thumbnail(block, base),
	}, nil
}

// withPubInfo prefixes snippet with "<publisher>, <date>: ", leaving out
// whichever part is empty. The date is display text such as "yesterday".
func withPubInfo(snippet, publisher, date string) string {
	var parts []string
	if publisher != "" {
		parts = append(parts, publisher)
	}
	if date != "" {
		parts = append(parts, date)
	}
	if len(parts) == 0 {
		return snippet
	}
	return strings.Join(parts, ", ") + ": " + snippet
}

// thumbnail reads the image from the anchor placed just before the block:
//
//	<a ...><figure><img src="https://lh3.googleusercontent.com/..."></figure></a>
//	<div class="xrnccd">...</div>
func thumbnail(block *goquery.Selection, base *url.URL) string {
	src := strings.TrimSpace(block.PrevFiltered("a").
		ChildrenFiltered("figure").
		ChildrenFiltered("img").
		First().
		AttrOr("src", ""))
	if src == "" {
		return ""
	}
	ref, err := url.Parse(src)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if s := ref.String(); isAbsoluteHTTP(s) {
		return s
	}
	return ""
}

// flatten returns the text content of sel with runs of whitespace collapsed.
func flatten(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}
