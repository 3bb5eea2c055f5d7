package extractor

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"sjsage522/newsworker/internal/news"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ErrMalformedDocument is returned when a snapshot is empty or carries no markup to extract from
var ErrMalformedDocument = errors.New("empty or malformed document")

// Selectors contains CSS selectors for the elements of listing and detail pages
type Selectors struct {
	ListItem string
	// Link is looked up inside a list item. Empty means the item element carries the link itself.
	Link     string
	LinkAttr string
	Title    string
	ItemDate string
	PageDate string
	Content  string
}

// DefaultSelectors returns the selectors of the KBS news category pages
func DefaultSelectors() Selectors {
	return Selectors{
		ListItem: ".box-contents.has-wrap .box-content",
		LinkAttr: "href",
		Title:    ".title",
		ItemDate: ".field-writer .date",
		PageDate: ".datepicker-label .date",
		Content:  "#cont_newstext",
	}
}

// Extractor turns rendered page snapshots into list items and article text
type Extractor struct {
	Selectors Selectors
	BaseURL   string
	Now       func() time.Time
}

// New creates an extractor resolving links against baseURL
func New(selectors Selectors, baseURL string) *Extractor {
	if selectors.LinkAttr == "" {
		selectors.LinkAttr = "href"
	}
	return &Extractor{
		Selectors: selectors,
		BaseURL:   baseURL,
		Now:       time.Now,
	}
}

// parse builds a goquery document from an html snapshot
func (e *Extractor) parse(snapshot string) (*goquery.Document, error) {
	if strings.TrimSpace(snapshot) == "" {
		return nil, ErrMalformedDocument
	}

	root, err := html.Parse(strings.NewReader(snapshot))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	doc := goquery.NewDocumentFromNode(root)
	body := doc.Find("body")
	if body.Children().Length() == 0 && strings.TrimSpace(body.Text()) == "" {
		return nil, ErrMalformedDocument
	}
	return doc, nil
}

// text returns the trimmed text of the first match of selector inside s
func text(s *goquery.Selection, selector string) (string, bool) {
	if selector == "" {
		return "", false
	}
	sel := s.Find(selector).First()
	if sel.Length() == 0 {
		return "", false
	}
	value := strings.TrimSpace(sel.Text())
	return value, value != ""
}

// ExtractPageDate returns the page-level date indicator, if present
func (e *Extractor) ExtractPageDate(snapshot string) (string, bool) {
	doc, err := e.parse(snapshot)
	if err != nil {
		return "", false
	}
	return text(doc.Selection, e.Selectors.PageDate)
}

// ClockDate returns the current date in the listing date format
func (e *Extractor) ClockDate() string {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	return now().Format(news.DateLayout)
}

// ExtractListItems returns the article previews of a listing page in document order.
// Items without a link are decoration and are skipped. A missing title becomes the
// NoTitle sentinel; a missing item date falls back to pageDate, then to the clock date.
func (e *Extractor) ExtractListItems(snapshot, pageDate string) ([]news.ListItem, error) {
	doc, err := e.parse(snapshot)
	if err != nil {
		return nil, err
	}

	if pageDate == "" {
		if d, ok := text(doc.Selection, e.Selectors.PageDate); ok {
			pageDate = d
		} else {
			pageDate = e.ClockDate()
		}
	}

	var items []news.ListItem
	doc.Find(e.Selectors.ListItem).Each(func(_ int, s *goquery.Selection) {
		href, ok := e.link(s)
		if !ok {
			return
		}

		title, ok := text(s, e.Selectors.Title)
		if !ok {
			title = news.NoTitle
		}

		date, ok := text(s, e.Selectors.ItemDate)
		if !ok {
			date = pageDate
		}

		items = append(items, news.ListItem{
			Href:  href,
			Title: title,
			Date:  date,
		})
	})

	return items, nil
}

// link returns the item's link attribute, from the item itself or its Link child
func (e *Extractor) link(s *goquery.Selection) (string, bool) {
	target := s
	if e.Selectors.Link != "" {
		target = s.Find(e.Selectors.Link).First()
		if target.Length() == 0 {
			return "", false
		}
	}

	href, exists := target.Attr(e.Selectors.LinkAttr)
	href = strings.TrimSpace(href)
	if !exists || href == "" {
		return "", false
	}
	return href, true
}

// ExtractDetailContent returns the article body of a detail page.
// A missing or empty content container yields the NoContent sentinel.
func (e *Extractor) ExtractDetailContent(snapshot string) (string, error) {
	doc, err := e.parse(snapshot)
	if err != nil {
		return "", err
	}

	sel := doc.Find(e.Selectors.Content).First()
	if sel.Length() == 0 {
		return news.NoContent, nil
	}

	content := normalizeText(sel.Text())
	if content == "" {
		return news.NoContent, nil
	}
	return content, nil
}

// normalizeText trims every line and drops blank ones
func normalizeText(raw string) string {
	lines := strings.Split(raw, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// ResolveURL resolves a relative link against the base URL
func (e *Extractor) ResolveURL(href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("invalid link %q: %w", href, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}

	base, err := url.Parse(e.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", e.BaseURL, err)
	}
	return base.ResolveReference(ref).String(), nil
}
