package crawler

import (
	"context"

	"sjsage522/newsworker/internal/news"
)

// Session is the browser the orchestrator drives.
// Implementations keep their tab handles private; callers only see lookups and actions.
type Session interface {
	// Navigate loads the listing page in the primary tab
	Navigate(ctx context.Context, url string) error

	// WaitForList waits for the listing to render
	WaitForList(ctx context.Context) error

	// ListPageHTML returns the current listing markup
	ListPageHTML(ctx context.Context) (string, error)

	// OpenDetail opens an article in a second tab
	OpenDetail(ctx context.Context, url string) error

	// DetailHTML returns the markup of the open article
	DetailHTML(ctx context.Context) (string, error)

	// CloseDetail closes the article tab
	CloseDetail(ctx context.Context) error

	// RestorePrimary leaves exactly the primary tab open
	RestorePrimary(ctx context.Context) error

	// AdvancePage moves to listing page pageIndex; false means the control is absent
	AdvancePage(ctx context.Context, pageIndex int) (bool, error)

	// AdvanceDay moves to the previous day; false means the control is absent
	AdvanceDay(ctx context.Context) (bool, error)

	Close() error
}

// SessionOpener starts a new browser session
type SessionOpener func(ctx context.Context) (Session, error)

// ProgressFunc is told about every listing page as it is reached
type ProgressFunc func(step, total int, date string)

// Stats counts what a run visited
type Stats struct {
	DaysVisited     int  `json:"days_visited"`
	PagesVisited    int  `json:"pages_visited"`
	ItemsSeen       int  `json:"items_seen"`
	ItemsSkipped    int  `json:"items_skipped"`
	SummaryFailures int  `json:"summary_failures"`
	Interrupted     bool `json:"interrupted"`
}

// Result is the outcome of one crawl
type Result struct {
	Records  []news.NewsRecord
	Keywords []news.KeywordEntry
	Stats    Stats
}
