package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sjsage522/newsworker/internal/extractor"
	"sjsage522/newsworker/internal/keywords"
	"sjsage522/newsworker/internal/news"
	"sjsage522/newsworker/internal/summarizer"
	"sjsage522/newsworker/logger"
	apperrors "sjsage522/newsworker/pkg/errors"

	"golang.org/x/time/rate"
)

// State is a step of the crawl state machine
type State int

const (
	StateInit State = iota
	StateDayLoop
	StatePageLoop
	StateItemLoop
	StateAggregate
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateDayLoop:
		return "day_loop"
	case StatePageLoop:
		return "page_loop"
	case StateItemLoop:
		return "item_loop"
	case StateAggregate:
		return "aggregate"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options configures one crawl
type Options struct {
	SiteName    string
	StartURL    string
	NumDays     int
	PagesPerDay int
	TopKeywords int

	// SummaryInterval is the minimum spacing between summarization calls
	SummaryInterval time.Duration
	Progress        ProgressFunc
}

// Orchestrator walks days, listing pages and articles with one browser session
type Orchestrator struct {
	opts       Options
	open       SessionOpener
	extractor  *extractor.Extractor
	summarizer summarizer.Summarizer
	limiter    *rate.Limiter
	log        *logger.Logger
	state      State
}

// New creates an orchestrator
func New(opts Options, open SessionOpener, ext *extractor.Extractor, sum summarizer.Summarizer) *Orchestrator {
	limit := rate.Inf
	if opts.SummaryInterval > 0 {
		limit = rate.Every(opts.SummaryInterval)
	}
	if opts.SiteName == "" {
		opts.SiteName = "news"
	}

	return &Orchestrator{
		opts:       opts,
		open:       open,
		extractor:  ext,
		summarizer: sum,
		limiter:    rate.NewLimiter(limit, 1),
		log:        logger.ForCrawler(opts.SiteName),
		state:      StateInit,
	}
}

// State returns the state the last Run reached
func (o *Orchestrator) State() State {
	return o.state
}

func (o *Orchestrator) transition(next State) {
	o.log.Debug().Str("from", o.state.String()).Str("to", next.String()).Msg("State transition")
	o.state = next
}

// Run performs one crawl. The only errors returned are fatal session or navigation
// failures, in which case no records are returned. Everything else is absorbed per item.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	o.state = StateInit

	sess, err := o.open(ctx)
	if err != nil {
		o.transition(StateFailed)
		return nil, asFatal(err, apperrors.NewSession(o.opts.SiteName, "failed to open browser session", err))
	}
	defer func() {
		if err := sess.Close(); err != nil {
			o.log.Warn().Err(err).Msg("Failed to close browser session")
		}
	}()

	if err := sess.Navigate(ctx, o.opts.StartURL); err != nil {
		o.transition(StateFailed)
		return nil, asFatal(err, apperrors.NewNavigation(o.opts.SiteName, "failed to load "+o.opts.StartURL, err))
	}

	result := &Result{}
	o.crawlDays(ctx, sess, result)

	o.transition(StateAggregate)
	result.Keywords = keywords.TopN(result.Records, o.opts.TopKeywords)

	o.transition(StateDone)
	o.log.Info().
		Int("records", len(result.Records)).
		Int("days", result.Stats.DaysVisited).
		Int("pages", result.Stats.PagesVisited).
		Int("skipped", result.Stats.ItemsSkipped).
		Int("summary_failures", result.Stats.SummaryFailures).
		Bool("interrupted", result.Stats.Interrupted).
		Msg("Crawl finished")
	return result, nil
}

// asFatal keeps err when it is already a fatal CrawlerError
func asFatal(err error, fallback *apperrors.CrawlerError) error {
	var ce *apperrors.CrawlerError
	if errors.As(err, &ce) && ce.IsFatal() {
		return ce
	}
	return fallback
}

func (o *Orchestrator) crawlDays(ctx context.Context, sess Session, result *Result) {
	total := o.opts.NumDays * o.opts.PagesPerDay
	step := 0

	for day := 0; day < o.opts.NumDays; day++ {
		if o.interrupted(ctx, result) {
			return
		}
		o.transition(StateDayLoop)
		result.Stats.DaysVisited++

		pageDate := o.pageDate(ctx, sess)
		log := o.log.WithField("day", day).WithField("date", pageDate)
		log.Info().Msg("Collecting day")

		for page := 1; page <= o.opts.PagesPerDay; page++ {
			if o.interrupted(ctx, result) {
				return
			}
			o.transition(StatePageLoop)
			result.Stats.PagesVisited++
			step++
			if o.opts.Progress != nil {
				o.opts.Progress(step, total, pageDate)
			}

			cursor := news.PaginationCursor{DayIndex: day, PageIndex: page}
			o.crawlPage(ctx, sess, cursor, pageDate, result)

			if page == o.opts.PagesPerDay {
				break
			}
			ok, err := sess.AdvancePage(ctx, page+1)
			if err != nil {
				log.Warn().Err(err).Int("page", page+1).Msg("Failed to move to next page")
				break
			}
			if !ok {
				log.Info().Int("page", page+1).Msg("No further pages for this day")
				break
			}
		}

		if day == o.opts.NumDays-1 {
			break
		}
		ok, err := sess.AdvanceDay(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to move to previous day")
			return
		}
		if !ok {
			log.Info().Msg("No previous day control, stopping")
			return
		}
	}
}

// interrupted reports whether ctx was cancelled and marks the result
func (o *Orchestrator) interrupted(ctx context.Context, result *Result) bool {
	if ctx.Err() == nil {
		return false
	}
	if !result.Stats.Interrupted {
		o.log.Warn().Err(ctx.Err()).Msg("Crawl interrupted")
	}
	result.Stats.Interrupted = true
	return true
}

// pageDate reads the day's date label, falling back to the clock
func (o *Orchestrator) pageDate(ctx context.Context, sess Session) string {
	html, err := sess.ListPageHTML(ctx)
	if err == nil {
		if date, ok := o.extractor.ExtractPageDate(html); ok {
			return date
		}
	}
	return o.extractor.ClockDate()
}

func (o *Orchestrator) crawlPage(ctx context.Context, sess Session, cursor news.PaginationCursor, pageDate string, result *Result) {
	log := o.log.WithField("cursor", cursor.String())

	if err := sess.WaitForList(ctx); err != nil {
		log.Debug().Err(err).Msg("Listing not ready before timeout, reading anyway")
	}

	html, err := sess.ListPageHTML(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read listing page")
		return
	}

	items, err := o.extractor.ExtractListItems(html, pageDate)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to extract listing items")
		return
	}
	log.Debug().Int("items", len(items)).Msg("Listing items found")

	o.transition(StateItemLoop)
	for _, item := range items {
		if ctx.Err() != nil {
			return
		}
		result.Stats.ItemsSeen++

		record, err := o.crawlItem(ctx, sess, item, cursor)
		if err != nil {
			result.Stats.ItemsSkipped++
			log.WithError(err).Warn().Str("title", item.Title).Msg("Skipping article")
			o.restorePrimary(ctx, sess, log)
			continue
		}

		if summarizer.IsFailure(record.Summary) {
			result.Stats.SummaryFailures++
		}
		result.Records = append(result.Records, record)

		o.closeDetail(ctx, sess, log)
	}
}

// closeDetail closes the article tab, falling back to restoring the primary tab.
// The record is already kept at this point.
func (o *Orchestrator) closeDetail(ctx context.Context, sess Session, log *logger.Logger) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic while closing article tab: %v", r)
			}
		}()
		return sess.CloseDetail(ctx)
	}()
	if err == nil {
		return
	}

	log.WithError(err).Warn().Msg("Failed to close article tab")
	o.restorePrimary(ctx, sess, log)
}

func (o *Orchestrator) restorePrimary(ctx context.Context, sess Session, log *logger.Logger) {
	if err := sess.RestorePrimary(ctx); err != nil {
		log.WithError(err).Error().Msg("Failed to restore primary tab")
	}
}

// crawlItem builds the record of one article and leaves its tab open.
// A panic is reported as an error.
func (o *Orchestrator) crawlItem(ctx context.Context, sess Session, item news.ListItem, cursor news.PaginationCursor) (record news.NewsRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing article: %v", r)
		}
	}()

	link, err := o.extractor.ResolveURL(item.Href)
	if err != nil {
		return record, err
	}

	if err := sess.OpenDetail(ctx, link); err != nil {
		return record, err
	}

	html, err := sess.DetailHTML(ctx)
	if err != nil {
		return record, err
	}

	body, err := o.extractor.ExtractDetailContent(html)
	if err != nil {
		return record, apperrors.NewExtraction(o.opts.SiteName, "failed to extract "+link, err)
	}

	if err := o.limiter.Wait(ctx); err != nil {
		return record, err
	}
	summary := o.summarizer.Summarize(ctx, body)

	return news.NewsRecord{
		Date:    item.Date,
		Title:   item.Title,
		Body:    body,
		Summary: summary,
		Cursor:  cursor,
	}, nil
}
