package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"sjsage522/newsworker/logger"
	apperrors "sjsage522/newsworker/pkg/errors"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

// ErrNoDetail is returned by DetailHTML when no detail tab is open
var ErrNoDetail = errors.New("no detail tab open")

// Options configures the browser and the site controls it drives
type Options struct {
	Headless  bool
	UserAgent string

	// SettleTimeout bounds page loads and the wait for the listing to render
	SettleTimeout time.Duration
	// DetailTimeout bounds the wait for an article body to render
	DetailTimeout time.Duration
	PollInterval  time.Duration

	ListSelector    string
	ContentSelector string
	// PageControl is a format string taking the page number, e.g. "#page%d"
	PageControl     string
	PreviousControl string
}

// DefaultOptions returns options for the KBS news category pages
func DefaultOptions() Options {
	return Options{
		Headless:        true,
		SettleTimeout:   10 * time.Second,
		DetailTimeout:   5 * time.Second,
		PollInterval:    200 * time.Millisecond,
		ListSelector:    ".box-contents.has-wrap",
		ContentSelector: "#cont_newstext",
		PageControl:     "#page%d",
		PreviousControl: ".previous-button",
	}
}

// Session owns one headless browser with a primary tab and at most one detail tab.
// Tab handles never leave the session.
type Session struct {
	opts Options
	log  *logger.Logger

	allocCancel   context.CancelFunc
	primaryCtx    context.Context
	primaryCancel context.CancelFunc
	primaryID     target.ID

	detailCtx    context.Context
	detailCancel context.CancelFunc

	closeOnce sync.Once
}

// Open starts a headless browser and its primary tab
func Open(ctx context.Context, opts Options) (*Session, error) {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 200 * time.Millisecond
	}
	if opts.UserAgent == "" {
		opts.UserAgent = RandomUserAgent()
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(opts.UserAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	primaryCtx, primaryCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		opts:          opts,
		log:           logger.ForSession(),
		allocCancel:   allocCancel,
		primaryCtx:    primaryCtx,
		primaryCancel: primaryCancel,
	}

	// The first Run starts the browser and must use the context returned by NewContext
	if err := chromedp.Run(primaryCtx); err != nil {
		s.Close()
		return nil, apperrors.NewSession("chrome", "failed to start browser", err)
	}

	c := chromedp.FromContext(primaryCtx)
	if c == nil || c.Target == nil {
		s.Close()
		return nil, apperrors.NewSession("chrome", "browser started without a tab", nil)
	}
	s.primaryID = c.Target.TargetID

	s.log.Info().
		Bool("headless", opts.Headless).
		Str("target", string(s.primaryID)).
		Msg("Browser session opened")
	return s, nil
}

// bound derives a context from tabCtx that ends after timeout or when ctx is done
func bound(ctx, tabCtx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithTimeout(tabCtx, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

// browserCtx returns a context whose commands go to the browser rather than a tab
func (s *Session) browserCtx(ctx context.Context) context.Context {
	return cdp.WithExecutor(ctx, chromedp.FromContext(s.primaryCtx).Browser)
}

// Navigate loads url in the primary tab and waits for the listing to render
func (s *Session) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := bound(ctx, s.primaryCtx, s.opts.SettleTimeout)
	defer cancel()

	if err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady(s.opts.ListSelector, chromedp.ByQuery),
	); err != nil {
		return apperrors.NewNavigation(url, "listing page did not load", err)
	}

	s.log.Debug().Str("url", url).Msg("Listing page loaded")
	return nil
}

// WaitForList waits until the listing container is present in the primary tab
func (s *Session) WaitForList(ctx context.Context) error {
	runCtx, cancel := bound(ctx, s.primaryCtx, s.opts.SettleTimeout)
	defer cancel()

	return chromedp.Run(runCtx, chromedp.WaitReady(s.opts.ListSelector, chromedp.ByQuery))
}

// ListPageHTML returns the rendered markup of the primary tab
func (s *Session) ListPageHTML(ctx context.Context) (string, error) {
	runCtx, cancel := bound(ctx, s.primaryCtx, s.opts.SettleTimeout)
	defer cancel()

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read listing html: %w", err)
	}
	return html, nil
}

// OpenDetail opens url in a second tab and makes it the active one.
// A missing article body is not an error here; the extractor reports it.
func (s *Session) OpenDetail(ctx context.Context, url string) error {
	if s.detailCtx != nil {
		if err := s.RestorePrimary(ctx); err != nil {
			return err
		}
	}

	detailCtx, detailCancel := chromedp.NewContext(s.primaryCtx)
	s.detailCtx, s.detailCancel = detailCtx, detailCancel

	// Allocate the tab on the undecorated context so a timeout cannot close it early
	if err := chromedp.Run(detailCtx); err != nil {
		s.restoreAfterFailure(ctx)
		return fmt.Errorf("failed to open detail tab: %w", err)
	}

	runCtx, cancel := bound(ctx, detailCtx, s.opts.SettleTimeout)
	err := chromedp.Run(runCtx, chromedp.Navigate(url))
	cancel()
	if err != nil {
		s.restoreAfterFailure(ctx)
		return fmt.Errorf("failed to load %s: %w", url, err)
	}

	waitCtx, cancel := bound(ctx, detailCtx, s.opts.DetailTimeout)
	defer cancel()
	if err := chromedp.Run(waitCtx, chromedp.WaitReady(s.opts.ContentSelector, chromedp.ByQuery)); err != nil {
		s.log.Debug().Str("url", url).Err(err).Msg("Article body did not appear before timeout")
	}
	return nil
}

// DetailHTML returns the rendered markup of the detail tab
func (s *Session) DetailHTML(ctx context.Context) (string, error) {
	if s.detailCtx == nil {
		return "", ErrNoDetail
	}

	runCtx, cancel := bound(ctx, s.detailCtx, s.opts.SettleTimeout)
	defer cancel()

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		s.restoreAfterFailure(ctx)
		return "", fmt.Errorf("failed to read detail html: %w", err)
	}
	return html, nil
}

// CloseDetail closes the detail tab and returns focus to the primary tab
func (s *Session) CloseDetail(ctx context.Context) error {
	if s.detailCtx == nil {
		return nil
	}

	err := chromedp.Cancel(s.detailCtx)
	s.detailCancel()
	s.detailCtx, s.detailCancel = nil, nil
	if err != nil {
		s.log.Warn().Err(err).Msg("Detail tab did not close cleanly")
		return s.RestorePrimary(ctx)
	}

	if err := target.ActivateTarget(s.primaryID).Do(s.browserCtx(ctx)); err != nil {
		s.log.Debug().Err(err).Msg("Failed to activate primary tab")
	}
	return nil
}

// RestorePrimary closes every page target except the primary tab.
// Afterwards exactly one window is open.
func (s *Session) RestorePrimary(ctx context.Context) error {
	if s.detailCtx != nil {
		if err := chromedp.Cancel(s.detailCtx); err != nil {
			s.log.Debug().Err(err).Msg("Detail tab cancel failed")
		}
		s.detailCancel()
		s.detailCtx, s.detailCancel = nil, nil
	}

	infos, err := chromedp.Targets(s.primaryCtx)
	if err != nil {
		return fmt.Errorf("failed to list tabs: %w", err)
	}

	browserCtx := s.browserCtx(ctx)
	for _, info := range infos {
		if info.Type != "page" || info.TargetID == s.primaryID {
			continue
		}
		if err := target.CloseTarget(info.TargetID).Do(browserCtx); err != nil {
			return fmt.Errorf("failed to close tab %s: %w", info.TargetID, err)
		}
		s.log.Debug().Str("target", string(info.TargetID)).Msg("Closed stray tab")
	}

	if err := target.ActivateTarget(s.primaryID).Do(browserCtx); err != nil {
		s.log.Debug().Err(err).Msg("Failed to activate primary tab")
	}
	return nil
}

// restoreAfterFailure puts the window set back to the primary tab alone after a detail failure
func (s *Session) restoreAfterFailure(ctx context.Context) {
	if err := s.RestorePrimary(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Failed to restore primary tab")
	}
}

// AdvancePage clicks the pagination control for pageIndex.
// It reports false when the control does not exist, which marks the end of the day's pages.
func (s *Session) AdvancePage(ctx context.Context, pageIndex int) (bool, error) {
	return s.clickAndWait(ctx, fmt.Sprintf(s.opts.PageControl, pageIndex))
}

// AdvanceDay clicks the previous-day control.
// It reports false when the control does not exist.
func (s *Session) AdvanceDay(ctx context.Context) (bool, error) {
	return s.clickAndWait(ctx, s.opts.PreviousControl)
}

const clickScript = `(function(sel) {
	const el = document.querySelector(sel);
	if (!el) { return false; }
	el.click();
	return true;
})(%s)`

const listSnapshotScript = `(function(sel) {
	const el = document.querySelector(sel);
	return el ? el.innerHTML : "";
})(%s)`

// clickAndWait clicks selector if present, then polls until the listing changes
func (s *Session) clickAndWait(ctx context.Context, selector string) (bool, error) {
	quotedSel, _ := json.Marshal(selector)
	quotedList, _ := json.Marshal(s.opts.ListSelector)

	runCtx, cancel := bound(ctx, s.primaryCtx, s.opts.SettleTimeout)
	defer cancel()

	var before string
	if err := chromedp.Run(runCtx, chromedp.Evaluate(fmt.Sprintf(listSnapshotScript, quotedList), &before)); err != nil {
		return false, fmt.Errorf("failed to snapshot listing: %w", err)
	}

	var clicked bool
	if err := chromedp.Run(runCtx, chromedp.Evaluate(fmt.Sprintf(clickScript, quotedSel), &clicked)); err != nil {
		return false, fmt.Errorf("failed to click %s: %w", selector, err)
	}
	if !clicked {
		s.log.Debug().Str("selector", selector).Msg("Control not present")
		return false, nil
	}

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-runCtx.Done():
			if ctx.Err() != nil {
				return true, ctx.Err()
			}
			s.log.Warn().Str("selector", selector).Msg("Listing did not change before timeout")
			return true, nil
		case <-ticker.C:
		}

		var after string
		if err := chromedp.Run(runCtx, chromedp.Evaluate(fmt.Sprintf(listSnapshotScript, quotedList), &after)); err != nil {
			continue
		}
		if after != "" && after != before {
			return true, nil
		}
	}
}

// Close releases the browser. It is safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.detailCancel != nil {
			s.detailCancel()
			s.detailCtx, s.detailCancel = nil, nil
		}
		if s.primaryCtx != nil {
			err = chromedp.Cancel(s.primaryCtx)
		}
		s.primaryCancel()
		s.allocCancel()
		s.log.Info().Msg("Browser session closed")
	})
	return err
}
