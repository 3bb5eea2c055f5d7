package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"sjsage522/newsworker/config"
	"sjsage522/newsworker/internal/browser"
	"sjsage522/newsworker/internal/crawler"
	"sjsage522/newsworker/internal/extractor"
	"sjsage522/newsworker/internal/keywords"
	"sjsage522/newsworker/internal/summarizer"
	"sjsage522/newsworker/logger"
	apperrors "sjsage522/newsworker/pkg/errors"
	"sjsage522/newsworker/services/cache"
	"sjsage522/newsworker/services/exporter"
	"sjsage522/newsworker/services/publisher"
	"sjsage522/newsworker/services/worker"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

const summaryRequestTimeout = 30 * time.Second

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	app := &cli.App{
		Name:           "newsworker",
		Usage:          "collect, summarize and analyze world news articles",
		DefaultCommand: "crawl",
		Commands: []*cli.Command{
			{
				Name:   "crawl",
				Usage:  "crawl the news category and summarize every article",
				Flags:  crawlFlags(),
				Action: crawlAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("newsworker failed")
	}
}

func crawlFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "days", Aliases: []string{"d"}, Usage: fmt.Sprintf("number of days to collect (%d-%d)", config.MinDays, config.MaxDays)},
		&cli.IntFlag{Name: "pages", Aliases: []string{"p"}, Usage: fmt.Sprintf("listing pages per day (%d-%d)", config.MinPagesPerDay, config.MaxPagesPerDay)},
		&cli.StringFlag{Name: "api-key", Usage: "summarization API key, overrides OPENAI_API_KEY"},
		&cli.IntFlag{Name: "top", Usage: "number of keywords to rank"},
		&cli.StringFlag{Name: "search", Usage: "print the articles whose title or body contain this term"},
		&cli.StringFlag{Name: "export-dir", Usage: "directory for the xlsx workbook"},
		&cli.BoolFlag{Name: "no-export", Usage: "skip the xlsx workbook"},
		&cli.BoolFlag{Name: "publish", Usage: "publish records to the Redis stream"},
		&cli.BoolFlag{Name: "insights", Usage: "generate an analysis of the collected articles"},
	}
}

// applyFlags overrides configuration with the flags that were given
func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("days") {
		cfg.NumDays = c.Int("days")
	}
	if c.IsSet("pages") {
		cfg.PagesPerDay = c.Int("pages")
	}
	if c.IsSet("top") {
		cfg.TopKeywords = c.Int("top")
	}
	if c.IsSet("export-dir") {
		cfg.ExportDir = c.String("export-dir")
	}
	if c.IsSet("publish") {
		cfg.PublishEnabled = c.Bool("publish")
	}
	if c.IsSet("insights") {
		cfg.Insights = c.Bool("insights")
	}
	cfg.ApplyAPIKeyOverride(c.String("api-key"))
}

func crawlAction(c *cli.Context) error {
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	applyFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log.Info().
		Str("environment", cfg.Environment).
		Int("days", cfg.NumDays).
		Int("pages_per_day", cfg.PagesPerDay).
		Bool("publish", cfg.PublishEnabled).
		Msg("Starting crawl")

	// Cancel the run on SIGINT/SIGTERM; the browser is still released
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := initializeServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer services.Cleanup()

	client := summarizer.New(summarizer.Options{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
		Timeout: summaryRequestTimeout,
	})
	var sum summarizer.Summarizer = client
	if services.Cache != nil {
		sum = summarizer.NewCached(client, services.Cache, cfg.SummaryCacheTTL)
	}

	orch := crawler.New(crawler.Options{
		SiteName:        cfg.SiteName,
		StartURL:        cfg.BaseURL,
		NumDays:         cfg.NumDays,
		PagesPerDay:     cfg.PagesPerDay,
		TopKeywords:     cfg.TopKeywords,
		SummaryInterval: cfg.SummaryInterval,
		Progress: func(step, total int, date string) {
			logger.Info("진행 %d/%d (%d%%) %s", step, total, step*100/total, date)
		},
	}, sessionOpener(cfg), extractor.New(extractor.DefaultSelectors(), cfg.SiteOrigin), sum)

	var exp worker.Exporter
	if !c.Bool("no-export") {
		exp = exporter.New(cfg.ExportDir)
	}
	var ins worker.InsightGenerator
	if cfg.Insights {
		ins = client
	}

	w := worker.NewWorker(ctx, orch, services.Publisher, exp, ins)
	report, err := w.Run()
	if err != nil {
		return err
	}

	printReport(os.Stdout, report, c.String("search"))
	return nil
}

// sessionOpener starts a chromedp session configured from cfg
func sessionOpener(cfg *config.Config) crawler.SessionOpener {
	opts := browser.DefaultOptions()
	opts.Headless = cfg.Headless
	opts.UserAgent = cfg.UserAgent
	opts.SettleTimeout = cfg.SettleTimeout
	opts.DetailTimeout = cfg.DetailTimeout

	return func(ctx context.Context) (crawler.Session, error) {
		sess, err := browser.Open(ctx, opts)
		if err != nil {
			return nil, err
		}
		return sess, nil
	}
}

// printReport writes the keyword ranking, search matches and insights to out
func printReport(out io.Writer, report *worker.Report, search string) {
	result := report.Result
	fmt.Fprintf(out, "수집 기사: %d건 (소요 시간 %s)\n", len(result.Records), report.Elapsed.Round(time.Second))
	if report.ExportPath != "" {
		fmt.Fprintf(out, "엑셀 파일: %s\n", report.ExportPath)
	}

	fmt.Fprintln(out, "\n날짜별 기사 수")
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, d := range keywords.CountByDate(result.Records) {
		fmt.Fprintf(tw, "%s\t%d\n", d.Date, d.Count)
	}
	tw.Flush()

	fmt.Fprintln(out, "\n키워드 순위")
	tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for i, k := range result.Keywords {
		fmt.Fprintf(tw, "%d\t%s\t%d\n", i+1, k.Token, k.Count)
	}
	tw.Flush()

	if search != "" {
		matches := keywords.Search(result.Records, search)
		fmt.Fprintf(out, "\n'%s' 검색 결과: %d건\n", search, len(matches))
		for _, r := range matches {
			fmt.Fprintf(out, "- [%s] %s\n", r.Date, r.Title)
		}
	}

	if report.Insights != "" {
		fmt.Fprintf(out, "\nAI 인사이트\n%s\n", report.Insights)
	}
}

// Services holds all the initialized services
type Services struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
}

// initializeServices initializes the optional cache and publisher
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	services := &Services{}

	// The summary cache is best effort
	if cfg.MemcacheAddr != "" {
		cacheService := cache.NewMemcacheService(cfg.MemcacheAddr, "newsworker")
		if err := cacheService.Ping(); err != nil {
			logger.Warn("Memcache at %s unavailable, summaries will not be cached: %v", cfg.MemcacheAddr, err)
		} else {
			services.Cache = cacheService
			logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
		}
	}

	if cfg.PublishEnabled {
		redisPublisher := publisher.NewRedisPublisher(
			ctx,
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamMaxLength,
		)
		if err := redisPublisher.Ping(); err != nil {
			redisPublisher.Close()
			return nil, apperrors.NewConfiguration("publishing is enabled but redis at "+cfg.RedisAddr+" is unreachable", err)
		}
		services.Publisher = redisPublisher

		logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
			cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	}

	return services, nil
}
