package worker

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"sjsage522/newsworker/internal/crawler"
	"sjsage522/newsworker/internal/news"
	"sjsage522/newsworker/internal/summarizer"
	"sjsage522/newsworker/logger"
	"sjsage522/newsworker/services/publisher"
)

// Crawler runs one crawl and returns what it collected
type Crawler interface {
	Run(ctx context.Context) (*crawler.Result, error)
}

// Exporter writes the collected records somewhere durable
type Exporter interface {
	Export(records []news.NewsRecord, ranking []news.KeywordEntry) (string, error)
}

// InsightGenerator writes a commentary over the collected records
type InsightGenerator interface {
	Insights(ctx context.Context, input summarizer.InsightInput) string
}

// Report is what one worker run produced
type Report struct {
	Result     *crawler.Result
	Published  int
	ExportPath string
	Insights   string
	Elapsed    time.Duration
}

// Worker handles the crawling and publishing process.
// The publisher, exporter and insight generator are optional.
type Worker struct {
	ctx       context.Context
	crawler   Crawler
	publisher publisher.Publisher
	exporter  Exporter
	insights  InsightGenerator
	log       *logger.Logger
}

// NewWorker creates a new worker
func NewWorker(
	ctx context.Context,
	c Crawler,
	pub publisher.Publisher,
	exp Exporter,
	ins InsightGenerator,
) *Worker {
	return &Worker{
		ctx:       ctx,
		crawler:   c,
		publisher: pub,
		exporter:  exp,
		insights:  ins,
		log:       logger.ForWorker(),
	}
}

// Run crawls once and hands the records to every configured sink.
// Only a fatal crawl error is returned; sink failures are logged.
func (w *Worker) Run() (*Report, error) {
	start := time.Now()

	result, err := w.crawler.Run(w.ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("Crawl failed")
		return nil, err
	}

	report := &Report{Result: result}
	w.logSample(result.Records)

	if w.publisher != nil {
		report.Published = w.publish(result.Records)
	}

	if w.exporter != nil && len(result.Records) > 0 {
		path, err := w.exporter.Export(result.Records, result.Keywords)
		if err != nil {
			w.log.Error().Err(err).Msg("Export failed")
		} else {
			report.ExportPath = path
		}
	}

	if w.insights != nil && len(result.Records) > 0 {
		report.Insights = w.insights.Insights(w.ctx, summarizer.NewInsightInput(result.Records, result.Keywords))
	}

	report.Elapsed = time.Since(start)
	w.log.Info().
		Int("records", len(result.Records)).
		Int("published", report.Published).
		Str("export", report.ExportPath).
		Dur("elapsed", report.Elapsed).
		Msg("Run complete")
	return report, nil
}

// publish sends the records then trims the stream
func (w *Worker) publish(records []news.NewsRecord) int {
	n, err := publisher.PublishRecords(w.publisher, records)
	if err != nil {
		w.log.Error().Err(err).Int("published", n).Int("total", len(records)).Msg("Publishing stopped early")
	}

	if err := w.publisher.TrimStreams(); err != nil {
		w.log.Error().Err(err).Msg("Stream trimming failed")
	}
	return n
}

// logSample logs the first record outside production
func (w *Worker) logSample(records []news.NewsRecord) {
	if len(records) == 0 || os.Getenv("NEWSWORKER_ENVIRONMENT") == "production" {
		return
	}

	sample, err := json.Marshal(records[0])
	if err != nil {
		w.log.Warn().Err(err).Msg("Failed to encode sample record")
		return
	}
	w.log.Debug().RawJSON("record", sample).Msg("First collected record")
}
