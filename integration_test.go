package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"sjsage522/newsworker/config"
	"sjsage522/newsworker/internal/crawler"
	"sjsage522/newsworker/internal/extractor"
	"sjsage522/newsworker/internal/news"
	"sjsage522/newsworker/internal/summarizer"
	apperrors "sjsage522/newsworker/pkg/errors"
	"sjsage522/newsworker/services/cache"
	"sjsage522/newsworker/services/exporter"
	"sjsage522/newsworker/services/publisher"
	"sjsage522/newsworker/services/worker"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testSite serves two days of two listing pages each, plus the article pages
type testSite struct {
	listings map[string]string
	articles map[string]string
}

func newTestSite() *testSite {
	site := &testSite{listings: map[string]string{}, articles: map[string]string{}}
	dates := []string{"2025.03.12", "2025.03.11"}

	n := 0
	for day, date := range dates {
		for page := 1; page <= 2; page++ {
			var b strings.Builder
			fmt.Fprintf(&b, `<html><body><div class="datepicker-label"><span class="date">%s</span></div>`, date)
			b.WriteString(`<div class="box-contents has-wrap">`)
			for i := 0; i < 2; i++ {
				n++
				path := fmt.Sprintf("/news/view.do?ncd=%d", n)
				fmt.Fprintf(&b, `<a class="box-content" href="%s"><p class="title">국제 뉴스 %d</p>`+
					`<div class="field-writer"><span class="date">%s</span></div></a>`, path, n, date)
				site.articles[path] = fmt.Sprintf(`<html><body><div id="cont_newstext">
					기사 %d 본문
					외교 협상 진행
				</div></body></html>`, n)
			}
			// a decoration block without a link
			b.WriteString(`<div class="box-content"><p class="title">광고</p></div>`)
			b.WriteString(`</div></body></html>`)
			site.listings[fmt.Sprintf("%d-%d", day, page)] = b.String()
		}
	}
	// one article page lost its body container
	site.articles["/news/view.do?ncd=3"] = `<html><body><div class="error">삭제된 기사</div></body></html>`
	return site
}

func (s *testSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/list" {
		key := r.URL.Query().Get("day") + "-" + r.URL.Query().Get("page")
		if html, ok := s.listings[key]; ok {
			io.WriteString(w, html)
			return
		}
		http.NotFound(w, r)
		return
	}
	if html, ok := s.articles[r.URL.RequestURI()]; ok {
		io.WriteString(w, html)
		return
	}
	http.NotFound(w, r)
}

// httpSession drives the test site over plain HTTP in place of a browser
type httpSession struct {
	base   string
	client *http.Client
	site   *testSite

	day, page int
	detail    string
	closed    bool
}

func (h *httpSession) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	return string(body), err
}

func (h *httpSession) Navigate(ctx context.Context, _ string) error {
	h.day, h.page = 0, 1
	_, err := h.ListPageHTML(ctx)
	return err
}

func (h *httpSession) WaitForList(_ context.Context) error { return nil }

func (h *httpSession) ListPageHTML(ctx context.Context) (string, error) {
	return h.get(ctx, fmt.Sprintf("%s/list?day=%d&page=%d", h.base, h.day, h.page))
}

func (h *httpSession) OpenDetail(ctx context.Context, url string) error {
	html, err := h.get(ctx, url)
	if err != nil {
		return err
	}
	h.detail = html
	return nil
}

func (h *httpSession) DetailHTML(_ context.Context) (string, error) { return h.detail, nil }

func (h *httpSession) CloseDetail(_ context.Context) error {
	h.detail = ""
	return nil
}

func (h *httpSession) RestorePrimary(ctx context.Context) error { return h.CloseDetail(ctx) }

func (h *httpSession) AdvancePage(_ context.Context, pageIndex int) (bool, error) {
	if _, ok := h.site.listings[fmt.Sprintf("%d-%d", h.day, pageIndex)]; !ok {
		return false, nil
	}
	h.page = pageIndex
	return true, nil
}

func (h *httpSession) AdvanceDay(_ context.Context) (bool, error) {
	if _, ok := h.site.listings[fmt.Sprintf("%d-1", h.day+1)]; !ok {
		return false, nil
	}
	h.day++
	h.page = 1
	return true, nil
}

func (h *httpSession) Close() error {
	h.closed = true
	return nil
}

// MockCacheService is a simple in-memory cache for testing
type MockCacheService struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *MockCacheService) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, cache.ErrMiss
}

func (m *MockCacheService) Set(key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// completionAPI answers chat completions, failing for the article that mentions "기사 4"
func completionAPI(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			MaxTokens int `json:"max_tokens"`
			Messages  []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		prompt := req.Messages[len(req.Messages)-1].Content

		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(prompt, "기사 4 본문") {
			w.WriteHeader(http.StatusServiceUnavailable)
			io.WriteString(w, `{"error":{"message":"overloaded"}}`)
			return
		}

		content := "요약된 내용"
		if req.MaxTokens == 500 {
			content = "1. 외교 협상이 주요 이슈"
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestIntegration(t *testing.T) {
	ctx := context.Background()

	site := newTestSite()
	siteServer := httptest.NewServer(site)
	defer siteServer.Close()

	sess := &httpSession{base: siteServer.URL, client: siteServer.Client(), site: site}
	open := func(context.Context) (crawler.Session, error) { return sess, nil }

	api := completionAPI(t)
	client := summarizer.New(summarizer.Options{APIKey: "sk-test", BaseURL: api.URL, Timeout: 5 * time.Second})
	cacheSvc := &MockCacheService{data: map[string][]byte{}}

	orch := crawler.New(crawler.Options{
		SiteName:        "test",
		StartURL:        siteServer.URL + "/list",
		NumDays:         2,
		PagesPerDay:     3,
		TopKeywords:     5,
		SummaryInterval: time.Millisecond,
	}, open, extractor.New(extractor.DefaultSelectors(), siteServer.URL), summarizer.NewCached(client, cacheSvc, time.Hour))

	mr := miniredis.RunT(t)
	pub := publisher.NewRedisPublisher(ctx, mr.Addr(), 0, "news:records", 100)
	defer pub.Close()

	exportDir := t.TempDir()
	w := worker.NewWorker(ctx, orch, pub, exporter.New(exportDir), client)

	report, err := w.Run()
	require.NoError(t, err)
	records := report.Result.Records

	// 2 days x 2 pages x 2 articles; decoration blocks are skipped
	require.Len(t, records, 8)
	assert.True(t, sess.closed)
	assert.Equal(t, "국제 뉴스 1", records[0].Title)
	assert.Equal(t, "2025.03.12", records[0].Date)
	assert.Equal(t, "기사 1 본문\n외교 협상 진행", records[0].Body)
	assert.Equal(t, "요약된 내용", records[0].Summary)
	assert.Equal(t, "2025.03.11", records[7].Date)

	assert.Equal(t, news.NoContent, records[2].Body)
	assert.True(t, strings.HasPrefix(records[3].Summary, news.SummaryFailurePrefix))
	assert.Contains(t, records[3].Summary, "overloaded")
	assert.Equal(t, 1, report.Result.Stats.SummaryFailures)

	for i := 1; i < len(records); i++ {
		assert.False(t, records[i].Cursor.Less(records[i-1].Cursor))
	}

	// seven distinct bodies summarized; the failed one is not cached
	assert.Len(t, cacheSvc.data, 7)

	require.NotEmpty(t, report.Result.Keywords)
	assert.Equal(t, "국제", report.Result.Keywords[0].Token)
	assert.Equal(t, 8, report.Result.Keywords[0].Count)

	assert.Equal(t, 8, report.Published)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	length, err := rdb.XLen(ctx, "news:records").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(8), length)

	require.NotEmpty(t, report.ExportPath)
	_, err = os.Stat(report.ExportPath)
	assert.NoError(t, err)

	assert.Equal(t, "1. 외교 협상이 주요 이슈", report.Insights)

	var out bytes.Buffer
	printReport(&out, report, "뉴스 5")
	assert.Contains(t, out.String(), "수집 기사: 8건")
	assert.Contains(t, out.String(), "키워드 순위")
	assert.Contains(t, out.String(), "'뉴스 5' 검색 결과: 1건")
	assert.Contains(t, out.String(), "AI 인사이트")
}

func TestInitializeServices_UnreachableRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := &config.Config{
		PublishEnabled:       true,
		RedisAddr:            addr,
		RedisStream:          "news:records",
		RedisStreamMaxLength: 100,
	}
	services, err := initializeServices(context.Background(), cfg)
	assert.Nil(t, services)

	var ce *apperrors.CrawlerError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, apperrors.ErrorTypeConfiguration, ce.Type)
	assert.Contains(t, ce.Message, addr)
	assert.Contains(t, err.Error(), "[publisher] redis: ping failed")
}

func TestInitializeServices_PublishDisabled(t *testing.T) {
	services, err := initializeServices(context.Background(), &config.Config{})
	require.NoError(t, err)
	assert.Nil(t, services.Cache)
	assert.Nil(t, services.Publisher)
	services.Cleanup()
}
