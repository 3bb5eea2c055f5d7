package summarizer

import (
	"context"
	"fmt"
	"strings"

	"sjsage522/newsworker/internal/news"
)

// InsightInput is the digest of a crawl run handed to the model
type InsightInput struct {
	FirstDate string
	LastDate  string
	Total     int
	Titles    []string
	Keywords  []news.KeywordEntry
}

// NewInsightInput digests records and their keywords.
// Only the first ten titles and keywords are used.
func NewInsightInput(records []news.NewsRecord, keywords []news.KeywordEntry) InsightInput {
	input := InsightInput{Total: len(records)}
	for i, r := range records {
		if input.FirstDate == "" || r.Date < input.FirstDate {
			input.FirstDate = r.Date
		}
		if r.Date > input.LastDate {
			input.LastDate = r.Date
		}
		if i < 10 {
			input.Titles = append(input.Titles, r.Title)
		}
	}
	if len(keywords) > 10 {
		keywords = keywords[:10]
	}
	input.Keywords = keywords
	return input
}

func (in InsightInput) prompt() string {
	keywords := make([]string, 0, len(in.Keywords))
	for _, k := range in.Keywords {
		keywords = append(keywords, fmt.Sprintf("%s(%d건)", k.Token, k.Count))
	}

	var b strings.Builder
	b.WriteString("다음은 최근 국제 뉴스 데이터 분석 결과입니다:\n\n")
	fmt.Fprintf(&b, "**수집 기간**: %s ~ %s\n", in.FirstDate, in.LastDate)
	fmt.Fprintf(&b, "**총 뉴스 수**: %d개\n", in.Total)
	fmt.Fprintf(&b, "**주요 키워드**: %s\n\n", strings.Join(keywords, ", "))
	b.WriteString("**주요 뉴스 제목들**:\n")
	b.WriteString(strings.Join(in.Titles, "\n"))
	b.WriteString("\n\n위 데이터를 바탕으로 다음 관점에서 인사이트를 제공해주세요:\n\n")
	b.WriteString("1. 현재 가장 핫한 국제 이슈 (3개)\n")
	b.WriteString("2. 트렌드 분석 (어떤 주제가 부상하고 있는지)\n")
	b.WriteString("3. 주목할 만한 인사이트 (숨겨진 패턴이나 연관성)\n\n")
	b.WriteString("각 항목을 명확하게 구분하여 간결하게 작성해주세요.")
	return b.String()
}

// Insights asks the model for commentary over a whole run.
// Like Summarize it returns placeholder text instead of an error.
func (c *Client) Insights(ctx context.Context, input InsightInput) string {
	text, err := c.complete(ctx, []chatMessage{
		{Role: "system", Content: insightSystemPrompt},
		{Role: "user", Content: input.prompt()},
	}, insightMaxTokens, insightTemperature)
	if err != nil {
		c.log.Warn().Err(err).Msg("Insight generation failed")
		return news.InsightFailurePrefix + err.Error()
	}
	return text
}
