package keywords

import (
	"testing"

	"sjsage522/newsworker/internal/news"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tokens := Tokenize("미국, 중국과 관세 협상 위해 회담… EU는 3일 발표 a 가")
	assert.Equal(t, []string{"미국", "중국과", "관세", "협상", "회담", "발표"}, tokens)
}

func TestTopN_StopwordsAndCounts(t *testing.T) {
	records := []news.NewsRecord{
		{Title: "국제 정세 분석", Body: "정상회담을 위해 만났다"},
		{Title: "국제 갈등", Body: "위해 노력"},
	}

	entries := TopN(records, 0)
	require.NotEmpty(t, entries)
	assert.Equal(t, news.KeywordEntry{Token: "국제", Count: 2}, entries[0])
	for _, e := range entries {
		assert.NotEqual(t, "위해", e.Token)
		assert.GreaterOrEqual(t, e.Count, 1)
	}
}

func TestCount_TiesKeepFirstOccurrence(t *testing.T) {
	entries := Count("사과 바나나 체리 바나나 사과 포도", 0)
	assert.Equal(t, []news.KeywordEntry{
		{Token: "사과", Count: 2},
		{Token: "바나나", Count: 2},
		{Token: "체리", Count: 1},
		{Token: "포도", Count: 1},
	}, entries)
}

func TestCount_Limit(t *testing.T) {
	entries := Count("하나둘 하나둘 셋넷 다섯", 2)
	assert.Len(t, entries, 2)
	assert.Equal(t, "하나둘", entries[0].Token)
	assert.Equal(t, "셋넷", entries[1].Token)

	assert.Empty(t, Count("", 10))
	assert.Empty(t, Count("english only text", 10))
}

func TestTopN_Idempotent(t *testing.T) {
	records := []news.NewsRecord{
		{Title: "무역 전쟁", Body: "관세 무역 협상 관세"},
		{Title: "외교 회담", Body: "외교 무역"},
	}

	first := TopN(records, 5)
	second := TopN(records, 5)
	assert.Equal(t, first, second)
}

func TestSearch(t *testing.T) {
	records := []news.NewsRecord{
		{Title: "Trump 관세", Body: "본문"},
		{Title: "외교", Body: "trump 발언"},
		{Title: "날씨", Body: "맑음"},
	}

	assert.Len(t, Search(records, "TRUMP"), 2)
	assert.Len(t, Search(records, "맑음"), 1)
	assert.Nil(t, Search(records, "  "))
}

func TestCountByDate(t *testing.T) {
	records := []news.NewsRecord{
		{Date: "2025.03.12"},
		{Date: "2025.03.11"},
		{Date: "2025.03.12"},
	}

	assert.Equal(t, []DateCount{
		{Date: "2025.03.11", Count: 1},
		{Date: "2025.03.12", Count: 2},
	}, CountByDate(records))
}
