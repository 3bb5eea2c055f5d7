package exporter

import (
	"path/filepath"
	"testing"
	"time"

	"sjsage522/newsworker/internal/news"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func fixedExporter(dir string) *Exporter {
	e := New(dir)
	e.now = func() time.Time { return time.Date(2025, 3, 12, 14, 5, 9, 0, time.Local) }
	return e
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "국제뉴스_분석_20250312_140509.xlsx", fixedExporter("").FileName())
}

func TestExport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	records := []news.NewsRecord{
		{Date: "2025.03.12", Title: "국제 정세", Body: "본문 하나", Summary: "요약 하나"},
		{Date: "2025.03.11", Title: "국제 갈등", Body: "본문 둘", Summary: news.SummaryFailurePrefix + "timeout"},
		{Date: "2025.03.12", Title: "외교 협상", Body: "본문 셋", Summary: "요약 셋"},
	}
	ranking := []news.KeywordEntry{{Token: "국제", Count: 2}, {Token: "정세", Count: 1}}

	path, err := fixedExporter(dir).Export(records, ranking)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "국제뉴스_분석_20250312_140509.xlsx"), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{NewsSheet, KeywordSheet, DateSheet}, f.GetSheetList())

	rows, err := f.GetRows(NewsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, news.TableHeader, rows[0])
	assert.Equal(t, []string{"2025.03.11", "국제 갈등", "본문 둘", "요약 실패: timeout"}, rows[2])

	rows, err = f.GetRows(KeywordSheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"순위", "키워드", "빈도"},
		{"1", "국제", "2"},
		{"2", "정세", "1"},
	}, rows)

	rows, err = f.GetRows(DateSheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"날짜", "기사 수"},
		{"2025.03.11", "1"},
		{"2025.03.12", "2"},
	}, rows)
}

func TestExport_Empty(t *testing.T) {
	path, err := fixedExporter(t.TempDir()).Export(nil, nil)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(NewsSheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{news.TableHeader}, rows)
}
