package exporter

import (
	"os"
	"path/filepath"
	"time"

	"sjsage522/newsworker/internal/keywords"
	"sjsage522/newsworker/internal/news"
	"sjsage522/newsworker/logger"
	apperrors "sjsage522/newsworker/pkg/errors"

	"github.com/xuri/excelize/v2"
)

const (
	NewsSheet    = "국제뉴스"
	KeywordSheet = "키워드"
	DateSheet    = "날짜별"

	filePrefix = "국제뉴스_분석_"
	fileLayout = "20060102_150405"
)

var (
	keywordHeader = []string{"순위", "키워드", "빈도"}
	dateHeader    = []string{"날짜", "기사 수"}
)

// Exporter writes a crawl to an xlsx workbook
type Exporter struct {
	dir string
	now func() time.Time
	log *logger.Logger
}

// New creates an exporter writing into dir
func New(dir string) *Exporter {
	return &Exporter{
		dir: dir,
		now: time.Now,
		log: logger.ForExporter(),
	}
}

// FileName returns the timestamped workbook name for the current time
func (e *Exporter) FileName() string {
	return filePrefix + e.now().Format(fileLayout) + ".xlsx"
}

// Export writes records, keyword ranking and per-date counts to a new workbook
// and returns its path
func (e *Exporter) Export(records []news.NewsRecord, ranking []news.KeywordEntry) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", NewsSheet); err != nil {
		return "", apperrors.NewExport("xlsx", "failed to rename sheet", err)
	}

	rows := make([][]interface{}, 0, len(records))
	for _, r := range records {
		rows = append(rows, []interface{}{r.Date, r.Title, r.Body, r.Summary})
	}
	if err := writeSheet(f, NewsSheet, news.TableHeader, rows); err != nil {
		return "", err
	}
	f.SetColWidth(NewsSheet, "A", "A", 12)
	f.SetColWidth(NewsSheet, "B", "B", 50)
	f.SetColWidth(NewsSheet, "C", "D", 80)

	rows = rows[:0]
	for i, k := range ranking {
		rows = append(rows, []interface{}{i + 1, k.Token, k.Count})
	}
	if err := writeSheet(f, KeywordSheet, keywordHeader, rows); err != nil {
		return "", err
	}

	rows = rows[:0]
	for _, d := range keywords.CountByDate(records) {
		rows = append(rows, []interface{}{d.Date, d.Count})
	}
	if err := writeSheet(f, DateSheet, dateHeader, rows); err != nil {
		return "", err
	}

	if e.dir != "" {
		if err := os.MkdirAll(e.dir, 0755); err != nil {
			return "", apperrors.NewExport("xlsx", "failed to create export directory", err)
		}
	}

	path := filepath.Join(e.dir, e.FileName())
	if err := f.SaveAs(path); err != nil {
		return "", apperrors.NewExport("xlsx", "failed to save "+path, err)
	}

	e.log.Info().Str("path", path).Int("records", len(records)).Msg("Workbook exported")
	return path, nil
}

// writeSheet creates sheet if needed and writes header plus rows from A1
func writeSheet(f *excelize.File, sheet string, header []string, rows [][]interface{}) error {
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return apperrors.NewExport("xlsx", "failed to create sheet "+sheet, err)
		}
	}

	for i, h := range header {
		if err := setCell(f, sheet, i+1, 1, h); err != nil {
			return err
		}
	}
	for r, row := range rows {
		for c, v := range row {
			if err := setCell(f, sheet, c+1, r+2, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return apperrors.NewExport("xlsx", "invalid cell", err)
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return apperrors.NewExport("xlsx", "failed to write "+sheet+"!"+cell, err)
	}
	return nil
}
