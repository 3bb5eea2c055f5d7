package news

import "fmt"

// Sentinel placeholders substituted when the page structure lacks an element
const (
	NoTitle   = "제목 없음"
	NoContent = "내용 없음"

	// SummaryFailurePrefix starts every summary produced by a failed summarization call
	SummaryFailurePrefix = "요약 실패: "
	// InsightFailurePrefix starts every insight text produced by a failed call
	InsightFailurePrefix = "인사이트 생성 실패: "
)

// DateLayout is the date format used by the listing pages and the clock fallback
const DateLayout = "2006.01.02"

// NewsRecord is one collected article.
// Date, Title, Body and Summary are never empty.
type NewsRecord struct {
	Date    string `json:"date"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	Summary string `json:"summary"`

	// Cursor is where the article was listed. It is not part of the output table.
	Cursor PaginationCursor `json:"-"`
}

// Columns returns the record in output table order
func (r NewsRecord) Columns() []string {
	return []string{r.Date, r.Title, r.Body, r.Summary}
}

// TableHeader is the header of the output table
var TableHeader = []string{"기고 날짜", "뉴스 제목", "뉴스 내용", "3줄 요약"}

// ListItem is an article preview found on a listing page
type ListItem struct {
	Href  string
	Title string
	Date  string
}

// KeywordEntry is a token and the number of times it occurs in a record set
type KeywordEntry struct {
	Token string `json:"token"`
	Count int    `json:"count"`
}

// PaginationCursor is a position in the day x page traversal.
// DayIndex starts at 0 and PageIndex at 1.
type PaginationCursor struct {
	DayIndex  int `json:"day_index"`
	PageIndex int `json:"page_index"`
}

// Less orders cursors by day, then page
func (c PaginationCursor) Less(other PaginationCursor) bool {
	if c.DayIndex != other.DayIndex {
		return c.DayIndex < other.DayIndex
	}
	return c.PageIndex < other.PageIndex
}

func (c PaginationCursor) String() string {
	return fmt.Sprintf("day %d page %d", c.DayIndex, c.PageIndex)
}
