package keywords

import (
	"regexp"
	"sort"
	"strings"

	"sjsage522/newsworker/internal/news"
)

// hangulWord matches runs of two or more Hangul syllables
var hangulWord = regexp.MustCompile(`[가-힣]{2,}`)

// Stopwords are frequent predicates and function words that carry no topic
var Stopwords = map[string]struct{}{
	"있다": {}, "하다": {}, "되다": {}, "이다": {}, "않다": {}, "없다": {}, "같다": {}, "많다": {},
	"크다": {}, "작다": {}, "높다": {}, "낮다": {}, "좋다": {}, "나쁘다": {}, "위해": {}, "통해": {},
	"대한": {}, "있는": {}, "하는": {}, "되는": {}, "이번": {}, "올해": {}, "지난": {}, "오늘": {},
}

// Tokenize returns the keyword tokens of text in order of appearance
func Tokenize(text string) []string {
	words := hangulWord.FindAllString(text, -1)
	tokens := words[:0]
	for _, w := range words {
		if _, stop := Stopwords[w]; stop {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

// Text returns the text of the records that keyword counting runs over
func Text(records []news.NewsRecord) string {
	parts := make([]string, 0, len(records))
	for _, r := range records {
		parts = append(parts, r.Title+" "+r.Body)
	}
	return strings.Join(parts, " ")
}

// Count ranks the tokens of text by count, descending, ties in order of first appearance.
// n <= 0 returns every token.
func Count(text string, n int) []news.KeywordEntry {
	counts := make(map[string]int)
	var order []string
	for _, token := range Tokenize(text) {
		if counts[token] == 0 {
			order = append(order, token)
		}
		counts[token]++
	}

	entries := make([]news.KeywordEntry, 0, len(order))
	for _, token := range order {
		entries = append(entries, news.KeywordEntry{Token: token, Count: counts[token]})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})

	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// TopN returns the n most frequent keywords over the titles and bodies of records
func TopN(records []news.NewsRecord, n int) []news.KeywordEntry {
	return Count(Text(records), n)
}

// Search returns the records whose title or body contains term, ignoring case
func Search(records []news.NewsRecord, term string) []news.NewsRecord {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}

	var matches []news.NewsRecord
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Title), term) || strings.Contains(strings.ToLower(r.Body), term) {
			matches = append(matches, r)
		}
	}
	return matches
}

// DateCount is the number of records published on a date
type DateCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// CountByDate counts records per date, sorted by date
func CountByDate(records []news.NewsRecord) []DateCount {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.Date]++
	}

	result := make([]DateCount, 0, len(counts))
	for date, count := range counts {
		result = append(result, DateCount{Date: date, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date < result[j].Date
	})
	return result
}
