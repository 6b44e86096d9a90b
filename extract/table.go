package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/use-agent/prayertimes/models"
	"golang.org/x/net/html"
)

// DayRecord is one retained table row together with its day-number cell.
type DayRecord struct {
	Day    string
	Record *models.Record
}

// TableResult is the outcome of extracting the first matching table.
type TableResult struct {
	// Found is false when the page has no table; all other fields are then empty.
	Found bool

	Headers []string
	Days    []DayRecord

	// Malformed counts rows dropped for a cell count different from the
	// header count; MissingDay counts rows dropped for an absent or empty
	// day cell.
	Malformed  int
	MissingDay int

	// Cells holds every data row as extracted, retained or not.
	Cells [][]string

	// HTML is the table's outer markup.
	HTML string
}

// TableExtractor turns a rendered page into day records.
type TableExtractor struct {
	table     cascadia.Selector
	dayLabels []string
}

// NewTableExtractor compiles tableSelector. dayLabels are the accepted
// headers of the day-number column, tried in order.
func NewTableExtractor(tableSelector string, dayLabels []string) (*TableExtractor, error) {
	sel, err := CompileSelector(tableSelector)
	if err != nil {
		return nil, err
	}
	return &TableExtractor{table: sel, dayLabels: dayLabels}, nil
}

// Extract locates the first table in rawHTML and converts its rows.
//
// Header names come from every th cell of the table. Each tr after the
// first contributes its td cells; rows whose cell count differs from the
// header count, or whose day cell is absent or empty, are skipped.
func (e *TableExtractor) Extract(rawHTML string) (*TableResult, error) {
	doc, err := parseDocument(rawHTML)
	if err != nil {
		return nil, err
	}

	table := doc.FindMatcher(e.table).First()
	if table.Length() == 0 {
		return &TableResult{}, nil
	}

	result := &TableResult{
		Found:   true,
		Headers: cellTexts(table.Find("th")),
		HTML:    outerHTML(table),
	}

	// A table can be present before its rows are; Slice panics on fewer
	// than two rows.
	rows := table.Find("tr")
	if rows.Length() < 2 {
		return result, nil
	}
	rows.Slice(1, goquery.ToEnd).Each(func(_ int, row *goquery.Selection) {
		cells := cellTexts(row.Find("td"))
		result.Cells = append(result.Cells, cells)

		if len(cells) != len(result.Headers) {
			result.Malformed++
			return
		}
		rec := models.ZipRecord(result.Headers, cells)
		day := e.dayOf(rec)
		if day == "" {
			result.MissingDay++
			return
		}
		result.Days = append(result.Days, DayRecord{Day: day, Record: rec})
	})

	return result, nil
}

// dayOf returns the first non-empty cell stored under one of the day labels.
func (e *TableExtractor) dayOf(rec *models.Record) string {
	for _, label := range e.dayLabels {
		if v, ok := rec.Get(label); ok && v != "" {
			return v
		}
	}
	return ""
}

func cellTexts(s *goquery.Selection) []string {
	texts := make([]string, 0, s.Length())
	for _, n := range s.Nodes {
		texts = append(texts, strippedText(n))
	}
	return texts
}

// strippedText concatenates every text node under n, each trimmed, with no
// separator: "<td> 05:30 <b>h</b></td>" yields "05:30h".
func strippedText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(strings.TrimSpace(n.Data))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
