package fund

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"unifiedprice/internal/provider"
)

// The history endpoint renders an HTML fragment rather than a documented API,
// so parsing tries the NAV table first and falls back to bare cell patterns.
var (
	tableRe     = regexp.MustCompile(`(?i)<table[^>]*class=['"]w782 comm lsjz['"][^>]*>([\s\S]*?)</table>`)
	rowRe       = regexp.MustCompile(`(?i)<tr>([\s\S]*?)</tr>`)
	cellRe      = regexp.MustCompile(`(?i)<td[^>]*>([\s\S]*?)</td>`)
	looseDateRe = regexp.MustCompile(`<td>(\d{4}-\d{2}-\d{2})</td>`)
	looseNAVRe  = regexp.MustCompile(`<td class=['"]tor bold['"]>([0-9.]+)</td>`)
)

func parseHistory(page string) (NAV, error) {
	nav, found, err := parseTable(page)
	if found {
		return nav, err
	}
	if nav, ok := parseLoose(page); ok {
		return nav, nil
	}
	return NAV{}, fmt.Errorf("%w: no fund data table found", provider.ErrMissingData)
}

// parseTable reads the first data row of the NAV table. found is false only
// when the table itself is absent.
func parseTable(page string) (nav NAV, found bool, err error) {
	table, ok := extractTable(page)
	if !ok {
		return NAV{}, false, nil
	}
	rows := extractRows(table)
	if len(rows) == 0 {
		return NAV{}, true, fmt.Errorf("%w: nav table has no rows", provider.ErrNoData)
	}
	cells := extractCells(rows[0])
	if len(cells) < 2 {
		return NAV{}, true, fmt.Errorf("%w: nav row has %d cells", provider.ErrParse, len(cells))
	}
	return NAV{Value: cells[1], Date: cells[0], Kind: Historical}, true, nil
}

// parseLoose pairs the first bare date cell with the first bold right-aligned
// number anywhere in the page.
func parseLoose(page string) (NAV, bool) {
	d := looseDateRe.FindStringSubmatch(page)
	v := looseNAVRe.FindStringSubmatch(page)
	if d == nil || v == nil {
		return NAV{}, false
	}
	return NAV{Value: v[1], Date: d[1], Kind: Historical}, true
}

// extractTable returns the inner markup of the NAV table.
func extractTable(page string) (string, bool) {
	m := tableRe.FindStringSubmatch(page)
	if m == nil || m[1] == "" {
		return "", false
	}
	return m[1], true
}

// extractRows returns the inner markup of each row after the header.
func extractRows(table string) []string {
	ms := rowRe.FindAllStringSubmatch(table, -1)
	if len(ms) <= 1 {
		return nil
	}
	rows := make([]string, 0, len(ms)-1)
	for _, m := range ms[1:] {
		rows = append(rows, m[1])
	}
	return rows
}

// extractCells returns the text of each cell in row, without nested markup.
func extractCells(row string) []string {
	ms := cellRe.FindAllStringSubmatch(row, -1)
	cells := make([]string, 0, len(ms))
	for _, m := range ms {
		cells = append(cells, cellText(m[1]))
	}
	return cells
}

// cellText drops tags and unescapes entities.
func cellText(fragment string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}
