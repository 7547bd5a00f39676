package tables

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

type rawCell struct {
	text    string
	header  bool
	rowSpan int
	colSpan int
}

type rawRow []rawCell

func (r rawRow) allHeader() bool {
	if len(r) == 0 {
		return false
	}
	for _, c := range r {
		if !c.header {
			return false
		}
	}
	return true
}

// findTables returns every <table> element in document order.
func findTables(n *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "table" {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// collectRows splits a table's own rows into header and body rows. Rows of
// nested tables are not included. Without a <thead>, leading rows made only of
// <th> cells form the header.
func collectRows(table *html.Node) (header, body []rawRow) {
	var foot []rawRow
	for c := table.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "thead":
			header = append(header, sectionRows(c)...)
		case "tbody":
			body = append(body, sectionRows(c)...)
		case "tfoot":
			foot = append(foot, sectionRows(c)...)
		case "tr":
			if row := parseRow(c); len(row) > 0 {
				body = append(body, row)
			}
		}
	}
	body = append(body, foot...)

	if len(header) == 0 {
		for len(body) > 0 && body[0].allHeader() {
			header = append(header, body[0])
			body = body[1:]
		}
	}
	return header, body
}

func sectionRows(section *html.Node) []rawRow {
	var rows []rawRow
	for c := section.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "tr" {
			if row := parseRow(c); len(row) > 0 {
				rows = append(rows, row)
			}
		}
	}
	return rows
}

func parseRow(tr *html.Node) rawRow {
	var row rawRow
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || (c.Data != "td" && c.Data != "th") {
			continue
		}
		cell := rawCell{
			text:    collapseSpace(textContent(c)),
			header:  c.Data == "th",
			rowSpan: 1,
			colSpan: 1,
		}
		for _, attr := range c.Attr {
			switch attr.Key {
			case "rowspan":
				cell.rowSpan = spanValue(attr.Val)
			case "colspan":
				cell.colSpan = spanValue(attr.Val)
			}
		}
		row = append(row, cell)
	}
	return row
}

func spanValue(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			switch n.Data {
			case "script", "style":
				return
			case "br":
				b.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\u00a0'
	}), " ")
}

// expandSpans lays rows out on a grid, repeating spanned cell text into every
// slot the cell covers.
func expandSpans(rows []rawRow) [][]string {
	type carry struct {
		text string
		left int
	}
	var pending map[int]carry
	grid := make([][]string, 0, len(rows))
	for _, row := range rows {
		next := make(map[int]carry)
		var out []string
		col := 0
		fill := func() {
			for {
				p, ok := pending[col]
				if !ok {
					return
				}
				out = append(out, p.text)
				if p.left > 1 {
					next[col] = carry{text: p.text, left: p.left - 1}
				}
				col++
			}
		}
		for _, cell := range row {
			fill()
			for k := 0; k < cell.colSpan; k++ {
				out = append(out, cell.text)
				if cell.rowSpan > 1 {
					next[col] = carry{text: cell.text, left: cell.rowSpan - 1}
				}
				col++
			}
		}
		fill()
		// carried cells beyond the end of a short row
		for c, p := range pending {
			if c >= col {
				for len(out) < c {
					out = append(out, "")
				}
				if c == len(out) {
					out = append(out, p.text)
				} else {
					out[c] = p.text
				}
				if p.left > 1 {
					next[c] = carry{text: p.text, left: p.left - 1}
				}
			}
		}
		pending = next
		grid = append(grid, out)
	}
	return grid
}
