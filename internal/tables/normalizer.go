// Package tables turns HTML table fragments returned by the layout engine into
// structured row records with a reconciled column schema.
package tables

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/joseph-ayodele/legal-ocr/constants"
	"github.com/joseph-ayodele/legal-ocr/internal/entity"
)

// ErrNoTables is returned when a fragment contains no <table> element.
var ErrNoTables = errors.New("no tables found")

// Normalizer parses HTML fragments into entity.Table values.
type Normalizer struct {
	schema []string
	logger *slog.Logger
}

func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{schema: constants.ScheduleColumns, logger: logger}
}

// Normalize parses every table in fragment. Tables without data rows are dropped.
// Tables whose flattened header has exactly len(schema) columns are renamed
// positionally to the canonical schema; header content is not inspected.
func (n *Normalizer) Normalize(fragment string) ([]entity.Table, error) {
	root, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	nodes := findTables(root)
	if len(nodes) == 0 {
		return nil, ErrNoTables
	}

	out := make([]entity.Table, 0, len(nodes))
	for i, tn := range nodes {
		header, body := collectRows(tn)
		t := n.build(header, body)
		if len(t.Rows) == 0 {
			n.logger.Debug("tables.empty_dropped", "index", i, "columns", len(t.Columns))
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (n *Normalizer) build(header, body []rawRow) entity.Table {
	grid := expandSpans(append(append([]rawRow{}, header...), body...))
	width := 0
	for _, r := range grid {
		if len(r) > width {
			width = len(r)
		}
	}
	for i := range grid {
		for len(grid[i]) < width {
			grid[i] = append(grid[i], "")
		}
	}
	headRows, bodyRows := grid[:len(header)], grid[len(header):]

	columns := columnNames(headRows, width)
	if len(columns) == len(n.schema) {
		columns = append([]string(nil), n.schema...)
	}

	values := inferColumns(bodyRows, width)
	rows := make([]entity.Row, 0, len(bodyRows))
	for r := range bodyRows {
		row := make(entity.Row, width)
		for c := 0; c < width; c++ {
			row[c] = entity.Cell{Column: columns[c], Value: values[c][r]}
		}
		rows = append(rows, row)
	}
	return entity.Table{Columns: columns, Rows: rows}
}

// columnNames flattens header rows: one level is used as-is, several levels are
// joined with "_" and trimmed. Without a header, columns are numbered.
func columnNames(headRows [][]string, width int) []string {
	names := make([]string, width)
	switch len(headRows) {
	case 0:
		for i := range names {
			names[i] = strconv.Itoa(i)
		}
	case 1:
		for i, v := range headRows[0] {
			if v == "" {
				v = fmt.Sprintf("Unnamed: %d", i)
			}
			names[i] = v
		}
	default:
		for i := 0; i < width; i++ {
			levels := make([]string, len(headRows))
			for l, hr := range headRows {
				v := hr[i]
				if v == "" {
					v = fmt.Sprintf("Unnamed: %d_level_%d", i, l)
				}
				levels[l] = v
			}
			names[i] = strings.TrimSpace(strings.Join(levels, "_"))
		}
	}
	return dedupeNames(names)
}

// dedupeNames suffixes repeated names with .1, .2, ...
func dedupeNames(names []string) []string {
	seen := make(map[string]int, len(names))
	taken := make(map[string]bool, len(names))
	for _, n := range names {
		taken[n] = true
	}
	out := make([]string, len(names))
	for i, n := range names {
		if k, dup := seen[n]; dup {
			cand := n
			for {
				k++
				cand = fmt.Sprintf("%s.%d", n, k)
				if !taken[cand] {
					break
				}
			}
			seen[n] = k
			taken[cand] = true
			out[i] = cand
			continue
		}
		seen[n] = 0
		out[i] = n
	}
	return out
}

var (
	reInt       = regexp.MustCompile(`^[-+]?\d+$`)
	reThousands = regexp.MustCompile(`^[-+]?\d{1,3}(,\d{3})+(\.\d+)?$`)
)

// inferColumns converts each column's cells: empty cells become nil, and a column
// whose non-empty cells all parse as integers (or finite numbers) becomes numeric.
func inferColumns(rows [][]string, width int) [][]any {
	cols := make([][]any, width)
	for c := 0; c < width; c++ {
		allInt, allNum := true, true
		for _, r := range rows {
			v := numericForm(r[c])
			if v == "" {
				continue
			}
			if !reInt.MatchString(v) {
				allInt = false
			}
			if _, ok := parseFinite(v); !ok {
				allNum = false
			}
		}
		col := make([]any, len(rows))
		for i, r := range rows {
			raw := r[c]
			if raw == "" {
				col[i] = nil
				continue
			}
			v := numericForm(raw)
			switch {
			case allInt:
				if n, err := strconv.ParseInt(v, 10, 64); err == nil {
					col[i] = n
					continue
				}
				col[i] = raw
			case allNum:
				f, _ := parseFinite(v)
				col[i] = f
			default:
				col[i] = raw
			}
		}
		cols[c] = col
	}
	return cols
}

// parseFinite rejects NaN and infinities, which JSON cannot carry.
func parseFinite(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func numericForm(s string) string {
	if reThousands.MatchString(s) {
		return strings.ReplaceAll(s, ",", "")
	}
	return s
}
