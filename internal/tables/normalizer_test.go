package tables

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/joseph-ayodele/legal-ocr/constants"
)

func TestNormalize_SixColumnsRenamedToSchema(t *testing.T) {
	fragment := `<html><body><table>
<thead><tr><td>No</td><td>Task</td><td>Start</td><td>Finish</td><td>Update</td><td>Delay</td></tr></thead>
<tbody>
<tr><td>1</td><td>Foundation</td><td>01.02.2020</td><td>01.05.2020</td><td>01.06.2020</td><td>31</td></tr>
<tr><td>2</td><td>Roofing</td><td>01.06.2020</td><td>01.08.2020</td><td></td><td>0</td></tr>
</tbody></table></body></html>`

	got, err := NewNormalizer(nil).Normalize(fragment)
	if err != nil {
		t.Fatalf("Normalize() failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("tables = %d, want 1", len(got))
	}
	tbl := got[0]
	if !reflect.DeepEqual(tbl.Columns, constants.ScheduleColumns) {
		t.Errorf("Columns = %v, want %v", tbl.Columns, constants.ScheduleColumns)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(tbl.Rows))
	}
	if v, _ := tbl.Rows[0].Get("Sr. No."); v != int64(1) {
		t.Errorf("Sr. No. = %#v, want int64(1)", v)
	}
	if v, _ := tbl.Rows[0].Get("Activity"); v != "Foundation" {
		t.Errorf("Activity = %#v, want Foundation", v)
	}
	if v, ok := tbl.Rows[1].Get("Delay w.r.t. Baseline & Update"); !ok || v != nil {
		t.Errorf("empty cell = %#v (present %v), want nil", v, ok)
	}
}

func TestNormalize_OtherWidthsKeepHeaders(t *testing.T) {
	tests := []struct {
		name   string
		header []string
	}{
		{"five columns", []string{"No", "Task", "Start", "Finish", "Delay"}},
		{"seven columns", []string{"No", "Task", "Start", "Finish", "Update", "Delay", "Note"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b strings.Builder
			b.WriteString("<table><tr>")
			for _, h := range tt.header {
				b.WriteString("<th>" + h + "</th>")
			}
			b.WriteString("</tr><tr>")
			for range tt.header {
				b.WriteString("<td>x</td>")
			}
			b.WriteString("</tr></table>")

			got, err := NewNormalizer(nil).Normalize(b.String())
			if err != nil {
				t.Fatalf("Normalize() failed: %v", err)
			}
			if len(got) != 1 {
				t.Fatalf("tables = %d, want 1", len(got))
			}
			if !reflect.DeepEqual(got[0].Columns, tt.header) {
				t.Errorf("Columns = %v, want %v", got[0].Columns, tt.header)
			}
		})
	}
}

func TestNormalize_NonFiniteCellsStayText(t *testing.T) {
	fragment := `<table><tr><th>a</th><th>b</th><th>c</th><th>d</th></tr>
<tr><td>NaN</td><td>Inf</td><td>infinity</td><td>1.5</td></tr>
<tr><td>2</td><td>-Inf</td><td>3</td><td>2</td></tr></table>`
	got, err := NewNormalizer(nil).Normalize(fragment)
	if err != nil {
		t.Fatalf("Normalize() failed: %v", err)
	}
	rows := got[0].Rows
	for _, tt := range []struct {
		row  int
		col  string
		want any
	}{
		{0, "a", "NaN"},
		{0, "b", "Inf"},
		{1, "b", "-Inf"},
		{0, "c", "infinity"},
		{1, "c", "3"},
		{0, "d", 1.5},
	} {
		if v, _ := rows[tt.row].Get(tt.col); v != tt.want {
			t.Errorf("row %d %s = %#v, want %#v", tt.row, tt.col, v, tt.want)
		}
	}
	if _, err := json.Marshal(got[0].Rows); err != nil {
		t.Errorf("marshal rows: %v", err)
	}
}

func TestNormalize_HeaderFlattening(t *testing.T) {
	tests := []struct {
		name     string
		fragment string
		want     []string
	}{
		{
			name:     "th header without thead",
			fragment: `<table><tr><th>Name</th><th></th></tr><tr><td>a</td><td>b</td></tr></table>`,
			want:     []string{"Name", "Unnamed: 1"},
		},
		{
			name:     "no header",
			fragment: `<table><tr><td>a</td><td>b</td><td>c</td></tr></table>`,
			want:     []string{"0", "1", "2"},
		},
		{
			name: "two level header",
			fragment: `<table><thead>
<tr><th colspan="2">Dates</th><th rowspan="2">Note</th></tr>
<tr><th>Start</th><th>End</th></tr>
</thead><tbody><tr><td>x</td><td>y</td><td>z</td></tr></tbody></table>`,
			want: []string{"Dates_Start", "Dates_End", "Note_Note"},
		},
		{
			name:     "duplicate names",
			fragment: `<table><tr><th>A</th><th>A</th><th>A</th></tr><tr><td>1</td><td>2</td><td>3</td></tr></table>`,
			want:     []string{"A", "A.1", "A.2"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewNormalizer(nil).Normalize(tt.fragment)
			if err != nil {
				t.Fatalf("Normalize() failed: %v", err)
			}
			if len(got) != 1 {
				t.Fatalf("tables = %d, want 1", len(got))
			}
			if !reflect.DeepEqual(got[0].Columns, tt.want) {
				t.Errorf("Columns = %v, want %v", got[0].Columns, tt.want)
			}
		})
	}
}

func TestNormalize_NoTable(t *testing.T) {
	_, err := NewNormalizer(nil).Normalize(`<div>broken <b>markup`)
	if !errors.Is(err, ErrNoTables) {
		t.Fatalf("err = %v, want ErrNoTables", err)
	}
}

func TestNormalize_DropsEmptyTables(t *testing.T) {
	fragment := `<table><thead><tr><th>Only</th></tr></thead></table>
<table><tr><th>K</th></tr><tr><td>v</td></tr></table>`
	got, err := NewNormalizer(nil).Normalize(fragment)
	if err != nil {
		t.Fatalf("Normalize() failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("tables = %d, want 1", len(got))
	}
	if v, _ := got[0].Rows[0].Get("K"); v != "v" {
		t.Errorf("K = %#v, want v", v)
	}
}

func TestNormalize_ColumnTyping(t *testing.T) {
	fragment := `<table><tr><th>int</th><th>num</th><th>mixed</th></tr>
<tr><td>1,200</td><td>2.5</td><td>7</td></tr>
<tr><td>3</td><td>4</td><td>n/a</td></tr></table>`
	got, err := NewNormalizer(nil).Normalize(fragment)
	if err != nil {
		t.Fatalf("Normalize() failed: %v", err)
	}
	rows := got[0].Rows
	if v, _ := rows[0].Get("int"); v != int64(1200) {
		t.Errorf("int = %#v, want int64(1200)", v)
	}
	if v, _ := rows[1].Get("num"); v != float64(4) {
		t.Errorf("num = %#v, want float64(4)", v)
	}
	if v, _ := rows[0].Get("mixed"); v != "7" {
		t.Errorf("mixed = %#v, want \"7\"", v)
	}
}

func TestExpandSpans(t *testing.T) {
	rows := []rawRow{
		{{text: "Wide", colSpan: 2, rowSpan: 1}},
		{{text: "Tall", colSpan: 1, rowSpan: 2}, {text: "A", colSpan: 1, rowSpan: 1}},
		{{text: "B", colSpan: 1, rowSpan: 1}},
	}
	got := expandSpans(rows)
	want := [][]string{{"Wide", "Wide"}, {"Tall", "A"}, {"Tall", "B"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expandSpans() = %v, want %v", got, want)
	}
}
