package pdftext

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/joseph-ayodele/legal-ocr/internal/common"
)

type stubRunner struct {
	out  string
	err  error
	args []string
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.args = append([]string{name}, args...)
	return []byte(s.out), []byte("stderr"), s.err
}

func TestSplitPages(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{in: "one\fzwei\f", want: []string{"one", "zwei"}},
		{in: "one\f\fthree\f", want: []string{"one", "", "three"}},
		{in: "no feed", want: []string{"no feed"}},
		{in: "", want: []string{""}},
	}
	for _, tt := range tests {
		if got := SplitPages(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitPages(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPoppler_Extract(t *testing.T) {
	runner := &stubRunner{out: "Letter dated 12.03.15\f\fAnnexure\f"}
	pages, err := NewPoppler("", runner, nil).Extract(context.Background(), "in.pdf")
	if err != nil {
		t.Fatalf("Extract() failed: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("pages = %d, want 3", len(pages))
	}
	for i, p := range pages {
		if p.Page != i+1 {
			t.Errorf("pages[%d].Page = %d, want %d", i, p.Page, i+1)
		}
	}
	if pages[1].Text != "" || pages[2].Text != "Annexure" {
		t.Errorf("pages = %+v", pages)
	}
	if runner.args[0] != "pdftotext" || runner.args[len(runner.args)-1] != "-" {
		t.Errorf("args = %v", runner.args)
	}
}

func TestPoppler_OpenFailureIsFatal(t *testing.T) {
	runner := &stubRunner{err: errors.New("exit status 1")}
	_, err := NewPoppler("", runner, nil).Extract(context.Background(), "missing.pdf")
	if !errors.Is(err, common.ErrOpenDocument) {
		t.Fatalf("err = %v, want ErrOpenDocument", err)
	}
}

func TestReader_OpenFailure(t *testing.T) {
	dir := t.TempDir()
	notPDF := filepath.Join(dir, "notes.pdf")
	if err := os.WriteFile(notPDF, []byte("plain text, not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, path := range []string{notPDF, filepath.Join(dir, "missing.pdf")} {
		_, err := NewReader(nil).Extract(context.Background(), path)
		if !errors.Is(err, common.ErrOpenDocument) {
			t.Errorf("Extract(%s) err = %v, want ErrOpenDocument", filepath.Base(path), err)
		}
	}
}
