package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/halvorsen/skald/internal/apperr"
	"github.com/halvorsen/skald/internal/importer"
)

func TestInsertFormatWrapsSelection(t *testing.T) {
	ctx := context.Background()
	s := testSession(t)
	s.NewDocument(ctx, "a.md", "make this bold now")

	// Selection covers "this bold" (5..14).
	st, err := s.InsertFormat(ctx, FormatBold, 5, 14)
	if err != nil {
		t.Fatalf("InsertFormat: %v", err)
	}
	if st.Content != "make **this bold** now" {
		t.Errorf("content = %q", st.Content)
	}
	if st.Cursor != 5+len("**this bold**") {
		t.Errorf("cursor = %d", st.Cursor)
	}
}

func TestInsertFormatEmptySelection(t *testing.T) {
	ctx := context.Background()
	s := testSession(t)
	s.NewDocument(ctx, "a.md", "ab")

	st, err := s.InsertFormat(ctx, FormatItalic, 1, 1)
	if err != nil {
		t.Fatalf("InsertFormat: %v", err)
	}
	if st.Content != "a**b" {
		t.Errorf("content = %q", st.Content)
	}
}

func TestInsertFormatTable(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		kind FormatKind
		want string
	}{
		{FormatStrike, "~~sel~~"},
		{FormatHeading, "## sel"},
		{FormatList, "- sel"},
		{FormatLink, "[sel](url)"},
		{FormatCode, "`sel`"},
	}
	for _, tc := range cases {
		s := testSession(t)
		s.NewDocument(ctx, "a.md", "sel")
		st, err := s.InsertFormat(ctx, tc.kind, 0, 3)
		if err != nil {
			t.Fatalf("%s: %v", tc.kind, err)
		}
		if st.Content != tc.want {
			t.Errorf("%s: content = %q, want %q", tc.kind, st.Content, tc.want)
		}
	}
}

func TestSeparatorReplacesSelection(t *testing.T) {
	ctx := context.Background()
	s := testSession(t)
	s.NewDocument(ctx, "a.md", "above SELECTED below")

	st, err := s.InsertFormat(ctx, FormatSeparator, 6, 14)
	if err != nil {
		t.Fatalf("InsertFormat: %v", err)
	}
	if st.Content != "above <!-- more --> below" {
		t.Errorf("content = %q", st.Content)
	}
}

func TestInsertFormatUnknownKind(t *testing.T) {
	ctx := context.Background()
	s := testSession(t)
	s.NewDocument(ctx, "a.md", "x")
	if _, err := s.InsertFormat(ctx, FormatKind("blink"), 0, 1); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestFormatIsUndoable(t *testing.T) {
	ctx := context.Background()
	s := testSession(t)
	s.NewDocument(ctx, "a.md", "word")
	s.InsertFormat(ctx, FormatBold, 0, 4)

	st, err := s.Undo(ctx)
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if st.Content != "word" {
		t.Errorf("undo = %q", st.Content)
	}
}

func TestInsertFormatClampsSelection(t *testing.T) {
	ctx := context.Background()
	s := testSession(t)
	s.NewDocument(ctx, "a.md", "abc")

	// Reversed and out-of-range bounds get normalized instead of panicking.
	st, err := s.InsertFormat(ctx, FormatCode, 99, -5)
	if err != nil {
		t.Fatalf("InsertFormat: %v", err)
	}
	if st.Content != "`abc`" {
		t.Errorf("content = %q", st.Content)
	}
}

func TestSynthesizeLink(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{
			name: "bare url",
			in:   "https://example.com/share/abc",
			want: "[link](https://example.com/share/abc)",
			ok:   true,
		},
		{
			name: "url with quoted title",
			in:   `check "My Album" at https://example.com/a`,
			want: "[My Album](https://example.com/a)",
			ok:   true,
		},
		{
			name: "url with extraction code",
			in:   "https://pan.example.com/s/xyz extraction code: ab12",
			want: "[code ab12](https://pan.example.com/s/xyz)",
			ok:   true,
		},
		{
			name: "title and code combined",
			in:   `"Trip Photos" https://pan.example.com/s/q code: 9f3k`,
			want: "[Trip Photos (code 9f3k)](https://pan.example.com/s/q)",
			ok:   true,
		},
		{
			name: "bracketed title",
			in:   "[Weekly Notes] http://notes.example.org/w12",
			want: "[Weekly Notes](http://notes.example.org/w12)",
			ok:   true,
		},
		{
			name: "no url",
			in:   "just some plain text",
			ok:   false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := SynthesizeLink(tc.in)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestPasteConfirmedSynthesizesLink(t *testing.T) {
	ctx := context.Background()
	s := testSession(t)
	s.NewDocument(ctx, "a.md", "start  end")

	st, err := s.PasteText(ctx, `"Docs" https://example.com/d`, 6, 6, true)
	if err != nil {
		t.Fatalf("PasteText: %v", err)
	}
	if !strings.Contains(st.Content, "[Docs](https://example.com/d)") {
		t.Errorf("content = %q", st.Content)
	}
}

func TestPasteDeclinedInsertsVerbatim(t *testing.T) {
	ctx := context.Background()
	s := testSession(t)
	s.NewDocument(ctx, "a.md", "")

	raw := `"Docs" https://example.com/d`
	st, err := s.PasteText(ctx, raw, 0, 0, false)
	if err != nil {
		t.Fatalf("PasteText: %v", err)
	}
	if st.Content != raw {
		t.Errorf("content = %q, want verbatim paste", st.Content)
	}
}

func TestPastePlainTextIgnoresConfirm(t *testing.T) {
	ctx := context.Background()
	s := testSession(t)
	s.NewDocument(ctx, "a.md", "")

	st, err := s.PasteText(ctx, "no links here", 0, 0, true)
	if err != nil {
		t.Fatalf("PasteText: %v", err)
	}
	if st.Content != "no links here" {
		t.Errorf("content = %q", st.Content)
	}
}

func TestPasteReplacesSelection(t *testing.T) {
	ctx := context.Background()
	s := testSession(t)
	s.NewDocument(ctx, "a.md", "keep REPLACE keep")

	st, err := s.PasteText(ctx, "X", 5, 12, false)
	if err != nil {
		t.Fatalf("PasteText: %v", err)
	}
	if st.Content != "keep X keep" {
		t.Errorf("content = %q", st.Content)
	}
}

func TestDropImageInsertsReference(t *testing.T) {
	ctx := context.Background()
	s := testSession(t)
	s.NewDocument(ctx, "a.md", "before after")
	s.ImportBatch(ctx, []importer.Incoming{{Name: "sunset.jpg", Data: []byte{1}}})

	st, err := s.DropImage(ctx, "sunset.jpg", 7)
	if err != nil {
		t.Fatalf("DropImage: %v", err)
	}
	if !strings.Contains(st.Content, "![sunset](sunset.jpg)") {
		t.Errorf("content = %q", st.Content)
	}
}

func TestDropImageUnknownName(t *testing.T) {
	ctx := context.Background()
	s := testSession(t)
	s.NewDocument(ctx, "a.md", "")

	_, err := s.DropImage(ctx, "nope.jpg", 0)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDropImageRejectsMarkdown(t *testing.T) {
	ctx := context.Background()
	s := testSession(t)
	s.NewDocument(ctx, "a.md", "")
	s.NewDocument(ctx, "b.md", "")

	if _, err := s.DropImage(ctx, "a.md", 0); err == nil {
		t.Fatal("expected error dropping a markdown file as image")
	}
}
