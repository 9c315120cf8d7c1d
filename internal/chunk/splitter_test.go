package chunk

import (
	"strings"
	"testing"

	"github.com/kailas-cloud/docfeed/internal/domain"
)

func collect(rec domain.ContentRecord, p Profile) []domain.Chunk {
	var chunks []domain.Chunk
	for c := range Split(rec, p) {
		chunks = append(chunks, c)
	}
	return chunks
}

// reconstruct glues chunk texts back together, dropping the trailing overlap
// of every chunk except the last.
func reconstruct(chunks []domain.Chunk, overlap int) string {
	var b strings.Builder
	for i, c := range chunks {
		if i == len(chunks)-1 {
			b.WriteString(c.Text)
			break
		}
		runes := []rune(c.Text)
		b.WriteString(string(runes[:len(runes)-overlap]))
	}
	return b.String()
}

func TestSplit_Reconstruction(t *testing.T) {
	cases := []struct {
		name    string
		content string
		profile Profile
	}{
		{"shorter than size", strings.Repeat("a", 50), Profile{Size: 100, Overlap: 20}},
		{"exact size", strings.Repeat("b", 100), Profile{Size: 100, Overlap: 20}},
		{"no overlap", strings.Repeat("cd", 150), Profile{Size: 100, Overlap: 0}},
		{"with overlap", strings.Repeat("xyz", 200), Profile{Size: 100, Overlap: 30}},
		{"stride one", strings.Repeat("e", 12), Profile{Size: 5, Overlap: 4}},
		{"multibyte runes", strings.Repeat("яж", 300), Profile{Size: 100, Overlap: 25}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chunks := collect(domain.ContentRecord{Content: tc.content}, tc.profile)
			if len(chunks) == 0 {
				t.Fatal("expected at least one chunk")
			}
			if got := reconstruct(chunks, tc.profile.Overlap); got != tc.content {
				t.Errorf("reconstruction mismatch: got %d runes, want %d", len([]rune(got)), len([]rune(tc.content)))
			}
		})
	}
}

func TestSplit_IndexAndTotal(t *testing.T) {
	content := strings.Repeat("a", 250)
	chunks := collect(domain.ContentRecord{Content: content}, Profile{Size: 100, Overlap: 0})

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d: index=%d", i, c.Index)
		}
		if c.Total != 3 {
			t.Errorf("chunk %d: total=%d, want 3", i, c.Total)
		}
		if c.Index < 0 || c.Index >= c.Total {
			t.Errorf("chunk %d violates 0 <= index < total: %d/%d", i, c.Index, c.Total)
		}
	}
	if len(chunks[2].Text) != 50 {
		t.Errorf("final chunk should hold the 50-rune remainder, got %d", len(chunks[2].Text))
	}
}

func TestSplit_OverlapDuplicatesText(t *testing.T) {
	content := "0123456789"
	chunks := collect(domain.ContentRecord{Content: content}, Profile{Size: 5, Overlap: 2})

	// starts at 0, 3, 6: [01234] [34567] [6789]
	want := []string{"01234", "34567", "6789"}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(chunks))
	}
	for i, w := range want {
		if chunks[i].Text != w {
			t.Errorf("chunk %d: got %q, want %q", i, chunks[i].Text, w)
		}
	}
}

func TestSplit_EmptyAndWhitespace(t *testing.T) {
	for _, content := range []string{"", "   ", "\n\t\n"} {
		chunks := collect(domain.ContentRecord{Content: content}, Streaming)
		if len(chunks) != 0 {
			t.Errorf("content %q: expected no chunks, got %d", content, len(chunks))
		}
	}
}

func TestSplit_SingleChunkCarriesBackrefs(t *testing.T) {
	rec := domain.ContentRecord{Content: "hello world", DocumentID: "d1", Source: "queue"}
	chunks := collect(rec, Streaming)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk for short content, got %d", len(chunks))
	}
	c := chunks[0]
	if c.Text != "hello world" || c.Index != 0 || c.Total != 1 {
		t.Errorf("unexpected chunk: %+v", c)
	}
	if c.DocumentID != "d1" || c.Source != "queue" {
		t.Errorf("expected record backrefs on chunk, got %+v", c)
	}
}

func TestSplit_Restartable(t *testing.T) {
	rec := domain.ContentRecord{Content: strings.Repeat("r", 30)}
	seq := Split(rec, Profile{Size: 10, Overlap: 0})

	first := 0
	for range seq {
		first++
		if first == 2 {
			break // abandon mid-way
		}
	}

	second := 0
	for c := range seq {
		if c.Index != second {
			t.Errorf("second pass chunk %d has index %d", second, c.Index)
		}
		second++
	}
	if second != 3 {
		t.Errorf("expected full re-split on second pass, got %d chunks", second)
	}
}

func TestSplit_MultibyteBoundaries(t *testing.T) {
	content := strings.Repeat("日", 7)
	chunks := collect(domain.ContentRecord{Content: content}, Profile{Size: 3, Overlap: 1})

	for i, c := range chunks {
		for _, r := range c.Text {
			if r != '日' {
				t.Fatalf("chunk %d split inside a rune: %q", i, c.Text)
			}
		}
	}
}

func TestCount_MatchesSplit(t *testing.T) {
	cases := []struct {
		content string
		profile Profile
	}{
		{"", Streaming},
		{"short", Streaming},
		{strings.Repeat("a", 1000), Streaming},
		{strings.Repeat("a", 1001), Streaming},
		{strings.Repeat("a", 5000), Batch},
		{strings.Repeat("a", 5000), Streaming},
	}
	for _, tc := range cases {
		got := Count(tc.content, tc.profile)
		want := len(collect(domain.ContentRecord{Content: tc.content}, tc.profile))
		if got != want {
			t.Errorf("Count(%d runes, %+v) = %d, Split yields %d", len(tc.content), tc.profile, got, want)
		}
	}
}

func TestProfileValidate(t *testing.T) {
	cases := []struct {
		name    string
		profile Profile
		wantErr bool
	}{
		{"batch default", Batch, false},
		{"streaming default", Streaming, false},
		{"zero size", Profile{Size: 0, Overlap: 0}, true},
		{"negative size", Profile{Size: -1, Overlap: 0}, true},
		{"negative overlap", Profile{Size: 100, Overlap: -1}, true},
		{"overlap equals size", Profile{Size: 100, Overlap: 100}, true},
		{"overlap exceeds size", Profile{Size: 100, Overlap: 150}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.profile.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
