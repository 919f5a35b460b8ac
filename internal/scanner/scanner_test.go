package scanner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inlaymedia/inlay/internal/document"
)

func TestScanSingleInlineReference(t *testing.T) {
	content := "foo image:./a.png[alt=x]bar"
	doc := document.New(content)

	refs := New("").Scan(doc)

	require.Len(t, refs, 1)
	ref := refs[0]
	assert.Equal(t, "./a.png", ref.Locator(doc))
	assert.Equal(t, "alt=x", ref.Attributes(doc))
	assert.False(t, ref.Block)

	// The span covers exactly "image:./a.png[alt=x]".
	assert.Equal(t, strings.Index(content, "image:"), ref.Span.Start)
	assert.Equal(t, "image:./a.png[alt=x]", doc.Slice(ref.Span))
}

func TestScanBlockForm(t *testing.T) {
	doc := document.New("image::diagram.svg[width=400]\n")

	refs := New("").Scan(doc)

	require.Len(t, refs, 1)
	assert.True(t, refs[0].Block)
	assert.Equal(t, "diagram.svg", refs[0].Locator(doc))
	assert.Equal(t, "width=400", refs[0].Attributes(doc))
}

func TestScanMultipleReferencesInOrder(t *testing.T) {
	doc := document.New("image:a.png[] text image::b.png[b]\nimage:c.png[c]\n")

	refs := New("").Scan(doc)

	require.Len(t, refs, 3)
	assert.Equal(t, "a.png", refs[0].Locator(doc))
	assert.Equal(t, "b.png", refs[1].Locator(doc))
	assert.Equal(t, "c.png", refs[2].Locator(doc))
	for i := 1; i < len(refs); i++ {
		assert.Greater(t, refs[i].Span.Start, refs[i-1].Span.End-1)
	}
}

func TestScanEmptyLocatorAndAttributes(t *testing.T) {
	doc := document.New("image::[]")

	refs := New("").Scan(doc)

	require.Len(t, refs, 1)
	assert.Equal(t, "", refs[0].Locator(doc))
	assert.Equal(t, "", refs[0].Attributes(doc))
}

func TestScanNonMatches(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no attribute list", "image:a.png and more"},
		{"unclosed attribute list", "image:a.png[alt=x"},
		{"newline inside locator", "image:a\n.png[x]"},
		{"newline inside attributes", "image:a.png[x\ny]"},
		{"bracket order reversed", "image:a]b[x"},
		{"marker without colon", "image a.png[x]"},
		{"plain prose", "no references here"},
	}

	s := New("")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, s.Scan(document.New(tt.content)))
		})
	}
}

func TestScanCustomMarker(t *testing.T) {
	doc := document.New("video:clip.mp4[loop] image:a.png[]")

	refs := New("video").Scan(doc)

	require.Len(t, refs, 1)
	assert.Equal(t, "clip.mp4", refs[0].Locator(doc))
}

func TestReferenceAtInsideMarker(t *testing.T) {
	content := "foo image:./a.png[alt=x]bar"
	doc := document.New(content)
	s := New("")

	// Query with the offset inside the marker word: the alphabetic run is
	// skipped backward to the marker start.
	offset := strings.Index(content, "image:") + 3
	ref, ok := s.ReferenceAt(doc, offset)

	require.True(t, ok)
	assert.Equal(t, "image:./a.png[alt=x]", doc.Slice(ref.Span))
	assert.Equal(t, "./a.png", ref.Locator(doc))
	assert.Equal(t, "alt=x", ref.Attributes(doc))
}

func TestReferenceAtInsideLocator(t *testing.T) {
	content := "foo image:./a.png[alt=x]bar"
	doc := document.New(content)
	s := New("")

	// Offset after "./": not alphabetic context, so the marker is searched
	// backward within the line.
	offset := strings.Index(content, "./a.png") + 1
	ref, ok := s.ReferenceAt(doc, offset)

	require.True(t, ok)
	assert.Equal(t, "./a.png", ref.Locator(doc))
}

func TestReferenceAtInsideAttributes(t *testing.T) {
	content := "image:pic.png[width=40]"
	doc := document.New(content)

	ref, ok := New("").ReferenceAt(doc, strings.Index(content, "=40"))

	require.True(t, ok)
	assert.Equal(t, "width=40", ref.Attributes(doc))
}

func TestReferenceAtMisses(t *testing.T) {
	content := "image:a.png[x]\nplain line\n"
	doc := document.New(content)
	s := New("")

	// A query on a different line must not find the previous line's
	// reference: the backward marker search is line-bounded.
	_, ok := s.ReferenceAt(doc, strings.Index(content, "plain"))
	assert.False(t, ok)

	_, ok = s.ReferenceAt(doc, -1)
	assert.False(t, ok)

	_, ok = s.ReferenceAt(doc, len(content)+10)
	assert.False(t, ok)
}

func TestReferenceAtSpansMatchScan(t *testing.T) {
	content := ":imagesdir: ./img\n\nimage:{imagesdir}/a.png[alt]\n"
	doc := document.New(content)
	s := New("")

	refs := s.Scan(doc)
	require.Len(t, refs, 1)

	ref, ok := s.ReferenceAt(doc, refs[0].Span.Start+1)
	require.True(t, ok)
	assert.Equal(t, refs[0], ref)
}
