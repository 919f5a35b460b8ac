package annotations

import (
	"fmt"
	"io"

	"github.com/inlaymedia/inlay/internal/document"
)

// TextSurface is a host-neutral reference surface that records created spans
// and optionally writes one line per lifecycle event to an output stream. It
// backs the CLI's display command and serves as the canonical implementation
// of the Surface capability for hosts to model theirs on.
type TextSurface struct {
	// Out receives one line per create/destroy when non-nil.
	Out io.Writer
	// Sized makes the surface report max-size support.
	Sized bool

	next  int
	spans map[int]document.Span
}

// NewTextSurface creates a text surface writing lifecycle events to out.
// A nil out records silently.
func NewTextSurface(out io.Writer) *TextSurface {
	return &TextSurface{Out: out, spans: make(map[int]document.Span)}
}

// Available always reports true; the text surface can always "render".
func (s *TextSurface) Available() bool {
	return true
}

// Create records the span and returns a numeric handle.
func (s *TextSurface) Create(span document.Span, payload Payload) (Handle, error) {
	if s.spans == nil {
		s.spans = make(map[int]document.Span)
	}
	s.next++
	id := s.next
	s.spans[id] = span
	if s.Out != nil {
		if payload.MaxWidth > 0 {
			fmt.Fprintf(s.Out, "annotate [%d,%d) %s (max %dx%d)\n",
				span.Start, span.End, payload.Path, payload.MaxWidth, payload.MaxHeight)
		} else {
			fmt.Fprintf(s.Out, "annotate [%d,%d) %s\n", span.Start, span.End, payload.Path)
		}
	}
	return id, nil
}

// Destroy forgets the handle.
func (s *TextSurface) Destroy(handle Handle) {
	id, ok := handle.(int)
	if !ok {
		return
	}
	if span, exists := s.spans[id]; exists {
		delete(s.spans, id)
		if s.Out != nil {
			fmt.Fprintf(s.Out, "remove [%d,%d)\n", span.Start, span.End)
		}
	}
}

// SupportsMaxSize implements the optional Sizer capability.
func (s *TextSurface) SupportsMaxSize() bool {
	return s.Sized
}

// Live returns the number of spans currently held by the surface.
func (s *TextSurface) Live() int {
	return len(s.spans)
}
