// Package annotations owns the set of live media annotations for one
// document session.
//
// The registry binds scanned media references to visual spans created through
// a host-provided Surface. It resolves attribute placeholders in locators,
// gates remote fetches behind the display policy (opt-in flag plus protocol
// allow-list), and exposes the display/toggle/remove lifecycle. A registry is
// scoped to a single document session and is confined to the host's
// processing thread; the remote asset cache it shares with other sessions
// carries its own locking.
package annotations

import (
	"context"
	"os"
	"strings"

	"github.com/inlaymedia/inlay/internal/assets"
	"github.com/inlaymedia/inlay/internal/attrs"
	"github.com/inlaymedia/inlay/internal/config"
	"github.com/inlaymedia/inlay/internal/document"
	inlayerrors "github.com/inlaymedia/inlay/internal/errors"
	"github.com/inlaymedia/inlay/internal/logging"
	"github.com/inlaymedia/inlay/internal/scanner"
)

// Handle is the opaque token a surface returns for a created span. The
// registry stores it for lookup only and never interprets it.
type Handle interface{}

// Payload carries everything a surface needs to render one annotation.
type Payload struct {
	// Path is the resolved local file backing the annotation.
	Path string
	// Attributes is the raw attribute-list text of the reference.
	Attributes string
	// MaxWidth and MaxHeight cap rendered dimensions. Zero means uncapped.
	// Only populated when the surface reports sizing support.
	MaxWidth  int
	MaxHeight int
}

// Surface is the host capability for creating and destroying visual spans.
// The engine never assumes a specific rendering backend.
type Surface interface {
	// Available reports whether the host can render annotations at all.
	Available() bool
	// Create materializes a visual span over the given range.
	Create(span document.Span, payload Payload) (Handle, error)
	// Destroy releases a previously created span.
	Destroy(handle Handle)
}

// Sizer is an optional surface capability: backends that can cap rendered
// dimensions implement it.
type Sizer interface {
	SupportsMaxSize() bool
}

// Flusher is an optional surface capability: backends that cache rendering
// resources per handle implement it so RemoveAt(flush) can evict them.
type Flusher interface {
	Flush(handle Handle)
}

// Hook is invoked with each newly created annotation, for host-specific
// decoration such as attaching a context menu.
type Hook func(*Annotation)

// Annotation is a live visual span bound to a text range.
type Annotation struct {
	// Span is the text range the annotation is bound to, covering the whole
	// reference markup.
	Span document.Span
	// Path is the resolved local resource backing the annotation.
	Path string
	// handle is a back-reference to the surface primitive, used only for
	// lookup and teardown, never ownership.
	handle Handle
}

// Registry owns the ordered set of live annotations for one document session.
type Registry struct {
	surface     Surface
	cache       *assets.Cache
	scanner     *scanner.Scanner
	display     config.DisplayConfig
	logger      logging.Logger
	hooks       []Hook
	annotations []*Annotation
}

// Options configures a registry.
type Options struct {
	Surface Surface
	Cache   *assets.Cache
	Scanner *scanner.Scanner
	Display config.DisplayConfig
	Logger  logging.Logger
}

// NewRegistry creates an empty registry for one document session.
func NewRegistry(opts Options) *Registry {
	if opts.Scanner == nil {
		opts.Scanner = scanner.New("")
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	return &Registry{
		surface: opts.Surface,
		cache:   opts.Cache,
		scanner: opts.Scanner,
		display: opts.Display,
		logger:  opts.Logger.WithComponent("annotations"),
	}
}

// AddHook registers a callback invoked with each newly created annotation.
func (r *Registry) AddHook(hook Hook) {
	r.hooks = append(r.hooks, hook)
}

// DisplayAll removes every existing annotation, rescans the document, and
// creates one annotation per resolvable reference in document order. It fails
// with a display-unsupported error before mutating anything when the surface
// cannot render.
func (r *Registry) DisplayAll(ctx context.Context, doc *document.Document) error {
	if r.surface == nil || !r.surface.Available() {
		return inlayerrors.NewDisplayUnsupported("annotation surface cannot render images")
	}

	r.RemoveAll()
	refs := r.scanner.Scan(doc)
	for _, ref := range refs {
		if _, err := r.CreateAt(ctx, ref, doc); err != nil {
			// Surface failures on one reference do not abort the rest.
			r.logger.Warn(ctx, err, "annotation creation failed",
				"locator", ref.Locator(doc))
		}
	}
	return nil
}

// CreateAt resolves one reference and, when it resolves to an existing local
// file, creates an annotation over its span. References that resolve to
// nothing displayable are skipped silently: a missing local path is not an
// error, and a failed remote fetch is logged but swallowed. Remote fetching
// happens only when the resolved locator does not exist locally, remote
// display is enabled, and the URL scheme is on the allow-list.
func (r *Registry) CreateAt(ctx context.Context, ref scanner.MediaReference, doc *document.Document) (*Annotation, error) {
	locator := ref.Locator(doc)
	resolved := locator
	if strings.ContainsRune(locator, '{') {
		resolved = attrs.Resolve(locator, attrs.Build(doc))
	}

	if !pathExists(resolved) {
		scheme := assets.SchemeOf(resolved)
		if !r.display.Remote || scheme == "" || !r.display.AllowsScheme(scheme) {
			return nil, nil
		}
		if r.cache == nil {
			return nil, nil
		}
		local, err := r.cache.Get(ctx, resolved)
		if err != nil {
			r.logger.Debug(ctx, "remote asset fetch failed, skipping annotation",
				"url", resolved, "error", err.Error())
			return nil, nil
		}
		resolved = local
	}
	if !pathExists(resolved) {
		return nil, nil
	}

	payload := Payload{
		Path:       resolved,
		Attributes: ref.Attributes(doc),
	}
	if sizer, ok := r.surface.(Sizer); ok && sizer.SupportsMaxSize() && r.display.MaxImageSize != "" {
		if w, h, err := config.ParseMaxSize(r.display.MaxImageSize); err == nil {
			payload.MaxWidth = w
			payload.MaxHeight = h
		}
	}

	handle, err := r.surface.Create(ref.Span, payload)
	if err != nil {
		return nil, err
	}

	ann := &Annotation{
		Span:   ref.Span,
		Path:   resolved,
		handle: handle,
	}
	r.annotations = append(r.annotations, ann)
	for _, hook := range r.hooks {
		hook(ann)
	}
	return ann, nil
}

// ListIn returns every annotation whose bound range intersects span. The
// query always covers the whole document; any narrowing restriction active on
// the document is ignored.
func (r *Registry) ListIn(span document.Span) []*Annotation {
	var result []*Annotation
	for _, ann := range r.annotations {
		if ann.Span.Intersects(span) {
			result = append(result, ann)
		}
	}
	return result
}

// RemoveAll destroys every annotation in the registry and reports whether any
// were removed.
func (r *Registry) RemoveAll() bool {
	removed := len(r.annotations) > 0
	for _, ann := range r.annotations {
		r.surface.Destroy(ann.handle)
	}
	r.annotations = nil
	return removed
}

// Toggle removes all annotations if any are displayed, otherwise displays
// them. Exactly one of the two happens per call.
func (r *Registry) Toggle(ctx context.Context, doc *document.Document) error {
	if r.RemoveAll() {
		return nil
	}
	return r.DisplayAll(ctx, doc)
}

// AnnotationAt returns the annotation whose bound range contains offset,
// probing a single-offset-wide window.
func (r *Registry) AnnotationAt(offset int) (*Annotation, bool) {
	probe := document.Span{Start: offset, End: offset + 1}
	for _, ann := range r.annotations {
		if ann.Span.Intersects(probe) {
			return ann, true
		}
	}
	return nil, false
}

// RemoveAt removes the annotation at offset if present and reports whether
// one was removed. With flush set, any cached rendering resource tied to the
// annotation is released before removal, forcing a re-render on next display.
func (r *Registry) RemoveAt(offset int, flush bool) bool {
	ann, ok := r.AnnotationAt(offset)
	if !ok {
		return false
	}
	if flush {
		if flusher, ok := r.surface.(Flusher); ok {
			flusher.Flush(ann.handle)
		}
	}
	r.surface.Destroy(ann.handle)
	for i, candidate := range r.annotations {
		if candidate == ann {
			r.annotations = append(r.annotations[:i], r.annotations[i+1:]...)
			break
		}
	}
	return true
}

// Count returns the number of live annotations.
func (r *Registry) Count() int {
	return len(r.annotations)
}

// Annotations returns a copy of the live annotation list in document order.
func (r *Registry) Annotations() []*Annotation {
	result := make([]*Annotation, len(r.annotations))
	copy(result, r.annotations)
	return result
}

// Close tears the session down, destroying any remaining annotations.
func (r *Registry) Close() {
	r.RemoveAll()
}

func pathExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
