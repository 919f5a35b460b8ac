package annotations

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inlaymedia/inlay/internal/assets"
	"github.com/inlaymedia/inlay/internal/config"
	"github.com/inlaymedia/inlay/internal/document"
	inlayerrors "github.com/inlaymedia/inlay/internal/errors"
	"github.com/inlaymedia/inlay/internal/scanner"
)

// recordingSurface is a fully instrumented Surface double.
type recordingSurface struct {
	available bool
	sized     bool
	next      int
	live      map[int]document.Span
	created   []Payload
	flushed   []int
}

func newRecordingSurface() *recordingSurface {
	return &recordingSurface{available: true, live: make(map[int]document.Span)}
}

func (s *recordingSurface) Available() bool { return s.available }

func (s *recordingSurface) Create(span document.Span, payload Payload) (Handle, error) {
	s.next++
	s.live[s.next] = span
	s.created = append(s.created, payload)
	return s.next, nil
}

func (s *recordingSurface) Destroy(handle Handle) {
	delete(s.live, handle.(int))
}

func (s *recordingSurface) SupportsMaxSize() bool { return s.sized }

func (s *recordingSurface) Flush(handle Handle) {
	s.flushed = append(s.flushed, handle.(int))
}

// countingTransport counts invocations so tests can prove the absence of
// network access.
type countingTransport struct {
	calls int64
}

func (t *countingTransport) Fetch(ctx context.Context, rawURL string, dst io.Writer) error {
	atomic.AddInt64(&t.calls, 1)
	_, err := io.WriteString(dst, "pixels")
	return err
}

// writeAsset creates a real local file and returns its path.
func writeAsset(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o644))
	return path
}

type fixture struct {
	registry  *Registry
	surface   *recordingSurface
	transport *countingTransport
	display   config.DisplayConfig
}

func newFixture(t *testing.T, display config.DisplayConfig) *fixture {
	t.Helper()
	surface := newRecordingSurface()
	transport := &countingTransport{}
	registry := NewRegistry(Options{
		Surface: surface,
		Cache:   assets.NewCache(t.TempDir(), transport),
		Scanner: scanner.New(""),
		Display: display,
	})
	return &fixture{registry: registry, surface: surface, transport: transport, display: display}
}

func TestDisplayAllCreatesAnnotationsInOrder(t *testing.T) {
	dir := t.TempDir()
	a := writeAsset(t, dir, "a.png")
	b := writeAsset(t, dir, "b.png")
	doc := document.New(fmt.Sprintf("image:%s[first]\ntext\nimage::%s[second]\n", a, b))

	f := newFixture(t, config.DisplayConfig{})
	require.NoError(t, f.registry.DisplayAll(context.Background(), doc))

	anns := f.registry.Annotations()
	require.Len(t, anns, 2)
	assert.Equal(t, a, anns[0].Path)
	assert.Equal(t, b, anns[1].Path)
	assert.Less(t, anns[0].Span.Start, anns[1].Span.Start)
	assert.Equal(t, 2, f.surface.next)
}

func TestDisplayAllUnsupportedSurface(t *testing.T) {
	f := newFixture(t, config.DisplayConfig{})
	f.surface.available = false
	doc := document.New("image:a.png[]")

	err := f.registry.DisplayAll(context.Background(), doc)

	require.Error(t, err)
	assert.True(t, inlayerrors.IsDisplayUnsupported(err))
	assert.Equal(t, 0, f.registry.Count())
	assert.Empty(t, f.surface.created)
}

func TestDisplayAllSkipsMissingLocalPath(t *testing.T) {
	doc := document.New("image:/definitely/not/here.png[]")
	f := newFixture(t, config.DisplayConfig{})

	require.NoError(t, f.registry.DisplayAll(context.Background(), doc))

	assert.Equal(t, 0, f.registry.Count())
	assert.EqualValues(t, 0, f.transport.calls)
}

func TestDisplayAllResolvesAttributeReferences(t *testing.T) {
	dir := t.TempDir()
	writeAsset(t, dir, "logo.png")
	doc := document.New(fmt.Sprintf(":imagesdir: %s\n\nimage:{imagesdir}/logo.png[]\n", dir))

	f := newFixture(t, config.DisplayConfig{})
	require.NoError(t, f.registry.DisplayAll(context.Background(), doc))

	anns := f.registry.Annotations()
	require.Len(t, anns, 1)
	assert.Equal(t, filepath.Join(dir, "logo.png"), anns[0].Path)
}

func TestToggleIsInvolutionOverPresence(t *testing.T) {
	dir := t.TempDir()
	a := writeAsset(t, dir, "a.png")
	doc := document.New(fmt.Sprintf("image:%s[x] and image:%s[y]", a, a))

	f := newFixture(t, config.DisplayConfig{})
	require.NoError(t, f.registry.DisplayAll(context.Background(), doc))
	baseline := f.registry.Annotations()
	require.Len(t, baseline, 2)

	// First toggle removes everything.
	require.NoError(t, f.registry.Toggle(context.Background(), doc))
	assert.Equal(t, 0, f.registry.Count())
	assert.Equal(t, 0, len(f.surface.live))

	// Second toggle restores the same spans and paths.
	require.NoError(t, f.registry.Toggle(context.Background(), doc))
	restored := f.registry.Annotations()
	require.Len(t, restored, len(baseline))
	for i := range baseline {
		assert.Equal(t, baseline[i].Span, restored[i].Span)
		assert.Equal(t, baseline[i].Path, restored[i].Path)
	}
}

func TestToggleOnEmptyRegistryDisplays(t *testing.T) {
	dir := t.TempDir()
	a := writeAsset(t, dir, "a.png")
	doc := document.New("image:" + a + "[]")

	f := newFixture(t, config.DisplayConfig{})

	// RemoveAll on an empty registry removes nothing, so toggle displays.
	assert.False(t, f.registry.RemoveAll())
	require.NoError(t, f.registry.Toggle(context.Background(), doc))
	assert.Equal(t, 1, f.registry.Count())
}

func TestRemoteFetchPolicyGate(t *testing.T) {
	doc := document.New("image:https://example.com/pic.png[]")

	tests := []struct {
		name        string
		display     config.DisplayConfig
		wantFetches int64
		wantCount   int
	}{
		{
			name:        "remote disabled",
			display:     config.DisplayConfig{Remote: false, Protocols: []string{"https"}},
			wantFetches: 0,
			wantCount:   0,
		},
		{
			name:        "scheme not allow-listed",
			display:     config.DisplayConfig{Remote: true, Protocols: []string{"ftp"}},
			wantFetches: 0,
			wantCount:   0,
		},
		{
			name:        "enabled and allow-listed",
			display:     config.DisplayConfig{Remote: true, Protocols: []string{"https"}},
			wantFetches: 1,
			wantCount:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.display)
			require.NoError(t, f.registry.DisplayAll(context.Background(), doc))
			assert.EqualValues(t, tt.wantFetches, atomic.LoadInt64(&f.transport.calls))
			assert.Equal(t, tt.wantCount, f.registry.Count())
		})
	}
}

func TestRemoteFetchSkippedWhenLocalExists(t *testing.T) {
	// A locator that exists locally never triggers a fetch even with remote
	// display fully enabled.
	dir := t.TempDir()
	a := writeAsset(t, dir, "a.png")
	doc := document.New("image:" + a + "[]")

	f := newFixture(t, config.DisplayConfig{Remote: true, Protocols: []string{"https"}})
	require.NoError(t, f.registry.DisplayAll(context.Background(), doc))

	assert.EqualValues(t, 0, f.transport.calls)
	assert.Equal(t, 1, f.registry.Count())
}

func TestRemoteFetchFailureSkipsSilently(t *testing.T) {
	doc := document.New("image:https://example.com/pic.png[]")
	surface := newRecordingSurface()
	registry := NewRegistry(Options{
		Surface: surface,
		Cache:   assets.NewCache(t.TempDir(), failingTransport{}),
		Display: config.DisplayConfig{Remote: true, Protocols: []string{"https"}},
	})

	require.NoError(t, registry.DisplayAll(context.Background(), doc))
	assert.Equal(t, 0, registry.Count())
	assert.Empty(t, surface.created)
}

type failingTransport struct{}

func (failingTransport) Fetch(ctx context.Context, rawURL string, dst io.Writer) error {
	return fmt.Errorf("no route to host")
}

func TestListIn(t *testing.T) {
	dir := t.TempDir()
	a := writeAsset(t, dir, "a.png")
	doc := document.New(fmt.Sprintf("image:%s[x]\n\nimage:%s[y]\n", a, a))

	f := newFixture(t, config.DisplayConfig{})
	require.NoError(t, f.registry.DisplayAll(context.Background(), doc))
	anns := f.registry.Annotations()
	require.Len(t, anns, 2)

	assert.Len(t, f.registry.ListIn(document.Span{Start: 0, End: doc.Len()}), 2)
	assert.Len(t, f.registry.ListIn(anns[0].Span), 1)
	assert.Empty(t, f.registry.ListIn(document.Span{Start: doc.Len() + 5, End: doc.Len() + 6}))
}

func TestAnnotationAtAndRemoveAt(t *testing.T) {
	dir := t.TempDir()
	a := writeAsset(t, dir, "a.png")
	doc := document.New("image:" + a + "[]")

	f := newFixture(t, config.DisplayConfig{})
	require.NoError(t, f.registry.DisplayAll(context.Background(), doc))
	anns := f.registry.Annotations()
	require.Len(t, anns, 1)

	ann, ok := f.registry.AnnotationAt(anns[0].Span.Start)
	require.True(t, ok)
	assert.Equal(t, anns[0], ann)

	_, ok = f.registry.AnnotationAt(doc.Len() + 1)
	assert.False(t, ok)

	assert.False(t, f.registry.RemoveAt(doc.Len()+1, false))
	assert.True(t, f.registry.RemoveAt(anns[0].Span.Start+2, false))
	assert.Equal(t, 0, f.registry.Count())
	assert.Empty(t, f.surface.flushed)
	assert.Equal(t, 0, len(f.surface.live))
}

func TestRemoveAtWithFlush(t *testing.T) {
	dir := t.TempDir()
	a := writeAsset(t, dir, "a.png")
	doc := document.New("image:" + a + "[]")

	f := newFixture(t, config.DisplayConfig{})
	require.NoError(t, f.registry.DisplayAll(context.Background(), doc))

	assert.True(t, f.registry.RemoveAt(0, true))
	assert.Equal(t, []int{1}, f.surface.flushed)
	assert.Equal(t, 0, len(f.surface.live))
}

func TestHooksFireOncePerCreation(t *testing.T) {
	dir := t.TempDir()
	a := writeAsset(t, dir, "a.png")
	doc := document.New(fmt.Sprintf("image:%s[x] image:%s[y]", a, a))

	f := newFixture(t, config.DisplayConfig{})
	var hooked []*Annotation
	f.registry.AddHook(func(ann *Annotation) { hooked = append(hooked, ann) })

	require.NoError(t, f.registry.DisplayAll(context.Background(), doc))
	assert.Len(t, hooked, 2)
	assert.Equal(t, f.registry.Annotations(), hooked)
}

func TestMaxSizeHonoredOnlyWhenSupported(t *testing.T) {
	dir := t.TempDir()
	a := writeAsset(t, dir, "a.png")
	doc := document.New("image:" + a + "[]")
	display := config.DisplayConfig{MaxImageSize: "800x600"}

	f := newFixture(t, display)
	f.surface.sized = true
	require.NoError(t, f.registry.DisplayAll(context.Background(), doc))
	require.Len(t, f.surface.created, 1)
	assert.Equal(t, 800, f.surface.created[0].MaxWidth)
	assert.Equal(t, 600, f.surface.created[0].MaxHeight)

	// Same policy, but the surface lacks sizing support.
	g := newFixture(t, display)
	require.NoError(t, g.registry.DisplayAll(context.Background(), doc))
	require.Len(t, g.surface.created, 1)
	assert.Equal(t, 0, g.surface.created[0].MaxWidth)
}

func TestCloseDestroysEverything(t *testing.T) {
	dir := t.TempDir()
	a := writeAsset(t, dir, "a.png")
	doc := document.New("image:" + a + "[]")

	f := newFixture(t, config.DisplayConfig{})
	require.NoError(t, f.registry.DisplayAll(context.Background(), doc))
	require.Equal(t, 1, f.registry.Count())

	f.registry.Close()
	assert.Equal(t, 0, f.registry.Count())
	assert.Equal(t, 0, len(f.surface.live))
}

func TestCreateAtPayloadCarriesAttributes(t *testing.T) {
	dir := t.TempDir()
	a := writeAsset(t, dir, "a.png")
	doc := document.New("image:" + a + "[alt=logo,width=40]")

	f := newFixture(t, config.DisplayConfig{})
	refs := scanner.New("").Scan(doc)
	require.Len(t, refs, 1)

	ann, err := f.registry.CreateAt(context.Background(), refs[0], doc)
	require.NoError(t, err)
	require.NotNil(t, ann)
	require.Len(t, f.surface.created, 1)
	assert.Equal(t, "alt=logo,width=40", f.surface.created[0].Attributes)
}
