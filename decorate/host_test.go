package decorate

import (
	"context"
	"sync"

	"github.com/akiyosi/gonvim-hover/markup"
)

type addedHighlights struct {
	buf     int
	channel string
	ranges  []markup.Range
}

type addedTexts struct {
	buf     int
	channel string
	texts   []VirtualText
}

type fakeBatch struct {
	host *fakeHost

	highlights []HighlightParam
	propTypes  []PropType
	cleared    []PropType
	adds       []addedHighlights
	texts      []addedTexts
	resets     []string
	regions    []SyntaxRegion
}

func (b *fakeBatch) DefineHighlight(p HighlightParam) { b.highlights = append(b.highlights, p) }
func (b *fakeBatch) AddPropTypes(types []PropType)    { b.propTypes = append(b.propTypes, types...) }
func (b *fakeBatch) ClearProps(buf int, types []PropType) {
	b.cleared = append(b.cleared, types...)
}
func (b *fakeBatch) AddHighlights(buf int, propType string, ranges []markup.Range) {
	b.adds = append(b.adds, addedHighlights{buf: buf, channel: propType, ranges: ranges})
}
func (b *fakeBatch) AddVirtualTexts(buf int, propType string, texts []VirtualText) {
	b.texts = append(b.texts, addedTexts{buf: buf, channel: propType, texts: texts})
}
func (b *fakeBatch) ResetSyntax(win int, group string) { b.resets = append(b.resets, group) }
func (b *fakeBatch) DefineRegion(win int, region SyntaxRegion) {
	b.regions = append(b.regions, region)
}
func (b *fakeBatch) Execute(ctx context.Context) error {
	b.host.mu.Lock()
	defer b.host.mu.Unlock()
	if b.host.execErr != nil {
		return b.host.execErr
	}
	b.host.executed = append(b.host.executed, b)
	return nil
}

type fakeHost struct {
	mu sync.Mutex

	filetypes []string
	ftErr     error
	layout    Layout
	layoutErr error
	loadErr   map[string]error
	execErr   error

	executed []*fakeBatch
	loads    []string
	redraws  int
}

func (h *fakeHost) Filetypes(ctx context.Context) ([]string, error) {
	return h.filetypes, h.ftErr
}

func (h *fakeHost) WindowLayout(ctx context.Context, win int) (Layout, error) {
	return h.layout, h.layoutErr
}

func (h *fakeHost) LoadSyntax(ctx context.Context, win int, group, filetype string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loads = append(h.loads, filetype)
	return h.loadErr[filetype]
}

func (h *fakeHost) Redraw(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.redraws++
	return nil
}

func (h *fakeHost) NewBatch() Batch {
	return &fakeBatch{host: h}
}

func (h *fakeHost) adds() []addedHighlights {
	var all []addedHighlights
	for _, b := range h.executed {
		all = append(all, b.adds...)
	}
	return all
}

func (h *fakeHost) texts() []addedTexts {
	var all []addedTexts
	for _, b := range h.executed {
		all = append(all, b.texts...)
	}
	return all
}

func (h *fakeHost) regions() []SyntaxRegion {
	var all []SyntaxRegion
	for _, b := range h.executed {
		all = append(all, b.regions...)
	}
	return all
}

func (h *fakeHost) propTypes() []PropType {
	var all []PropType
	for _, b := range h.executed {
		all = append(all, b.propTypes...)
	}
	return all
}
