package editor

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/neovim/go-client/nvim"

	"github.com/akiyosi/gonvim-hover/decorate"
	"github.com/akiyosi/gonvim-hover/markup"
	"github.com/akiyosi/gonvim-hover/util"
)

// nvimHost implements decorate.Host on a Neovim connection. Decoration
// channels are extmark namespaces.
type nvimHost struct {
	nvim *nvim.Nvim

	mu         sync.Mutex
	namespaces map[string]int
	highlights map[string]string
}

func newNvimHost(v *nvim.Nvim) *nvimHost {
	return &nvimHost{
		nvim:       v,
		namespaces: map[string]int{},
		highlights: map[string]string{},
	}
}

func (h *nvimHost) Filetypes(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var fts []string
	if err := h.nvim.Call("getcompletion", &fts, "", "filetype"); err != nil {
		return nil, err
	}
	return fts, nil
}

func (h *nvimHost) WindowLayout(ctx context.Context, win int) (decorate.Layout, error) {
	if err := ctx.Err(); err != nil {
		return decorate.Layout{}, err
	}
	var info map[string]interface{}
	var ambiwidth string
	b := h.nvim.NewBatch()
	b.Eval(fmt.Sprintf("get(getwininfo(%d), 0, {})", win), &info)
	b.Eval("&ambiwidth", &ambiwidth)
	if err := b.Execute(); err != nil {
		return decorate.Layout{}, err
	}
	if len(info) == 0 {
		return decorate.Layout{}, fmt.Errorf("window %d not found", win)
	}

	return decorate.Layout{
		Width:      util.ReflectToInt(info["width"]),
		TextOffset: util.ReflectToInt(info["textoff"]),
		AmbiWide:   ambiwidth == "double",
	}, nil
}

func (h *nvimHost) LoadSyntax(ctx context.Context, win int, group, filetype string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var out string
	return h.nvim.Call("win_execute", &out, win, fmt.Sprintf("syntax include @%s syntax/%s.vim", group, filetype))
}

func (h *nvimHost) Redraw(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return h.nvim.Command("redraw")
}

func (h *nvimHost) NewBatch() decorate.Batch {
	return &nvimBatch{host: h, b: h.nvim.NewBatch()}
}

// namespace returns the extmark namespace of a decoration channel.
// nvim_create_namespace is idempotent per name, so ids are fetched once
// outside of any batch and cached.
func (h *nvimHost) namespace(name string) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ns, ok := h.namespaces[name]; ok {
		return ns, nil
	}
	ns, err := h.nvim.CreateNamespace(name)
	if err != nil {
		return 0, err
	}
	h.namespaces[name] = ns
	return ns, nil
}

func (h *nvimHost) setPropHighlight(name, hl string) {
	h.mu.Lock()
	h.highlights[name] = hl
	h.mu.Unlock()
}

func (h *nvimHost) propHighlight(name string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	hl, ok := h.highlights[name]
	return hl, ok
}

// nvimBatch queues calls into one nvim_call_atomic request. Errors found
// while queueing are reported by Execute before anything is sent.
type nvimBatch struct {
	host *nvimHost
	b    *nvim.Batch
	err  error
}

func (b *nvimBatch) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *nvimBatch) DefineHighlight(p decorate.HighlightParam) {
	b.b.Command(highlightCommand(p))
}

func (b *nvimBatch) AddPropTypes(types []decorate.PropType) {
	for _, t := range types {
		if _, err := b.host.namespace(t.Name); err != nil {
			b.fail(fmt.Errorf("namespace %s: %w", t.Name, err))
			return
		}
		b.host.setPropHighlight(t.Name, t.Highlight)
	}
}

func (b *nvimBatch) ClearProps(buf int, types []decorate.PropType) {
	for _, t := range types {
		ns, err := b.host.namespace(t.Name)
		if err != nil {
			b.fail(fmt.Errorf("namespace %s: %w", t.Name, err))
			return
		}
		b.b.ClearBufferNamespace(nvim.Buffer(buf), ns, 0, -1)
	}
}

func (b *nvimBatch) AddHighlights(buf int, propType string, ranges []markup.Range) {
	ns, hl, ok := b.channel(propType)
	if !ok {
		return
	}
	for _, r := range ranges {
		opts := map[string]interface{}{
			"end_row":  r.End.Line,
			"end_col":  r.End.Character,
			"hl_group": hl,
		}
		b.b.SetBufferExtmark(nvim.Buffer(buf), ns, r.Start.Line, r.Start.Character, opts, new(int))
	}
}

func (b *nvimBatch) AddVirtualTexts(buf int, propType string, texts []decorate.VirtualText) {
	ns, hl, ok := b.channel(propType)
	if !ok {
		return
	}
	for _, t := range texts {
		b.b.SetBufferExtmark(nvim.Buffer(buf), ns, t.Line, t.Column-1, virtualTextOptions(t, hl), new(int))
	}
}

func (b *nvimBatch) channel(propType string) (int, string, bool) {
	hl, ok := b.host.propHighlight(propType)
	if !ok {
		b.fail(fmt.Errorf("unknown prop type %s", propType))
		return 0, "", false
	}
	ns, err := b.host.namespace(propType)
	if err != nil {
		b.fail(fmt.Errorf("namespace %s: %w", propType, err))
		return 0, "", false
	}
	return ns, hl, true
}

func (b *nvimBatch) ResetSyntax(win int, group string) {
	b.b.Call("win_execute", new(string), win, "unlet! b:current_syntax")
	b.b.Call("win_execute", new(string), win, "silent! syntax clear "+group)
}

func (b *nvimBatch) DefineRegion(win int, region decorate.SyntaxRegion) {
	b.b.Call("win_execute", new(string), win, regionCommand(region))
}

func (b *nvimBatch) Execute(ctx context.Context) error {
	if b.err != nil {
		return b.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.b.Execute()
}

func virtualTextOptions(t decorate.VirtualText, hl string) map[string]interface{} {
	// overlay text is clipped at the window edge
	return map[string]interface{}{
		"virt_text":     [][]string{{t.Text, hl}},
		"virt_text_pos": "overlay",
	}
}

func highlightCommand(p decorate.HighlightParam) string {
	cmd := "highlight "
	if p.Default {
		cmd += "default "
	}
	if p.Term == nil {
		return cmd + "link " + p.Name + " " + p.LinksTo
	}

	var attrs []string
	if p.Term.Bold {
		attrs = append(attrs, "bold")
	}
	if p.Term.Italic {
		attrs = append(attrs, "italic")
	}
	if p.Term.Strikethrough {
		attrs = append(attrs, "strikethrough")
	}
	if p.Term.Underline {
		attrs = append(attrs, "underline")
	}
	a := "NONE"
	if len(attrs) > 0 {
		a = strings.Join(attrs, ",")
	}
	return fmt.Sprintf("%s%s term=%s cterm=%s gui=%s", cmd, p.Name, a, a, a)
}

// regionStart matches the first byte of the range.
func regionStart(p markup.Position) string {
	return fmt.Sprintf(`\%%%dl\%%%dc`, p.Line+1, p.Character+1)
}

// regionEnd matches the character before the exclusive end position, so a
// range ending after a multibyte character still closes. An end at column 0
// is exclusive of its line, so the region ends with the previous line.
func regionEnd(p markup.Position) string {
	if p.Character == 0 {
		return fmt.Sprintf(`\%%%dl$`, p.Line)
	}
	return fmt.Sprintf(`.\%%%dl\%%%dc`, p.Line+1, p.Character+1)
}

func regionCommand(r decorate.SyntaxRegion) string {
	terms := []string{"syntax", "region", r.Group}
	if r.KeepEnd {
		terms = append(terms, "keepend")
	}
	terms = append(terms,
		"start=/"+regionStart(r.Range.Start)+"/",
		"end=/"+regionEnd(r.Range.End)+"/",
	)
	if r.Contains != "" {
		terms = append(terms, "contains="+r.Contains)
	}
	if r.ContainedIn != "" {
		terms = append(terms, "containedin="+r.ContainedIn)
	}
	return strings.Join(terms, " ")
}
