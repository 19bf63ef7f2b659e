package editor

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/akiyosi/gonvim-hover/decorate"
	"github.com/akiyosi/gonvim-hover/lsp"
	"github.com/akiyosi/gonvim-hover/markup"
)

type notice struct {
	msg       string
	highlight string
}

type fakeFront struct {
	snap    Snapshot
	err     error
	notices []notice
}

func (f *fakeFront) Snapshot(ctx context.Context, buf int) (Snapshot, error) {
	return f.snap, f.err
}

func (f *fakeFront) Echo(ctx context.Context, msg, highlight string) error {
	f.notices = append(f.notices, notice{msg, highlight})
	return nil
}

type fakeSessions []lsp.Session

func (f fakeSessions) Sessions(ctx context.Context, buf int) []lsp.Session {
	return f
}

type fakeSession struct {
	name   string
	hover  bool
	result *lsp.Hover
	err    error
	block  bool
	closed bool

	synced []lsp.Document
	params []lsp.HoverParams
}

func (s *fakeSession) Name() string        { return s.name }
func (s *fakeSession) SupportsHover() bool { return s.hover }
func (s *fakeSession) Sync(ctx context.Context, doc lsp.Document) error {
	s.synced = append(s.synced, doc)
	return nil
}
func (s *fakeSession) CloseDocument(ctx context.Context, uri string) error { return nil }
func (s *fakeSession) Hover(ctx context.Context, params lsp.HoverParams) (*lsp.Hover, error) {
	s.params = append(s.params, params)
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.result, s.err
}
func (s *fakeSession) Closed() bool { return s.closed }
func (s *fakeSession) Close() error { return nil }

type fakeDecorator struct {
	calls []decorate.Target
	attrs [][]markup.Attr
}

func (d *fakeDecorator) Decorate(ctx context.Context, target decorate.Target, attrs []markup.Attr) error {
	d.calls = append(d.calls, target)
	d.attrs = append(d.attrs, attrs)
	return nil
}

type fakeSurface struct {
	target decorate.Target
	closed bool
}

func (s *fakeSurface) Target() decorate.Target { return s.target }
func (s *fakeSurface) Close() error {
	s.closed = true
	return nil
}

type fakeSurfaces struct {
	floats   []*fakeSurface
	previews [][]string
	lines    [][]string
}

func (f *fakeSurfaces) OpenFloat(ctx context.Context, lines []string) (Surface, error) {
	s := &fakeSurface{target: decorate.Target{Window: 1000 + len(f.floats), Buffer: 10 + len(f.floats)}}
	f.floats = append(f.floats, s)
	f.lines = append(f.lines, lines)
	return s, nil
}

func (f *fakeSurfaces) OpenPreview(ctx context.Context, lines []string) (decorate.Target, error) {
	f.previews = append(f.previews, lines)
	return decorate.Target{Window: 2000, Buffer: 20}, nil
}

func testSnapshot() Snapshot {
	return Snapshot{
		Bufnr:    3,
		Name:     "",
		URI:      "file:///w/main.go",
		Filetype: "go",
		Lines:    []string{"package main", "var héllo = 1"},
		Row:      1,
		Col:      7,
	}
}

func markdownHover(value string) *lsp.Hover {
	return &lsp.Hover{Contents: lsp.MarkupContent{Kind: markup.KindMarkdown, Value: value}}
}

func TestHover_RequestNoClient(t *testing.T) {
	front := &fakeFront{snap: testSnapshot()}
	dec := &fakeDecorator{}
	h := NewHover(front, fakeSessions{}, &fakeSurfaces{}, dec, nil)

	result, outcome, err := h.Request(context.Background(), 0, time.Second)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if result != nil || outcome != NoClient {
		t.Errorf("Request() = %v, %v, want nil, %v", result, outcome, NoClient)
	}
	want := []notice{{`No client is attached to buffer: "" (bufnr: 3)`, "WarningMsg"}}
	if !reflect.DeepEqual(front.notices, want) {
		t.Errorf("notices = %v, want %v", front.notices, want)
	}

	front.notices = nil
	if err := h.Float(context.Background(), time.Second); err != nil {
		t.Fatalf("Float() error = %v", err)
	}
	if len(front.notices) != 1 {
		t.Errorf("Float() issued %d notices, want 1", len(front.notices))
	}
	if len(dec.calls) != 0 {
		t.Errorf("Float() decorated %d times, want 0", len(dec.calls))
	}
}

func TestHover_RequestUnsupported(t *testing.T) {
	front := &fakeFront{snap: testSnapshot()}
	sessions := fakeSessions{&fakeSession{name: "a"}, &fakeSession{name: "b"}}
	h := NewHover(front, sessions, &fakeSurfaces{}, &fakeDecorator{}, nil)

	_, outcome, err := h.Request(context.Background(), 0, time.Second)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if outcome != Unsupported {
		t.Errorf("Request() outcome = %v, want %v", outcome, Unsupported)
	}
	want := []notice{{"Hover is not supported: a,b", ""}}
	if !reflect.DeepEqual(front.notices, want) {
		t.Errorf("notices = %v, want %v", front.notices, want)
	}
}

func TestHover_RequestTimeout(t *testing.T) {
	front := &fakeFront{snap: testSnapshot()}
	dec := &fakeDecorator{}
	session := &fakeSession{name: "gopls", hover: true, block: true}
	h := NewHover(front, fakeSessions{session}, &fakeSurfaces{}, dec, nil)

	result, outcome, err := h.Request(context.Background(), 0, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if result != nil || outcome != TimedOut {
		t.Errorf("Request() = %v, %v, want nil, %v", result, outcome, TimedOut)
	}
	want := []notice{{"Hover: Request timeout", ""}}
	if !reflect.DeepEqual(front.notices, want) {
		t.Errorf("notices = %v, want %v", front.notices, want)
	}

	front.notices = nil
	if err := h.Preview(context.Background(), 10*time.Millisecond); err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if len(front.notices) != 1 {
		t.Errorf("Preview() issued %d notices, want 1", len(front.notices))
	}
	if len(dec.calls) != 0 {
		t.Errorf("Preview() decorated %d times, want 0", len(dec.calls))
	}
}

func TestHover_RequestPicksFirstSupportingSession(t *testing.T) {
	front := &fakeFront{snap: testSnapshot()}
	first := &fakeSession{name: "lint"}
	second := &fakeSession{name: "gopls", hover: true, result: markdownHover("x")}
	third := &fakeSession{name: "other", hover: true, result: markdownHover("y")}
	h := NewHover(front, fakeSessions{first, second, third}, &fakeSurfaces{}, &fakeDecorator{}, nil)

	result, outcome, err := h.Request(context.Background(), 0, time.Second)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if outcome != Resolved || result != second.result {
		t.Errorf("Request() = %v, %v, want %v, %v", result, outcome, second.result, Resolved)
	}
	if len(third.params) != 0 || len(first.params) != 0 {
		t.Errorf("Request() asked sessions other than the first supporting one")
	}
	wantParams := lsp.HoverParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: "file:///w/main.go"},
		Position:     lsp.Position{Line: 1, Character: 6},
	}
	if !reflect.DeepEqual(second.params, []lsp.HoverParams{wantParams}) {
		t.Errorf("Hover() params = %v, want %v", second.params, wantParams)
	}
	wantDoc := lsp.Document{URI: "file:///w/main.go", LanguageID: "go", Text: "package main\nvar héllo = 1\n"}
	if !reflect.DeepEqual(second.synced, []lsp.Document{wantDoc}) {
		t.Errorf("Sync() docs = %v, want %v", second.synced, wantDoc)
	}
	if len(front.notices) != 0 {
		t.Errorf("notices = %v, want none", front.notices)
	}
}

func TestHover_RequestError(t *testing.T) {
	boom := errors.New("crashed")
	front := &fakeFront{snap: testSnapshot()}
	session := &fakeSession{name: "gopls", hover: true, err: boom}
	h := NewHover(front, fakeSessions{session}, &fakeSurfaces{}, &fakeDecorator{}, nil)

	if _, _, err := h.Request(context.Background(), 0, time.Second); !errors.Is(err, boom) {
		t.Errorf("Request() error = %v, want %v", err, boom)
	}
	if len(front.notices) != 0 {
		t.Errorf("notices = %v, want none", front.notices)
	}
}

func TestHover_FloatDecoratesAndReplaces(t *testing.T) {
	front := &fakeFront{snap: testSnapshot()}
	session := &fakeSession{name: "gopls", hover: true, result: markdownHover("**bold**")}
	surfaces := &fakeSurfaces{}
	dec := &fakeDecorator{}
	h := NewHover(front, fakeSessions{session}, surfaces, dec, nil)

	for i := 0; i < 2; i++ {
		if err := h.Float(context.Background(), time.Second); err != nil {
			t.Fatalf("Float() error = %v", err)
		}
	}
	if len(surfaces.floats) != 2 {
		t.Fatalf("Float() opened %d floats, want 2", len(surfaces.floats))
	}
	if !surfaces.floats[0].closed || surfaces.floats[1].closed {
		t.Errorf("Float() did not replace the previous float")
	}
	if want := []string{"bold"}; !reflect.DeepEqual(surfaces.lines[1], want) {
		t.Errorf("Float() lines = %v, want %v", surfaces.lines[1], want)
	}
	wantTargets := []decorate.Target{surfaces.floats[0].target, surfaces.floats[1].target}
	if !reflect.DeepEqual(dec.calls, wantTargets) {
		t.Errorf("Decorate() targets = %v, want %v", dec.calls, wantTargets)
	}
	wantAttrs := []markup.Attr{markup.Span{Kind: markup.AttrBold, Range: markup.Rng(0, 0, 0, 4)}}
	if !reflect.DeepEqual(dec.attrs[1], wantAttrs) {
		t.Errorf("Decorate() attrs = %v, want %v", dec.attrs[1], wantAttrs)
	}
	if got := h.Last(); got != "bold" {
		t.Errorf("Last() = %q, want %q", got, "bold")
	}
}

func TestHover_PreviewClosesFloat(t *testing.T) {
	front := &fakeFront{snap: testSnapshot()}
	session := &fakeSession{name: "gopls", hover: true, result: markdownHover("doc")}
	surfaces := &fakeSurfaces{}
	dec := &fakeDecorator{}
	h := NewHover(front, fakeSessions{session}, surfaces, dec, nil)

	if err := h.Float(context.Background(), time.Second); err != nil {
		t.Fatalf("Float() error = %v", err)
	}
	if err := h.Preview(context.Background(), time.Second); err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if !surfaces.floats[0].closed {
		t.Errorf("Preview() left the float open")
	}
	if len(surfaces.previews) != 1 {
		t.Fatalf("Preview() opened %d previews, want 1", len(surfaces.previews))
	}
	if last := dec.calls[len(dec.calls)-1]; last != (decorate.Target{Window: 2000, Buffer: 20}) {
		t.Errorf("Decorate() target = %v, want the preview window", last)
	}
}

func TestHover_NullResultIsNoop(t *testing.T) {
	front := &fakeFront{snap: testSnapshot()}
	session := &fakeSession{name: "gopls", hover: true}
	surfaces := &fakeSurfaces{}
	dec := &fakeDecorator{}
	h := NewHover(front, fakeSessions{session}, surfaces, dec, nil)

	if err := h.Float(context.Background(), time.Second); err != nil {
		t.Fatalf("Float() error = %v", err)
	}
	if len(surfaces.floats) != 0 || len(dec.calls) != 0 || len(front.notices) != 0 {
		t.Errorf("Float() with a null result did something")
	}
}

// blockingStarter starts sessions immediately, except for servers listed in
// hang, whose start never returns.
type blockingStarter struct {
	hang    map[string]bool
	entered chan string
	release chan struct{}
	next    func(name string) lsp.Session
}

func (b *blockingStarter) start(ctx context.Context, name string, cfg lsp.ServerConfig, rootURI string) (lsp.Session, error) {
	if b.hang[name] {
		b.entered <- name
		<-b.release
		return nil, errors.New("start abandoned")
	}
	return b.next(name), nil
}

var hoverServers = map[string]lsp.ServerConfig{
	"gopls":   {Command: "gopls", Filetypes: []string{"go"}},
	"pyright": {Command: "pyright-langserver", Filetypes: []string{"python"}},
}

func TestHover_RequestNotBlockedByOtherServerStart(t *testing.T) {
	ctx := context.Background()
	starter := &blockingStarter{
		hang:    map[string]bool{"pyright": true},
		entered: make(chan string, 1),
		release: make(chan struct{}),
		next: func(name string) lsp.Session {
			return &fakeSession{name: name, hover: true, result: &lsp.Hover{Contents: lsp.MarkupContent{Kind: markup.KindPlainText, Value: "var héllo int"}}}
		},
	}
	defer close(starter.release)
	manager := lsp.NewManager(hoverServers, 8, starter.start, nil)

	if err := manager.Attach(ctx, 3, "go", ""); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	go func() { _ = manager.Attach(ctx, 4, "python", "") }()
	<-starter.entered

	front := &fakeFront{snap: testSnapshot()}
	h := NewHover(front, manager, &fakeSurfaces{}, &fakeDecorator{}, nil)

	type reply struct {
		result  *lsp.Hover
		outcome Outcome
		err     error
	}
	done := make(chan reply, 1)
	go func() {
		result, outcome, err := h.Request(ctx, 0, 50*time.Millisecond)
		done <- reply{result, outcome, err}
	}()

	select {
	case r := <-done:
		if r.err != nil || r.outcome != Resolved || r.result == nil {
			t.Errorf("Request() = %v, %v, %v, want a resolved hover", r.result, r.outcome, r.err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Request() still blocked on another buffer's server start")
	}
}

func TestHover_RequestTimesOutWaitingForRestart(t *testing.T) {
	ctx := context.Background()
	first := &fakeSession{name: "gopls", hover: true}
	starter := &blockingStarter{
		hang:    map[string]bool{},
		entered: make(chan string, 1),
		release: make(chan struct{}),
		next:    func(name string) lsp.Session { return first },
	}
	defer close(starter.release)
	manager := lsp.NewManager(hoverServers, 8, starter.start, nil)

	if err := manager.Attach(ctx, 3, "go", ""); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	// the server exits and its restart hangs
	first.closed = true
	starter.hang["gopls"] = true

	front := &fakeFront{snap: testSnapshot()}
	h := NewHover(front, manager, &fakeSurfaces{}, &fakeDecorator{}, nil)

	done := make(chan Outcome, 1)
	go func() {
		_, outcome, _ := h.Request(ctx, 0, 50*time.Millisecond)
		done <- outcome
	}()

	select {
	case outcome := <-done:
		if outcome != TimedOut {
			t.Errorf("Request() outcome = %v, want %v", outcome, TimedOut)
		}
		want := []notice{{"Hover: Request timeout", ""}}
		if !reflect.DeepEqual(front.notices, want) {
			t.Errorf("notices = %v, want %v", front.notices, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Request() ignored its timeout while a server restarted")
	}
}
