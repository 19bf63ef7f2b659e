package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	shortpath "github.com/akiyosi/short_path"
	"github.com/sirupsen/logrus"

	"github.com/akiyosi/gonvim-hover/decorate"
	"github.com/akiyosi/gonvim-hover/lsp"
	"github.com/akiyosi/gonvim-hover/markup"
	"github.com/akiyosi/gonvim-hover/util"
)

// Outcome is how a hover request ended.
type Outcome int

// hover request outcomes
const (
	Resolved Outcome = iota
	TimedOut
	Unsupported
	NoClient
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case TimedOut:
		return "timeout"
	case Unsupported:
		return "unsupported"
	case NoClient:
		return "noclient"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Snapshot is the state of a buffer at the time of a request.
type Snapshot struct {
	Bufnr    int
	Name     string
	URI      string
	Filetype string
	Lines    []string
	// Cursor is 0-based line and byte column.
	Row int
	Col int
}

// Front is the editor as seen by a hover request.
type Front interface {
	// Snapshot reads buf, or the current buffer when buf is 0.
	Snapshot(ctx context.Context, buf int) (Snapshot, error)
	Echo(ctx context.Context, msg, highlight string) error
}

// SessionSource lists the sessions attached to a buffer in attach order.
type SessionSource interface {
	Sessions(ctx context.Context, buf int) []lsp.Session
}

// Decorator applies markup decorations to a buffer.
type Decorator interface {
	Decorate(ctx context.Context, target decorate.Target, attrs []markup.Attr) error
}

// Surface is an open floating window.
type Surface interface {
	Target() decorate.Target
	Close() error
}

// Surfaces opens the windows hover text is shown in.
type Surfaces interface {
	OpenFloat(ctx context.Context, lines []string) (Surface, error)
	OpenPreview(ctx context.Context, lines []string) (decorate.Target, error)
}

// Hover serves the hover commands.
type Hover struct {
	front     Front
	sessions  SessionSource
	surfaces  Surfaces
	decorator Decorator
	log       *logrus.Entry

	mu     sync.Mutex
	active Surface
	last   string
}

// NewHover wires a Hover.
func NewHover(front Front, sessions SessionSource, surfaces Surfaces, decorator Decorator, log *Logger) *Hover {
	return &Hover{
		front:     front,
		sessions:  sessions,
		surfaces:  surfaces,
		decorator: decorator,
		log:       log.Entry(),
	}
}

func noClientMessage(name string, bufnr int) string {
	if name != "" {
		if short, err := shortpath.Minimum(name); err == nil && short != "" {
			name = short
		}
	}
	return fmt.Sprintf("No client is attached to buffer: %q (bufnr: %d)", name, bufnr)
}

// Request asks the first hover-capable session attached to buf for hover
// information at the cursor. NoClient, Unsupported and TimedOut each echo
// one notice and are not errors.
func (h *Hover) Request(ctx context.Context, buf int, timeout time.Duration) (*lsp.Hover, Outcome, error) {
	snap, err := h.front.Snapshot(ctx, buf)
	if err != nil {
		return nil, Resolved, err
	}
	log := h.log.WithField("bufnr", snap.Bufnr)

	// the deadline also covers waiting for a server that is still starting
	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sessions := h.sessions.Sessions(rctx, snap.Bufnr)
	if len(sessions) == 0 && errors.Is(rctx.Err(), context.DeadlineExceeded) {
		return nil, TimedOut, h.timedOut(ctx, log)
	}
	if len(sessions) == 0 {
		log.WithField("outcome", NoClient).Debug("hover")
		return nil, NoClient, h.front.Echo(ctx, noClientMessage(snap.Name, snap.Bufnr), "WarningMsg")
	}

	var session lsp.Session
	names := make([]string, 0, len(sessions))
	for _, s := range sessions {
		names = append(names, s.Name())
		if session == nil && s.SupportsHover() {
			session = s
		}
	}
	if session == nil {
		log.WithField("outcome", Unsupported).Debug("hover")
		return nil, Unsupported, h.front.Echo(ctx, "Hover is not supported: "+strings.Join(names, ","), "")
	}
	log = log.WithField("session", session.Name())

	var line string
	if snap.Row >= 0 && snap.Row < len(snap.Lines) {
		line = snap.Lines[snap.Row]
	}
	pos, err := lsp.NewPosition(snap.Row, util.UTF16Column(line, snap.Col))
	if err != nil {
		return nil, Resolved, err
	}

	result, err := h.request(rctx, session, snap, pos)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, TimedOut, h.timedOut(ctx, log)
	}
	if err != nil {
		return nil, Resolved, fmt.Errorf("hover %s: %w", session.Name(), err)
	}
	log.WithField("outcome", Resolved).Debug("hover")

	return result, Resolved, nil
}

func (h *Hover) timedOut(ctx context.Context, log *logrus.Entry) error {
	log.WithField("outcome", TimedOut).Debug("hover")
	return h.front.Echo(ctx, "Hover: Request timeout", "")
}

func (h *Hover) request(ctx context.Context, s lsp.Session, snap Snapshot, pos lsp.Position) (*lsp.Hover, error) {
	doc := lsp.Document{
		URI:        snap.URI,
		LanguageID: snap.Filetype,
		Text:       strings.Join(snap.Lines, "\n") + "\n",
	}
	if err := s.Sync(ctx, doc); err != nil {
		return nil, err
	}
	return s.Hover(ctx, lsp.HoverParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: snap.URI},
		Position:     pos,
	})
}

// closeActive closes the float opened by a previous request, if any.
func (h *Hover) closeActive() {
	h.mu.Lock()
	active := h.active
	h.active = nil
	h.mu.Unlock()

	if active == nil {
		return
	}
	if err := active.Close(); err != nil {
		h.log.WithError(err).Debug("close float")
	}
}

// render requests hover for the current buffer and parses it. A nil
// document means there is nothing to show.
func (h *Hover) render(ctx context.Context, timeout time.Duration) (*markup.Document, error) {
	result, _, err := h.Request(ctx, 0, timeout)
	if err != nil || result == nil {
		return nil, err
	}
	doc := markup.Parse(result.Contents.Kind, result.Contents.Value)

	h.mu.Lock()
	h.last = strings.Join(doc.Lines, "\n")
	h.mu.Unlock()

	return &doc, nil
}

// Float shows hover at the cursor in a floating window.
func (h *Hover) Float(ctx context.Context, timeout time.Duration) error {
	h.closeActive()

	doc, err := h.render(ctx, timeout)
	if err != nil || doc == nil {
		return err
	}

	surface, err := h.surfaces.OpenFloat(ctx, doc.Lines)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.active = surface
	h.mu.Unlock()

	return h.decorator.Decorate(ctx, surface.Target(), doc.Attrs)
}

// Preview shows hover in the preview window.
func (h *Hover) Preview(ctx context.Context, timeout time.Duration) error {
	h.closeActive()

	doc, err := h.render(ctx, timeout)
	if err != nil || doc == nil {
		return err
	}

	target, err := h.surfaces.OpenPreview(ctx, doc.Lines)
	if err != nil {
		return err
	}

	return h.decorator.Decorate(ctx, target, doc.Attrs)
}

// Last is the text of the most recently rendered hover.
func (h *Hover) Last() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}
