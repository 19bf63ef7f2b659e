package decorate

import (
	"context"
	"errors"

	"github.com/akiyosi/gonvim-hover/markup"
)

var (
	// ErrHostQuery is returned when the host cannot report filetypes or window
	// layout. The decoration pass is abandoned.
	ErrHostQuery = errors.New("host query failed")

	// ErrBatch is returned when an atomic host batch fails.
	ErrBatch = errors.New("host batch failed")
)

// Target is the window and buffer a decoration pass is applied to.
type Target struct {
	Window int
	Buffer int
}

// Term holds terminal style attributes of a highlight group.
type Term struct {
	Bold          bool
	Italic        bool
	Strikethrough bool
	Underline     bool
}

// HighlightParam defines one highlight group, either by style or as a link to
// another group.
type HighlightParam struct {
	Name    string
	Term    *Term
	LinksTo string
	Default bool
}

// PropType is a decoration channel bound to one highlight group.
type PropType struct {
	Name      string
	Highlight string
}

// VirtualText is text drawn over a buffer line and truncated at the
// window edge. Column is 1-based.
type VirtualText struct {
	Line   int
	Column int
	Text   string
}

// SyntaxRegion is a syntax region anchored at literal positions.
type SyntaxRegion struct {
	Group       string
	Range       markup.Range
	KeepEnd     bool
	Contains    string
	ContainedIn string
}

// Layout is the probed geometry of a window.
type Layout struct {
	Width      int
	TextOffset int
	AmbiWide   bool
}

// Host is the editor the decorations are applied to.
type Host interface {
	// Filetypes lists every syntax/filetype name the host recognizes.
	Filetypes(ctx context.Context) ([]string, error)

	// WindowLayout reports the display width and left gutter of a window.
	WindowLayout(ctx context.Context, win int) (Layout, error)

	// LoadSyntax includes the syntax definition of filetype into the cluster
	// @group, scoped to win.
	LoadSyntax(ctx context.Context, win int, group, filetype string) error

	// Redraw forces the screen to be redrawn.
	Redraw(ctx context.Context) error

	NewBatch() Batch
}

// Batch queues host calls that are applied atomically by Execute.
type Batch interface {
	DefineHighlight(p HighlightParam)
	AddPropTypes(types []PropType)
	ClearProps(buf int, types []PropType)
	AddHighlights(buf int, propType string, ranges []markup.Range)
	AddVirtualTexts(buf int, propType string, texts []VirtualText)
	ResetSyntax(win int, group string)
	DefineRegion(win int, region SyntaxRegion)
	Execute(ctx context.Context) error
}
