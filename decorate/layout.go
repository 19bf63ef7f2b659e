package decorate

import (
	"context"
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

// RuleGlyph is the character a horizontal rule is drawn with.
const RuleGlyph = '─'

// ProbeLayout reads the geometry of win. It is called on every pass because the
// same buffer can be shown in a popup or in the preview window.
func ProbeLayout(ctx context.Context, host Host, win int) (Layout, error) {
	layout, err := host.WindowLayout(ctx, win)
	if err != nil {
		return Layout{}, fmt.Errorf("probe window %d: %w: %v", win, ErrHostQuery, err)
	}
	return layout, nil
}

// RuleLength is the number of glyphs needed to span the text area of a window.
func RuleLength(layout Layout) int {
	cols := layout.Width - layout.TextOffset
	if cols <= 0 {
		return 0
	}
	cond := runewidth.NewCondition()
	cond.EastAsianWidth = layout.AmbiWide
	w := cond.RuneWidth(RuleGlyph)
	if w < 1 {
		w = 1
	}
	return cols / w
}

// RuleText is the horizontal rule for layout.
func RuleText(layout Layout) string {
	return strings.Repeat(string(RuleGlyph), RuleLength(layout))
}
