package decorate

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/akiyosi/gonvim-hover/markup"
)

const groupPrefix = "GonvimHoverMarkup"

// GroupName returns the highlight group used for an attribute kind.
func GroupName(t markup.AttrType) string {
	switch t {
	case markup.AttrStrikethrough:
		return groupPrefix + "Strike"
	case markup.AttrUnderline:
		return groupPrefix + "Underlined"
	}
	return groupPrefix + capitalize(string(t))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func defaultHighlights() []HighlightParam {
	highlights := []HighlightParam{
		{Name: groupPrefix + "Bold", Term: &Term{Bold: true}},
		{Name: groupPrefix + "Italic", Term: &Term{Italic: true}},
		{Name: groupPrefix + "Strike", Term: &Term{Strikethrough: true}},
		{Name: groupPrefix + "Underlined", Term: &Term{Underline: true}},
		{Name: groupPrefix + "Horizontalrule", LinksTo: "Normal"},
		{Name: groupPrefix + "Title", LinksTo: "Title"},
		{Name: groupPrefix + "Url", LinksTo: "Number"},
		{Name: groupPrefix + "Link", LinksTo: groupPrefix + "Underlined"},
		{Name: groupPrefix + "Codespan", LinksTo: groupPrefix + "Italic"},
		{Name: groupPrefix + "CodespanDelimiter", LinksTo: "Special"},
	}
	for i := range highlights {
		highlights[i].Default = true
	}
	return highlights
}

// Registry defines the default highlight groups once per process.
type Registry struct {
	mu   sync.Mutex
	done bool
}

// DefaultRegistry is the process-wide registry.
var DefaultRegistry = &Registry{}

// Ensure defines the default highlight groups if they have not been defined yet.
// Every group is declared with "default", so user definitions always win.
func (r *Registry) Ensure(ctx context.Context, host Host) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return nil
	}

	b := host.NewBatch()
	for _, hl := range defaultHighlights() {
		b.DefineHighlight(hl)
	}
	if err := b.Execute(ctx); err != nil {
		return fmt.Errorf("define highlights: %w: %v", ErrBatch, err)
	}
	r.done = true

	return nil
}

// Reset forgets that the groups were defined.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.done = false
	r.mu.Unlock()
}
