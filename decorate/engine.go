package decorate

import (
	"context"
	"fmt"
	"io"
	"regexp"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/akiyosi/gonvim-hover/markup"
)

const syntaxGroupPrefix = "GonvimHoverMarkdownHighlight"

var nonIdent = regexp.MustCompile(`[^A-Za-z0-9_]`)

// SyntaxGroup is the synthetic syntax group a fenced language is included into.
func SyntaxGroup(lang string) string {
	return syntaxGroupPrefix + capitalize(nonIdent.ReplaceAllString(lang, "_"))
}

// Engine applies markup attributes to a buffer.
type Engine struct {
	Host Host
	Log  logrus.FieldLogger
}

// NewEngine returns an engine that decorates through host.
func NewEngine(host Host, log logrus.FieldLogger) *Engine {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Engine{Host: host, Log: log}
}

// Decorate applies attrs to target. A failing host query or highlight batch
// abandons the pass. Embedded syntax is best effort per language.
func (e *Engine) Decorate(ctx context.Context, target Target, attrs []markup.Attr) error {
	propTypes := PropTypes()

	var (
		known  map[string]struct{}
		layout Layout
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		known, err = KnownFiletypes(gctx, e.Host)
		return err
	})
	g.Go(func() error {
		var err error
		layout, err = ProbeLayout(gctx, e.Host, target.Window)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	classified := Classify(resolveLangs(attrs, known), known)

	b := e.Host.NewBatch()
	b.ClearProps(target.Buffer, propTypes)
	b.AddPropTypes(propTypes)
	for _, group := range groupByChannel(classified.PropHighlights) {
		b.AddHighlights(target.Buffer, group.channel, group.ranges)
	}
	if len(classified.HRLines) > 0 {
		text := RuleText(layout)
		texts := make([]VirtualText, 0, len(classified.HRLines))
		for _, line := range classified.HRLines {
			texts = append(texts, VirtualText{
				Line:   line,
				Column: 1,
				Text:   text,
			})
		}
		b.AddVirtualTexts(target.Buffer, HRChannel, texts)
	}
	if err := b.Execute(ctx); err != nil {
		return fmt.Errorf("decorate buffer %d: %w: %v", target.Buffer, ErrBatch, err)
	}

	for _, lang := range classified.Fenced.Langs() {
		e.embedSyntax(ctx, target.Window, lang, classified.Fenced.Ranges(lang))
	}

	return e.Host.Redraw(ctx)
}

func (e *Engine) embedSyntax(ctx context.Context, win int, lang string, ranges []markup.Range) {
	log := e.Log.WithFields(logrus.Fields{"lang": lang, "winid": win})
	group := SyntaxGroup(lang)

	reset := e.Host.NewBatch()
	reset.ResetSyntax(win, group)
	if err := reset.Execute(ctx); err != nil {
		log.WithError(err).Warn("reset embedded syntax")
		return
	}

	// A syntax file that is listed but broken leaves the block unstyled. The
	// error is dropped on purpose and must not abort the other languages.
	if err := e.Host.LoadSyntax(ctx, win, group, lang); err != nil {
		log.WithError(err).Debug("load embedded syntax")
	}

	b := e.Host.NewBatch()
	for _, r := range ranges {
		b.DefineRegion(win, SyntaxRegion{
			Group:       group,
			Range:       r,
			KeepEnd:     true,
			Contains:    "@" + group,
			ContainedIn: "ALL",
		})
	}
	if err := b.Execute(ctx); err != nil {
		log.WithError(err).Warn("define embedded syntax regions")
	}
}

func resolveLangs(attrs []markup.Attr, known map[string]struct{}) []markup.Attr {
	installed := func(ft string) bool {
		_, ok := known[ft]
		return ok
	}
	resolved := make([]markup.Attr, len(attrs))
	for i, a := range attrs {
		if f, ok := a.(markup.Fenced); ok {
			f.Lang = markup.ResolveLang(f.Lang, installed)
			a = f
		}
		resolved[i] = a
	}
	return resolved
}
