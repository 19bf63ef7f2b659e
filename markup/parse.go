package markup

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// content kinds of an LSP MarkupContent
const (
	KindMarkdown  = "markdown"
	KindPlainText = "plaintext"
)

var md = goldmark.New(
	goldmark.WithExtensions(
		extension.Strikethrough,
		extension.Linkify,
		extension.Table,
	),
)

// Parse renders markup into display lines and the attributes that decorate them.
// Anything other than markdown is shown verbatim.
func Parse(kind, value string) Document {
	value = strings.ReplaceAll(value, "\r\n", "\n")
	if kind != KindMarkdown {
		return Document{Lines: trimBlankTail(strings.Split(value, "\n"))}
	}

	source := []byte(value)
	r := &renderer{source: source, fresh: true}
	doc := md.Parser().Parse(text.NewReader(source))
	_ = ast.Walk(doc, r.walk)
	r.flush()

	attrs := dropEmpty(r.attrs)
	lines := trimBlankTail(r.lines)
	// a trailing rule still needs its line
	for _, a := range attrs {
		if rule, ok := a.(Rule); ok {
			for len(lines) <= rule.Line {
				lines = append(lines, "")
			}
		}
	}

	return Document{Lines: lines, Attrs: attrs}
}

type indent struct {
	first string
	rest  string
	used  bool
}

type renderer struct {
	source []byte
	lines  []string
	cur    strings.Builder
	fresh  bool

	indents []*indent
	attrs   []Attr
	open    []int
	html    []int
}

func (r *renderer) pos() Position {
	return Position{Line: len(r.lines), Character: r.cur.Len()}
}

func (r *renderer) ensurePrefix() {
	if !r.fresh {
		return
	}
	r.fresh = false
	for _, in := range r.indents {
		if in.used {
			r.cur.WriteString(in.rest)
			continue
		}
		in.used = true
		r.cur.WriteString(in.first)
	}
}

func (r *renderer) newline() {
	r.ensurePrefix()
	r.lines = append(r.lines, r.cur.String())
	r.cur.Reset()
	r.fresh = true
}

func (r *renderer) write(s string) {
	for i, part := range strings.Split(s, "\n") {
		if i > 0 {
			r.newline()
		}
		r.ensurePrefix()
		r.cur.WriteString(part)
	}
}

func (r *renderer) flush() {
	if !r.fresh {
		r.newline()
	}
}

func (r *renderer) startBlock(n ast.Node) {
	if !r.fresh {
		r.newline()
	}
	if n.PreviousSibling() == nil || inTightList(n) {
		return
	}
	r.newline()
}

func inTightList(n ast.Node) bool {
	item := n
	if item.Kind() != ast.KindListItem {
		item = n.Parent()
	}
	if item == nil || item.Kind() != ast.KindListItem {
		return false
	}
	list, ok := item.Parent().(*ast.List)
	return ok && list.IsTight
}

func (r *renderer) openSpan(kind AttrType) int {
	r.ensurePrefix()
	idx := len(r.attrs)
	r.attrs = append(r.attrs, Span{Kind: kind, Range: Range{Start: r.pos()}})
	return idx
}

func (r *renderer) closeSpan(idx int) {
	s := r.attrs[idx].(Span)
	s.Range.End = r.pos()
	r.attrs[idx] = s
}

func (r *renderer) push(kind AttrType) {
	r.open = append(r.open, r.openSpan(kind))
}

func (r *renderer) pop() {
	if len(r.open) == 0 {
		return
	}
	idx := r.open[len(r.open)-1]
	r.open = r.open[:len(r.open)-1]
	r.closeSpan(idx)
}

func (r *renderer) span(kind AttrType, s string) {
	idx := r.openSpan(kind)
	r.write(s)
	r.closeSpan(idx)
}

func (r *renderer) codeLines(lines *text.Segments) (Position, Position, bool) {
	if lines.Len() == 0 {
		return Position{}, Position{}, false
	}
	var start Position
	for i := 0; i < lines.Len(); i++ {
		if i > 0 {
			r.newline()
		}
		r.ensurePrefix()
		if i == 0 {
			start = r.pos()
		}
		seg := lines.At(i)
		r.cur.WriteString(strings.TrimRight(string(seg.Value(r.source)), "\r\n"))
	}
	return start, r.pos(), true
}

func (r *renderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Document:

	case *ast.Paragraph, *ast.TextBlock:
		if entering {
			r.startBlock(n)
		}

	case *ast.Heading:
		if entering {
			r.startBlock(n)
			r.push(AttrTitle)
		} else {
			r.pop()
		}

	case *ast.ThematicBreak:
		if entering {
			r.startBlock(n)
			r.ensurePrefix()
			r.attrs = append(r.attrs, Rule{Line: len(r.lines)})
		}

	case *ast.FencedCodeBlock:
		if entering {
			r.startBlock(n)
			lang := strings.TrimSpace(string(node.Language(r.source)))
			start, end, ok := r.codeLines(node.Lines())
			if ok && lang != "" {
				r.attrs = append(r.attrs, Fenced{Lang: lang, Range: Range{Start: start, End: end}})
			}
		}
		return ast.WalkSkipChildren, nil

	case *ast.CodeBlock, *ast.HTMLBlock:
		if entering {
			r.startBlock(n)
			r.codeLines(n.Lines())
		}
		return ast.WalkSkipChildren, nil

	case *ast.Blockquote:
		if entering {
			r.startBlock(n)
			r.indents = append(r.indents, &indent{first: "> ", rest: "> "})
		} else {
			r.indents = r.indents[:len(r.indents)-1]
		}

	case *ast.List:
		if entering {
			r.startBlock(n)
		}

	case *ast.ListItem:
		if entering {
			r.startBlock(n)
			marker := "- "
			if list, ok := n.Parent().(*ast.List); ok && list.IsOrdered() {
				marker = fmt.Sprintf("%d. ", list.Start+siblingIndex(n))
			}
			r.indents = append(r.indents, &indent{first: marker, rest: strings.Repeat(" ", len(marker))})
		} else {
			r.indents = r.indents[:len(r.indents)-1]
		}

	case *east.Table:
		if entering {
			r.startBlock(n)
		}

	case *east.TableHeader, *east.TableRow:
		if entering && !r.fresh {
			r.newline()
		}

	case *east.TableCell:
		if entering {
			if n.PreviousSibling() != nil {
				r.write(" | ")
			}
			if n.Parent().Kind() == east.KindTableHeader {
				r.push(AttrBold)
			}
		} else if n.Parent().Kind() == east.KindTableHeader {
			r.pop()
		}

	case *ast.Text:
		if !entering {
			break
		}
		r.write(string(node.Segment.Value(r.source)))
		if node.SoftLineBreak() || node.HardLineBreak() {
			if n.Parent().Kind() == ast.KindCodeSpan {
				r.write(" ")
			} else {
				r.newline()
			}
		}

	case *ast.String:
		if entering {
			r.write(string(node.Value))
		}

	case *ast.Emphasis:
		if entering {
			kind := AttrItalic
			if node.Level >= 2 {
				kind = AttrBold
			}
			r.push(kind)
		} else {
			r.pop()
		}

	case *east.Strikethrough:
		if entering {
			r.push(AttrStrikethrough)
		} else {
			r.pop()
		}

	case *ast.CodeSpan:
		if entering {
			r.span(AttrCodespanDelimiter, "`")
			r.push(AttrCodespan)
		} else {
			r.pop()
			r.span(AttrCodespanDelimiter, "`")
		}

	case *ast.Link, *ast.Image:
		if entering {
			r.push(AttrLink)
		} else {
			r.pop()
		}

	case *ast.AutoLink:
		if entering {
			r.span(AttrURL, string(node.Label(r.source)))
		}
		return ast.WalkSkipChildren, nil

	case *ast.RawHTML:
		if entering {
			r.rawHTML(node)
		}
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

func (r *renderer) rawHTML(node *ast.RawHTML) {
	var b strings.Builder
	for i := 0; i < node.Segments.Len(); i++ {
		seg := node.Segments.At(i)
		b.Write(seg.Value(r.source))
	}
	switch strings.ToLower(strings.ReplaceAll(b.String(), " ", "")) {
	case "<u>", "<ins>":
		r.html = append(r.html, r.openSpan(AttrUnderline))
	case "</u>", "</ins>":
		if len(r.html) > 0 {
			r.closeSpan(r.html[len(r.html)-1])
			r.html = r.html[:len(r.html)-1]
		}
	case "<br>", "<br/>":
		r.newline()
	}
}

func siblingIndex(n ast.Node) int {
	i := 0
	for p := n.PreviousSibling(); p != nil; p = p.PreviousSibling() {
		i++
	}
	return i
}

func trimBlankTail(lines []string) []string {
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func dropEmpty(attrs []Attr) []Attr {
	kept := attrs[:0]
	for _, a := range attrs {
		if s, ok := a.(Span); ok && s.Range.Start == s.Range.End {
			continue
		}
		kept = append(kept, a)
	}
	return kept
}
