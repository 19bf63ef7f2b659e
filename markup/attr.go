package markup

// AttrType is the name of a text attribute kind.
type AttrType string

// text attribute kinds
const (
	AttrBold              AttrType = "bold"
	AttrItalic            AttrType = "italic"
	AttrStrikethrough     AttrType = "strikethrough"
	AttrUnderline         AttrType = "underline"
	AttrTitle             AttrType = "title"
	AttrURL               AttrType = "url"
	AttrLink              AttrType = "link"
	AttrCodespan          AttrType = "codespan"
	AttrCodespanDelimiter AttrType = "codespanDelimiter"
	AttrHorizontalRule    AttrType = "horizontalrule"
	AttrFenced            AttrType = "fenced"
)

var spanTypes = []AttrType{
	AttrBold,
	AttrItalic,
	AttrStrikethrough,
	AttrUnderline,
	AttrTitle,
	AttrURL,
	AttrLink,
	AttrCodespan,
	AttrCodespanDelimiter,
}

// SpanTypes returns the attribute kinds carried by Span, in declaration order.
func SpanTypes() []AttrType {
	types := make([]AttrType, len(spanTypes))
	copy(types, spanTypes)
	return types
}

// Position is a 0-based line and byte column in the rendered text.
type Position struct {
	Line      int
	Character int
}

// Range is a half-open region of the rendered text.
type Range struct {
	Start Position
	End   Position
}

// Rng is shorthand for building a Range.
func Rng(startLine, startChar, endLine, endChar int) Range {
	return Range{
		Start: Position{Line: startLine, Character: startChar},
		End:   Position{Line: endLine, Character: endChar},
	}
}

// Visitor receives each variant of Attr. Adding a variant adds a method here, so
// every consumer stops compiling until it handles the new kind.
type Visitor interface {
	VisitSpan(s Span)
	VisitRule(r Rule)
	VisitFenced(f Fenced)
}

// Attr is a typed annotation over rendered hover text. The set of
// implementations is closed to this package.
type Attr interface {
	Type() AttrType
	Accept(v Visitor)
	sealed()
}

// Span is a styled region: bold, italic, title, link and the other inline kinds.
type Span struct {
	Kind  AttrType
	Range Range
}

// Rule marks a line that carries a horizontal rule.
type Rule struct {
	Line int
}

// Fenced is a code block tagged with its declared language.
type Fenced struct {
	Lang  string
	Range Range
}

func (s Span) Type() AttrType     { return s.Kind }
func (s Span) Accept(v Visitor)   { v.VisitSpan(s) }
func (Span) sealed()              {}
func (Rule) Type() AttrType       { return AttrHorizontalRule }
func (r Rule) Accept(v Visitor)   { v.VisitRule(r) }
func (Rule) sealed()              {}
func (Fenced) Type() AttrType     { return AttrFenced }
func (f Fenced) Accept(v Visitor) { v.VisitFenced(f) }
func (Fenced) sealed()            {}

// Document is rendered hover text and the attributes that decorate it. Both use
// the same coordinate space.
type Document struct {
	Lines []string
	Attrs []Attr
}
