package decorate

import (
	"github.com/akiyosi/gonvim-hover/markup"
)

// ChannelPrefix namespaces every prop type created by this package.
const ChannelPrefix = "gonvim.hover.markup."

// HRChannel is the prop type that carries horizontal rule virtual text.
const HRChannel = ChannelPrefix + "hr"

// ChannelName returns the prop type name for an attribute kind.
func ChannelName(t markup.AttrType) string {
	return ChannelPrefix + string(t)
}

// PropTypes lists the channels a decoration pass declares: one per span kind
// and one for horizontal rules. Fenced blocks use syntax regions instead.
func PropTypes() []PropType {
	spans := markup.SpanTypes()
	types := make([]PropType, 0, len(spans)+1)
	for _, t := range spans {
		types = append(types, PropType{Name: ChannelName(t), Highlight: GroupName(t)})
	}
	return append(types, PropType{Name: HRChannel, Highlight: "Normal"})
}

// PropHighlight is one range to highlight on a channel.
type PropHighlight struct {
	Channel string
	Range   markup.Range
}

// Classified is the partition of a span list.
type Classified struct {
	PropHighlights []PropHighlight
	HRLines        []int
	Fenced         *FencedGroups
}

// FencedGroups maps a language to the ranges of its code blocks. Keys keep the
// order in which they were first seen.
type FencedGroups struct {
	langs  []string
	ranges map[string][]markup.Range
}

func newFencedGroups() *FencedGroups {
	return &FencedGroups{ranges: map[string][]markup.Range{}}
}

// Add appends r to lang's ranges, inserting lang first if it is absent.
func (g *FencedGroups) Add(lang string, r markup.Range) {
	if _, ok := g.ranges[lang]; !ok {
		g.langs = append(g.langs, lang)
	}
	g.ranges[lang] = append(g.ranges[lang], r)
}

// Langs returns the languages in first-seen order.
func (g *FencedGroups) Langs() []string {
	return append([]string(nil), g.langs...)
}

// Ranges returns the ranges recorded for lang.
func (g *FencedGroups) Ranges(lang string) []markup.Range {
	return g.ranges[lang]
}

// Len is the number of languages.
func (g *FencedGroups) Len() int {
	return len(g.langs)
}

type classifier struct {
	known map[string]struct{}
	out   Classified
}

func (c *classifier) VisitSpan(s markup.Span) {
	c.out.PropHighlights = append(c.out.PropHighlights, PropHighlight{
		Channel: ChannelName(s.Kind),
		Range:   s.Range,
	})
}

func (c *classifier) VisitRule(r markup.Rule) {
	c.out.HRLines = append(c.out.HRLines, r.Line)
}

func (c *classifier) VisitFenced(f markup.Fenced) {
	if f.Lang == "" {
		return
	}
	if _, ok := c.known[f.Lang]; !ok {
		return
	}
	c.out.Fenced.Add(f.Lang, f.Range)
}

// Classify partitions attrs in input order. Fenced blocks whose language is not
// in known are dropped. Overlapping spans are passed through as they are.
func Classify(attrs []markup.Attr, known map[string]struct{}) Classified {
	c := &classifier{
		known: known,
		out:   Classified{Fenced: newFencedGroups()},
	}
	for _, a := range attrs {
		a.Accept(c)
	}
	return c.out
}

type channelGroup struct {
	channel string
	ranges  []markup.Range
}

// groupByChannel groups highlights per channel. Channels keep the order of their
// first appearance and ranges keep their input order.
func groupByChannel(hls []PropHighlight) []channelGroup {
	var groups []channelGroup
	index := map[string]int{}
	for _, hl := range hls {
		i, ok := index[hl.Channel]
		if !ok {
			i = len(groups)
			index[hl.Channel] = i
			groups = append(groups, channelGroup{channel: hl.Channel})
		}
		groups[i].ranges = append(groups[i].ranges, hl.Range)
	}
	return groups
}
