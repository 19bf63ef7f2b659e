package decorate

import (
	"reflect"
	"testing"

	"github.com/akiyosi/gonvim-hover/markup"
)

func knownSet(names ...string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

func TestClassify(t *testing.T) {
	attrs := []markup.Attr{
		markup.Span{Kind: markup.AttrTitle, Range: markup.Rng(0, 0, 0, 5)},
		markup.Fenced{Lang: "go", Range: markup.Rng(2, 0, 4, 1)},
		markup.Rule{Line: 5},
		markup.Fenced{Lang: "rust", Range: markup.Rng(6, 0, 7, 0)},
		markup.Span{Kind: markup.AttrBold, Range: markup.Rng(8, 0, 8, 3)},
		markup.Fenced{Lang: "", Range: markup.Rng(9, 0, 10, 0)},
		markup.Span{Kind: markup.AttrBold, Range: markup.Rng(8, 1, 8, 2)},
		markup.Fenced{Lang: "go", Range: markup.Rng(11, 0, 12, 0)},
		markup.Rule{Line: 13},
	}

	got := Classify(attrs, knownSet("go"))

	wantHighlights := []PropHighlight{
		{Channel: "gonvim.hover.markup.title", Range: markup.Rng(0, 0, 0, 5)},
		{Channel: "gonvim.hover.markup.bold", Range: markup.Rng(8, 0, 8, 3)},
		{Channel: "gonvim.hover.markup.bold", Range: markup.Rng(8, 1, 8, 2)},
	}
	if !reflect.DeepEqual(got.PropHighlights, wantHighlights) {
		t.Errorf("Classify() PropHighlights = %v, want %v", got.PropHighlights, wantHighlights)
	}
	if want := []int{5, 13}; !reflect.DeepEqual(got.HRLines, want) {
		t.Errorf("Classify() HRLines = %v, want %v", got.HRLines, want)
	}
	if want := []string{"go"}; !reflect.DeepEqual(got.Fenced.Langs(), want) {
		t.Errorf("Classify() fenced langs = %v, want %v", got.Fenced.Langs(), want)
	}
	wantGo := []markup.Range{markup.Rng(2, 0, 4, 1), markup.Rng(11, 0, 12, 0)}
	if !reflect.DeepEqual(got.Fenced.Ranges("go"), wantGo) {
		t.Errorf("Classify() go ranges = %v, want %v", got.Fenced.Ranges("go"), wantGo)
	}
}

func TestClassify_idempotent(t *testing.T) {
	attrs := []markup.Attr{
		markup.Span{Kind: markup.AttrLink, Range: markup.Rng(0, 0, 0, 5)},
		markup.Fenced{Lang: "python", Range: markup.Rng(1, 0, 2, 0)},
		markup.Rule{Line: 3},
	}
	known := knownSet("python")

	first := Classify(attrs, known)
	second := Classify(attrs, known)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Classify() is not idempotent: %v != %v", first, second)
	}
}

func TestClassify_unknownLanguagesAreDropped(t *testing.T) {
	langs := []string{"", "python", "go", "nosuch"}
	for _, lang := range langs {
		got := Classify([]markup.Attr{markup.Fenced{Lang: lang, Range: markup.Rng(0, 0, 1, 0)}}, knownSet())
		if got.Fenced.Len() != 0 {
			t.Errorf("Classify() admitted %q with no known filetypes", lang)
		}
	}
}

func TestPropTypes(t *testing.T) {
	types := PropTypes()
	if len(types) != 10 {
		t.Fatalf("PropTypes() has %d entries, want 10", len(types))
	}
	if hasPropType(types, ChannelName(markup.AttrFenced)) {
		t.Errorf("PropTypes() has a channel for fenced blocks")
	}
	if last := types[len(types)-1]; last != (PropType{Name: HRChannel, Highlight: "Normal"}) {
		t.Errorf("PropTypes() last = %v, want the hr channel", last)
	}
	defined := map[string]bool{}
	for _, hl := range defaultHighlights() {
		defined[hl.Name] = true
	}
	for _, pt := range types[:len(types)-1] {
		if !defined[pt.Highlight] {
			t.Errorf("prop type %v uses undefined group %v", pt.Name, pt.Highlight)
		}
	}
}

func TestGroupByChannel(t *testing.T) {
	hls := []PropHighlight{
		{Channel: "a", Range: markup.Rng(0, 0, 0, 1)},
		{Channel: "b", Range: markup.Rng(0, 1, 0, 2)},
		{Channel: "a", Range: markup.Rng(0, 2, 0, 3)},
	}
	want := []channelGroup{
		{channel: "a", ranges: []markup.Range{markup.Rng(0, 0, 0, 1), markup.Rng(0, 2, 0, 3)}},
		{channel: "b", ranges: []markup.Range{markup.Rng(0, 1, 0, 2)}},
	}
	if got := groupByChannel(hls); !reflect.DeepEqual(got, want) {
		t.Errorf("groupByChannel() = %v, want %v", got, want)
	}
}
