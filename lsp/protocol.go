package lsp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"fortio.org/safecast"
)

// Position in a text document (0-based line and UTF-16 character).
type Position struct {
	Line      uint32 `json:"line"`
	Character uint32 `json:"character"`
}

// NewPosition converts editor ints into a protocol position.
func NewPosition(line, character int) (Position, error) {
	l, err := safecast.Conv[uint32](line)
	if err != nil {
		return Position{}, fmt.Errorf("line %d: %w", line, err)
	}
	c, err := safecast.Conv[uint32](character)
	if err != nil {
		return Position{}, fmt.Errorf("character %d: %w", character, err)
	}
	return Position{Line: l, Character: c}, nil
}

// Range in a text document.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// TextDocumentIdentifier identifies a text document.
type TextDocumentIdentifier struct {
	URI string `json:"uri"`
}

// VersionedTextDocumentIdentifier identifies a specific version of a document.
type VersionedTextDocumentIdentifier struct {
	URI     string `json:"uri"`
	Version int    `json:"version"`
}

// TextDocumentItem is a document transferred on didOpen.
type TextDocumentItem struct {
	URI        string `json:"uri"`
	LanguageID string `json:"languageId"`
	Version    int    `json:"version"`
	Text       string `json:"text"`
}

// TextDocumentPositionParams is a document and a position inside it.
type TextDocumentPositionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
}

// HoverParams are the parameters of textDocument/hover.
type HoverParams = TextDocumentPositionParams

// MarkupContent is the normalized form of hover contents.
type MarkupContent struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// Hover is the result of textDocument/hover.
type Hover struct {
	Contents MarkupContent `json:"contents"`
	Range    *Range        `json:"range,omitempty"`
}

type markedString struct {
	Language string `json:"language"`
	Value    string `json:"value"`
}

func (m markedString) markdown() string {
	if m.Language == "" {
		return m.Value
	}
	return "```" + m.Language + "\n" + m.Value + "\n```"
}

func decodeMarkedString(data []byte) (string, error) {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s, nil
	}
	var ms markedString
	if err := json.Unmarshal(data, &ms); err != nil {
		return "", err
	}
	return ms.markdown(), nil
}

// UnmarshalJSON accepts MarkupContent, MarkedString and MarkedString[].
// MarkedStrings are folded into markdown.
func (c *MarkupContent) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*c = MarkupContent{Kind: "plaintext"}
		return nil

	case data[0] == '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			s, err := decodeMarkedString(item)
			if err != nil {
				return err
			}
			parts = append(parts, s)
		}
		*c = MarkupContent{Kind: "markdown", Value: strings.Join(parts, "\n\n---\n\n")}
		return nil

	case data[0] == '{':
		var obj struct {
			Kind     *string `json:"kind"`
			Value    string  `json:"value"`
			Language string  `json:"language"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		if obj.Kind != nil {
			*c = MarkupContent{Kind: *obj.Kind, Value: obj.Value}
			return nil
		}
		ms := markedString{Language: obj.Language, Value: obj.Value}
		*c = MarkupContent{Kind: "markdown", Value: ms.markdown()}
		return nil
	}

	s, err := decodeMarkedString(data)
	if err != nil {
		return err
	}
	*c = MarkupContent{Kind: "markdown", Value: s}
	return nil
}

// ServerCapabilities holds the capabilities a server advertised. Only the
// fields this plugin consults are decoded.
type ServerCapabilities struct {
	HoverProvider json.RawMessage `json:"hoverProvider,omitempty"`
}

// SupportsHover reports whether hoverProvider is true or a HoverOptions object.
func (c ServerCapabilities) SupportsHover() bool {
	raw := bytes.TrimSpace(c.HoverProvider)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	return raw[0] == '{'
}

// InitializeResult is the result of initialize.
type InitializeResult struct {
	Capabilities ServerCapabilities `json:"capabilities"`
	ServerInfo   *struct {
		Name    string `json:"name"`
		Version string `json:"version,omitempty"`
	} `json:"serverInfo,omitempty"`
}

// clientCapabilities advertises what this client understands.
func clientCapabilities() map[string]interface{} {
	return map[string]interface{}{
		"textDocument": map[string]interface{}{
			"hover": map[string]interface{}{
				"dynamicRegistration": false,
				"contentFormat":       []string{"markdown", "plaintext"},
			},
			"synchronization": map[string]interface{}{
				"dynamicRegistration": false,
			},
		},
		"general": map[string]interface{}{
			"positionEncodings": []string{"utf-16"},
		},
	}
}
