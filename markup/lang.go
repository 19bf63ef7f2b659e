package markup

import (
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
)

// ResolveLang maps a code fence tag onto an installed filetype. A tag that is
// already installed, or that no lexer knows, is returned unchanged. Otherwise the
// lexer's canonical name and aliases are tried in order, so that "py" becomes
// "python" and "golang" becomes "go".
func ResolveLang(lang string, installed func(string) bool) string {
	if lang == "" || installed(lang) {
		return lang
	}
	lower := strings.ToLower(lang)
	if installed(lower) {
		return lower
	}

	lexer := lexers.Get(lower)
	if lexer == nil {
		return lang
	}
	config := lexer.Config()
	candidates := append([]string{strings.ToLower(config.Name)}, config.Aliases...)
	for _, c := range candidates {
		if installed(c) {
			return c
		}
	}

	return lang
}
