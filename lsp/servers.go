package lsp

import "sort"

// ServerConfig describes how to launch a language server and which
// filetypes it serves.
type ServerConfig struct {
	Command   string   `toml:"command"`
	Args      []string `toml:"args"`
	Filetypes []string `toml:"filetypes"`
}

// DefaultServers returns built-in language server mappings keyed by server name.
func DefaultServers() map[string]ServerConfig {
	return map[string]ServerConfig{
		"gopls":    {Command: "gopls", Filetypes: []string{"go", "gomod"}},
		"tsserver": {Command: "typescript-language-server", Args: []string{"--stdio"}, Filetypes: []string{"typescript", "typescriptreact", "javascript", "javascriptreact"}},
		"pyright":  {Command: "pyright-langserver", Args: []string{"--stdio"}, Filetypes: []string{"python"}},
		"rust":     {Command: "rust-analyzer", Filetypes: []string{"rust"}},
		"clangd":   {Command: "clangd", Filetypes: []string{"c", "cpp", "objc"}},
		"jdtls":    {Command: "jdtls", Filetypes: []string{"java"}},
		"lua":      {Command: "lua-language-server", Filetypes: []string{"lua"}},
		"json":     {Command: "vscode-json-language-server", Args: []string{"--stdio"}, Filetypes: []string{"json", "jsonc"}},
		"vim":      {Command: "vim-language-server", Args: []string{"--stdio"}, Filetypes: []string{"vim"}},
	}
}

// ServersFor returns the names of servers configured for filetype, sorted
// so attach order is stable across runs.
func ServersFor(servers map[string]ServerConfig, filetype string) []string {
	var names []string
	for name, cfg := range servers {
		for _, ft := range cfg.Filetypes {
			if ft == filetype {
				names = append(names, name)
				break
			}
		}
	}
	sort.Strings(names)
	return names
}
