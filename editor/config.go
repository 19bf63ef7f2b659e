package editor

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/BurntSushi/toml"
	homedir "github.com/mitchellh/go-homedir"

	"github.com/akiyosi/gonvim-hover/lsp"
	"github.com/akiyosi/gonvim-hover/util"
)

// hoverConfig is the following toml file
// # gonvim-hover config toml
// [hover]
// timeout = 5000    # ms, >= 1
// border = "double" # any nvim_open_win border
// maxWidth = 80     # >= 10
// maxHeight = 20    # >= 1
//
// [session]
// maxServers = 8    # >= 1
//
// [log]
// file = "~/.gonvim-hover/hover.log"
// level = "info"
//
// [servers.gopls]
// command = "gopls"
// args = []
// filetypes = ["go", "gomod"]
type hoverConfig struct {
	Hover   hoverSection
	Session sessionConfig
	Log     logConfig
	Servers map[string]lsp.ServerConfig
}

type hoverSection struct {
	Timeout   int
	Border    string
	MaxWidth  int
	MaxHeight int
}

type sessionConfig struct {
	MaxServers int
}

type logConfig struct {
	File  string
	Level string
}

// Config is the loaded plugin configuration.
type Config = hoverConfig

// DefaultConfigPath is ~/.gonvim-hover/setting.toml.
func DefaultConfigPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".gonvim-hover", "setting.toml"), nil
}

// LoadConfig reads the config at path. A missing file yields the defaults;
// a malformed one yields the defaults and the decode error.
func LoadConfig(path string) (Config, error) {
	var config hoverConfig

	config.init()

	var err error
	if path != "" {
		path, err = util.ExpandTildeToHomeDirectory(path)
		if err == nil {
			_, err = toml.DecodeFile(path, &config)
		}
		if errors.Is(err, fs.ErrNotExist) {
			err = nil
		}
		if err != nil {
			err = fmt.Errorf("config %s: %w", path, err)
			config = hoverConfig{}
			config.init()
		}
	}

	config.clamp()

	return config, err
}

func (c *hoverConfig) init() {
	// Set default value
	c.Hover.Timeout = 5000
	c.Hover.Border = "double"
	c.Hover.MaxWidth = 80
	c.Hover.MaxHeight = 20

	c.Session.MaxServers = 8

	c.Log.Level = "info"
}

func (c *hoverConfig) clamp() {
	if c.Hover.Timeout < 1 {
		c.Hover.Timeout = 5000
	}
	if c.Hover.Border == "" {
		c.Hover.Border = "double"
	}
	if c.Hover.MaxWidth < 10 {
		c.Hover.MaxWidth = 10
	}
	if c.Hover.MaxHeight < 1 {
		c.Hover.MaxHeight = 1
	}

	if c.Session.MaxServers < 1 {
		c.Session.MaxServers = 1
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	if len(c.Servers) == 0 {
		c.Servers = lsp.DefaultServers()
	}
	for name, s := range c.Servers {
		if s.Command == "" {
			delete(c.Servers, name)
		}
	}
}
