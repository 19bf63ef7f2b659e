package editor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/neovim/go-client/nvim/plugin"
	"github.com/sirupsen/logrus"

	"github.com/akiyosi/gonvim-hover/decorate"
	"github.com/akiyosi/gonvim-hover/lsp"
	"github.com/akiyosi/gonvim-hover/markup"
)

// ErrInvalidTimeout is returned for a timeout argument that is not a
// non-negative number of milliseconds.
var ErrInvalidTimeout = errors.New("invalid timeout")

// parseTimeout reads the optional [timeoutMs] command argument.
func parseTimeout(args []string, def int) (time.Duration, error) {
	ms := def
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(args[0]))
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeout, args[0])
		}
		ms = n
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// registryDecorator makes sure the highlight groups exist before decorating.
type registryDecorator struct {
	registry *decorate.Registry
	host     decorate.Host
	engine   *decorate.Engine
}

func (d *registryDecorator) Decorate(ctx context.Context, target decorate.Target, attrs []markup.Attr) error {
	if err := d.registry.Ensure(ctx, d.host); err != nil {
		return err
	}
	return d.engine.Decorate(ctx, target, attrs)
}

type fileTypeEval struct {
	Buf      string `eval:"expand('<abuf>')"`
	Filetype string `eval:"expand('<amatch>')"`
	Cwd      string `eval:"getcwd()"`
}

type bufDeleteEval struct {
	Buf  string `eval:"expand('<abuf>')"`
	Name string `eval:"expand('<afile>:p')"`
}

// Register installs the hover commands and autocmds on p.
func Register(p *plugin.Plugin, config Config, logger *Logger) {
	log := logger.Entry()
	host := newNvimHost(p.Nvim)
	manager := lsp.NewManager(config.Servers, config.Session.MaxServers, nil, log)
	decorator := &registryDecorator{
		registry: decorate.DefaultRegistry,
		host:     host,
		engine:   decorate.NewEngine(host, log),
	}
	hover := NewHover(
		&nvimFront{nvim: p.Nvim},
		manager,
		&nvimSurfaces{nvim: p.Nvim, config: config.Hover},
		decorator,
		logger,
	)

	p.HandleCommand(&plugin.CommandOptions{Name: "GonvimHoverFloat", NArgs: "?"}, func(args []string) error {
		timeout, err := parseTimeout(args, config.Hover.Timeout)
		if err != nil {
			return err
		}
		return hover.Float(context.Background(), timeout)
	})
	p.HandleCommand(&plugin.CommandOptions{Name: "GonvimHoverPreview", NArgs: "?"}, func(args []string) error {
		timeout, err := parseTimeout(args, config.Hover.Timeout)
		if err != nil {
			return err
		}
		return hover.Preview(context.Background(), timeout)
	})
	p.HandleCommand(&plugin.CommandOptions{Name: "GonvimHoverYank"}, func() error {
		text := hover.Last()
		if text == "" {
			return nil
		}
		return clipboard.WriteAll(text)
	})

	p.HandleAutocmd(&plugin.AutocmdOptions{Event: "FileType", Pattern: "*", Eval: "*"}, func(eval *fileTypeEval) {
		buf, err := strconv.Atoi(eval.Buf)
		if err != nil || eval.Filetype == "" {
			return
		}
		l := log.WithFields(logrus.Fields{"bufnr": buf, "filetype": eval.Filetype})
		err = manager.Attach(context.Background(), buf, eval.Filetype, fileURI(eval.Cwd))
		switch {
		case errors.Is(err, lsp.ErrNoServer):
			l.Debug("no language server")
		case err != nil:
			l.WithError(err).Warn("attach")
		}
	})
	p.HandleAutocmd(&plugin.AutocmdOptions{Event: "BufDelete", Pattern: "*", Eval: "*"}, func(eval *bufDeleteEval) {
		buf, err := strconv.Atoi(eval.Buf)
		if err != nil {
			return
		}
		manager.Detach(context.Background(), buf, fileURI(eval.Name))
	})
	// :colorscheme clears highlight groups
	p.HandleAutocmd(&plugin.AutocmdOptions{Event: "ColorScheme", Pattern: "*"}, func() {
		decorate.DefaultRegistry.Reset()
	})
	// a handler with a result makes the autocmd wait for the servers to exit
	p.HandleAutocmd(&plugin.AutocmdOptions{Event: "VimLeavePre", Pattern: "*"}, func() error {
		manager.Shutdown()
		return nil
	})
}
