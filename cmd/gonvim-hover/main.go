package main

import (
	"fmt"
	"log"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/mattn/go-isatty"
	"github.com/neovim/go-client/nvim"
	"github.com/neovim/go-client/nvim/plugin"

	"github.com/akiyosi/gonvim-hover/editor"
)

func main() {
	// parse args
	options, parser := parseArgs()
	if options.Version {
		fmt.Println(editor.Version)
		os.Exit(0)
	}

	configPath := options.Config
	if configPath == "" {
		p, err := editor.DefaultConfigPath()
		if err != nil {
			log.Println(err)
		}
		configPath = p
	}
	config, err := editor.LoadConfig(configPath)
	if err != nil {
		log.Println(err)
	}

	if options.Manifest != "" {
		if err := writeManifest(options.Manifest, options.Location, config); err != nil {
			log.Fatal(err)
		}
		return
	}

	// Neovim starts the plugin with stdin on a pipe
	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		parser.WriteHelp(os.Stderr)
		os.Exit(1)
	}

	logFile := config.Log.File
	if options.Log != "" {
		logFile = options.Log
	}
	logger, err := editor.NewLogger(logFile, config.Log.Level)
	if err != nil {
		log.Println(err)
	}
	defer logger.Close()

	if err := serve(config, logger); err != nil {
		logger.Entry().WithError(err).Error("serve")
		log.Fatal(err)
	}
}

// parseArgs parse args
func parseArgs() (editor.Options, *flags.Parser) {
	var options editor.Options
	parser := flags.NewParser(&options, flags.HelpFlag|flags.PassDoubleDash)
	_, err := parser.ParseArgs(os.Args[1:])
	if flagsErr, ok := err.(*flags.Error); ok {
		switch flagsErr.Type {
		case flags.ErrDuplicatedFlag:
		case flags.ErrHelp:
			fmt.Println(err)
			os.Exit(1)
		default:
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}

	return options, parser
}

func writeManifest(host, location string, config editor.Config) error {
	p := plugin.New(nil)
	editor.Register(p, config, nil)
	manifest := p.Manifest(host)
	if location == "" {
		_, err := os.Stdout.Write(manifest)
		return err
	}
	return os.WriteFile(location, manifest, 0o644)
}

func serve(config editor.Config, logger *editor.Logger) error {
	// stdout carries msgpack-rpc
	stdout := os.Stdout
	os.Stdout = os.Stderr
	log.SetFlags(0)

	v, err := nvim.New(os.Stdin, stdout, stdout, logger.Entry().Debugf)
	if err != nil {
		return err
	}
	p := plugin.New(v)
	editor.Register(p, config, logger)

	return v.Serve()
}
