package editor

// Version is set at build time.
var Version = "v0.1.0"

// Options are the command line options.
type Options struct {
	Manifest string `long:"manifest" description:"Write the plugin manifest for the given host name to stdout" value-name:"HOST"`
	Location string `long:"location" description:"Write the manifest to a .vim file instead of stdout" value-name:"FILE"`
	Config   string `long:"config" description:"Path to setting.toml" value-name:"FILE"`
	Log      string `long:"log" description:"Log file, overrides [log] file" value-name:"FILE"`
	Version  bool   `long:"version" description:"Print version and exit"`
}
