package cli

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

// Config holds all the command-line flag values. Empty strings mean the
// value from the config file is kept.
type Config struct {
	Model       string
	APIURL      string
	Apply       bool
	Yes         bool
	PrintDiff   bool
	Undo        bool
	Redo        bool
	NoContext   bool
	NoAnimation bool
	LogLevel    string
	LogFile     string
	Nvim        string
	Extensions  []string
}

// ParseFlags parses the process arguments.
func ParseFlags() (*Config, error) {
	return Parse(os.Args[1:])
}

// Parse defines and parses command-line flags using pflag.
func Parse(args []string) (*Config, error) {
	cfg := &Config{}
	flags := pflag.NewFlagSet("code-llm", pflag.ContinueOnError)

	flags.StringVarP(&cfg.Model, "model", "m", "", "Ollama model to chat with (overrides the config file).")
	flags.StringVar(&cfg.APIURL, "api-url", "", "Ollama API base URL (overrides the config file).")
	flags.BoolVarP(&cfg.Apply, "apply", "a", false, "Apply a response read from stdin (pipe) or the clipboard instead of chatting.")
	flags.BoolVarP(&cfg.Yes, "yes", "y", false, "Apply every suggestion without asking.")
	flags.BoolVarP(&cfg.PrintDiff, "print-diff", "o", false, "Print the recomputed unified diff of every suggestion and exit.")
	flags.BoolVar(&cfg.NoContext, "no-context", false, "Do not send the directory content to the model.")
	flags.BoolVar(&cfg.NoAnimation, "no-animation", false, "Disable the loading spinner.")
	flags.StringVar(&cfg.LogLevel, "log-level", "", "Terminal log level: debug, info, warn or error.")
	flags.StringVar(&cfg.LogFile, "log-file", "", "Also write a JSON debug log to this file.")
	flags.StringVar(&cfg.Nvim, "nvim", "", "Neovim socket to notify after writing (default $NVIM_LISTEN_ADDRESS or $NVIM).")
	flags.StringSliceVarP(&cfg.Extensions, "extension", "e", []string{}, "Only apply files with these extensions (e.g., 'py', 'go').")

	// Mutually exclusive history group
	flags.BoolVarP(&cfg.Undo, "undo", "u", false, "Undo the last applied batch.")
	flags.BoolVarP(&cfg.Redo, "redo", "r", false, "Redo the last undone batch.")

	flags.Usage = func() {
		fmt.Println("Usage: code-llm [flags]")
		fmt.Println("\nChat with a local Ollama model about the current directory and apply its suggested edits.")
		fmt.Println("\nExample: pbpaste | code-llm --apply -e go")
		fmt.Println("\nFlags:")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	// Validate mutually exclusive flags
	if cfg.Undo && cfg.Redo {
		return nil, fmt.Errorf("error: --undo and --redo are mutually exclusive")
	}
	if (cfg.Undo || cfg.Redo) && (cfg.Apply || cfg.PrintDiff) {
		return nil, fmt.Errorf("error: --undo/--redo cannot be combined with --apply or --print-diff")
	}

	// Normalize extensions
	for i, ext := range cfg.Extensions {
		if len(ext) > 0 && ext[0] != '.' {
			cfg.Extensions[i] = "." + ext
		}
	}

	return cfg, nil
}
