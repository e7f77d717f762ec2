package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/sokinpui/codellm/cli"
	"github.com/sokinpui/codellm/internal/app"
	"github.com/sokinpui/codellm/internal/config"
	"github.com/sokinpui/codellm/internal/logs"
)

func main() {
	flags, err := cli.ParseFlags()
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	path, err := config.Path()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to locate config: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	override(cfg, flags)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, closer, err := logs.New(os.Stderr, logs.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	a, err := app.New(flags, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	err = a.Run(context.Background())
	a.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var detailed *app.DetailedError
		if errors.As(err, &detailed) {
			fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", detailed.Stack)
		}
		closer.Close()
		os.Exit(1)
	}
}

// override applies the flags that were given on top of the config file.
func override(cfg *config.Config, flags *cli.Config) {
	if flags.Model != "" {
		cfg.Model = flags.Model
	}
	if flags.APIURL != "" {
		cfg.APIURL = flags.APIURL
	}
	if flags.LogLevel != "" {
		cfg.LogLevel = flags.LogLevel
	}
	if flags.LogFile != "" {
		cfg.LogFile = flags.LogFile
	}
}
