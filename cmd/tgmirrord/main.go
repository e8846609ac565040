package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/olekv/tgmirror/internal/config"
	"github.com/olekv/tgmirror/internal/daemon"
	"go.uber.org/fx"
)

func main() {
	configFlag := flag.String("config", "", "config file path (default ~/.tgmirror/config.toml)")
	flag.Parse()

	path := *configFlag
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		path = filepath.Join(home, ".tgmirror", "config.toml")
	}

	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = config.Default(filepath.Dir(path))
		if err := config.Save(path, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "error: cannot write default config: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "wrote default config to %s; set api_id and api_hash, then restart\n", path)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid config: %v\n", err)
		os.Exit(1)
	}

	app := fx.New(
		daemon.Module(daemon.Params{Config: cfg}),
	)

	app.Run()
}
