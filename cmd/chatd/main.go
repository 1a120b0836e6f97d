package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/matheus3301/storechat/internal/config"
	"github.com/matheus3301/storechat/internal/daemon"
	"github.com/matheus3301/storechat/internal/instance"
	"go.uber.org/fx"
)

func main() {
	instanceFlag := flag.String("instance", "", "instance name (overrides config default)")
	configFlag := flag.String("config", "", "config file (default ~/.storechat/config.toml)")
	httpFlag := flag.String("http", "", "HTTP gateway address, e.g. :8080 (overrides config)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error: load .env: %v\n", err)
		os.Exit(1)
	}

	cfgPath := *configFlag
	if cfgPath == "" {
		cfgPath = instance.ConfigPath()
	}
	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: load config %s: %v\n", cfgPath, err)
		os.Exit(1)
	}
	cfg.ApplyEnv()
	if *httpFlag != "" {
		cfg.HTTP.Addr = *httpFlag
	}

	name := *instanceFlag
	if name == "" {
		name = cfg.DefaultInstance
	}
	if name == "" {
		name = instance.DefaultName
	}
	if err := instance.ValidateName(name); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	app := fx.New(
		daemon.Module(daemon.Params{InstanceName: name, Config: cfg}),
	)

	app.Run()
}
