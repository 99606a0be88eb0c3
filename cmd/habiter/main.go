package main

import (
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/habiter/habiter/internal/cli"
	"github.com/habiter/habiter/internal/config"
	"github.com/habiter/habiter/internal/constants"
	apperr "github.com/habiter/habiter/internal/errors"
	"github.com/habiter/habiter/internal/habits"
	"github.com/habiter/habiter/internal/logger"
	"github.com/habiter/habiter/internal/storage"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Config file path." type:"string" default:"${config_file}"`
	Debug   bool   `help:"Enable debug logging."`

	Init    cli.InitCmd    `cmd:"" help:"Initialize habiter storage."`
	Setup   cli.SetupCmd   `cmd:"" help:"Generate this month's tracking slots."`
	Habit   cli.HabitCmd   `cmd:"" help:"Manage habits."`
	Checkin cli.CheckinCmd `cmd:"" help:"Record a check-in (or list what is ready for one)."`
	Slots   cli.SlotsCmd   `cmd:"" help:"List active tracking slots."`
	Events  cli.EventsCmd  `cmd:"" help:"List recorded check-ins."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("On-device recurring habit tracker"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version":     constants.Version,
			"config_file": constants.DefaultConfigPath,
		},
	)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		apperr.Fatal(err)
	}

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		apperr.Fatal(err)
	}

	if err := logger.Init(logger.Config{
		Debug:     CLI.Debug || cfg.Logging.Debug,
		ConfigDir: filepath.Dir(dbPath),
	}); err != nil {
		apperr.Fatalf("failed to initialize logging: %v", err)
	}

	store := storage.NewStore(dbPath)
	appCtx := &cli.Context{
		Store:   store,
		Service: habits.NewService(store),
	}

	// Open the store up front for everything but init, which creates it.
	if ctx.Selected() != nil && ctx.Selected().Name != "init" {
		if err := store.Load(); err != nil {
			apperr.Fatal(err)
		}
	}

	err = ctx.Run(appCtx)
	store.Close()
	if err != nil {
		apperr.Fatal(err)
	}
}
