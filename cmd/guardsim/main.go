package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/milk9111/guardpost/internal/config"
	"github.com/milk9111/guardpost/prefabs"
	"github.com/spf13/viper"
)

func main() {
	configDir := flag.String("config", ".", "directory holding guardsim.yaml")
	scenario := flag.String("scenario", "", "scenario name in prefabs/scenarios (basename, .yaml optional)")
	ticks := flag.Int("ticks", 0, "ticks to run; 0 uses the scenario's own limit")
	dt := flag.Float64("dt", 0, "seconds per tick")
	seed := flag.Int64("seed", 0, "random seed")
	alertMode := flag.String("alert", "", "alert delivery: direct or queued")
	watch := flag.Bool("watch", false, "hot reload prefabs and scripts while running")
	journalPath := flag.String("journal", "", "write events to this SQLite file")
	logLevel := flag.String("log", "", "log level (trace, debug, info, warn, error)")
	jsonLogs := flag.Bool("json", false, "log as JSON")
	list := flag.Bool("list", false, "list the embedded scenarios and exit")
	flag.Parse()

	if *list {
		names, err := prefabs.Scenarios()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return
	}

	v := viper.New()
	// explicit flags win over the config file and environment
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "scenario":
			v.Set("scenario", *scenario)
		case "ticks":
			v.Set("ticks", *ticks)
		case "dt":
			v.Set("dt", *dt)
		case "seed":
			v.Set("seed", *seed)
		case "alert":
			v.Set("alertMode", *alertMode)
		case "watch":
			v.Set("watch", *watch)
		case "journal":
			v.Set("journal.path", *journalPath)
		case "log":
			v.Set("log.level", *logLevel)
		case "json":
			v.Set("log.json", *jsonLogs)
		}
	})

	cfg, err := config.Load(v, *configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
