package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/milk9111/guardpost/ecs/system"
	"github.com/milk9111/guardpost/internal/config"
	"github.com/milk9111/guardpost/internal/journal"
	"github.com/milk9111/guardpost/internal/logging"
	"github.com/milk9111/guardpost/internal/sim"
	"github.com/milk9111/guardpost/internal/telemetry"
	"github.com/milk9111/guardpost/prefabs"
	"github.com/rs/zerolog"
)

const fsmPrefab = "guard_fsm.yaml"

// run builds the configured scenario, steps it to the end and prints a
// summary to out.
func run(ctx context.Context, cfg config.Config, out, logOut io.Writer) error {
	log := logging.New(cfg.Log.Level, cfg.Log.JSON, logOut)
	if cfg.Prefabs != "" {
		prefabs.Root = cfg.Prefabs
	}

	fsm, err := system.LoadGuardFSM(fsmPrefab)
	if err != nil {
		log.Warn().Err(err).Msg("guardsim: using built-in guard state table")
		fsm = nil
	}

	s, err := sim.Load(cfg.Scenario, sim.Options{
		Seed:      cfg.Seed,
		DeltaTime: cfg.DeltaTime,
		AlertMode: cfg.AlertMode,
		FSM:       fsm,
		Logger:    &log,
	})
	if err != nil {
		return err
	}

	var rec *telemetry.Recorder
	if cfg.Telemetry.Enabled {
		rec, err = telemetry.New(nil)
		if err != nil {
			return err
		}
		s.World.Subscribe(rec.Handle)
	}

	var jr *journal.Journal
	if cfg.Journal.Path != "" {
		jr, err = journal.Open(cfg.Journal.Path, logging.Component(log, "journal"))
		if err != nil {
			return err
		}
		defer func() {
			if cerr := jr.Close(); cerr != nil {
				log.Error().Err(cerr).Msg("guardsim: closing journal")
			}
		}()
		clock := func() (int, float64) { return s.World.Ticks(), s.World.Elapsed() }
		if err := jr.Begin(s.Spec.Name, cfg.Seed, cfg.AlertMode, clock); err != nil {
			return err
		}
		s.World.Subscribe(jr.Handle)
	}

	if cfg.Watch {
		watcher, err := prefabs.NewWatcher(watchDirs(prefabs.Root)...)
		if err != nil {
			log.Warn().Err(err).Msg("guardsim: hot reload disabled")
		} else {
			defer watcher.Close()
			s.BeforeStep = func() { drainChanges(watcher, s, log) }
			log.Info().Str("dir", prefabs.Root).Msg("guardsim: watching prefabs")
		}
	}

	ticks := cfg.Ticks
	if ticks == 0 {
		ticks = s.Spec.Ticks
	}
	n := s.Run(ctx, ticks)
	log.Info().Int("ticks", n).Bool("over", s.Over()).Msg("guardsim: run finished")

	if jr != nil {
		if err := jr.End(n); err != nil {
			return err
		}
	}

	var tally *telemetry.Tally
	if rec != nil {
		t := rec.Tally()
		tally = &t
	}
	return writeReport(out, s.Report(), tally)
}

func watchDirs(root string) []string {
	dirs := []string{}
	for _, d := range []string{root, filepath.Join(root, "scripts")} {
		if info, err := os.Stat(d); err == nil && info.IsDir() {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// drainChanges applies every pending prefab edit without blocking.
func drainChanges(w *prefabs.Watcher, s *sim.Sim, log zerolog.Logger) {
	for {
		select {
		case change, ok := <-w.Events:
			if !ok {
				return
			}
			if err := applyChange(change, s); err != nil {
				log.Error().Err(err).Str("path", change.Path).Msg("guardsim: reload failed")
			}
		case err, ok := <-w.Errors:
			if ok {
				log.Warn().Err(err).Msg("guardsim: watcher error")
			}
			return
		default:
			return
		}
	}
}

func applyChange(change prefabs.Change, s *sim.Sim) error {
	switch change.Kind {
	case prefabs.ChangeScript:
		if s.Script == nil {
			return nil
		}
		return s.Script.Reload()
	case prefabs.ChangeSpec:
		switch filepath.Base(change.Path) {
		case "guard.yaml":
			spec, err := prefabs.LoadGuardSpec()
			if err != nil {
				return err
			}
			return s.ApplyGuardTuning(spec.Tuning)
		case fsmPrefab:
			fsm, err := system.LoadGuardFSM(fsmPrefab)
			if err != nil {
				return err
			}
			s.Guards.SetFSM(fsm)
			return nil
		}
	}
	return nil
}

var errNoReport = errors.New("guardsim: nothing to report")

func writeReport(out io.Writer, r sim.Report, tally *telemetry.Tally) error {
	if out == nil {
		return errNoReport
	}
	fmt.Fprintf(out, "scenario %s: %d ticks, %.1fs simulated\n", r.Scenario, r.Ticks, r.Elapsed)
	player := "alive"
	if r.PlayerDead {
		player = "dead"
	}
	fmt.Fprintf(out, "player: %s, health %.0f, armed %t\n\n", player, r.PlayerHealth, r.PlayerArmed)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GUARD\tSTATE\tHEALTH\tARMED")
	for _, g := range r.Guards {
		state := string(g.State)
		if g.Removed {
			state += " (removed)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%.0f\t%t\n", g.Name, state, g.Health, g.Armed)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if tally != nil {
		fmt.Fprintf(out, "\nshots %d (hits %d, misses %d), damage %.0f, melee %d (knockdowns %d)\n",
			tally.Shots, tally.Hits, tally.Misses, tally.Damage, tally.MeleeHits, tally.Knockdowns)
		fmt.Fprintf(out, "transitions %d, alerts %d, deaths %d, pickups %d, drops %d\n",
			tally.Transitions, tally.Alerts, tally.Deaths, tally.Pickups, tally.Drops)
	}
	return nil
}
