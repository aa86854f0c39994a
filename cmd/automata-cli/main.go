// Package main runs one automaton headless and prints its census.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/MRamiBalles/CellularAutomata3D/internal/engine"
	"github.com/MRamiBalles/CellularAutomata3D/internal/events"
	"github.com/MRamiBalles/CellularAutomata3D/internal/infra/storage"
	"github.com/MRamiBalles/CellularAutomata3D/internal/platform/config"
	"github.com/MRamiBalles/CellularAutomata3D/internal/platform/logger"
	"github.com/MRamiBalles/CellularAutomata3D/internal/report"
)

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	cfg, envErr := config.Bind(fs, os.Getenv)
	generations := fs.Int("generations", 100, "generations to run")
	every := fs.Int("every", 10, "print a census line every N generations, 0 for none")
	untilStable := fs.Bool("until-stable", false, "stop early once the population is stable or extinct")
	chartPath := fs.String("chart", "", "write a population chart PNG to this path")
	quiet := fs.Bool("quiet", false, "suppress engine logs")
	fs.Parse(os.Args[1:])

	if envErr != nil {
		fatal(envErr)
	}
	if err := cfg.Validate(); err != nil {
		fatal(err)
	}
	tuning, err := cfg.Tuning()
	if err != nil {
		fatal(err)
	}

	var appLogger *logger.Logger
	if *quiet {
		appLogger = logger.NewLoggerWithWriter(io.Discard)
	} else {
		appLogger = logger.NewLogger()
	}

	req := cfg.RunRequest()
	if cfg.Preset != "" {
		p, ok := storage.FindBuiltIn(cfg.Preset)
		if !ok {
			fatal(fmt.Errorf("unknown preset %q", cfg.Preset))
		}
		pinned := req
		req = p.RunRequest()
		req.SeedRNG, req.StepRNG = pinned.SeedRNG, pinned.StepRNG
	}
	spec, err := req.Spec()
	if err != nil {
		fatal(err)
	}

	eng := engine.NewEngine(events.NewEventLog(tuning.EventLogCapacity, nil), appLogger, tuning)
	if _, err := eng.Start(spec); err != nil {
		fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	started := time.Now()
	initial, _ := eng.Census()
	samples := []report.Sample{{Generation: 0, Alive: initial.Population.Alive, Dying: initial.Population.Dying}}
	fmt.Println(report.CensusLine(initial))

	for g := 1; g <= *generations && ctx.Err() == nil; g++ {
		tr, err := eng.Advance()
		if err != nil {
			fatal(err)
		}
		samples = append(samples, report.Sample{Generation: int64(g), Alive: tr.Population.Alive, Dying: tr.Population.Dying})

		census, _ := eng.Census()
		if *every > 0 && g%*every == 0 {
			fmt.Println(report.CensusLine(census))
		}
		if *untilStable && (census.Stable || census.Extinct) {
			fmt.Println(report.CensusLine(census))
			break
		}
	}

	final, _ := eng.Stop()
	fmt.Println(report.Summary(final, started))

	if *chartPath != "" {
		if err := writeChart(*chartPath, samples); err != nil {
			fatal(err)
		}
		fmt.Printf("Chart written to %s\n", *chartPath)
	}
}

func writeChart(path string, samples []report.Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.PopulationChart(f, samples); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "automata-cli:", err)
	os.Exit(1)
}
