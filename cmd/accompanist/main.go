package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/Conceptual-Machines/magda-accompanist/internal/render"
	"github.com/Conceptual-Machines/magda-accompanist/internal/theory"
)

// Build flags
var version = ""
var commit = ""
var date = ""

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cmd := newCommand()
	if err := cmd.ParseAndRun(ctx, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func newCommand() *ffcli.Command {
	fs := flag.NewFlagSet("accompanist", flag.ExitOnError)

	return &ffcli.Command{
		ShortUsage: "accompanist [flags] <subcommand>",
		FlagSet:    fs,
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
		Subcommands: []*ffcli.Command{
			newVersionCommand(),
			newGenerateCommand(),
			newBatchCommand(),
			newGenresCommand(),
		},
	}
}

func newVersionCommand() *ffcli.Command {
	return &ffcli.Command{
		Name:       "version",
		ShortUsage: "accompanist version",
		ShortHelp:  "print version",
		Exec: func(ctx context.Context, args []string) error {
			v := version
			if v == "" {
				if buildInfo, ok := debug.ReadBuildInfo(); ok {
					v = buildInfo.Main.Version
				}
			}
			if v == "" {
				v = "dev"
			}
			versionFields := []string{v}
			if commit != "" {
				versionFields = append(versionFields, commit)
			}
			if date != "" {
				versionFields = append(versionFields, date)
			}
			fmt.Println(strings.Join(versionFields, " "))
			return nil
		},
	}
}

func newGenerateCommand() *ffcli.Command {
	cmd := "generate"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &render.Config{}
	fs.StringVar(&cfg.Theory, "theory", "", "theory YAML overrides")
	fs.StringVar(&cfg.Root, "root", "C", "root note name or MIDI number")
	fs.StringVar(&cfg.Genre, "genre", "pop", "genre preset")
	fs.StringVar(&cfg.Structure, "structure", "", "comma-separated sections, overrides the genre's form")
	fs.StringVar(&cfg.Mode, "mode", "", "scale mode for the melody")
	fs.Int64Var(&cfg.Seed, "seed", 0, "random seed (0 picks one)")
	fs.StringVar(&cfg.Swing, "swing", "", "force swing on or off (true/false)")
	fs.IntVar(&cfg.Tempo, "tempo", 0, "tempo in BPM (0 uses the genre's)")
	fs.StringVar(&cfg.Comp, "comp", "", "comp pattern for the piano (default the genre's)")
	fs.StringVar(&cfg.Progression, "progression", "", "library progression played by every section")
	fs.IntVar(&cfg.Inversion, "inversion", 0, "chord inversion for the piano voicings")
	fs.StringVar(&cfg.Arp, "arp", "", "add an arpeggio track using this comp pattern")
	fs.IntVar(&cfg.Bars, "length", 0, "song length in bars (0 uses the genre's form)")
	fs.StringVar(&cfg.Dynamics, "dynamics", "", "dynamic level, pp to fff (default the genre's)")
	fs.StringVar(&cfg.Format, "format", "midi", "output format (midi, json)")
	fs.StringVar(&cfg.Output, "output", "output", "output folder")
	fs.StringVar(&cfg.Name, "name", "", "output file name")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("accompanist %s [flags]", cmd),
		Options: []ff.Option{
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ff.PlainParser),
			ff.WithEnvVarPrefix("accompanist"),
		},
		ShortHelp: "generate one arrangement",
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			_, err := render.Run(ctx, cfg)
			return err
		},
	}
}

func newBatchCommand() *ffcli.Command {
	cmd := "batch"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &render.BatchConfig{}
	fs.StringVar(&cfg.Theory, "theory", "", "theory YAML overrides")
	fs.IntVar(&cfg.Count, "count", 10, "number of arrangements")
	fs.Int64Var(&cfg.Seed, "seed", 0, "base random seed (0 picks one)")
	fs.StringVar(&cfg.Genres, "genres", "", "comma-separated genres to pick from (default all)")
	fs.IntVar(&cfg.Bars, "length", 0, "song length in bars (0 uses the genre's form)")
	fs.StringVar(&cfg.Format, "format", "midi", "output format (midi, json)")
	fs.StringVar(&cfg.Output, "output", "output", "output folder")
	fs.StringVar(&cfg.Prefix, "prefix", "song_", "file name prefix")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("accompanist %s [flags]", cmd),
		Options: []ff.Option{
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ff.PlainParser),
			ff.WithEnvVarPrefix("accompanist"),
		},
		ShortHelp: "generate many arrangements with random roots and genres",
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			_, err := render.Batch(ctx, cfg)
			return err
		},
	}
}

func newGenresCommand() *ffcli.Command {
	cmd := "genres"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	theoryFile := fs.String("theory", "", "theory YAML overrides")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("accompanist %s [flags]", cmd),
		Options: []ff.Option{
			ff.WithEnvVarPrefix("accompanist"),
		},
		ShortHelp: "list genre presets",
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			th := theory.Default()
			if *theoryFile != "" {
				var err error
				if th, err = theory.LoadFile(*theoryFile); err != nil {
					return err
				}
			}
			for _, name := range th.GenreNames() {
				g, _ := th.Genre(name)
				swing := ""
				if g.Swing {
					swing = " swing"
				}
				comp := g.Comp
				if comp == "" {
					comp = "-"
				}
				dyn := g.Dynamics
				if dyn == "" {
					dyn = th.DefaultDynamics()
				}
				fmt.Printf("%-12s %-10s %-14s %-3s %d-%d bpm%s  %s\n", name, g.Mode, comp, dyn, g.TempoMin, g.TempoMax, swing, strings.Join(g.Structure, " "))
			}
			fmt.Println("\nprogressions:")
			for _, name := range th.ProgressionNames() {
				p, _ := th.Progression(name)
				fmt.Printf("  %-18s %s\n", name, strings.Join(p, " "))
			}
			fmt.Printf("\ncomp patterns: %s\n", strings.Join(th.CompPatternNames(), ", "))
			fmt.Printf("dynamics: %s\n", strings.Join(th.DynamicsNames(), ", "))
			return nil
		},
	}
}
