// Package main rolls one die from the command line and prints its statistics.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/cory-johannsen/polydie/internal/analysis"
	"github.com/cory-johannsen/polydie/internal/config"
	"github.com/cory-johannsen/polydie/internal/game/dice"
	"github.com/cory-johannsen/polydie/internal/observability"
)

// options are the parsed command-line flags.
type options struct {
	configPath string
	faces      int
	rolls      int
	notation   string
	seed       uint64
	seeded     bool
	analyze    bool
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	var cfg config.Config
	if opts.configPath == "" {
		cfg, err = config.Default()
	} else {
		cfg, err = config.Load(opts.configPath)
	}
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "dieroll")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(os.Stdout, cfg, opts, logger); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("dieroll", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "path to configuration file; empty uses defaults and DIE_ environment")
	fs.IntVar(&opts.faces, "faces", -1, "face count of the die (default dice.default_faces)")
	fs.IntVar(&opts.rolls, "rolls", -1, "number of rolls (default dice.default_rolls)")
	fs.StringVar(&opts.notation, "notation", "", "NdF expression; overrides -faces and -rolls")
	fs.Uint64Var(&opts.seed, "seed", 0, "seed a reproducible source instead of the configured one")
	fs.BoolVar(&opts.analyze, "analyze", false, "print a goodness-of-fit summary of the sample")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			opts.seeded = true
		}
	})
	return opts, nil
}

// run resolves the die from opts and cfg, rolls it, and writes the report to w.
func run(w io.Writer, cfg config.Config, opts options, logger *zap.Logger) error {
	n := dice.Notation{Count: cfg.Dice.DefaultRolls, Faces: cfg.Dice.DefaultFaces}
	if opts.faces >= 0 {
		n.Faces = opts.faces
	}
	if opts.rolls >= 0 {
		n.Count = opts.rolls
	}
	if opts.notation != "" {
		parsed, err := dice.ParseNotation(opts.notation)
		if err != nil {
			return err
		}
		n = parsed
	}

	d, err := n.Die()
	if err != nil {
		return err
	}

	var src dice.Source
	if opts.seeded {
		src = dice.NewSeededSource(opts.seed)
	} else if src, err = dice.NewSourceFromConfig(cfg.Dice); err != nil {
		return err
	}
	roller := dice.NewLoggedRoller(src, logger)

	result, err := roller.Roll(d, n.Count)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s: faces=%d min=%d max=%d mean=%.2f p=%.4f\n",
		d, d.FaceCount(), d.MinValue(), d.MaxValue(), d.MeanValue(), d.Probability())
	fmt.Fprintf(w, "range %d..%d expected %.2f\n", n.Min(), n.Max(), n.Mean())
	fmt.Fprintln(w, result)

	if !opts.analyze {
		return nil
	}
	summary, err := analysis.Summarize(d, result.Values)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "mean=%.3f sd=%.3f median=%.1f chi2=%.3f df=%d p=%.4f\n",
		summary.Mean, summary.StdDev, summary.Median, summary.ChiSquare, summary.DegreesOfFreedom, summary.PValue)
	return nil
}
