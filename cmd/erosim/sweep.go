package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/erosim/internal/automation"
	"github.com/san-kum/erosim/internal/config"
	"github.com/san-kum/erosim/internal/erosion"
	"github.com/san-kum/erosim/internal/optim"
	"github.com/san-kum/erosim/internal/terrain"
	"github.com/san-kum/erosim/internal/tui"
)

var (
	sweepAxes   []string
	sweepTarget float64
	sweepOut    string
)

// sweep erodes the same terrain once per grid point and reports the
// parameters whose final roughness lands closest to the target.
func sweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(sweepAxes) == 0 {
		return fmt.Errorf("at least one --param is required (names: %s)", strings.Join(erosion.ParamNames, ", "))
	}

	names := make([]string, 0, len(sweepAxes))
	ranges := make([][]float64, 0, len(sweepAxes))
	for _, def := range sweepAxes {
		name, values, err := optim.ParseAxis(def)
		if err != nil {
			return err
		}
		probe := *cfg
		if err := probe.SetParam(name, values[0]); err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}

	land, err := newTerrain(cfg)
	if err != nil {
		return err
	}
	base, w := slices.Clone(land.Heights()), land.Width()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	g := optim.NewGridSearch(names, ranges)
	fmt.Printf("sweeping %d points on %dx%d terrain, target roughness %.4f\n", g.Size(), w, w, sweepTarget)
	res, err := g.Search(ctx, func(ctx context.Context, params map[string]float64) (float64, error) {
		trial, err := withParams(cfg, params)
		if err != nil {
			return 0, err
		}
		t, err := terrain.FromHeights(w, slices.Clone(base))
		if err != nil {
			return 0, err
		}
		s, err := newSession(trial, t, true)
		if err != nil {
			return 0, err
		}
		defer s.Close()

		if _, err := erode(ctx, s, nil, nil); err != nil {
			return 0, err
		}
		score, err := s.engine.Score()
		if err != nil {
			return 0, err
		}
		return math.Abs(score - sweepTarget), nil
	})
	if res != nil {
		printTrials(names, res.Trials)
	}
	if err != nil {
		return err
	}

	rows := make([][2]string, 0, len(names)+2)
	for _, n := range names {
		rows = append(rows, [2]string{n, fmt.Sprintf("%g", res.Best[n])})
	}
	rows = append(rows, [2]string{"distance", fmt.Sprintf("%.4f", res.Value)})

	if sweepOut != "" {
		best, err := withParams(cfg, res.Best)
		if err != nil {
			return err
		}
		if err := config.Save(sweepOut, best); err != nil {
			return err
		}
		rows = append(rows, [2]string{"saved", sweepOut})
	}
	fmt.Println(tui.Summary("BEST", rows))
	return nil
}

func withParams(cfg *config.Config, params map[string]float64) (*config.Config, error) {
	c := *cfg
	for k, v := range params {
		if err := c.SetParam(k, v); err != nil {
			return nil, err
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func printTrials(names []string, trials []optim.Trial) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(names, "\t"))+"\tDISTANCE")
	for _, t := range trials {
		for _, n := range names {
			fmt.Fprintf(w, "%g\t", t.Params[n])
		}
		if t.Err != nil {
			fmt.Fprintf(w, "error: %v\n", t.Err)
			continue
		}
		fmt.Fprintf(w, "%.4f\n", t.Value)
	}
	w.Flush()
}

func batch(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if sc.Description != "" {
		fmt.Printf("%s: %s\n", sc.Name, sc.Description)
	}
	results, err := automation.RunScenario(ctx, sc, dataDir, func(ctx context.Context, name string, cfg *config.Config) (automation.Outcome, error) {
		fmt.Printf("[%s] ", name)
		res, err := erodeAndSave(ctx, cfg)
		if err != nil {
			return automation.Outcome{}, err
		}
		return automation.Outcome{
			RunID:       res.id,
			Steps:       res.stats.Steps,
			Elapsed:     res.stats.Elapsed,
			ScoreBefore: res.before,
			ScoreAfter:  res.after,
		}, nil
	})

	if len(results) > 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tID\tSTEPS\tELAPSED\tBEFORE\tAFTER")
		for _, r := range results {
			fmt.Fprintf(w, "%s\t%s\t%d\t%.2fs\t%.4f\t%.4f\n",
				r.Name, r.RunID, r.Steps, r.Elapsed.Seconds(), r.ScoreBefore, r.ScoreAfter)
		}
		w.Flush()
	}
	return err
}
