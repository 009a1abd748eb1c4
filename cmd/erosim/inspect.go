package main

import (
	"fmt"
	"maps"
	"math"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/erosim/internal/analysis"
	"github.com/san-kum/erosim/internal/config"
	"github.com/san-kum/erosim/internal/storage"
)

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tWIDTH\tSTEPS\tRAIN\tFREQ\tKE\tHYDRAULIC\tTHERMAL")
	for _, name := range config.ListPresets() {
		c := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%d\t%d\t%.2f\t%d\t%.2f\t%v\t%v\n",
			name,
			c.Terrain.Width,
			c.Erosion.Steps,
			c.Erosion.Rain,
			c.Erosion.RainFrequency,
			c.Erosion.KE,
			c.Erosion.Hydraulic,
			c.Erosion.Thermal,
		)
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(storeDir())
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tBACKEND\tWIDTH\tSTEPS\tELAPSED\tBEFORE\tAFTER")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.2fs\t%.4f\t%.4f\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Backend,
			run.Width,
			run.Steps,
			float64(run.ElapsedMS)/1000,
			run.ScoreBefore,
			run.ScoreAfter,
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(storeDir())
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("backend: %s\n", meta.Backend)
	fmt.Printf("terrain: %dx%d seed %d\n", meta.Width, meta.Width, meta.Terrain.Seed)
	fmt.Printf("steps: %d (%.2fs)\n", meta.Steps, float64(meta.ElapsedMS)/1000)
	fmt.Printf("heights: %.2f .. %.2f\n", meta.MinHeight, meta.MaxHeight)
	fmt.Printf("roughness: %.4f -> %.4f\n", meta.ScoreBefore, meta.ScoreAfter)
	for _, k := range slices.Sorted(maps.Keys(meta.Metrics)) {
		fmt.Printf("%s: %.4f\n", k, meta.Metrics[k])
	}
	fmt.Println()

	scores, err := st.LoadScores(runID)
	if err != nil {
		return err
	}
	if len(scores) > 1 {
		data := make([]float64, len(scores))
		for i, s := range scores {
			data[i] = s.Score
		}
		fmt.Println(asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("roughness by sample"),
		))
		fmt.Println()
	}

	heights, w, err := st.LoadHeights(runID)
	if err != nil {
		return err
	}
	mid := w / 2
	profile := make([]float64, w)
	for x := 0; x < w; x++ {
		profile[x] = float64(heights[mid*w+x])
	}
	fmt.Println(asciigraph.Plot(profile,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("height along row %d", mid)),
	))

	spectrum, err := analysis.RadialSpectrum(heights, w)
	if err != nil {
		return err
	}
	logPower := make([]float64, 0, len(spectrum))
	for _, p := range spectrum[1:] {
		if p > 0 {
			logPower = append(logPower, math.Log10(p))
		}
	}
	if len(logPower) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(logPower,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("log10 power by wavenumber"),
		))
	}
	return nil
}
