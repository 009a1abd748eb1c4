package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/san-kum/erosim/internal/config"
	"github.com/san-kum/erosim/internal/erosion"
	"github.com/san-kum/erosim/internal/tui"
)

var (
	dataDir    string
	configFile string
	preset     string
	verbose    bool
	theme      string

	width         int
	seed          int64
	heightmapPath string

	backend       string
	steps         int
	rain          float64
	rainFrequency int
	evaporation   float64
	hydraulic     bool
	thermal       bool

	addr      string
	autostart bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "erosim",
		Short: "hydraulic and thermal terrain erosion",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				erosion.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
			}
			return tui.SetTheme(theme)
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "data directory (default from config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log engine activity to stderr")
	rootCmd.PersistentFlags().StringVar(&theme, "theme", tui.ThemeGlacier.Name, fmt.Sprintf("colour theme %v", tui.ThemeNames()))

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "generate a terrain, erode it and save the result",
		Args:  cobra.NoArgs,
		RunE:  runErosion,
	}
	addSimFlags(runCmd)

	scoreCmd := &cobra.Command{
		Use:   "score [run_id]",
		Short: "recompute the roughness of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  scoreRun,
	}

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "time the same run on both backends",
		Args:  cobra.NoArgs,
		RunE:  benchBackends,
	}
	addSimFlags(benchCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a run with its score history and a height profile",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "erode with a live terminal view",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addSimFlags(liveCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "stream the eroding terrain to websocket clients",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}
	addSimFlags(serveCmd)
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	serveCmd.Flags().BoolVar(&autostart, "autostart", false, "start eroding without waiting for a client")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "search erosion parameters for a target roughness",
		Args:  cobra.NoArgs,
		RunE:  sweep,
	}
	addSimFlags(sweepCmd)
	sweepCmd.Flags().StringArrayVar(&sweepAxes, "param", nil, "parameter range, name=v1,v2 or name=lo:hi:count (repeatable)")
	sweepCmd.Flags().Float64Var(&sweepTarget, "target", 0, "roughness to aim for")
	sweepCmd.Flags().StringVar(&sweepOut, "out", "", "write the best configuration to this yaml file")

	batchCmd := &cobra.Command{
		Use:   "batch [scenario.yaml]",
		Short: "run every erosion run listed in a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE:  batch,
	}

	rootCmd.AddCommand(runCmd, scoreCmd, benchCmd, presetsCmd, listCmd, showCmd, liveCmd, serveCmd, sweepCmd, batchCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSimFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.IntVar(&width, "width", config.DefaultWidth, "terrain width in cells")
	f.Int64Var(&seed, "seed", 1, "terrain seed")
	f.StringVar(&heightmapPath, "heightmap", "", "erode a 16-bit grayscale TIFF instead of generating terrain")
	f.StringVar(&backend, "backend", config.DefaultBackend, "cpu or gpu")
	f.IntVar(&steps, "steps", 2500, "erosion steps")
	f.Float64Var(&rain, "rain", 0.15, "rain amount")
	f.IntVar(&rainFrequency, "rain-frequency", 0, "steps between rain events, 0 for none")
	f.Float64Var(&evaporation, "ke", 1.0, "fraction of water kept each step")
	f.BoolVar(&hydraulic, "hydraulic", true, "enable hydraulic erosion")
	f.BoolVar(&thermal, "thermal", true, "enable thermal erosion")
}

// loadConfig layers defaults, preset, config file and explicitly set flags,
// later layers winning.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("width") {
		cfg.Terrain.Width = width
	}
	if flags.Changed("seed") {
		cfg.Terrain.Seed = seed
	}
	if flags.Changed("backend") {
		cfg.Backend = backend
	}
	if flags.Changed("steps") {
		cfg.Erosion.Steps = steps
	}
	if flags.Changed("rain") {
		cfg.Erosion.Rain = float32(rain)
	}
	if flags.Changed("rain-frequency") {
		cfg.Erosion.RainFrequency = rainFrequency
	}
	if flags.Changed("ke") {
		cfg.Erosion.KE = float32(evaporation)
	}
	if flags.Changed("hydraulic") {
		cfg.Erosion.Hydraulic = hydraulic
	}
	if flags.Changed("thermal") {
		cfg.Erosion.Thermal = thermal
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// storeDir resolves the data directory for commands that take no config.
func storeDir() string {
	if dataDir != "" {
		return dataDir
	}
	return config.DefaultDataDir
}
