// Command erosim-view opens a window on a generated terrain and erodes it
// on demand.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/san-kum/erosim/internal/compute"
	"github.com/san-kum/erosim/internal/config"
	"github.com/san-kum/erosim/internal/erosion"
	"github.com/san-kum/erosim/internal/gui"
	"github.com/san-kum/erosim/internal/terrain"
)

func init() {
	// raylib must stay on the main thread
	runtime.LockOSThread()
}

func main() {
	var (
		configFile string
		preset     string
		backend    string
		width      int
		verbose    bool
	)

	rootCmd := &cobra.Command{
		Use:          "erosim-view",
		Short:        "interactive erosion viewer",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				erosion.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
			}

			cfg := config.GetPreset("quick")
			if preset != "" {
				if cfg = config.GetPreset(preset); cfg == nil {
					return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
				}
			}
			if configFile != "" {
				loaded, err := config.Load(configFile)
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				cfg = loaded
			}
			if cmd.Flags().Changed("backend") {
				cfg.Backend = backend
			}
			if cmd.Flags().Changed("width") {
				cfg.Terrain.Width = width
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			b, _ := erosion.ParseBackend(cfg.Backend)

			land, err := terrain.Generate(cfg.TerrainParams())
			if err != nil {
				return err
			}
			engine := erosion.NewEngine(cfg.ErosionParams())
			if b == erosion.GPU {
				// raylib owns the GL context, so GPU runs use the reference kernels
				if err := engine.SetDevice(compute.NewReferenceDevice()); err != nil {
					return err
				}
			}
			if err := engine.Bind(land); err != nil {
				return err
			}
			defer engine.Release()

			mesh := terrain.NewMesh(land, 1)
			engine.SetConsumer(mesh)
			gui.NewViewer(engine, mesh, b, land.MaxHeight()).Run()
			return nil
		},
	}

	f := rootCmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration (default quick)")
	f.StringVar(&backend, "backend", config.DefaultBackend, "cpu or gpu")
	f.IntVar(&width, "width", 128, "terrain width in cells")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log engine activity to stderr")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
