package main

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/marbles"
	"github.com/banshee-data/marbles/internal/api"
	"github.com/banshee-data/marbles/internal/config"
	"github.com/banshee-data/marbles/internal/db"
	"github.com/banshee-data/marbles/internal/launch"
	"github.com/banshee-data/marbles/internal/sim"
	"github.com/banshee-data/marbles/internal/track"
	"github.com/banshee-data/marbles/internal/units"
)

type runFlags struct {
	stripFlags
	track      string
	background bool
	listen     string
	dbPath     string
	units      string
	devMode    bool
}

func newRunCmd() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation and the launch server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMarbles(cmd, f)
		},
	}
	f.stripFlags.register(cmd)
	cmd.Flags().StringVar(&f.track, "track", "", "Track profile JSON (built-in profile when empty)")
	cmd.Flags().BoolVar(&f.background, "background", false, "Draw the track height overlay under the marbles")
	cmd.Flags().StringVar(&f.listen, "listen", ":8000", "Listen address")
	cmd.Flags().StringVar(&f.dbPath, "db", "marbles.db", "Launch history database (empty disables recording)")
	cmd.Flags().StringVar(&f.units, "units", units.MPS, "Speed units for /api/state: "+units.GetValidUnitsString())
	cmd.Flags().BoolVar(&f.devMode, "dev", false, "Serve ./static from disk instead of the embedded page")
	return cmd
}

// buildTrack loads path, or the built-in profile when path is empty, and
// normalizes it to the configured LED spacing.
func buildTrack(cfg *config.TuningConfig, path string) (*track.Track, error) {
	points := track.Default()
	if path != "" {
		var err error
		points, err = track.LoadFile(path)
		if err != nil {
			return nil, err
		}
	}
	tr, err := track.Normalize(points, track.Options{
		TargetSpacing: 1 / cfg.GetLEDsPerMeter(),
		Damping:       cfg.GetTrackDamping(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to normalize track: %w", err)
	}
	return tr, nil
}

func runMarbles(cmd *cobra.Command, f *runFlags) error {
	if f.listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if !units.IsValid(f.units) {
		return fmt.Errorf("invalid units %q: expected one of %s", f.units, units.GetValidUnitsString())
	}

	cfg, err := loadTuning()
	if err != nil {
		return err
	}
	if err := f.stripFlags.apply(cmd, cfg); err != nil {
		return err
	}

	tr, err := buildTrack(cfg, f.track)
	if err != nil {
		return err
	}
	lo, hi := tr.HeightRange()
	log.Printf("track: %d samples, scale %.4g, height %.3f..%.3f m", tr.Len(), tr.Scale(), lo, hi)

	queue := launch.NewQueue(cfg.GetLaunchQueueSize())
	var (
		recorder launch.Recorder
		history  api.LaunchHistory
		store    *db.DB
	)
	if f.dbPath != "" {
		store, err = db.NewDB(f.dbPath)
		if err != nil {
			return fmt.Errorf("failed to open launch history: %w", err)
		}
		defer store.Close()
		recorder, history = store, store
	}

	closeLog, err := f.stripFlags.redirectLogs()
	if err != nil {
		return err
	}
	defer closeLog()

	out, err := openOutput(&f.stripFlags, cfg)
	if err != nil {
		return err
	}
	defer out.Close()

	engine := sim.New(tr, out.strip, queue, sim.Options{
		Physics:       cfg.PhysicsParams(),
		Emission:      cfg.EmissionPolicy(),
		Spawn:         cfg.SpawnParams(),
		FrameInterval: cfg.GetFrameInterval(),
		StatsInterval: cfg.GetStatsInterval(),
		Background:    f.background,
		Seed:          true,
	})

	var static fs.FS = marbles.Static()
	if f.devMode {
		static = os.DirFS("./static")
	}

	// Create a wait group for the HTTP server, serial monitor and frame loop
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out.monitor(ctx, &wg)

	runErr := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := engine.Run(ctx); err != nil {
			log.Printf("frame loop failed: %v", err)
			runErr <- err
			stop()
		}
		log.Print("frame loop stopped")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		srv := api.NewServer(api.Config{
			State:        engine,
			Track:        tr,
			Launch:       launch.NewHandler(queue, recorder),
			History:      history,
			Static:       static,
			LEDsPerMeter: cfg.GetLEDsPerMeter(),
			Units:        f.units,
		})
		mux.Handle("/", srv.ServeMux())

		// mount the admin debugging routes (loopback or over Tailscale only)
		srv.AttachAdminRoutes(mux)
		if store != nil {
			if err := store.AttachAdminRoutes(mux); err != nil {
				log.Printf("failed to attach tailsql: %v", err)
			}
		}
		out.attachAdminRoutes(mux)

		server := &http.Server{
			Addr:    f.listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			log.Printf("listening on %s", f.listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("failed to start server: %v", err)
				stop()
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	if out.preview != nil {
		if err := runPreview(ctx, out, engine); err != nil {
			log.Print(err)
		}
		stop()
	}

	wg.Wait()

	select {
	case err := <-runErr:
		return err
	default:
	}
	log.Printf("Graceful shutdown complete")
	return nil
}

func runPreview(ctx context.Context, out *output, engine *sim.Engine) error {
	return previewRun(ctx, out, func() string {
		snap := engine.Snapshot()
		return fmt.Sprintf("frame %d | %.1f fps | %d marbles | launched %d spawned %d retired %d",
			snap.Frame, snap.FPS, len(snap.Particles), snap.Launched, snap.Spawned, snap.Retired)
	})
}
