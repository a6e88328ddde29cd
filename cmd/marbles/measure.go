package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/marbles/internal/emission"
	"github.com/banshee-data/marbles/internal/strip"
)

type measureFlags struct {
	stripFlags
	every int
}

func newMeasureCmd() *cobra.Command {
	f := &measureFlags{}
	cmd := &cobra.Command{
		Use:   "measure",
		Short: "Light every Nth LED so the track can be photographed and measured",
		Long: `measure lights every Nth LED until interrupted. Markers change hue every
ten markers and every tenth marker is brighter, so LED indices can be read
off a photograph of the installed strip when building a track file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMeasure(cmd, f)
		},
	}
	f.stripFlags.register(cmd)
	cmd.Flags().IntVar(&f.every, "every", 10, "Light every Nth LED")
	return cmd
}

func runMeasure(cmd *cobra.Command, f *measureFlags) error {
	if f.every < 1 {
		return fmt.Errorf("--every must be at least 1, got %d", f.every)
	}

	cfg, err := loadTuning()
	if err != nil {
		return err
	}
	if err := f.stripFlags.apply(cmd, cfg); err != nil {
		return err
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

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out.monitor(ctx, &wg)

	log.Printf("measure: lighting every %d of %d LEDs, interrupt to stop", f.every, out.strip.LEDCount())

	measureErr := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := drawMarkers(ctx, out.strip, f.every, cfg.GetFrameInterval()); err != nil {
			measureErr <- err
			stop()
		}
	}()

	if out.preview != nil {
		status := func() string {
			return fmt.Sprintf("measure: every %d LEDs", f.every)
		}
		if err := previewRun(ctx, out, status); err != nil {
			log.Print(err)
		}
		stop()
	}

	wg.Wait()

	select {
	case err := <-measureErr:
		return err
	default:
	}
	return nil
}

// drawMarkers redraws the measurement markers every interval until ctx is
// done. Controllers that blank on idle need the frame repeated.
func drawMarkers(ctx context.Context, s *strip.Strip, every int, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.Clear()
		emission.Markers(s, s.LEDCount(), every)
		if err := s.Transmit(); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
