package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/marbles/internal/security"
)

type trackFlags struct {
	stripFlags
	track string
	plot  string
}

func newTrackCmd() *cobra.Command {
	f := &trackFlags{}
	cmd := &cobra.Command{
		Use:   "track",
		Short: "Normalize a track profile and report or plot it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrack(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.track, "track", "", "Track profile JSON (built-in profile when empty)")
	cmd.Flags().StringVar(&f.plot, "plot", "", "Write a height profile image (png, svg or pdf)")
	cmd.Flags().IntVar(&f.ledCount, "led-count", 600, "Number of LEDs on the strip (overrides led_count)")
	cmd.Flags().Float64Var(&f.ledsPerMeter, "leds-per-meter", 60, "LED density (overrides leds_per_meter)")
	return cmd
}

func runTrack(cmd *cobra.Command, f *trackFlags) error {
	if f.plot != "" {
		if err := security.ValidateOutputPath(f.plot); err != nil {
			return fmt.Errorf("invalid --plot path: %w", err)
		}
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

	w := cmd.OutOrStdout()
	lo, hi := tr.HeightRange()
	pts := tr.Points()
	fmt.Fprintf(w, "samples:      %d (LED %d..%d)\n", tr.Len(), pts[0].Index, pts[len(pts)-1].Index)
	fmt.Fprintf(w, "scale:        %.6g\n", tr.Scale())
	fmt.Fprintf(w, "spacing:      %.4g m\n", tr.Spacing())
	fmt.Fprintf(w, "max step:     %.4g m\n", tr.MaxStep())
	fmt.Fprintf(w, "height range: %.4f .. %.4f m\n", lo, hi)
	if last := pts[len(pts)-1].Index; last >= cfg.GetLEDCount() {
		fmt.Fprintf(w, "warning:      profile reaches LED %d but the strip has %d LEDs\n", last, cfg.GetLEDCount())
	}

	if f.plot != "" {
		if err := tr.SavePlot(f.plot); err != nil {
			return err
		}
		fmt.Fprintf(w, "plot:         %s\n", f.plot)
	}
	return nil
}
