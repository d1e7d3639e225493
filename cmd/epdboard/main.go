// Command epdboard is the host-side companion for the e-paper board: run the
// lifecycle against simulated peripherals, follow the debug channel over
// serial across deep-sleep cycles, list ports.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"epdboard/board"
	"epdboard/internal/monitor"
	"epdboard/internal/platform"
	"epdboard/internal/platform/setups"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	// sim
	rootFlag       string
	depthFlag      uint8
	mountErrorFlag bool
	traceFlag      bool
	wakeFlag       time.Duration

	// monitor
	portFlag      string
	baudFlag      int
	reconnectFlag time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "epdboard",
		Short: "Host tools for the e-paper board",
		Long: `epdboard runs the board lifecycle on the host with simulated
peripherals and follows a real board's debug channel over serial.`,
		SilenceUsage: true,
	}

	simCmd := &cobra.Command{
		Use:   "sim",
		Short: "Run bring-up, flash listing and deep sleep on simulated hardware",
		Long: `Run the full board lifecycle against host fakes.

The flash filesystem is backed by a local directory (--root). The debug
channel is printed to stdout; the run ends at the deep-sleep transition.`,
		Args: cobra.NoArgs,
		RunE: runSim,
	}
	simCmd.Flags().StringVarP(&rootFlag, "root", "r", ".", "Directory to expose as the flash filesystem")
	simCmd.Flags().Uint8VarP(&depthFlag, "depth", "d", 1, "Extra directory levels to list")
	simCmd.Flags().BoolVar(&mountErrorFlag, "mount-error", false, "Simulate a flash mount failure")
	simCmd.Flags().BoolVar(&traceFlag, "trace", false, "Print the peripheral call log after the run")
	simCmd.Flags().DurationVar(&wakeFlag, "wake", 0, "Override the wake interval")

	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Follow the board's debug channel",
		Long: `Print the board's debug output. When the board announces deep sleep a
countdown runs for the wake interval and the port is reopened once the
board re-enumerates.`,
		Args: cobra.NoArgs,
		RunE: runMonitor,
	}
	monitorCmd.Flags().StringVarP(&portFlag, "port", "p", "", "Serial port (first available if not specified)")
	monitorCmd.Flags().IntVarP(&baudFlag, "baud", "b", monitor.DefaultBaudRate, "Baud rate")
	monitorCmd.Flags().DurationVar(&reconnectFlag, "reconnect-timeout", 30*time.Second, "Give up if the port does not come back within this time")

	portsCmd := &cobra.Command{
		Use:   "ports",
		Short: "List available serial ports",
		RunE:  runPorts,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("epdboard %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}

	rootCmd.AddCommand(simCmd, monitorCmd, portsCmd, versionCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func runSim(cmd *cobra.Command, args []string) error {
	cfg := setups.Default()
	if wakeFlag > 0 {
		cfg.WakeInterval = wakeFlag
	}

	fmt.Printf("Board:  %s (simulated)\n", cfg.Name)
	fmt.Printf("Flash:  %s\n\n", rootFlag)

	h := platform.NewHost(cfg, os.DirFS(rootFlag))
	h.Console.Mirror = os.Stdout
	if mountErrorFlag {
		h.FS.MountErr = errors.New("simulated mount failure")
	}

	b, err := board.New(cmd.Context(), cfg, h.Peripherals())
	if err != nil {
		return fmt.Errorf("bring-up failed: %w", err)
	}

	if err := b.MountFlash(); err == nil {
		_ = b.ListDir("/", depthFlag)
	}
	b.Update()

	err = b.Sleep(true)
	if traceFlag {
		fmt.Println("\nPeripheral calls:")
		for _, c := range h.Log.Calls() {
			fmt.Printf("  %s\n", c)
		}
	}
	if !errors.Is(err, board.ErrDeepSleep) {
		return fmt.Errorf("sleep: %w", err)
	}
	fmt.Printf("\nHalted (wake timer %s)\n", h.Power.Wake)
	return nil
}

func runMonitor(cmd *cobra.Command, args []string) error {
	open := func() (io.ReadCloser, error) {
		name := portFlag
		if name == "" {
			ports, err := monitor.ListPorts()
			if err != nil {
				return nil, err
			}
			if len(ports) == 0 {
				return nil, errors.New("no serial ports found")
			}
			name = ports[0]
		}
		p, err := monitor.Open(name, baudFlag)
		if err != nil {
			return nil, err
		}
		fmt.Printf("-- %s @ %d baud --\n", p.PortName(), p.BaudRate())
		return p, nil
	}

	m := &monitor.Monitor{
		Open:             open,
		Out:              os.Stdout,
		OnSleep:          countdown,
		RetryInterval:    250 * time.Millisecond,
		ReconnectTimeout: reconnectFlag,
	}
	if err := m.Run(cmd.Context()); err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	return nil
}

// countdown shows the wake interval ticking down while the port is gone.
func countdown(ctx context.Context, wake time.Duration) {
	secs := int(wake / time.Second)
	if secs <= 0 {
		return
	}
	bar := progressbar.NewOptions(secs,
		progressbar.OptionSetDescription("Sleeping"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	for i := 0; i < secs; i++ {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			_ = bar.Add(1)
		}
	}
	_ = bar.Finish()
}

func runPorts(cmd *cobra.Command, args []string) error {
	ports, err := monitor.ListPorts()
	if err != nil {
		return fmt.Errorf("failed to list ports: %w", err)
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Println(p)
	}
	return nil
}
