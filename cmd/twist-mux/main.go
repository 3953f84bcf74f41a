package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	twistmux "github.com/FIBO-Engineer/twist-mux"
)

func main() {
	if err := newRoot().Execute(); err != nil {
		log.Fatalf("twist-mux: %v", err)
	}
}

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "twist-mux",
		Short:         "Priority multiplexer for velocity command streams",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(runCmd(), validateCmd())
	return root
}

func runCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the multiplexer with the given configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := twistmux.LoadConfig(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			m, err := twistmux.New(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return m.Run(ctx)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "./config/twist_mux.yaml", "Path to configuration file")
	return cmd
}

func validateCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate a configuration file without starting",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := twistmux.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			fmt.Printf("config ok: %d velocity inputs, %d locks, output %q\n",
				len(cfg.Topics), len(cfg.Locks), cfg.OutTopic)
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "./config/twist_mux.yaml", "Path to configuration file")
	return cmd
}
