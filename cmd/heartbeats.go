package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/openclaw/internal/channels"
	"github.com/nextlevelbuilder/openclaw/internal/heartbeat"
	"github.com/nextlevelbuilder/openclaw/internal/store"
)

func heartbeatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "heartbeats",
		Short: "Inspect configured heartbeats and their run history",
	}
	cmd.AddCommand(heartbeatsListCmd(), heartbeatsRunsCmd())
	return cmd
}

func heartbeatsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured heartbeats",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigQuiet()
			if err != nil {
				return err
			}
			if len(cfg.Heartbeats) == 0 {
				fmt.Println("no heartbeats configured")
				return nil
			}
			now := time.Now()
			for _, spec := range cfg.Heartbeats {
				cadence, err := heartbeat.ParseCadence(spec.Schedule)
				if err != nil {
					fmt.Printf("%-20s %-30s INVALID: %v\n", spec.Name, spec.Schedule, err)
					continue
				}
				fmt.Printf("%-20s %-30s next %s\n",
					spec.Name, cadence.String(), cadence.Next(now).Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func heartbeatsRunsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs [name]",
		Short: "Show recent heartbeat runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigQuiet()
			if err != nil {
				return err
			}
			runLog, err := store.OpenRunLog(cfg.RunLogPath())
			if err != nil {
				return err
			}
			defer runLog.Close()

			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			runs, err := runLog.Recent(context.Background(), name, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no runs recorded")
				return nil
			}
			for _, run := range runs {
				status := "ok"
				if run.Err != "" {
					status = "error: " + run.Err
				}
				fmt.Printf("%s  %-20s %-8s %s\n  %s\n",
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					run.Name, run.Duration.Round(time.Millisecond), status,
					channels.Truncate(run.Response, 160))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to show")
	return cmd
}
