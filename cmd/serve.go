package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/openclaw/internal/channels"
	"github.com/nextlevelbuilder/openclaw/internal/channels/discord"
	"github.com/nextlevelbuilder/openclaw/internal/channels/httpapi"
	"github.com/nextlevelbuilder/openclaw/internal/channels/telegram"
	"github.com/nextlevelbuilder/openclaw/internal/heartbeat"
	"github.com/nextlevelbuilder/openclaw/internal/store"
)

const schedulerStopTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the assistant with all enabled channels and heartbeats",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	}
}

func runServe() {
	initLogging()

	// No interactive terminal in serve mode: unapproved shell commands
	// stay denied until approved via the chat CLI.
	rt, err := buildRuntime(nil)
	if err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}

	runLog, err := store.OpenRunLog(rt.cfg.RunLogPath())
	if err != nil {
		slog.Error("opening heartbeat run log failed", "error", err)
		os.Exit(1)
	}
	defer runLog.Close()

	scheduler := heartbeat.NewScheduler(heartbeat.SchedulerConfig{
		Runner:   rt.router,
		Recorder: runLog,
	})
	defaultAgent := rt.router.DefaultAgent()
	for _, spec := range rt.cfg.Heartbeats {
		agentName := spec.Agent
		if agentName == "" && defaultAgent != nil {
			agentName = defaultAgent.Name
		}
		// Bad cadences are reported inside Add and skipped.
		_ = scheduler.Add(heartbeat.Heartbeat{
			Name:     spec.Name,
			Schedule: spec.Schedule,
			Prompt:   spec.Prompt,
			Agent:    agentName,
		})
	}
	scheduler.Start()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var active []channels.Channel
	startChannel := func(ch channels.Channel, err error) {
		if err != nil {
			slog.Error("channel setup failed", "error", err)
			return
		}
		if err := ch.Start(ctx); err != nil {
			slog.Error("channel start failed", "channel", ch.Name(), "error", err)
			return
		}
		active = append(active, ch)
	}

	if rt.cfg.Channels.HTTP.Enabled {
		startChannel(httpapi.New(httpapi.Config{
			Host:         rt.cfg.Channels.HTTP.Host,
			Port:         rt.cfg.Channels.HTTP.Port,
			RateLimitRPM: rt.cfg.Channels.HTTP.RateLimitRPM,
		}, rt.router, rt.sessions), nil)
	}
	if rt.cfg.Channels.Telegram.Enabled {
		ch, err := telegram.New(rt.cfg.Channels.Telegram.Token, rt.router)
		startChannel(ch, err)
	}
	if rt.cfg.Channels.Discord.Enabled {
		ch, err := discord.New(rt.cfg.Channels.Discord.Token, rt.router)
		startChannel(ch, err)
	}

	if len(active) == 0 && len(rt.cfg.Heartbeats) == 0 {
		slog.Warn("no channels enabled and no heartbeats configured, nothing to do",
			"hint", "enable a channel in config or use 'openclaw chat'")
	}

	slog.Info("openclaw running", "channels", len(active), "agents", rt.router.AgentNames())
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	for _, ch := range active {
		if err := ch.Stop(shutdownCtx); err != nil {
			slog.Warn("channel stop failed", "channel", ch.Name(), "error", err)
		}
	}
	if err := scheduler.Stop(schedulerStopTimeout); err != nil {
		slog.Warn("scheduler stop", "error", err)
	}
}
