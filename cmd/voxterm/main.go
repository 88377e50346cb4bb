// Voxterm — CLI entry point.
//
// This tool holds a realtime voice conversation with a hosted AI model over
// WebRTC from the terminal. It provisions a short-lived credential, performs
// the offer/answer handshake against the realtime endpoint, and exchanges
// structured protocol events over the data channel, rendering them as a
// running log.
//
// Model, voice, and transport can be set via CLI flags; everything else
// (API key, endpoints, audio plumbing) comes from config/environment.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/pterm/pterm"

	"github.com/voxterm/voxterm/internal/config"
	"github.com/voxterm/voxterm/internal/console"
	"github.com/voxterm/voxterm/internal/session"
	"github.com/voxterm/voxterm/internal/util"
)

var version = "dev"

func main() {
	// Root context — cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// CLI flags.
	model := flag.String("model", "", "Model identifier (overrides config)")
	voice := flag.String("voice", "", "Voice preset (overrides config)")
	transport := flag.String("transport", "", "Transport: webrtc or websocket (overrides config)")
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debugMode {
		util.EnableDebug()
	}

	pterm.Info.Println(fmt.Sprintf("Voxterm — v%s", version))
	pterm.Println()

	cfg, err := config.Load()
	if err != nil {
		util.LogError("failed to load config: %v", err)
		os.Exit(1)
	}

	if *model != "" {
		cfg.Model = *model
	}
	if *voice != "" {
		cfg.Voice = *voice
	}
	if *transport != "" {
		cfg.Transport = config.Transport(*transport)
	}
	if err := cfg.Validate(); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}

	sess := session.New(cfg)
	ui := console.New(sess)

	pterm.Printf("Connecting to %s (%s, voice %q)...\n", cfg.RealtimeURL, cfg.Model, cfg.Voice)

	if err := sess.Start(ctx); err != nil {
		util.LogError("failed to start session: %v", err)
		os.Exit(1)
	}

	// Block until the channel opens; a failed handshake closes Done instead.
	select {
	case <-sess.Ready():
	case <-sess.Done():
		util.LogError("session ended before the event channel opened")
		os.Exit(1)
	case <-ctx.Done():
		sess.Stop()
		os.Exit(1)
	}

	util.StartStatsReporter(ctx)
	pterm.Success.Println("Session active")

	if err := ui.Run(ctx); err != nil && ctx.Err() == nil {
		util.LogError("console error: %v", err)
	}

	if err := sess.Stop(); err != nil {
		util.LogWarning("teardown: %v", err)
	}
	util.LogInfo("session closed")
}
