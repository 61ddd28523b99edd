package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"gamemon/internal/config"
	"gamemon/internal/domain"
	"gamemon/internal/eventbus"
	"gamemon/internal/monitor/coordinator"
	"gamemon/internal/monitor/filebatch"
	"gamemon/internal/token"
	"gamemon/internal/transport"
	"gamemon/internal/ui"
)

// uiEvents are the bus events forwarded into the Bubble Tea loop.
var uiEvents = []domain.EventType{
	domain.EventConnState,
	domain.EventChannelsUpdated,
	domain.EventRoomsUpdated,
	domain.EventClientsUpdated,
	domain.EventGamesUpdated,
	domain.EventFilesUpdated,
	domain.EventScopeChanged,
	domain.EventSelectionChanged,
	domain.EventExportCompleted,
	domain.EventAlert,
	domain.EventError,
}

func main() {
	var configPath string
	var serverURL string
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&serverURL, "url", "", "Server websocket URL (overrides config)")
	flag.Parse()

	// Set up logging
	logFile, err := os.OpenFile("gamemon.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Printf("Could not open log file: %v", err)
	} else {
		defer logFile.Close()
		log.SetOutput(logFile)
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	// Load configuration
	var configSvc config.Service
	if configPath != "" {
		configSvc = config.NewServiceAt(configPath)
	} else {
		configSvc = config.NewService()
	}
	cfg, err := configSvc.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if serverURL != "" {
		cfg.ServerURL = serverURL
	}

	// Create event bus and services
	bus := eventbus.New()

	tokens := token.New()
	client := transport.New(cfg.ServerURL, bus)
	coord := coordinator.New(bus, client, tokens)
	if cfg.ExportTimeout > 0 {
		coord.Dispatch.ExportTimeout = cfg.ExportTimeout
	}
	downloader := filebatch.NewDownloader(cfg.DownloadURL)

	// Create event channel for UI
	eventChan := make(chan domain.DomainEvent, 100)
	forwardEvent := func(e eventbus.DomainEvent) {
		select {
		case eventChan <- e:
		default:
			log.Println("Event channel full, dropping event")
		}
	}
	for _, t := range uiEvents {
		bus.Subscribe(t, forwardEvent)
	}

	// Create UI model and program
	log.Printf("Creating UI model...")
	uiModel := ui.NewModel(coord, cfg, downloader)
	p := tea.NewProgram(uiModel, tea.WithAltScreen())
	uiModel.SetProgram(p)

	// Forward events to UI in background
	go func() {
		for event := range eventChan {
			p.Send(ui.EventMsg{Event: event})
		}
	}()

	// Connect and prime the channel list
	if err := client.Connect(ctx); err != nil {
		log.Printf("Initial connect failed: %v", err)
		bus.Publish(domain.AlertEvent{
			Level:   domain.AlertDanger,
			Message: "could not connect: " + err.Error(),
		})
	} else {
		defer client.Close()
		if cfg.MonitorName != "" {
			if err := coord.Dispatch.SendUpdateSettings(map[string]any{"name": cfg.MonitorName}); err != nil {
				log.Printf("Could not register monitor name: %v", err)
			}
		}
		coord.RefreshChannels()
		if cfg.DefaultChannel != "" {
			coord.SelectChannel(cfg.DefaultChannel)
		}
	}

	// Run the UI
	log.Printf("Starting UI...")
	if _, err := p.Run(); err != nil {
		log.Printf("Error running program: %v", err)
		fmt.Printf("Error running program: %v\n", err)
		os.Exit(1)
	}
	log.Printf("UI exited normally")

	close(eventChan)
	cancel()
}
