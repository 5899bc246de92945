package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/strandcast/controlroom/internal/api"
	"github.com/strandcast/controlroom/internal/audio"
	"github.com/strandcast/controlroom/internal/compositor"
	"github.com/strandcast/controlroom/internal/config"
	"github.com/strandcast/controlroom/internal/events"
	"github.com/strandcast/controlroom/internal/highlight"
	"github.com/strandcast/controlroom/internal/input"
	"github.com/strandcast/controlroom/internal/mqtt"
	"github.com/strandcast/controlroom/internal/routing"
	"github.com/strandcast/controlroom/internal/storage/postgres"
	"github.com/strandcast/controlroom/internal/version"
)

func main() {
	godotenv.Load()

	cfgPath := flag.String("config", "control.yaml", "path to the session config")
	flag.Parse()

	cfg, err := config.LoadSessionConfig(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load %s: %v", *cfgPath, err)
	}

	bus := events.NewBus()

	if os.Getenv("CONTROLROOM_PG_ENABLED") == "true" {
		pg, err := postgres.New(cfg.Session.ID)
		if err != nil {
			log.Printf("postgres audit log disabled: %v", err)
		} else {
			bus.SetPostgresClient(pg)
			defer pg.Close()
		}
	}
	// Drains the audit writer before the database handle closes.
	defer bus.Close()

	ctrl := routing.NewController(bus, routing.Options{
		GateCeiling: time.Duration(cfg.GateTimeoutSec()) * time.Second,
	})
	defer ctrl.Close()

	for _, slot := range routing.AllSlots {
		err := ctrl.RegisterDestination(&routing.Destination{
			Slot:           slot,
			ReceiverHandle: cfg.ReceiverHandle(string(slot)),
		})
		if err != nil {
			log.Fatalf("destination %s: %v", slot, err)
		}
	}

	mq := mqtt.NewClient("controlroom-host-" + cfg.Session.ID)
	mqttUp := false
	if err := mq.Connect(); err != nil {
		log.Printf("mqtt: failed to connect to %s: %v", mqtt.BrokerURL(), err)
	} else {
		mqttUp = true
		defer mq.Disconnect()
	}

	highlightPub := highlight.NewAsyncPublisher(mq)
	if err := registerSources(ctrl, bus, cfg, highlightPub); err != nil {
		log.Fatalf("source registration failed: %v", err)
	}

	compPass, err := config.ResolveSecret("CONTROLROOM_COMPOSITOR_PASS")
	if err != nil {
		log.Fatalf("compositor credentials: %v", err)
	}
	comp := compositor.NewClient(cfg.CompositorURL(), compPass, time.Duration(cfg.RequestTimeoutSec())*time.Second)
	if err := comp.Connect(); err != nil {
		// Routing keeps working locally; applies fail fast until the
		// compositor is reachable again.
		bus.Emit("warn", "compositor.disconnected", err.Error(), map[string]interface{}{
			"url": cfg.CompositorURL(),
		})
	} else {
		bus.Emit("info", "compositor.connected", "", map[string]interface{}{
			"url": cfg.CompositorURL(),
		})
		defer comp.Close()
	}
	ctrl.SetApplier(compositor.NewBridge(comp, bus, func(slot routing.Slot) string {
		return cfg.SceneForSlot(string(slot))
	}))

	if mqttUp {
		selector := audio.NewSelector(
			audio.NewMQTTDriver(mq, cfg.AudioCommandTopic()),
			bus,
			audio.Bus(cfg.BroadcastBus()),
			audio.Bus(cfg.MonitorBus()),
		)
		ctrl.OnChange(selector.HandleChange)

		ingestor := input.NewIngestor(ctrl, bus)
		if err := ingestor.Start(mq, cfg.ClickTopic()); err != nil {
			log.Printf("click ingest: %v", err)
		}
	} else {
		log.Printf("mqtt unavailable: click ingest and audio switching disabled")
	}

	server := api.NewServer(ctrl, bus, cfg.Session.ID, comp.IsConnected)

	hostname, _ := os.Hostname()
	bus.Emit("info", "system.startup", "host started", map[string]interface{}{
		"session":  cfg.Session.ID,
		"version":  version.Version,
		"hostname": hostname,
		"pid":      os.Getpid(),
	})

	g := new(errgroup.Group)
	g.Go(func() error {
		return server.ListenAndServe(cfg.UIPort())
	})
	g.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		return fmt.Errorf("received %s", <-sig)
	})

	err = g.Wait()
	bus.Emit("info", "system.shutdown", err.Error(), map[string]interface{}{
		"session": cfg.Session.ID,
	})
	log.Printf("host stopping: %v", err)
}

// registerSources builds the session's source registry from the config
// roster, choosing each source's highlight variant once at construction.
func registerSources(ctrl *routing.Controller, bus *events.Bus, cfg *config.SessionConfig, pub highlight.Publisher) error {
	for _, sc := range cfg.Sources {
		src := &routing.Source{
			ID:         routing.SourceID(sc.ID),
			Kind:       sourceKind(sc.Kind),
			StreamName: sc.Stream,
		}
		for _, sub := range sc.SubSources {
			src.SubSources = append(src.SubSources, routing.SourceID(sub))
		}

		switch sc.Highlight {
		case "material":
			src.Highlight = highlight.NewMaterialStrategy(pub, cfg.HighlightTopic(sc.ID), sc.Tint)
		case "panel":
			widget := sc.Widget
			if widget == "" {
				widget = sc.ID
			}
			src.Highlight = highlight.NewPanelStrategy(bus, widget, sc.Color)
		}

		if err := ctrl.RegisterSource(src); err != nil {
			return fmt.Errorf("source %s: %w", sc.ID, err)
		}
	}
	return nil
}

func sourceKind(kind string) routing.SourceKind {
	switch kind {
	case "static":
		return routing.KindStatic
	case "composite":
		return routing.KindComposite
	default:
		return routing.KindCamera
	}
}
