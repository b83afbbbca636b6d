package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/Sugarcan0067/Nixe-Watch-CTS/bluetooth"
	"github.com/Sugarcan0067/Nixe-Watch-CTS/server"
	"github.com/Sugarcan0067/Nixe-Watch-CTS/utils"
)

func main() {
	var (
		configPath = flag.String("config", "config.json", "Path to the persisted configuration file")
		port       = flag.Int("port", 5000, "Status server port")
		logFile    = flag.String("log", "", "Log file path (default: stderr only)")
	)
	flag.Parse()

	if *logFile != "" {
		file, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Printf("Warning: Could not open log file: %v", err)
		} else {
			log.SetOutput(io.MultiWriter(os.Stderr, file))
			defer file.Close()
			log.Printf("Logging to %s", *logFile)
		}
	}

	log.Println("Starting Nixe Watch CTS daemon")

	store := utils.LoadConfigStore(*configPath)

	conn, err := dbus.SystemBus()
	if err != nil {
		log.Fatalf("Failed to connect to system D-Bus: %v", err)
	}

	wsHub := utils.NewWebSocketHub()
	scanner := bluetooth.NewBluezScanner(conn)
	calibrator := bluetooth.NewCTSCalibrator(conn)
	selector := bluetooth.NewConsoleSelector()

	acquirer := bluetooth.NewAcquirer(store, scanner, selector, calibrator, wsHub)
	manager := bluetooth.NewManager(store, acquirer, wsHub)

	if err := manager.Start(); err != nil {
		log.Fatalf("Failed to start manager: %v", err)
	}

	srv := server.NewServer(manager, store, wsHub)
	srv.Start(*port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Interrupt received, shutting down...")
	manager.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown failed: %v", err)
	}

	log.Println("Shutdown complete")
}
