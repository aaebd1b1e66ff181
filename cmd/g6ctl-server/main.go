// Command g6ctl-server runs the REST ControlAPI as a standalone
// process: one DeviceController, connected once at startup, served
// over HTTP until an interrupt signal arrives.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"g6ctl/internal/api"
	"g6ctl/internal/config"
	"g6ctl/internal/device"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address (default: config G6CTL_API_ADDR)")
	flag.Parse()

	cfg := config.Load()
	listenAddr := cfg.APIAddr
	if *addr != "" {
		listenAddr = *addr
	}

	ctl := device.New()
	if err := ctl.Connect(); err != nil {
		log.Printf("g6ctl-server: initial connect failed, will serve disconnected state: %v", err)
	}

	server := api.NewServer(ctl)
	srv := &http.Server{
		Addr:    listenAddr,
		Handler: server.Handler(),
	}

	go func() {
		log.Printf("g6ctl-server: listening on %s", listenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("g6ctl-server: serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("g6ctl-server: shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("g6ctl-server: shutdown error: %v", err)
	}
	if err := ctl.Disconnect(); err != nil {
		log.Printf("g6ctl-server: disconnect error: %v", err)
	}
	log.Println("g6ctl-server: stopped")
}
