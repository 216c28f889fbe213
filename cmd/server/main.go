// Package main is the entry point of the application
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/tecu23/jeux-server/internal/config"
	"github.com/tecu23/jeux-server/internal/logging"
	"github.com/tecu23/jeux-server/internal/player"
	"github.com/tecu23/jeux-server/internal/protocol"
	"github.com/tecu23/jeux-server/internal/registry"
)

// application encapsulates the server's global dependencies.
type application struct {
	Logger  *zap.Logger
	Config  *config.Config
	Players *player.Registry
	Clients *registry.ClientRegistry
	Sender  *protocol.Sender
}

func main() {
	port := flag.String("p", "", "port to listen on (required)")
	debug := flag.Bool("debug", false, "enable debug logging")
	maxClients := flag.Int("max-clients", 0, "maximum concurrent connections (0 = unlimited)")
	maxInvitations := flag.Int("max-invitations", 0, "maximum open invitations per client (0 = the fixed ceiling of 256)")
	flag.Parse()

	if *port == "" {
		fmt.Fprintln(os.Stderr, "usage: server -p <port> [-debug] [-max-clients N] [-max-invitations N]")
		os.Exit(1)
	}

	// An optional .env file may carry future secrets; unlike the teacher,
	// its absence is not fatal since nothing here requires one yet.
	_ = godotenv.Load()

	cfg := &config.Config{
		Port:           *port,
		Debug:          *debug,
		MaxClients:     *maxClients,
		MaxInvitations: *maxInvitations,
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	players := player.NewRegistry(logger)
	clients := registry.NewClientRegistry(cfg.MaxClients, cfg.MaxInvitations, players, logger)

	app := &application{
		Logger:  logger,
		Config:  cfg,
		Players: players,
		Clients: clients,
		Sender:  protocol.NewSender(),
	}

	if err := app.serve(); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
