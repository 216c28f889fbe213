package main

import (
	"errors"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/tecu23/jeux-server/internal/service"
	"github.com/tecu23/jeux-server/internal/session"
)

// serve listens on app.Config.Port and spawns a service.Serve goroutine per
// accepted connection, until a SIGHUP triggers an orderly shutdown. Unlike
// the teacher, which treats SIGINT/SIGTERM as the shutdown trigger for an
// HTTP server, this server only shuts down on SIGHUP, matching the
// original CLI's terminate-on-SIGHUP contract; SIGINT/SIGTERM are left
// unhandled.
func (app *application) serve() error {
	ln, err := net.Listen("tcp", ":"+app.Config.Port)
	if err != nil {
		return err
	}

	go app.awaitShutdown(ln)

	app.Logger.Info("listening", zap.String("address", ln.Addr().String()))

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				app.Logger.Info("listener closed, server stopped")
				return nil
			}
			app.Logger.Warn("accept error", zap.Error(err))
			continue
		}

		sess := session.New(conn, app.Sender, app.Logger)
		if err := app.Clients.Register(sess); err != nil {
			app.Logger.Warn("rejecting connection, registry full", zap.Error(err))
			conn.Close()
			continue
		}
		go service.Serve(sess, app.Clients, app.Logger)
	}
}

// awaitShutdown blocks for SIGHUP, then closes the listener, drains every
// connected session, and finalizes the player table before exiting.
func (app *application) awaitShutdown(ln net.Listener) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP)
	s := <-sig

	app.Logger.Info("shutting down", zap.String("signal", s.String()))
	ln.Close()

	app.Clients.ShutdownAll()
	app.Clients.WaitForEmpty()
	app.Players.Finalize()

	app.Logger.Info("shutdown complete")
	os.Exit(0)
}
