// Command metaserver runs the persisted game-server directory: game
// servers heartbeat in, clients ask for the current list.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fortress-go/core/logging"
	"github.com/fortress-go/core/meta"
	"github.com/fortress-go/core/netio"
)

func main() {
	var (
		listen = flag.String("listen", "0.0.0.0:27015", "address to listen on")
		dbPath = flag.String("db", "metaserver.db", "path to the persisted server registry")
	)
	flag.Parse()

	logging.Banner("Meta Server", "1.0.0")

	endpoint, err := netio.ParseIpEndpoint(*listen)
	if err != nil {
		logging.Fatal("invalid -listen endpoint: %v", err)
	}
	socket, err := netio.Bind(endpoint)
	if err != nil {
		logging.Fatal("failed to bind %s: %v", endpoint, err)
	}
	defer socket.Close()

	store, err := meta.OpenStore(*dbPath)
	if err != nil {
		logging.Fatal("failed to open registry: %v", err)
	}
	defer store.Close()

	srv := meta.NewServer(socket, store)
	logging.Success("Meta server listening on %s", endpoint)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	const tickInterval = 50 * time.Millisecond
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			srv.Tick()
		case sig := <-sigChan:
			logging.Warn("received signal: %v", sig)
			logging.Info("shutting down meta server")
			return
		}
	}
}
