// Command server runs a standalone fortress-go game server: it loads a
// map and a TOML config, binds a UDP socket, and drives the tick loop
// that wires netchan connections into the world simulation.
package main

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fortress-go/core/logging"
	"github.com/fortress-go/core/mapdata"
	"github.com/fortress-go/core/meta"
	"github.com/fortress-go/core/metrics"
	"github.com/fortress-go/core/netio"
	"github.com/fortress-go/core/serverconfig"
)

// tickRate is the simulation/network tick frequency: a fixed-step
// cooperative loop, no internal goroutines touching World or any
// NetChannel.
const tickRate = 20

func loadMap(path string) (mapdata.Map, error) {
	if path == "" {
		m, ok := mapdata.Load("ctf_ascii", defaultMap)
		if !ok {
			return mapdata.Map{}, fmt.Errorf("failed to parse the built-in default map")
		}
		return m, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return mapdata.Map{}, fmt.Errorf("read map file %s: %w", path, err)
	}
	m, ok := mapdata.Load(path, string(data))
	if !ok {
		return mapdata.Map{}, fmt.Errorf("failed to parse map file %s", path)
	}
	return m, nil
}

func main() {
	var (
		configPath  = flag.String("config", "server.toml", "path to the server config file")
		mapFile     = flag.String("mapfile", "", "path to a map file (built-in ctf_ascii map if unset)")
		metricsAddr = flag.String("metrics-addr", "127.0.0.1:9090", "address to serve /metrics on")
	)
	flag.Parse()

	logging.Banner("fortress-go", "1.0.0")

	cfg, err := serverconfig.Load(*configPath)
	if err != nil {
		cfg = serverconfig.Default()
		if errors.Is(err, os.ErrNotExist) {
			logging.Warn("%v; writing defaults to %s", err, *configPath)
			if err := serverconfig.Save(*configPath, cfg); err != nil {
				logging.Warn("failed to write starter config: %v", err)
			}
		} else {
			logging.Warn("%v; using defaults", err)
		}
	}

	mp, err := loadMap(*mapFile)
	if err != nil {
		logging.Fatal("%v", err)
	}

	endpoint := netio.IpEndpoint{Port: uint16(cfg.Port)}
	if addr, perr := netio.ParseIpAddress(cfg.Host); perr == nil {
		endpoint.Address = addr
	}
	socket, err := netio.Bind(endpoint)
	if err != nil {
		logging.Fatal("failed to bind %s: %v", endpoint, err)
	}
	defer socket.Close()

	registry := prometheus.NewRegistry()
	connCollector := metrics.NewConnectionCollector(prometheus.Labels{"server": cfg.ServerName})
	registry.MustRegister(connCollector)

	s := newGameServer(cfg, socket, mp, connCollector)
	registry.MustRegister(metrics.NewWorldCollector(s.world, prometheus.Labels{"server": cfg.ServerName}))

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		logging.Info("metrics listening on %s", *metricsAddr)
		if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
			logging.Warn("metrics server stopped: %v", err)
		}
	}()

	var metaClient *meta.Client
	if cfg.Meta.Endpoint != "" {
		metaEndpoint, err := netio.ParseIpEndpoint(cfg.Meta.Endpoint)
		if err != nil {
			logging.Warn("invalid meta.endpoint %q: %v", cfg.Meta.Endpoint, err)
		} else {
			metaSocket, err := netio.Bind(netio.IpEndpoint{})
			if err != nil {
				logging.Warn("failed to bind meta client socket: %v", err)
			} else {
				heartbeatName := cfg.Meta.Name
				if heartbeatName == "" {
					heartbeatName = cfg.ServerName
				}
				metaClient, err = meta.NewClient(metaSocket, metaEndpoint, func() meta.Heartbeat {
					return meta.Heartbeat{
						Name:        heartbeatName,
						MapName:     mp.Name(),
						PlayerCount: uint32(s.PlayerCount()),
						MaxPlayers:  uint32(cfg.MaxPlayers),
					}
				}, 5*time.Second)
				if err != nil {
					logging.Warn("failed to connect to meta server: %v", err)
					metaClient = nil
				} else {
					logging.Success("registering with meta server at %s", metaEndpoint)
				}
			}
		}
	}

	s.world.StartMap()
	logging.Success("listening on %s, map %s", endpoint, mp.Name())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second / tickRate)
	defer ticker.Stop()
	dt := time.Second / tickRate

	for {
		select {
		case <-ticker.C:
			s.Tick(dt)
			if metaClient != nil {
				if !metaClient.Tick() {
					logging.Warn("meta server connection closed: %s", metaClient.Channel().DisconnectMessage())
					metaClient = nil
				}
			}
		case sig := <-sigChan:
			logging.Warn("received signal: %v", sig)
			logging.Info("shutting down game server")
			return
		}
	}
}
