// Command metaclient queries a meta server for its current server list
// and prints it.
package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/fortress-go/core/logging"
	"github.com/fortress-go/core/meta"
	"github.com/fortress-go/core/netio"
)

func main() {
	server := flag.String("server", "127.0.0.1:27015", "meta server address")
	flag.Parse()

	endpoint, err := netio.ParseIpEndpoint(*server)
	if err != nil {
		logging.Fatal("invalid -server endpoint: %v", err)
	}
	socket, err := netio.Bind(netio.IpEndpoint{})
	if err != nil {
		logging.Fatal("failed to bind local socket: %v", err)
	}
	defer socket.Close()

	done := make(chan struct{})
	client, err := meta.NewClient(socket, endpoint, nil, 0)
	if err != nil {
		logging.Fatal("failed to connect: %v", err)
	}
	client.OnAddressList = func(list meta.AddressList) {
		fmt.Printf("%d server(s):\n", len(list.Entries))
		for _, e := range list.Entries {
			fmt.Printf("  %-21s %-20s %-16s %d/%d\n", e.Endpoint, e.Name, e.MapName, e.PlayerCount, e.MaxPlayers)
		}
		close(done)
	}

	requested := false
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	timeout := time.After(5 * time.Second)

	for {
		select {
		case <-ticker.C:
			if !client.Tick() {
				logging.Fatal("connection closed: %s", client.Channel().DisconnectMessage())
			}
			if !requested && client.Connected() {
				client.RequestAddressList()
				requested = true
			}
		case <-done:
			return
		case <-timeout:
			logging.Fatal("timed out waiting for a response")
		}
	}
}
