// Package serverconfig loads the game server's configuration from a TOML
// file: server identity, wire limits, and meta-server settings.
package serverconfig

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config carries the server identity fields plus the wire limits (see
// WireLimits for which of them are applied).
type Config struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	MaxPlayers int    `toml:"max_players"`
	ServerName string `toml:"server_name"`
	GameMode   string `toml:"game_mode"`
	Language   string `toml:"language"`
	Weather    int    `toml:"weather"`
	WorldTime  int    `toml:"world_time"`
	MapName    string `toml:"map_name"`
	WebURL     string `toml:"web_url"`

	Wire  WireLimits  `toml:"wire"`
	Meta  MetaConfig  `toml:"meta"`
}

// WireLimits are the wire tunables. cmd/server applies ConnectDuration
// (as each accepted channel's timeout), the two throttle values, and the
// chat and username length caps. MaxPacketSize, PingInterval and
// DisconnectDuration are carried but not read; netchan uses its own
// compiled-in constants for those.
type WireLimits struct {
	MaxPacketSize          int           `toml:"max_packet_size"`
	PingInterval           time.Duration `toml:"ping_interval"`
	ConnectDuration        time.Duration `toml:"connect_duration"`
	DisconnectDuration     time.Duration `toml:"disconnect_duration"`
	MaxChatMessageLength   int           `toml:"max_chat_message_length"`
	MaxUsernameLength      int           `toml:"max_username_length"`
	ThrottleMaxSendBufferSize int        `toml:"throttle_max_send_buffer_size"`
	ThrottleMaxPeriod      int           `toml:"throttle_max_period"`
}

// MetaConfig points the game server at its meta server, if any.
type MetaConfig struct {
	Endpoint string `toml:"endpoint"`
	Name     string `toml:"name"`
}

// Default returns the built-in defaults a config file overrides.
func Default() Config {
	return Config{
		Host:       "0.0.0.0",
		Port:       7777,
		MaxPlayers: 32,
		ServerName: "fortress-go server",
		GameMode:   "ctf",
		Language:   "English",
		Weather:    10,
		WorldTime:  12,
		MapName:    "ctf_ascii",
		WebURL:     "github.com/fortress-go/core",
		Wire: WireLimits{
			MaxPacketSize:             1200,
			PingInterval:              2 * time.Second,
			ConnectDuration:           4 * time.Second,
			DisconnectDuration:        2 * time.Second,
			MaxChatMessageLength:      127,
			MaxUsernameLength:         31,
			ThrottleMaxSendBufferSize: 32 * 1024,
			ThrottleMaxPeriod:         1000,
		},
	}
}

// Load parses path as TOML into a Config seeded with Default(), so a file
// only needs to override the fields it cares about.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("serverconfig: load %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as TOML, used by cmd/server to emit a starter
// config file when none exists yet.
func Save(path string, cfg Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("serverconfig: save %s: %w", path, err)
	}
	defer f.Close()
	enc := toml.NewEncoder(f)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("serverconfig: encode %s: %w", path, err)
	}
	return nil
}
