package main

import (
	"github.com/fortress-go/core/logging"
	"github.com/fortress-go/core/world"
)

// gameRules is the minimal world.Server collaborator this process
// supplies: it only logs round transitions. Weapon damage, class balance,
// and win-condition detection (when to actually call World.Win/Stalemate)
// belong to a real game-rules layer, which would drive those calls from
// its own scoring logic and only lean on these hooks for announcements.
type gameRules struct {
	mapName string
}

func (g *gameRules) OnRoundWon(team world.Team) {
	logging.InfoCyan("round won by %s", teamName(team))
}

func (g *gameRules) OnStalemate() {
	logging.InfoCyan("round ended in a stalemate")
}

func (g *gameRules) OnMapStart() {
	logging.Success("map %s started", g.mapName)
}

func (g *gameRules) OnMapEnd() {
	logging.Info("map %s ended", g.mapName)
}

func (g *gameRules) OnRoundReset() {
	logging.Debug("round reset")
}

func teamName(t world.Team) string {
	switch t {
	case world.TeamRed:
		return "RED"
	case world.TeamBlue:
		return "BLU"
	case world.TeamSpectators:
		return "spectators"
	default:
		return "none"
	}
}
