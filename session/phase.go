package session

import (
	"errors"

	"github.com/brensch/broadside/api"
	"github.com/brensch/broadside/decision"
)

var (
	ErrOptionsPending    = errors.New("options confirmation already in flight")
	ErrMoveInFlight      = errors.New("move already in flight")
	ErrPlacementInFlight = errors.New("placement already in flight")
	ErrWrongPhase        = errors.New("operation not valid in current phase")
	ErrStale             = errors.New("reply belongs to a previous session generation")
	ErrNoMode            = errors.New("no game mode selected")
)

// Phase is derived from the screen, the mode and the server's manual_phase
// flag; it is never stored on its own.
type Phase int

const (
	Menu Phase = iota
	ManualPlacement
	ActiveGame
	Autoplay
	StatsView
)

func (p Phase) String() string {
	switch p {
	case ManualPlacement:
		return "manual_placement"
	case ActiveGame:
		return "active_game"
	case Autoplay:
		return "autoplay"
	case StatsView:
		return "stats"
	default:
		return "menu"
	}
}

type screen int

const (
	screenMenu screen = iota
	screenGame
	screenStats
)

func derivePhase(s screen, mode api.GameMode, placement api.Placement, manualPhase bool) Phase {
	switch s {
	case screenStats:
		return StatsView
	case screenGame:
		if mode == api.ModeMCTSVsMLMCTS {
			return Autoplay
		}
		if manualPhase && mode == api.ModeUserVsMCTS && placement != api.PlacementRandom {
			return ManualPlacement
		}
		return ActiveGame
	}
	return Menu
}

// EffectivePlacement returns the placement sent with the options: only the
// user-versus-engine mode offers a choice.
func EffectivePlacement(mode api.GameMode, p api.Placement) api.Placement {
	if mode != api.ModeUserVsMCTS || p == "" {
		return api.PlacementRandom
	}
	return p
}

// Headings are the captions of the two boards and the two fleet lists.
type Headings struct {
	OwnBoard      string `json:"own_board"`
	OpponentBoard string `json:"opponent_board"`
	OwnBoats      string `json:"own_boats"`
	OpponentBoats string `json:"opponent_boats"`
}

// HeadingsFor relabels the boards for the two engines in autoplay.
func HeadingsFor(mode api.GameMode) Headings {
	if mode == api.ModeMCTSVsMLMCTS {
		return Headings{"MCTS Board", "ML-MCTS Board", "MCTS Ships", "ML-MCTS Ships"}
	}
	return Headings{"Your Board", "PC Board", "Your Boats", "PC Boats"}
}

// ThinkingMessage is shown while a move reveal is deferred.
const ThinkingMessage = "AI is thinking…"

// PlacementPrompt is shown after the first click of a placement.
func PlacementPrompt(at api.Coord) string {
	return "Start cell set at " + at.String() + ". Now click end cell."
}

// Analysis is the explanation panel shown after an engine decision.
type Analysis struct {
	Explanation string          `json:"explanation"`
	Graph       *decision.Graph `json:"graph,omitempty"`
	Visible     bool            `json:"visible"`
}
