package api

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// GameMode is the option sent to /set_options as game_mode.
type GameMode string

const (
	ModeUserVsMCTS   GameMode = "uservsmcts"
	ModeMCTSVsMLMCTS GameMode = "mcts_vs_ml_mcts"
	ModeStatistics   GameMode = "statistics"
)

// Placement is the boat_placement option.
type Placement string

const (
	PlacementRandom Placement = "random"
	PlacementManual Placement = "manual"
)

// Coord is a board position. X is the row, Y the column.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c Coord) String() string {
	return "(" + strconv.Itoa(c.X) + "," + strconv.Itoa(c.Y) + ")"
}

// Board is a row-major grid of cell codes.
type Board [][]string

// Size returns the row count and whether every row has that many columns.
func (b Board) Size() (int, bool) {
	n := len(b)
	for _, row := range b {
		if len(row) != n {
			return n, false
		}
	}
	return n, true
}

// Clone copies the grid so callers can keep it past the next response.
func (b Board) Clone() Board {
	if b == nil {
		return nil
	}
	out := make(Board, len(b))
	for i, row := range b {
		out[i] = append([]string(nil), row...)
	}
	return out
}

// UnmarshalJSON accepts string or numeric cell codes; the server sends ship
// segments as strings but older builds emitted bare integers.
func (b *Board) UnmarshalJSON(data []byte) error {
	var raw [][]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*b = nil
		return nil
	}
	out := make(Board, len(raw))
	for i, row := range raw {
		out[i] = make([]string, len(row))
		for j, cell := range row {
			cell = bytes.TrimSpace(cell)
			if len(cell) > 0 && cell[0] == '"' {
				var s string
				if err := json.Unmarshal(cell, &s); err != nil {
					return fmt.Errorf("cell %d,%d: %w", i, j, err)
				}
				out[i][j] = s
				continue
			}
			if bytes.Equal(cell, []byte("null")) {
				continue
			}
			out[i][j] = string(cell)
		}
	}
	*b = out
	return nil
}

// BoatStatus reports one ship of a fleet.
type BoatStatus struct {
	Ship string `json:"ship"`
	Sunk bool   `json:"sunk"`
}

func (s *BoatStatus) UnmarshalJSON(data []byte) error {
	var raw struct {
		Ship json.RawMessage `json:"ship"`
		Sunk bool            `json:"sunk"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Sunk = raw.Sunk
	s.Ship = ""
	ship := bytes.TrimSpace(raw.Ship)
	if len(ship) == 0 || bytes.Equal(ship, []byte("null")) {
		return nil
	}
	if ship[0] == '"' {
		return json.Unmarshal(ship, &s.Ship)
	}
	s.Ship = string(ship)
	return nil
}

// SummaryEntry is the visit/win record of one candidate move at the root of
// the last search.
type SummaryEntry struct {
	Action  Coord   `json:"action"`
	Visits  int     `json:"visits"`
	Wins    int     `json:"wins"`
	WinRate float64 `json:"win_rate"`
}

// Action is a tree node's move. The root has none.
type Action struct {
	Coord
	Valid bool
}

func (a Action) String() string {
	if !a.Valid {
		return "root"
	}
	return a.Coord.String()
}

func (a Action) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return json.Marshal([2]int{a.X, a.Y})
}

// UnmarshalJSON accepts null, a [x, y] pair or an {"x":..,"y":..} object.
func (a *Action) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*a = Action{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '[':
		var pair []int
		if err := json.Unmarshal(data, &pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("action has %d components, want 2", len(pair))
		}
		a.Coord = Coord{X: pair[0], Y: pair[1]}
	case '{':
		if err := json.Unmarshal(data, &a.Coord); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported action %s", data)
	}
	a.Valid = true
	return nil
}

// TreeNode is one node of the explored search tree.
type TreeNode struct {
	Action   Action      `json:"action"`
	Visits   int         `json:"visits"`
	Wins     int         `json:"wins"`
	WinRate  float64     `json:"win_rate"`
	Children []*TreeNode `json:"children"`
}

// Options is the body of /set_options.
type Options struct {
	GameMode      GameMode  `json:"game_mode"`
	BoatPlacement Placement `json:"boat_placement"`
}

// GameState is the common reply of /start, /set_options and /state.
type GameState struct {
	Message     string       `json:"message"`
	ManualPhase bool         `json:"manual_phase"`
	UserTurn    bool         `json:"user_turn"`
	GameOver    bool         `json:"game_over"`
	UserBoard   Board        `json:"user_board"`
	PCBoard     Board        `json:"pc_board"`
	UserBoats   []BoatStatus `json:"user_boats"`
	PCBoats     []BoatStatus `json:"pc_boats"`
}

// validate checks the board shape: each board present is square, and both
// boards have the same size when both are present.
func (s *GameState) validate() error {
	own, err := squareSize("user_board", s.UserBoard)
	if err != nil {
		return err
	}
	pc, err := squareSize("pc_board", s.PCBoard)
	if err != nil {
		return err
	}
	if s.UserBoard != nil && s.PCBoard != nil && own != pc {
		return fmt.Errorf("user_board is %dx%d but pc_board is %dx%d", own, own, pc, pc)
	}
	return nil
}

func squareSize(name string, b Board) (int, error) {
	n, square := b.Size()
	if !square {
		return n, fmt.Errorf("%s is not square (%d rows)", name, n)
	}
	return n, nil
}

// MoveResult is the reply of /user_move. Summary and Tree are only present
// when the engine answered the shot.
type MoveResult struct {
	GameState
	Summary []SummaryEntry `json:"summary,omitempty"`
	Tree    *TreeNode      `json:"tree,omitempty"`
}

// PlacementResult is the reply of /manual_place. A rejected placement only
// carries Message, so the remaining fields are optional.
type PlacementResult struct {
	Message        string       `json:"message"`
	UserBoard      Board        `json:"user_board,omitempty"`
	UserBoats      []BoatStatus `json:"user_boats,omitempty"`
	ManualPhase    *bool        `json:"manual_phase,omitempty"`
	PlacementIndex *int         `json:"placement_index,omitempty"`
	CurrentBoat    *int         `json:"current_boat,omitempty"`
}

func (p *PlacementResult) validate() error {
	_, err := squareSize("user_board", p.UserBoard)
	return err
}

// AutoMoveResult is the reply of /auto_move.
type AutoMoveResult struct {
	GameState
	CurrentTurn string `json:"current_turn,omitempty"`
}

// MatchRecord is one finished match.
type MatchRecord struct {
	Winner   string  `json:"winner"`
	Duration float64 `json:"duration"`
}

// StatsResponse is the reply of /stats, partitioned by competitive mode.
type StatsResponse struct {
	UserVsMCTS   []MatchRecord `json:"uservsmcts"`
	MCTSVsMLMCTS []MatchRecord `json:"mcts_vs_ml_mcts"`
}
