package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type capturedRequest struct {
	method string
	path   string
	body   string
	ctype  string
}

func newTestServer(t *testing.T, reply string, status int) (*httptest.Server, *capturedRequest) {
	t.Helper()
	got := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got.method = r.Method
		got.path = r.URL.Path
		got.body = string(b)
		got.ctype = r.Header.Get("Content-Type")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestSetOptions_SendsModeAndPlacement(t *testing.T) {
	reply := `{"message":"Place your boat of length 3.","manual_phase":true,"user_turn":true,"game_over":false,
		"user_board":[["~","~"],["~","~"]],"pc_board":[["?","?"],["?","?"]],
		"user_boats":[],"pc_boats":[{"ship":"3","sunk":false}]}`
	srv, got := newTestServer(t, reply, http.StatusOK)

	c := NewClient(srv.URL + "/")
	st, err := c.SetOptions(context.Background(), Options{GameMode: ModeUserVsMCTS, BoatPlacement: PlacementManual})
	if err != nil {
		t.Fatalf("SetOptions: %v", err)
	}
	if got.method != http.MethodPost || got.path != "/set_options" {
		t.Fatalf("request=%s %s want=POST /set_options", got.method, got.path)
	}
	if got.body != `{"game_mode":"uservsmcts","boat_placement":"manual"}` {
		t.Fatalf("body=%s", got.body)
	}
	if got.ctype != "application/json" {
		t.Fatalf("content-type=%q", got.ctype)
	}
	if !st.ManualPhase {
		t.Fatalf("manual_phase=false want=true")
	}
	if n, square := st.PCBoard.Size(); n != 2 || !square {
		t.Fatalf("pc board size=%d square=%v", n, square)
	}
	if len(st.PCBoats) != 1 || st.PCBoats[0].Ship != "3" {
		t.Fatalf("pc boats=%+v", st.PCBoats)
	}
}

func TestUserMove_DecodesSummaryAndTree(t *testing.T) {
	reply := `{"message":"PC missed. Your turn.","user_board":[["1","O"],["~","X"]],"pc_board":[["?","X"],["O","?"]],
		"user_boats":[{"ship":"1","sunk":false}],"pc_boats":[{"ship":2,"sunk":true}],
		"summary":[{"action":{"x":2,"y":3},"visits":5,"wins":2,"win_rate":0.4}],
		"tree":{"action":null,"visits":6,"wins":2,"win_rate":0.33,"children":[
			{"action":[2,3],"visits":5,"wins":2,"win_rate":0.4,"children":[]}]}}`
	srv, got := newTestServer(t, reply, http.StatusOK)

	res, err := NewClient(srv.URL).UserMove(context.Background(), Coord{X: 1, Y: 0})
	if err != nil {
		t.Fatalf("UserMove: %v", err)
	}
	if got.body != `{"x":1,"y":0}` {
		t.Fatalf("body=%s", got.body)
	}
	if len(res.Summary) != 1 || res.Summary[0].Action != (Coord{X: 2, Y: 3}) {
		t.Fatalf("summary=%+v", res.Summary)
	}
	if res.Tree == nil || res.Tree.Action.Valid {
		t.Fatalf("root action should be empty: %+v", res.Tree)
	}
	child := res.Tree.Children[0]
	if !child.Action.Valid || child.Action.Coord != (Coord{X: 2, Y: 3}) {
		t.Fatalf("child action=%+v", child.Action)
	}
	if res.PCBoats[0].Ship != "2" || !res.PCBoats[0].Sunk {
		t.Fatalf("numeric ship id not normalised: %+v", res.PCBoats[0])
	}
}

func TestManualPlace_RejectionLeavesOptionalFieldsUnset(t *testing.T) {
	srv, got := newTestServer(t, `{"message":"Cells must be in a straight line."}`, http.StatusOK)

	res, err := NewClient(srv.URL).ManualPlace(context.Background(), Coord{0, 0}, Coord{1, 1})
	if err != nil {
		t.Fatalf("ManualPlace: %v", err)
	}
	if got.body != `{"start":{"x":0,"y":0},"end":{"x":1,"y":1}}` {
		t.Fatalf("body=%s", got.body)
	}
	if res.ManualPhase != nil || res.UserBoard != nil {
		t.Fatalf("expected optional fields to stay nil: %+v", res)
	}
}

func TestAutoMove_GameOver(t *testing.T) {
	srv, got := newTestServer(t, `{"message":"MCTS wins!","game_over":true,"current_turn":"player1",
		"user_board":[["X"]],"pc_board":[["X"]],"user_boats":[],"pc_boats":[]}`, http.StatusOK)

	res, err := NewClient(srv.URL).AutoMove(context.Background())
	if err != nil {
		t.Fatalf("AutoMove: %v", err)
	}
	if got.body != "" || got.ctype != "" {
		t.Fatalf("auto_move should be bodyless, got body=%q ctype=%q", got.body, got.ctype)
	}
	if !res.GameOver || res.CurrentTurn != "player1" {
		t.Fatalf("res=%+v", res)
	}
}

func TestStats_FillsMissingCategories(t *testing.T) {
	srv, got := newTestServer(t, `{"uservsmcts":[{"winner":"user","duration":10.5}]}`, http.StatusOK)

	res, err := NewClient(srv.URL).Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if got.method != http.MethodGet {
		t.Fatalf("method=%s want=GET", got.method)
	}
	if len(res.UserVsMCTS) != 1 || res.UserVsMCTS[0].Duration != 10.5 {
		t.Fatalf("uservsmcts=%+v", res.UserVsMCTS)
	}
	if res.MCTSVsMLMCTS == nil {
		t.Fatalf("missing category should decode as empty slice")
	}
}

func TestClientErrors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		srv, _ := newTestServer(t, `oops`, http.StatusInternalServerError)
		_, err := NewClient(srv.URL).Start(context.Background())
		var se *StatusError
		if !errors.As(err, &se) || se.Code != 500 || se.Path != "/start" {
			t.Fatalf("err=%v want StatusError 500 /start", err)
		}
	})
	t.Run("malformed", func(t *testing.T) {
		srv, _ := newTestServer(t, `{"user_board":"nope"`, http.StatusOK)
		_, err := NewClient(srv.URL).State(context.Background())
		if !errors.Is(err, ErrMalformed) {
			t.Fatalf("err=%v want ErrMalformed", err)
		}
	})
	t.Run("transport", func(t *testing.T) {
		srv, _ := newTestServer(t, `{}`, http.StatusOK)
		url := srv.URL
		srv.Close()
		_, err := NewClient(url).Start(context.Background())
		if err == nil || errors.Is(err, ErrMalformed) {
			t.Fatalf("err=%v want transport error", err)
		}
		if !strings.Contains(err.Error(), "/start") {
			t.Fatalf("err=%v should name the path", err)
		}
	})
}

func TestClient_RejectsMisshapenBoards(t *testing.T) {
	cases := []struct {
		name  string
		reply string
		call  func(*Client) error
	}{
		{
			name:  "start non-square own board",
			reply: `{"user_board":[["0","0","0"]],"pc_board":[["?","?"],["?","?"]]}`,
			call:  func(c *Client) error { _, err := c.Start(context.Background()); return err },
		},
		{
			name:  "state size mismatch",
			reply: `{"user_board":[["~","~"],["~","~"]],"pc_board":[["?"]]}`,
			call:  func(c *Client) error { _, err := c.State(context.Background()); return err },
		},
		{
			name:  "set_options ragged pc board",
			reply: `{"user_board":[["~","~"],["~","~"]],"pc_board":[["?","?"],["?"]]}`,
			call: func(c *Client) error {
				_, err := c.SetOptions(context.Background(), Options{GameMode: ModeUserVsMCTS, BoatPlacement: PlacementRandom})
				return err
			},
		},
		{
			name:  "user_move mismatch",
			reply: `{"user_board":[["~"]],"pc_board":[["?","?"],["?","?"]],"summary":[]}`,
			call:  func(c *Client) error { _, err := c.UserMove(context.Background(), Coord{}); return err },
		},
		{
			name:  "auto_move non-square",
			reply: `{"user_board":[["X","~"]],"pc_board":[["X","~"]]}`,
			call:  func(c *Client) error { _, err := c.AutoMove(context.Background()); return err },
		},
		{
			name:  "manual_place non-square",
			reply: `{"message":"Boat placed.","user_board":[["1","1","~"],["~","~","~"]]}`,
			call: func(c *Client) error {
				_, err := c.ManualPlace(context.Background(), Coord{0, 0}, Coord{0, 1})
				return err
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tc.reply, http.StatusOK)
			if err := tc.call(NewClient(srv.URL)); !errors.Is(err, ErrMalformed) {
				t.Fatalf("err=%v want ErrMalformed", err)
			}
		})
	}
}

func TestClient_AcceptsSingleBoardReplies(t *testing.T) {
	srv, _ := newTestServer(t, `{"message":"Boat placed.","user_board":[["1","~"],["~","~"]]}`, http.StatusOK)
	res, err := NewClient(srv.URL).ManualPlace(context.Background(), Coord{0, 0}, Coord{0, 0})
	if err != nil {
		t.Fatalf("ManualPlace: %v", err)
	}
	if n, square := res.UserBoard.Size(); n != 2 || !square {
		t.Fatalf("user board size=%d square=%v", n, square)
	}

	srv, _ = newTestServer(t, `{"message":"Game over","pc_board":[["X"]]}`, http.StatusOK)
	if _, err := NewClient(srv.URL).State(context.Background()); err != nil {
		t.Fatalf("State with one board: %v", err)
	}
}
