package hub

import (
	"context"
	"testing"

	"github.com/DoyleJ11/lol-champ-roulette/internal/engine"
	"github.com/DoyleJ11/lol-champ-roulette/internal/lobby"
)

func TestHub_Create_Get_SamePointer(t *testing.T) {
	ctx := context.Background()
	h := NewHub(ctx)
	reply := make(chan *lobby.Lobby, 1)

	h.Inbox() <- CreateLobby{Code: "ZED123", Game: lobby.Game{}, Reply: reply}
	lb1 := <-reply

	h.Inbox() <- GetLobby{Code: "ZED123", Reply: reply}
	lb2 := <-reply

	if lb1 == nil || lb2 == nil || lb1 != lb2 {
		t.Fatalf("expected same lobby pointer")
	}
}

func TestHub_Create_TakenCode(t *testing.T) {
	h := NewHub(context.Background())
	reply := make(chan *lobby.Lobby, 1)

	first := lobby.Game{Blue: engine.Roster{"a#NA1"}}
	h.Inbox() <- CreateLobby{Code: "ZED123", Game: first, Reply: reply}
	lb1 := <-reply
	if lb1 == nil {
		t.Fatalf("expected a lobby for a free code")
	}

	h.Inbox() <- CreateLobby{Code: "ZED123", Game: lobby.Game{Blue: engine.Roster{"b#NA1"}}, Reply: reply}
	if lb2 := <-reply; lb2 != nil {
		t.Fatalf("create on a taken code should reply nil, got a lobby")
	}

	h.Inbox() <- GetLobby{Code: "ZED123", Reply: reply}
	if lb := <-reply; lb != lb1 {
		t.Fatalf("taken code should still map to the first lobby")
	}

	views := make(chan lobby.View, 1)
	lb1.Inbox() <- lobby.GetState{Reply: views}
	if v := <-views; len(v.Game.Blue) != 1 || v.Game.Blue[0] != "a#NA1" {
		t.Fatalf("first lobby's game was replaced: %v", v.Game.Blue)
	}
}

func TestHub_Remove(t *testing.T) {
	h := NewHub(context.Background())
	reply := make(chan *lobby.Lobby, 1)

	h.Inbox() <- CreateLobby{Code: "LEE001", Reply: reply}
	<-reply

	h.Inbox() <- RemoveLobby{Code: "LEE001"}
	h.Inbox() <- GetLobby{Code: "LEE001", Reply: reply}
	if lb := <-reply; lb != nil {
		t.Fatalf("expected lobby to be removed")
	}
}
