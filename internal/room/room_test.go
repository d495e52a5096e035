package room

import (
	"sync"
	"testing"
	"time"

	"cardroom/internal/config"
	"cardroom/internal/engine"
	"cardroom/internal/engine/dominoes"
	"cardroom/internal/engine/spades"
	"cardroom/internal/events"
	"cardroom/internal/roomerrors"
	"cardroom/internal/timer"
)

// fakeEmitter records every emission so tests can assert on fan-out without
// a real transport (spec.md §4.10).
type fakeEmitter struct {
	mu     sync.Mutex
	toRoom []events.Name
	toUser map[string][]events.Name
}

func newFakeEmitter() *fakeEmitter {
	return &fakeEmitter{toUser: make(map[string][]events.Name)}
}

func (f *fakeEmitter) EmitToRoom(roomID string, topic events.Name, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toRoom = append(f.toRoom, topic)
}

func (f *fakeEmitter) EmitToUser(userID string, topic events.Name, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toUser[userID] = append(f.toUser[userID], topic)
}

func testConfig() *config.Config {
	return &config.Config{
		Port:                   "8080",
		Environment:            "test",
		RoomEmptyTTL:           50 * time.Millisecond,
		ReconnectTimeout:       50 * time.Millisecond,
		JoinRequestCooldown:    time.Minute,
		JoinRequestMaxAttempts: 3,
		TurnTimerGrace:         0,
	}
}

func newTestRegistry() (*Registry, *fakeEmitter) {
	games := engine.NewRegistry()
	games.Register(spades.NewModule())
	games.Register(dominoes.NewModule())
	timers := timer.NewServiceWithGrace(0)
	emitter := newFakeEmitter()
	reg := NewRegistry(games, emitter, timers, testConfig())
	return reg, emitter
}

func TestCreateRoom_CreatorIsSoleMemberAndLeader(t *testing.T) {
	reg, emitter := newTestRegistry()
	r, err := reg.CreateRoom("table", "u1", "Alice", false, 4)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if r.LeaderID != "u1" {
		t.Errorf("expected creator to be leader, got %q", r.LeaderID)
	}
	if len(r.Users) != 1 || r.Users[0].ID != "u1" {
		t.Errorf("expected creator as sole member, got %v", r.Users)
	}
	if len(emitter.toRoom) != 1 || emitter.toRoom[0] != events.RoomCreated {
		t.Errorf("expected a single room_created emission, got %v", emitter.toRoom)
	}
}

func TestGetRoomByCode_NormalizesCase(t *testing.T) {
	reg, _ := newTestRegistry()
	r, _ := reg.CreateRoom("table", "u1", "Alice", false, 4)

	found, ok := reg.GetRoomByCode(lower(r.Code))
	if !ok || found.ID != r.ID {
		t.Errorf("expected lowercase lookup to find the room, ok=%v", ok)
	}
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func TestJoinRoom_PrivateRoomRejectsStranger(t *testing.T) {
	reg, _ := newTestRegistry()
	r, _ := reg.CreateRoom("table", "u1", "Alice", true, 4)

	_, err := reg.JoinRoom(r.ID, "u2", "Bob", false)
	rerr, ok := roomerrors.As(err)
	if !ok || rerr.Kind != roomerrors.ForbiddenKind {
		t.Fatalf("expected forbidden error for a private room, got %v", err)
	}
}

func TestJoinRoom_RejectsRoomFull(t *testing.T) {
	reg, _ := newTestRegistry()
	r, _ := reg.CreateRoom("table", "u1", "Alice", false, 1)

	_, err := reg.JoinRoom(r.ID, "u2", "Bob", false)
	rerr, ok := roomerrors.As(err)
	if !ok || rerr.Kind != roomerrors.ConflictKind {
		t.Fatalf("expected conflict error for a full room, got %v", err)
	}
}

func TestJoinRoom_RejectsKickedUser(t *testing.T) {
	reg, _ := newTestRegistry()
	r, _ := reg.CreateRoom("table", "u1", "Alice", false, 4)
	reg.JoinRoom(r.ID, "u2", "Bob", false)
	if _, _, err := reg.Kick(r.ID, "u1", "u2"); err != nil {
		t.Fatalf("kick: %v", err)
	}

	_, err := reg.JoinRoom(r.ID, "u2", "Bob", false)
	rerr, ok := roomerrors.As(err)
	if !ok || rerr.Kind != roomerrors.ForbiddenKind {
		t.Fatalf("expected forbidden rejoin for a kicked user, got %v", err)
	}
}

func fillFourPlayerSpadesRoom(t *testing.T, reg *Registry) Snapshot {
	t.Helper()
	r, err := reg.CreateRoom("table", "u1", "Alice", false, 4)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	for _, u := range []struct{ id, name string }{{"u2", "Bob"}, {"u3", "Carol"}, {"u4", "Dave"}} {
		if _, err := reg.JoinRoom(r.ID, u.id, u.name, false); err != nil {
			t.Fatalf("join %s: %v", u.id, err)
		}
	}
	if _, err := reg.SelectGame(r.ID, "u1", spades.Type); err != nil {
		t.Fatalf("select game: %v", err)
	}
	if _, err := reg.SetTeams(r.ID, "u1", [][]string{{"u1", "u3"}, {"u2", "u4"}}, true); err != nil {
		t.Fatalf("set teams: %v", err)
	}
	for _, id := range []string{"u1", "u2", "u3", "u4"} {
		if _, err := reg.ToggleReady(r.ID, id, true); err != nil {
			t.Fatalf("toggle ready %s: %v", id, err)
		}
	}
	snap, err := reg.StartGame(r.ID, "u1")
	if err != nil {
		t.Fatalf("start game: %v", err)
	}
	return snap
}

func TestStartGame_RequiresAllMembersReady(t *testing.T) {
	reg, _ := newTestRegistry()
	r, _ := reg.CreateRoom("table", "u1", "Alice", false, 4)
	reg.JoinRoom(r.ID, "u2", "Bob", false)
	reg.JoinRoom(r.ID, "u3", "Carol", false)
	reg.JoinRoom(r.ID, "u4", "Dave", false)
	reg.SelectGame(r.ID, "u1", spades.Type)
	reg.SetTeams(r.ID, "u1", [][]string{{"u1", "u3"}, {"u2", "u4"}}, true)

	_, err := reg.StartGame(r.ID, "u1")
	rerr, ok := roomerrors.As(err)
	if !ok || rerr.Kind != roomerrors.BadRequestKind {
		t.Fatalf("expected bad-request error when not everyone is ready, got %v", err)
	}
}

func TestStartGame_TransitionsRoomToInGame(t *testing.T) {
	reg, _ := newTestRegistry()
	snap := fillFourPlayerSpadesRoom(t, reg)
	if snap.State != StateInGame {
		t.Errorf("expected room state in-game, got %v", snap.State)
	}
	if snap.GameID == "" {
		t.Error("expected a game id to be assigned")
	}
}

func TestDispatchAction_WrongTurnRejected(t *testing.T) {
	reg, _ := newTestRegistry()
	snap := fillFourPlayerSpadesRoom(t, reg)

	st, ok := reg.games.GetGame(snap.GameID)
	if !ok {
		t.Fatal("expected game to exist")
	}
	gs := st.(*spades.State)
	current := gs.PlayOrder[gs.CurrentTurnIndex]

	// exactly one of the four seats holds the turn; the rest must be
	// rejected as "not your turn" for an otherwise-valid bid. The current
	// player bids last, since an accepted bid moves the turn on.
	order := []string{}
	for _, id := range []string{"u1", "u2", "u3", "u4"} {
		if id != current {
			order = append(order, id)
		}
	}
	order = append(order, current)
	successes, rejections := 0, 0
	for _, id := range order {
		_, err := reg.DispatchAction(snap.ID, engine.Action{Type: "PLACE_BID", PlayerID: id, Data: map[string]any{"type": "normal", "amount": 3.0}})
		if err == nil {
			successes++
			continue
		}
		rerr, ok := roomerrors.As(err)
		if ok && rerr.Kind == roomerrors.BadRequestKind {
			rejections++
		}
	}
	if successes != 1 {
		t.Errorf("expected exactly 1 successful bid (the current player), got %d", successes)
	}
	if rejections != 3 {
		t.Errorf("expected the other 3 seats to be rejected for acting out of turn, got %d", rejections)
	}
}

func TestDisconnectReconnect_PausesAndResumesInGameRoom(t *testing.T) {
	reg, emitter := newTestRegistry()
	snap := fillFourPlayerSpadesRoom(t, reg)

	if _, err := reg.Register("sock-u1", snap.ID, "u1"); err != nil {
		t.Fatalf("register u1: %v", err)
	}
	if _, err := reg.Register("sock-u2", snap.ID, "u2"); err != nil {
		t.Fatalf("register u2: %v", err)
	}
	if _, err := reg.Register("sock-u3", snap.ID, "u3"); err != nil {
		t.Fatalf("register u3: %v", err)
	}
	if _, err := reg.Register("sock-u4", snap.ID, "u4"); err != nil {
		t.Fatalf("register u4: %v", err)
	}

	reg.Disconnect("sock-u1")
	r, ok := reg.GetRoomByID(snap.ID)
	if !ok {
		t.Fatal("room vanished")
	}
	r.mu.Lock()
	idx := r.userIndex("u1")
	disconnected := idx >= 0 && !r.Users[idx].Connected
	r.mu.Unlock()
	if !disconnected {
		t.Error("expected u1 to be marked disconnected")
	}

	if _, err := reg.Register("sock-u1-new", snap.ID, "u1"); err != nil {
		t.Fatalf("re-register u1: %v", err)
	}
	r.mu.Lock()
	idx = r.userIndex("u1")
	reconnected := idx >= 0 && r.Users[idx].Connected
	r.mu.Unlock()
	if !reconnected {
		t.Error("expected u1 to be marked connected again after reconnect")
	}
	_ = emitter
}

func TestRegister_DuplicateConnectionReportsPriorSocket(t *testing.T) {
	reg, _ := newTestRegistry()
	r, _ := reg.CreateRoom("table", "u1", "Alice", false, 4)

	if _, err := reg.Register("sock-a", r.ID, "u1"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	result, err := reg.Register("sock-b", r.ID, "u1")
	if err != nil {
		t.Fatalf("second register: %v", err)
	}
	if result.AlreadyConnectedSocketID != "sock-a" {
		t.Errorf("expected prior socket sock-a reported, got %q", result.AlreadyConnectedSocketID)
	}

	// Closing the superseded socket must not touch the roster: the user
	// index already points at sock-b.
	reg.Disconnect("sock-a")
	live, ok := reg.GetRoomByID(r.ID)
	if !ok {
		t.Fatal("room vanished after stale-socket close")
	}
	live.mu.Lock()
	stillMember := live.hasUser("u1")
	live.mu.Unlock()
	if !stillMember {
		t.Error("stale-socket close removed the user despite a newer connection")
	}

	reg.mu.RLock()
	current := reg.userToSocket["u1"]
	reg.mu.RUnlock()
	if current != "sock-b" {
		t.Errorf("expected u1 to remain bound to sock-b, got %q", current)
	}
}

func TestKick_BelowMinimumAbortsGameImmediately(t *testing.T) {
	reg, emitter := newTestRegistry()
	snap := fillFourPlayerSpadesRoom(t, reg)

	// A kicked player is deny-listed and can never reconnect, so dropping
	// below minimum must abort outright rather than pause for 120s.
	if _, _, err := reg.Kick(snap.ID, "u1", "u2"); err != nil {
		t.Fatalf("kick: %v", err)
	}

	after, ok := reg.SnapshotByID(snap.ID)
	if !ok {
		t.Fatal("room vanished after kick")
	}
	if after.State != StateLobby {
		t.Errorf("expected room back in lobby after abort, got %v", after.State)
	}
	if after.GameID != "" {
		t.Errorf("expected game id cleared, got %q", after.GameID)
	}
	if after.IsPaused {
		t.Error("expected no pause after an abort")
	}
	if _, ok := reg.games.GetGame(snap.GameID); ok {
		t.Error("expected game state disposed")
	}

	emitter.mu.Lock()
	aborted := false
	for _, topic := range emitter.toRoom {
		if topic == events.GameAborted {
			aborted = true
		}
	}
	emitter.mu.Unlock()
	if !aborted {
		t.Error("expected a game_aborted emission")
	}
}

func TestSetTeams_RejectsDuplicatePlayerAcrossTeams(t *testing.T) {
	reg, _ := newTestRegistry()
	r, _ := reg.CreateRoom("table", "u1", "Alice", false, 4)
	reg.JoinRoom(r.ID, "u2", "Bob", false)

	_, err := reg.SetTeams(r.ID, "u1", [][]string{{"u1", "u2"}, {"u1", "u2"}}, false)
	if err == nil {
		t.Error("expected error for a player appearing on two teams")
	}
}

func TestSetTeams_NonLeaderRejected(t *testing.T) {
	reg, _ := newTestRegistry()
	r, _ := reg.CreateRoom("table", "u1", "Alice", false, 4)
	reg.JoinRoom(r.ID, "u2", "Bob", false)

	_, err := reg.SetTeams(r.ID, "u2", [][]string{{"u1", "u2"}}, false)
	rerr, ok := roomerrors.As(err)
	if !ok || rerr.Kind != roomerrors.ForbiddenKind {
		t.Fatalf("expected forbidden for non-leader SetTeams, got %v", err)
	}
}
