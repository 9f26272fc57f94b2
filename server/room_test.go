package server

import (
	"errors"
	"net"
	"testing"

	"spellarena/protocol"
)

func newTestRoom(maxPlayers, lobby int) *Room {
	return NewRoom(maxPlayers, lobby)
}

func TestRoomAttachLobbyFull(t *testing.T) {
	r := newTestRoom(2, 2)
	for id := ConnID(1); id <= 2; id++ {
		if _, err := r.Attach(id, &fakeConn{}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := r.Attach(3, &fakeConn{}); !errors.Is(err, ErrLobbyFull) {
		t.Fatalf("third attach: %v", err)
	}
	if r.LobbyCount() != 2 || r.ActiveCount() != 0 {
		t.Fatalf("lobby %d active %d", r.LobbyCount(), r.ActiveCount())
	}
}

func TestRoomLoginValidationOrder(t *testing.T) {
	r := newTestRoom(1, 4)
	for id := ConnID(1); id <= 3; id++ {
		_, _ = r.Attach(id, &fakeConn{})
	}
	if code, _ := r.Login(1, 'A'); code != protocol.LoginOK {
		t.Fatalf("first login %v", code)
	}
	// 房间已满时，符号校验仍然优先
	if code, _ := r.Login(2, 'a'); code != protocol.LoginInvalidSymbol {
		t.Fatalf("lowercase symbol: %v", code)
	}
	if code, _ := r.Login(2, '1'); code != protocol.LoginInvalidSymbol {
		t.Fatalf("digit symbol: %v", code)
	}
	if code, _ := r.Login(2, 'A'); code != protocol.LoginSymbolTaken {
		t.Fatalf("taken symbol: %v", code)
	}
	if code, _ := r.Login(2, 'B'); code != protocol.LoginRoomFull {
		t.Fatalf("full room: %v", code)
	}
	if code, _ := r.Login(1, 'C'); code != protocol.LoginSymbolTaken {
		t.Fatalf("second login on active session: %v", code)
	}
	if s := r.BySymbol('C'); s != nil {
		t.Fatal("second login changed the session")
	}
}

func TestRoomLoginCarriesBufferedBytes(t *testing.T) {
	r := newTestRoom(2, 2)
	lobby, _ := r.Attach(7, &fakeConn{})

	login := protocol.MustEncode(protocol.LoginMsg{Symbol: 'Z'})
	move := protocol.MustEncode(protocol.MovePlayerMsg{Dir: 2})
	chunk := append(append([]byte{}, login...), move[:2]...)
	_, _ = lobby.Framer().Write(chunk)

	frame, ok := lobby.Framer().Next()
	if !ok || frame[0] != byte(protocol.MsgLogin) {
		t.Fatalf("login frame %v ok=%v", frame, ok)
	}
	code, active := r.Login(7, 'Z')
	if code != protocol.LoginOK || active == nil {
		t.Fatalf("login %v", code)
	}
	if active == lobby || lobby.Framer() != nil {
		t.Fatal("lobby session still owns the buffer")
	}
	if got, _ := r.Session(7); got != active {
		t.Fatal("handle does not resolve to the promoted session")
	}
	if active.Framer().Buffered() != 2 {
		t.Fatalf("buffered %d, want 2", active.Framer().Buffered())
	}

	_, _ = active.Framer().Write(move[2:])
	frame, ok = active.Framer().Next()
	if !ok {
		t.Fatal("move frame not completed after promotion")
	}
	m, err := protocol.DecodeClientMessage(frame)
	if err != nil || m != (protocol.MovePlayerMsg{Dir: 2}) {
		t.Fatalf("move %#v err=%v", m, err)
	}
	if active.Token == 0 || r.LobbyCount() != 0 || r.ActiveCount() != 1 {
		t.Fatalf("token %d lobby %d active %d", active.Token, r.LobbyCount(), r.ActiveCount())
	}
}

func TestRoomBindUDPAndLogout(t *testing.T) {
	r := newTestRoom(2, 2)
	_, _ = r.Attach(1, &fakeConn{})
	_, a := r.Login(1, 'A')

	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9999}
	if _, ok := r.BindUDP(a.Token+1, addr); ok {
		t.Fatal("bound with unknown token")
	}
	s, ok := r.BindUDP(a.Token, addr)
	if !ok || s != a || a.UDPAddr != addr {
		t.Fatal("bind failed")
	}

	demoted, err := r.Logout(1)
	if err != nil {
		t.Fatal(err)
	}
	if demoted.Active() || r.ActiveCount() != 0 || r.LobbyCount() != 1 {
		t.Fatalf("logout left active=%v count=%d", demoted.Active(), r.ActiveCount())
	}
	if _, ok := r.BindUDP(a.Token, addr); ok {
		t.Fatal("token still valid after logout")
	}
	if code, _ := r.Login(1, 'A'); code != protocol.LoginOK {
		t.Fatalf("re-login %v", code)
	}
}

func TestRoomRemove(t *testing.T) {
	r := newTestRoom(2, 2)
	_, _ = r.Attach(1, &fakeConn{})
	_, _ = r.Attach(2, &fakeConn{})
	_, _ = r.Login(2, 'B')

	if s, ok := r.Remove(2); !ok || s.Symbol != 'B' {
		t.Fatal("remove active")
	}
	if _, ok := r.Remove(1); !ok {
		t.Fatal("remove lobby")
	}
	if _, ok := r.Remove(1); ok {
		t.Fatal("double remove")
	}
	if len(r.All()) != 0 || len(r.Symbols()) != 0 {
		t.Fatal("room not empty")
	}
}

func TestRoomTokensIncrease(t *testing.T) {
	r := newTestRoom(2, 4)
	var last int32
	for i := 0; i < 8; i++ {
		id := ConnID(i + 1)
		_, _ = r.Attach(id, &fakeConn{})
		code, s := r.Login(id, byte('A'+i))
		if code != protocol.LoginOK {
			t.Fatalf("login %d: %v", i, code)
		}
		if s.Token <= last {
			t.Fatalf("token %d not greater than previous %d", s.Token, last)
		}
		last = s.Token
		// 断开后槽位空出，令牌不回收
		if _, ok := r.Remove(id); !ok {
			t.Fatal("remove failed")
		}
	}
	if last != 8 {
		t.Fatalf("last token %d, want 8", last)
	}
}
