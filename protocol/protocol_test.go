package protocol

import (
	"bytes"
	"errors"
	"math/rand"
	"reflect"
	"testing"
)

func TestHeaderLittleEndian(t *testing.T) {
	b, err := Encode(StaticInfoMsg{UDPPort: 0x0BC3, MapSize: 20, WinnerPoints: 5, MaxPlayers: 2})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{byte(MsgStaticInfo), 8, 0, 0xC3, 0x0B, 20, 0, 5, 0, 2, 0}
	if !bytes.Equal(b, want) {
		t.Fatalf("encoded %v, want %v", b, want)
	}
}

func TestClientMessagesRoundTrip(t *testing.T) {
	msgs := []Message{
		VersionMsg{Version: "1.0.0"},
		SubscribeInfoMsg{},
		LoginMsg{Symbol: 'A'},
		LogoutMsg{},
		ConnectUDPMsg{Token: -123456},
		TrustUDPMsg{},
		MovePlayerMsg{Dir: 3},
		CastSkillMsg{Dir: 1, Attack: 2},
	}
	for _, m := range msgs {
		b, err := Encode(m)
		if err != nil {
			t.Fatalf("%T encode: %v", m, err)
		}
		got, err := DecodeClientMessage(b)
		if err != nil {
			t.Fatalf("%T decode: %v", m, err)
		}
		if !reflect.DeepEqual(got, m) {
			t.Fatalf("round trip %#v, got %#v", m, got)
		}
	}
}

func TestServerMessagesRoundTrip(t *testing.T) {
	terrain := make([]byte, 4*4)
	for i := range terrain {
		terrain[i] = byte(i % 2)
	}
	msgs := []Message{
		VersionResponseMsg{Version: "1.0.0", Compatible: true},
		StaticInfoMsg{UDPPort: 3043, MapSize: 20, WinnerPoints: 5, MaxPlayers: 8},
		DynamicInfoMsg{Symbols: []byte("ABZ")},
		DynamicInfoMsg{},
		LoginStatusMsg{Symbol: 'Q', Status: LoginSymbolTaken, Token: 77},
		UDPConnectedMsg{},
		StartGameMsg{WinnerPoints: 12},
		FinishGameMsg{Winner: 'C'},
		WaitArenaMsg{Seconds: 3},
		StartArenaMsg{Round: 4, MapSize: 4, EntityIDs: []int32{0, 1, -1}, Terrain: terrain},
		GameStepMsg{
			Entities: []EntityRecord{
				{ID: 1, Symbol: 'A', X: 3, Y: 4, Health: 95, Energy: 40, Facing: 2, Flags: EntityFlagAlive | EntityFlagDamaged},
				{ID: 2, Symbol: 'B', X: -1, Y: 19, Health: 0, Energy: 100, Facing: 0},
			},
			Projectiles: []ProjectileRecord{{ID: 9, X: 5, Y: 6, Dir: 3, Kind: 2}},
			Players:     []PlayerRecord{{Symbol: 'A', Points: 300}, {Symbol: 'B', Points: 0}},
		},
		GameStepMsg{Players: []PlayerRecord{{Symbol: 'A', Points: 1}}},
		GameEventMsg{Symbol: 'B', Points: 2},
	}
	for _, m := range msgs {
		b, err := Encode(m)
		if err != nil {
			t.Fatalf("%T encode: %v", m, err)
		}
		got, err := DecodeServerMessage(b)
		if err != nil {
			t.Fatalf("%T decode: %v", m, err)
		}
		if !reflect.DeepEqual(got, m) {
			t.Fatalf("round trip %#v, got %#v", m, got)
		}
	}
}

func TestRecordSizes(t *testing.T) {
	m := GameStepMsg{
		Entities:    make([]EntityRecord, 2),
		Projectiles: make([]ProjectileRecord, 3),
		Players:     make([]PlayerRecord, 4),
	}
	b, err := Encode(m)
	if err != nil {
		t.Fatal(err)
	}
	want := HeaderSize + 3 + 2*EntityRecordSize + 3*ProjectileRecordSize + 4*PlayerRecordSize
	if len(b) != want {
		t.Fatalf("game step is %d bytes, want %d", len(b), want)
	}
}

func TestVersionStringTruncated(t *testing.T) {
	long := string(bytes.Repeat([]byte("v"), MaxVersionLen+10))
	b, err := Encode(VersionMsg{Version: long})
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeClientMessage(b)
	if err != nil {
		t.Fatal(err)
	}
	if v := got.(VersionMsg).Version; len(v) != MaxVersionLen {
		t.Fatalf("version length %d, want %d", len(v), MaxVersionLen)
	}
}

func TestEncodeRejectsBadFields(t *testing.T) {
	_, err := Encode(StartArenaMsg{MapSize: 3, Terrain: make([]byte, 8)})
	if !errors.Is(err, ErrInvalidField) {
		t.Fatalf("terrain mismatch: %v", err)
	}
	big := make([]byte, 70*70)
	_, err = Encode(StartArenaMsg{MapSize: 70, Terrain: big})
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("oversized payload: %v", err)
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := DecodeClientMessage([]byte{byte(MsgLogin), 1}); !errors.Is(err, ErrShortBuffer) {
		t.Fatalf("short header: %v", err)
	}
	if _, err := DecodeClientMessage([]byte{byte(MsgConnectUDP), 4, 0, 1, 2}); !errors.Is(err, ErrShortBuffer) {
		t.Fatalf("short frame: %v", err)
	}
	if _, err := DecodeClientMessage([]byte{byte(MsgConnectUDP), 2, 0, 1, 2}); !errors.Is(err, ErrShortBuffer) {
		t.Fatalf("short payload: %v", err)
	}
	if _, err := DecodeClientMessage([]byte{42, 0, 0}); !errors.Is(err, ErrUnknownMessage) {
		t.Fatalf("unknown client type: %v", err)
	}
	if _, err := DecodeServerMessage([]byte{42, 0, 0}); !errors.Is(err, ErrUnknownMessage) {
		t.Fatalf("unknown server type: %v", err)
	}
}

func TestFramerReassemblesArbitraryChunks(t *testing.T) {
	msgs := []Message{
		VersionMsg{Version: "1.0.0"},
		LoginMsg{Symbol: 'A'},
		ConnectUDPMsg{Token: 5},
		MovePlayerMsg{Dir: 2},
		SubscribeInfoMsg{},
		CastSkillMsg{Dir: 0, Attack: 1},
		LogoutMsg{},
	}
	var stream []byte
	for _, m := range msgs {
		stream = append(stream, MustEncode(m)...)
	}

	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 200; trial++ {
		f := NewFramer()
		var got []Message
		rest := stream
		for len(rest) > 0 {
			n := rng.Intn(len(rest)) + 1
			if rng.Intn(4) == 0 {
				n = 0
			}
			if _, err := f.Write(rest[:n]); err != nil {
				t.Fatal(err)
			}
			rest = rest[n:]
			for {
				frame, ok := f.Next()
				if !ok {
					break
				}
				m, err := DecodeClientMessage(frame)
				if err != nil {
					t.Fatal(err)
				}
				got = append(got, m)
			}
		}
		if !reflect.DeepEqual(got, msgs) {
			t.Fatalf("trial %d: got %v, want %v", trial, got, msgs)
		}
		if f.Buffered() != 0 {
			t.Fatalf("trial %d: %d bytes left over", trial, f.Buffered())
		}
	}
}

func TestFramerWaitsForIncompleteFrame(t *testing.T) {
	f := NewFramer()
	b := MustEncode(ConnectUDPMsg{Token: 1})
	_, _ = f.Write(b[:2])
	if _, ok := f.Next(); ok {
		t.Fatal("frame from partial header")
	}
	_, _ = f.Write(b[2:5])
	if _, ok := f.Next(); ok {
		t.Fatal("frame from partial payload")
	}
	_, _ = f.Write(b[5:])
	frame, ok := f.Next()
	if !ok || !bytes.Equal(frame, b) {
		t.Fatalf("frame %v ok=%v", frame, ok)
	}
}

func TestFramerOverflow(t *testing.T) {
	f := NewFramer()
	if _, err := f.Write(make([]byte, MaxBuffered)); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte{1}); !errors.Is(err, ErrFrameOverflow) {
		t.Fatalf("overflow: %v", err)
	}
	if f.Buffered() != MaxBuffered {
		t.Fatalf("buffered %d", f.Buffered())
	}
	f.Reset()
	if f.Buffered() != 0 {
		t.Fatal("reset left bytes")
	}
}

func TestCompatible(t *testing.T) {
	cases := map[string]bool{
		"1.0.0": true,
		"1.4.2": true,
		"1":     true,
		"2.0.0": false,
		"":      false,
		"0.9":   false,
	}
	for v, want := range cases {
		if got := Compatible(v); got != want {
			t.Errorf("Compatible(%q) = %v, want %v", v, got, want)
		}
	}
}
