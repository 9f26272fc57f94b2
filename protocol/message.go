package protocol

import (
	"fmt"
)

// Message 一条可编码的协议消息
type Message interface {
	Type() MsgType
	encodePayload(w *binaryWriter) error
}

// ---------- 客户端 → 服务端 ----------

type VersionMsg struct {
	Version string
}

type SubscribeInfoMsg struct{}

type LoginMsg struct {
	Symbol byte
}

type LogoutMsg struct{}

type ConnectUDPMsg struct {
	Token int32
}

type TrustUDPMsg struct{}

type MovePlayerMsg struct {
	Dir uint8
}

type CastSkillMsg struct {
	Dir    uint8
	Attack uint8
}

func (VersionMsg) Type() MsgType { return MsgVersion }
func (SubscribeInfoMsg) Type() MsgType { return MsgSubscribeInfo }
func (LoginMsg) Type() MsgType { return MsgLogin }
func (LogoutMsg) Type() MsgType { return MsgLogout }
func (ConnectUDPMsg) Type() MsgType { return MsgConnectUDP }
func (TrustUDPMsg) Type() MsgType { return MsgTrustUDP }
func (MovePlayerMsg) Type() MsgType { return MsgMovePlayer }
func (CastSkillMsg) Type() MsgType { return MsgCastSkill }

func (m VersionMsg) encodePayload(w *binaryWriter) error {
	w.writeShortString(m.Version, MaxVersionLen)
	return nil
}

func (SubscribeInfoMsg) encodePayload(*binaryWriter) error { return nil }

func (m LoginMsg) encodePayload(w *binaryWriter) error {
	w.writeUint8(m.Symbol)
	return nil
}

func (LogoutMsg) encodePayload(*binaryWriter) error { return nil }

func (m ConnectUDPMsg) encodePayload(w *binaryWriter) error {
	w.writeInt32(m.Token)
	return nil
}

func (TrustUDPMsg) encodePayload(*binaryWriter) error { return nil }

func (m MovePlayerMsg) encodePayload(w *binaryWriter) error {
	w.writeUint8(m.Dir)
	return nil
}

func (m CastSkillMsg) encodePayload(w *binaryWriter) error {
	w.writeUint8(m.Dir)
	w.writeUint8(m.Attack)
	return nil
}

// ---------- 服务端 → 客户端 ----------

type VersionResponseMsg struct {
	Version    string
	Compatible bool
}

type StaticInfoMsg struct {
	UDPPort      uint16
	MapSize      uint16
	WinnerPoints uint16
	MaxPlayers   uint16
}

type DynamicInfoMsg struct {
	Symbols []byte
}

type LoginStatusMsg struct {
	Symbol byte
	Status LoginCode
	Token  int32
}

type UDPConnectedMsg struct{}

type StartGameMsg struct {
	WinnerPoints uint16
}

type FinishGameMsg struct {
	Winner byte
}

type WaitArenaMsg struct {
	Seconds uint16
}

// StartArenaMsg 新一轮开始：每个玩家的实体 id 与完整地形
type StartArenaMsg struct {
	Round     uint16
	MapSize   uint16
	EntityIDs []int32
	Terrain   []byte
}

type GameStepMsg struct {
	Entities    []EntityRecord
	Projectiles []ProjectileRecord
	Players     []PlayerRecord
}

type GameEventMsg struct {
	Symbol byte
	Points uint16
}

func (VersionResponseMsg) Type() MsgType { return MsgVersionResponse }
func (StaticInfoMsg) Type() MsgType { return MsgStaticInfo }
func (DynamicInfoMsg) Type() MsgType { return MsgDynamicInfo }
func (LoginStatusMsg) Type() MsgType { return MsgLoginStatus }
func (UDPConnectedMsg) Type() MsgType { return MsgUDPConnected }
func (StartGameMsg) Type() MsgType { return MsgStartGame }
func (FinishGameMsg) Type() MsgType { return MsgFinishGame }
func (WaitArenaMsg) Type() MsgType { return MsgWaitArena }
func (StartArenaMsg) Type() MsgType { return MsgStartArena }
func (GameStepMsg) Type() MsgType { return MsgGameStep }
func (GameEventMsg) Type() MsgType { return MsgGameEvent }

func (m VersionResponseMsg) encodePayload(w *binaryWriter) error {
	w.writeShortString(m.Version, MaxVersionLen)
	w.writeBool(m.Compatible)
	return nil
}

func (m StaticInfoMsg) encodePayload(w *binaryWriter) error {
	w.writeUint16(m.UDPPort)
	w.writeUint16(m.MapSize)
	w.writeUint16(m.WinnerPoints)
	w.writeUint16(m.MaxPlayers)
	return nil
}

func (m DynamicInfoMsg) encodePayload(w *binaryWriter) error {
	if len(m.Symbols) > 0xFF {
		return fmt.Errorf("%w: %d symbols", ErrInvalidField, len(m.Symbols))
	}
	w.writeUint8(uint8(len(m.Symbols)))
	w.writeBytes(m.Symbols)
	return nil
}

func (m LoginStatusMsg) encodePayload(w *binaryWriter) error {
	w.writeUint8(m.Symbol)
	w.writeUint8(uint8(m.Status))
	w.writeInt32(m.Token)
	return nil
}

func (UDPConnectedMsg) encodePayload(*binaryWriter) error { return nil }

func (m StartGameMsg) encodePayload(w *binaryWriter) error {
	w.writeUint16(m.WinnerPoints)
	return nil
}

func (m FinishGameMsg) encodePayload(w *binaryWriter) error {
	w.writeUint8(m.Winner)
	return nil
}

func (m WaitArenaMsg) encodePayload(w *binaryWriter) error {
	w.writeUint16(m.Seconds)
	return nil
}

func (m StartArenaMsg) encodePayload(w *binaryWriter) error {
	if len(m.EntityIDs) > 0xFF {
		return fmt.Errorf("%w: %d players", ErrInvalidField, len(m.EntityIDs))
	}
	if len(m.Terrain) != int(m.MapSize)*int(m.MapSize) {
		return fmt.Errorf("%w: terrain %d bytes for map size %d", ErrInvalidField, len(m.Terrain), m.MapSize)
	}
	w.writeUint16(m.Round)
	w.writeUint8(uint8(len(m.EntityIDs)))
	w.writeUint16(m.MapSize)
	for _, id := range m.EntityIDs {
		w.writeInt32(id)
	}
	w.writeBytes(m.Terrain)
	return nil
}

func (m GameStepMsg) encodePayload(w *binaryWriter) error {
	if len(m.Entities) > 0xFF || len(m.Projectiles) > 0xFF || len(m.Players) > 0xFF {
		return fmt.Errorf("%w: game step counts", ErrInvalidField)
	}
	w.writeUint8(uint8(len(m.Entities)))
	w.writeUint8(uint8(len(m.Projectiles)))
	w.writeUint8(uint8(len(m.Players)))
	for _, e := range m.Entities {
		e.encode(w)
	}
	for _, p := range m.Projectiles {
		p.encode(w)
	}
	for _, p := range m.Players {
		p.encode(w)
	}
	return nil
}

func (m GameEventMsg) encodePayload(w *binaryWriter) error {
	w.writeUint8(m.Symbol)
	w.writeUint16(m.Points)
	return nil
}

// Encode 生成 头 + 载荷 的完整帧
func Encode(m Message) ([]byte, error) {
	w := &binaryWriter{}
	w.writeBytes(make([]byte, HeaderSize))
	if err := m.encodePayload(w); err != nil {
		return nil, err
	}
	payload := w.len() - HeaderSize
	if payload > MaxPayload {
		return nil, fmt.Errorf("%w: type %d, %d bytes", ErrPayloadTooLarge, m.Type(), payload)
	}
	out := w.buf.Bytes()
	Header{Type: m.Type(), Length: uint16(payload)}.put(out)
	return out, nil
}

// MustEncode 只用于长度固定、不可能失败的消息
func MustEncode(m Message) []byte {
	b, err := Encode(m)
	if err != nil {
		panic(err)
	}
	return b
}
