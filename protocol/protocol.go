package protocol

import (
	"errors"
	"strings"
)

// Version 当前协议版本，主版本号一致即视为兼容
const Version = "1.0.0"

// Compatible 对端版本与本端主版本号一致
func Compatible(version string) bool {
	theirs, _, _ := strings.Cut(version, ".")
	ours, _, _ := strings.Cut(Version, ".")
	return theirs != "" && theirs == ours
}

const (
	HeaderSize    = 3
	MaxPacketSize = 4096
	MaxPayload    = MaxPacketSize - HeaderSize
	// MaxBuffered 单条 TCP 流允许积压的未成帧字节数
	MaxBuffered = MaxPacketSize * 2
	// MaxVersionLen 版本字符串最大长度，超出部分截断
	MaxVersionLen = 32
)

// MsgType 消息类型。客户端与服务端各自一套编号，数值会重叠
type MsgType uint8

// 客户端 → 服务端
const (
	MsgVersion       MsgType = 0
	MsgSubscribeInfo MsgType = 1
	MsgLogin         MsgType = 2
	MsgLogout        MsgType = 3
	MsgConnectUDP    MsgType = 4
	MsgTrustUDP      MsgType = 5
	MsgMovePlayer    MsgType = 6
	MsgCastSkill     MsgType = 7
)

// 服务端 → 客户端
const (
	MsgVersionResponse MsgType = 0
	MsgStaticInfo      MsgType = 1
	MsgDynamicInfo     MsgType = 2
	MsgLoginStatus     MsgType = 3
	MsgUDPConnected    MsgType = 4
	MsgStartGame       MsgType = 5
	MsgFinishGame      MsgType = 6
	MsgWaitArena       MsgType = 7
	MsgStartArena      MsgType = 8
	MsgGameStep        MsgType = 9
	MsgGameEvent       MsgType = 10
)

// LoginCode 登录结果
type LoginCode uint8

const (
	LoginOK            LoginCode = 0
	LoginInvalidSymbol LoginCode = 1
	LoginSymbolTaken   LoginCode = 2
	LoginRoomFull      LoginCode = 3
)

func (c LoginCode) String() string {
	switch c {
	case LoginOK:
		return "ok"
	case LoginInvalidSymbol:
		return "invalid_symbol"
	case LoginSymbolTaken:
		return "symbol_taken"
	case LoginRoomFull:
		return "room_full"
	default:
		return "unknown"
	}
}

var (
	ErrShortBuffer     = errors.New("protocol: buffer too short")
	ErrUnknownMessage  = errors.New("protocol: unknown message type")
	ErrPayloadTooLarge = errors.New("protocol: payload exceeds packet size")
	ErrFrameOverflow   = errors.New("protocol: receive buffer overflow")
	ErrInvalidField    = errors.New("protocol: invalid field")
)

// Header 每条消息的固定头：类型 1 字节 + 载荷长度 2 字节（小端）
type Header struct {
	Type   MsgType
	Length uint16
}

// FrameSize 头 + 载荷的总长度
func (h Header) FrameSize() int { return HeaderSize + int(h.Length) }

func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, ErrShortBuffer
	}
	return Header{Type: MsgType(b[0]), Length: uint16(b[1]) | uint16(b[2])<<8}, nil
}

func (h Header) put(b []byte) {
	b[0] = byte(h.Type)
	b[1] = byte(h.Length)
	b[2] = byte(h.Length >> 8)
}
