package server

import (
	"errors"
	"net"

	"spellarena/protocol"
)

// DefaultLobbySize 未登录连接的最大数量
const DefaultLobbySize = 16

var ErrLobbyFull = errors.New("lobby is full")

// Session 一条 TCP 连接在房间中的状态
// 登录前只有连接和接收缓冲；登录后绑定符号与令牌
type Session struct {
	ID     ConnID
	Conn   Conn
	framer *protocol.Framer

	Symbol     byte
	Token      int32
	Subscribed bool

	UDPAddr  *net.UDPAddr
	TrustUDP bool
}

// Active 是否已登录
func (s *Session) Active() bool { return s.Token != 0 }

// Framer 该连接的接收缓冲
func (s *Session) Framer() *protocol.Framer { return s.framer }

// Room 会话表：lobby 存放未登录连接，active 为固定容量的已登录槽位
// 只由 Tick 线程访问，无锁
type Room struct {
	lobby  []*Session
	active []*Session // nil 表示空槽
	byConn map[ConnID]*Session
	tokens map[int32]*Session

	// nextToken 单调递增，从 1 开始，0 表示未登录
	nextToken int32
}

func NewRoom(maxPlayers, lobbySize int) *Room {
	if lobbySize <= 0 {
		lobbySize = DefaultLobbySize
	}
	return &Room{
		lobby:     make([]*Session, lobbySize),
		active:    make([]*Session, maxPlayers),
		byConn:    make(map[ConnID]*Session),
		tokens:    make(map[int32]*Session),
		nextToken: 1,
	}
}

// Attach 新连接进入 lobby，lobby 满时返回 ErrLobbyFull
func (r *Room) Attach(id ConnID, conn Conn) (*Session, error) {
	slot := freeSlot(r.lobby)
	if slot < 0 {
		return nil, ErrLobbyFull
	}
	s := &Session{ID: id, Conn: conn, framer: protocol.NewFramer()}
	r.lobby[slot] = s
	r.byConn[id] = s
	return s, nil
}

// Session 按连接句柄查找；登录晋升后返回新的会话对象
func (r *Room) Session(id ConnID) (*Session, bool) {
	s, ok := r.byConn[id]
	return s, ok
}

// Login 校验顺序：符号必须是大写字母 → 符号未被占用 → 房间未满
// 成功时会话晋升到 active 槽位，接收缓冲（含登录帧之后已收到的字节）随之转移
func (r *Room) Login(id ConnID, symbol byte) (protocol.LoginCode, *Session) {
	s, ok := r.byConn[id]
	if !ok {
		return protocol.LoginInvalidSymbol, nil
	}
	if symbol < 'A' || symbol > 'Z' {
		return protocol.LoginInvalidSymbol, s
	}
	if s.Active() || r.BySymbol(symbol) != nil {
		return protocol.LoginSymbolTaken, s
	}
	slot := freeSlot(r.active)
	if slot < 0 {
		return protocol.LoginRoomFull, s
	}

	promoted := &Session{
		ID:         s.ID,
		Conn:       s.Conn,
		framer:     s.framer,
		Symbol:     symbol,
		Token:      r.issueToken(),
		Subscribed: s.Subscribed,
	}
	r.clearLobby(s)
	s.framer = nil
	r.active[slot] = promoted
	r.byConn[id] = promoted
	r.tokens[promoted.Token] = promoted
	return protocol.LoginOK, promoted
}

// Logout 已登录会话退回 lobby，缓冲保留；lobby 满时返回 ErrLobbyFull 且会话被移除
func (r *Room) Logout(id ConnID) (*Session, error) {
	s, ok := r.byConn[id]
	if !ok || !s.Active() {
		return s, nil
	}
	r.clearActive(s)
	delete(r.tokens, s.Token)

	slot := freeSlot(r.lobby)
	if slot < 0 {
		delete(r.byConn, id)
		return s, ErrLobbyFull
	}
	demoted := &Session{ID: s.ID, Conn: s.Conn, framer: s.framer, Subscribed: s.Subscribed}
	s.framer = nil
	r.lobby[slot] = demoted
	r.byConn[id] = demoted
	return demoted, nil
}

// BindUDP 用令牌定位会话并记录 UDP 源地址
func (r *Room) BindUDP(token int32, addr *net.UDPAddr) (*Session, bool) {
	s, ok := r.tokens[token]
	if !ok {
		return nil, false
	}
	s.UDPAddr = addr
	return s, true
}

// Remove 从房间中移除连接，返回被移除的会话
func (r *Room) Remove(id ConnID) (*Session, bool) {
	s, ok := r.byConn[id]
	if !ok {
		return nil, false
	}
	delete(r.byConn, id)
	if s.Active() {
		r.clearActive(s)
		delete(r.tokens, s.Token)
	} else {
		r.clearLobby(s)
	}
	return s, true
}

func (r *Room) BySymbol(symbol byte) *Session {
	for _, s := range r.active {
		if s != nil && s.Symbol == symbol {
			return s
		}
	}
	return nil
}

// Active 已登录会话，按槽位顺序
func (r *Room) Active() []*Session {
	out := make([]*Session, 0, len(r.active))
	for _, s := range r.active {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// All 全部会话：先 active 后 lobby
func (r *Room) All() []*Session {
	out := r.Active()
	for _, s := range r.lobby {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Symbols 已登录玩家符号，按槽位顺序
func (r *Room) Symbols() []byte {
	var out []byte
	for _, s := range r.active {
		if s != nil {
			out = append(out, s.Symbol)
		}
	}
	return out
}

func (r *Room) ActiveCount() int { return countSlots(r.active) }
func (r *Room) LobbyCount() int { return countSlots(r.lobby) }
func (r *Room) Full() bool { return freeSlot(r.active) < 0 }

func (r *Room) issueToken() int32 {
	t := r.nextToken
	r.nextToken++
	return t
}

func (r *Room) clearLobby(s *Session) {
	for i, ls := range r.lobby {
		if ls == s {
			r.lobby[i] = nil
			return
		}
	}
}

func (r *Room) clearActive(s *Session) {
	for i, as := range r.active {
		if as == s {
			r.active[i] = nil
			return
		}
	}
}

func freeSlot(slots []*Session) int {
	for i, s := range slots {
		if s == nil {
			return i
		}
	}
	return -1
}

func countSlots(slots []*Session) int {
	n := 0
	for _, s := range slots {
		if s != nil {
			n++
		}
	}
	return n
}
