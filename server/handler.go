package server

import (
	"net"

	"spellarena/game"
	"spellarena/protocol"
)

// drainInputs 处理本 Tick 之前到达的全部网络事件（非阻塞）
func (s *Server) drainInputs() {
	for n := len(s.inputs); n > 0; n-- {
		in := <-s.inputs
		switch in.Kind {
		case InputAccepted:
			s.onAccept(in.Conn, in.Peer)
		case InputData:
			s.onData(in.Conn, in.Data)
		case InputClosed:
			s.dropSession(in.Conn, in.Err)
		case InputDatagram:
			s.onDatagram(in.Addr, in.Data)
		}
	}
}

func (s *Server) onAccept(id ConnID, peer Conn) {
	if _, err := s.room.Attach(id, peer); err != nil {
		s.log.Warnw("reject connection", "conn", id, "remote", peer.RemoteAddr(), "err", err)
		_ = peer.Close()
		return
	}
	s.log.Infow("connection accepted", "conn", id, "remote", peer.RemoteAddr())
}

// onData 追加到该连接的接收缓冲并逐帧处理
// 每帧之后按句柄重新查找会话：登录会把缓冲转移到新的会话对象
func (s *Server) onData(id ConnID, data []byte) {
	sess, ok := s.room.Session(id)
	if !ok {
		return
	}
	if _, err := sess.Framer().Write(data); err != nil {
		s.log.Warnw("receive buffer overflow", "conn", id, "err", err)
		s.dropSession(id, err)
		return
	}
	for {
		sess, ok = s.room.Session(id)
		if !ok {
			return
		}
		frame, ok := sess.Framer().Next()
		if !ok {
			return
		}
		s.dispatch(sess, frame)
	}
}

func (s *Server) dispatch(sess *Session, frame []byte) {
	msg, err := protocol.DecodeClientMessage(frame)
	if err != nil {
		s.metrics.IncRejectedFrames()
		s.log.Debugw("bad frame", "conn", sess.ID, "err", err)
		return
	}
	s.metrics.IncFrames()

	switch m := msg.(type) {
	case protocol.VersionMsg:
		s.send(sess, protocol.VersionResponseMsg{Version: protocol.Version, Compatible: protocol.Compatible(m.Version)})
	case protocol.SubscribeInfoMsg:
		sess.Subscribed = true
		s.send(sess, s.staticInfo())
		s.send(sess, protocol.DynamicInfoMsg{Symbols: s.room.Symbols()})
	case protocol.LoginMsg:
		s.handleLogin(sess, m.Symbol)
	case protocol.LogoutMsg:
		s.handleLogout(sess)
	case protocol.TrustUDPMsg:
		if sess.Active() && sess.UDPAddr != nil {
			sess.TrustUDP = true
			s.log.Debugw("udp trusted", "symbol", string(sess.Symbol))
		}
	case protocol.MovePlayerMsg:
		if sess.Active() {
			s.game.MovePlayer(sess.Symbol, game.Direction(m.Dir))
		}
	case protocol.CastSkillMsg:
		if !sess.Active() {
			return
		}
		if _, err := s.game.CastSkill(sess.Symbol, game.Direction(m.Dir), game.ParseAttackKind(m.Attack)); err != nil {
			s.log.Debugw("cast rejected", "symbol", string(sess.Symbol), "err", err)
		}
	default:
		s.log.Debugw("unexpected message over tcp", "conn", sess.ID, "type", msg.Type())
	}
}

func (s *Server) handleLogin(sess *Session, symbol byte) {
	code, target := s.room.Login(sess.ID, symbol)
	if code == protocol.LoginOK {
		if _, err := s.game.AddPlayer(symbol); err != nil {
			// 名单与房间不一致，撤销晋升
			s.log.Errorw("game rejected player", "symbol", string(symbol), "err", err)
			target, _ = s.room.Logout(sess.ID)
			code = protocol.LoginRoomFull
		}
	}
	if target == nil {
		return
	}

	var token int32
	if code == protocol.LoginOK {
		token = target.Token
		s.metrics.IncLoginAccepted()
		s.log.Infow("login accepted", "conn", target.ID, "symbol", string(symbol))
	} else {
		s.metrics.IncLoginRejected()
		s.log.Infow("login rejected", "conn", target.ID, "symbol", string(symbol), "status", code.String())
	}
	s.send(target, protocol.LoginStatusMsg{Symbol: symbol, Status: code, Token: token})
	if code != protocol.LoginOK {
		return
	}

	// 比赛进行中加入：先补发当前比赛与竞技场，下一局开始参战
	if s.game.State() == game.StatePlaying {
		s.send(target, protocol.StartGameMsg{WinnerPoints: uint16(s.game.WinnerPoints())})
		if m, ok := s.startArenaMsg(); ok {
			s.send(target, m)
		}
	}
	s.rosterChanged()
}

func (s *Server) handleLogout(sess *Session) {
	if !sess.Active() {
		return
	}
	symbol := sess.Symbol
	demoted, err := s.room.Logout(sess.ID)
	_ = s.game.RemovePlayer(symbol)
	s.log.Infow("logout", "conn", sess.ID, "symbol", string(symbol))
	if err != nil {
		s.log.Warnw("no lobby slot after logout, closing", "conn", sess.ID, "err", err)
		_ = demoted.Conn.Close()
	}
	s.rosterChanged()
}

// dropSession 传输失败即视为断开：移除会话与玩家，广播剩余名单
func (s *Server) dropSession(id ConnID, cause error) {
	sess, ok := s.room.Remove(id)
	if !ok {
		return
	}
	_ = sess.Conn.Close()
	s.metrics.IncDisconnects()
	if !sess.Active() {
		s.log.Infow("connection closed", "conn", id, "err", cause)
		return
	}
	_ = s.game.RemovePlayer(sess.Symbol)
	s.log.Infow("player disconnected", "conn", id, "symbol", string(sess.Symbol), "err", cause)
	s.rosterChanged()
}

// rosterChanged 名单变化：广播 DynamicInfo；进行中人数不足两人则判为弃赛
func (s *Server) rosterChanged() {
	info := protocol.DynamicInfoMsg{Symbols: s.room.Symbols()}
	for _, sess := range s.room.All() {
		if sess.Subscribed {
			s.send(sess, info)
		}
	}
	if s.game.State() == game.StatePlaying && s.game.PlayerCount() < 2 {
		s.game.Reset()
		s.log.Infow("game aborted, not enough players", "players", s.game.PlayerCount())
	}
}

func (s *Server) onDatagram(addr *net.UDPAddr, data []byte) {
	msg, err := protocol.DecodeClientMessage(data)
	if err != nil {
		s.metrics.IncRejectedFrames()
		s.log.Debugw("bad datagram", "from", addr, "err", err)
		return
	}
	m, ok := msg.(protocol.ConnectUDPMsg)
	if !ok {
		s.log.Debugw("unexpected message over udp", "from", addr, "type", msg.Type())
		return
	}
	sess, ok := s.room.BindUDP(m.Token, addr)
	if !ok {
		s.log.Debugw("udp bind with unknown token", "from", addr)
		return
	}
	s.metrics.IncUDPBinds()
	s.log.Infow("udp bound", "symbol", string(sess.Symbol), "addr", addr)
	s.send(sess, protocol.UDPConnectedMsg{})
}

func (s *Server) staticInfo() protocol.StaticInfoMsg {
	return protocol.StaticInfoMsg{
		UDPPort:      uint16(s.udpPort),
		MapSize:      uint16(s.game.MapSize()),
		WinnerPoints: uint16(s.game.WinnerPoints()),
		MaxPlayers:   uint16(s.game.MaxPlayers()),
	}
}

// send 编码并入队；失败则关闭连接，由读协程随后上报断开
func (s *Server) send(sess *Session, m protocol.Message) {
	b, err := protocol.Encode(m)
	if err != nil {
		s.log.Errorw("encode failed", "type", m.Type(), "err", err)
		return
	}
	s.sendRaw(sess, b)
}

func (s *Server) sendRaw(sess *Session, b []byte) {
	if err := sess.Conn.Send(b); err != nil {
		s.metrics.IncSendFailures()
		s.log.Warnw("send failed, closing", "conn", sess.ID, "err", err)
		_ = sess.Conn.Close()
	}
}
