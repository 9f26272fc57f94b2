package server

import (
	"context"
	"time"

	"spellarena/game"
	"spellarena/protocol"
)

// loop Tick 循环（单线程推进世界）：处理输入 → 推进比赛 → 广播结果 → 倒计时/开赛 → 发布快照
func (s *Server) loop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return nil
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Server) tick() {
	start := time.Now()
	s.tickSeq++
	s.drainInputs()
	s.drainAdmin()
	s.stepGame(s.cfg.TickInterval)
	s.updateCountdown(s.cfg.TickInterval)
	s.publishSnapshot()
	s.metrics.AddTick(time.Since(start).Nanoseconds())
}

func (s *Server) stepGame(dt time.Duration) {
	if s.game.State() != game.StatePlaying {
		return
	}
	res := s.game.Step(dt)
	for _, a := range res.Awards {
		s.broadcast(protocol.GameEventMsg{Symbol: a.Symbol, Points: uint16(a.Points)})
	}
	if res.Finished {
		winner, _ := s.game.Winner()
		s.broadcast(protocol.FinishGameMsg{Winner: winner})
		s.log.Infow("game finished", "winner", string(winner), "rounds", s.game.Round())
		s.game.Reset()
		return
	}
	if res.NewRound {
		s.log.Infow("round started", "round", s.game.Round())
		if m, ok := s.startArenaMsg(); ok {
			s.broadcast(m)
		}
	}
	s.broadcastStep()
}

// updateCountdown 名单就绪后每秒广播一次 WaitArena，倒计时结束开赛；期间不再就绪则取消
func (s *Server) updateCountdown(dt time.Duration) {
	if s.game.State() != game.StateWaiting || !s.game.Ready() {
		if s.counting {
			s.counting = false
			s.log.Infow("countdown cancelled", "players", s.game.PlayerCount())
		}
		return
	}
	if !s.counting {
		s.counting = true
		s.startIn = s.startDelay
		s.announced = -1
	} else {
		s.startIn -= dt
	}
	if s.startIn <= 0 {
		s.counting = false
		s.startGame()
		return
	}
	secs := int((s.startIn + time.Second - 1) / time.Second)
	if secs != s.announced {
		s.announced = secs
		s.broadcast(protocol.WaitArenaMsg{Seconds: uint16(secs)})
	}
}

func (s *Server) startGame() {
	if err := s.game.Start(); err != nil {
		s.log.Warnw("start game", "err", err)
		return
	}
	s.log.Infow("game started", "players", string(s.room.Symbols()), "winner", s.game.WinnerPoints())
	s.broadcast(protocol.StartGameMsg{WinnerPoints: uint16(s.game.WinnerPoints())})
	if m, ok := s.startArenaMsg(); ok {
		s.broadcast(m)
	}
}

func (s *Server) startArenaMsg() (protocol.StartArenaMsg, bool) {
	arena, ok := s.game.Arena()
	if !ok {
		return protocol.StartArenaMsg{}, false
	}
	players := s.game.Players()
	ids := make([]int32, len(players))
	for i, p := range players {
		ids[i] = p.EntityID
	}
	ground := arena.Map().Ground()
	terrain := make([]byte, len(ground))
	for i, t := range ground {
		terrain[i] = byte(t)
	}
	return protocol.StartArenaMsg{
		Round:     uint16(s.game.Round()),
		MapSize:   uint16(arena.Map().Size()),
		EntityIDs: ids,
		Terrain:   terrain,
	}, true
}

func (s *Server) gameStepMsg() (protocol.GameStepMsg, bool) {
	arena, ok := s.game.Arena()
	if !ok {
		return protocol.GameStepMsg{}, false
	}
	var m protocol.GameStepMsg
	for _, e := range arena.Entities() {
		var flags uint8
		if e.Alive {
			flags |= protocol.EntityFlagAlive
		}
		if e.DamageFlash > 0 {
			flags |= protocol.EntityFlagDamaged
		}
		m.Entities = append(m.Entities, protocol.EntityRecord{
			ID:     e.ID,
			Symbol: e.Symbol,
			X:      int16(e.Pos.X),
			Y:      int16(e.Pos.Y),
			Health: uint8(e.Health),
			Energy: uint8(e.Energy),
			Facing: uint8(e.Facing),
			Flags:  flags,
		})
	}
	for _, p := range arena.Projectiles() {
		m.Projectiles = append(m.Projectiles, protocol.ProjectileRecord{
			ID:   p.ID,
			X:    int16(p.Pos.X),
			Y:    int16(p.Pos.Y),
			Dir:  uint8(p.Dir),
			Kind: uint8(p.Kind),
		})
	}
	for _, p := range s.game.Players() {
		m.Players = append(m.Players, protocol.PlayerRecord{Symbol: p.Symbol, Points: uint16(p.Points)})
	}
	return m, true
}

// broadcastStep 已确认 UDP 的会话走 UDP，其余回退到 TCP
func (s *Server) broadcastStep() {
	m, ok := s.gameStepMsg()
	if !ok {
		return
	}
	b, err := protocol.Encode(m)
	if err != nil {
		s.log.Errorw("encode game step", "err", err)
		return
	}
	for _, sess := range s.room.Active() {
		if sess.TrustUDP && sess.UDPAddr != nil && s.udp != nil {
			if _, err := s.udp.WriteToUDP(b, sess.UDPAddr); err == nil {
				s.metrics.IncStepUDP()
				continue
			}
			s.metrics.IncSendFailures()
		}
		s.metrics.IncStepTCP()
		s.sendRaw(sess, b)
	}
}

// broadcast 发给所有已登录会话（TCP）
func (s *Server) broadcast(m protocol.Message) {
	b, err := protocol.Encode(m)
	if err != nil {
		s.log.Errorw("encode failed", "type", m.Type(), "err", err)
		return
	}
	for _, sess := range s.room.Active() {
		s.sendRaw(sess, b)
	}
}

func (s *Server) closeAll() {
	for _, sess := range s.room.All() {
		_ = sess.Conn.Close()
	}
}
