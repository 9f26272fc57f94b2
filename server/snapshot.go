package server

import (
	"time"

	"spellarena/game"
)

// Snapshot Tick 线程发布的只读视图，供管理接口与观战推送并发读取
type Snapshot struct {
	Server       string           `json:"server"`
	Tick         int64            `json:"tick"`
	State        string           `json:"state"`
	Round        int              `json:"round"`
	MapSize      int              `json:"mapSize"`
	WinnerPoints int              `json:"winnerPoints"`
	StartDelayMs int64            `json:"startDelayMs"`
	Countdown    int              `json:"countdown,omitempty"`
	Lobby        int              `json:"lobby"`
	Players      []PlayerView     `json:"players"`
	Entities     []EntityView     `json:"entities,omitempty"`
	Projectiles  []ProjectileView `json:"projectiles,omitempty"`
	At           time.Time        `json:"at"`
}

type PlayerView struct {
	Symbol  string `json:"symbol"`
	Points  int    `json:"points"`
	InArena bool   `json:"inArena"`
	UDP     bool   `json:"udp"`
}

type EntityView struct {
	ID     int32  `json:"id"`
	Symbol string `json:"symbol"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Health int    `json:"health"`
	Energy int    `json:"energy"`
	Facing string `json:"facing"`
	Alive  bool   `json:"alive"`
}

type ProjectileView struct {
	ID   int32  `json:"id"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Dir  string `json:"dir"`
	Kind uint8  `json:"kind"`
}

func (s *Server) publishSnapshot() {
	snap := &Snapshot{
		Server:       s.id,
		Tick:         s.tickSeq,
		State:        s.game.State().String(),
		Round:        s.game.Round(),
		MapSize:      s.game.MapSize(),
		WinnerPoints: s.game.WinnerPoints(),
		StartDelayMs: s.startDelay.Milliseconds(),
		Lobby:        s.room.LobbyCount(),
		At:           time.Now(),
	}
	if s.counting {
		snap.Countdown = s.announced
	}
	for _, p := range s.game.Players() {
		view := PlayerView{Symbol: string(p.Symbol), Points: p.Points, InArena: p.InArena()}
		if sess := s.room.BySymbol(p.Symbol); sess != nil {
			view.UDP = sess.TrustUDP
		}
		snap.Players = append(snap.Players, view)
	}
	if arena, ok := s.game.Arena(); ok {
		for _, e := range arena.Entities() {
			snap.Entities = append(snap.Entities, EntityView{
				ID: e.ID, Symbol: string(e.Symbol), X: e.Pos.X, Y: e.Pos.Y,
				Health: e.Health, Energy: e.Energy, Facing: e.Facing.String(), Alive: e.Alive,
			})
		}
		for _, p := range arena.Projectiles() {
			snap.Projectiles = append(snap.Projectiles, ProjectileView{
				ID: p.ID, X: p.Pos.X, Y: p.Pos.Y, Dir: p.Dir.String(), Kind: uint8(p.Kind),
			})
		}
	}
	s.snapshot.Store(snap)
}

// adminRequest 在 Tick 线程中执行的管理操作
type adminRequest struct {
	fn   func()
	done chan struct{}
}

func (s *Server) drainAdmin() {
	for n := len(s.admin); n > 0; n-- {
		req := <-s.admin
		req.fn()
		close(req.done)
	}
}

// exec 提交到 Tick 线程并等待执行完成
func (s *Server) exec(done <-chan struct{}, fn func()) bool {
	req := adminRequest{fn: fn, done: make(chan struct{})}
	select {
	case s.admin <- req:
	case <-done:
		return false
	}
	select {
	case <-req.done:
		return true
	case <-done:
		return false
	}
}

// applyConfig 热更新：只在没有比赛进行时生效
func (s *Server) applyConfig(winnerPoints *int, startDelay *time.Duration) error {
	if s.game.State() == game.StatePlaying {
		return errGameRunning
	}
	if winnerPoints != nil && !s.game.SetWinnerPoints(*winnerPoints) {
		return errBadWinnerPoints
	}
	if startDelay != nil {
		if *startDelay < 0 {
			return errBadStartDelay
		}
		s.startDelay = *startDelay
	}
	s.log.Infow("config updated", "winner", s.game.WinnerPoints(), "startDelay", s.startDelay)
	return nil
}

func (s *Server) resetGame() {
	s.game.Reset()
	s.counting = false
	s.log.Infow("game reset by admin")
}
