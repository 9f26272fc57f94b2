package game

import (
	"errors"
	"math/rand"
	"time"
)

// State 比赛状态机：Waiting → Playing → Finished →（重置）Waiting
type State uint8

const (
	StateWaiting State = iota
	StatePlaying
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StatePlaying:
		return "playing"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

const spawnAttempts = 100

var (
	ErrGameFull    = errors.New("game roster is full")
	ErrSymbolTaken = errors.New("symbol already taken")
	ErrNotReady    = errors.New("game is not ready to start")
	ErrNotPlaying  = errors.New("game is not in progress")
	ErrNoPlayer    = errors.New("no such player")
)

// Config 比赛参数
type Config struct {
	MapSize      int
	WinnerPoints int
	MaxPlayers   int
	// Rand 出生点随机源；为空时按当前时间播种
	Rand *rand.Rand
}

// Award 一次加分
type Award struct {
	Symbol byte
	Points int
}

// StepResult 一个 Tick 后需要对外广播的结果
type StepResult struct {
	Deaths   int
	Awards   []Award
	NewRound bool
	Finished bool
}

// Game 整场比赛：玩家名单 + 当前竞技场 + 轮次/积分
// 不变量：仅 Playing 时存在竞技场
type Game struct {
	mapSize      int
	winnerPoints int
	maxPlayers   int

	round       int
	state       State
	players     []Player
	arena       *Arena
	roundPlayer int
	winner      byte

	rng *rand.Rand
}

func New(cfg Config) *Game {
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	maxPlayers := cfg.MaxPlayers
	if maxPlayers <= 0 || maxPlayers > MaxPlayers {
		maxPlayers = MaxPlayers
	}
	return &Game{
		mapSize:      cfg.MapSize,
		winnerPoints: cfg.WinnerPoints,
		maxPlayers:   maxPlayers,
		state:        StateWaiting,
		players:      make([]Player, 0, maxPlayers),
		rng:          rng,
	}
}

func (g *Game) State() State { return g.state }
func (g *Game) Round() int { return g.round }
func (g *Game) MapSize() int { return g.mapSize }
func (g *Game) WinnerPoints() int { return g.winnerPoints }
func (g *Game) MaxPlayers() int { return g.maxPlayers }
func (g *Game) PlayerCount() int { return len(g.players) }
func (g *Game) Players() []Player { return g.players }
func (g *Game) Arena() (*Arena, bool) { return g.arena, g.arena != nil }

// SetWinnerPoints 只在未开赛时生效
func (g *Game) SetWinnerPoints(n int) bool {
	if g.state == StatePlaying || n < 1 {
		return false
	}
	g.winnerPoints = n
	return true
}

func (g *Game) AddPlayer(symbol byte) (int, error) {
	if len(g.players) >= g.maxPlayers {
		return -1, ErrGameFull
	}
	if _, ok := g.PlayerBySymbol(symbol); ok {
		return -1, ErrSymbolTaken
	}
	p := NewPlayer(symbol)
	p.Connected = true
	g.players = append(g.players, p)
	return len(g.players) - 1, nil
}

// RemovePlayer 删除玩家，后续玩家依次前移；若其实体仍在场则退场
func (g *Game) RemovePlayer(symbol byte) error {
	idx := g.PlayerIndex(symbol)
	if idx < 0 {
		return ErrNoPlayer
	}
	if p := g.players[idx]; p.InArena() && g.arena != nil {
		g.arena.Retire(p.EntityID)
	}
	g.players = append(g.players[:idx], g.players[idx+1:]...)
	return nil
}

func (g *Game) PlayerIndex(symbol byte) int {
	for i := range g.players {
		if g.players[i].Symbol == symbol {
			return i
		}
	}
	return -1
}

func (g *Game) PlayerBySymbol(symbol byte) (*Player, bool) {
	idx := g.PlayerIndex(symbol)
	if idx < 0 {
		return nil, false
	}
	return &g.players[idx], true
}

// Ready 人数在 [2, maxPlayers] 之间
func (g *Game) Ready() bool {
	return len(g.players) >= 2 && len(g.players) <= g.maxPlayers
}

// Start Waiting → Playing，并创建第一局竞技场
func (g *Game) Start() error {
	if g.state != StateWaiting || !g.Ready() {
		return ErrNotReady
	}
	g.state = StatePlaying
	g.winner = 0
	g.newArena()
	return nil
}

// Abort 人数不足时回到 Waiting，不产生胜者
func (g *Game) Abort() {
	g.arena = nil
	g.state = StateWaiting
	for i := range g.players {
		g.players[i].resetForArena()
	}
}

// Reset 比赛结束后的外部重置：清空积分与轮次
func (g *Game) Reset() {
	g.Abort()
	g.round = 0
	g.winner = 0
	for i := range g.players {
		g.players[i].Points = 0
	}
}

// Winner 仅 Finished 时有效
func (g *Game) Winner() (byte, bool) {
	return g.winner, g.state == StateFinished && g.winner != 0
}

func (g *Game) newArena() {
	g.arena = NewArena(g.mapSize)
	g.round++
	g.roundPlayer = 0

	occupied := make([]Vec2, 0, len(g.players))
	for i := range g.players {
		p := &g.players[i]
		p.resetForArena()
		if !p.Connected {
			continue
		}
		spawn := g.randomFloor(occupied)
		id, err := g.arena.AddEntity(p.Symbol, spawn, DefaultMaxHealth, DefaultMaxEnergy)
		if err != nil {
			continue
		}
		occupied = append(occupied, spawn)
		p.EntityID = id
		g.roundPlayer++
	}
}

// randomFloor 拒绝采样找空地面格，尝试次数用尽则回退到地图中心
func (g *Game) randomFloor(occupied []Vec2) Vec2 {
	m := g.arena.Map()
	if m.Size() > 2 {
		for attempt := 0; attempt < spawnAttempts; attempt++ {
			p := Vec2{X: 1 + g.rng.Intn(m.Size()-2), Y: 1 + g.rng.Intn(m.Size()-2)}
			if m.Terrain(p) != TerrainFloor || containsVec(occupied, p) {
				continue
			}
			return p
		}
	}
	return m.Center()
}

func containsVec(vs []Vec2, p Vec2) bool {
	for _, v := range vs {
		if v == p {
			return true
		}
	}
	return false
}

// MovePlayer 客户端移动请求，Tick 之间立即生效
func (g *Game) MovePlayer(symbol byte, dir Direction) bool {
	if g.state != StatePlaying || g.arena == nil {
		return false
	}
	p, ok := g.PlayerBySymbol(symbol)
	if !ok || !p.InArena() {
		return false
	}
	return g.arena.MoveEntity(p.EntityID, dir)
}

// CastSkill 记录所选攻击类型后施法
func (g *Game) CastSkill(symbol byte, dir Direction, kind AttackKind) (int32, error) {
	if g.state != StatePlaying || g.arena == nil {
		return -1, ErrNotPlaying
	}
	p, ok := g.PlayerBySymbol(symbol)
	if !ok {
		return -1, ErrNoPlayer
	}
	if !p.InArena() {
		return -1, ErrNotAlive
	}
	if e, ok := g.arena.Entity(p.EntityID); ok {
		e.Attack = kind
	}
	return g.arena.CastSkill(p.EntityID, dir, kind)
}

// Step 推进一个 Tick 并结算积分：
// 本 Tick 每死亡一个实体，所有存活玩家各得 1 分（即存活者加 deaths 分）
func (g *Game) Step(dt time.Duration) StepResult {
	var res StepResult
	if g.state != StatePlaying || g.arena == nil {
		return res
	}
	g.arena.Update(dt)

	for i := range g.players {
		p := &g.players[i]
		if !p.InArena() {
			continue
		}
		if e, ok := g.arena.Entity(p.EntityID); !ok || !e.Alive {
			p.EntityID = NoEntity
			res.Deaths++
		}
	}

	living := 0
	for i := range g.players {
		if g.players[i].InArena() {
			living++
		}
	}
	if res.Deaths > 0 {
		for i := range g.players {
			p := &g.players[i]
			if p.InArena() {
				p.AddPoints(res.Deaths)
				res.Awards = append(res.Awards, Award{Symbol: p.Symbol, Points: p.Points})
			}
		}
	}

	if living <= 1 && g.roundPlayer > 1 {
		if w, ok := g.leader(); ok {
			g.winner = w
			g.state = StateFinished
			g.arena = nil
			res.Finished = true
		} else {
			g.newArena()
			res.NewRound = true
		}
	}
	return res
}

// leader 第一个达到胜利分数的玩家
func (g *Game) leader() (byte, bool) {
	for i := range g.players {
		if g.players[i].Points >= g.winnerPoints {
			return g.players[i].Symbol, true
		}
	}
	return 0, false
}
