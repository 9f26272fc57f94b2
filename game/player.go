package game

// NoEntity 玩家当前不在竞技场中存活
const NoEntity int32 = -1

// MaxPlayers 同时在线玩家上限
const MaxPlayers = 8

// Player 玩家：跨越整场比赛存在，积分在各局之间保留
type Player struct {
	Symbol    byte
	Points    int
	EntityID  int32
	Connected bool
}

func NewPlayer(symbol byte) Player {
	return Player{Symbol: symbol, EntityID: NoEntity}
}

func (p *Player) AddPoints(n int) { p.Points += n }

// InArena 是否绑定了本局的实体
func (p *Player) InArena() bool { return p.EntityID >= 0 }

func (p *Player) resetForArena() { p.EntityID = NoEntity }
