package server

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"spellarena/config"
	"spellarena/game"
)

const (
	inputQueueSize = 1024
	adminQueueSize = 16
)

// Server 竞技场服务：网络协程只投递事件，房间与比赛状态只在 Tick 线程中修改
type Server struct {
	cfg     config.Config
	log     *zap.SugaredLogger
	id      string
	metrics *ServerMetrics

	tcp  net.Listener
	udp  *net.UDPConn
	http *http.Server

	inputs   chan Input
	admin    chan adminRequest
	nextConn atomic.Uint64
	snapshot atomic.Pointer[Snapshot]

	// 以下字段只由 Tick 线程访问
	room      *Room
	game      *game.Game
	tickSeq   int64
	udpPort   int
	startIn   time.Duration
	counting  bool
	announced int

	// startDelay 可由管理接口热更新
	startDelay time.Duration
}

// New 绑定 TCP/UDP 端口（失败时依次尝试后续端口）并构造服务
func New(cfg config.Config, log *zap.SugaredLogger) (*Server, error) {
	s := newServer(cfg, log)

	tcp, port, err := listenTCP(cfg.TCPPort, cfg.PortAttempts)
	if err != nil {
		return nil, err
	}
	if port != cfg.TCPPort && cfg.TCPPort != 0 {
		log.Warnw("tcp port busy, using fallback", "requested", cfg.TCPPort, "port", port)
	}
	udp, uport, err := listenUDP(cfg.UDPPort, cfg.PortAttempts)
	if err != nil {
		_ = tcp.Close()
		return nil, err
	}
	if uport != cfg.UDPPort && cfg.UDPPort != 0 {
		log.Warnw("udp port busy, using fallback", "requested", cfg.UDPPort, "port", uport)
	}
	s.tcp, s.udp, s.udpPort = tcp, udp, uport

	if cfg.AdminAddr != "" {
		s.http = &http.Server{Addr: cfg.AdminAddr, Handler: s.AdminHandler()}
	}
	log.Infow("server bound", "id", s.id, "tcp", port, "udp", uport, "admin", cfg.AdminAddr,
		"players", cfg.MaxPlayers, "map", cfg.MapSize, "winner", cfg.WinnerPoints)
	return s, nil
}

// newServer 不绑定任何端口，供 New 与测试使用
func newServer(cfg config.Config, log *zap.SugaredLogger) *Server {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	s := &Server{
		cfg:     cfg,
		log:     log,
		id:      uuid.NewString(),
		metrics: &ServerMetrics{},
		inputs:  make(chan Input, inputQueueSize),
		admin:   make(chan adminRequest, adminQueueSize),
		room:    NewRoom(cfg.MaxPlayers, DefaultLobbySize),
		game: game.New(game.Config{
			MapSize:      cfg.MapSize,
			WinnerPoints: cfg.WinnerPoints,
			MaxPlayers:   cfg.MaxPlayers,
			Rand:         rng,
		}),
		udpPort:    cfg.UDPPort,
		startDelay: cfg.StartDelay,
	}
	s.publishSnapshot()
	return s
}

func (s *Server) ID() string { return s.id }
func (s *Server) Metrics() *ServerMetrics { return s.metrics }
func (s *Server) Snapshot() *Snapshot { return s.snapshot.Load() }
func (s *Server) TCPAddr() net.Addr { return s.tcp.Addr() }
func (s *Server) UDPAddr() net.Addr { return s.udp.LocalAddr() }

// Run 启动接入、UDP 接收、Tick 循环与管理接口，直到 ctx 取消或任一协程出错
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.acceptLoop(ctx) })
	g.Go(func() error { return s.udpLoop(ctx) })
	g.Go(func() error { return s.loop(ctx) })
	if s.http != nil {
		g.Go(func() error {
			s.log.Infow("admin listening", "addr", s.http.Addr)
			if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("admin http: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		_ = s.tcp.Close()
		_ = s.udp.Close()
		if s.http != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = s.http.Shutdown(shutdownCtx)
		}
		return nil
	})

	err := g.Wait()
	s.log.Infow("server stopped", "id", s.id)
	return err
}

func (s *Server) acceptLoop(ctx context.Context) error {
	for {
		c, err := s.tcp.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		id := ConnID(s.nextConn.Add(1))
		cc := NewClientConn(id, c)
		if !deliver(ctx, s.inputs, Input{Kind: InputAccepted, Conn: id, Peer: cc}) {
			_ = cc.Close()
			return nil
		}
		go cc.writePump()
		go cc.readPump(ctx, s.inputs)
	}
}

// udpLoop 每个数据报都是一条完整消息，通道满时直接丢弃
func (s *Server) udpLoop(ctx context.Context) error {
	buf := make([]byte, 4096)
	for {
		n, addr, err := s.udp.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("udp read: %w", err)
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		select {
		case s.inputs <- Input{Kind: InputDatagram, Addr: addr, Data: data}:
		default:
			s.metrics.IncDatagramsDropped()
		}
	}
}

func listenTCP(port, attempts int) (net.Listener, int, error) {
	var lastErr error
	for i := 0; i < max(attempts, 1); i++ {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port+i))
		if err == nil {
			return ln, ln.Addr().(*net.TCPAddr).Port, nil
		}
		lastErr = err
		if port == 0 {
			break
		}
	}
	return nil, 0, fmt.Errorf("listen tcp from port %d: %w", port, lastErr)
}

func listenUDP(port, attempts int) (*net.UDPConn, int, error) {
	var lastErr error
	for i := 0; i < max(attempts, 1); i++ {
		c, err := net.ListenUDP("udp", &net.UDPAddr{Port: port + i})
		if err == nil {
			return c, c.LocalAddr().(*net.UDPAddr).Port, nil
		}
		lastErr = err
		if port == 0 {
			break
		}
	}
	return nil, 0, fmt.Errorf("listen udp from port %d: %w", port, lastErr)
}
