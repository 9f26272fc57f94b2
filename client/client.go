package client

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"spellarena/protocol"
)

const (
	ConnectTimeout = 5 * time.Second
	// udpHelloInterval UDP 握手未确认时的重发间隔
	udpHelloInterval = 500 * time.Millisecond
)

var ErrClosed = errors.New("client closed")

// State 客户端对服务端状态的本地镜像，只由 Poll 更新
type State struct {
	ServerVersion string
	Compatible    bool
	Static        protocol.StaticInfoMsg
	HasStatic     bool
	Symbols       []byte

	Symbol       byte
	Token        int32
	LoginStatus  protocol.LoginCode
	LoggedIn     bool
	UDPConfirmed bool

	Countdown    int
	Playing      bool
	WinnerPoints int
	Arena        *protocol.StartArenaMsg
	Step         *protocol.GameStepMsg
	Points       map[byte]int
	Winner       byte
}

// Client 无界面协议客户端：单协程使用，Poll 驱动收包与自动握手
type Client struct {
	log    *zap.SugaredLogger
	tcp    net.Conn
	udp    *net.UDPConn
	framer *protocol.Framer
	buf    []byte

	lastHello time.Time
	closed    bool

	State State
}

// Dial 在 ConnectTimeout 内建立 TCP 连接并发送版本号
func Dial(addr string, log *zap.SugaredLogger) (*Client, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	conn, err := net.DialTimeout("tcp", addr, ConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}
	c := &Client{
		log:    log,
		tcp:    conn,
		framer: protocol.NewFramer(),
		buf:    make([]byte, protocol.MaxPacketSize),
		State:  State{Points: make(map[byte]int)},
	}
	if err := c.send(protocol.VersionMsg{Version: protocol.Version}); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) Login(symbol byte) error {
	c.State.Symbol = symbol
	return c.send(protocol.LoginMsg{Symbol: symbol})
}

// Logout 会话退回未登录状态，UDP 绑定随之失效，下次登录需重新握手
func (c *Client) Logout() error {
	if err := c.send(protocol.LogoutMsg{}); err != nil {
		return err
	}
	c.State.LoggedIn, c.State.Token, c.State.UDPConfirmed = false, 0, false
	return nil
}

func (c *Client) Move(dir uint8) error {
	return c.send(protocol.MovePlayerMsg{Dir: dir})
}

func (c *Client) Cast(dir, attack uint8) error {
	return c.send(protocol.CastSkillMsg{Dir: dir, Attack: attack})
}

func (c *Client) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.udp != nil {
		_ = c.udp.Close()
	}
	return c.tcp.Close()
}

// Poll 最多等待 timeout 读取 TCP，再收取已到达的 UDP 数据报；
// 返回本次处理的全部消息。超时不是错误
func (c *Client) Poll(timeout time.Duration) ([]protocol.Message, error) {
	if c.closed {
		return nil, ErrClosed
	}
	var out []protocol.Message

	_ = c.tcp.SetReadDeadline(time.Now().Add(timeout))
	n, err := c.tcp.Read(c.buf)
	if n > 0 {
		if _, werr := c.framer.Write(c.buf[:n]); werr != nil {
			return nil, werr
		}
	}
	if err != nil && !isTimeout(err) {
		return nil, fmt.Errorf("tcp read: %w", err)
	}
	for {
		frame, ok := c.framer.Next()
		if !ok {
			break
		}
		m, err := protocol.DecodeServerMessage(frame)
		if err != nil {
			c.log.Debugw("bad frame", "err", err)
			continue
		}
		if err := c.handle(m); err != nil {
			return out, err
		}
		out = append(out, m)
	}

	if c.udp != nil {
		for {
			_ = c.udp.SetReadDeadline(time.Now().Add(time.Millisecond))
			n, err := c.udp.Read(c.buf)
			if err != nil {
				break
			}
			m, err := protocol.DecodeServerMessage(c.buf[:n])
			if err != nil {
				c.log.Debugw("bad datagram", "err", err)
				continue
			}
			if err := c.handle(m); err != nil {
				return out, err
			}
			out = append(out, m)
		}
		if c.State.LoggedIn && !c.State.UDPConfirmed && time.Since(c.lastHello) > udpHelloInterval {
			if err := c.sayHello(); err != nil {
				return out, err
			}
		}
	}
	return out, nil
}

// Until 反复 Poll 直到 cond 成立或超时
func (c *Client) Until(timeout time.Duration, cond func(*State) bool) error {
	deadline := time.Now().Add(timeout)
	for !cond(&c.State) {
		if time.Now().After(deadline) {
			return fmt.Errorf("condition not met within %v", timeout)
		}
		if _, err := c.Poll(20 * time.Millisecond); err != nil {
			return err
		}
	}
	return nil
}

// handle 更新本地镜像，并自动完成订阅与 UDP 握手
func (c *Client) handle(m protocol.Message) error {
	st := &c.State
	switch m := m.(type) {
	case protocol.VersionResponseMsg:
		st.ServerVersion, st.Compatible = m.Version, m.Compatible
		if !m.Compatible {
			c.log.Warnw("incompatible server version", "server", m.Version, "client", protocol.Version)
		}
		return c.send(protocol.SubscribeInfoMsg{})
	case protocol.StaticInfoMsg:
		st.Static, st.HasStatic = m, true
		st.WinnerPoints = int(m.WinnerPoints)
		if st.LoggedIn {
			return c.openUDP()
		}
	case protocol.DynamicInfoMsg:
		st.Symbols = m.Symbols
	case protocol.LoginStatusMsg:
		st.LoginStatus = m.Status
		if m.Status != protocol.LoginOK {
			return nil
		}
		if m.Token != st.Token {
			st.UDPConfirmed = false
		}
		st.Symbol, st.Token, st.LoggedIn = m.Symbol, m.Token, true
		if c.udp != nil {
			return c.sayHello()
		}
		return c.openUDP()
	case protocol.UDPConnectedMsg:
		st.UDPConfirmed = true
		return c.send(protocol.TrustUDPMsg{})
	case protocol.WaitArenaMsg:
		st.Countdown = int(m.Seconds)
	case protocol.StartGameMsg:
		st.Playing, st.Countdown, st.Winner = true, 0, 0
		st.WinnerPoints = int(m.WinnerPoints)
		st.Points = make(map[byte]int)
	case protocol.StartArenaMsg:
		st.Arena = &m
		st.Step = nil
	case protocol.GameStepMsg:
		st.Step = &m
		for _, p := range m.Players {
			st.Points[p.Symbol] = int(p.Points)
		}
	case protocol.GameEventMsg:
		st.Points[m.Symbol] = int(m.Points)
	case protocol.FinishGameMsg:
		st.Playing, st.Winner = false, m.Winner
		st.Arena, st.Step = nil, nil
	}
	return nil
}

func (c *Client) openUDP() error {
	if c.udp != nil || !c.State.HasStatic {
		return nil
	}
	host, _, err := net.SplitHostPort(c.tcp.RemoteAddr().String())
	if err != nil {
		return err
	}
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(int(c.State.Static.UDPPort))))
	if err != nil {
		return err
	}
	udp, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return fmt.Errorf("open udp: %w", err)
	}
	c.udp = udp
	return c.sayHello()
}

func (c *Client) sayHello() error {
	c.lastHello = time.Now()
	b, err := protocol.Encode(protocol.ConnectUDPMsg{Token: c.State.Token})
	if err != nil {
		return err
	}
	if _, err := c.udp.Write(b); err != nil {
		c.log.Debugw("udp hello", "err", err)
	}
	return nil
}

func (c *Client) send(m protocol.Message) error {
	if c.closed {
		return ErrClosed
	}
	b, err := protocol.Encode(m)
	if err != nil {
		return err
	}
	_ = c.tcp.SetWriteDeadline(time.Now().Add(ConnectTimeout))
	if _, err := c.tcp.Write(b); err != nil {
		return fmt.Errorf("tcp write: %w", err)
	}
	return nil
}

func isTimeout(err error) bool {
	return errors.Is(err, os.ErrDeadlineExceeded)
}
