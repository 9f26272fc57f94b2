package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"spellarena/protocol"
)

const (
	sendQueueSize = 256
	writeTimeout  = 5 * time.Second
)

var ErrSendQueueFull = errors.New("send queue full")

// Conn 房间对一条客户端连接的全部依赖
type Conn interface {
	Send(b []byte) error
	Close() error
	RemoteAddr() string
}

// ClientConn 一条 TCP 客户端连接：读协程投递原始字节，写协程从发送队列写出
type ClientConn struct {
	id   ConnID
	conn net.Conn
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

func NewClientConn(id ConnID, conn net.Conn) *ClientConn {
	return &ClientConn{
		id:   id,
		conn: conn,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}
}

func (c *ClientConn) RemoteAddr() string { return c.conn.RemoteAddr().String() }

// Send 非阻塞入队，队列满时返回 ErrSendQueueFull，由调用方决定是否断开
func (c *ClientConn) Send(b []byte) error {
	select {
	case <-c.done:
		return net.ErrClosed
	default:
	}
	select {
	case c.send <- b:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close 可重复调用；发送队列中未写出的数据被丢弃
func (c *ClientConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

// writePump 独立协程，负责从 send 队列写出到 TCP
func (c *ClientConn) writePump() {
	for {
		select {
		case <-c.done:
			return
		case b := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if _, err := c.conn.Write(b); err != nil {
				_ = c.Close()
				return
			}
		}
	}
}

// readPump 读取原始字节并原样投递，分帧由 Tick 线程按会话完成
// 退出时投递 InputClosed，通知房间在 Tick 线程中移除该连接
func (c *ClientConn) readPump(ctx context.Context, inputs chan<- Input) {
	buf := make([]byte, protocol.MaxPacketSize)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			if !deliver(ctx, inputs, Input{Kind: InputData, Conn: c.id, Data: data}) {
				return
			}
		}
		if err != nil {
			deliver(ctx, inputs, Input{Kind: InputClosed, Conn: c.id, Err: err})
			return
		}
	}
}

// deliver 阻塞投递：TCP 字节流不能丢，只在服务退出时放弃
func deliver(ctx context.Context, inputs chan<- Input, in Input) bool {
	select {
	case inputs <- in:
		return true
	case <-ctx.Done():
		return false
	}
}
