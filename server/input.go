package server

import "net"

// ConnID 连接的稳定句柄，登录前后不变
type ConnID uint64

// InputKind 网络协程投递给 Tick 线程的事件类型
type InputKind uint8

const (
	InputAccepted InputKind = iota // 新 TCP 连接
	InputData                      // TCP 收到的原始字节
	InputClosed                    // TCP 读失败或对端关闭
	InputDatagram                  // 一个完整的 UDP 数据报
)

func (k InputKind) String() string {
	switch k {
	case InputAccepted:
		return "accepted"
	case InputData:
		return "data"
	case InputClosed:
		return "closed"
	case InputDatagram:
		return "datagram"
	default:
		return "unknown"
	}
}

// Input 网络事件，只由 Tick 线程解释并改动房间与比赛状态
type Input struct {
	Kind InputKind
	Conn ConnID
	Peer Conn // 仅 InputAccepted
	Data []byte
	Addr *net.UDPAddr // 仅 InputDatagram
	Err  error        // 仅 InputClosed
}
