package protocol

import "fmt"

// Framer 单条 TCP 流的接收缓冲：新数据追加到尾部，完整帧从头部取出，
// 剩余字节前移。一次写入可包含零个、一个或多个帧，也可只是半个帧
type Framer struct {
	buf []byte
}

func NewFramer() *Framer {
	return &Framer{buf: make([]byte, 0, MaxPacketSize)}
}

// Write 追加收到的字节，超过 MaxBuffered 时拒绝并保持缓冲不变
func (f *Framer) Write(p []byte) (int, error) {
	if len(f.buf)+len(p) > MaxBuffered {
		return 0, fmt.Errorf("%w: %d buffered + %d new", ErrFrameOverflow, len(f.buf), len(p))
	}
	f.buf = append(f.buf, p...)
	return len(p), nil
}

// Next 取出下一条完整帧（含头），不完整时返回 false 并继续等待
func (f *Framer) Next() ([]byte, bool) {
	h, err := DecodeHeader(f.buf)
	if err != nil {
		return nil, false
	}
	n := h.FrameSize()
	if len(f.buf) < n {
		return nil, false
	}
	frame := make([]byte, n)
	copy(frame, f.buf[:n])
	f.buf = f.buf[:copy(f.buf, f.buf[n:])]
	return frame, true
}

// Buffered 当前尚未成帧的字节数
func (f *Framer) Buffered() int { return len(f.buf) }

func (f *Framer) Reset() { f.buf = f.buf[:0] }
