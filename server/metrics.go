package server

import (
	"sync/atomic"
)

// ServerMetrics 记录服务运行期的关键指标（用于监控与调试）
type ServerMetrics struct {
	TickCount        int64 // 统计的 Tick 次数
	TotalTickNs      int64 // Tick 累计耗时（纳秒）
	FramesDispatched int64 // 已解析并处理的客户端帧
	FramesRejected   int64 // 无法解析的帧
	LoginsAccepted   int64
	LoginsRejected   int64
	Disconnects      int64 // 传输失败或主动断开
	UDPBinds         int64
	StepsViaUDP      int64 // GameStep 经 UDP 发送次数
	StepsViaTCP      int64 // GameStep 回退到 TCP 发送次数
	SendFailures     int64 // 发送队列满或写失败
	DatagramsDropped int64 // 入站 UDP 因通道满被丢弃
}

func (m *ServerMetrics) IncFrames() { atomic.AddInt64(&m.FramesDispatched, 1) }
func (m *ServerMetrics) IncRejectedFrames() { atomic.AddInt64(&m.FramesRejected, 1) }
func (m *ServerMetrics) IncLoginAccepted() { atomic.AddInt64(&m.LoginsAccepted, 1) }
func (m *ServerMetrics) IncLoginRejected() { atomic.AddInt64(&m.LoginsRejected, 1) }
func (m *ServerMetrics) IncDisconnects() { atomic.AddInt64(&m.Disconnects, 1) }
func (m *ServerMetrics) IncUDPBinds() { atomic.AddInt64(&m.UDPBinds, 1) }
func (m *ServerMetrics) IncStepUDP() { atomic.AddInt64(&m.StepsViaUDP, 1) }
func (m *ServerMetrics) IncStepTCP() { atomic.AddInt64(&m.StepsViaTCP, 1) }
func (m *ServerMetrics) IncSendFailures() { atomic.AddInt64(&m.SendFailures, 1) }
func (m *ServerMetrics) IncDatagramsDropped() { atomic.AddInt64(&m.DatagramsDropped, 1) }
func (m *ServerMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *ServerMetrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":        tick,
		"avg_tick_ms":       avgMs,
		"frames_dispatched": atomic.LoadInt64(&m.FramesDispatched),
		"frames_rejected":   atomic.LoadInt64(&m.FramesRejected),
		"logins_accepted":   atomic.LoadInt64(&m.LoginsAccepted),
		"logins_rejected":   atomic.LoadInt64(&m.LoginsRejected),
		"disconnects":       atomic.LoadInt64(&m.Disconnects),
		"udp_binds":         atomic.LoadInt64(&m.UDPBinds),
		"steps_via_udp":     atomic.LoadInt64(&m.StepsViaUDP),
		"steps_via_tcp":     atomic.LoadInt64(&m.StepsViaTCP),
		"send_failures":     atomic.LoadInt64(&m.SendFailures),
		"datagrams_dropped": atomic.LoadInt64(&m.DatagramsDropped),
	}
}
