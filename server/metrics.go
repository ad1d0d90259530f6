package server

import (
	"sync/atomic"
)

// Metrics 记录中继运行期的关键指标（用于监控与调试）
type Metrics struct {
	Connections         int64 // 当前打开的连接数
	MessagesHandled     int64 // 成功分发的入站消息
	Malformed           int64 // 无法解析而丢弃的帧
	UnknownKind         int64 // 未知类型而忽略的消息
	PreconditionDropped int64 // 未注册或处于无敌等前置条件不满足而丢弃
	HitsApplied         int64 // 生效的命中
	HitsIgnored         int64 // 目标不存在或无敌而忽略的命中
	Kills               int64 // 死亡次数
	Sent                int64 // 入队的出站帧
	SendDropped         int64 // 因发送队列满被丢弃的出站帧
}

func (m *Metrics) IncConnections()         { atomic.AddInt64(&m.Connections, 1) }
func (m *Metrics) DecConnections()         { atomic.AddInt64(&m.Connections, -1) }
func (m *Metrics) IncHandled()             { atomic.AddInt64(&m.MessagesHandled, 1) }
func (m *Metrics) IncMalformed()           { atomic.AddInt64(&m.Malformed, 1) }
func (m *Metrics) IncUnknownKind()         { atomic.AddInt64(&m.UnknownKind, 1) }
func (m *Metrics) IncPreconditionDropped() { atomic.AddInt64(&m.PreconditionDropped, 1) }
func (m *Metrics) IncHitsApplied()         { atomic.AddInt64(&m.HitsApplied, 1) }
func (m *Metrics) IncHitsIgnored()         { atomic.AddInt64(&m.HitsIgnored, 1) }
func (m *Metrics) IncKills()               { atomic.AddInt64(&m.Kills, 1) }
func (m *Metrics) IncSent()                { atomic.AddInt64(&m.Sent, 1) }
func (m *Metrics) IncSendDropped()         { atomic.AddInt64(&m.SendDropped, 1) }

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *Metrics) Snapshot() map[string]any {
	return map[string]any{
		"connections":          atomic.LoadInt64(&m.Connections),
		"messages_handled":     atomic.LoadInt64(&m.MessagesHandled),
		"malformed":            atomic.LoadInt64(&m.Malformed),
		"unknown_kind":         atomic.LoadInt64(&m.UnknownKind),
		"precondition_dropped": atomic.LoadInt64(&m.PreconditionDropped),
		"hits_applied":         atomic.LoadInt64(&m.HitsApplied),
		"hits_ignored":         atomic.LoadInt64(&m.HitsIgnored),
		"kills":                atomic.LoadInt64(&m.Kills),
		"sent":                 atomic.LoadInt64(&m.Sent),
		"send_dropped":         atomic.LoadInt64(&m.SendDropped),
	}
}
