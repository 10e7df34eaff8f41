// Package modemtest 提供脚本化的 gsm.Modem 假实现，供各包测试使用
package modemtest

import (
	"strings"
	"time"

	"github.com/legamerdc/gsm"
)

// Reply 为一条命令的脚本化响应
type Reply struct {
	Lines   []string      // 中间响应行
	Outcome gsm.Readiness // 零值按 OK 处理
	Delay   int           // 结果出现前 Ready 返回 NotReady 的次数
	Hang    bool          // 永不结束（WaitForResponse 返回 Timeout）
}

type rule struct {
	prefix  string
	replies []Reply
}

// Modem 为单线程假模组
// 命令按前缀匹配脚本响应，未匹配时返回 OK
type Modem struct {
	Sent []string

	rules    []*rule
	handlers []gsm.URCHandler
	urcs     []string
	storage  *gsm.Response
	pending  *Reply
	delay    int
	state    gsm.Readiness
}

func New() *Modem {
	return &Modem{state: gsm.OK}
}

// On 为以 prefix 开头的命令登记响应；多个响应依次使用，最后一个重复使用
func (m *Modem) On(prefix string, replies ...Reply) *Modem {
	m.rules = append(m.rules, &rule{prefix: prefix, replies: replies})
	return m
}

// Inject 排队一条 URC，在下一次 Poll 时投递
func (m *Modem) Inject(urc string) { m.urcs = append(m.urcs, urc) }

// Deliver 立即投递一条 URC
func (m *Modem) Deliver(urc string) {
	hs := append([]gsm.URCHandler(nil), m.handlers...)
	for _, h := range hs {
		h.HandleURC(urc)
	}
}

// Handlers 返回已注册的处理者数
func (m *Modem) Handlers() int { return len(m.handlers) }

// Busy 表示有命令在途
func (m *Modem) Busy() bool { return m.pending != nil }

// Reset 清空已发送命令记录
func (m *Modem) Reset() { m.Sent = nil }

func (m *Modem) match(cmd string) Reply {
	for _, r := range m.rules {
		if !strings.HasPrefix(cmd, r.prefix) || len(r.replies) == 0 {
			continue
		}
		rep := r.replies[0]
		if len(r.replies) > 1 {
			r.replies = r.replies[1:]
		}
		return rep
	}
	return Reply{}
}

func (m *Modem) Send(cmd string) {
	m.Sent = append(m.Sent, cmd)
	rep := m.match(cmd)
	m.pending = &rep
	m.delay = rep.Delay
	m.state = gsm.NotReady
}

func (m *Modem) SetResponseDataStorage(r *gsm.Response) { m.storage = r }

func (m *Modem) resolve() {
	rep := m.pending
	m.pending = nil
	if m.storage != nil {
		for _, l := range rep.Lines {
			m.storage.Append(l)
		}
		m.storage = nil
	}
	m.state = rep.Outcome
	if m.state == gsm.NotReady {
		m.state = gsm.OK
	}
}

func (m *Modem) Ready() gsm.Readiness {
	m.Poll()
	if m.pending == nil {
		return m.state
	}
	if m.pending.Hang {
		return gsm.NotReady
	}
	if m.delay > 0 {
		m.delay--
		return gsm.NotReady
	}
	m.resolve()
	return m.state
}

func (m *Modem) WaitForResponse(time.Duration) gsm.Readiness {
	m.Poll()
	if m.pending == nil {
		return m.state
	}
	if m.pending.Hang {
		return gsm.Timeout
	}
	m.delay = 0
	m.resolve()
	return m.state
}

func (m *Modem) Poll() {
	for len(m.urcs) > 0 {
		urc := m.urcs[0]
		m.urcs = m.urcs[1:]
		m.Deliver(urc)
	}
}

func (m *Modem) AddURCHandler(h gsm.URCHandler) { m.handlers = append(m.handlers, h) }

func (m *Modem) RemoveURCHandler(h gsm.URCHandler) {
	for i, x := range m.handlers {
		if x == h {
			m.handlers = append(m.handlers[:i], m.handlers[i+1:]...)
			return
		}
	}
}

var _ gsm.Modem = (*Modem)(nil)
