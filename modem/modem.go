// Package modem 在串口上实现 gsm.Modem：一次一条 AT 命令，URC 推送给处理者
package modem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/legamerdc/gsm"
	"github.com/legamerdc/gsm/internal/ring"
	"github.com/legamerdc/gsm/protocol"
	"github.com/legamerdc/gsm/trace"
)

const (
	rxBufferSize = 8 << 10
	readChunk    = 1 << 10
	probeTimeout = time.Second
)

// Port 为非阻塞字节流；无数据时 Read 返回 (0, nil)
type Port interface {
	io.Reader
	io.Writer
}

// Waiter 阻塞至端口可读或超时
type Waiter interface {
	Wait(timeout time.Duration) (readable bool, err error)
}

// Modem 单线程使用，不加锁
type Modem struct {
	port   Port
	rx     *ring.Buffer
	tmp    []byte
	waiter Waiter
	trace  *trace.Recorder
	log    *log.Logger

	handlers []gsm.URCHandler
	storage  *gsm.Response

	pending  string
	busy     bool
	state    gsm.Readiness
	deadline time.Time

	timeout  time.Duration
	interval time.Duration
	now      func() time.Time
	sleep    func(time.Duration)

	readErr string
	closers []io.Closer
}

// Option 配置 Modem
type Option func(*Modem)

func WithLogger(l *log.Logger) Option {
	return func(m *Modem) { m.log = l }
}

// WithTrace 记录全部收发行
func WithTrace(r *trace.Recorder) Option {
	return func(m *Modem) { m.trace = r }
}

// WithTimeout 设置单条命令超时
func WithTimeout(d time.Duration) Option {
	return func(m *Modem) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithPollInterval 设置 WaitForResponse 单次等待上限
func WithPollInterval(d time.Duration) Option {
	return func(m *Modem) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithWaiter 使用 w 等待端口可读，替代定时休眠
func WithWaiter(w Waiter) Option {
	return func(m *Modem) { m.waiter = w }
}

func New(port Port, opts ...Option) *Modem {
	d := gsm.DefaultConfig()
	m := &Modem{
		port:     port,
		rx:       ring.New(rxBufferSize),
		tmp:      make([]byte, readChunk),
		state:    gsm.OK,
		timeout:  d.CommandTimeout,
		interval: d.PollInterval,
		now:      time.Now,
		sleep:    time.Sleep,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = log.Default().WithPrefix("modem")
	}
	return m
}

// Send 发出 cmd；上一条命令未结束时将被放弃
func (m *Modem) Send(cmd string) {
	if m.busy {
		m.log.Warn("command abandoned", "pending", m.pending, "next", cmd)
	}
	m.pending = cmd
	m.busy = true
	m.state = gsm.NotReady
	m.deadline = m.now().Add(m.timeout)
	m.record(trace.Tx, cmd)
	m.log.Debug("tx", "cmd", cmd)
	if _, err := m.port.Write([]byte(cmd + "\r\n")); err != nil {
		m.log.Error("write failed", "cmd", cmd, "err", err)
		m.finish(gsm.Error)
	}
}

// SetResponseDataStorage 指定下一条命令的中间响应写入 r，命令结束后自动解除
func (m *Modem) SetResponseDataStorage(r *gsm.Response) { m.storage = r }

// Ready 处理已到达的数据并返回当前命令状态；空闲时返回上一条命令的结果
func (m *Modem) Ready() gsm.Readiness {
	m.Poll()
	if m.busy && !m.now().Before(m.deadline) {
		m.log.Warn("command timeout", "cmd", m.pending, "timeout", m.timeout)
		m.finish(gsm.Timeout)
	}
	return m.state
}

// WaitForResponse 等待当前命令结束，最多 timeout
// 超时返回 gsm.Timeout，命令仍保持在途，由命令超时最终结束
func (m *Modem) WaitForResponse(timeout time.Duration) gsm.Readiness {
	deadline := m.now().Add(timeout)
	for {
		if r := m.Ready(); r != gsm.NotReady {
			return r
		}
		left := deadline.Sub(m.now())
		if left <= 0 {
			return gsm.Timeout
		}
		m.wait(min(left, m.interval))
	}
}

func (m *Modem) wait(d time.Duration) {
	if m.waiter == nil {
		m.sleep(d)
		return
	}
	if _, err := m.waiter.Wait(d); err != nil {
		m.log.Debug("wait failed", "err", err)
		m.sleep(d)
	}
}

// Poll 读取全部可用数据并逐行处理，期间可能回调 URC 处理者
func (m *Modem) Poll() {
	for {
		free := min(len(m.tmp), m.rx.Free())
		if free == 0 {
			m.drain()
			if m.rx.Free() == 0 {
				m.log.Warn("line overflow, rx discarded", "bytes", m.rx.Len())
				m.rx.Reset()
			}
			continue
		}
		n, err := m.port.Read(m.tmp[:free])
		if n > 0 {
			_, _ = m.rx.Write(m.tmp[:n])
		}
		if err != nil {
			// 同一错误只记录一次
			if msg := err.Error(); !errors.Is(err, io.EOF) && msg != m.readErr {
				m.log.Error("read failed", "err", err)
				m.readErr = msg
			}
			break
		}
		m.readErr = ""
		if n == 0 {
			break
		}
	}
	m.drain()
}

func (m *Modem) drain() {
	for {
		i := m.rx.IndexByte('\n')
		if i < 0 {
			return
		}
		line := strings.TrimRight(string(m.rx.Next(i+1)), "\r\n ")
		if line == "" {
			continue
		}
		m.handle(line)
	}
}

func (m *Modem) handle(line string) {
	if m.busy {
		if line == m.pending {
			// 回显
			return
		}
		if r, ok := protocol.Final(line); ok {
			m.record(trace.Rx, line)
			m.log.Debug("rx", "result", line)
			m.finish(r)
			return
		}
	}
	if !m.busy || protocol.IsURC(line) {
		m.record(trace.URC, line)
		m.log.Debug("urc", "line", line)
		m.dispatch(line)
		return
	}
	m.record(trace.Rx, line)
	m.log.Debug("rx", "line", line)
	if m.storage != nil {
		m.storage.Append(line)
	}
}

func (m *Modem) finish(r gsm.Readiness) {
	m.busy = false
	m.pending = ""
	m.state = r
	m.storage = nil
	// 每条命令结束后落盘，进程异常退出时会话仍可读
	if m.trace != nil {
		if err := m.trace.Flush(); err != nil {
			m.log.Warn("trace disabled", "err", err)
			m.trace = nil
		}
	}
}

// dispatch 基于快照回调，处理者可在回调中注销自己
func (m *Modem) dispatch(urc string) {
	hs := append([]gsm.URCHandler(nil), m.handlers...)
	for _, h := range hs {
		h.HandleURC(urc)
	}
}

func (m *Modem) record(dir trace.Direction, line string) {
	if m.trace == nil {
		return
	}
	if err := m.trace.Record(dir, line); err != nil {
		m.log.Warn("trace disabled", "err", err)
		m.trace = nil
	}
}

// AddURCHandler 重复注册同一处理者无效
func (m *Modem) AddURCHandler(h gsm.URCHandler) {
	for _, x := range m.handlers {
		if x == h {
			return
		}
	}
	m.handlers = append(m.handlers, h)
}

func (m *Modem) RemoveURCHandler(h gsm.URCHandler) {
	for i, x := range m.handlers {
		if x == h {
			m.handlers = append(m.handlers[:i], m.handlers[i+1:]...)
			return
		}
	}
}

// Busy 表示有命令在途
func (m *Modem) Busy() bool { return m.busy }

// Init 执行打开套接字前的初始化序列
// 首条 AT 用于等待模组启动，失败时按 PollInterval 重试直到 ctx 结束
func (m *Modem) Init(ctx context.Context) error {
	for i, cmd := range protocol.Init() {
		for {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("modem: init %q: %w", cmd, err)
			}
			timeout := m.timeout
			if i == 0 {
				timeout = min(timeout, probeTimeout)
			}
			m.Send(cmd)
			r := m.WaitForResponse(timeout)
			if m.busy {
				m.finish(gsm.Timeout)
			}
			if r == gsm.OK {
				break
			}
			if i > 0 {
				return fmt.Errorf("modem: init %q: %w", cmd, gsm.ReadinessError(r))
			}
			m.log.Debug("modem not answering", "outcome", r)
			m.sleep(m.interval)
		}
	}
	m.log.Info("modem initialised")
	return nil
}

// Close 释放端口与附属资源
func (m *Modem) Close() error {
	var errs []error
	if m.trace != nil {
		errs = append(errs, m.trace.Close())
		m.trace = nil
	}
	for i := len(m.closers) - 1; i >= 0; i-- {
		errs = append(errs, m.closers[i].Close())
	}
	m.closers = nil
	return errors.Join(errs...)
}

var _ gsm.Modem = (*Modem)(nil)
