package server

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/legamerdc/gsm"
)

// Client 为子连接句柄，由 ClientFactory 按 socket 构造
// socket 为 gsm.NoSocket 时表示空句柄
type Client interface {
	Socket() int
	Available() int
	Write(p []byte) int
}

// ClientFactory 构造绑定到指定 socket 的子连接句柄
type ClientFactory func(socket int, synch bool) Client

type options struct {
	synch       bool
	capacity    int
	stopTimeout time.Duration
	pollWait    time.Duration
	newClient   ClientFactory
	logger      *log.Logger
}

// Option 配置 Server
type Option func(*options)

// WithSynchronous 使 Begin 阻塞直到状态机结束
func WithSynchronous(synch bool) Option {
	return func(o *options) { o.synch = synch }
}

// WithCapacity 设置子连接表容量
func WithCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.capacity = n
		}
	}
}

// WithStopTimeout 设置 Stop 等待关闭响应的时长
func WithStopTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.stopTimeout = d
		}
	}
}

// WithPollInterval 设置同步 Begin 在传输层忙时单次等待的时长
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollWait = d
		}
	}
}

// WithClientFactory 设置子连接句柄的构造方式
func WithClientFactory(f ClientFactory) Option {
	return func(o *options) { o.newClient = f }
}

func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// FromConfig 将 gsm.Config 转为 Option 列表
func FromConfig(cfg gsm.Config) []Option {
	cfg = cfg.Normalize()
	opts := []Option{
		WithSynchronous(cfg.Synchronous),
		WithCapacity(cfg.MaxChildSockets),
		WithStopTimeout(cfg.StopTimeout),
		WithPollInterval(cfg.PollInterval),
	}
	if cfg.Logger != nil {
		opts = append(opts, WithLogger(cfg.Logger))
	}
	return opts
}

func defaultOptions() options {
	d := gsm.DefaultConfig()
	return options{
		synch:       d.Synchronous,
		capacity:    d.MaxChildSockets,
		stopTimeout: d.StopTimeout,
		pollWait:    d.PollInterval,
	}
}
