//go:build linux || darwin

package modem

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/legamerdc/gsm"
	"github.com/legamerdc/gsm/internal/serial"
	"github.com/legamerdc/gsm/poller"
	"github.com/legamerdc/gsm/trace"
)

// OpenSerial 打开 cfg.Device 并返回可用的 Modem（未执行 Init）
func OpenSerial(cfg gsm.Config) (*Modem, error) {
	cfg = cfg.Normalize()
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithPrefix("modem")

	port, err := serial.Open(cfg.Device, cfg.BaudRate)
	if err != nil {
		return nil, err
	}
	closers := []io.Closer{port}
	fail := func(err error) (*Modem, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i].Close()
		}
		return nil, err
	}

	p, err := poller.New()
	if err != nil {
		return fail(fmt.Errorf("modem: poller: %w", err))
	}
	closers = append(closers, p)
	if err := p.Register(port.Fd()); err != nil {
		return fail(fmt.Errorf("modem: register %s: %w", cfg.Device, err))
	}
	// 关闭时先于 poller 与端口注销
	closers = append(closers, closerFunc(func() error { return p.Unregister(port.Fd()) }))

	opts := []Option{
		WithLogger(logger),
		WithTimeout(cfg.CommandTimeout),
		WithPollInterval(cfg.PollInterval),
		WithWaiter(p),
	}
	if cfg.TracePath != "" {
		f, err := os.Create(cfg.TracePath)
		if err != nil {
			return fail(fmt.Errorf("modem: trace: %w", err))
		}
		closers = append(closers, f)
		opts = append(opts, WithTrace(trace.NewRecorder(f)))
	}

	m := New(port, opts...)
	m.closers = closers
	logger.Info("serial opened", "device", cfg.Device, "baud", cfg.BaudRate)
	return m, nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
