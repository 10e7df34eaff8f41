package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/legamerdc/gsm"
	"github.com/legamerdc/gsm/client"
	"github.com/legamerdc/gsm/modem"
	"github.com/legamerdc/gsm/server"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var broadcast bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Listen on the modem and echo (or broadcast) received data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root.v, root.configFile)
			if err != nil {
				return err
			}
			cfg.Logger = logger(cfg.LogLevel)
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, broadcast)
		},
	}
	cmd.Flags().BoolVar(&broadcast, "broadcast", false, "send received data to every client instead of echoing it back")
	return cmd
}

func serve(ctx context.Context, cfg gsm.Config, broadcast bool) error {
	m, err := modem.OpenSerial(cfg)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Init(ctx); err != nil {
		return err
	}

	srv := server.New(m, cfg.Port, server.FromConfig(cfg)...)
	defer srv.Close()
	if err := listen(ctx, srv, cfg.PollInterval); err != nil {
		return err
	}
	defer srv.Stop()

	l := cfg.Logger.WithPrefix("serve")
	h := &relay{modem: m, srv: srv, broadcast: broadcast, log: l, buf: make([]byte, 512)}
	for {
		if h.once() && ctx.Err() == nil {
			continue
		}
		select {
		case <-ctx.Done():
			l.Info("shutting down")
			return nil
		case <-time.After(cfg.PollInterval):
		}
	}
}

// listen 驱动监听状态机直到 Terminal
// 异步模式下 socket 创建后即为 Active，此时尚未发出 USOLI，不能以 Active 判断结束
func listen(ctx context.Context, srv *server.Server, interval time.Duration) error {
	srv.Begin()
	for srv.Ready() != server.Terminal {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	if !srv.Active() {
		return fmt.Errorf("listen on port %d: %w", srv.Port(), gsm.ErrCommandFailed)
	}
	return nil
}

type relay struct {
	modem     gsm.Modem
	srv       *server.Server
	broadcast bool
	log       *log.Logger
	buf       []byte
}

// once 服务一个有数据的子连接，没有可服务的连接时返回 false
func (r *relay) once() bool {
	ch := r.srv.Available(false)
	if ch.Socket() == gsm.NoSocket {
		return false
	}
	c := client.New(r.modem, ch.Socket(), true, client.WithLogger(r.log))
	n, err := c.Read(r.buf)
	if err != nil {
		r.log.Warn("read", "socket", c.Socket(), "err", err)
		return true
	}
	if n == 0 {
		// 新接入，尚无数据
		r.log.Info("client connected", "socket", c.Socket())
		return true
	}
	if r.broadcast {
		r.srv.Write(r.buf[:n])
	} else {
		c.Write(r.buf[:n])
	}
	return true
}
