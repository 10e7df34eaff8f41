package client

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/legamerdc/gsm"
	"github.com/legamerdc/gsm/protocol"
)

// Client 为模组上一个已接入的子 socket
// 每次操作都是一条同步的 AT 命令；异步句柄在模组忙时直接返回
type Client struct {
	modem   gsm.Modem
	socket  int
	synch   bool
	resp    gsm.Response
	timeout time.Duration
	log     *log.Logger
}

// Option 配置 Client
type Option func(*Client)

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithTimeout 设置单条命令的等待时长
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// New 返回绑定到 socket 的句柄；socket 为 gsm.NoSocket 时为空句柄
func New(m gsm.Modem, socket int, synch bool, opts ...Option) *Client {
	c := &Client{
		modem:   m,
		socket:  socket,
		synch:   synch,
		timeout: gsm.DefaultConfig().CommandTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = log.Default().WithPrefix("client")
	}
	return c
}

func (c *Client) Socket() int { return c.socket }

// Connected 表示句柄绑定了有效 socket
func (c *Client) Connected() bool { return c.socket != gsm.NoSocket }

// acquire 等待模组空闲；异步句柄不等待
func (c *Client) acquire() bool {
	if c.modem.Ready() != gsm.NotReady {
		return true
	}
	if !c.synch {
		return false
	}
	c.modem.WaitForResponse(c.timeout)
	return c.modem.Ready() != gsm.NotReady
}

// command 发出 cmd 并等待结果码，中间响应写入 c.resp
func (c *Client) command(cmd string) gsm.Readiness {
	if !c.acquire() {
		return gsm.NotReady
	}
	c.resp.Reset()
	c.modem.SetResponseDataStorage(&c.resp)
	c.log.Debug("send", "cmd", cmd)
	c.modem.Send(cmd)
	return c.modem.WaitForResponse(c.timeout)
}

// Available 查询待读字节数（不消费数据），失败或模组忙时返回 0
func (c *Client) Available() int {
	if !c.Connected() {
		return 0
	}
	if r := c.command(protocol.Read(c.socket, 0)); r != gsm.OK {
		return 0
	}
	for _, line := range c.resp.Lines() {
		socket, n, _, err := protocol.ParseRead(line)
		if err == nil && socket == c.socket {
			return n
		}
	}
	return 0
}

// Read 读取最多 len(p) 字节（单次不超过 protocol.MaxReadChunk）
func (c *Client) Read(p []byte) (int, error) {
	if !c.Connected() {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	n := min(len(p), protocol.MaxReadChunk)
	if r := c.command(protocol.Read(c.socket, n)); r != gsm.OK {
		return 0, fmt.Errorf("client: read socket %d: %w", c.socket, gsm.ReadinessError(r))
	}
	for _, line := range c.resp.Lines() {
		socket, _, data, err := protocol.ParseRead(line)
		if err != nil {
			return 0, fmt.Errorf("client: read socket %d: %w", c.socket, err)
		}
		if socket == c.socket {
			return copy(p, data), nil
		}
	}
	return 0, nil
}

// Write 分片写入 p，返回模组确认的字节数
// 遇到第一个失败的分片即停止
func (c *Client) Write(p []byte) int {
	if !c.Connected() {
		return 0
	}
	written := 0
	for _, chunk := range chunks(p, protocol.MaxWriteChunk) {
		if r := c.command(protocol.Write(c.socket, chunk)); r != gsm.OK {
			c.log.Debug("write failed", "socket", c.socket, "outcome", r)
			break
		}
		n := c.written()
		written += n
		if n < len(chunk) {
			break
		}
	}
	return written
}

func (c *Client) written() int {
	for _, line := range c.resp.Lines() {
		socket, n, err := protocol.ParseWritten(line)
		if err == nil && socket == c.socket {
			return n
		}
	}
	return 0
}

// Stop 关闭子 socket，之后句柄失效
func (c *Client) Stop() {
	if !c.Connected() {
		return
	}
	if r := c.command(protocol.CloseSocket(c.socket)); r != gsm.OK {
		c.log.Debug("close failed", "socket", c.socket, "outcome", r)
	}
	c.socket = gsm.NoSocket
}

// Close 实现 io.Closer
func (c *Client) Close() error {
	c.Stop()
	return nil
}
