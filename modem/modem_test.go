package modem

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legamerdc/gsm"
	"github.com/legamerdc/gsm/protocol"
	"github.com/legamerdc/gsm/trace"
)

// fakePort 记录模组写出的命令，并按命令自动排入应答
type fakePort struct {
	in      bytes.Buffer
	sent    []string
	replies map[string]string
	werr    error
}

func newFakePort() *fakePort {
	return &fakePort{replies: map[string]string{}}
}

func (p *fakePort) Read(b []byte) (int, error) {
	if p.in.Len() == 0 {
		return 0, nil
	}
	return p.in.Read(b)
}

func (p *fakePort) Write(b []byte) (int, error) {
	if p.werr != nil {
		return 0, p.werr
	}
	cmd := strings.TrimRight(string(b), "\r\n")
	p.sent = append(p.sent, cmd)
	if r, ok := p.replies[cmd]; ok {
		p.in.WriteString(r)
	}
	return len(b), nil
}

func (p *fakePort) feed(s string) { p.in.WriteString(s) }

type clock struct{ t time.Time }

func (c *clock) now() time.Time        { return c.t }
func (c *clock) sleep(d time.Duration) { c.t = c.t.Add(d) }

type recorder struct {
	urcs []string
	m    *Modem
	once bool
}

func (r *recorder) HandleURC(urc string) {
	r.urcs = append(r.urcs, urc)
	if r.once {
		r.m.RemoveURCHandler(r)
	}
}

func newModem(t *testing.T, opts ...Option) (*Modem, *fakePort, *clock) {
	t.Helper()
	p := newFakePort()
	opts = append([]Option{WithLogger(log.New(io.Discard)), WithTimeout(5 * time.Second)}, opts...)
	m := New(p, opts...)
	c := &clock{t: time.Unix(1700000000, 0)}
	m.now, m.sleep = c.now, c.sleep
	return m, p, c
}

func TestCommandResponse(t *testing.T) {
	m, p, _ := newModem(t)
	p.replies["AT+USOCR=6"] = "AT+USOCR=6\r\r\n+USOCR: 0\r\n\r\nOK\r\n"

	var resp gsm.Response
	m.SetResponseDataStorage(&resp)
	m.Send(protocol.CreateTCPSocket())
	assert.True(t, m.Busy())

	assert.Equal(t, gsm.OK, m.Ready())
	assert.False(t, m.Busy())
	assert.Equal(t, []string{"+USOCR: 0"}, resp.Lines(), "echo is dropped")
	assert.Equal(t, []string{"AT+USOCR=6"}, p.sent)

	// 命令结束后存储自动解除
	p.replies["AT+USOLI=0,80"] = "+CME ERROR: operation not allowed\r\n"
	m.Send(protocol.Listen(0, 80))
	assert.Equal(t, gsm.Error, m.Ready())
	assert.Equal(t, []string{"+USOCR: 0"}, resp.Lines())
}

func TestPartialLines(t *testing.T) {
	m, p, _ := newModem(t)

	var resp gsm.Response
	m.SetResponseDataStorage(&resp)
	m.Send("AT+USORD=1,0")
	assert.Equal(t, gsm.NotReady, m.Ready())

	p.feed("+USORD: 1,")
	assert.Equal(t, gsm.NotReady, m.Ready())
	p.feed("12\r\nO")
	assert.Equal(t, gsm.NotReady, m.Ready())
	p.feed("K\r\n")
	assert.Equal(t, gsm.OK, m.Ready())
	assert.Equal(t, []string{"+USORD: 1,12"}, resp.Lines())

	// 空闲时保持上一条结果
	assert.Equal(t, gsm.OK, m.Ready())
}

func TestFinalCodes(t *testing.T) {
	m, p, _ := newModem(t)
	cases := map[string]gsm.Readiness{
		"OK":              gsm.OK,
		"ERROR":           gsm.Error,
		"+CME ERROR: 4":   gsm.Error,
		"+CMS ERROR: 500": gsm.Error,
		"NO CARRIER":      gsm.NoCarrier,
	}
	for line, want := range cases {
		m.Send("AT")
		p.feed(line + "\r\n")
		assert.Equal(t, want, m.Ready(), line)
	}
}

func TestURCDispatch(t *testing.T) {
	m, p, _ := newModem(t)
	r := &recorder{}
	m.AddURCHandler(r)
	m.AddURCHandler(r)

	var resp gsm.Response
	m.SetResponseDataStorage(&resp)
	m.Send("AT+USORD=0,0")
	p.feed("+UUSOLI: 1,\"10.0.0.2\",4242,0,\"10.0.0.1\",80\r\n+USORD: 0,0\r\nOK\r\n")
	require.Equal(t, gsm.OK, m.Ready())
	assert.Equal(t, []string{"+USORD: 0,0"}, resp.Lines())
	assert.Equal(t, []string{"+UUSOLI: 1,\"10.0.0.2\",4242,0,\"10.0.0.1\",80"}, r.urcs, "registered once")

	// 空闲时所有行均作为 URC
	p.feed("\r\nRING\r\n")
	m.Poll()
	assert.Equal(t, "RING", r.urcs[len(r.urcs)-1])

	m.RemoveURCHandler(r)
	p.feed("+UUSOCL: 1\r\n")
	m.Poll()
	assert.Len(t, r.urcs, 2)
}

func TestHandlerRemovesItself(t *testing.T) {
	m, p, _ := newModem(t)
	first := &recorder{m: m, once: true}
	second := &recorder{}
	m.AddURCHandler(first)
	m.AddURCHandler(second)

	p.feed("+UUSOCL: 2\r\n+UUSOCL: 3\r\n")
	m.Poll()
	assert.Equal(t, []string{"+UUSOCL: 2"}, first.urcs)
	assert.Equal(t, []string{"+UUSOCL: 2", "+UUSOCL: 3"}, second.urcs)
}

func TestCommandTimeout(t *testing.T) {
	m, _, c := newModem(t)
	m.Send("AT+USOCR=6")
	assert.Equal(t, gsm.NotReady, m.Ready())

	c.sleep(5 * time.Second)
	assert.Equal(t, gsm.Timeout, m.Ready())
	assert.False(t, m.Busy())
}

func TestWaitForResponse(t *testing.T) {
	m, p, c := newModem(t, WithPollInterval(10*time.Millisecond))

	m.Send("AT+USOCL=0")
	start := c.t
	assert.Equal(t, gsm.Timeout, m.WaitForResponse(100*time.Millisecond))
	assert.Equal(t, 100*time.Millisecond, c.t.Sub(start))
	assert.True(t, m.Busy(), "command stays pending")

	p.feed("OK\r\n")
	assert.Equal(t, gsm.OK, m.WaitForResponse(time.Second))
}

type feedWaiter struct {
	p     *fakePort
	calls int
}

func (w *feedWaiter) Wait(time.Duration) (bool, error) {
	w.calls++
	if w.calls == 3 {
		w.p.feed("OK\r\n")
		return true, nil
	}
	return false, nil
}

func TestWaitUsesWaiter(t *testing.T) {
	m, p, c := newModem(t)
	w := &feedWaiter{p: p}
	m.waiter = w

	start := c.t
	m.Send("AT")
	assert.Equal(t, gsm.OK, m.WaitForResponse(time.Second))
	assert.Equal(t, 3, w.calls)
	assert.Equal(t, start, c.t, "waiter replaces sleeping")
}

func TestWriteFailure(t *testing.T) {
	m, p, _ := newModem(t)
	p.werr = errors.New("broken pipe")
	m.Send("AT")
	assert.Equal(t, gsm.Error, m.Ready())
	assert.False(t, m.Busy())
}

func TestLineOverflow(t *testing.T) {
	m, p, _ := newModem(t)
	r := &recorder{}
	m.AddURCHandler(r)

	p.feed(strings.Repeat("x", rxBufferSize+100))
	m.Poll()
	p.feed("\r\n+UUSOCL: 4\r\n")
	m.Poll()
	require.NotEmpty(t, r.urcs)
	assert.Equal(t, "+UUSOCL: 4", r.urcs[len(r.urcs)-1])
}

func TestInit(t *testing.T) {
	m, p, _ := newModem(t)
	for _, cmd := range protocol.Init() {
		p.replies[cmd] = "OK\r\n"
	}
	require.NoError(t, m.Init(context.Background()))
	assert.Equal(t, protocol.Init(), p.sent)

	m, p, _ = newModem(t)
	for _, cmd := range protocol.Init() {
		p.replies[cmd] = "OK\r\n"
	}
	p.replies["AT+CMEE=2"] = "ERROR\r\n"
	err := m.Init(context.Background())
	assert.ErrorIs(t, err, gsm.ErrCommandFailed)
	assert.Contains(t, err.Error(), "AT+CMEE=2")
}

func TestInitWaitsForBoot(t *testing.T) {
	m, p, c := newModem(t)
	for _, cmd := range protocol.Init()[1:] {
		p.replies[cmd] = "OK\r\n"
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.Init(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, p.sent)

	// 模组启动后才应答
	attempts := 0
	m.sleep = func(d time.Duration) {
		c.sleep(d)
		attempts++
		if attempts == 3 {
			p.replies["AT"] = "OK\r\n"
		}
	}
	require.NoError(t, m.Init(context.Background()))
	assert.Equal(t, "AT", p.sent[0])
	assert.Equal(t, protocol.Init()[1:], p.sent[len(p.sent)-3:])
}

func TestTrace(t *testing.T) {
	var buf bytes.Buffer
	rec := trace.NewRecorder(&buf)
	m, p, _ := newModem(t, WithTrace(rec))
	p.replies["AT+USOWR=0,2,\"6869\""] = "+USOWR: 0,2\r\nOK\r\n"

	m.Send(protocol.Write(0, []byte("hi")))
	require.Equal(t, gsm.OK, m.Ready())
	assert.NotZero(t, buf.Len(), "flushed when the command resolves")
	p.feed("+UUSOCL: 0\r\n")
	m.Poll()
	require.NoError(t, m.Close())

	rd, err := trace.NewReader(&buf)
	require.NoError(t, err)
	defer rd.Close()
	var got []string
	for {
		e, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, e.Dir.String()+" "+e.Line)
	}
	assert.Equal(t, []string{
		"tx AT+USOWR=0,2,\"6869\"",
		"rx +USOWR: 0,2",
		"rx OK",
		"urc +UUSOCL: 0",
	}, got)
}

// failingPort 每次读取都返回新包装的错误
type failingPort struct {
	fail bool
}

func (p *failingPort) Read([]byte) (int, error) {
	if p.fail {
		return 0, fmt.Errorf("serial: read /dev/ttyACM0: %w", syscall.EIO)
	}
	return 0, nil
}

func (p *failingPort) Write(b []byte) (int, error) { return len(b), nil }

func TestReadErrorLoggedOnce(t *testing.T) {
	var out bytes.Buffer
	p := &failingPort{fail: true}
	m := New(p, WithLogger(log.New(&out)))

	for i := 0; i < 3; i++ {
		m.Poll()
	}
	assert.Equal(t, 1, strings.Count(out.String(), "read failed"))

	p.fail = false
	m.Poll()
	p.fail = true
	m.Poll()
	assert.Equal(t, 2, strings.Count(out.String(), "read failed"), "logged again after recovery")
}
