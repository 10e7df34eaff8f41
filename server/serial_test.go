package server

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legamerdc/gsm"
	"github.com/legamerdc/gsm/modem"
)

// scriptPort 按命令应答的串口，回显开启
type scriptPort struct {
	in      bytes.Buffer
	replies map[string]string
}

func (p *scriptPort) Read(b []byte) (int, error) {
	if p.in.Len() == 0 {
		return 0, nil
	}
	return p.in.Read(b)
}

func (p *scriptPort) Write(b []byte) (int, error) {
	cmd := strings.TrimRight(string(b), "\r\n")
	p.in.WriteString(cmd + "\r\r\n")
	reply, ok := p.replies[cmd]
	if !ok {
		reply = "OK\r\n"
	}
	p.in.WriteString(reply)
	return len(b), nil
}

func TestServerOverModem(t *testing.T) {
	p := &scriptPort{replies: map[string]string{
		"AT+USOCR=6":            "\r\n+USOCR: 2\r\n\r\nOK\r\n",
		"AT+USORD=5,0":          "\r\n+USORD: 5,3\r\n\r\nOK\r\n",
		"AT+USOWR=5,2,\"6869\"": "\r\n+USOWR: 5,2\r\n\r\nOK\r\n",
	}}
	m := modem.New(p, modem.WithLogger(quietLogger()))
	s := New(m, 8080, WithLogger(quietLogger()))
	defer s.Close()

	s.Begin()
	require.True(t, s.Active())
	assert.Equal(t, 2, s.Socket())

	p.in.WriteString("\r\n+UUSOLI: 5,\"10.0.0.9\",50000,2,\"10.0.0.1\",8080\r\n")
	c := s.Available(true)
	assert.Equal(t, 5, c.Socket(), "accepted child")
	assert.Equal(t, 3, c.Available())
	assert.Equal(t, 2, s.WriteString("hi"))

	p.in.WriteString("\r\n+UUSOCL: 5\r\n")
	assert.Equal(t, gsm.NoSocket, s.Available(true).Socket())
	assert.Empty(t, s.Children())

	s.Stop()
	assert.False(t, s.Active())
}
