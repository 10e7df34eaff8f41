//go:build linux || darwin

// Package serial 以非阻塞方式打开串口（raw 8N1）
package serial

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/legamerdc/gsm"
)

// Port 为非阻塞串口
// Read 在无数据时返回 (0, nil)，Write 保证写完或返回错误
type Port struct {
	fd   int
	path string
}

// Open 打开 path 并设置为 raw 8N1、无流控
func Open(path string, baud int) (*Port, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", path, err)
	}
	if err := setRaw(fd, baud); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("serial: configure %s: %w", path, err)
	}
	return newPort(fd, path), nil
}

func newPort(fd int, path string) *Port {
	return &Port{fd: fd, path: path}
}

func (p *Port) Fd() int { return p.fd }

func (p *Port) String() string { return p.path }

func (p *Port) Read(b []byte) (int, error) {
	if p.fd < 0 {
		return 0, gsm.ErrClosed
	}
	n, err := unix.Read(p.fd, b)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("serial: read %s: %w", p.path, err)
	}
	return n, nil
}

func (p *Port) Write(b []byte) (int, error) {
	if p.fd < 0 {
		return 0, gsm.ErrClosed
	}
	written := 0
	for written < len(b) {
		n, err := unix.Write(p.fd, b[written:])
		if n > 0 {
			written += n
		}
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR {
				// 发送缓冲已满，等待 UART 排空
				time.Sleep(time.Millisecond)
				continue
			}
			return written, fmt.Errorf("serial: write %s: %w", p.path, err)
		}
	}
	return written, nil
}

func (p *Port) Close() error {
	if p.fd < 0 {
		return nil
	}
	err := unix.Close(p.fd)
	p.fd = -1
	return err
}

// rawMode 清除行规程与流控，设置 8N1 与非阻塞读（VMIN=0, VTIME=0）
func rawMode(t *unix.Termios) {
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF | unix.IXANY
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB | unix.CRTSCTS
	t.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = 0
}
