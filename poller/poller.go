package poller

import "time"

// FD 表示文件描述符。
type FD = int

// Poller 等待已注册 fd 可读。
// 供同步等待模组响应时使用，避免空转；电平触发。

type Poller interface {
	Register(fd FD) error
	Unregister(fd FD) error
	// Wait 阻塞至任一已注册 fd 可读或超时
	// 返回是否有 fd 可读；timeout < 0 表示不超时
	Wait(timeout time.Duration) (readable bool, err error)
	Close() error
}

func timeoutMillis(d time.Duration) int {
	if d < 0 {
		return -1
	}
	ms := d.Milliseconds()
	if ms == 0 && d > 0 {
		ms = 1
	}
	return int(ms)
}
