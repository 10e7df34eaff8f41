//go:build linux

package poller

import (
	"time"

	"golang.org/x/sys/unix"
)

type epollPoller struct {
	efd    int
	events []unix.EpollEvent
}

func New() (Poller, error) {
	efd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollPoller{efd: efd, events: make([]unix.EpollEvent, 8)}, nil
}

func (p *epollPoller) Register(fd FD) error {
	// 电平触发：Poll 不保证一次读空
	ev := &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	return unix.EpollCtl(p.efd, unix.EPOLL_CTL_ADD, fd, ev)
}

func (p *epollPoller) Unregister(fd FD) error {
	return unix.EpollCtl(p.efd, unix.EPOLL_CTL_DEL, fd, nil)
}

func (p *epollPoller) Close() error {
	return unix.Close(p.efd)
}

func (p *epollPoller) Wait(timeout time.Duration) (bool, error) {
	n, err := unix.EpollWait(p.efd, p.events, timeoutMillis(timeout))
	if err != nil {
		if err == unix.EINTR {
			return false, nil
		}
		return false, err
	}
	for i := 0; i < n; i++ {
		if p.events[i].Events&(unix.EPOLLIN|unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			return true, nil
		}
	}
	return false, nil
}
