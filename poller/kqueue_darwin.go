//go:build darwin

package poller

import (
	"time"

	"golang.org/x/sys/unix"
)

type kqueuePoller struct {
	kq     int
	events []unix.Kevent_t
}

func New() (Poller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	unix.CloseOnExec(kq)
	return &kqueuePoller{kq: kq, events: make([]unix.Kevent_t, 8)}, nil
}

func (p *kqueuePoller) Register(fd FD) error {
	// 不带 EV_CLEAR，保持电平触发
	changes := []unix.Kevent_t{{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_ADD}}
	_, err := unix.Kevent(p.kq, changes, nil, nil)
	return err
}

func (p *kqueuePoller) Unregister(fd FD) error {
	changes := []unix.Kevent_t{{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE}}
	_, err := unix.Kevent(p.kq, changes, nil, nil)
	return err
}

func (p *kqueuePoller) Close() error {
	return unix.Close(p.kq)
}

func (p *kqueuePoller) Wait(timeout time.Duration) (bool, error) {
	var ts *unix.Timespec
	if timeout >= 0 {
		t := unix.NsecToTimespec(timeout.Nanoseconds())
		ts = &t
	}
	n, err := unix.Kevent(p.kq, nil, p.events, ts)
	if err != nil {
		if err == unix.EINTR {
			return false, nil
		}
		return false, err
	}
	for i := 0; i < n; i++ {
		if p.events[i].Filter == unix.EVFILT_READ {
			return true, nil
		}
	}
	return false, nil
}
