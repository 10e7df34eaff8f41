//go:build linux

package serial

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/legamerdc/gsm"
)

var bauds = map[int]uint32{
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
	230400: unix.B230400,
	460800: unix.B460800,
	921600: unix.B921600,
}

func speed(baud int) (uint32, error) {
	s, ok := bauds[baud]
	if !ok {
		return 0, fmt.Errorf("baud %d: %w", baud, gsm.ErrInvalidArgument)
	}
	return s, nil
}

func setRaw(fd, baud int) error {
	s, err := speed(baud)
	if err != nil {
		return err
	}
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return err
	}
	rawMode(t)
	t.Cflag &^= unix.CBAUD
	t.Cflag |= s
	t.Ispeed = s
	t.Ospeed = s
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, t); err != nil {
		return err
	}
	// 丢弃打开前残留的数据
	return unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIOFLUSH)
}
