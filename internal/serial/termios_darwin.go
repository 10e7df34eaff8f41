//go:build darwin

package serial

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/legamerdc/gsm"
)

var bauds = map[int]uint64{
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
	230400: unix.B230400,
}

func speed(baud int) (uint64, error) {
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
	t, err := unix.IoctlGetTermios(fd, unix.TIOCGETA)
	if err != nil {
		return err
	}
	rawMode(t)
	t.Ispeed = s
	t.Ospeed = s
	return unix.IoctlSetTermios(fd, unix.TIOCSETA, t)
}
