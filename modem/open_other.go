//go:build !linux && !darwin

package modem

import "github.com/legamerdc/gsm"

// OpenSerial 当前平台不支持串口
func OpenSerial(gsm.Config) (*Modem, error) {
	return nil, gsm.ErrPlatformNotSupported
}
