package gsm

import "errors"

var (
	// ErrPlatformNotSupported 当前平台没有串口实现
	ErrPlatformNotSupported = errors.New("gsm: platform not supported (requires linux or darwin)")

	// ErrInvalidArgument 参数非法
	ErrInvalidArgument = errors.New("gsm: invalid argument")

	// ErrModemBusy 已有命令在途
	ErrModemBusy = errors.New("gsm: modem busy")

	// ErrCommandFailed 模组返回 ERROR / +CME ERROR / NO CARRIER
	ErrCommandFailed = errors.New("gsm: command failed")

	// ErrTimeout 命令超时
	ErrTimeout = errors.New("gsm: command timeout")

	// ErrClosed 已关闭
	ErrClosed = errors.New("gsm: closed")
)

// ReadinessError 将失败的 Readiness 映射为哨兵错误
func ReadinessError(r Readiness) error {
	switch r {
	case OK:
		return nil
	case Timeout:
		return ErrTimeout
	case NotReady:
		return ErrModemBusy
	default:
		return ErrCommandFailed
	}
}
