package gsm

import (
	"strings"
	"time"
)

// Readiness 为最近一条命令的完成状态
// 大于 OK 的值均视为失败
type Readiness int

const (
	NotReady  Readiness = iota // 命令在途
	OK                         // OK，或无命令在途
	Error                      // ERROR / +CME ERROR / +CMS ERROR
	NoCarrier                  // NO CARRIER
	Timeout                    // 超时未收到结果码
)

func (r Readiness) String() string {
	switch r {
	case NotReady:
		return "not-ready"
	case OK:
		return "ok"
	case Error:
		return "error"
	case NoCarrier:
		return "no-carrier"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Failed 表示命令已结束但未成功
func (r Readiness) Failed() bool { return r > OK }

// Modem 为 AT 命令传输层
// 同一时刻只允许一条命令在途；URC 以推模式投递给已注册的 URCHandler
type Modem interface {
	Send(cmd string)
	SetResponseDataStorage(r *Response)
	Ready() Readiness
	WaitForResponse(timeout time.Duration) Readiness
	Poll()
	AddURCHandler(h URCHandler)
	RemoveURCHandler(h URCHandler)
}

// Response 接收一条命令的中间响应行（不含最终结果码）
// 由命令发起方持有，在途期间交给 Modem 写入
type Response struct {
	lines []string
}

func (r *Response) Reset() { r.lines = r.lines[:0] }

func (r *Response) Append(line string) { r.lines = append(r.lines, line) }

func (r *Response) Lines() []string { return r.lines }

func (r *Response) Len() int { return len(r.lines) }

// String 以换行拼接所有响应行
func (r *Response) String() string { return strings.Join(r.lines, "\n") }
