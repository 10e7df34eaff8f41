package server

import (
	"github.com/legamerdc/gsm"
	"github.com/legamerdc/gsm/protocol"
)

// phase 为监听 socket 生命周期状态
type phase int

const (
	phaseIdle phase = iota
	phaseCreateSocket
	phaseWaitCreate
	phaseListen
	phaseWaitListen
	phaseCloseSocket
	phaseWaitClose
)

func (p phase) String() string {
	switch p {
	case phaseIdle:
		return "idle"
	case phaseCreateSocket:
		return "create-socket"
	case phaseWaitCreate:
		return "wait-create"
	case phaseListen:
		return "listen"
	case phaseWaitListen:
		return "wait-listen"
	case phaseCloseSocket:
		return "close-socket"
	case phaseWaitClose:
		return "wait-close"
	default:
		return "unknown"
	}
}

// Result 为 Ready 的三态返回
type Result int

const (
	NotReady  Result = iota // 传输层忙，本次未推进
	Advancing               // 状态已推进，尚未结束
	Terminal                // 已回到 idle：监听成功或本次尝试放弃
)

func (r Result) String() string {
	switch r {
	case NotReady:
		return "not-ready"
	case Advancing:
		return "advancing"
	case Terminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// action 为一次迁移需要执行的副作用
type action int

const (
	actNone action = iota
	actSendCreate
	actSendListen
	actSendClose
	actSetSocket     // 记录新建的 socket
	actReleaseSocket // 清空 socket
)

type transition struct {
	next   phase
	act    action
	result Result
	socket int // 仅 actSetSocket 有效
}

// step 为纯迁移函数：(phase, 传输层状态, 响应行) -> 迁移
// 调用方保证 r != gsm.NotReady
func step(p phase, r gsm.Readiness, lines []string) transition {
	switch p {
	case phaseCreateSocket:
		return transition{next: phaseWaitCreate, act: actSendCreate, result: Advancing}

	case phaseWaitCreate:
		if r != gsm.OK || len(lines) != 1 {
			return transition{next: phaseIdle, result: Terminal}
		}
		id, ok := protocol.ParseCreated(lines[0])
		if !ok {
			return transition{next: phaseIdle, result: Terminal}
		}
		return transition{next: phaseListen, act: actSetSocket, result: Advancing, socket: id}

	case phaseListen:
		return transition{next: phaseWaitListen, act: actSendListen, result: Advancing}

	case phaseWaitListen:
		if r.Failed() {
			// 已创建但无法监听，需要释放
			return transition{next: phaseCloseSocket, result: Advancing}
		}
		return transition{next: phaseIdle, result: Terminal}

	case phaseCloseSocket:
		return transition{next: phaseWaitClose, act: actSendClose, result: Advancing}

	case phaseWaitClose:
		// 不论关闭结果如何都清理
		return transition{next: phaseIdle, act: actReleaseSocket, result: Terminal}

	default:
		return transition{next: phaseIdle, result: Terminal}
	}
}
