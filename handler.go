package gsm

// URCHandler 接收模组主动上报（URC）的回调接口
// 只会在 Modem.Poll/Ready/WaitForResponse 调用链中被调用，要求无阻塞返回
// 实现需可比较（按指针注册/注销）
type URCHandler interface {
	HandleURC(urc string)
}
