package server

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/legamerdc/gsm"
	"github.com/legamerdc/gsm/client"
	"github.com/legamerdc/gsm/protocol"
)

// Server 为模组上的监听 socket
// 所有方法须在同一个 goroutine 中调用；URC 只在 Modem 的轮询调用链中到达，无需加锁
type Server struct {
	port   uint16
	synch  bool
	socket int // 监听 socket，未激活时为 gsm.NoSocket
	phase  phase
	resp   gsm.Response

	modem       gsm.Modem
	children    childTable
	newClient   ClientFactory
	stopTimeout time.Duration
	pollWait    time.Duration
	log         *log.Logger
}

// New 构造监听 port 的 Server 并注册为 m 的 URC 处理者
// 不再使用时调用 Close 注销
func New(m gsm.Modem, port uint16, opts ...Option) *Server {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	s := &Server{
		port:        port,
		synch:       o.synch,
		socket:      gsm.NoSocket,
		phase:       phaseIdle,
		modem:       m,
		children:    newChildTable(o.capacity),
		newClient:   o.newClient,
		stopTimeout: o.stopTimeout,
		pollWait:    o.pollWait,
		log:         o.logger,
	}
	if s.log == nil {
		s.log = log.Default().WithPrefix("server")
	}
	if s.newClient == nil {
		cl := s.log.WithPrefix("client")
		s.newClient = func(socket int, synch bool) Client {
			return client.New(m, socket, synch, client.WithLogger(cl))
		}
	}
	m.AddURCHandler(s)
	return s
}

// Close 注销 URC 处理，不关闭模组上的 socket（见 Stop）
func (s *Server) Close() {
	s.modem.RemoveURCHandler(s)
}

// Port 返回监听端口
func (s *Server) Port() uint16 { return s.port }

// Socket 返回监听 socket，未激活时为 gsm.NoSocket
func (s *Server) Socket() int { return s.socket }

// Active 表示监听 socket 已创建
func (s *Server) Active() bool { return s.socket != gsm.NoSocket }

// Children 返回当前跟踪的子 socket（按槽位顺序）
func (s *Server) Children() []int {
	out := make([]int, 0, len(s.children.slots))
	s.children.each(func(socket int) { out = append(out, socket) })
	return out
}

// Ready 推进一次状态机，每次调用最多发出一条命令
func (s *Server) Ready() Result {
	r := s.modem.Ready()
	if r == gsm.NotReady {
		return NotReady
	}

	from := s.phase
	tr := step(s.phase, r, s.resp.Lines())
	switch tr.act {
	case actSendCreate:
		s.resp.Reset()
		s.modem.SetResponseDataStorage(&s.resp)
		s.send(protocol.CreateTCPSocket())
	case actSendListen:
		s.send(protocol.Listen(s.socket, s.port))
	case actSendClose:
		s.send(protocol.CloseSocket(s.socket))
	case actSetSocket:
		s.socket = tr.socket
		s.log.Debug("socket created", "socket", s.socket)
	case actReleaseSocket:
		s.log.Debug("socket released", "socket", s.socket, "outcome", r)
		s.socket = gsm.NoSocket
	}
	s.phase = tr.next

	switch {
	case from == phaseWaitCreate && tr.next == phaseIdle:
		s.log.Warn("create socket failed", "outcome", r, "response", s.resp.String())
	case from == phaseWaitListen && tr.next == phaseIdle:
		s.log.Info("listening", "socket", s.socket, "port", s.port)
	case from == phaseWaitListen && tr.next == phaseCloseSocket:
		s.log.Warn("listen failed, closing socket", "socket", s.socket, "port", s.port, "outcome", r)
	}
	return tr.result
}

func (s *Server) send(cmd string) {
	s.log.Debug("send", "cmd", cmd)
	s.modem.Send(cmd)
}

// Begin 开始创建并监听 socket
// 同步模式下阻塞直到 Ready 返回 Terminal；异步模式下调用方需反复调用 Ready
func (s *Server) Begin() {
	if s.socket != gsm.NoSocket || s.phase != phaseIdle {
		s.log.Debug("begin ignored", "socket", s.socket, "phase", s.phase)
		return
	}
	s.phase = phaseCreateSocket
	if !s.synch {
		return
	}
	for {
		switch s.Ready() {
		case Terminal:
			return
		case NotReady:
			s.modem.WaitForResponse(s.pollWait)
		}
	}
}

// Stop 同步关闭监听 socket，最多等待 stopTimeout
// 不论结果如何都清空监听 socket 与子连接表
func (s *Server) Stop() {
	if s.socket == gsm.NoSocket {
		return
	}
	s.send(protocol.CloseSocket(s.socket))
	r := s.modem.WaitForResponse(s.stopTimeout)
	if r != gsm.OK {
		s.log.Warn("close socket", "socket", s.socket, "outcome", r)
	} else {
		s.log.Info("stopped", "socket", s.socket, "port", s.port)
	}
	s.socket = gsm.NoSocket
	s.phase = phaseIdle
	s.children.reset()
}

// Available 返回一个可服务的子连接
// 优先返回刚接入且未取过的连接，其次返回有数据可读的连接；都没有时返回空句柄
func (s *Server) Available(synch bool) Client {
	s.modem.Poll()

	socket := gsm.NoSocket
	if s.socket != gsm.NoSocket {
		if id, ok := s.children.takeAccepted(); ok {
			socket = id
		} else if id, ok := s.children.find(func(id int) bool {
			return s.newClient(id, true).Available() > 0
		}); ok {
			socket = id
		}
	}
	return s.newClient(socket, synch)
}

// Write 向所有子连接写入 p，返回各连接写入字节数之和
// 单个连接失败不影响其余连接
func (s *Server) Write(p []byte) int {
	if s.socket == gsm.NoSocket {
		return 0
	}
	written := 0
	s.children.each(func(socket int) {
		written += s.newClient(socket, true).Write(p)
	})
	return written
}

// WriteString 等价于 Write([]byte(str))
func (s *Server) WriteString(str string) int {
	return s.Write([]byte(str))
}

// HandleURC 处理 +UUSOLI（接入）与 +UUSOCL（关闭），其余忽略
func (s *Server) HandleURC(urc string) {
	switch {
	case protocol.IsAcceptURC(urc):
		id, ok := protocol.ParseAcceptURC(urc)
		if !ok || id == s.socket {
			s.log.Debug("ignore accept urc", "urc", urc)
			return
		}
		if !s.children.accept(id) {
			// 模组侧连接仍存在，但本 Server 无法再访问
			s.log.Warn("child table full, accept dropped", "socket", id, "capacity", len(s.children.slots))
			return
		}
		s.log.Debug("accepted", "socket", id)
	case protocol.IsCloseURC(urc):
		id, ok := protocol.ParseCloseURC(urc)
		if !ok {
			s.log.Debug("ignore close urc", "urc", urc)
			return
		}
		if s.children.release(id) {
			s.log.Debug("closed", "socket", id)
		}
	}
}
