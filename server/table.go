package server

import "github.com/legamerdc/gsm"

// child 为子连接槽位
type child struct {
	socket   int
	accepted bool // 刚接入，尚未经 Available 交给调用方
}

// childTable 为定长子连接表，按槽位下标顺序线性扫描
// 容量在构造时确定，满时丢弃新的接入
type childTable struct {
	slots []child
}

func newChildTable(capacity int) childTable {
	t := childTable{slots: make([]child, capacity)}
	for i := range t.slots {
		t.slots[i].socket = gsm.NoSocket
	}
	return t
}

// accept 登记新接入的子 socket，表满返回 false
// 同一 socket 已在表中（丢失了关闭上报）时仅重新标记为待取
func (t *childTable) accept(socket int) bool {
	free := -1
	for i := range t.slots {
		s := &t.slots[i]
		if s.socket == socket {
			s.accepted = true
			return true
		}
		if free < 0 && s.socket == gsm.NoSocket {
			free = i
		}
	}
	if free < 0 {
		return false
	}
	t.slots[free] = child{socket: socket, accepted: true}
	return true
}

// release 释放匹配的槽位，未找到返回 false
func (t *childTable) release(socket int) bool {
	if socket == gsm.NoSocket {
		return false
	}
	for i := range t.slots {
		if t.slots[i].socket == socket {
			t.slots[i] = child{socket: gsm.NoSocket}
			return true
		}
	}
	return false
}

// takeAccepted 取出第一个待取的子 socket 并清除其标记
func (t *childTable) takeAccepted() (int, bool) {
	for i := range t.slots {
		s := &t.slots[i]
		if s.socket != gsm.NoSocket && s.accepted {
			s.accepted = false
			return s.socket, true
		}
	}
	return gsm.NoSocket, false
}

// find 返回第一个满足 fn 的已占用槽位
func (t *childTable) find(fn func(socket int) bool) (int, bool) {
	for i := range t.slots {
		if s := t.slots[i].socket; s != gsm.NoSocket && fn(s) {
			return s, true
		}
	}
	return gsm.NoSocket, false
}

// each 依次遍历已占用槽位
func (t *childTable) each(fn func(socket int)) {
	for i := range t.slots {
		if s := t.slots[i].socket; s != gsm.NoSocket {
			fn(s)
		}
	}
}

func (t *childTable) len() int {
	n := 0
	t.each(func(int) { n++ })
	return n
}

func (t *childTable) reset() {
	for i := range t.slots {
		t.slots[i] = child{socket: gsm.NoSocket}
	}
}
