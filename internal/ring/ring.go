package ring

import (
	"errors"
)

var ErrTooLarge = errors.New("ring: write too large")

// Buffer 是串口接收侧的环形字节缓冲。
// 由 modem 在轮询 goroutine 中独占使用，不加锁。

type Buffer struct {
	buf      []byte
	mask     int
	readPos  int
	writePos int
}

// New 返回容量为 2 的幂次的环形缓冲。若 cap 非 2 的幂则向上取整。
func New(capacity int) *Buffer {
	capPow2 := 1
	for capPow2 < capacity {
		capPow2 <<= 1
	}
	return &Buffer{buf: make([]byte, capPow2), mask: capPow2 - 1}
}

func (b *Buffer) Cap() int { return len(b.buf) }

func (b *Buffer) Len() int { return b.writePos - b.readPos }

func (b *Buffer) Free() int { return b.Cap() - b.Len() }

// Write 将数据写入环形缓冲；当数据长度超过剩余空间时返回错误。
func (b *Buffer) Write(p []byte) (int, error) {
	if len(p) > b.Free() {
		return 0, ErrTooLarge
	}
	n := len(p)
	start := b.writePos & b.mask
	end := start + n
	if end <= len(b.buf) {
		copy(b.buf[start:end], p)
	} else {
		l := len(b.buf) - start
		copy(b.buf[start:], p[:l])
		copy(b.buf[:end-l], p[l:])
	}
	b.writePos += n
	return n, nil
}

// IndexByte 返回 c 在未读数据中的偏移，不存在返回 -1。
func (b *Buffer) IndexByte(c byte) int {
	for i, n := 0, b.Len(); i < n; i++ {
		if b.buf[(b.readPos+i)&b.mask] == c {
			return i
		}
	}
	return -1
}

// Next 拷贝出前 n 字节并前进读指针。
func (b *Buffer) Next(n int) []byte {
	if n > b.Len() {
		n = b.Len()
	}
	if n <= 0 {
		return nil
	}
	out := make([]byte, n)
	start := b.readPos & b.mask
	l := copy(out, b.buf[start:])
	if l < n {
		copy(out[l:], b.buf[:n-l])
	}
	b.readPos += n
	return out
}

// Discard 前进读指针。
func (b *Buffer) Discard(n int) int {
	ln := b.Len()
	if n > ln {
		n = ln
	}
	b.readPos += n
	return n
}

// Reset 丢弃全部未读数据。
func (b *Buffer) Reset() { b.readPos, b.writePos = 0, 0 }
