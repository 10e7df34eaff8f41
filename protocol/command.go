package protocol

import (
	"encoding/hex"
	"strconv"
	"strings"
)

// u-blox 套接字命令
// 参考 SARA-U2 / SARA-R4 AT 手册 USOCR/USOLI/USOCL/USOWR/USORD 章节

const (
	ProtoTCP = 6

	// MaxWriteChunk 为 hex 模式下单条 USOWR 的负载上限（按原始字节计）
	MaxWriteChunk = 256
	// MaxReadChunk 为 hex 模式下单条 USORD 的读取上限
	MaxReadChunk = 512
)

// CreateSocket 返回 AT+USOCR=<proto>
func CreateSocket(proto int) string {
	return "AT+USOCR=" + strconv.Itoa(proto)
}

// CreateTCPSocket 返回 AT+USOCR=6
func CreateTCPSocket() string { return CreateSocket(ProtoTCP) }

// Listen 返回 AT+USOLI=<socket>,<port>
func Listen(socket int, port uint16) string {
	var b strings.Builder
	b.Grow(16)
	b.WriteString("AT+USOLI=")
	b.WriteString(strconv.Itoa(socket))
	b.WriteByte(',')
	b.WriteString(strconv.FormatUint(uint64(port), 10))
	return b.String()
}

// CloseSocket 返回 AT+USOCL=<socket>
func CloseSocket(socket int) string {
	return "AT+USOCL=" + strconv.Itoa(socket)
}

// Write 返回 hex 模式的 AT+USOWR=<socket>,<len>,"<HEX>"
// 调用方负责按 MaxWriteChunk 分片
func Write(socket int, data []byte) string {
	var b strings.Builder
	b.Grow(24 + 2*len(data))
	b.WriteString("AT+USOWR=")
	b.WriteString(strconv.Itoa(socket))
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(len(data)))
	b.WriteString(",\"")
	b.WriteString(strings.ToUpper(hex.EncodeToString(data)))
	b.WriteByte('"')
	return b.String()
}

// Read 返回 AT+USORD=<socket>,<len>；len=0 时仅查询待读字节数
func Read(socket, n int) string {
	return "AT+USORD=" + strconv.Itoa(socket) + "," + strconv.Itoa(n)
}

// Init 为打开套接字前的最小初始化序列
// ATE0 关闭回显，CMEE=2 输出详细错误，UDCONF=1,1 开启 hex 套接字模式
func Init() []string {
	return []string{"AT", "ATE0", "AT+CMEE=2", "AT+UDCONF=1,1"}
}
