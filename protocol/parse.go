package protocol

import (
	"encoding/hex"
	"errors"
	"strconv"
	"strings"

	"github.com/legamerdc/gsm"
)

const (
	prefixCreated = "+USOCR: "
	prefixWritten = "+USOWR: "
	prefixRead    = "+USORD: "
	prefixAccept  = "+UUSOLI: "
	prefixClose   = "+UUSOCL: "
	prefixURC     = "+UU"
)

var errMalformed = errors.New("protocol: malformed response")

// Final 判断是否为最终结果码，并返回对应的 Readiness
func Final(line string) (gsm.Readiness, bool) {
	switch {
	case line == "OK":
		return gsm.OK, true
	case line == "ERROR",
		strings.HasPrefix(line, "+CME ERROR"),
		strings.HasPrefix(line, "+CMS ERROR"):
		return gsm.Error, true
	case line == "NO CARRIER":
		return gsm.NoCarrier, true
	}
	return gsm.NotReady, false
}

// IsURC 判断是否为 u-blox 主动上报（+UU 前缀）
func IsURC(line string) bool { return strings.HasPrefix(line, prefixURC) }

// IsAcceptURC 判断是否为 +UUSOLI
func IsAcceptURC(urc string) bool { return strings.HasPrefix(urc, prefixAccept) }

// IsCloseURC 判断是否为 +UUSOCL
func IsCloseURC(urc string) bool { return strings.HasPrefix(urc, prefixClose) }

// ParseCreated 解析 "+USOCR: <socket>"
func ParseCreated(line string) (int, bool) {
	rest, ok := strings.CutPrefix(line, prefixCreated)
	if !ok {
		return gsm.NoSocket, false
	}
	return parseSocket(rest)
}

// ParseAcceptURC 解析 "+UUSOLI: <socket>,<ip>,<port>,<listening socket>,<local ip>,<listening port>"
// 只取第一个字段（新接入的子 socket）
func ParseAcceptURC(urc string) (int, bool) {
	rest, ok := strings.CutPrefix(urc, prefixAccept)
	if !ok {
		return gsm.NoSocket, false
	}
	first, _, _ := strings.Cut(rest, ",")
	return parseSocket(first)
}

// ParseCloseURC 解析 "+UUSOCL: <socket>"，取最后一个字段
func ParseCloseURC(urc string) (int, bool) {
	rest, ok := strings.CutPrefix(urc, prefixClose)
	if !ok {
		return gsm.NoSocket, false
	}
	if i := strings.LastIndexByte(rest, ','); i >= 0 {
		rest = rest[i+1:]
	}
	return parseSocket(rest)
}

// ParseWritten 解析 "+USOWR: <socket>,<length>"
func ParseWritten(line string) (socket, n int, err error) {
	rest, ok := strings.CutPrefix(line, prefixWritten)
	if !ok {
		return gsm.NoSocket, 0, errMalformed
	}
	fields := strings.Split(rest, ",")
	if len(fields) != 2 {
		return gsm.NoSocket, 0, errMalformed
	}
	return parseSocketLen(fields[0], fields[1])
}

// ParseRead 解析 "+USORD: <socket>,<length>[,"<HEX>"]"
// 无数据字段时为查询模式，data 为 nil
func ParseRead(line string) (socket, n int, data []byte, err error) {
	rest, ok := strings.CutPrefix(line, prefixRead)
	if !ok {
		return gsm.NoSocket, 0, nil, errMalformed
	}
	fields := strings.SplitN(rest, ",", 3)
	if len(fields) < 2 {
		return gsm.NoSocket, 0, nil, errMalformed
	}
	socket, n, err = parseSocketLen(fields[0], fields[1])
	if err != nil {
		return gsm.NoSocket, 0, nil, err
	}
	if len(fields) == 2 {
		return socket, n, nil, nil
	}
	payload := strings.Trim(strings.TrimSpace(fields[2]), "\"")
	data, err = hex.DecodeString(payload)
	if err != nil {
		return gsm.NoSocket, 0, nil, errMalformed
	}
	if len(data) != n {
		return gsm.NoSocket, 0, nil, errMalformed
	}
	return socket, n, data, nil
}

func parseSocket(s string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 0 {
		return gsm.NoSocket, false
	}
	return v, true
}

func parseSocketLen(s, l string) (int, int, error) {
	socket, ok := parseSocket(s)
	if !ok {
		return gsm.NoSocket, 0, errMalformed
	}
	n, err := strconv.Atoi(strings.TrimSpace(l))
	if err != nil || n < 0 {
		return gsm.NoSocket, 0, errMalformed
	}
	return socket, n, nil
}
