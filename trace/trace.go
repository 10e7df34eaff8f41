// Package trace 以 zstd 压缩流记录 AT 会话，便于事后排查模组行为。
//
// 每条记录一行：<unix 纳秒> <方向> <内容>
package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Direction 为记录方向
type Direction byte

const (
	Tx  Direction = '>' // 发往模组的命令
	Rx  Direction = '<' // 命令响应与结果码
	URC Direction = '!' // 主动上报
)

func (d Direction) String() string {
	switch d {
	case Tx:
		return "tx"
	case Rx:
		return "rx"
	case URC:
		return "urc"
	default:
		return "unknown"
	}
}

// Entry 为一条会话记录
type Entry struct {
	Time time.Time
	Dir  Direction
	Line string
}

func (e Entry) String() string {
	return e.Time.Format("15:04:05.000000") + " " + e.Dir.String() + " " + e.Line
}

var errBadEntry = errors.New("trace: malformed entry")

// Recorder 写入压缩会话
type Recorder struct {
	enc *zstd.Encoder
	bw  *bufio.Writer
	now func() time.Time
	err error
}

// NewRecorder 返回写入 w 的 Recorder，调用方负责在 Close 后关闭 w
func NewRecorder(w io.Writer) *Recorder {
	enc := getEncoder(w)
	return &Recorder{enc: enc, bw: bufio.NewWriter(enc), now: time.Now}
}

// Record 追加一条记录；首次失败后的记录均被忽略并返回同一错误
func (r *Recorder) Record(dir Direction, line string) error {
	if r.err != nil {
		return r.err
	}
	if r.enc == nil {
		return io.ErrClosedPipe
	}
	var b [24]byte
	buf := strconv.AppendInt(b[:0], r.now().UnixNano(), 10)
	buf = append(buf, ' ', byte(dir), ' ')
	if _, err := r.bw.Write(buf); err != nil {
		r.err = err
		return err
	}
	if _, err := r.bw.WriteString(strings.ReplaceAll(line, "\n", " ")); err != nil {
		r.err = err
		return err
	}
	if err := r.bw.WriteByte('\n'); err != nil {
		r.err = err
	}
	return r.err
}

// Flush 将已记录内容压缩输出
func (r *Recorder) Flush() error {
	if r.err != nil {
		return r.err
	}
	if r.enc == nil {
		return io.ErrClosedPipe
	}
	if err := r.bw.Flush(); err != nil {
		return err
	}
	return r.enc.Flush()
}

// Close 结束压缩流
func (r *Recorder) Close() error {
	if r.enc == nil {
		return nil
	}
	ferr := r.bw.Flush()
	cerr := r.enc.Close()
	putEncoder(r.enc)
	r.enc = nil
	if r.err == nil {
		r.err = errors.Join(ferr, cerr)
	}
	return r.err
}

// Reader 逐条读取会话
type Reader struct {
	dec *zstd.Decoder
	sc  *bufio.Scanner
}

func NewReader(r io.Reader) (*Reader, error) {
	dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("trace: open: %w", err)
	}
	return &Reader{dec: dec, sc: bufio.NewScanner(dec)}, nil
}

// Next 返回下一条记录，结束时返回 io.EOF
func (r *Reader) Next() (Entry, error) {
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return Entry{}, fmt.Errorf("trace: read: %w", err)
		}
		return Entry{}, io.EOF
	}
	return parseEntry(r.sc.Text())
}

func (r *Reader) Close() { r.dec.Close() }

func parseEntry(s string) (Entry, error) {
	ts, rest, ok := strings.Cut(s, " ")
	if !ok || len(rest) < 2 || rest[1] != ' ' {
		return Entry{}, errBadEntry
	}
	ns, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return Entry{}, errBadEntry
	}
	dir := Direction(rest[0])
	switch dir {
	case Tx, Rx, URC:
	default:
		return Entry{}, errBadEntry
	}
	return Entry{Time: time.Unix(0, ns), Dir: dir, Line: rest[2:]}, nil
}
