package trace

import (
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var encoderPool = sync.Pool{New: func() any {
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest), zstd.WithEncoderConcurrency(1))
	return enc
}}

func getEncoder(w io.Writer) *zstd.Encoder {
	enc := encoderPool.Get().(*zstd.Encoder)
	enc.Reset(w)
	return enc
}

func putEncoder(e *zstd.Encoder) { encoderPool.Put(e) }
