package common

import (
	"bytes"
	"sync"
)

// BufferPool reuses byte buffers for encoding images and rendering reports
type BufferPool struct {
	pool sync.Pool
}

// NewBufferPool creates a pool whose buffers start with initialCapacity bytes
func NewBufferPool(initialCapacity int) *BufferPool {
	return &BufferPool{
		pool: sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, initialCapacity))
			},
		},
	}
}

// Get retrieves an empty buffer from the pool
func (bp *BufferPool) Get() *bytes.Buffer {
	return bp.pool.Get().(*bytes.Buffer)
}

// Put returns a buffer to the pool after resetting it. Buffers that grew past
// maxPooledBufferSize are dropped so one huge screenshot does not pin memory.
func (bp *BufferPool) Put(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > maxPooledBufferSize {
		return
	}
	buf.Reset()
	bp.pool.Put(buf)
}

const maxPooledBufferSize = 16 << 20

// DefaultBufferPool holds 256KB buffers, enough for most element screenshots
var DefaultBufferPool = NewBufferPool(256 * 1024)
