package common

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferPool_ReturnsResetBuffers(t *testing.T) {
	pool := NewBufferPool(16)

	buf := pool.Get()
	buf.WriteString("leftover")
	pool.Put(buf)

	again := pool.Get()
	assert.Equal(t, 0, again.Len())
}

func TestBufferPool_DropsOversizedBuffers(t *testing.T) {
	pool := NewBufferPool(16)
	big := bytes.NewBuffer(make([]byte, 0, maxPooledBufferSize+1))

	pool.Put(big)
	pool.Put(nil)

	assert.LessOrEqual(t, pool.Get().Cap(), maxPooledBufferSize)
}
