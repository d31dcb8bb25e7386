package templating

import (
	"bytes"
	"sync"
)

// Render buffer tiers, sized by the operation count of the toolset.
const (
	smallBufferSize  = 16 * 1024 // <10 ops
	mediumBufferSize = 64 * 1024 // 10-50 ops
	largeBufferSize  = 256 * 1024
)

var bufferPools = [3]sync.Pool{
	{New: func() any { return bytes.NewBuffer(make([]byte, 0, smallBufferSize)) }},
	{New: func() any { return bytes.NewBuffer(make([]byte, 0, mediumBufferSize)) }},
	{New: func() any { return bytes.NewBuffer(make([]byte, 0, largeBufferSize)) }},
}

func poolTier(opCount int) int {
	switch {
	case opCount < 10:
		return 0
	case opCount < 50:
		return 1
	default:
		return 2
	}
}

// getRenderBuffer returns an empty buffer sized for opCount operations.
func getRenderBuffer(opCount int) *bytes.Buffer {
	buf := bufferPools[poolTier(opCount)].Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// putRenderBuffer returns buf to its pool. Oversized buffers are dropped.
func putRenderBuffer(buf *bytes.Buffer, opCount int) {
	if buf == nil || buf.Cap() > 4<<20 {
		return
	}
	bufferPools[poolTier(opCount)].Put(buf)
}
