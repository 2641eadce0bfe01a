package moderation

import (
	"sync"
	"sync/atomic"
)

// Classifier input shape: square RGB, alpha stripped.
const (
	InputSize = 224
	Channels  = 3

	// TensorLen is the exact byte length of a normalized image buffer.
	TensorLen = InputSize * InputSize * Channels
)

// Tensor is one normalized pixel buffer on loan from a BufferPool. It must
// be released after use on every exit path; the buffers are a bounded,
// reusable resource and leaking them degrades the process over time.
type Tensor struct {
	Pix  []byte
	pool *BufferPool
}

// Release returns the buffer to its pool. Safe to call exactly once per
// Acquire, typically via defer.
func (t *Tensor) Release() {
	if t.pool != nil {
		pool := t.pool
		t.pool = nil
		pool.put(t)
	}
}

// BufferPool recycles classifier input buffers across submissions.
type BufferPool struct {
	pool  sync.Pool
	inUse atomic.Int64
}

// NewBufferPool returns a pool handing out TensorLen-sized buffers.
func NewBufferPool() *BufferPool {
	p := &BufferPool{}
	p.pool.New = func() any {
		return &Tensor{Pix: make([]byte, TensorLen)}
	}
	return p
}

// Acquire loans out a buffer. Pair with Tensor.Release.
func (p *BufferPool) Acquire() *Tensor {
	t := p.pool.Get().(*Tensor)
	t.Pix = t.Pix[:TensorLen]
	t.pool = p
	p.inUse.Add(1)
	return t
}

func (p *BufferPool) put(t *Tensor) {
	p.inUse.Add(-1)
	p.pool.Put(t)
}

// InUse reports how many buffers are currently on loan.
func (p *BufferPool) InUse() int {
	return int(p.inUse.Load())
}
