// Package mempool recycles the large float32 buffers used for detector input
// blobs so that scanning many panels does not allocate one per image.
package mempool

import "sync"

const classStep = 64 * 1024

// Float32Pool hands out []float32 buffers bucketed by size class.
type Float32Pool struct {
	classes sync.Map // size class (int) -> *sync.Pool
}

// sizeClass rounds n up to the next multiple of classStep.
func sizeClass(n int) int {
	if n <= classStep {
		return classStep
	}
	return (n + classStep - 1) / classStep * classStep
}

func (p *Float32Pool) poolFor(cls int) *sync.Pool {
	if sp, ok := p.classes.Load(cls); ok {
		return sp.(*sync.Pool)
	}
	sp, _ := p.classes.LoadOrStore(cls, &sync.Pool{New: func() any {
		buf := make([]float32, cls)
		return &buf
	}})
	return sp.(*sync.Pool)
}

// Get returns a buffer of length n. Contents are unspecified.
func (p *Float32Pool) Get(n int) []float32 {
	if n <= 0 {
		return nil
	}
	cls := sizeClass(n)
	bp := p.poolFor(cls).Get().(*[]float32)
	buf := *bp
	if cap(buf) < n {
		buf = make([]float32, cls)
	}
	return buf[:n]
}

// Put returns a buffer obtained from Get. nil is ignored.
func (p *Float32Pool) Put(buf []float32) {
	if buf == nil {
		return
	}
	full := buf[:cap(buf)]
	p.poolFor(sizeClass(cap(full))).Put(&full)
}

var shared Float32Pool

// GetFloat32 takes a buffer of length n from the shared pool.
func GetFloat32(n int) []float32 { return shared.Get(n) }

// PutFloat32 returns a buffer to the shared pool.
func PutFloat32(buf []float32) { shared.Put(buf) }
