package layout

// buffers holds the scratch slices of one power evaluation.
type buffers struct {
	xs        []float64
	ys        []float64
	projected []float64
	endpoints []float64
}

// bufferPool provides reusable evaluation buffers to reduce allocations in
// the gradient loop, which evaluates the mean power 2n+1 times per step.
type bufferPool struct {
	free []*buffers
}

// newBufferPool creates an empty bufferPool.
func newBufferPool() *bufferPool {
	return &bufferPool{free: make([]*buffers, 0, 4)}
}

// get returns buffers sized for n turbines, reusing a pooled set if one is
// available.
func (p *bufferPool) get(n int) *buffers {
	var b *buffers
	if len(p.free) > 0 {
		b = p.free[len(p.free)-1]
		p.free = p.free[:len(p.free)-1]
	} else {
		b = &buffers{}
	}
	b.xs = resize(b.xs, n)
	b.ys = resize(b.ys, n)
	b.projected = resize(b.projected, n)
	b.endpoints = resize(b.endpoints, 2*n)[:0]
	return b
}

// put returns b to the pool.
func (p *bufferPool) put(b *buffers) {
	p.free = append(p.free, b)
}

func resize(s []float64, n int) []float64 {
	if cap(s) < n {
		return make([]float64, n)
	}
	return s[:n]
}
