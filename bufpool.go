package pymarshal

import "sync"

// writerPool reuses Writers across Marshal calls. This reduces GC pressure
// by avoiding a fresh buffer per encode; the encoded stream is copied out
// before the Writer goes back in the pool.
var writerPool = sync.Pool{
	New: func() any {
		// A 4KB default is chosen to cover common module-sized streams
		// without re-allocation.
		return NewWriterSize(4096)
	},
}

// pooledMaxCap is the largest buffer worth keeping. One huge encode must not
// pin its buffer in the pool forever.
const pooledMaxCap = 1 << 20

func acquireWriter() *Writer {
	return writerPool.Get().(*Writer)
}

func releaseWriter(w *Writer) {
	if cap(w.buf) > pooledMaxCap {
		return
	}
	w.Reset()
	writerPool.Put(w)
}
