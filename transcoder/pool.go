package transcoder

import "sync"

const (
	// Pool limits to prevent memory bloat
	poolMaxScratch  = 64 * 1024
	poolInitScratch = 64
)

// scratch buffer pool for inline array and record images
var scratchPool = sync.Pool{
	New: func() any {
		buf := make([]byte, 0, poolInitScratch)
		return &buf
	},
}

func getScratch() *[]byte {
	return scratchPool.Get().(*[]byte)
}

func putScratch(buf *[]byte) {
	if buf == nil || cap(*buf) > poolMaxScratch {
		return // reject oversized
	}
	*buf = (*buf)[:0]
	scratchPool.Put(buf)
}
