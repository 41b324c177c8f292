package util

import "sync"

// ReadBufSize is the per-read chunk a session handler pulls off its
// socket.
const ReadBufSize = 1024

// BufPool provides reusable read buffers for session handlers so a
// burst of short-lived sessions does not churn the allocator.
var BufPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, ReadBufSize)
		return &buf
	},
}

// GetBuf retrieves a buffer from the pool.  Callers must return it
// with [PutBuf] when finished.
func GetBuf() *[]byte {
	return BufPool.Get().(*[]byte)
}

// PutBuf returns a buffer to the pool for reuse.
func PutBuf(buf *[]byte) {
	if buf == nil {
		return
	}
	BufPool.Put(buf)
}
