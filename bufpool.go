package mbuf

import "sync"

// ChunkSize is the staging size ReadFrom uses once a buffer's spare capacity is used up.
// 32KB is a common default size used by io.Copy.
const ChunkSize = 32 * 1024

// chunkPool is shared by every Buffer, unlike Pool which has a single owner.
var chunkPool = sync.Pool{
	New: func() any {
		b := make([]byte, ChunkSize)
		return &b
	},
}
