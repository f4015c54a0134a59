package kitchen

import "sync"

const stripeCount = 64

// stripes serializes work on one key without a global lock. Keys that share
// a stripe also serialize, which only costs throughput.
type stripes [stripeCount]sync.Mutex

func (s *stripes) lock(key int64) func() {
	m := &s[uint64(key)%stripeCount]
	m.Lock()
	return m.Unlock
}
