// Package parallel provides the range-splitting helpers and the fixed worker
// pool used by the forest trainers.
package parallel

import (
	"runtime"
	"sync"
)

// Split divides [0, items) into at most parts contiguous ranges whose sizes
// differ by at most one. Earlier ranges receive the extra item. Empty ranges
// are never returned.
func Split(items, parts int) [][2]int {
	if items <= 0 || parts <= 0 {
		return nil
	}
	if parts > items {
		parts = items
	}

	ranges := make([][2]int, 0, parts)
	base, extra := items/parts, items%parts
	start := 0
	for p := 0; p < parts; p++ {
		size := base
		if p < extra {
			size++
		}
		ranges = append(ranges, [2]int{start, start + size})
		start += size
	}
	return ranges
}

// Parallelize divides items into one range per CPU core and executes fn in
// parallel for each range (start, end).
func Parallelize(items int, fn func(start, end int)) {
	if items == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, r := range Split(items, runtime.NumCPU()) {
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(r[0], r[1])
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn sequentially over the whole range when
// items does not exceed threshold, and through Parallelize otherwise.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}
