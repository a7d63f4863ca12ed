package fn

import "sync"

// FanOutResult runs the functions concurrently and collects their results in
// argument order, failing with the first error. Advisors use this for their
// independent data-accessor reads: all reads must complete before a
// computation starts, partial inputs are never valid.
func FanOutResult[T any](fns ...func() Result[T]) Result[[]T] {
	results := make([]Result[T], len(fns))
	var wg sync.WaitGroup
	wg.Add(len(fns))
	for i, f := range fns {
		go func(i int, f func() Result[T]) {
			defer wg.Done()
			results[i] = f()
		}(i, f)
	}
	wg.Wait()
	return Collect(results)
}
