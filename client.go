package elodin

import (
	"sync"
)

// Client is the compute target a world runs on. It decides how the
// independent row evaluations of a tick are scheduled. Rows never read each
// other's output, so every client produces bit-identical results; Pool only
// changes wall-clock time.
type Client struct {
	workers int
}

// CPU returns the sequential compute target. It is the reference behavior.
func CPU() *Client { return &Client{workers: 1} }

// Pool returns a compute target that fans row evaluations out over n
// goroutines. n < 1 falls back to sequential.
func Pool(n int) *Client {
	if n < 1 {
		n = 1
	}
	return &Client{workers: n}
}

// Run executes fn for every row index in [0, n). With one worker rows run
// in ascending order; with more, contiguous chunks run concurrently. Each
// row writes only its own output slot.
func (c *Client) Run(n int, fn func(i int)) {
	if c.workers <= 1 || n <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	workers := c.workers
	if workers > n {
		workers = n
	}
	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				fn(i)
			}
		}(start, end)
	}
	wg.Wait()
}
