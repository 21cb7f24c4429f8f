// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
)

func TestWorkerPool_Create(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}
	if !pool.IsRunning() {
		t.Error("pool should be running after creation")
	}
}

func TestWorkerPool_CreateDefaultWorkers(t *testing.T) {
	for _, n := range []int{0, -5} {
		pool := NewWorkerPool(n)
		if got, want := pool.Workers(), runtime.GOMAXPROCS(0); got != want {
			t.Errorf("NewWorkerPool(%d).Workers() = %d, want %d", n, got, want)
		}
		pool.Close()
	}
}

func TestWorkerPool_ExecuteAll(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var counter atomic.Int64
	const numTasks = 100

	work := make([]func(), numTasks)
	for i := range work {
		work[i] = func() { counter.Add(1) }
	}

	if !pool.ExecuteAll(work) {
		t.Fatal("ExecuteAll() = false on running pool")
	}
	if counter.Load() != numTasks {
		t.Errorf("counter = %d, want %d", counter.Load(), numTasks)
	}
}

func TestWorkerPool_ExecuteAllEveryIndex(t *testing.T) {
	pool := NewWorkerPool(3)
	defer pool.Close()

	var mu sync.Mutex
	seen := make(map[int]bool)

	work := make([]func(), 10)
	for i := range work {
		work[i] = func() {
			mu.Lock()
			seen[i] = true
			mu.Unlock()
		}
	}
	pool.ExecuteAll(work)

	for i := range 10 {
		if !seen[i] {
			t.Errorf("missing index %d", i)
		}
	}
}

func TestWorkerPool_ExecuteAllEmpty(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	if !pool.ExecuteAll(nil) {
		t.Error("ExecuteAll(nil) = false, want true")
	}
}

func TestWorkerPool_CloseIdempotent(t *testing.T) {
	pool := NewWorkerPool(4)
	pool.Close()
	pool.Close()

	if pool.IsRunning() {
		t.Error("pool should not be running after close")
	}
}

func TestWorkerPool_ExecuteAfterClose(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()

	var executed atomic.Bool
	if pool.ExecuteAll([]func(){func() { executed.Store(true) }}) {
		t.Error("ExecuteAll() = true on closed pool")
	}
	if executed.Load() {
		t.Error("work was executed on closed pool")
	}
}

func TestWorkerPool_Concurrent(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var counter atomic.Int64
	const callers, perCaller = 8, 25

	var wg sync.WaitGroup
	wg.Add(callers)
	for range callers {
		go func() {
			defer wg.Done()
			work := make([]func(), perCaller)
			for i := range work {
				work[i] = func() { counter.Add(1) }
			}
			pool.ExecuteAll(work)
		}()
	}
	wg.Wait()

	if got := counter.Load(); got != callers*perCaller {
		t.Errorf("counter = %d, want %d", got, callers*perCaller)
	}
}

func TestBands(t *testing.T) {
	tests := []struct {
		rows, n int
		want    []Band
	}{
		{0, 4, nil},
		{1, 4, []Band{{0, 1}}},
		{4, 2, []Band{{0, 2}, {2, 4}}},
		{5, 2, []Band{{0, 3}, {3, 5}}},
		{10, 3, []Band{{0, 4}, {4, 7}, {7, 10}}},
		{3, 0, []Band{{0, 3}}},
	}
	for _, tt := range tests {
		got := Bands(tt.rows, tt.n)
		if len(got) != len(tt.want) {
			t.Errorf("Bands(%d, %d) = %v, want %v", tt.rows, tt.n, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Bands(%d, %d)[%d] = %v, want %v", tt.rows, tt.n, i, got[i], tt.want[i])
			}
		}
	}
}

func TestBandsCoverEveryRow(t *testing.T) {
	for rows := 1; rows <= 64; rows++ {
		for n := 1; n <= 9; n++ {
			total := 0
			next := 0
			for _, b := range Bands(rows, n) {
				if b.Y0 != next {
					t.Fatalf("Bands(%d, %d): gap at row %d", rows, n, next)
				}
				if b.Rows() <= 0 {
					t.Fatalf("Bands(%d, %d): empty band %v", rows, n, b)
				}
				total += b.Rows()
				next = b.Y1
			}
			if total != rows {
				t.Fatalf("Bands(%d, %d) covers %d rows", rows, n, total)
			}
		}
	}
}
