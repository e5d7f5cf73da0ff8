package intr

import (
	"sync"
	"testing"
)

func TestSectionRestoresOnPanic(t *testing.T) {
	t.Parallel()
	var m Mask

	func() {
		defer func() { _ = recover() }()
		m.Section(func() { panic("boom") })
	}()

	if m.masked.Load() {
		t.Fatal("mask still held after panicking section")
	}
	// A fresh section must still be able to enter.
	entered := false
	m.Section(func() { entered = true })
	if !entered {
		t.Fatal("section did not run after recovery")
	}
}

func TestSectionMutualExclusion(t *testing.T) {
	t.Parallel()
	var m Mask

	const (
		workers = 8
		perW    = 5_000
	)
	counter := 0

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perW; j++ {
				m.Section(func() { counter++ })
			}
		}()
	}
	wg.Wait()

	if got, want := counter, workers*perW; got != want {
		t.Fatalf("counter = %d, want %d", got, want)
	}
}

func TestRestoreKeepsMaskWhenPreviouslyMasked(t *testing.T) {
	t.Parallel()
	var m Mask

	prev := m.Enter()
	if !prev {
		t.Fatal("Enter() = false, want true for first acquisition")
	}
	// Restoring a "was already masked" observation must not release.
	m.Restore(false)
	if !m.masked.Load() {
		t.Fatal("Restore(false) released the mask")
	}
	m.Restore(prev)
	if m.masked.Load() {
		t.Fatal("Restore(true) did not release the mask")
	}
}
