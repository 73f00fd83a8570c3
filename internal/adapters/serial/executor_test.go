package serial

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExecutor_OrderAndDrainOnClose(t *testing.T) {
	e := New()
	var got []int
	for i := 0; i < 1000; i++ {
		i := i
		assert.True(t, e.Submit(func() { got = append(got, i) }))
	}
	e.Close()
	assert.False(t, e.Submit(func() {}))

	select {
	case <-e.Done():
	case <-time.After(time.Second):
		t.Fatal("executor did not finish")
	}
	assert.Len(t, got, 1000)
	for i, v := range got {
		if v != i {
			t.Fatalf("out of order at %d: %d", i, v)
		}
	}
}

func TestExecutor_SubmitDoesNotBlock(t *testing.T) {
	e := New()
	defer e.Close()
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	e.Submit(func() {
		defer wg.Done()
		<-release
	})

	submitted := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			e.Submit(func() {})
		}
		close(submitted)
	}()
	select {
	case <-submitted:
	case <-time.After(time.Second):
		t.Fatal("submit blocked behind a running closure")
	}
	close(release)
	wg.Wait()
}
