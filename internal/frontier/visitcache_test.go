package frontier_test

import (
	"sync"
	"testing"

	"github.com/arifwn/linkguard/internal/frontier"
	"github.com/stretchr/testify/assert"
)

func TestVisitCacheTryAddIsFirstWriterWins(t *testing.T) {
	vc := frontier.NewVisitCache()
	assert.True(t, vc.TryAdd("http://h/a"))
	assert.False(t, vc.TryAdd("http://h/a"))
	assert.True(t, vc.Contains("http://h/a"))
	assert.Equal(t, 1, vc.Size())
}

func TestVisitCacheTryAddConcurrentOnlyOneWinner(t *testing.T) {
	vc := frontier.NewVisitCache()
	const n = 64
	var wg sync.WaitGroup
	wins := make([]bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			wins[i] = vc.TryAdd("http://h/same")
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, w := range wins {
		if w {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "exactly one caller should win the compare-and-insert")
	assert.Equal(t, 1, vc.Size())
}
