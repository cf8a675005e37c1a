package inbox

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViewKeepsNewest(t *testing.T) {
	var v View[string]

	assert.True(t, v.Publish(2, "second"))
	assert.False(t, v.Publish(1, "first"))
	assert.False(t, v.Publish(2, "again"))

	value, seq := v.Load()
	assert.Equal(t, "second", value)
	assert.Equal(t, uint64(2), seq)
}

func TestViewConcurrentPublish(t *testing.T) {
	var v View[uint64]
	var wg sync.WaitGroup
	for i := uint64(1); i <= 100; i++ {
		wg.Add(1)
		go func(seq uint64) {
			defer wg.Done()
			v.Publish(seq, seq)
		}(i)
	}
	wg.Wait()

	value, seq := v.Load()
	assert.Equal(t, uint64(100), seq)
	assert.Equal(t, uint64(100), value)
}
