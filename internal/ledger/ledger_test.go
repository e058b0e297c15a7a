package ledger

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdmitOnce(t *testing.T) {
	l := New()

	assert.True(t, l.Admit("a"))
	assert.False(t, l.Admit("a"))
	assert.False(t, l.Admit("a"))
	assert.True(t, l.Admit("b"))
	assert.Equal(t, 2, l.Len())
	assert.True(t, l.Seen("a"))
	assert.False(t, l.Seen("c"))
}

func TestAdmitConcurrent(t *testing.T) {
	l := New()
	var admitted int64
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if l.Admit(fmt.Sprintf("id-%d", j)) {
					atomic.AddInt64(&admitted, 1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(10), admitted)
}
