package common

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyMutex_Serializes_Same_Key(t *testing.T) {
	var km KeyMutex[int]
	counter := 0

	wg := sync.WaitGroup{}
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := km.Lock(1)
			counter++
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
	assert.Zero(t, km.Len())
}

func TestKeyMutex_Different_Keys_Do_Not_Block(t *testing.T) {
	var km KeyMutex[string]
	r1 := km.Lock("a")
	r2 := km.Lock("b")
	assert.Equal(t, 2, km.Len())
	r1()
	r2()
	assert.Zero(t, km.Len())
}

func TestCeilDiv(t *testing.T) {
	assert.Equal(t, int64(0), CeilDiv(0, 4096))
	assert.Equal(t, int64(1), CeilDiv(1, 4096))
	assert.Equal(t, int64(1), CeilDiv(4096, 4096))
	assert.Equal(t, int64(2), CeilDiv(4097, 4096))
}
