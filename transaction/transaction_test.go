package transaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Returns_Unique_Ids(t *testing.T) {
	seen := map[TxnID]bool{}
	for i := 0; i < 1000; i++ {
		id := New()
		assert.False(t, seen[id])
		assert.False(t, id.IsNil())
		seen[id] = true
	}
}

func TestParse_Roundtrips_String(t *testing.T) {
	id := New()
	parsed, err := Parse(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = Parse("not-a-txn")
	assert.Error(t, err)
	assert.True(t, Nil.IsNil())
}
