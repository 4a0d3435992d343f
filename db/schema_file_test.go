package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heapdb/catalog/db_types"
)

func TestParseSchema(t *testing.T) {
	src := `
# tables of the test database
users (id int pk, name string)
orders(id int, user_id INT , note string)
`
	defs, err := ParseSchema(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, defs, 2)

	assert.Equal(t, "users", defs[0].Name)
	assert.Equal(t, "id", defs[0].PrimaryKey)
	assert.Equal(t, "id(int), name(string)", defs[0].Schema.String())

	assert.Equal(t, "orders", defs[1].Name)
	assert.Empty(t, defs[1].PrimaryKey)
	assert.Equal(t, 3, defs[1].Schema.NumFields())
	assert.Equal(t, db_types.IntegerTypeID, defs[1].Schema.GetColumn(1).TypeId)
	assert.Equal(t, 4+4+132, defs[1].Schema.Size())
}

func TestParseSchema_Errors(t *testing.T) {
	for _, line := range []string{
		"users id int",
		"(id int)",
		"users (id float)",
		"users (id int key)",
		"users (id)",
		"users ()",
	} {
		t.Run(line, func(t *testing.T) {
			_, err := ParseSchema(strings.NewReader(line))
			assert.ErrorIs(t, err, ErrInvalidSchema)
			assert.Contains(t, err.Error(), "line 1")
		})
	}
}
