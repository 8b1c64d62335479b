package idgen

import (
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPostID_Sortable(t *testing.T) {
	ids := make([]string, 500)
	for i := range ids {
		id, err := NewPostID()
		require.NoError(t, err)
		ids[i] = id
	}

	assert.True(t, sort.StringsAreSorted(ids), "ids must sort in creation order")
	for i := 1; i < len(ids); i++ {
		assert.NotEqual(t, ids[i-1], ids[i])
	}
}

func TestIsPostID(t *testing.T) {
	id, err := NewPostID()
	require.NoError(t, err)

	assert.True(t, IsPostID(id))
	assert.False(t, IsPostID(""))
	assert.False(t, IsPostID("not-a-cursor"))
	assert.False(t, IsPostID(uuid.NewString()), "v4 ids are not post ids")
	assert.False(t, IsPostID(id+"x"))
}
