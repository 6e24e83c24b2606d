package setstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemSetStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	s := NewMemSetStore()

	out, err := s.InSet(ctx, "whitelist/channels/g1", "c1")
	assert.NoError(err)
	assert.False(out)

	s.Add("whitelist/channels/g1", "c1", "c2")

	out, err = s.InSet(ctx, "whitelist/channels/g1", "c1")
	assert.NoError(err)
	assert.True(out)

	// other communities don't share sets
	out, err = s.InSet(ctx, "whitelist/channels/g2", "c1")
	assert.NoError(err)
	assert.False(out)

	s.Remove("whitelist/channels/g1", "c1")
	out, err = s.InSet(ctx, "whitelist/channels/g1", "c1")
	assert.NoError(err)
	assert.False(out)
}
