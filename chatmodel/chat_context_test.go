package chatmodel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codriver-ai/codriver/chatmodel"
)

func TestNewChat(t *testing.T) {
	c := chatmodel.NewChat("", "app")
	assert.NotEmpty(t, c.ID())
	assert.Equal(t, "app", c.AppData())

	c2 := chatmodel.NewChat("chat-1", nil)
	assert.Equal(t, "chat-1", c2.ID())

	_, ok := c.Meta("k")
	assert.False(t, ok)
	c.SetMeta("k", 1)
	v, ok := c.Meta("k")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, chatmodel.FromContext(ctx))
	assert.Empty(t, chatmodel.IDFromContext(ctx))

	c := chatmodel.NewChat("chat-2", nil)
	ctx = chatmodel.NewContext(ctx, c)
	assert.Same(t, c, chatmodel.FromContext(ctx))
	assert.Equal(t, "chat-2", chatmodel.IDFromContext(ctx))
}
