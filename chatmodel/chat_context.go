// Package chatmodel carries the identity of a conversation through
// context.Context so stores and loggers can scope their work per chat.
package chatmodel

import (
	"context"
	"sync"

	"github.com/effective-security/x/values"
	"github.com/google/uuid"
)

// Chat identifies one conversation. AppData is immutable application
// state attached at creation; Meta values may be set at any time and
// are safe for concurrent use.
type Chat struct {
	id      string
	appData any
	meta    sync.Map
}

// NewChat creates a Chat with the given ID, or a random one when id is
// empty.
func NewChat(id string, appData any) *Chat {
	return &Chat{
		id:      values.StringsCoalesce(id, NewChatID()),
		appData: appData,
	}
}

// ID returns the chat identifier.
func (c *Chat) ID() string {
	return c.id
}

// AppData returns the immutable application data.
func (c *Chat) AppData() any {
	return c.appData
}

// Meta retrieves a metadata value by key.
func (c *Chat) Meta(key string) (value any, ok bool) {
	return c.meta.Load(key)
}

// SetMeta sets a metadata value by key.
func (c *Chat) SetMeta(key string, value any) {
	c.meta.Store(key, value)
}

type contextKey int

const keyChat contextKey = iota

// NewContext returns a context carrying the chat.
func NewContext(ctx context.Context, chat *Chat) context.Context {
	return context.WithValue(ctx, keyChat, chat)
}

// FromContext returns the chat carried by the context, or nil.
func FromContext(ctx context.Context) *Chat {
	if c, ok := ctx.Value(keyChat).(*Chat); ok {
		return c
	}
	return nil
}

// IDFromContext returns the chat ID carried by the context, or an
// empty string when the context has none.
func IDFromContext(ctx context.Context) string {
	if c := FromContext(ctx); c != nil {
		return c.id
	}
	return ""
}

// NewChatID generates a random chat ID.
func NewChatID() string {
	return uuid.NewString()
}
