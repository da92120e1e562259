package store

import (
	"context"
	"encoding/json"
	"path"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"

	"github.com/codriver-ai/codriver/chatmodel"
	"github.com/codriver-ai/codriver/pkg/llms"
)

var logger = xlog.NewPackageLogger("github.com/codriver-ai/codriver", "store")

// keepMessages bounds the persisted transcript length per chat.
const keepMessages = 256

// The redis store implements the MessageStore interface using Redis as the backend.
// Messages are kept in a list under `/<prefix>/chatstore/messages/<chatID>`,
// trimmed to the most recent keepMessages entries.
type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore returns a MessageStore backed by Redis.
func NewRedisStore(client *redis.Client, prefix string) MessageStore {
	return &redisStore{
		client: client,
		prefix: prefix,
	}
}

func (m *redisStore) messagesKey(chatID string) string {
	return path.Join(m.prefix, "chatstore", "messages", chatID)
}

func (m *redisStore) Messages(ctx context.Context) []llms.Message {
	chatID := chatmodel.IDFromContext(ctx)
	if chatID == "" {
		return nil
	}

	data, err := m.client.LRange(ctx, m.messagesKey(chatID), 0, -1).Result()
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "reason", "redis_lrange", "err", err.Error())
		return nil
	}

	var messages []llms.Message
	for _, item := range data {
		var model MessageModel
		if err := json.Unmarshal([]byte(item), &model); err != nil {
			logger.ContextKV(ctx, xlog.ERROR, "reason", "unmarshal message", "err", err.Error())
			continue
		}
		messages = append(messages, FromModel(model))
	}
	return messages
}

func (m *redisStore) Add(ctx context.Context, msg llms.Message) error {
	chatID := chatmodel.IDFromContext(ctx)
	if chatID == "" {
		return errors.New("chat ID not found in context")
	}

	data, err := json.Marshal(ToModel(msg))
	if err != nil {
		return errors.Wrap(err, "failed to marshal message")
	}

	key := m.messagesKey(chatID)
	pipe := m.client.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -keepMessages, -1)
	_, err = pipe.Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to store message in Redis")
	}
	return nil
}

func (m *redisStore) Reset(ctx context.Context) error {
	chatID := chatmodel.IDFromContext(ctx)
	if chatID == "" {
		return errors.New("chat ID not found in context")
	}
	err := m.client.Del(ctx, m.messagesKey(chatID)).Err()
	if err != nil {
		return errors.Wrap(err, "failed to reset chat in Redis")
	}
	return nil
}
