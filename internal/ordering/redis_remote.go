package ordering

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisRemote is the shared folder-order store. Each folder's order is a
// JSON array of document ids under "folder-order:<folderID>".
type RedisRemote struct {
	client *redis.Client
	prefix string
}

// NewRedisRemote builds the remote from a redis:// URL. Only a malformed URL
// is an error: the client dials lazily, so a server that is down now is
// picked up once it answers again. Use Ping to report reachability.
func NewRedisRemote(redisURL string) (*RedisRemote, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisRemoteWithClient(redis.NewClient(opts)), nil
}

func NewRedisRemoteWithClient(client *redis.Client) *RedisRemote {
	return &RedisRemote{client: client, prefix: "folder-order:"}
}

func (s *RedisRemote) key(folderID string) string {
	return s.prefix + folderID
}

// GetFolderOrder returns nil when the folder has no stored order.
func (s *RedisRemote) GetFolderOrder(ctx context.Context, folderID string) ([]string, error) {
	raw, err := s.client.Get(ctx, s.key(folderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get folder order: %w", err)
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("decode folder order: %w", err)
	}
	return ids, nil
}

// SetFolderOrder reports ok=false when the server answered without error
// but did not acknowledge the write.
func (s *RedisRemote) SetFolderOrder(ctx context.Context, folderID string, ids []string) (bool, error) {
	raw, err := json.Marshal(ids)
	if err != nil {
		return false, fmt.Errorf("encode folder order: %w", err)
	}
	status, err := s.client.Set(ctx, s.key(folderID), raw, 0).Result()
	if err != nil {
		return false, fmt.Errorf("set folder order: %w", err)
	}
	return status == "OK", nil
}

func (s *RedisRemote) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisRemote) Close() error {
	return s.client.Close()
}
