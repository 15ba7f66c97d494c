package connstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// FileBackend 本地文件：.yaml/.yml 用 YAML，其余用 JSON
type FileBackend struct {
	Path string
}

func (b *FileBackend) isYAML() bool {
	ext := strings.ToLower(filepath.Ext(b.Path))
	return ext == ".yaml" || ext == ".yml"
}

// Load 文件不存在时返回空表
func (b *FileBackend) Load(ctx context.Context) (map[string]string, error) {
	data, err := os.ReadFile(b.Path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	entries := map[string]string{}
	if b.isYAML() {
		err = yaml.Unmarshal(data, &entries)
	} else if len(strings.TrimSpace(string(data))) > 0 {
		err = json.Unmarshal(data, &entries)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", b.Path, err)
	}
	if entries == nil {
		entries = map[string]string{}
	}
	return entries, nil
}

// Save 整体重写文件
func (b *FileBackend) Save(ctx context.Context, entries map[string]string) error {
	var data []byte
	var err error
	if b.isYAML() {
		data, err = yaml.Marshal(entries)
	} else {
		data, err = json.MarshalIndent(entries, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(b.Path, data, 0o600)
}

// RedisBackend 以一个 hash 保存所有连接，便于多人共享
type RedisBackend struct {
	Client *redis.Client
	Key    string
}

// NewRedisBackend 创建 Redis 后端；key 为空时使用 sqlutil:connections
func NewRedisBackend(client *redis.Client, key string) *RedisBackend {
	if key == "" {
		key = "sqlutil:connections"
	}
	return &RedisBackend{Client: client, Key: key}
}

func (b *RedisBackend) Load(ctx context.Context) (map[string]string, error) {
	entries, err := b.Client.HGetAll(ctx, b.Key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall %s: %w", b.Key, err)
	}
	return entries, nil
}

// Save 在一个事务中删除并重建 hash
func (b *RedisBackend) Save(ctx context.Context, entries map[string]string) error {
	_, err := b.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, b.Key)
		if len(entries) > 0 {
			values := make([]interface{}, 0, len(entries)*2)
			for k, v := range entries {
				values = append(values, k, v)
			}
			pipe.HSet(ctx, b.Key, values...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save %s: %w", b.Key, err)
	}
	return nil
}
