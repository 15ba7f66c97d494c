package connstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// Backend 持久化整个键值表；每次修改都整体重写
type Backend interface {
	Load(ctx context.Context) (map[string]string, error)
	Save(ctx context.Context, entries map[string]string) error
}

// Entry 一个命名连接
type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (e Entry) String() string {
	return e.Key + " = " + e.Value
}

// KeyNotFoundError 未找到命名连接
type KeyNotFoundError struct {
	Key        string
	Suggestion string
}

func (e *KeyNotFoundError) Error() string {
	msg := fmt.Sprintf("key named '%s' was not found", e.Key)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(", did you mean '%s'?", e.Suggestion)
	}
	return msg
}

// Store 命名连接表，键不区分大小写
type Store struct {
	mu      sync.RWMutex
	backend Backend
	entries map[string]string
}

// New 创建 Store；使用前需要 Load
func New(backend Backend) *Store {
	return &Store{backend: backend, entries: make(map[string]string)}
}

// IsLiteral 含有 ';' '=' 或 "://" 的字符串视为连接串本身
func IsLiteral(s string) bool {
	return strings.ContainsAny(s, ";=") || strings.Contains(s, "://")
}

// Load 从后端读取全部条目
func (s *Store) Load(ctx context.Context) error {
	entries, err := s.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("load connections: %w", err)
	}
	normalized := make(map[string]string, len(entries))
	for k, v := range entries {
		normalized[strings.ToLower(k)] = v
	}
	s.mu.Lock()
	s.entries = normalized
	s.mu.Unlock()
	return nil
}

// Resolve 字面连接串原样返回，否则按键查找
func (s *Store) Resolve(keyOrDescriptor string) (string, error) {
	if IsLiteral(keyOrDescriptor) {
		return keyOrDescriptor, nil
	}
	return s.Get(keyOrDescriptor)
}

// Get 按键查找
func (s *Store) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.entries[strings.ToLower(key)]; ok {
		return v, nil
	}
	return "", &KeyNotFoundError{Key: key, Suggestion: s.closest(key)}
}

// closest 编辑距离最近且不超过键长一半的键
func (s *Store) closest(key string) string {
	key = strings.ToLower(key)
	best, bestDist := "", len(key)/2+1
	for _, k := range s.sortedKeys() {
		d := levenshtein.DistanceForStrings([]rune(key), []rune(k), levenshtein.DefaultOptions)
		if d < bestDist {
			best, bestDist = k, d
		}
	}
	return best
}

// Add 新增或覆盖，键保存为小写
func (s *Store) Add(ctx context.Context, key, value string) error {
	if strings.ContainsAny(key, ";=") {
		return fmt.Errorf("key name cannot contain ';' or '='")
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("key name cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[strings.ToLower(key)] = value
	return s.save(ctx)
}

// Remove 删除键；键不存在时返回 false 且不写后端
func (s *Store) Remove(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := strings.ToLower(key)
	if _, ok := s.entries[k]; !ok {
		return false, nil
	}
	delete(s.entries, k)
	return true, s.save(ctx)
}

// List 按键排序返回全部条目
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.entries))
	for _, k := range s.sortedKeys() {
		out = append(out, Entry{Key: k, Value: s.entries[k]})
	}
	return out
}

func (s *Store) sortedKeys() []string {
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) save(ctx context.Context) error {
	snapshot := make(map[string]string, len(s.entries))
	for k, v := range s.entries {
		snapshot[k] = v
	}
	if err := s.backend.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("save connections: %w", err)
	}
	return nil
}
