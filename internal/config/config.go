package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"sqlutil/internal/adapter"
	"sqlutil/internal/connstore"
)

// EnvPrefix 环境变量前缀，例如 SQLUTIL_LOG_LEVEL
const EnvPrefix = "SQLUTIL"

// Config 运行配置
type Config struct {
	Connections   string `mapstructure:"connections"`
	Store         string `mapstructure:"store"`
	RedisAddr     string `mapstructure:"redis-addr"`
	RedisPassword string `mapstructure:"redis-password"`
	RedisDB       int    `mapstructure:"redis-db"`
	RedisKey      string `mapstructure:"redis-key"`
	Type          string `mapstructure:"type"`
	LogLevel      string `mapstructure:"log-level"`
	LogFormat     string `mapstructure:"log-format"`
	CompressLevel int    `mapstructure:"compress-level"`
	Delimiter     string `mapstructure:"delimiter"`
	Schema        string `mapstructure:"schema"`
}

// DefaultConnections 默认的命名连接文件
func DefaultConnections() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "connections.json"
	}
	return filepath.Join(home, ".sqlutil", "connections.json")
}

// BindFlags 注册全局参数
func BindFlags(flags *pflag.FlagSet) {
	flags.String("connections", DefaultConnections(), "命名连接文件 (.json/.yaml)")
	flags.String("store", "file", "命名连接存储 (file/redis)")
	flags.String("redis-addr", "localhost:6379", "Redis 地址")
	flags.String("redis-password", "", "Redis 密码")
	flags.Int("redis-db", 0, "Redis 库编号")
	flags.String("redis-key", "", "保存命名连接的 Redis hash")
	flags.String("type", adapter.TypeSQLServer, "无法识别前缀时的数据库类型 (sqlserver/mysql/postgres/sqlite)")
	flags.String("log-level", "info", "日志级别")
	flags.String("log-format", "console", "日志格式 (console/json)")
	flags.Int("compress-level", 0, "zstd 压缩级别，0 为默认")
	flags.String("delimiter", "", "批量装载的分隔符，默认逗号")
	flags.String("schema", "", "批量装载的目标 schema")
}

// New 创建 viper 实例：先读 .env，再绑定参数、环境变量和配置文件
func New(flags *pflag.FlagSet, cfgFile string) (*viper.Viper, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, err
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
		v.SetConfigName(".sqlutil")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Load 从 viper 读取配置
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Connections == "" {
		cfg.Connections = DefaultConnections()
	}
	if _, err := cfg.DelimiterRune(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DelimiterRune 分隔符；支持 \t 和 tab 两种写法
func (c *Config) DelimiterRune() (rune, error) {
	switch strings.ToLower(c.Delimiter) {
	case "":
		return 0, nil
	case `\t`, "tab":
		return '\t', nil
	}
	if utf8.RuneCountInString(c.Delimiter) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character: %q", c.Delimiter)
	}
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	return r, nil
}

// OpenStore 按配置打开并加载命名连接存储
func (c *Config) OpenStore(ctx context.Context) (*connstore.Store, func() error, error) {
	var (
		backend connstore.Backend
		closer  = func() error { return nil }
	)
	switch strings.ToLower(c.Store) {
	case "", "file":
		if dir := filepath.Dir(c.Connections); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, nil, err
			}
		}
		backend = &connstore.FileBackend{Path: c.Connections}
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		backend = connstore.NewRedisBackend(client, c.RedisKey)
		closer = client.Close
	default:
		return nil, nil, fmt.Errorf("unsupported store: %s", c.Store)
	}

	store := connstore.New(backend)
	if err := store.Load(ctx); err != nil {
		closer()
		return nil, nil, err
	}
	return store, closer, nil
}
