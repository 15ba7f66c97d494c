package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"sqlutil/internal/config"
	"sqlutil/internal/connstore"
	"sqlutil/internal/logging"
	"sqlutil/internal/storage"
	"sqlutil/internal/transfer"
)

// 各命令失败时的退出码
const (
	exitTest   = 1
	exitExport = 2
	exitImport = 3
	exitCopy   = 4
	exitUpload = 5
	exitWipe   = 6
	exitStore  = 7
)

// exitError 带退出码的错误
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func fail(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// app 命令共享的运行环境，在 PersistentPreRunE 中初始化
type app struct {
	cfgFile string
	cfg     *config.Config
	log     zerolog.Logger

	store      *connstore.Store
	closeStore func() error
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{log: zerolog.Nop()}
	err := a.rootCommand().ExecuteContext(ctx)
	if a.closeStore != nil {
		a.closeStore()
	}
	if err == nil {
		return 0
	}

	fmt.Fprintln(os.Stderr, "Error:", err)
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

func (a *app) rootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "sqlutil",
		Short:         "按外键顺序导出、导入、清空和复制数据库",
		Long:          "读取数据库的外键依赖，按父表优先的顺序导出为可回放的 SQL 快照，并支持导入、清空、库间复制和 CSV 批量装载",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "配置文件 (默认 $HOME/.sqlutil.yaml)")
	config.BindFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		a.testCommand(),
		a.exportCommand(),
		a.importCommand(),
		a.copyCommand(),
		a.wipeCommand(),
		a.uploadCommand(),
		a.orderCommand(),
		a.addCommand(),
		a.removeCommand(),
		a.listCommand(),
	)
	return rootCmd
}

// init 读取配置、创建日志器并加载命名连接
func (a *app) init(cmd *cobra.Command) error {
	v, err := config.New(cmd.Root().PersistentFlags(), a.cfgFile)
	if err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	if used := v.ConfigFileUsed(); used != "" {
		a.log.Debug().Str("file", used).Msg("using config file")
	}

	store, closer, err := cfg.OpenStore(cmd.Context())
	if err != nil {
		return fail(exitStore, err)
	}
	a.store, a.closeStore = store, closer
	return nil
}

// service 按当前配置创建服务
func (a *app) service() (*transfer.Service, error) {
	delim, err := a.cfg.DelimiterRune()
	if err != nil {
		return nil, err
	}
	s := transfer.NewService(a.store, storage.New(a.cfg.CompressLevel), a.log)
	s.DefaultType = a.cfg.Type
	s.Schema = a.cfg.Schema
	s.Delimiter = delim
	return s, nil
}
