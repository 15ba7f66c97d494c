package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sqlutil/internal/adapter"
	"sqlutil/internal/renderer"
)

func (a *app) testCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "test <db>",
		Short: "测试数据库连接",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.service()
			if err != nil {
				return fail(exitTest, err)
			}
			fmt.Println("=> Testing connection to", describe(s.Resolve(args[0])))
			if err := s.TestConnection(cmd.Context(), args[0]); err != nil {
				return fail(exitTest, err)
			}
			fmt.Println("==> Connection succeeded")
			return nil
		},
	}
}

func (a *app) exportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export <db> <file>",
		Short: "按外键顺序把整个库导出为 SQL 快照",
		Long:  "file 可以是本地路径或 s3://bucket/key，以 .zst 结尾时压缩；已存在的文件会被覆盖",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.service()
			if err != nil {
				return fail(exitExport, err)
			}
			fmt.Printf("=> Exporting %s to %s\n", describe(s.Resolve(args[0])), args[1])
			stats, err := s.Export(cmd.Context(), args[0], args[1])
			if err != nil {
				return fail(exitExport, err)
			}
			fmt.Printf("==> Exported %d rows from %d tables (%d bytes, digest %s)\n",
				stats.Rows, stats.Tables, stats.Bytes, stats.Digest)
			return nil
		},
	}
}

func (a *app) importCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file> <db>",
		Short: "回放 SQL 快照",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.service()
			if err != nil {
				return fail(exitImport, err)
			}
			fmt.Printf("=> Importing %s into %s\n", args[0], describe(s.Resolve(args[1])))
			stats, err := s.Import(cmd.Context(), args[0], args[1])
			if err != nil {
				return fail(exitImport, err)
			}
			fmt.Printf("==> Executed %d statements for %d tables (digest %s)\n",
				stats.Statements, stats.Tables, stats.Digest)
			return nil
		},
	}
}

func (a *app) copyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "copy <source> <target>",
		Short: "把源库数据复制到目标库，目标库原有数据会被清空",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.service()
			if err != nil {
				return fail(exitCopy, err)
			}
			fmt.Printf("=> Copying %s to %s\n", describe(s.Resolve(args[0])), describe(s.Resolve(args[1])))
			stats, err := s.Copy(cmd.Context(), args[0], args[1])
			if err != nil {
				return fail(exitCopy, err)
			}
			fmt.Printf("==> Copied %d rows in %d tables (deleted %d rows first)\n",
				stats.Export.Rows, stats.Export.Tables, stats.Wipe.Rows)
			return nil
		},
	}
}

func (a *app) wipeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "wipe <db>",
		Short: "按依赖逆序删除所有表中的数据",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.service()
			if err != nil {
				return fail(exitWipe, err)
			}
			fmt.Println("=> Wiping", describe(s.Resolve(args[0])))
			stats, err := s.Wipe(cmd.Context(), args[0])
			if err != nil {
				return fail(exitWipe, err)
			}
			fmt.Printf("==> Deleted %d rows from %d tables\n", stats.Rows, stats.Tables)
			return nil
		},
	}
}

func (a *app) uploadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file> <db>",
		Short: "把 CSV/TSV/XLSX 文件装入以文件名命名的新表",
		Long:  "首行为列名，第二行决定列类型；同名表会被删除重建",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.service()
			if err != nil {
				return fail(exitUpload, err)
			}
			fmt.Printf("=> Uploading %s into %s\n", args[0], describe(s.Resolve(args[1])))
			stats, err := s.Upload(cmd.Context(), args[0], args[1])
			if err != nil {
				return fail(exitUpload, err)
			}
			fmt.Printf("==> Loaded %d rows into %s\n", stats.Rows, stats.Table)
			for _, c := range stats.Columns {
				fmt.Printf("    %s %s\n", c.Name, c.Declaration)
			}
			return nil
		},
	}
}

func (a *app) orderCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "order <db>",
		Short: "按外键依赖顺序列出所有表",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.service()
			if err != nil {
				return err
			}
			o, err := s.Order(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			switch strings.ToLower(format) {
			case "", "text":
				fmt.Print(renderer.NewTextRenderer().Render(o))
			case "markdown", "md":
				fmt.Print(renderer.NewMarkdownRenderer().Render(o))
			case "mermaid":
				fmt.Print(renderer.NewMermaidRenderer().Render(o))
			case "json":
				data, err := json.MarshalIndent(o, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
			default:
				return fmt.Errorf("unknown format: %s", format)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "输出格式 (text/markdown/mermaid/json)")
	return cmd
}

func (a *app) addCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <key> <descriptor>",
		Short: "保存命名连接",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.Add(cmd.Context(), args[0], args[1]); err != nil {
				return fail(exitStore, err)
			}
			fmt.Printf("==> Saved %s\n", strings.ToLower(args[0]))
			return nil
		},
	}
}

func (a *app) removeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <key>",
		Short: "删除命名连接",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := a.store.Remove(cmd.Context(), args[0])
			if err != nil {
				return fail(exitStore, err)
			}
			if removed {
				fmt.Printf("==> Removed %s\n", strings.ToLower(args[0]))
			} else {
				fmt.Printf("==> No key named %s\n", args[0])
			}
			return nil
		},
	}
}

func (a *app) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "列出命名连接（密码已隐藏）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, e := range a.store.List() {
				fmt.Printf("%s = %s\n", e.Key, adapter.Redact(e.Value))
			}
			return nil
		},
	}
}

// describe 用于状态行的连接描述，密码已隐藏
func describe(d adapter.Descriptor, err error) string {
	if err != nil {
		return "<unresolved>"
	}
	return d.String()
}
