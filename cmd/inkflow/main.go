// Package main 命令行入口：列出模板、流式生成内容、管理历史记录
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"inkflow-ai-api/internal/config"
	einoobs "inkflow-ai-api/internal/observability/eino"
	"inkflow-ai-api/internal/wire"
	"inkflow-ai-api/pkg/logger"
	"inkflow-ai-api/pkg/tracer"
)

var version = "dev"

// sessionOpener 打开会话；测试中替换为内存实现
type sessionOpener func(ctx context.Context, cfg *config.Config) (*wire.Session, func(), error)

type cli struct {
	out    io.Writer
	errOut io.Writer
	open   sessionOpener

	configPath string
	logLevel   string
	storage    string

	cfg     *config.Config
	session *wire.Session
	cleanup []func()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := &cli{out: os.Stdout, errOut: os.Stderr, open: wire.InitializeSession}
	if err := c.rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "inkflow",
		Short:   "Template-driven AI writing assistant",
		Version: version,
		Long: `inkflow fills a writing template with your details and streams the
generated text from the configured model.

Examples:
  inkflow templates
  inkflow generate -t blog-post -f topic="AI in healthcare" -f keywords=AI -f audience=Doctors
  inkflow history list`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
		PersistentPostRun: func(*cobra.Command, []string) { c.teardown() },
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", config.DefaultConfigFile, "Config file")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&c.storage, "storage", "", "Override storage driver (memory, file, sqlite, postgres, redis)")

	root.AddCommand(
		c.templatesCmd(),
		c.generateCmd(),
		c.historyCmd(),
	)
	root.SetOut(c.out)
	root.SetErr(c.errOut)
	return root
}

// setup 加载配置与日志并打开会话；日志固定写到 stderr，stdout 只输出内容
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	cfg, err := config.LoadFile(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Observability.Logging.Level = c.logLevel
	} else if cfg.Observability.Logging.Level == "info" {
		// 未显式指定时命令行只输出 WARN 以上
		cfg.Observability.Logging.Level = "warn"
	}
	if c.storage != "" {
		cfg.Storage.Driver = c.storage
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	c.cfg = cfg

	logger.InitWithWriter(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format, c.errOut)

	ctx := cmd.Context()
	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: "inkflow-cli",
		Exporter:    cfg.Observability.Tracing.Exporter,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		return err
	}
	c.cleanup = append(c.cleanup, func() { _ = shutdown(context.Background()) })

	einoobs.Init()

	sess, cleanup, err := c.open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	c.session = sess
	c.cleanup = append(c.cleanup, cleanup)
	return nil
}

func (c *cli) teardown() {
	for i := len(c.cleanup) - 1; i >= 0; i-- {
		c.cleanup[i]()
	}
	c.cleanup = nil
}
