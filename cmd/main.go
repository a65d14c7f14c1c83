package main

import (
	"fmt"
	"os"
	"path/filepath"

	"adfilter/config"
	"adfilter/logger"

	"github.com/spf13/cobra"
)

var (
	configPath string
	workDir    string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "adfilter",
	Short: "Adblock 过滤规则解析与 URL 匹配服务",
	Long: `adfilter 解析 adblock 风格的过滤列表（||host^、@@||host^、$domain=/3p/1p/important/match-case），
并判断 URL 在给定页面上下文中是否应被拦截。

  adfilter serve                 启动规则更新与 Web API
  adfilter parse list.txt        解析过滤列表并输出统计
  adfilter check <url>           使用已缓存的规则检查 URL`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if logLevel != "" {
			logger.SetLevel(logLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "配置文件路径")
	rootCmd.PersistentFlags().StringVarP(&workDir, "workdir", "w", "", "工作目录（默认：当前目录）")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别，覆盖配置文件 (debug/info/warn/error)")

	rootCmd.AddCommand(serveCmd, parseCmd, checkCmd)
}

// loadConfig 按工作目录解析配置文件路径并加载
func loadConfig() (*config.Config, string, error) {
	dir := workDir
	if dir == "" {
		var err error
		if dir, err = os.Getwd(); err != nil {
			return nil, "", fmt.Errorf("无法获取当前工作目录：%w", err)
		}
	}

	path := configPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}

	// 命令行日志级别优先
	if logLevel == "" {
		logger.SetLevel(cfg.System.LogLevel)
	}
	return cfg, path, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误：%v\n", err)
		os.Exit(1)
	}
}
