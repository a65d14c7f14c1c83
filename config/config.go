package config

import (
	"fmt"
	"os"
	"strings"

	"adfilter/logger"

	"gopkg.in/yaml.v3"
)

// CreateDefaultConfig 创建默认配置文件
func CreateDefaultConfig(filePath string) error {
	return os.WriteFile(filePath, []byte(DefaultConfigContent), 0644)
}

// LoadConfig 从 YAML 文件加载配置，文件不存在时自动创建默认配置
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := CreateDefaultConfig(filePath); err != nil {
			return nil, fmt.Errorf("creating default config: %w", err)
		}
		data = []byte(DefaultConfigContent)
	}

	return ParseConfig(data)
}

// ParseConfig 解析 YAML 配置内容并填充默认值
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	setDefaultValues(&cfg, data)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查配置取值是否合法
func (c *Config) Validate() error {
	switch strings.ToLower(c.AdBlock.Engine) {
	case "native", "urlfilter":
	default:
		return fmt.Errorf("unknown adblock engine: %s", c.AdBlock.Engine)
	}

	if _, ok := logger.ParseLevel(c.System.LogLevel); !ok {
		return fmt.Errorf("unknown log level: %s", c.System.LogLevel)
	}

	if c.WebUI.ListenPort < 0 || c.WebUI.ListenPort > 65535 {
		return fmt.Errorf("invalid webui listen port: %d", c.WebUI.ListenPort)
	}
	return nil
}

// SaveConfig 将配置写回文件
func SaveConfig(filePath string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(filePath, data, 0644)
}
