package config

import (
	"gopkg.in/yaml.v3"
)

// setDefaultValues 设置配置文件中缺失字段的默认值
func setDefaultValues(cfg *Config, rawData []byte) {
	setAdBlockDefaults(cfg, rawData)
	setCacheDefaults(cfg)

	if cfg.WebUI.ListenPort == 0 {
		cfg.WebUI.ListenPort = 8080
	}
	if cfg.System.LogLevel == "" {
		cfg.System.LogLevel = "info"
	}
}

// setAdBlockDefaults 设置广告拦截配置的默认值
func setAdBlockDefaults(cfg *Config, rawData []byte) {
	if cfg.AdBlock.Engine == "" {
		cfg.AdBlock.Engine = "native"
	}
	if cfg.AdBlock.CacheDir == "" {
		cfg.AdBlock.CacheDir = "./adblock_cache"
	}
	if cfg.AdBlock.UpdateIntervalHours == 0 {
		cfg.AdBlock.UpdateIntervalHours = 24
	}
	if cfg.AdBlock.MaxConcurrent == 0 {
		cfg.AdBlock.MaxConcurrent = 5
	}
	if cfg.AdBlock.DownloadTimeoutSec == 0 {
		cfg.AdBlock.DownloadTimeoutSec = 15
	}

	// enable 未出现在配置文件中时默认开启；显式写 false 时保持关闭
	if !hasKey(rawData, "adblock", "enable") {
		cfg.AdBlock.Enable = true
	}
}

// setCacheDefaults 设置结果缓存的默认值
func setCacheDefaults(cfg *Config) {
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = 50
	}
	if cfg.Cache.TTLMinutes == 0 {
		cfg.Cache.TTLMinutes = 30
	}
	if cfg.Cache.CleanupIntervalMinutes == 0 {
		cfg.Cache.CleanupIntervalMinutes = 5
	}
}

// hasKey 检查原始 YAML 中 section.key 是否存在
func hasKey(rawData []byte, section, key string) bool {
	var raw map[string]map[string]any
	if err := yaml.Unmarshal(rawData, &raw); err != nil {
		return false
	}
	_, ok := raw[section][key]
	return ok
}
