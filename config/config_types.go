package config

// Config 主配置结构
type Config struct {
	AdBlock AdBlockConfig `yaml:"adblock" json:"adblock"`
	Cache   CacheConfig   `yaml:"cache" json:"cache"`
	WebUI   WebUIConfig   `yaml:"webui" json:"webui"`
	System  SystemConfig  `yaml:"system" json:"system"`
}

// AdBlockConfig 广告拦截配置
type AdBlockConfig struct {
	Enable              bool     `yaml:"enable" json:"enable"`
	Engine              string   `yaml:"engine,omitempty" json:"engine"` // native, urlfilter
	RuleURLs            []string `yaml:"rule_urls,omitempty" json:"rule_urls"`
	CustomRulesFile     string   `yaml:"custom_rules_file,omitempty" json:"custom_rules_file"`
	CacheDir            string   `yaml:"cache_dir,omitempty" json:"cache_dir"`
	UpdateIntervalHours int      `yaml:"update_interval_hours,omitempty" json:"update_interval_hours"`
	MaxConcurrent       int      `yaml:"max_concurrent_downloads,omitempty" json:"max_concurrent_downloads"`
	DownloadTimeoutSec  int      `yaml:"download_timeout_seconds,omitempty" json:"download_timeout_seconds"`
	WatchFiles          bool     `yaml:"watch_files" json:"watch_files"`
}

// CacheConfig 解析结果缓存配置
type CacheConfig struct {
	MaxEntries             int `yaml:"max_entries,omitempty" json:"max_entries"`
	TTLMinutes             int `yaml:"ttl_minutes,omitempty" json:"ttl_minutes"`
	CleanupIntervalMinutes int `yaml:"cleanup_interval_minutes,omitempty" json:"cleanup_interval_minutes"`
}

// WebUIConfig Web API 配置
type WebUIConfig struct {
	Enabled    bool `yaml:"enabled" json:"enabled"`
	ListenPort int  `yaml:"listen_port,omitempty" json:"listen_port"`
}

// SystemConfig 系统配置
type SystemConfig struct {
	LogLevel string `yaml:"log_level,omitempty" json:"log_level"`
}
