package config

// DefaultConfigContent 默认配置文件内容，包含详细说明
const DefaultConfigContent = `# adfilter 配置文件

# 广告拦截配置
adblock:
  # 是否启用广告拦截，默认 true
  enable: true
  # 匹配引擎：native（支持 domain=/3p/1p 等上下文选项）或 urlfilter（仅按主机名匹配）
  engine: "native"
  # 远程规则列表
  rule_urls:
    - "https://easylist.to/easylist/easylist.txt"
  # 自定义规则文件，不存在时自动创建
  custom_rules_file: "./custom_rules.txt"
  # 下载缓存目录
  cache_dir: "./adblock_cache"
  # 规则自动更新间隔（小时）
  update_interval_hours: 24
  # 同时下载的规则源数量
  max_concurrent_downloads: 5
  # 单个规则源下载超时（秒）
  download_timeout_seconds: 15
  # 监听本地规则文件变化并自动重新加载
  watch_files: true

# 解析结果缓存
cache:
  # 最多缓存多少份解析后的规则列表
  max_entries: 50
  # 条目空闲多久后过期（分钟）
  ttl_minutes: 30
  # 过期清理间隔（分钟）
  cleanup_interval_minutes: 5

# Web API
webui:
  enabled: true
  listen_port: 8080

system:
  # 日志级别：debug, info, warn, error
  log_level: "info"
`
