package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level" json:"level"`
	File       string `yaml:"file" json:"file"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`       // MB
	MaxBackups int    `yaml:"max_backups" json:"max_backups"` // 保留的旧日志文件数量
	MaxAge     int    `yaml:"max_age" json:"max_age"`         // 天
	Compress   bool   `yaml:"compress" json:"compress"`
}

// StoreConfig 本地存储配置
type StoreConfig struct {
	DBPath     string `yaml:"db_path" json:"db_path"`         // sqlite：价格历史、库存、交易记录
	SecretPath string `yaml:"secret_path" json:"secret_path"` // badger：登录会话
	DataDir    string `yaml:"data_dir" json:"data_dir"`       // JSON 状态文件（设置、运行状态）
}

// MarketConfig warframe.market API 配置
type MarketConfig struct {
	BaseURL           string        `yaml:"base_url" json:"base_url"`
	Platform          string        `yaml:"platform" json:"platform"`
	Language          string        `yaml:"language" json:"language"`
	RequestsPerSecond float64       `yaml:"requests_per_second" json:"requests_per_second"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	ItemCacheTTL      time.Duration `yaml:"item_cache_ttl" json:"item_cache_ttl"`
	JWT               string        `yaml:"jwt" json:"-"`         // 可选：覆盖 secret store 中的会话
	IngameName        string        `yaml:"ingame_name" json:"-"` // 可选：覆盖 secret store 中的游戏名
}

// LiveTraderConfig 自动交易配置
type LiveTraderConfig struct {
	Settings             Settings      `yaml:",inline" json:"settings"`
	Interval             time.Duration `yaml:"interval" json:"interval"`                             // 每轮之间的休眠
	MaxConsecutiveErrors int           `yaml:"max_consecutive_errors" json:"max_consecutive_errors"` // 连续失败轮数上限（0 = 关闭）
	LockWait             time.Duration `yaml:"lock_wait" json:"lock_wait"`                           // 获取设置快照的最长等待
	AutoStart            bool          `yaml:"auto_start" json:"auto_start"`
}

// WhisperConfig 私聊通知配置
type WhisperConfig struct {
	Webhook     string `yaml:"webhook" json:"webhook"`
	PingOnNotif bool   `yaml:"ping_on_notif" json:"ping_on_notif"`
}

// EELogConfig 游戏日志监听配置
type EELogConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled"`
	Path         string        `yaml:"path" json:"path"`
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`
}

// ScraperConfig 价格历史抓取配置
type ScraperConfig struct {
	Items     []string      `yaml:"items" json:"items"`         // 只抓取这些物品（为空 = 全部物品）
	Retention time.Duration `yaml:"retention" json:"retention"` // 超过该时长的历史会被清理（0 = 不清理）
}

// ControlConfig 控制面配置
type ControlConfig struct {
	Listen string `yaml:"listen" json:"listen"`
}

// Config 应用配置
type Config struct {
	Log        LogConfig        `yaml:"log" json:"log"`
	Store      StoreConfig      `yaml:"store" json:"store"`
	Market     MarketConfig     `yaml:"market" json:"market"`
	LiveTrader LiveTraderConfig `yaml:"live_trader" json:"live_trader"`
	Whisper    WhisperConfig    `yaml:"whisper" json:"whisper"`
	EELog      EELogConfig      `yaml:"eelog" json:"eelog"`
	Scraper    ScraperConfig    `yaml:"scraper" json:"scraper"`
	Control    ControlConfig    `yaml:"control" json:"control"`
}

var configFilePath = "yml/config.yaml"

// SetConfigPath 设置配置文件路径
func SetConfigPath(path string) {
	configFilePath = path
}

// GetConfigPath 获取配置文件路径
func GetConfigPath() string {
	return configFilePath
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "info",
			File:       "logs/wfmtrader.log",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   true,
		},
		Store: StoreConfig{
			DBPath:     "data/wfmtrader.db",
			SecretPath: "data/secrets",
			DataDir:    "data/state",
		},
		Market: MarketConfig{
			BaseURL:           "https://api.warframe.market/v1",
			Platform:          "pc",
			Language:          "en",
			RequestsPerSecond: 3,
			Timeout:           10 * time.Second,
			ItemCacheTTL:      6 * time.Hour,
		},
		LiveTrader: LiveTraderConfig{
			Settings:             DefaultSettings(),
			Interval:             5 * time.Second,
			MaxConsecutiveErrors: 0,
			LockWait:             2 * time.Second,
		},
		EELog: EELogConfig{
			Enabled:      false,
			PollInterval: time.Second,
		},
		Scraper: ScraperConfig{
			Retention: 30 * 24 * time.Hour,
		},
		Control: ControlConfig{
			Listen: "127.0.0.1:8090",
		},
	}
}

// Load 加载配置
func Load() (*Config, error) {
	return LoadFromFile(configFilePath)
}

// LoadFromFile 从指定文件加载配置（文件不存在时使用默认值），再叠加环境变量
func LoadFromFile(filePath string) (*Config, error) {
	cfg := Default()
	if filePath != "" {
		if err := loadConfigFile(filePath, cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}
	configFilePath = filePath
	return cfg, nil
}

// loadConfigFile 加载配置文件（支持 YAML 和 JSON）
func loadConfigFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("读取配置文件失败: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("解析 YAML 配置文件失败: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("解析 JSON 配置文件失败: %w", err)
		}
	default:
		return fmt.Errorf("不支持的配置文件格式: %s (支持 .yaml, .yml, .json)", ext)
	}
	return nil
}

// applyEnv 环境变量覆盖（优先级：环境变量 > 配置文件 > 默认值）
func applyEnv(c *Config) {
	c.Log.Level = getEnv("WFM_LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnv("WFM_LOG_FILE", c.Log.File)
	c.Store.DBPath = getEnv("WFM_DB_PATH", c.Store.DBPath)
	c.Store.SecretPath = getEnv("WFM_SECRET_PATH", c.Store.SecretPath)
	c.Store.DataDir = getEnv("WFM_DATA_DIR", c.Store.DataDir)
	c.Market.BaseURL = getEnv("WFM_BASE_URL", c.Market.BaseURL)
	c.Market.Platform = getEnv("WFM_PLATFORM", c.Market.Platform)
	c.Market.JWT = getEnv("WFM_JWT", c.Market.JWT)
	c.Market.IngameName = getEnv("WFM_INGAME_NAME", c.Market.IngameName)
	c.Market.RequestsPerSecond = parseFloatEnv("WFM_REQUESTS_PER_SECOND", c.Market.RequestsPerSecond)
	c.LiveTrader.Settings.Webhook = getEnv("WFM_WEBHOOK", c.LiveTrader.Settings.Webhook)
	c.LiveTrader.Interval = parseDurationEnv("WFM_INTERVAL", c.LiveTrader.Interval)
	c.LiveTrader.MaxConsecutiveErrors = parseIntEnv("WFM_MAX_CONSECUTIVE_ERRORS", c.LiveTrader.MaxConsecutiveErrors)
	c.LiveTrader.AutoStart = parseBoolEnv("WFM_AUTO_START", c.LiveTrader.AutoStart)
	c.Whisper.Webhook = getEnv("WFM_WHISPER_WEBHOOK", c.Whisper.Webhook)
	c.EELog.Path = getEnv("WFM_EELOG_PATH", c.EELog.Path)
	c.EELog.Enabled = parseBoolEnv("WFM_EELOG_ENABLED", c.EELog.Enabled)
	c.Control.Listen = getEnv("WFM_LISTEN", c.Control.Listen)
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Market.BaseURL == "" {
		return fmt.Errorf("market.base_url 未配置")
	}
	if c.Market.RequestsPerSecond <= 0 {
		return fmt.Errorf("market.requests_per_second 必须大于 0")
	}
	if c.LiveTrader.Interval <= 0 {
		return fmt.Errorf("live_trader.interval 必须大于 0")
	}
	if c.LiveTrader.MaxConsecutiveErrors < 0 {
		return fmt.Errorf("live_trader.max_consecutive_errors 不能为负数")
	}
	if c.EELog.Enabled && c.EELog.Path == "" {
		return fmt.Errorf("eelog.enabled 为 true 时必须配置 eelog.path")
	}
	if c.EELog.PollInterval <= 0 {
		c.EELog.PollInterval = time.Second
	}
	if c.LiveTrader.LockWait <= 0 {
		c.LiveTrader.LockWait = 2 * time.Second
	}
	return c.LiveTrader.Settings.Validate()
}

// WhisperWebhook 私聊通知使用的 webhook（未单独配置时回落到交易 webhook）
func (c *Config) WhisperWebhook() (string, bool) {
	if c.Whisper.Webhook != "" {
		return c.Whisper.Webhook, c.Whisper.PingOnNotif
	}
	return c.LiveTrader.Settings.Webhook, c.LiveTrader.Settings.PingOnNotif
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseIntEnv 解析整数环境变量
func parseIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// parseFloatEnv 解析浮点数环境变量
func parseFloatEnv(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// parseBoolEnv 解析布尔环境变量
func parseBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// parseDurationEnv 解析时长环境变量（如 "5s"）
func parseDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
