package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置（对应 config/config.yaml）
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Watchdog  WatchdogConfig  `mapstructure:"watchdog"`
}

type ServerConfig struct {
	Port  int    `mapstructure:"port"`
	Mode  string `mapstructure:"mode"` // gin: debug/release/test
	Pprof bool   `mapstructure:"pprof"`
}

// DatabaseConfig relational store connection (PostgreSQL DSN in URL form)
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// ScraperConfig 页面抓取配置
type ScraperConfig struct {
	SourceBaseURL     string  `mapstructure:"source_base_url"`    // 抓取页面来源
	CanonicalBaseURL  string  `mapstructure:"canonical_base_url"` // 写入 draws.source_url 的规范地址
	UserAgent         string  `mapstructure:"user_agent"`
	Timeout           int     `mapstructure:"timeout"` // 秒
	Proxy             string  `mapstructure:"proxy"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Producer          string  `mapstructure:"producer"`          // 主数据来源
	FallbackProducer  string  `mapstructure:"fallback_producer"` // 主来源失败时使用，可为空
}

// LLMConfig Ollama 结构化抽取配置
type LLMConfig struct {
	Host    string `mapstructure:"host"`
	Model   string `mapstructure:"model"`
	Timeout int    `mapstructure:"timeout"` // 秒
}

type CacheConfig struct {
	TTLDays    int `mapstructure:"ttl_days"`
	MaxEntries int `mapstructure:"max_entries"`
}

type RetrievalConfig struct {
	FallbackDays int `mapstructure:"fallback_days"`
}

type WatchdogConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Interval    time.Duration `mapstructure:"interval"`
	StopTimeout time.Duration `mapstructure:"stop_timeout"`
	Timezone    string        `mapstructure:"timezone"`
}

// CacheTTL 缓存过期时间（按天计）
func (c CacheConfig) CacheTTL() time.Duration {
	return time.Duration(c.TTLDays) * 24 * time.Hour
}

// LoadConfig 加载 config/config.yaml，.env 与环境变量覆盖敏感项
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // .env 可不存在

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.pprof", true)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("scraper.source_base_url", "https://www.minhchinh.com")
	v.SetDefault("scraper.canonical_base_url", "https://kqxs.pmsa.com.vn/kqxs")
	v.SetDefault("scraper.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.1 Safari/537.36")
	v.SetDefault("scraper.timeout", 30)
	v.SetDefault("scraper.requests_per_second", 1.0)
	v.SetDefault("scraper.producer", "minhchinh")

	v.SetDefault("llm.host", "http://127.0.0.1:11434")
	v.SetDefault("llm.model", "llama3")
	v.SetDefault("llm.timeout", 120)

	v.SetDefault("cache.ttl_days", 10)
	v.SetDefault("cache.max_entries", 512)

	v.SetDefault("retrieval.fallback_days", 2)

	v.SetDefault("watchdog.enabled", true)
	v.SetDefault("watchdog.interval", time.Hour)
	v.SetDefault("watchdog.stop_timeout", 10*time.Second)
	v.SetDefault("watchdog.timezone", "Asia/Ho_Chi_Minh")
}

// overrideFromEnv 环境变量优先级高于 yaml
func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("SCRAPER_PROXY"); v != "" {
		cfg.Scraper.Proxy = v
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		cfg.LLM.Host = v
	}
}

// Location 看门狗与“今天”判定使用的时区，加载失败回退到 UTC+7
func (w WatchdogConfig) Location() *time.Location {
	if w.Timezone != "" {
		if loc, err := time.LoadLocation(w.Timezone); err == nil {
			return loc
		}
	}
	return time.FixedZone("ICT", 7*60*60)
}
