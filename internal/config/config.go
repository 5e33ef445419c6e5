package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Log        LogConfig        `mapstructure:"log"`
	Generation GenerationConfig `mapstructure:"generation"`
	AutoSave   AutoSaveConfig   `mapstructure:"autosave"`
	Preview    PreviewConfig    `mapstructure:"preview"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Index      IndexConfig      `mapstructure:"index"`
	Session    SessionConfig    `mapstructure:"session"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GenerationConfig 选择主/备模型供应商
type GenerationConfig struct {
	Provider         string        `mapstructure:"provider"`
	FallbackProvider string        `mapstructure:"fallback_provider"`
	Timeout          time.Duration `mapstructure:"timeout"`
	OpenAI           OpenAIConfig  `mapstructure:"openai"`
	Doubao           DoubaoConfig  `mapstructure:"doubao"`
	Qwen             QwenConfig    `mapstructure:"qwen"`
	Gemini           GeminiConfig  `mapstructure:"gemini"`
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float32 `mapstructure:"temperature"`
}

type DoubaoConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float32 `mapstructure:"temperature"`
}

type QwenConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	Temperature  float32       `mapstructure:"temperature"`
	TopP         float32       `mapstructure:"top_p"`
	Timeout      time.Duration `mapstructure:"timeout"`
	DebugRequest bool          `mapstructure:"debug_request"`
}

type GeminiConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
}

// AutoSaveConfig 编辑防抖参数
type AutoSaveConfig struct {
	SaveDelay    time.Duration `mapstructure:"save_delay"`
	PreviewDelay time.Duration `mapstructure:"preview_delay"`
	SaveTimeout  time.Duration `mapstructure:"save_timeout"`
}

type PreviewConfig struct {
	FrameworkURL string `mapstructure:"framework_url"`
	CacheSize    int    `mapstructure:"cache_size"`
	WatchFiles   bool   `mapstructure:"watch_files"`
}

type StorageConfig struct {
	Type          string   `mapstructure:"type"`
	DataDir       string   `mapstructure:"data_dir"`
	PublicBaseURL string   `mapstructure:"public_base_url"`
	S3            S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type IndexConfig struct {
	Type string `mapstructure:"type"`
	DSN  string `mapstructure:"dsn"`
}

type SessionConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

var cfg *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)
	v.SetDefault("server.max_header_bytes", 1<<20)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Accept", "Authorization"})
	v.SetDefault("cors.max_age", 86400)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("generation.provider", "openai")
	v.SetDefault("generation.fallback_provider", "gemini")
	v.SetDefault("generation.timeout", 90*time.Second)
	v.SetDefault("generation.openai.model", "gpt-4o-mini")
	v.SetDefault("generation.openai.max_tokens", 8000)
	v.SetDefault("generation.openai.temperature", 0.7)
	v.SetDefault("generation.qwen.base_url", "https://dashscope.aliyuncs.com/compatible-mode/v1")
	v.SetDefault("generation.qwen.model", "qwen-plus")
	v.SetDefault("generation.qwen.max_tokens", 8000)
	v.SetDefault("generation.qwen.temperature", 0.7)
	v.SetDefault("generation.qwen.top_p", 0.9)
	v.SetDefault("generation.gemini.model", "gemini-2.0-flash")
	v.SetDefault("generation.gemini.temperature", 0.7)

	v.SetDefault("autosave.save_delay", 500*time.Millisecond)
	v.SetDefault("autosave.preview_delay", 300*time.Millisecond)
	v.SetDefault("autosave.save_timeout", 10*time.Second)

	v.SetDefault("preview.framework_url", "https://cdn.tailwindcss.com")
	v.SetDefault("preview.cache_size", 128)
	v.SetDefault("preview.watch_files", false)

	v.SetDefault("storage.type", "disk")
	v.SetDefault("storage.data_dir", "./user-projects")
	v.SetDefault("storage.public_base_url", "http://localhost:3001")
	v.SetDefault("storage.s3.region", "us-east-1")

	v.SetDefault("index.type", "memory")

	v.SetDefault("session.ttl", 2*time.Hour)
	v.SetDefault("session.cleanup_interval", 10*time.Minute)
}

// Load 读取配置文件，configPath 为空或不存在时只使用默认值和环境变量
func Load(configPath string) (*Config, error) {
	// .env 可选
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SITEBUILDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, err
			}
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, err
	}

	applyEnvFallbacks(c)

	cfg = c
	return c, nil
}

// 配置文件优先，如果配置文件中没有设置，则使用常见的环境变量
func applyEnvFallbacks(c *Config) {
	g := &c.Generation
	if g.OpenAI.APIKey == "" {
		g.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if g.Doubao.APIKey == "" {
		if apiKey := os.Getenv("DOUBAO_API_KEY"); apiKey != "" {
			g.Doubao.APIKey = apiKey
		}
		if apiKey := os.Getenv("ARK_API_KEY"); apiKey != "" {
			g.Doubao.APIKey = apiKey
		}
	}
	if g.Qwen.APIKey == "" {
		g.Qwen.APIKey = os.Getenv("DASHSCOPE_API_KEY")
	}
	if g.Gemini.APIKey == "" {
		g.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.Index.DSN == "" {
		c.Index.DSN = os.Getenv("DATABASE_URL")
	}
}

func Get() *Config {
	return cfg
}
