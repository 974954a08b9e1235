package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"golang.org/x/time/rate"
)

// defaultSystemPrompt frames the persona the AI command answers as.
const defaultSystemPrompt = "角色：抖音网红那艺娜的老公\n\n姓名：张兵\n\n性别：男\n\n功能：\n\n--接受用户提问，进行回复。那艺娜的相关信息如下\n\n\"1、代表作《爱如火》和《贝如塔》\n\n2、口头禅'你妈妈才是男的'\"\n\n限定：\n\n--如果用户发送\"@张兵 那艺娜\"，回复：砰砰砰\n\n--如果用户询问张兵恋情相关问题，则回复\"我从来没说过我爱娜娜\""

// Config holds all application configuration
type Config struct {
	// Server
	Host string `env:"HOST,default=0.0.0.0"`
	Port string `env:"PORT,default=8888"`

	// Storage
	BadgerFilepath string `env:"BADGER_FILEPATH,default=./data/badger"`
	PDFDir         string `env:"PDF_DIR,default=./pdf_news"`
	PDFFontPath    string `env:"PDF_FONT_PATH,default=./fonts/NotoSansSC-Regular.ttf"`

	// Security
	Origins    string `env:"ALLOWED_ORIGINS"`
	SessionTTL int    `env:"SESSION_TTL_HOURS,default=24"`

	// Rate Limiting
	RateLimitAPI    int `env:"RATE_LIMIT_API,default=10"`
	RateLimitWS     int `env:"RATE_LIMIT_WS,default=5"`
	RateLimitStrict int `env:"RATE_LIMIT_STRICT,default=2"`

	// Logging
	LogLevel string `env:"LOG_LEVEL,default=info"`

	// External APIs
	MusicAPIBaseURL string `env:"MUSIC_API_BASE_URL,default=https://v2.xxapi.cn"`
	MusicAPIKey     string `env:"MUSIC_API_KEY"`
	NewsURL         string `env:"NEWS_URL,default=https://60s.coom.cn/hot/"`
	QWeatherURL     string `env:"QWEATHER_URL,default=https://devapi.qweather.com/v7/weather/now"`
	QWeatherKey     string `env:"QWEATHER_KEY"`
	WttrURL         string `env:"WTTR_URL,default=https://wttr.in"`
	OpenWeatherURL  string `env:"OPENWEATHER_URL,default=https://api.openweathermap.org/data/2.5/weather"`
	OpenWeatherKey  string `env:"OPENWEATHER_KEY"`
	MovieParseURL   string `env:"MOVIE_PARSE_URL,default=https://jx.m3u8.tv/jiexi/?url="`

	AI AIConfig
}

// AIConfig holds the chat model credentials and sampling parameters.
type AIConfig struct {
	APIKey       string  `env:"ARK_API_KEY"`
	BaseURL      string  `env:"ARK_BASE_URL,default=https://ark.cn-beijing.volces.com/api/v3"`
	Region       string  `env:"ARK_REGION,default=cn-beijing"`
	Model        string  `env:"ARK_MODEL"`
	Temperature  float64 `env:"ARK_TEMPERATURE,default=0.7"`
	MaxTokens    int     `env:"ARK_MAX_TOKENS,default=1024"`
	SystemPrompt string  `env:"AI_SYSTEM_PROMPT"`
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if cfg.AI.SystemPrompt == "" {
		cfg.AI.SystemPrompt = defaultSystemPrompt
	}
	return &cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// AllowedOrigins parses the comma-separated origins list. An empty list
// means same-host origins only.
func (c *Config) AllowedOrigins() []string {
	if c.Origins == "" {
		return nil
	}
	parts := strings.Split(c.Origins, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

func (c *Config) SessionDuration() time.Duration {
	return time.Duration(c.SessionTTL) * time.Hour
}

func (c *Config) APILimit() rate.Limit    { return rate.Limit(c.RateLimitAPI) }
func (c *Config) WSLimit() rate.Limit     { return rate.Limit(c.RateLimitWS) }
func (c *Config) StrictLimit() rate.Limit { return rate.Limit(c.RateLimitStrict) }

// Enabled reports whether the model credentials are present.
func (c AIConfig) Enabled() bool {
	return c.APIKey != "" && c.Model != ""
}

// NewChatModel builds an Ark model instance from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ai config incomplete: ARK_API_KEY and ARK_MODEL are required")
	}

	temperature := float32(c.Temperature)
	maxTokens := c.MaxTokens

	return ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		Model:       c.Model,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
}
