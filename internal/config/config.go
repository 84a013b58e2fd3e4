package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server     ServerConfig
	Log        LogConfig
	AI         AIConfig
	Completion CompletionConfig
	Gemini     GeminiConfig
	Hosted     HostedConfig
	Router     RouterConfig
	Emotion    EmotionConfig
	Storage    StorageConfig
	Display    DisplayConfig
	Persona    PersonaConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	completion, err := loadCompletionConfig()
	if err != nil {
		return nil, err
	}

	router, err := loadRouterConfig()
	if err != nil {
		return nil, err
	}

	emotion, err := loadEmotionConfig()
	if err != nil {
		return nil, err
	}

	display, err := loadDisplayConfig()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server:     server,
		Log:        LogConfig{Level: strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info"))},
		AI:         ai,
		Completion: completion,
		Gemini: GeminiConfig{
			APIKey: strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
			Model:  getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		},
		Hosted: HostedConfig{
			URL:       getEnvOrDefault("HOSTED_API_URL", "https://Yuki-Chen-emochatbot.hf.space/dialogflow"),
			SessionID: getEnvOrDefault("HOSTED_SESSION_ID", ""),
		},
		Router:  router,
		Emotion: emotion,
		Storage: StorageConfig{DBPath: getEnvOrDefault("DB_PATH", "./data/lumi.db")},
		Display: display,
		Persona: PersonaConfig{File: strings.TrimSpace(os.Getenv("PERSONA_FILE"))},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks enumerated settings and required values.
func (c *Config) Validate() error {
	switch c.Router.Mode {
	case ModeGenerate, ModeHosted:
	default:
		return fmt.Errorf("ROUTER_MODE must be %q or %q, got %q", ModeGenerate, ModeHosted, c.Router.Mode)
	}
	switch c.Router.Backend {
	case BackendCompletion, BackendArk, BackendGemini, BackendNone:
	default:
		return fmt.Errorf("unknown GENERATION_BACKEND %q", c.Router.Backend)
	}
	switch c.Emotion.Backend {
	case EmotionLexicon, EmotionLLM, EmotionDisabled:
	default:
		return fmt.Errorf("unknown EMOTION_BACKEND %q", c.Emotion.Backend)
	}
	if c.Router.Mode == ModeHosted && c.Hosted.URL == "" {
		return fmt.Errorf("HOSTED_API_URL cannot be empty in hosted mode")
	}
	if c.Router.CacheSize < 0 {
		return fmt.Errorf("RESPONSE_CACHE_SIZE must be >= 0")
	}
	if c.Router.GenerationTimeout <= 0 {
		return fmt.Errorf("GENERATION_TIMEOUT must be > 0")
	}
	if c.Storage.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	return nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr            string
	SessionTTL      time.Duration
	JanitorInterval time.Duration
	AllowedOrigins  []string
}

// loadServerConfig 解析服务器监听地址与会话过期设置。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	var addr string
	switch {
	case strings.Contains(port, ":"):
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		addr = port
	case strings.Contains(port, " "):
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	default:
		addr = ":" + port
	}

	ttl, err := parseDurationEnv("SESSION_TTL", 60*time.Minute)
	if err != nil {
		return ServerConfig{}, err
	}
	interval, err := parseDurationEnv("SESSION_JANITOR_INTERVAL", time.Minute)
	if err != nil {
		return ServerConfig{}, err
	}

	var origins []string
	for _, origin := range strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}

	return ServerConfig{Addr: addr, SessionTTL: ttl, JanitorInterval: interval, AllowedOrigins: origins}, nil
}

// LogConfig 控制日志级别。
type LogConfig struct {
	Level string
}

// AIConfig 描述 Ark 大模型相关配置。
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: set ARK_API_KEY + ARK_MODEL or an AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// CompletionConfig 描述 OpenAI 兼容的补全接口。
type CompletionConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Enabled reports whether an API key is configured.
func (c CompletionConfig) Enabled() bool {
	return c.APIKey != ""
}

func loadCompletionConfig() (CompletionConfig, error) {
	apiKey := strings.TrimSpace(os.Getenv("COMPLETION_API_KEY"))
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv("GROQ_API_KEY"))
	}
	return CompletionConfig{
		BaseURL: getEnvOrDefault("COMPLETION_BASE_URL", "https://api.groq.com/openai/v1"),
		APIKey:  apiKey,
		Model:   getEnvOrDefault("COMPLETION_MODEL", "llama-3.3-70b-versatile"),
	}, nil
}

// GeminiConfig 描述 Gemini 生成配置。
type GeminiConfig struct {
	APIKey string
	Model  string
}

// HostedConfig 描述托管的情绪回复接口。
type HostedConfig struct {
	URL       string
	SessionID string
}

// Router modes.
const (
	ModeGenerate = "generate"
	ModeHosted   = "hosted"
)

// Generation backends.
const (
	BackendCompletion = "completion"
	BackendArk        = "ark"
	BackendGemini     = "gemini"
	BackendNone       = "none"
)

// RouterConfig 控制单轮对话的处理流程。
type RouterConfig struct {
	Mode               string
	Backend            string
	SplitSentences     bool
	SmallTalk          bool
	ShortInputFallback bool
	GenerationTimeout  time.Duration
	CacheSize          int
}

func loadRouterConfig() (RouterConfig, error) {
	split, err := parseBoolEnv("ROUTER_SPLIT_SENTENCES", false)
	if err != nil {
		return RouterConfig{}, err
	}
	smallTalk, err := parseBoolEnv("ROUTER_SMALL_TALK", false)
	if err != nil {
		return RouterConfig{}, err
	}
	shortInput, err := parseBoolEnv("ROUTER_SHORT_INPUT_FALLBACK", false)
	if err != nil {
		return RouterConfig{}, err
	}
	timeout, err := parseDurationEnv("GENERATION_TIMEOUT", 15*time.Second)
	if err != nil {
		return RouterConfig{}, err
	}

	cacheSize := 128
	if override, err := parseOptionalIntEnv("RESPONSE_CACHE_SIZE"); err != nil {
		return RouterConfig{}, err
	} else if override != nil {
		cacheSize = *override
	}

	return RouterConfig{
		Mode:               strings.ToLower(getEnvOrDefault("ROUTER_MODE", ModeGenerate)),
		Backend:            strings.ToLower(getEnvOrDefault("GENERATION_BACKEND", BackendCompletion)),
		SplitSentences:     split,
		SmallTalk:          smallTalk,
		ShortInputFallback: shortInput,
		GenerationTimeout:  timeout,
		CacheSize:          cacheSize,
	}, nil
}

// Emotion backends.
const (
	EmotionLexicon  = "lexicon"
	EmotionLLM      = "llm"
	EmotionDisabled = "disabled"
)

// EmotionConfig 控制情绪分类器。
type EmotionConfig struct {
	Backend string
	TopK    int
}

func loadEmotionConfig() (EmotionConfig, error) {
	topK := 3
	if override, err := parseOptionalIntEnv("EMOTION_TOP_K"); err != nil {
		return EmotionConfig{}, err
	} else if override != nil && *override > 0 {
		topK = *override
	}
	return EmotionConfig{
		Backend: strings.ToLower(getEnvOrDefault("EMOTION_BACKEND", EmotionLexicon)),
		TopK:    topK,
	}, nil
}

// StorageConfig 描述对话记录的持久化位置。
type StorageConfig struct {
	DBPath string
}

// DisplayConfig 控制展示层的时区与头像。
type DisplayConfig struct {
	TimezoneLookupURL string
	DefaultTimezone   string
	LookupTimeout     time.Duration
	LookupRetry       time.Duration
	AvatarPath        string
}

func loadDisplayConfig() (DisplayConfig, error) {
	timeout, err := parseDurationEnv("TIMEZONE_LOOKUP_TIMEOUT", 5*time.Second)
	if err != nil {
		return DisplayConfig{}, err
	}
	retry, err := parseDurationEnv("TIMEZONE_LOOKUP_RETRY", 5*time.Minute)
	if err != nil {
		return DisplayConfig{}, err
	}
	return DisplayConfig{
		TimezoneLookupURL: getEnvOrDefault("TIMEZONE_LOOKUP_URL", "https://ipinfo.io/json"),
		DefaultTimezone:   getEnvOrDefault("DEFAULT_TIMEZONE", "UTC"),
		LookupTimeout:     timeout,
		LookupRetry:       retry,
		AvatarPath:        getEnvOrDefault("AVATAR_PATH", "./assets/lumi.png"),
	}, nil
}

// PersonaConfig 指定可选的人设覆盖文件。
type PersonaConfig struct {
	File string
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
