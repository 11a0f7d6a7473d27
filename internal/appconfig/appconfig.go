// internal/appconfig/appconfig.go
// Package appconfig manages loading and interpreting application configuration.
package appconfig

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// DefaultConfigPath is the default path to the application's configuration file.
	DefaultConfigPath = "config/config.json"
	// EnvPrefix is prepended to every configuration key when read from the environment.
	EnvPrefix = "PDFRAG"
	// defaultRequestTimeout is the default timeout for a single remote call.
	defaultRequestTimeout = 60 * time.Second
)

const (
	BackendBolt     = "bolt"
	BackendPostgres = "postgres"

	EmbeddingLocal  = "local"
	EmbeddingOllama = "ollama"
	EmbeddingOpenAI = "openai"
)

// Config represents the top-level application configuration.
type Config struct {
	PDFDir              string `json:"pdfDir" mapstructure:"pdfDir"`
	ChunksCachePath     string `json:"chunksCachePath" mapstructure:"chunksCachePath"`
	EmbeddingsCachePath string `json:"embeddingsCachePath" mapstructure:"embeddingsCachePath"`
	ChunkSize           int    `json:"chunkSize" mapstructure:"chunkSize"`
	ChunkOverlap        int    `json:"chunkOverlap" mapstructure:"chunkOverlap"`

	IndexName string `json:"indexName" mapstructure:"indexName"`
	Namespace string `json:"namespace" mapstructure:"namespace"`
	Dimension int    `json:"dimension" mapstructure:"dimension"`
	Metric    string `json:"metric" mapstructure:"metric"`
	TopK      int    `json:"topK" mapstructure:"topK"`

	VectorStore VectorStore `json:"vectorStore" mapstructure:"vectorStore"`
	Embedding   Embedding   `json:"embedding" mapstructure:"embedding"`
	LLM         LLM         `json:"llm" mapstructure:"llm"`
	Judge       Judge       `json:"judge" mapstructure:"judge"`
	Evaluation  Evaluation  `json:"evaluation" mapstructure:"evaluation"`
	Redis       Redis       `json:"redis" mapstructure:"redis"`
	Server      Server      `json:"server" mapstructure:"server"`

	LogFile        string `json:"logFile,omitempty" mapstructure:"logFile"`
	TimeoutSeconds int    `json:"timeout,omitempty" mapstructure:"timeout"`
	Debug          bool   `json:"debug" mapstructure:"debug"`
	ConfigPath     string `json:"-" mapstructure:"-"`
}

// VectorStore selects and configures the vector index backend.
type VectorStore struct {
	Backend     string `json:"backend" mapstructure:"backend"`
	BoltPath    string `json:"boltPath" mapstructure:"boltPath"`
	PostgresDSN string `json:"postgresDSN,omitempty" mapstructure:"postgresDSN"`
}

// Embedding selects the embedding provider.
type Embedding struct {
	Provider string `json:"provider" mapstructure:"provider"`
	Model    string `json:"model" mapstructure:"model"`
	URL      string `json:"url,omitempty" mapstructure:"url"`
	APIKey   string `json:"apiKey,omitempty" mapstructure:"apiKey"`
}

// LLM configures the OpenAI-compatible chat completion endpoint.
type LLM struct {
	BaseURL     string  `json:"baseURL" mapstructure:"baseURL"`
	Model       string  `json:"model" mapstructure:"model"`
	APIKey      string  `json:"apiKey,omitempty" mapstructure:"apiKey"`
	Temperature float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `json:"maxTokens" mapstructure:"maxTokens"`
}

// Judge configures the LLM-as-judge pass of the evaluator.
type Judge struct {
	Enabled      bool   `json:"enabled" mapstructure:"enabled"`
	Model        string `json:"model,omitempty" mapstructure:"model"`
	MaxTokens    int    `json:"maxTokens" mapstructure:"maxTokens"`
	ContextChars int    `json:"contextChars" mapstructure:"contextChars"`
}

// Evaluation holds the default evaluator file locations.
type Evaluation struct {
	QuestionsPath string `json:"questionsPath" mapstructure:"questionsPath"`
	OutputPath    string `json:"outputPath" mapstructure:"outputPath"`
}

// Redis enables the shared embedding cache when Addr is set.
type Redis struct {
	Addr       string `json:"addr,omitempty" mapstructure:"addr"`
	Password   string `json:"password,omitempty" mapstructure:"password"`
	DB         int    `json:"db" mapstructure:"db"`
	TTLSeconds int    `json:"ttlSeconds" mapstructure:"ttlSeconds"`
}

// Server configures the HTTP API.
type Server struct {
	Addr string `json:"addr" mapstructure:"addr"`
}

// RequestTimeout returns the timeout duration for remote calls, falling back to the default if not specified.
func (c Config) RequestTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LogFilePath returns the path to the application log file, applying a default if not set.
func (c Config) LogFilePath() string {
	if path := c.LogFile; strings.TrimSpace(path) != "" {
		return path
	}
	return "pdfrag.log"
}

// HasLLMCredential reports whether an LLM API key is configured.
func (c Config) HasLLMCredential() bool {
	return strings.TrimSpace(c.LLM.APIKey) != ""
}

// JudgeModel returns the model used for judging, defaulting to the answer model.
func (c Config) JudgeModel() string {
	if m := strings.TrimSpace(c.Judge.Model); m != "" {
		return m
	}
	return c.LLM.Model
}

// RedisTTL returns the embedding cache expiry; zero keeps entries forever.
func (c Config) RedisTTL() time.Duration {
	if c.Redis.TTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Redis.TTLSeconds) * time.Second
}

// Validate checks the configuration for values the pipeline cannot work with.
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return errors.New("chunkSize must be greater than zero")
	}
	if c.ChunkOverlap < 0 {
		return errors.New("chunkOverlap must be zero or greater")
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return errors.New("chunkOverlap must be smaller than chunkSize")
	}
	if c.Dimension <= 0 {
		return errors.New("dimension must be greater than zero")
	}
	if c.TopK < 1 {
		return errors.New("topK must be at least 1")
	}
	if strings.TrimSpace(c.IndexName) == "" {
		return errors.New("indexName is required")
	}
	if strings.TrimSpace(c.Namespace) == "" {
		return errors.New("namespace is required")
	}
	switch c.VectorStore.Backend {
	case BackendBolt:
		if strings.TrimSpace(c.VectorStore.BoltPath) == "" {
			return errors.New("vectorStore.boltPath is required for the bolt backend")
		}
	case BackendPostgres:
		if strings.TrimSpace(c.VectorStore.PostgresDSN) == "" {
			return errors.New("vectorStore.postgresDSN (or DATABASE_URL) is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown vectorStore.backend %q", c.VectorStore.Backend)
	}
	switch c.Embedding.Provider {
	case EmbeddingLocal:
	case EmbeddingOllama:
		if strings.TrimSpace(c.Embedding.URL) == "" {
			return errors.New("embedding.url is required for the ollama provider")
		}
	case EmbeddingOpenAI:
		if strings.TrimSpace(c.Embedding.APIKey) == "" {
			return errors.New("embedding.apiKey (or OPENAI_API_KEY) is required for the openai provider")
		}
	default:
		return fmt.Errorf("unknown embedding.provider %q", c.Embedding.Provider)
	}
	return nil
}

// SetDefaults registers defaults and environment bindings on v. Every key the
// Config knows about gets a default so AutomaticEnv can override it.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("pdfDir", "data/pdfs")
	v.SetDefault("chunksCachePath", "saved/chunks.json")
	v.SetDefault("embeddingsCachePath", "saved/embeddings.gob")
	v.SetDefault("chunkSize", 500)
	v.SetDefault("chunkOverlap", 50)

	v.SetDefault("indexName", "ragproj-v1")
	v.SetDefault("namespace", "rag-proj")
	v.SetDefault("dimension", 384)
	v.SetDefault("metric", "cosine")
	v.SetDefault("topK", 3)

	v.SetDefault("vectorStore.backend", BackendBolt)
	v.SetDefault("vectorStore.boltPath", "saved/vectors.db")
	v.SetDefault("vectorStore.postgresDSN", "")

	v.SetDefault("embedding.provider", EmbeddingLocal)
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.url", "")
	v.SetDefault("embedding.apiKey", "")

	v.SetDefault("llm.baseURL", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.model", "llama3-8b-8192")
	v.SetDefault("llm.apiKey", "")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.maxTokens", 500)

	v.SetDefault("judge.enabled", true)
	v.SetDefault("judge.model", "")
	v.SetDefault("judge.maxTokens", 300)
	v.SetDefault("judge.contextChars", 1000)

	v.SetDefault("evaluation.questionsPath", "evaluation/test_questions.json")
	v.SetDefault("evaluation.outputPath", "evaluation/evaluation_results.json")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttlSeconds", 0)

	v.SetDefault("server.addr", ":8080")

	v.SetDefault("logFile", "")
	v.SetDefault("timeout", int(defaultRequestTimeout.Seconds()))
	v.SetDefault("debug", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Well-known credential names take part alongside the prefixed form.
	_ = v.BindEnv("llm.apiKey", EnvPrefix+"_LLM_APIKEY", "GROQ_API_KEY")
	_ = v.BindEnv("vectorStore.postgresDSN", EnvPrefix+"_VECTORSTORE_POSTGRESDSN", "DATABASE_URL")
	_ = v.BindEnv("embedding.apiKey", EnvPrefix+"_EMBEDDING_APIKEY", "OPENAI_API_KEY")
	_ = v.BindEnv("redis.addr", EnvPrefix+"_REDIS_ADDR", "REDIS_ADDR")
}

// LoadDotEnv loads a .env file from the working directory if one exists.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// Decode materialises the merged viper state into a Config.
func Decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ConfigPath = v.ConfigFileUsed()
	return cfg, nil
}

// Load reads the configuration from path (or DefaultConfigPath) layered over
// defaults and the environment. A missing file is not an error; the
// defaults and environment apply on their own.
func Load(path string) (Config, error) {
	LoadDotEnv()

	v := viper.New()
	SetDefaults(v)

	if path == "" {
		path = DefaultConfigPath
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("could not read config file %q: %w", path, err)
		}
	}

	cfg, err := Decode(v)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
