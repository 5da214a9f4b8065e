package config

import (
	"encoding/json"
	"time"
)

// Config represents the complete configuration of the tubechat service.
type Config struct {
	Server     ServerConfig     `koanf:"server"     validate:"required"`
	Database   DatabaseConfig   `koanf:"database"`
	Redis      RedisConfig      `koanf:"redis"`
	Cache      CacheConfig      `koanf:"cache"`
	OpenAI     OpenAIConfig     `koanf:"openai"`
	Embedder   EmbedderConfig   `koanf:"embedder"`
	VectorDB   VectorDBConfig   `koanf:"vectordb"`
	Indexer    IndexerConfig    `koanf:"indexer"`
	Retrieval  RetrievalConfig  `koanf:"retrieval"`
	Transcript TranscriptConfig `koanf:"transcript"`
	Source     SourceConfig     `koanf:"source"`
	Monitoring MonitoringConfig `koanf:"monitoring"`
	Runtime    RuntimeConfig    `koanf:"runtime"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"             validate:"required"        env:"SERVER_HOST"`
	Port            int           `koanf:"port"             validate:"min=1,max=65535" env:"SERVER_PORT"`
	ReadTimeout     time.Duration `koanf:"read_timeout"                                env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `koanf:"write_timeout"                               env:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"                            env:"SERVER_SHUTDOWN_TIMEOUT"`
}

// DatabaseConfig contains PostgreSQL connection configuration.
type DatabaseConfig struct {
	ConnString      string          `koanf:"conn_string"       env:"DB_CONN_STRING"`
	Host            string          `koanf:"host"              env:"DB_HOST"`
	Port            string          `koanf:"port"              env:"DB_PORT"`
	User            string          `koanf:"user"              env:"DB_USER"`
	Password        SensitiveString `koanf:"password"          env:"DB_PASSWORD"          sensitive:"true"`
	DBName          string          `koanf:"name"              env:"DB_NAME"`
	SSLMode         string          `koanf:"ssl_mode"          env:"DB_SSL_MODE"`
	MaxOpenConns    int             `koanf:"max_open_conns"    env:"DB_MAX_OPEN_CONNS"    validate:"min=0"`
	MaxIdleConns    int             `koanf:"max_idle_conns"    env:"DB_MAX_IDLE_CONNS"    validate:"min=0"`
	ConnMaxLifetime time.Duration   `koanf:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
	PingTimeout     time.Duration   `koanf:"ping_timeout"      env:"DB_PING_TIMEOUT"`
	AutoMigrate     bool            `koanf:"auto_migrate"      env:"DB_AUTO_MIGRATE"`
}

// RedisConfig contains the shared redis connection.
type RedisConfig struct {
	Addr        string          `koanf:"addr"         env:"REDIS_ADDR"`
	Password    SensitiveString `koanf:"password"     env:"REDIS_PASSWORD"     sensitive:"true"`
	DB          int             `koanf:"db"           env:"REDIS_DB"           validate:"min=0"`
	PingTimeout time.Duration   `koanf:"ping_timeout" env:"REDIS_PING_TIMEOUT"`
	Embedded    bool            `koanf:"embedded"     env:"REDIS_EMBEDDED"`
}

// CacheConfig controls the transcript record cache.
type CacheConfig struct {
	Enabled     bool          `koanf:"enabled"      env:"CACHE_ENABLED"`
	TTL         time.Duration `koanf:"ttl"          env:"CACHE_TTL"`
	KeyPrefix   string        `koanf:"key_prefix"   env:"CACHE_KEY_PREFIX"`
	LocalMaxMiB int64         `koanf:"local_max_mb" env:"CACHE_LOCAL_MAX_MB" validate:"min=0"`
}

// OpenAIConfig contains OpenAI-compatible API configuration.
type OpenAIConfig struct {
	APIKey         SensitiveString `koanf:"api_key"         env:"OPENAI_API_KEY"         sensitive:"true"`
	BaseURL        string          `koanf:"base_url"        env:"OPENAI_BASE_URL"`
	ChatModel      string          `koanf:"chat_model"      env:"OPENAI_CHAT_MODEL"`
	EmbeddingModel string          `koanf:"embedding_model" env:"OPENAI_EMBEDDING_MODEL"`
	Temperature    float64         `koanf:"temperature"     env:"OPENAI_TEMPERATURE"     validate:"min=0,max=2"`
	MaxAttempts    uint64          `koanf:"max_attempts"    env:"OPENAI_MAX_ATTEMPTS"`
}

// EmbedderConfig controls the embedding adapter.
type EmbedderConfig struct {
	Dimension     int  `koanf:"dimension"       env:"EMBEDDER_DIMENSION"       validate:"min=1"`
	BatchSize     int  `koanf:"batch_size"      env:"EMBEDDER_BATCH_SIZE"      validate:"min=1"`
	CacheSize     int  `koanf:"cache_size"      env:"EMBEDDER_CACHE_SIZE"      validate:"min=0"`
	StripNewLines bool `koanf:"strip_new_lines" env:"EMBEDDER_STRIP_NEW_LINES"`
}

// VectorDBConfig selects the chunk store backend.
type VectorDBConfig struct {
	Provider    string `koanf:"provider"     env:"VECTORDB_PROVIDER"     validate:"oneof=pgvector redis memory"`
	Table       string `koanf:"table"        env:"VECTORDB_TABLE"`
	KeyPrefix   string `koanf:"key_prefix"   env:"VECTORDB_KEY_PREFIX"`
	EnsureIndex bool   `koanf:"ensure_index" env:"VECTORDB_ENSURE_INDEX"`
}

// IndexerConfig controls the background chunk indexing pool.
type IndexerConfig struct {
	Workers    int           `koanf:"workers"     env:"INDEXER_WORKERS"     validate:"min=1"`
	QueueSize  int           `koanf:"queue_size"  env:"INDEXER_QUEUE_SIZE"  validate:"min=1"`
	EmbedRate  float64       `koanf:"embed_rate"  env:"INDEXER_EMBED_RATE"  validate:"min=0"`
	EmbedBurst int           `koanf:"embed_burst" env:"INDEXER_EMBED_BURST" validate:"min=1"`
	JobTimeout time.Duration `koanf:"job_timeout" env:"INDEXER_JOB_TIMEOUT"`
}

// RetrievalConfig holds the relevance selection thresholds.
type RetrievalConfig struct {
	TopK          int     `koanf:"top_k"          env:"RETRIEVAL_TOP_K"          validate:"min=1"`
	MinCompletion float64 `koanf:"min_completion" env:"RETRIEVAL_MIN_COMPLETION" validate:"min=0,max=1"`
	MinSimilarity float64 `koanf:"min_similarity" env:"RETRIEVAL_MIN_SIMILARITY" validate:"min=-1,max=1"`
}

// TranscriptConfig controls bucketing and prompt budgets.
type TranscriptConfig struct {
	WindowSize int  `koanf:"window_size" env:"TRANSCRIPT_WINDOW_SIZE" validate:"min=1"`
	MaxChars   int  `koanf:"max_chars"   env:"TRANSCRIPT_MAX_CHARS"   validate:"min=1"`
	Summarize  bool `koanf:"summarize"   env:"TRANSCRIPT_SUMMARIZE"`
}

// SourceConfig selects where captions come from.
type SourceConfig struct {
	Provider    string        `koanf:"provider"     env:"SOURCE_PROVIDER"     validate:"oneof=ytdlp file"`
	Binary      string        `koanf:"binary"       env:"SOURCE_BINARY"`
	Dir         string        `koanf:"dir"          env:"SOURCE_DIR"`
	Languages   []string      `koanf:"languages"    env:"SOURCE_LANGUAGES"`
	Timeout     time.Duration `koanf:"timeout"      env:"SOURCE_TIMEOUT"`
	MaxAttempts uint64        `koanf:"max_attempts" env:"SOURCE_MAX_ATTEMPTS"`
}

// MonitoringConfig toggles the metrics endpoint.
type MonitoringConfig struct {
	Enabled bool   `koanf:"enabled" env:"MONITORING_ENABLED"`
	Path    string `koanf:"path"    env:"MONITORING_PATH"`
}

// RuntimeConfig contains runtime behavior configuration.
type RuntimeConfig struct {
	Environment string `koanf:"environment" validate:"oneof=development staging production" env:"RUNTIME_ENVIRONMENT"`
	LogLevel    string `koanf:"log_level"   validate:"oneof=debug info warn error"          env:"RUNTIME_LOG_LEVEL"`
}

// SensitiveString hides its value when printed or serialized.
type SensitiveString string

const redacted = "[REDACTED]"

func (s SensitiveString) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

func (s SensitiveString) Value() string {
	return string(s)
}

func (s SensitiveString) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            5080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    2 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            "5432",
			User:            "postgres",
			DBName:          "tubechat",
			SSLMode:         "disable",
			MaxOpenConns:    20,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
			PingTimeout:     3 * time.Second,
			AutoMigrate:     true,
		},
		Redis: RedisConfig{
			Addr:        "localhost:6379",
			PingTimeout: 3 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:     true,
			TTL:         24 * time.Hour,
			KeyPrefix:   "tubechat:record:",
			LocalMaxMiB: 64,
		},
		OpenAI: OpenAIConfig{
			ChatModel:      "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
			Temperature:    0.2,
			MaxAttempts:    3,
		},
		Embedder: EmbedderConfig{
			Dimension:     1536,
			BatchSize:     32,
			CacheSize:     512,
			StripNewLines: true,
		},
		VectorDB: VectorDBConfig{
			Provider:    "pgvector",
			Table:       "transcript_chunks",
			KeyPrefix:   "tubechat:chunks:",
			EnsureIndex: true,
		},
		Indexer: IndexerConfig{
			Workers:    4,
			QueueSize:  64,
			EmbedRate:  20,
			EmbedBurst: 5,
			JobTimeout: 10 * time.Minute,
		},
		Retrieval: RetrievalConfig{
			TopK:          3,
			MinCompletion: 0.95,
			MinSimilarity: 0.37,
		},
		Transcript: TranscriptConfig{
			WindowSize: 20,
			MaxChars:   60000,
			Summarize:  true,
		},
		Source: SourceConfig{
			Provider:    "ytdlp",
			Binary:      "yt-dlp",
			Languages:   []string{"en"},
			Timeout:     2 * time.Minute,
			MaxAttempts: 2,
		},
		Monitoring: MonitoringConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Runtime: RuntimeConfig{
			Environment: "development",
			LogLevel:    "info",
		},
	}
}
