package config

import "time"

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Guard     GuardConfig     `yaml:"guard"`
	Policy    PolicyConfig    `yaml:"policy"`
	Prompts   PromptsConfig   `yaml:"prompts"`
	Redis     RedisConfig     `yaml:"redis"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	Environment      string        `yaml:"environment"`
	StaticDir        string        `yaml:"static_dir"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

// ServeStatic reports whether the built frontend should be served from
// StaticDir. Only production deployments ship the bundle.
func (s ServerConfig) ServeStatic() bool {
	return s.Environment == "production" && s.StaticDir != ""
}

type UpstreamConfig struct {
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	Model          string        `yaml:"model"`
	SiteURL        string        `yaml:"site_url"`
	Title          string        `yaml:"title"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxAttempts    int           `yaml:"max_attempts"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
}

type RateLimitConfig struct {
	// Backend selects the counter store: "memory" (default, process-local)
	// or "redis" for multi-instance deployments.
	Backend     string        `yaml:"backend"`
	Window      time.Duration `yaml:"window"`
	MaxRequests int           `yaml:"max_requests"`
}

type GuardConfig struct {
	MaxLength int `yaml:"max_length"`
}

type PolicyConfig struct {
	Enabled           bool          `yaml:"enabled"`
	BundlePath        string        `yaml:"bundle_path"`
	EvaluationTimeout time.Duration `yaml:"evaluation_timeout"`
}

type PromptsConfig struct {
	OverridesPath string `yaml:"overrides_path"`
	Watch         bool   `yaml:"watch"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type TelemetryConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	MetricsPort int    `yaml:"metrics_port"`
}

// Overrides optionally replaces the built-in persona templates and tone
// directives used by the prompt builder. Keys are persona/tone names.
type Overrides struct {
	Personas map[string]string `yaml:"personas"`
	Tones    map[string]string `yaml:"tones"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             3000,
			Environment:      "development",
			StaticDir:        "dist",
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     120 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 30 * time.Second,
		},
		Upstream: UpstreamConfig{
			BaseURL:        "https://openrouter.ai/api/v1",
			Model:          "google/gemini-2.5-flash-lite",
			SiteURL:        "https://draftly.gautamkakkar.live",
			Title:          "Ghostwriter",
			Timeout:        30 * time.Second,
			MaxAttempts:    3,
			RetryBaseDelay: time.Second,
		},
		RateLimit: RateLimitConfig{
			Backend:     "memory",
			Window:      time.Minute,
			MaxRequests: 30,
		},
		Guard: GuardConfig{
			MaxLength: 5000,
		},
		Policy: PolicyConfig{
			Enabled:           false,
			BundlePath:        "policies",
			EvaluationTimeout: 100 * time.Millisecond,
		},
		Redis: RedisConfig{
			Address:  "localhost:6379",
			DB:       0,
			PoolSize: 50,
		},
		Telemetry: TelemetryConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			MetricsPort: 9090,
		},
	}
}
