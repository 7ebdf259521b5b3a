package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the quarry gateway configuration.
type Config struct {
	Backend BackendConfig                 `yaml:"backend"`
	Search  SearchConfig                  `yaml:"search"`
	Cache   CacheConfig                   `yaml:"cache"`
	URLs    map[string]URLGeneratorConfig `yaml:"url_generators"`
	Metrics MetricsConfig                 `yaml:"metrics"`
	Logging LoggingConfig                 `yaml:"logging"`
}

// BackendConfig holds vector backend connection settings.
type BackendConfig struct {
	APIKey      string `yaml:"api_key"`
	DenseHost   string `yaml:"dense_host"`
	SparseHost  string `yaml:"sparse_host"`
	LexicalHost string `yaml:"lexical_host"`
	RerankHost  string `yaml:"rerank_host"`
	RerankModel string `yaml:"rerank_model"`
}

// SearchConfig holds retrieval limits.
type SearchConfig struct {
	MaxTopK              int `yaml:"max_top_k"`               // ceiling for caller top_k (default 100)
	CountTopK            int `yaml:"count_top_k"`             // internal ceiling for count (default 10000)
	SampleSize           int `yaml:"sample_size"`             // records sampled per namespace (default 5)
	MaxContentLength     int `yaml:"max_content_length"`      // content truncation (default 2000)
	MaxChunksPerDocument int `yaml:"max_chunks_per_document"` // reassembly cap (default 200)
	MaxDocumentTopK      int `yaml:"max_document_top_k"`      // ceiling for query_documents (default 20)
}

// CacheConfig holds namespace cache and suggestion flow TTL settings.
type CacheConfig struct {
	TTLMinutes int `yaml:"ttl_min"` // default 30
}

// URLGeneratorConfig binds a namespace to a URL generation strategy.
type URLGeneratorConfig struct {
	Kind    string `yaml:"kind"` // list_archive, chat_permalink
	BaseURL string `yaml:"base_url"`
}

// MetricsConfig holds the optional Prometheus listener settings.
type MetricsConfig struct {
	Port int `yaml:"port"` // 0 disables the listener
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
	Debug bool   `yaml:"debug"` // surface raw error text to callers
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Search.MaxTopK <= 0 {
		c.Search.MaxTopK = 100
	}
	if c.Search.CountTopK <= 0 {
		c.Search.CountTopK = 10000
	}
	if c.Search.SampleSize <= 0 {
		c.Search.SampleSize = 5
	}
	if c.Search.MaxContentLength <= 0 {
		c.Search.MaxContentLength = 2000
	}
	if c.Search.MaxChunksPerDocument <= 0 {
		c.Search.MaxChunksPerDocument = 200
	}
	if c.Search.MaxDocumentTopK <= 0 {
		c.Search.MaxDocumentTopK = 20
	}
	if c.Cache.TTLMinutes <= 0 {
		c.Cache.TTLMinutes = 30
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.Backend.APIKey == "" {
		return fmt.Errorf("backend.api_key is required")
	}
	if c.Backend.DenseHost == "" {
		return fmt.Errorf("backend.dense_host is required")
	}
	if c.Backend.RerankHost != "" && c.Backend.RerankModel == "" {
		return fmt.Errorf("backend.rerank_model is required when rerank_host is set")
	}
	for ns, gen := range c.URLs {
		switch gen.Kind {
		case "list_archive", "chat_permalink":
			// ok
		default:
			return fmt.Errorf(
				"url_generators.%s.kind must be \"list_archive\" or \"chat_permalink\", got %q",
				ns, gen.Kind,
			)
		}
		if gen.BaseURL == "" {
			return fmt.Errorf("url_generators.%s.base_url is required", ns)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
