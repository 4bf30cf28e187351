package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ProviderConfig holds one vendor's credentials and endpoint. Constructed
// once at process start and passed by reference; nothing reads ambient
// environment at call time.
type ProviderConfig struct {
	Key     string `yaml:"key"`
	BaseURL string `yaml:"base_url"`
}

// ModelConfig binds a public model id to a provider and its variant pair.
// The secondary variant is retried once when the primary fails with a
// capacity-class error.
type ModelConfig struct {
	Provider  string `yaml:"provider"`
	Primary   string `yaml:"primary"`
	Secondary string `yaml:"secondary"`
}

// EmbedderConfig is one entry in the ordered embedding chain.
type EmbedderConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

type WebSearchConfig struct {
	Key     string `yaml:"key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type RAGConfig struct {
	ChunkSize      int     `yaml:"chunk_size"`
	ChunkOverlap   int     `yaml:"chunk_overlap"`
	TopK           int     `yaml:"top_k"`
	VectorFloor    float64 `yaml:"vector_floor"`
	LexicalScore   float64 `yaml:"lexical_score"`
	SnippetMaxLen  int     `yaml:"snippet_max_len"`
	RecoveryModel  string  `yaml:"recovery_model"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"` // postgres | embedded
	DSN    string `yaml:"dsn"`
	Key    string `yaml:"key"`
	Path   string `yaml:"path"`
	Debug  bool   `yaml:"debug"`
}

type Config struct {
	Providers  map[string]ProviderConfig `yaml:"providers"`
	Models     map[string]ModelConfig    `yaml:"models"`
	Chains     map[string][]string       `yaml:"chains"` // answer, verify
	Embedders  []EmbedderConfig          `yaml:"embedders"`
	WebSearch  WebSearchConfig           `yaml:"web_search"`
	RAG        RAGConfig                 `yaml:"rag"`
	Storage    StorageConfig             `yaml:"storage"`
	VectorSize int                       `yaml:"vector_size"`
}

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
	defaultTopK         = 8
	defaultVectorFloor  = 0.35
	defaultLexicalScore = 0.30
	defaultSnippetLen   = 600
	defaultTimeoutSecs  = 60
	defaultVectorSize   = 768
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = defaultChunkSize
	}
	if c.RAG.ChunkOverlap == 0 {
		c.RAG.ChunkOverlap = defaultChunkOverlap
	}
	if c.RAG.TopK == 0 {
		c.RAG.TopK = defaultTopK
	}
	if c.RAG.VectorFloor == 0 {
		c.RAG.VectorFloor = defaultVectorFloor
	}
	if c.RAG.LexicalScore == 0 {
		c.RAG.LexicalScore = defaultLexicalScore
	}
	if c.RAG.SnippetMaxLen == 0 {
		c.RAG.SnippetMaxLen = defaultSnippetLen
	}
	if c.RAG.TimeoutSeconds == 0 {
		c.RAG.TimeoutSeconds = defaultTimeoutSecs
	}
	if c.VectorSize == 0 {
		c.VectorSize = defaultVectorSize
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "embedded"
	}
}

func (c *Config) validate() error {
	for id, m := range c.Models {
		if _, ok := c.Providers[m.Provider]; !ok {
			return fmt.Errorf("model %q references unknown provider %q", id, m.Provider)
		}
	}
	for name, chain := range c.Chains {
		for _, id := range chain {
			if _, ok := c.Models[id]; !ok {
				return fmt.Errorf("chain %q references unknown model %q", name, id)
			}
		}
	}
	if c.Storage.Driver != "postgres" && c.Storage.Driver != "embedded" {
		return fmt.Errorf("unknown storage driver: %q", c.Storage.Driver)
	}
	return nil
}
