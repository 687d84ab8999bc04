// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the top-level process configuration loaded from a YAML file,
// following the teacher's internal/drone/config.go defaults-then-override
// pattern but built on viper (the teacher's other services use spf13/viper
// directly; drone/config.go is the one outlier that hand-rolls its own
// viper.SetDefault calls without a config struct tag tree).
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Vector     VectorConfig     `mapstructure:"vector"`
	SQLStore   SQLStoreConfig   `mapstructure:"sql_store"`
	Embeddings EmbeddingsConfig `mapstructure:"embeddings"`
	Proxy      ProxyConfig      `mapstructure:"proxy"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	URL  string           `mapstructure:"url"`
	Pool DatabasePoolConfig `mapstructure:"pool"`
}

type DatabasePoolConfig struct {
	PoolSize    int `mapstructure:"pool_size"`
	PoolRecycle int `mapstructure:"pool_recycle"`
}

type RedisConfig struct {
	Mode       string   `mapstructure:"mode"` // standalone, cluster, sentinel
	Addr       string   `mapstructure:"addr"`
	Addrs      []string `mapstructure:"addrs"`
	DB         int      `mapstructure:"db"`
	Password   string   `mapstructure:"password"`
	MasterName string   `mapstructure:"master_name"`
	QueueKey   string   `mapstructure:"queue_key"`
}

type VectorConfig struct {
	Type          string              `mapstructure:"type"` // elasticsearch, milvus, pgvector
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Milvus        MilvusConfig        `mapstructure:"milvus"`
	PGVector      PGVectorConfig      `mapstructure:"pgvector"`
}

type ElasticsearchConfig struct {
	URL             string `mapstructure:"url"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	KNNNumCandidates int   `mapstructure:"knn_num_candidates"`
	BatchSize       int    `mapstructure:"batch_size"`
}

type MilvusConfig struct {
	Address  string `mapstructure:"address"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type PGVectorConfig struct {
	DSN       string `mapstructure:"dsn"`
	BatchSize int    `mapstructure:"batch_size"`
}

type SQLStoreConfig struct {
	Type string `mapstructure:"type"` // sqlite
}

type EmbeddingModelConfig struct {
	Name        string            `mapstructure:"name"`
	DisplayName string            `mapstructure:"displayName"`
	Dimension   int               `mapstructure:"dimension"`
	Enabled     bool              `mapstructure:"enabled"`
	Type        string            `mapstructure:"type"` // local, api
	ModelPath   string            `mapstructure:"modelPath"`
	APIConfig   EmbeddingAPIConfig `mapstructure:"apiConfig"`
}

type EmbeddingAPIConfig struct {
	URL        string            `mapstructure:"url"`
	Headers    map[string]string `mapstructure:"headers"`
	ResultPath string            `mapstructure:"resultPath"`
}

type EmbeddingsConfig struct {
	Models []EmbeddingModelConfig `mapstructure:"models"`
}

type ProxyConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	URL     string   `mapstructure:"url"`
	Exclude []string `mapstructure:"exclude"`
}

// Load reads configuration from the given YAML file path, applying defaults
// for anything left unset, mirroring the default-then-load order of
// internal/drone/config.go.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("server.port", 5000)
	v.SetDefault("database.pool.pool_size", 30)
	v.SetDefault("database.pool.pool_recycle", 3600)
	v.SetDefault("redis.mode", "standalone")
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.queue_key", "kb:ingestion:tasks")
	v.SetDefault("vector.type", "elasticsearch")
	v.SetDefault("vector.elasticsearch.knn_num_candidates", 100)
	v.SetDefault("vector.elasticsearch.batch_size", 100)
	v.SetDefault("vector.pgvector.batch_size", 100)
	v.SetDefault("sql_store.type", "sqlite")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// ModelByName looks up an embedding model config by name.
func (c *Config) ModelByName(name string) (EmbeddingModelConfig, bool) {
	for _, m := range c.Embeddings.Models {
		if m.Name == name {
			return m, true
		}
	}
	return EmbeddingModelConfig{}, false
}
