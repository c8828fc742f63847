package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "config.yaml"

type Config struct {
	Server    Server    `yaml:"server"`
	DB        DB        `yaml:"db"`
	JWT       JWT       `yaml:"jwt"`
	Model     Model     `yaml:"model"`
	Assistant Assistant `yaml:"assistant"`
	MCP       MCP       `yaml:"mcp"`
	OSS       OSS       `yaml:"oss"`
	MQ        MQ        `yaml:"mq"`
	Milvus    Milvus    `yaml:"milvus"`
	ASR       ASR       `yaml:"asr"`
}

type Server struct {
	Port string `yaml:"port"`
}

type DB struct {
	DSN string `yaml:"dsn"`
}

type JWT struct {
	SecretKey string `yaml:"secret_key"`
}

type Model struct {
	APIKey string `yaml:"api_key"`
	Name   string `yaml:"name"`
}

// Assistant configures the chat assistant core.
type Assistant struct {
	// Full URL of the agent chat endpoint consumed by the stream orchestrator
	ChatEndpoint string `yaml:"chat_endpoint"`

	// When false, DetectContext always returns TopicGeneral
	ContextDetection bool `yaml:"context_detection"`

	// Message list ceiling; the welcome message is pinned at index 0
	MaxMessages int `yaml:"max_messages"`

	// Seconds without a chunk before an in-flight stream is treated as stalled.
	// Zero disables the watchdog.
	IdleTimeoutSeconds int `yaml:"idle_timeout_seconds"`
}

type MCP struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    string `yaml:"port"`
}

type OSS struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	AccessKeySecret string `yaml:"access_key_secret"`
	BucketName      string `yaml:"bucket_name"`
	CallbackURL     string `yaml:"callback_url"`
}

type MQ struct {
	NameServer []string `yaml:"name_server"`
}

type Milvus struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
}

type ASR struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
}

var Cfg Config

func init() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultConfigPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		// Tests and one-off tools run without a config file
		return
	}

	if err := yaml.Unmarshal(data, &Cfg); err != nil {
		panic(fmt.Sprintf("failed to parse config %s: %v", path, err))
	}
}
