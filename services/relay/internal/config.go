package internal

import (
	"os"
	"strconv"
)

type Config struct {
	Port          string
	Model         string
	QueueCapacity int
	QueuePolicy   string
	Samples       int     // 0 = catalogue default
	Temperature   float64 // negative = catalogue default
	PromptFormat  string
	StrictParse   bool

	TemplatesDir string
	OutputDir    string
	ModelsFile   string

	AIBinary      string
	AnthropicKey  string
	OpenRouterKey string
	AMQPURL       string
}

func ConfigFromEnv() Config {
	return Config{
		Port:          env("RELAY_PORT", "8080"),
		Model:         env("RELAY_MODEL", "simulated"),
		QueueCapacity: envInt("RELAY_QUEUE_CAPACITY", 32),
		QueuePolicy:   env("RELAY_QUEUE_POLICY", "block"),
		Samples:       envInt("RELAY_SAMPLES", 0),
		Temperature:   envFloat("RELAY_TEMPERATURE", -1),
		PromptFormat:  env("RELAY_PROMPT_FORMAT", "text"),
		StrictParse:   envBool("RELAY_STRICT_PARSE", false),
		TemplatesDir:  env("TEMPLATES_DIR", "./templates"),
		OutputDir:     env("OUTPUT_DIR", "./responses"),
		ModelsFile:    env("MODELS_FILE", ""),
		AIBinary:      env("AI_BINARY", ""),
		AnthropicKey:  env("ANTHROPIC_API_KEY", ""),
		OpenRouterKey: env("OPENROUTER_API_KEY", ""),
		AMQPURL:       env("AMQP_URL", ""),
	}
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		n, _ := strconv.Atoi(v)
		if n > 0 {
			return n
		}
	}
	return def
}

func envFloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
