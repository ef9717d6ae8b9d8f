package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/prasertk/shopassist/agent/contract"
)

type Config struct {
	BaseURL             string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.openai.com/v1"`
	APIKey              string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model               string        `envconfig:"MODEL" split_words:"true" default:"gpt-4o-mini"`
	MaxCompletionTokens int           `envconfig:"MAX_COMPLETION_TOKENS" split_words:"true" default:"2000"`
	Temperature         float64       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout             time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`

	// OpenRouter-compatible attribution headers, optional.
	SiteURL  string `envconfig:"SITE_URL" split_words:"true"`
	SiteName string `envconfig:"SITE_NAME" split_words:"true"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: completion api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: completion model is required", contractx.ErrValidation)
	}
	return nil
}
