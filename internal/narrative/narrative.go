package narrative

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/i474232898/weather-explorer/internal/weather"
)

// ErrUnavailable is returned whenever a narrative cannot be produced.
// Callers treat it as non-fatal.
var ErrUnavailable = errors.New("weather narrative unavailable")

const (
	defaultBaseURL   = "https://openrouter.ai/api/v1"
	defaultModel     = "openrouter/auto"
	forecastDaysUsed = 3
)

// Completer is the slice of the go-openai client used here.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config configures the completion endpoint.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
}

// Client turns a weather report into a short friendly summary.
type Client struct {
	completer   Completer
	model       string
	maxTokens   int
	temperature float32
	logger      *slog.Logger
}

// NewClient builds a client against an OpenAI-compatible endpoint. Without an
// API key every call fails with ErrUnavailable.
func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	var completer Completer
	if cfg.APIKey != "" {
		oc := openai.DefaultConfig(cfg.APIKey)
		oc.BaseURL = cfg.BaseURL
		if oc.BaseURL == "" {
			oc.BaseURL = defaultBaseURL
		}
		if httpClient != nil {
			oc.HTTPClient = httpClient
		}
		completer = openai.NewClientWithConfig(oc)
	}
	return NewClientWithCompleter(completer, cfg, logger)
}

// NewClientWithCompleter creates a client around an existing completer.
// This is useful for testing.
func NewClientWithCompleter(completer Completer, cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 200
	}
	return &Client{
		completer:   completer,
		model:       model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		logger:      logger.With("component", "narrative-client"),
	}
}

// Generate requests a narrative for the given weather. forecast may be nil.
func (c *Client) Generate(ctx context.Context, current weather.CurrentWeather, forecast []weather.ForecastDay) (string, error) {
	if c.completer == nil {
		return "", fmt.Errorf("%w: completion api key not configured", ErrUnavailable)
	}

	c.logger.Debug("generating narrative", "location", current.Location)

	resp, err := c.completer.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: BuildPrompt(current, forecast),
			},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", ErrUnavailable)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", ErrUnavailable)
	}
	return text, nil
}

// BuildPrompt renders the completion prompt for a report.
func BuildPrompt(current weather.CurrentWeather, forecast []weather.ForecastDay) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a friendly and cheerful weather assistant. Based on the following data for %s, "+
		"write a short, conversational, and helpful weather summary in 2-4 sentences. "+
		"Give a feel for the day and maybe a lighthearted suggestion "+
		"(e.g., 'it's a great day for a walk,' or 'don't forget an umbrella!'). "+
		"Do not just list the data. Be creative and personable.\n\n", current.Location)

	b.WriteString("Current Weather:\n")
	fmt.Fprintf(&b, "- Temperature: %d°C\n", round(current.Temperature))
	fmt.Fprintf(&b, "- Feels Like: %d°C\n", round(current.FeelsLike))
	fmt.Fprintf(&b, "- Condition: %s\n", current.Description)
	fmt.Fprintf(&b, "- Humidity: %d%%\n", current.Humidity)
	fmt.Fprintf(&b, "- Wind: %.1f kph\n\n", current.WindSpeed)

	b.WriteString("Forecast Summary:\n")
	fmt.Fprintf(&b, "- %s\n\n", forecastSummary(forecast))

	b.WriteString("Your creative summary:")
	return b.String()
}

func forecastSummary(forecast []weather.ForecastDay) string {
	if forecast == nil {
		return "No forecast available"
	}

	days := forecast
	if len(days) > forecastDaysUsed {
		days = days[:forecastDaysUsed]
	}

	parts := make([]string, 0, len(days))
	for _, d := range days {
		parts = append(parts, fmt.Sprintf("%s: %d°/%d° %s",
			weekday(d.Date), round(d.Temperature.Max), round(d.Temperature.Min), d.Description))
	}
	return strings.Join(parts, ", ")
}

func weekday(date string) string {
	t, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return date
	}
	return t.Format("Mon")
}

func round(v float64) int {
	return int(math.Round(v))
}
