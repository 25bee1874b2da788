// Package summary produces the short descriptive string attached to a ride
// after it is saved. The core is agnostic to how the text is produced; this
// package is the Gemini-backed producer plus a stub for tests and
// configurations without an API key.
package summary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/danmcgrath10/cyclora/internal/model"
)

const defaultModel = "gemini-2.0-flash"

// Generator produces a descriptive summary for a completed ride.
type Generator interface {
	Generate(ctx context.Context, r *model.Ride) (string, error)
}

// GeminiGenerator generates summaries with the Gemini API. Calls are paced
// by a rate limiter so a burst of saves cannot stampede the API.
type GeminiGenerator struct {
	client  *genai.Client
	model   string
	limiter *rate.Limiter
}

// NewGeminiGenerator creates a generator. model may be empty for the
// default; requestsPerMinute must be positive.
func NewGeminiGenerator(ctx context.Context, apiKey, model string, requestsPerMinute int) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("summary generator requires an API key")
	}
	if model == "" {
		model = defaultModel
	}
	if requestsPerMinute <= 0 {
		return nil, fmt.Errorf("requests_per_minute must be positive, got %d", requestsPerMinute)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("creating summary client: %w", err)
	}

	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
	return &GeminiGenerator{client: client, model: model, limiter: limiter}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, r *model.Ride) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for summary rate limit: %w", err)
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model,
		genai.Text(buildPrompt(r)), nil)
	if err != nil {
		return "", fmt.Errorf("generating summary: %w", err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", fmt.Errorf("summary model returned no text")
	}
	return text, nil
}

// buildPrompt renders the ride's measurements into the generation prompt.
// Route points are deliberately excluded: the stats are enough and the
// point sequence can be large.
func buildPrompt(r *model.Ride) string {
	var b strings.Builder
	b.WriteString("Write one encouraging sentence summarizing this bike ride for the rider's journal. ")
	b.WriteString("Mention the distance and pace. No preamble, no quotes.\n\n")
	fmt.Fprintf(&b, "Date: %s\n", r.Timestamp.Format("Monday, January 2 2006"))
	fmt.Fprintf(&b, "Distance: %.1f km\n", r.Distance)
	fmt.Fprintf(&b, "Duration: %s\n", (time.Duration(r.Duration) * time.Second).String())
	fmt.Fprintf(&b, "Average speed: %.1f km/h\n", r.AverageSpeed)
	if r.MaxSpeed != nil {
		fmt.Fprintf(&b, "Max speed: %.1f km/h\n", *r.MaxSpeed)
	}
	return b.String()
}

// StaticGenerator returns a fixed string, or fails when Err is set.
// Use in tests and as the no-op generator when summaries are disabled.
type StaticGenerator struct {
	Text string
	Err  error
}

func (g *StaticGenerator) Generate(context.Context, *model.Ride) (string, error) {
	return g.Text, g.Err
}

var (
	_ Generator = (*GeminiGenerator)(nil)
	_ Generator = (*StaticGenerator)(nil)
)
