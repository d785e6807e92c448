// Package narrative asks a language model for a prose summary of enriched rows.
package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"AdvisorDesk/internal/config"
	"AdvisorDesk/internal/pipeline"

	"google.golang.org/genai"
)

// MaxRows caps how many rows go into one prompt.
const MaxRows = 100

const (
	systemInstruction = "You are an insurance analyst. Answer clearly based on the provided policy data."
	defaultQuestion   = "Provide a summary of the following policies."
)

// ClientQuestion asks for the bullet summary of one client's policies.
const ClientQuestion = "The following policies belong to one client of a financial advisor. " +
	"Summarize them in 4 to 5 plain bullet points (•), one per line: start with the number of distinct product types, " +
	"mention duplicate or overlapping product types, highlight expired or expiring policies, " +
	"and optionally note gaps or risks. Use no numbering and no other formatting."

var ErrEmptyResponse = errors.New("model returned no text")

// Narrator produces free text about a set of rows.
type Narrator interface {
	Summarize(ctx context.Context, rows []pipeline.EnrichedRow, question string) (string, error)
}

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GenAINarrator calls Gemini through google.golang.org/genai.
type GenAINarrator struct {
	models  contentGenerator
	model   string
	timeout time.Duration
}

func NewGenAINarrator(ctx context.Context, apiKey, model string, timeout time.Duration) (*GenAINarrator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return newNarrator(client.Models, model, timeout), nil
}

func newNarrator(models contentGenerator, model string, timeout time.Duration) *GenAINarrator {
	if model == "" {
		model = config.DefaultNarrativeModel
	}
	return &GenAINarrator{models: models, model: model, timeout: timeout}
}

// Summarize sends at most MaxRows rows and the question. A blank question asks
// for a general summary.
func (n *GenAINarrator) Summarize(ctx context.Context, rows []pipeline.EnrichedRow, question string) (string, error) {
	prompt, err := BuildPrompt(rows, question)
	if err != nil {
		return "", err
	}
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	resp, err := n.models.GenerateContent(ctx, n.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
	})
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

type promptRow struct {
	Client  string `json:"client"`
	ID      string `json:"clientId"`
	Type    string `json:"type"`
	Premium string `json:"premium,omitempty"`
	Start   string `json:"start,omitempty"`
	End     string `json:"end,omitempty"`
	Status  string `json:"status"`
	Note    string `json:"note,omitempty"`
}

// BuildPrompt renders the question followed by the row data as indented JSON.
func BuildPrompt(rows []pipeline.EnrichedRow, question string) (string, error) {
	if len(rows) > MaxRows {
		rows = rows[:MaxRows]
	}
	data := make([]promptRow, len(rows))
	for i, r := range rows {
		data[i] = promptRow{
			Client: r.ClientName,
			ID:     r.ClientID,
			Type:   r.ProductType,
			Start:  r.StartDate,
			End:    r.EndDate,
			Status: string(r.Status),
			Note:   r.Note,
		}
		if r.PremiumRaw != "" {
			data[i].Premium = r.PremiumAmount.String()
		}
	}
	body, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	q := strings.TrimSpace(question)
	if q == "" {
		q = defaultQuestion
	}
	return q + "\n\nData:\n" + string(body), nil
}

// Disabled is used when no API key is configured.
type Disabled struct{}

var ErrDisabled = errors.New("narrative service is not configured")

func (Disabled) Summarize(context.Context, []pipeline.EnrichedRow, string) (string, error) {
	return "", ErrDisabled
}
