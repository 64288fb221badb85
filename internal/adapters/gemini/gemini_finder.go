package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sos-dispatch-service/internal/domain"
	"sos-dispatch-service/internal/platform/obs"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const DefaultModel = "gemini-2.5-flash"

type Config struct {
	APIKey string
	Model  string
	Limit  int
	// Search radius quoted in the prompt, meters.
	RadiusMeters float64
}

type generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Finder asks a Gemini model for nearby hospitals and parses its JSON reply.
type Finder struct {
	gen    generator
	limit  int
	radius float64
	client *genai.Client
}

func NewFinder(ctx context.Context, cfg Config) (*Finder, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini finder: missing api key")
	}
	if cfg.Limit <= 0 {
		return nil, fmt.Errorf("gemini finder: limit must be positive, got %d", cfg.Limit)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.RadiusMeters <= 0 {
		cfg.RadiusMeters = domain.DefaultRadiusSchedule().Initial
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini finder: create client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = hospitalListSchema()

	return &Finder{
		gen:    &modelGenerator{model: model},
		limit:  cfg.Limit,
		radius: cfg.RadiusMeters,
		client: client,
	}, nil
}

func (f *Finder) Close() error {
	if f.client == nil {
		return nil
	}
	return f.client.Close()
}

func hospitalListSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"name": {
					Type:        genai.TypeString,
					Description: "The official name of the hospital.",
				},
				"address": {
					Type:        genai.TypeString,
					Description: "The complete street address of the hospital.",
				},
				"phone": {
					Type:        genai.TypeString,
					Description: "The primary contact phone number for the hospital.",
				},
			},
			Required: []string{"name", "address", "phone"},
		},
	}
}

func (f *Finder) prompt(at domain.Coordinates) string {
	return fmt.Sprintf(
		"Find the top %d hospitals with their full address and a valid phone number near latitude %v and longitude %v, "+
			"strictly within a %s radius. Ensure the phone number is a direct line for emergencies if possible.",
		f.limit, at.Lat, at.Lon, formatRadius(f.radius),
	)
}

func formatRadius(m float64) string {
	if m >= 1000 {
		return fmt.Sprintf("%gkm", m/1000)
	}
	return fmt.Sprintf("%gm", m)
}

type hospitalJSON struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

func (f *Finder) FindHospitals(ctx context.Context, at domain.Coordinates) (_ []domain.Hospital, err error) {
	defer obs.Time(ctx, "gemini.FindHospitals")(&err)

	text, err := f.gen.Generate(ctx, f.prompt(at))
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	return parseHospitals(text, f.limit)
}

// parseHospitals decodes the model reply. An empty reply means nothing was
// found; anything that is not a JSON array of hospitals is an error.
func parseHospitals(text string, limit int) ([]domain.Hospital, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []domain.Hospital{}, nil
	}

	var decoded []hospitalJSON
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return nil, fmt.Errorf("gemini reply: %w", err)
	}

	out := make([]domain.Hospital, 0, len(decoded))
	for _, h := range decoded {
		if strings.TrimSpace(h.Name) == "" {
			continue
		}
		out = append(out, domain.Hospital{
			Name:    strings.TrimSpace(h.Name),
			Address: strings.TrimSpace(h.Address),
			Phone:   strings.TrimSpace(h.Phone),
		})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type modelGenerator struct {
	model *genai.GenerativeModel
}

func (g *modelGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}
