/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jerry-enebeli/notebox/model"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-3-flash-preview"
	DefaultTimeout = 8 * time.Second
)

var tracer = otel.Tracer("notebox.classifier")

// Gemini classifies through the generateContent REST endpoint in JSON mode.
type Gemini struct {
	client *resty.Client
	model  string
	apiKey string
}

func NewGemini(baseURL, apiKey, modelName string, timeout time.Duration) *Gemini {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)

	return &Gemini{client: c, model: modelName, apiKey: apiKey}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content              `json:"contents"`
	GenerationConfig map[string]interface{} `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func schema(categories []string) map[string]interface{} {
	itemTypes := make([]string, len(model.ItemTypes))
	for i, t := range model.ItemTypes {
		itemTypes[i] = string(t)
	}
	return map[string]interface{}{
		"type": "OBJECT",
		"properties": map[string]interface{}{
			"item_type": map[string]interface{}{"type": "STRING", "enum": itemTypes},
			"time_bucket": map[string]interface{}{
				"type":        "STRING",
				"description": "An ISO8601 timestamp string OR one of: today, this_week, upcoming, none",
			},
			"category": map[string]interface{}{"type": "STRING", "enum": categories},
			"is_event": map[string]interface{}{"type": "BOOLEAN"},
			"summary":  map[string]interface{}{"type": "STRING"},
		},
		"required": []string{"item_type", "time_bucket", "category"},
	}
}

func prompt(text string) string {
	return fmt.Sprintf("Classify the following note text for a productivity system.\nNote: %q\n\nOutput strictly JSON.", text)
}

// Classify never fails; on any error the fallback is returned and the cause
// is logged.
func (g *Gemini) Classify(ctx context.Context, text string, categories []string) model.Classification {
	ctx, span := tracer.Start(ctx, "Classify")
	defer span.End()

	if len(categories) == 0 {
		categories = model.DefaultCategories
	}

	c, err := g.generate(ctx, text, categories)
	if err != nil {
		span.RecordError(err)
		logrus.WithError(err).Warn("classification failed, using fallback")
		return model.FallbackClassification(text)
	}
	return Coerce(c, text, categories)
}

func (g *Gemini) generate(ctx context.Context, text string, categories []string) (model.Classification, error) {
	if g.apiKey == "" {
		return model.Classification{}, errors.New("classifier api key is not configured")
	}

	body := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt(text)}}}},
		GenerationConfig: map[string]interface{}{
			"responseMimeType": "application/json",
			"responseSchema":   schema(categories),
		},
	}

	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("x-goog-api-key", g.apiKey).
		SetBody(&body).
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", g.model))
	if err != nil {
		return model.Classification{}, fmt.Errorf("gemini request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return model.Classification{}, fmt.Errorf("gemini status %d: %s", resp.StatusCode(), model.Truncate(resp.String(), 300))
	}

	var gr generateResponse
	if err := json.Unmarshal(resp.Body(), &gr); err != nil {
		return model.Classification{}, fmt.Errorf("decode response: %w", err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return model.Classification{}, errors.New("gemini returned no candidates")
	}

	raw := strings.TrimSpace(gr.Candidates[0].Content.Parts[0].Text)
	raw = strings.TrimSuffix(strings.TrimPrefix(raw, "```json"), "```")

	var c model.Classification
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &c); err != nil {
		return model.Classification{}, fmt.Errorf("decode classification: %w", err)
	}
	return c, nil
}
