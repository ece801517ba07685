package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/bodul/recite/internal/segment"
)

const (
	minSegmentLen = 10
	maxSegmentLen = 20
)

const segmentPrompt = `Split the following Classical Chinese text into segments a player can memorize in a puzzle game.

Rules:
- Each segment holds between %d and %d characters.
- Segments contain no punctuation and no whitespace.
- Keep every character, in the original order: no additions, omissions or substitutions.
- Answer ONLY with a flat JSON array of strings.

Text:
%s`

// Segment asks Gemini to split paragraphs. It implements segment.Segmenter;
// callers are expected to validate the output and fall back on error.
func (g *GeminiClient) Segment(ctx context.Context, paragraphs []string) ([]string, error) {
	prompt := fmt.Sprintf(segmentPrompt, minSegmentLen, maxSegmentLen, strings.Join(paragraphs, "\n"))
	resp, err := g.client.Models.GenerateContent(ctx, g.modelName,
		[]*genai.Content{{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		}},
		&genai.GenerateContentConfig{
			Temperature:      genai.Ptr(float32(0.1)),
			ResponseMIMEType: "application/json",
			ResponseSchema: &genai.Schema{
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("gemini: %w", segment.ErrEmptyResponse)
	}

	var segs []string
	if err := json.Unmarshal([]byte(text), &segs); err != nil {
		return nil, fmt.Errorf("%w: %v\nraw response: %s", segment.ErrMalformedResponse, err, text)
	}
	return segs, nil
}
