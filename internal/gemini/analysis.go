package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"mediminds/pkg/models"

	"go.uber.org/zap"
)

// ParseResult is the body returned to the client by both parse endpoints.
type ParseResult struct {
	Medicines []models.ParsedMedicine `json:"medicines"`
}

// Parser extracts medicines from a prescription.
type Parser interface {
	ParseText(ctx context.Context, text string) (ParseResult, error)
	ParseImage(ctx context.Context, data []byte, mimeType string) (ParseResult, error)
}

const responseFormat = `Return ONLY valid JSON in the following format:
{
  "medicines": [
    {
      "name": "Medicine Name",
      "dosage": "e.g., 500mg",
      "frequency": "e.g., Twice a day",
      "timing": "e.g., After food",
      "duration": "e.g., 5 days",
      "instructions": "Any special instructions"
    }
  ]
}

Rules:
1. If a field is unclear or missing, use null.
2. Do NOT guess or hallucinate.
3. Do NOT include markdown formatting like ` + "```json" + `. Return raw JSON only.
4. Handle multiple medicines.`

func textPrompt(text string) string {
	return fmt.Sprintf(`Analyze the following medical prescription text and extract medicine details.

Prescription Text:
%q

%s`, text, responseFormat)
}

func imagePrompt() string {
	return "Analyze this prescription image.\nIdentify all medicines prescribed.\n\n" + responseFormat
}

func (c *Client) ParseText(ctx context.Context, text string) (ParseResult, error) {
	if strings.TrimSpace(text) == "" {
		return ParseResult{}, ErrNoInput
	}
	c.logger.Info("parsing prescription text", zap.Int("length", len(text)))
	return c.parse(ctx, "text", part{Text: textPrompt(text)})
}

func (c *Client) ParseImage(ctx context.Context, data []byte, mimeType string) (ParseResult, error) {
	if len(data) == 0 {
		return ParseResult{}, ErrNoInput
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	c.logger.Info("parsing prescription image",
		zap.Int("size", len(data)),
		zap.String("mime_type", mimeType),
	)
	return c.parse(ctx, "image",
		part{Text: imagePrompt()},
		part{InlineData: &inlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(data)}},
	)
}

func (c *Client) parse(ctx context.Context, source string, parts ...part) (ParseResult, error) {
	start := time.Now()
	raw, err := c.generate(ctx, parts...)
	if err != nil {
		return ParseResult{}, err
	}
	c.logger.Debug("Gemini raw response", zap.String("source", source), zap.String("response", raw))

	result, err := DecodeMedicines(raw)
	if err != nil {
		c.logger.Warn("Gemini response rejected", zap.String("source", source), zap.Error(err))
		return ParseResult{}, err
	}

	c.logger.Info("prescription parsed",
		zap.String("source", source),
		zap.Int("medicines", len(result.Medicines)),
		zap.Duration("took", time.Since(start)),
	)
	return result, nil
}

// cleanResponse removes markdown code fences the model sometimes adds
// despite the prompt.
func cleanResponse(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```JSON", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

// DecodeMedicines validates model output against the medicines schema. Every
// field must be a string or null; numbers and booleans are stringified, blank
// strings become null and entries with no usable field are dropped.
func DecodeMedicines(raw string) (ParseResult, error) {
	cleaned := cleanResponse(raw)

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &envelope); err != nil {
		return ParseResult{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if envelope == nil {
		return ParseResult{}, fmt.Errorf("%w: expected a JSON object", ErrInvalidResponse)
	}
	rawMeds, ok := envelope["medicines"]
	if !ok {
		return ParseResult{}, fmt.Errorf("%w: missing \"medicines\"", ErrInvalidResponse)
	}

	result := ParseResult{Medicines: []models.ParsedMedicine{}}
	if string(rawMeds) == "null" {
		return result, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(rawMeds, &items); err != nil {
		return ParseResult{}, fmt.Errorf("%w: \"medicines\" is not an array", ErrInvalidResponse)
	}

	for i, item := range items {
		var fields map[string]interface{}
		if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
			return ParseResult{}, fmt.Errorf("%w: medicine %d is not an object", ErrInvalidResponse, i)
		}

		var (
			m   models.ParsedMedicine
			err error
		)
		targets := []struct {
			key string
			dst **string
		}{
			{"name", &m.Name},
			{"dosage", &m.Dosage},
			{"frequency", &m.Frequency},
			{"timing", &m.Timing},
			{"duration", &m.Duration},
			{"instructions", &m.Instructions},
		}
		for _, t := range targets {
			if *t.dst, err = stringField(fields[t.key]); err != nil {
				return ParseResult{}, fmt.Errorf("%w: medicine %d field %q: %v", ErrInvalidResponse, i, t.key, err)
			}
		}

		if m == (models.ParsedMedicine{}) {
			continue
		}
		result.Medicines = append(result.Medicines, m)
	}
	return result, nil
}

func stringField(v interface{}) (*string, error) {
	var s string
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		s = strings.TrimSpace(val)
	case float64:
		s = strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(val)
	default:
		return nil, fmt.Errorf("unexpected %T", v)
	}
	if s == "" || strings.EqualFold(s, "null") {
		return nil, nil
	}
	return &s, nil
}
