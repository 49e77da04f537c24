// Package translate turns recognized article text into the publishing
// language. The engine only sees the Translator interface; the Google
// implementation is the one the production flow uses.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Translator converts text into the target language.
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

const defaultEndpoint = "https://translation.googleapis.com/language/translate/v2"

// GoogleTranslator calls the Google Cloud Translation v2 REST API.
type GoogleTranslator struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewGoogle creates a translator authenticated with the given API key.
func NewGoogle(apiKey string) *GoogleTranslator {
	return &GoogleTranslator{
		apiKey:   apiKey,
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type translateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (g *GoogleTranslator) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	form := url.Values{
		"q":      {text},
		"target": {targetLanguage},
		"format": {"text"},
		"key":    {g.apiKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate request: %w", err)
	}
	defer resp.Body.Close()

	var body translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode translate response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate API: %d %s", body.Error.Code, body.Error.Message)
	}
	if len(body.Data.Translations) == 0 {
		return "", fmt.Errorf("translate API returned no translations")
	}
	return body.Data.Translations[0].TranslatedText, nil
}
