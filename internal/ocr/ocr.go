//go:build ocr

// Package ocr extracts text from article crops through the Tesseract engine.
// It sits at the collaborator boundary: the detection core never depends on
// it, the batch driver calls it after regions are labeled.
//
// This implementation requires Tesseract installed on the system and the
// "ocr" build tag:
//
//	go build -tags ocr
package ocr

import (
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Client wraps a Tesseract session. Not safe for concurrent use; the engine
// opens one per page worker.
type Client struct {
	client *gosseract.Client
}

// New creates an OCR client for the given language spec ("eng", "eng+tel", ...).
func New(language string) (*Client, error) {
	client := gosseract.NewClient()
	if language != "" {
		if err := client.SetLanguage(strings.Split(language, "+")...); err != nil {
			client.Close()
			return nil, fmt.Errorf("set OCR language %q: %w", language, err)
		}
	}
	return &Client{client: client}, nil
}

// RecognizeImage runs OCR over encoded image bytes (PNG or JPEG) and returns
// the recognized text, whitespace-trimmed.
func (c *Client) RecognizeImage(imageData []byte) (string, error) {
	if err := c.client.SetImageFromBytes(imageData); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}

	text, err := c.client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// Close releases the Tesseract session.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
