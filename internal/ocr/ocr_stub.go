//go:build !ocr

// Package ocr extracts text from article crops through the Tesseract engine.
//
// This is the stub compiled when the "ocr" build tag is not set: every
// operation returns ErrNotEnabled. Rebuild with -tags ocr (and Tesseract
// installed) to enable recognition.
package ocr

import "errors"

// ErrNotEnabled is returned when OCR support was not compiled in.
var ErrNotEnabled = errors.New("ocr support not enabled; rebuild with -tags ocr")

// Client is the stub OCR client.
type Client struct{}

func New(language string) (*Client, error) {
	return nil, ErrNotEnabled
}

func (c *Client) RecognizeImage(imageData []byte) (string, error) {
	return "", ErrNotEnabled
}

func (c *Client) Close() error {
	return nil
}
