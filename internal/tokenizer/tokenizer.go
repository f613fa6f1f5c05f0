// Package tokenizer estimates token counts for exported content.
package tokenizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/frontierkodiak/repoexport/internal/utils"
)

// Counter estimates token counts for text content.
type Counter interface {
	Name() string
	CountString(input string) (int, error)
}

// defaultEncodingName is the encoding used when no model resolves; it matches
// the o-series encoding the export tool has always annotated with.
const defaultEncodingName = "o200k_base"

// NewCounter returns a Counter for the requested model name, falling back to
// the default encoding when the model is unknown or empty.
func NewCounter(modelName string) (Counter, error) {
	trimmedModel := strings.ToLower(strings.TrimSpace(modelName))
	if trimmedModel != "" {
		encoding, encodingError := tiktoken.EncodingForModel(trimmedModel)
		if encodingError == nil && encoding != nil {
			return tiktokenCounter{encoding: encoding, name: trimmedModel}, nil
		}
	}
	fallbackEncoding, fallbackError := tiktoken.GetEncoding(defaultEncodingName)
	if fallbackError != nil {
		return nil, fmt.Errorf("initialize %s tokenizer: %w", defaultEncodingName, fallbackError)
	}
	return tiktokenCounter{encoding: fallbackEncoding, name: defaultEncodingName}, nil
}

type tiktokenCounter struct {
	encoding *tiktoken.Tiktoken
	name     string
}

// Name returns the resolved model or encoding name.
func (counter tiktokenCounter) Name() string {
	return counter.name
}

// CountString estimates tokens for the provided text.
func (counter tiktokenCounter) CountString(input string) (int, error) {
	return len(counter.encoding.Encode(input, nil, nil)), nil
}

// CountResult captures the outcome of counting a byte slice.
type CountResult struct {
	Tokens  int
	Counted bool
}

// CountBytes estimates tokens for the provided data. Binary content is not
// counted and reports Counted false.
func CountBytes(counter Counter, data []byte) (CountResult, error) {
	if counter == nil {
		return CountResult{}, errors.New("nil tokenizer counter")
	}
	if utils.IsBinary(data) {
		return CountResult{Counted: false}, nil
	}
	tokens, countError := counter.CountString(string(data))
	if countError != nil {
		return CountResult{}, countError
	}
	return CountResult{Tokens: tokens, Counted: true}, nil
}
