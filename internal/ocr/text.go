package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"docintake/internal/intake"
	"docintake/internal/stage"
)

// EngineText and EngineCommand name the bundled engines.
const (
	EngineText    = "text"
	EngineCommand = "command"
)

// ErrNoText is returned when recognition yields no characters.
var ErrNoText = errors.New("no text recognized")

// TextEngine reads text documents directly.
type TextEngine struct{}

// NewTextEngine constructs a TextEngine.
func NewTextEngine() *TextEngine { return &TextEngine{} }

// Recognize decodes the cleaned artifact as UTF-8 text.
func (TextEngine) Recognize(ctx context.Context, doc intake.Document, cleaned intake.DenoiseOutput) (intake.OCROutput, error) {
	if err := ctx.Err(); err != nil {
		return intake.OCROutput{}, err
	}
	mimeType := cleaned.MimeType
	if mimeType == "" {
		mimeType = doc.MimeType
	}
	if !(intake.Document{MimeType: mimeType}).IsText() {
		return intake.OCROutput{}, fmt.Errorf("text engine cannot read %q; configure the command engine", mimeType)
	}
	content := cleaned.Content
	if content == nil {
		content = doc.Content
	}
	return finish(EngineText, content)
}

// HealthCheck always reports ready.
func (TextEngine) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("ocr")
}

func finish(engine string, content []byte) (intake.OCROutput, error) {
	if !utf8.Valid(content) {
		return intake.OCROutput{}, errors.New("recognized text is not valid UTF-8")
	}
	text := strings.TrimSpace(norm.NFC.String(string(content)))
	if text == "" {
		return intake.OCROutput{}, ErrNoText
	}
	return intake.OCROutput{
		Text:       text,
		Engine:     engine,
		Characters: utf8.RuneCountInString(text),
	}, nil
}
