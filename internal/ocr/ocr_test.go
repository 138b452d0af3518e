package ocr

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"docintake/internal/config"
	"docintake/internal/intake"
	"docintake/internal/logging"
)

func TestTextEngineNormalizesToNFC(t *testing.T) {
	decomposed := "Quye\u0302\u0301t \u0111i\u0323nh"
	out, err := NewTextEngine().Recognize(context.Background(), intake.Document{MimeType: intake.MimeText},
		intake.DenoiseOutput{Content: []byte("  " + decomposed + "\n"), MimeType: intake.MimeText})
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if out.Text != "Quy\u1ebft \u0111\u1ecbnh" {
		t.Fatalf("expected NFC text, got %q", out.Text)
	}
	if out.Characters != 10 || out.Engine != EngineText {
		t.Fatalf("unexpected output %+v", out)
	}
}

func TestTextEngineFailures(t *testing.T) {
	engine := NewTextEngine()
	ctx := context.Background()

	_, err := engine.Recognize(ctx, intake.Document{}, intake.DenoiseOutput{Content: []byte("   \n"), MimeType: intake.MimeText})
	if !errors.Is(err, ErrNoText) {
		t.Fatalf("expected ErrNoText, got %v", err)
	}
	_, err = engine.Recognize(ctx, intake.Document{}, intake.DenoiseOutput{Content: []byte{0xff, 0xfe}, MimeType: intake.MimeText})
	if err == nil || !strings.Contains(err.Error(), "UTF-8") {
		t.Fatalf("expected UTF-8 error, got %v", err)
	}
	_, err = engine.Recognize(ctx, intake.Document{}, intake.DenoiseOutput{Content: []byte("%PDF"), MimeType: intake.MimePDF})
	if err == nil || !strings.Contains(err.Error(), "command engine") {
		t.Fatalf("expected unsupported type error, got %v", err)
	}
}

type stubExecutor struct {
	lines  []string
	err    error
	binary string
	args   []string
	input  []byte
}

func (s *stubExecutor) Run(_ context.Context, binary string, args []string, onStdout func(string)) error {
	s.binary = binary
	s.args = append([]string(nil), args...)
	if len(args) > 0 {
		s.input, _ = os.ReadFile(args[0])
	}
	for _, line := range s.lines {
		onStdout(line)
	}
	return s.err
}

func TestCommandEngineRunsBinary(t *testing.T) {
	exec := &stubExecutor{lines: []string{"CÔNG VĂN", "Số: 12/CV-KT"}}
	engine, err := NewCommandEngine("tesseract", "vie", logging.NewNop(), WithExecutor(exec), WithWorkDir(t.TempDir()))
	if err != nil {
		t.Fatalf("NewCommandEngine: %v", err)
	}
	out, err := engine.Recognize(context.Background(), intake.Document{MimeType: intake.MimePNG},
		intake.DenoiseOutput{Content: []byte("png-bytes"), MimeType: intake.MimePNG})
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if out.Text != "CÔNG VĂN\nSố: 12/CV-KT" || out.Engine != EngineCommand {
		t.Fatalf("unexpected output %+v", out)
	}
	if exec.binary != "tesseract" || len(exec.args) != 4 || exec.args[1] != "stdout" || exec.args[3] != "vie" {
		t.Fatalf("unexpected invocation %s %v", exec.binary, exec.args)
	}
	if !strings.HasSuffix(exec.args[0], ".png") || string(exec.input) != "png-bytes" {
		t.Fatalf("expected staged png input, got %s (%q)", exec.args[0], exec.input)
	}
}

func TestCommandEngineErrors(t *testing.T) {
	engine, _ := NewCommandEngine("tesseract", "", logging.NewNop(), WithExecutor(&stubExecutor{err: errors.New("exit status 1")}))
	_, err := engine.Recognize(context.Background(), intake.Document{}, intake.DenoiseOutput{Content: []byte("x"), MimeType: intake.MimeTIFF})
	if err == nil || !strings.Contains(err.Error(), "run tesseract") {
		t.Fatalf("expected run error, got %v", err)
	}

	engine, _ = NewCommandEngine("tesseract", "", logging.NewNop(), WithExecutor(&stubExecutor{}))
	_, err = engine.Recognize(context.Background(), intake.Document{}, intake.DenoiseOutput{Content: []byte("x"), MimeType: intake.MimeTIFF})
	if !errors.Is(err, ErrNoText) {
		t.Fatalf("expected ErrNoText for empty output, got %v", err)
	}

	if _, err := NewCommandEngine("  ", "", nil); err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestCommandEngineReadsTextDirectly(t *testing.T) {
	exec := &stubExecutor{}
	engine, _ := NewCommandEngine("tesseract", "vie", logging.NewNop(), WithExecutor(exec))
	out, err := engine.Recognize(context.Background(), intake.Document{}, intake.DenoiseOutput{Content: []byte("Công văn"), MimeType: intake.MimeText})
	if err != nil || out.Text != "Công văn" {
		t.Fatalf("expected direct text read, got %+v %v", out, err)
	}
	if exec.binary != "" {
		t.Fatal("binary should not run for text documents")
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	engine, err := NewFromConfig(&cfg, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := engine.(*TextEngine); !ok {
		t.Fatalf("expected text engine, got %T", engine)
	}
	cfg.OCR.Engine = EngineCommand
	engine, err = NewFromConfig(&cfg, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := engine.(*CommandEngine); !ok {
		t.Fatalf("expected command engine, got %T", engine)
	}
	cfg.OCR.Engine = "magic"
	if _, err := NewFromConfig(&cfg, logging.NewNop()); err == nil {
		t.Fatal("expected unknown engine error")
	}
}
