package denoise

import (
	"context"
	"strings"
	"testing"

	"docintake/internal/intake"
	"docintake/internal/logging"
)

func TestDenoiseText(t *testing.T) {
	exec := New(t.TempDir(), logging.NewNop())
	doc := intake.Document{
		ID:       "doc-1",
		MimeType: "text/plain; charset=utf-8",
		Content:  []byte("\xEF\xBB\xBFSố hiệu: 12/QĐ   \r\nTrích yếu: thử\r\n"),
	}
	out, err := exec.Denoise(context.Background(), doc)
	if err != nil {
		t.Fatalf("Denoise: %v", err)
	}
	if got := string(out.Content); got != "Số hiệu: 12/QĐ\nTrích yếu: thử\n" {
		t.Fatalf("unexpected cleaned text %q", got)
	}
	if out.MimeType != intake.MimeText || out.Size != int64(len(out.Content)) {
		t.Fatalf("unexpected output metadata %+v", out)
	}
	if len(out.Notes) != 2 {
		t.Fatalf("expected BOM and line ending notes, got %v", out.Notes)
	}
}

func TestDenoiseImagePassThrough(t *testing.T) {
	exec := New("", logging.NewNop())
	content := []byte("\x89PNG\r\n\x1a\nrest")
	out, err := exec.Denoise(context.Background(), intake.Document{MimeType: intake.MimePNG, Content: content})
	if err != nil {
		t.Fatalf("Denoise: %v", err)
	}
	if string(out.Content) != string(content) || out.MimeType != intake.MimePNG {
		t.Fatalf("expected image to pass through, got %+v", out)
	}
}

func TestDenoiseRejectsEmptyAndUnsupported(t *testing.T) {
	exec := New("", logging.NewNop())
	if _, err := exec.Denoise(context.Background(), intake.Document{ID: "x", MimeType: intake.MimeText}); err == nil {
		t.Fatal("expected error for empty content")
	}
	_, err := exec.Denoise(context.Background(), intake.Document{MimeType: "application/zip", Content: []byte("PK")})
	if err == nil || !strings.Contains(err.Error(), "unsupported mime type") {
		t.Fatalf("expected unsupported type error, got %v", err)
	}
}

func TestDenoiseInvalidPDF(t *testing.T) {
	exec := New(t.TempDir(), logging.NewNop())
	_, err := exec.Denoise(context.Background(), intake.Document{MimeType: intake.MimePDF, Content: []byte("not a pdf")})
	if err == nil || !strings.Contains(err.Error(), "optimize pdf") {
		t.Fatalf("expected optimize error for corrupt pdf, got %v", err)
	}
}

func TestDenoiseHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New("", logging.NewNop()).Denoise(ctx, intake.Document{MimeType: intake.MimeText, Content: []byte("x")})
	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestHealthCheck(t *testing.T) {
	if h := New(t.TempDir(), logging.NewNop()).HealthCheck(context.Background()); !h.Ready {
		t.Fatalf("expected healthy denoiser, got %+v", h)
	}
}
