package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"docintake/internal/config"
	"docintake/internal/intake"
	"docintake/internal/logging"
	"docintake/internal/notifications"
)

type captured struct {
	title    string
	body     string
	tags     string
	priority string
	email    string
}

func newServer(t *testing.T, failFor string) (*httptest.Server, func() []captured) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []captured
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		entry := captured{
			title:    r.Header.Get("Title"),
			body:     string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			email:    r.Header.Get("Email"),
		}
		mu.Lock()
		seen = append(seen, entry)
		mu.Unlock()
		if failFor != "" && entry.email == failFor {
			http.Error(w, "rejected", http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []captured {
		mu.Lock()
		defer mu.Unlock()
		out := append([]captured(nil), seen...)
		sort.Slice(out, func(i, j int) bool { return out[i].body < out[j].body })
		return out
	}
}

func dispatcher(topic string) notifications.Dispatcher {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = topic
	cfg.Notifications.Concurrency = 2
	return notifications.NewDispatcher(&cfg, logging.NewNop())
}

func TestNoopDispatcherWhenTopicMissing(t *testing.T) {
	batch := []intake.Notification{{Channel: intake.ChannelEmail, Recipient: "a@b.vn", Message: "x"}}
	out, err := dispatcher("").Dispatch(context.Background(), batch)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(out) != 1 || out[0].Sent {
		t.Fatalf("noop dispatcher should not mark sent: %+v", out)
	}
	if err := dispatcher("").NotifyRunFailed(context.Background(), "a.pdf", errors.New("boom")); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestDispatchFormatsRequestsAndMarksSent(t *testing.T) {
	srv, requests := newServer(t, "")
	batch := []intake.Notification{
		{Channel: intake.ChannelEmail, Recipient: "legal.approver@company.vn", Subject: "Hợp đồng mới", Message: "a: cần phê duyệt", Priority: intake.PriorityNormal},
		{Channel: intake.ChannelSystem, Recipient: "PHAP_CHE", Subject: "Hợp đồng mới", Message: "b: [KHẨN] xử lý", Priority: intake.PriorityHigh},
	}

	out, err := dispatcher(srv.URL).Dispatch(context.Background(), batch)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	for _, note := range out {
		if !note.Sent {
			t.Fatalf("expected sent: %+v", note)
		}
	}
	if batch[0].Sent {
		t.Fatal("input batch was mutated")
	}

	got := requests()
	if len(got) != 2 {
		t.Fatalf("requests = %d, want 2", len(got))
	}
	if got[0].email != "legal.approver@company.vn" || got[0].tags != "docintake,email" || got[0].priority != "" {
		t.Fatalf("unexpected email request: %+v", got[0])
	}
	if got[1].email != "" || got[1].tags != "docintake,system,PHAP_CHE" || got[1].priority != "high" {
		t.Fatalf("unexpected system request: %+v", got[1])
	}
	if got[0].title != "Hợp đồng mới" {
		t.Fatalf("title = %q", got[0].title)
	}
}

func TestDispatchReportsPartialFailure(t *testing.T) {
	srv, _ := newServer(t, "bad@company.vn")
	batch := []intake.Notification{
		{Channel: intake.ChannelEmail, Recipient: "bad@company.vn", Message: "1"},
		{Channel: intake.ChannelEmail, Recipient: "good@company.vn", Message: "2"},
	}
	out, err := dispatcher(srv.URL).Dispatch(context.Background(), batch)
	if err == nil || !strings.Contains(err.Error(), "bad@company.vn") {
		t.Fatalf("expected failure naming recipient, got %v", err)
	}
	if out[0].Sent || !out[1].Sent {
		t.Fatalf("unexpected sent flags: %+v", out)
	}
}

func TestNotifyRunFailed(t *testing.T) {
	srv, requests := newServer(t, "")
	if err := dispatcher(srv.URL).NotifyRunFailed(context.Background(), "cong-van.pdf", errors.New("ocr engine unavailable")); err != nil {
		t.Fatalf("NotifyRunFailed: %v", err)
	}
	got := requests()
	if len(got) != 1 {
		t.Fatalf("requests = %d", len(got))
	}
	if got[0].body != "Intake failed for cong-van.pdf: ocr engine unavailable" || got[0].priority != "high" {
		t.Fatalf("unexpected request: %+v", got[0])
	}
}
