package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"docintake/internal/intake"
	"docintake/internal/services"
	"docintake/internal/store"
	"docintake/internal/testsupport"
)

func TestOpenCreatesSchemaAndReopens(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if st.Path() != cfg.DatabasePath() {
		t.Fatalf("path = %q, want %q", st.Path(), cfg.DatabasePath())
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	again, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	_ = again.Close()
}

func TestCreateAndGetDocument(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	doc := intake.StoredDocument{
		Name:        "hop-dong.txt",
		ContentHash: "abc123",
		Text:        "hợp đồng mua bán",
		Fingerprint: "bán:1 hợp:1 mua:1 đồng:1",
		Owner:       "nguyen.van.a",
		Department:  "PHAP_CHE",
		Path:        "/documents/hop-dong",
		Category:    intake.CategoryContract,
	}
	if err := st.CreateDocument(ctx, &doc); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	if doc.ID == "" {
		t.Fatal("expected generated id")
	}
	if doc.Version != 1 {
		t.Fatalf("version = %d, want 1", doc.Version)
	}

	got, err := st.GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Name != doc.Name || got.Text != doc.Text || got.Fingerprint != doc.Fingerprint {
		t.Fatalf("unexpected document: %+v", got)
	}
	if got.Category != intake.CategoryContract || got.Department != "PHAP_CHE" {
		t.Fatalf("unexpected classification: %+v", got)
	}
	if !got.UploadedAt.Equal(doc.UploadedAt) {
		t.Fatalf("uploaded_at = %v, want %v", got.UploadedAt, doc.UploadedAt)
	}
}

func TestCreateDocumentRequiresHash(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	err := st.CreateDocument(context.Background(), &intake.StoredDocument{Name: "x"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	_, err := st.GetDocument(context.Background(), "missing")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateVersionIncrementsFromParent(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	parent := intake.StoredDocument{Name: "v1", ContentHash: "h1", Path: "/documents/chung"}
	if err := st.CreateDocument(ctx, &parent); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	child := intake.StoredDocument{Name: "v2", ContentHash: "h2"}
	if err := st.CreateVersion(ctx, parent.ID, &child); err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}
	if child.Version != 2 || child.ParentID != parent.ID || child.Path != parent.Path {
		t.Fatalf("unexpected version row: %+v", child)
	}

	got, err := st.GetDocument(ctx, child.ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.ParentID != parent.ID || got.Version != 2 {
		t.Fatalf("persisted version mismatch: %+v", got)
	}
}

func TestListUpdateDeleteDocuments(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	first := intake.StoredDocument{Name: "a", ContentHash: "h1", UploadedAt: base}
	second := intake.StoredDocument{Name: "b", ContentHash: "h2", UploadedAt: base.Add(time.Hour)}
	for _, doc := range []*intake.StoredDocument{&second, &first} {
		if err := st.CreateDocument(ctx, doc); err != nil {
			t.Fatalf("CreateDocument: %v", err)
		}
	}

	docs, err := st.Candidates(ctx)
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != first.ID || docs[1].ID != second.ID {
		t.Fatalf("unexpected order: %+v", docs)
	}

	first.Category = intake.CategoryDecision
	if err := st.UpdateDocument(ctx, first); err != nil {
		t.Fatalf("UpdateDocument: %v", err)
	}
	got, err := st.GetDocument(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Category != intake.CategoryDecision {
		t.Fatalf("category = %q", got.Category)
	}

	if err := st.DeleteDocument(ctx, first.ID); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if err := st.DeleteDocument(ctx, first.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if err := st.UpdateDocument(ctx, first); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found on update, got %v", err)
	}
	docs, err = st.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != second.ID {
		t.Fatalf("unexpected remaining docs: %+v", docs)
	}
}

func TestSaveRunUpsertsAndLists(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	started := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

	record := intake.RunRecord{
		ID:         "run-1",
		DocumentID: "doc-1",
		Actor:      "nguyen.van.a",
		Status:     intake.RunRunning,
		StartedAt:  started,
	}
	if err := st.SaveRun(ctx, record); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	record.Status = intake.RunCompleted
	record.FinishedAt = started.Add(time.Minute)
	record.Stages = []intake.StageResult{{
		Name:   intake.StageOCR,
		Status: intake.StatusCompleted,
		Output: intake.OCROutput{Text: "xin chào", Engine: "text", Characters: 8},
	}}
	if err := st.SaveRun(ctx, record); err != nil {
		t.Fatalf("SaveRun update: %v", err)
	}

	other := intake.RunRecord{ID: "run-2", DocumentID: "doc-2", Status: intake.RunFailed, StartedAt: started.Add(time.Hour)}
	if err := st.SaveRun(ctx, other); err != nil {
		t.Fatalf("SaveRun other: %v", err)
	}

	got, err := st.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != intake.RunCompleted || len(got.Stages) != 1 {
		t.Fatalf("unexpected run: %+v", got)
	}
	ocr, ok := got.Stages[0].Output.(intake.OCROutput)
	if !ok || ocr.Text != "xin chào" {
		t.Fatalf("unexpected stage output: %#v", got.Stages[0].Output)
	}

	all, err := st.ListRuns(ctx, "", 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(all) != 2 || all[0].ID != "run-2" {
		t.Fatalf("expected newest first, got %+v", all)
	}

	filtered, err := st.ListRuns(ctx, "doc-1", 10)
	if err != nil {
		t.Fatalf("ListRuns filtered: %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != "run-1" {
		t.Fatalf("unexpected filtered runs: %+v", filtered)
	}

	if _, err := st.GetRun(ctx, "nope"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := st.SaveRun(ctx, intake.RunRecord{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
