package assignment_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/classtrack/classtrack-lms/internal/assignment"
	"github.com/classtrack/classtrack-lms/internal/catalog"
	"github.com/classtrack/classtrack-lms/internal/progress"
	"github.com/classtrack/classtrack-lms/internal/storage"
)

type fakeCatalog struct {
	materials map[catalog.MaterialID]catalog.Material
}

func (f *fakeCatalog) GetMaterial(_ context.Context, id catalog.MaterialID) (catalog.Material, error) {
	m, ok := f.materials[id]
	if !ok {
		return catalog.Material{}, catalog.ErrMaterialNotFound
	}
	return m, nil
}

func (f *fakeCatalog) MaterialExists(_ context.Context, id catalog.MaterialID) (bool, error) {
	_, ok := f.materials[id]
	return ok, nil
}

type fixture struct {
	svc    *assignment.Service
	store  *assignment.MemoryStore
	blobs  *storage.MemStore
	psvc   *progress.Service
	pstore *progress.MemoryStore
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	cat := &fakeCatalog{materials: map[catalog.MaterialID]catalog.Material{
		"hw1":   {ID: "hw1", SectionID: 10, ContentType: catalog.ContentAssignment},
		"text1": {ID: "text1", SectionID: 10, ContentType: catalog.ContentText},
	}}
	store := assignment.NewMemoryStore()
	blobs := storage.NewMemStore()
	pstore := progress.NewInMemoryStore()
	psvc := progress.NewService(pstore, cat, nil, nil)
	return fixture{
		svc:    assignment.NewService(store, cat, blobs, psvc, nil),
		store:  store,
		blobs:  blobs,
		psvc:   psvc,
		pstore: pstore,
	}
}

func TestSubmitTextMarksComplete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// First contact creates the record so the completion write lands.
	if err := f.psvc.RecordInteraction(ctx, "s1", 20, 10, "hw1"); err != nil {
		t.Fatalf("first contact: %v", err)
	}

	id, err := f.svc.Submit(ctx, "s1", 20, 10, "hw1", assignment.Payload{
		Type:    assignment.TypeText,
		Content: "my essay",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if id == "" {
		t.Fatal("empty submission id")
	}

	subs, _ := f.store.ListSubmissions(ctx, "s1", "hw1")
	if len(subs) != 1 || subs[0].Content != "my essay" || subs[0].Status != assignment.StatusSubmitted {
		t.Fatalf("stored submission: %+v", subs)
	}

	rec, err := f.pstore.GetRecord(ctx, "s1", "hw1")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if rec.Status != progress.StatusCompleted || rec.ProgressPct != 100 {
		t.Fatalf("record = %s/%v, want completed/100", rec.Status, rec.ProgressPct)
	}
}

func TestSubmitFileStoresBlob(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	id, err := f.svc.Submit(ctx, "s1", 20, 10, "hw1", assignment.Payload{
		Type:     assignment.TypeFile,
		File:     strings.NewReader("pdf bytes"),
		Filename: "report.pdf",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	subs, _ := f.store.ListSubmissions(ctx, "s1", "hw1")
	if len(subs) != 1 {
		t.Fatalf("rows = %d, want 1", len(subs))
	}
	if subs[0].OriginalFilename != "report.pdf" {
		t.Fatalf("original filename = %q", subs[0].OriginalFilename)
	}
	if !strings.Contains(subs[0].FilePath, id) || !strings.HasSuffix(subs[0].FilePath, "_report.pdf") {
		t.Fatalf("file path = %q, want id-prefixed key", subs[0].FilePath)
	}

	rc, err := f.blobs.Get(subs[0].FilePath)
	if err != nil {
		t.Fatalf("blob get: %v", err)
	}
	defer rc.Close()
	buf, _ := io.ReadAll(rc)
	if string(buf) != "pdf bytes" {
		t.Fatalf("blob content = %q", buf)
	}
}

func TestSubmitRepeatAppendsRows(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for i := 0; i < 2; i++ {
		if _, err := f.svc.Submit(ctx, "s1", 20, 10, "hw1", assignment.Payload{
			Type: assignment.TypeURL,
			URL:  "https://example.com/work",
		}); err != nil {
			t.Fatalf("submit %d: %v", i+1, err)
		}
	}
	subs, _ := f.store.ListSubmissions(ctx, "s1", "hw1")
	if len(subs) != 2 {
		t.Fatalf("rows = %d, want 2 (resubmission appends)", len(subs))
	}
}

func TestSubmitPayloadValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	cases := []struct {
		name string
		p    assignment.Payload
	}{
		{"unknown type", assignment.Payload{Type: "carrier-pigeon"}},
		{"text without content", assignment.Payload{Type: assignment.TypeText}},
		{"text plus url", assignment.Payload{Type: assignment.TypeText, Content: "x", URL: "http://x"}},
		{"file without reader", assignment.Payload{Type: assignment.TypeFile, Filename: "a.pdf"}},
		{"file without filename", assignment.Payload{Type: assignment.TypeFile, File: strings.NewReader("x")}},
		{"file plus content", assignment.Payload{Type: assignment.TypeFile, File: strings.NewReader("x"), Filename: "a", Content: "y"}},
		{"url without url", assignment.Payload{Type: assignment.TypeURL}},
		{"url plus file", assignment.Payload{Type: assignment.TypeURL, URL: "http://x", File: strings.NewReader("x")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var verr *assignment.ValidationError
			if _, err := f.svc.Submit(ctx, "s1", 20, 10, "hw1", tc.p); !errors.As(err, &verr) {
				t.Fatalf("got %v, want ValidationError", err)
			}
		})
	}
}

func TestSubmitRejectsBadMaterials(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	p := assignment.Payload{Type: assignment.TypeText, Content: "x"}
	if _, err := f.svc.Submit(ctx, "s1", 20, 10, "text1", p); !errors.Is(err, assignment.ErrInvalidAssignmentMaterial) {
		t.Fatalf("non-assignment material: got %v", err)
	}
	if _, err := f.svc.Submit(ctx, "s1", 20, 10, "ghost", p); !errors.Is(err, assignment.ErrInvalidAssignmentMaterial) {
		t.Fatalf("unknown material: got %v", err)
	}
}
