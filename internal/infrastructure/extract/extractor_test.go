package extract

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/insolvd/docpipe/internal/core/domain"
)

type storageStub struct {
	content []byte
}

func (s storageStub) Save(context.Context, string, io.Reader) error { return nil }

func (s storageStub) Open(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(string(s.content))), nil
}

func (s storageStub) Delete(context.Context, string) error { return nil }

func TestExtractPlainText(t *testing.T) {
	e := New(storageStub{content: []byte("Monthly  income:\t $2,400\n\n\nSurplus   income: $150\n")})

	text, err := e.Extract(context.Background(), &domain.Document{
		StoragePath: "doc-1_form65.txt",
		Title:       "form65.txt",
		MimeType:    "text/plain",
	})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	want := "Monthly income: $2,400\nSurplus income: $150"
	if text != want {
		t.Fatalf("Extract() = %q, want %q", text, want)
	}
}

func TestExtractSniffsTextDespiteWrongMime(t *testing.T) {
	e := New(storageStub{content: []byte("creditor list: Acme Lending $12,000")})

	text, err := e.Extract(context.Background(), &domain.Document{
		StoragePath: "doc-1_scan",
		MimeType:    "application/octet-stream",
	})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !strings.Contains(text, "Acme Lending") {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestExtractRejectsEmptyObject(t *testing.T) {
	e := New(storageStub{content: nil})

	_, err := e.Extract(context.Background(), &domain.Document{StoragePath: "doc-1_empty"})
	if err == nil {
		t.Fatalf("expected error for empty object")
	}
}

func TestExtractRejectsUnknownBinary(t *testing.T) {
	e := New(storageStub{content: []byte{0x00, 0x01, 0x02, 0xFF, 0x00}})

	_, err := e.Extract(context.Background(), &domain.Document{
		StoragePath: "doc-1_blob",
		MimeType:    "application/octet-stream",
	})
	if err == nil || !strings.Contains(err.Error(), "unsupported content type") {
		t.Fatalf("expected unsupported content error, got %v", err)
	}
}

func TestIsProbablyText(t *testing.T) {
	if !isProbablyText([]byte("ordinary report text with unicode é")) {
		t.Fatalf("expected text detection")
	}
	if isProbablyText([]byte{'a', 0x00, 'b'}) {
		t.Fatalf("NUL byte must mark content as binary")
	}
}
