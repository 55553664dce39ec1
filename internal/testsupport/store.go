package testsupport

import (
	"context"
	"fmt"
	"testing"

	"pagemill/internal/config"
	"pagemill/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewUploadPage creates and persists an upload-origin page for tests.
func NewUploadPage(t testing.TB, st *store.Store, name string, order int64) *store.Page {
	t.Helper()

	page, err := st.SavePage(context.Background(), &store.Page{
		Origin:   store.OriginUpload,
		FileName: name,
		MimeType: "image/png",
		Order:    order,
	})
	if err != nil {
		t.Fatalf("store.SavePage: %v", err)
	}
	return page
}

// NewPDFPages creates a File plus n pdf_generated pages referencing it.
func NewPDFPages(t testing.TB, st *store.Store, name string, n int) (*store.File, []*store.Page) {
	t.Helper()

	ctx := context.Background()
	file, err := st.SaveFile(ctx, &store.File{Name: name, MimeType: "application/pdf"})
	if err != nil {
		t.Fatalf("store.SaveFile: %v", err)
	}

	pages := make([]*store.Page, 0, n)
	for i := 1; i <= n; i++ {
		page, err := st.SavePage(ctx, &store.Page{
			Origin:     store.OriginPDFGenerated,
			FileID:     file.ID,
			PageNumber: i,
			FileName:   fmt.Sprintf("%s (page %d)", name, i),
			MimeType:   "application/pdf",
			Order:      int64(i - 1),
		})
		if err != nil {
			t.Fatalf("store.SavePage: %v", err)
		}
		pages = append(pages, page)
	}
	return file, pages
}
