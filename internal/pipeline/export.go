package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"pagemill/internal/logging"
	"pagemill/internal/services"
	"pagemill/internal/store"
)

// ExportPage copies a completed page's artifacts into destDir, which
// defaults to the configured export directory. Returns the destination
// paths.
func (m *Manager) ExportPage(ctx context.Context, pageID, destDir string) ([]string, error) {
	page, err := m.store.GetPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, services.Wrap(services.ErrNotFound, "export", "load page", pageID, nil)
	}
	if page.Status != store.StatusCompleted {
		return nil, services.Wrap(services.ErrValidation, "export", "check status",
			"page is not completed (status "+string(page.Status)+")", nil)
	}
	if len(page.Outputs) == 0 {
		return nil, services.Wrap(services.ErrValidation, "export", "check outputs",
			"completed page has no artifacts", nil)
	}

	if destDir == "" {
		destDir = m.cfg.Paths.ExportDir
	}
	target := filepath.Join(destDir, exportBaseName(page))
	if err := os.MkdirAll(target, 0o755); err != nil {
		return nil, services.Wrap(services.ErrStorage, "export", "create directory", target, err)
	}

	var exported []string
	for _, output := range page.Outputs {
		if err := ctx.Err(); err != nil {
			return exported, err
		}
		dest := filepath.Join(target, filepath.Base(output.Path))
		if err := copyFile(output.Path, dest); err != nil {
			return exported, services.Wrap(services.ErrStorage, "export", "copy artifact", output.Kind, err)
		}
		exported = append(exported, dest)
	}

	m.logger.Info("exported page artifacts",
		logging.String(logging.FieldPageID, pageID),
		logging.Int("artifacts", len(exported)),
		logging.String("destination", target),
		logging.String(logging.FieldEventType, "page_exported"),
	)
	return exported, nil
}

func exportBaseName(page *store.Page) string {
	base := filepath.Base(page.FileName)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]
	if page.Origin == store.OriginPDFGenerated {
		return fmt.Sprintf("%s-p%03d", sanitizeName(name), page.PageNumber)
	}
	return sanitizeName(name)
}

func sanitizeName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			out = append(out, r)
		case r == ' ':
			out = append(out, '-')
		}
	}
	if len(out) == 0 {
		return "page"
	}
	return string(out)
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
