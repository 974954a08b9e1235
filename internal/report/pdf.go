// Package report renders the hot-list snapshot into a downloadable PDF.
package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"

	"zbchat/internal/domain"
)

const fontName = "cjk"

// NewsPDF writes hot-list PDFs under a fixed directory. The caller treats
// generation as best effort: a failed PDF never fails the news command.
type NewsPDF struct {
	dir      string
	fontPath string
	log      *slog.Logger
}

// NewNewsPDF creates the output directory up front so a slow first command
// does not pay for it.
func NewNewsPDF(dir, fontPath string, log *slog.Logger) (*NewsPDF, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create pdf dir: %w", err)
	}
	return &NewsPDF{dir: dir, fontPath: fontPath, log: log}, nil
}

// Generate renders the list into a timestamped file and returns its path
// relative to the working directory, e.g. "pdf_news/百度热搜_20250101_120000.pdf".
func (n *NewsPDF) Generate(items []domain.NewsItem) (string, error) {
	if _, err := os.Stat(n.fontPath); err != nil {
		return "", fmt.Errorf("cjk font unavailable: %w", err)
	}

	filename := fmt.Sprintf("百度热搜_%s.pdf", time.Now().Format("20060102_150405"))
	path := filepath.Join(n.dir, filename)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddUTF8Font(fontName, "", n.fontPath)
	pdf.AddPage()

	pdf.SetFont(fontName, "", 20)
	pdf.SetTextColor(0x33, 0x33, 0x33)
	pdf.CellFormat(0, 14, "百度热搜榜", "", 1, "C", false, 0, "")

	pdf.SetFont(fontName, "", 14)
	pdf.SetTextColor(0x66, 0x66, 0x66)
	subtitle := fmt.Sprintf("生成时间：%s", time.Now().Format("2006年01月02日 15:04:05"))
	pdf.CellFormat(0, 10, subtitle, "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont(fontName, "", 12)
	pdf.SetTextColor(0x33, 0x33, 0x33)
	for _, item := range items {
		line := fmt.Sprintf("%s. %s", item.Rank, item.Title)
		if item.Heat != "" {
			line += fmt.Sprintf("（热度 %s）", item.Heat)
		}
		pdf.MultiCell(0, 8, line, "", "L", false)
		pdf.Ln(2)
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}

	n.log.Info("news pdf generated", "path", path)
	return path, nil
}
