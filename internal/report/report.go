// -----------------------------------------------------------------------
// Crawl Reports - JSON and PDF summaries of a completed crawl
// -----------------------------------------------------------------------

package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/lustro/internal/common"
	"github.com/ternarybob/lustro/internal/models"
)

// Writer renders completed crawl results to report files
type Writer struct {
	config common.ReportConfig
	logger arbor.ILogger
}

// NewWriter creates a report writer and ensures the output directory
// exists.
func NewWriter(config common.ReportConfig, logger arbor.ILogger) (*Writer, error) {
	if err := os.MkdirAll(config.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}
	return &Writer{config: config, logger: logger}, nil
}

// Write renders the configured report formats and returns the paths of
// the files written.
func (w *Writer) Write(stats *models.CrawlStats) ([]string, error) {
	var written []string

	if w.config.JSON {
		path, err := w.writeJSON(stats)
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}

	if w.config.PDF {
		path, err := w.writePDF(stats)
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}

	w.logger.Info().
		Str("crawl_id", stats.ID).
		Int("files", len(written)).
		Msg("Crawl reports written")

	return written, nil
}

func (w *Writer) writeJSON(stats *models.CrawlStats) (string, error) {
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal crawl stats: %w", err)
	}

	path := filepath.Join(w.config.Dir, fmt.Sprintf("crawl-%s.json", stats.ID))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write JSON report: %w", err)
	}
	return path, nil
}

func (w *Writer) writePDF(stats *models.CrawlStats) (string, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Crawl Report", "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Start URL: %s", stats.StartURL), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Started: %s", stats.StartTime.Format("2006-01-02 15:04:05")), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Duration: %.2f seconds", stats.DurationSeconds), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Pages crawled: %d", stats.PagesCrawled), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 8, "Pages", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)

	for _, page := range stats.Pages {
		line := fmt.Sprintf("%3d  %s", page.Number+1, page.URL)
		if page.Lighthouse != nil {
			line += fmt.Sprintf("  (perf %.0f)", page.Lighthouse.Performance)
		}
		if len(page.Screenshots) > 0 {
			line += fmt.Sprintf("  [%d screenshots]", len(page.Screenshots))
		}
		pdf.CellFormat(0, 5, line, "", 1, "L", false, 0, "")
	}

	path := filepath.Join(w.config.Dir, fmt.Sprintf("crawl-%s.pdf", stats.ID))
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("failed to write PDF report: %w", err)
	}
	return path, nil
}
