package services

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cs-instructor-backend/internal/config"
	"cs-instructor-backend/internal/logger"
	"cs-instructor-backend/models"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

// languageByExtension maps code file extensions to language tags recorded in
// chunk metadata.
var languageByExtension = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".go":   "go",
	".java": "java",
	".cpp":  "cpp",
	".c":    "c",
	".html": "html",
	".css":  "css",
}

// FileProcessor saves uploads and extracts their text into documents ready
// for ingestion. PDFs become one document per page, spreadsheets one per
// sheet, everything else a single text document.
type FileProcessor struct {
	uploadDir  string
	maxSize    int64
	allowedExt map[string]bool
}

func NewFileProcessor(cfg *config.Config) (*FileProcessor, error) {
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	allowed := make(map[string]bool, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		allowed["."+strings.TrimPrefix(strings.TrimSpace(ext), ".")] = true
	}

	return &FileProcessor{
		uploadDir:  cfg.UploadDir,
		maxSize:    cfg.MaxFileSize,
		allowedExt: allowed,
	}, nil
}

// Inspect reports file metadata and whether the upload is acceptable.
func (p *FileProcessor) Inspect(header *multipart.FileHeader) models.FileInfo {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	return models.FileInfo{
		Filename:  filepath.Base(header.Filename),
		Size:      header.Size,
		SizeHuman: HumanFileSize(header.Size),
		MimeType:  mime.TypeByExtension(ext),
		Extension: ext,
		IsAllowed: p.allowedExt[ext] && header.Size <= p.maxSize,
	}
}

// Save writes the upload under a collision-free name and returns its path.
func (p *FileProcessor) Save(header *multipart.FileHeader) (string, error) {
	src, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	path := p.uniquePath(filepath.Base(header.Filename))
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write upload: %w", err)
	}
	return path, nil
}

// uniquePath appends _1, _2, ... to the stem until the name is free.
func (p *FileProcessor) uniquePath(filename string) string {
	ext := filepath.Ext(filename)
	stem := sanitizeFilename(strings.TrimSuffix(filename, ext))

	path := filepath.Join(p.uploadDir, stem+ext)
	for counter := 1; ; counter++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = filepath.Join(p.uploadDir, fmt.Sprintf("%s_%d%s", stem, counter, ext))
	}
}

func sanitizeFilename(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "upload"
	}
	return string(out)
}

// Extract turns a saved file into documents with per-file metadata attached.
func (p *FileProcessor) Extract(path string) ([]models.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		return p.extractPDF(path)
	case ".xlsx":
		return p.extractXLSX(path)
	default:
		return p.extractText(path, ext)
	}
}

// extractPDF yields one document per page so page numbers survive into chunk
// metadata.
func (p *FileProcessor) extractPDF(path string) ([]models.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}

	var docs []models.Document
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(make(map[string]*pdf.Font))
		if err != nil {
			logger.Warn("could not extract pdf page", "path", path, "page", i, "error", err.Error())
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		docs = append(docs, models.Document{
			Content: text,
			Metadata: map[string]string{
				"file_type": "pdf",
				"page":      fmt.Sprintf("%d", i),
			},
		})
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("no extractable text in %s", filepath.Base(path))
	}
	return docs, nil
}

// extractXLSX yields one document per sheet, rows joined as tab-separated
// lines.
func (p *FileProcessor) extractXLSX(path string) ([]models.Document, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	var docs []models.Document
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			logger.Warn("could not read sheet", "path", path, "sheet", sheet, "error", err.Error())
			continue
		}

		var sb strings.Builder
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line != "" {
				sb.WriteString(line)
				sb.WriteString("\n")
			}
		}
		if sb.Len() == 0 {
			continue
		}
		docs = append(docs, models.Document{
			Content: sb.String(),
			Metadata: map[string]string{
				"file_type": "xlsx",
				"sheet":     sheet,
			},
		})
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("no extractable text in %s", filepath.Base(path))
	}
	return docs, nil
}

func (p *FileProcessor) extractText(path, ext string) ([]models.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if strings.TrimSpace(string(content)) == "" {
		return nil, fmt.Errorf("no extractable text in %s", filepath.Base(path))
	}

	meta := map[string]string{
		"file_type": strings.TrimPrefix(ext, "."),
		"size":      fmt.Sprintf("%d", len(content)),
	}
	if language, ok := languageByExtension[ext]; ok {
		meta["language"] = language
	}

	return []models.Document{{Content: string(content), Metadata: meta}}, nil
}

// SourceInfo builds the ingestion-wide metadata for an upload.
func (p *FileProcessor) SourceInfo(info models.FileInfo) map[string]string {
	return map[string]string{
		"source":       info.Filename,
		"processed_at": time.Now().UTC().Format(time.RFC3339),
	}
}

// Cleanup removes a saved upload, logging rather than failing on error.
func (p *FileProcessor) Cleanup(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("could not remove upload", "path", path, "error", err.Error())
	}
}

// HumanFileSize renders a byte count as B/KB/MB/GB.
func HumanFileSize(size int64) string {
	const unit = 1024
	switch {
	case size < unit:
		return fmt.Sprintf("%d B", size)
	case size < unit*unit:
		return fmt.Sprintf("%.1f KB", float64(size)/unit)
	case size < unit*unit*unit:
		return fmt.Sprintf("%.1f MB", float64(size)/(unit*unit))
	default:
		return fmt.Sprintf("%.1f GB", float64(size)/(unit*unit*unit))
	}
}
