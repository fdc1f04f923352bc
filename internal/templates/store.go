package templates

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"reportbot/pkg/logger"
	"reportbot/pkg/models"
	"reportbot/pkg/utils"

	"rsc.io/pdf"
)

// 模板文本在提示词中的单篇长度上限
const promptCharLimit = 2000

// allowedExtensions 支持解析的上传类型
// Word/Excel 等其他格式由外部解析服务处理，不在本服务范围内
var allowedExtensions = map[string]string{
	".pdf": "pdf",
	".txt": "text",
	".md":  "text",
}

// Store 报告模板库
// 原始上传保存在 uploads/，解析出的纯文本保存在 uploads/parsed/<名称>.txt
type Store struct {
	uploadDir string
	parsedDir string
}

// NewStore 创建模板库
func NewStore(dataDir string) (*Store, error) {
	uploadDir := filepath.Join(dataDir, "uploads")
	parsedDir := filepath.Join(uploadDir, "parsed")

	for _, dir := range []string{uploadDir, parsedDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create template dir %s: %w", dir, err)
		}
	}

	return &Store{
		uploadDir: uploadDir,
		parsedDir: parsedDir,
	}, nil
}

// SaveUpload 保存上传文件并解析为模板文本
// 不支持的扩展名返回 ValidationError；解析失败时清理原始文件
func (s *Store) SaveUpload(filename string, r io.Reader) (*models.UploadedTemplate, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	fileType, ok := allowedExtensions[ext]
	if !ok {
		return nil, &models.ValidationError{
			Field:  "file",
			Reason: fmt.Sprintf("file type %q not supported, allowed: .pdf, .txt, .md", ext),
		}
	}

	// 只取文件名部分，防止路径穿越
	base := filepath.Base(filename)
	savePath := filepath.Join(s.uploadDir, base)

	f, err := os.Create(savePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload file: %w", err)
	}
	written, err := io.Copy(f, r)
	f.Close()
	if err != nil {
		os.Remove(savePath)
		return nil, fmt.Errorf("failed to write upload file: %w", err)
	}

	content, err := s.parseFile(savePath, ext)
	if err != nil {
		os.Remove(savePath)
		return nil, &models.ValidationError{
			Field:  "file",
			Reason: fmt.Sprintf("could not parse file: %v", err),
		}
	}

	stem := strings.TrimSuffix(base, ext)
	parsedPath := filepath.Join(s.parsedDir, stem+".txt")
	if err := os.WriteFile(parsedPath, []byte(content), 0644); err != nil {
		return nil, fmt.Errorf("failed to write parsed template: %w", err)
	}

	logger.Info("模板已上传: %s (%s, %s)", base, fileType, utils.FormatBytes(written))

	preview := content
	if len(preview) > 500 {
		preview = preview[:500] + "..."
	}

	return &models.UploadedTemplate{
		Filename:       base,
		FileType:       fileType,
		ContentPreview: preview,
		UploadedAt:     time.Now(),
	}, nil
}

// parseFile 按扩展名解析文件内容
func (s *Store) parseFile(path, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return extractPDFText(path)
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
		return string(data), nil
	}
	return "", fmt.Errorf("unsupported extension: %s", ext)
}

// extractPDFText 提取 PDF 全部页面的文本
func extractPDFText(path string) (string, error) {
	doc, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var pages []string
	for i := 1; i <= doc.NumPage(); i++ {
		p := doc.Page(i)
		if p.V.IsNull() {
			continue
		}
		content := p.Content()
		parts := make([]string, 0, len(content.Text))
		for _, text := range content.Text {
			if strings.TrimSpace(text.S) == "" {
				continue
			}
			parts = append(parts, text.S)
		}
		if len(parts) > 0 {
			pages = append(pages, strings.Join(parts, " "))
		}
	}

	if len(pages) == 0 {
		return "", fmt.Errorf("no extractable text in pdf")
	}
	return strings.Join(pages, "\n\n"), nil
}

// List 返回全部模板（名称升序），附带 300 字符预览
func (s *Store) List() ([]models.TemplateInfo, error) {
	entries, err := os.ReadDir(s.parsedDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read parsed dir: %w", err)
	}

	infos := make([]models.TemplateInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}

		path := filepath.Join(s.parsedDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("读取模板失败: %s: %v", entry.Name(), err)
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		infos = append(infos, models.TemplateInfo{
			Name:      strings.TrimSuffix(entry.Name(), ".txt"),
			Preview:   utils.TruncateString(string(data), 300),
			SizeChars: info.Size(),
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// Delete 删除指定名称的模板
func (s *Store) Delete(name string) error {
	parsedPath := filepath.Join(s.parsedDir, filepath.Base(name)+".txt")
	if _, err := os.Stat(parsedPath); os.IsNotExist(err) {
		return fmt.Errorf("template %q: %w", name, os.ErrNotExist)
	}
	if err := os.Remove(parsedPath); err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	logger.Info("模板已删除: %s", name)
	return nil
}

// LoadAll 加载全部模板文本用于提示词拼装
// 返回拼接后的文本（每篇截断到 promptCharLimit）和模板名称列表
func (s *Store) LoadAll() (string, []string, error) {
	infos, err := s.List()
	if err != nil {
		return "", nil, err
	}

	var blocks []string
	var names []string
	for _, info := range infos {
		path := filepath.Join(s.parsedDir, info.Name+".txt")
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		content := string(data)
		if len(content) > promptCharLimit {
			content = content[:promptCharLimit]
		}
		blocks = append(blocks, fmt.Sprintf("--- Template: %s ---\n%s", info.Name, content))
		names = append(names, info.Name)
	}

	return strings.Join(blocks, "\n\n"), names, nil
}
