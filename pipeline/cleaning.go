package pipeline

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"vwlab/ml"
)

// CleaningRule 清洗规则
type CleaningRule interface {
	Apply(ml.Document) (ml.Document, error)
	Name() string
}

// QualityIssue 质量问题
type QualityIssue struct {
	Rule       string    `json:"rule"`
	Severity   string    `json:"severity"` // low, medium, high
	Message    string    `json:"message"`
	DocumentID string    `json:"document_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// CleaningStats 清洗统计
type CleaningStats struct {
	TotalProcessed int64            `json:"total_processed"`
	Passed         int64            `json:"passed"`
	Rejected       int64            `json:"rejected"`
	Corrected      int64            `json:"corrected"`
	Issues         map[string]int64 `json:"issues"`
	LastClean      time.Time        `json:"last_clean"`
}

// DocumentCleaner 文档清洗器
type DocumentCleaner struct {
	rules  []CleaningRule
	logger *zap.Logger

	mu     sync.RWMutex
	issues []QualityIssue
	stats  CleaningStats
}

// NewDocumentCleaner 创建文档清洗器
func NewDocumentCleaner(logger *zap.Logger) *DocumentCleaner {
	if logger == nil {
		logger = zap.NewNop()
	}
	cleaner := &DocumentCleaner{
		logger: logger,
		stats: CleaningStats{
			Issues: make(map[string]int64),
		},
	}

	// 添加默认规则
	cleaner.AddRule(NewNormalizationRule())
	cleaner.AddRule(NewWhitespaceRule())
	cleaner.AddRule(NewRequiredFieldsRule())
	cleaner.AddRule(NewYearRangeRule())

	return cleaner
}

// AddRule 添加清洗规则
func (dc *DocumentCleaner) AddRule(rule CleaningRule) {
	dc.rules = append(dc.rules, rule)
	dc.logger.Debug("added cleaning rule", zap.String("rule", rule.Name()))
}

// Clean 清洗文档, 返回通过的文档和发现的问题
func (dc *DocumentCleaner) Clean(docs []ml.Document) ([]ml.Document, []QualityIssue) {
	cleaned := make([]ml.Document, 0, len(docs))
	var issues []QualityIssue

	dc.mu.Lock()
	defer dc.mu.Unlock()

	for _, doc := range docs {
		dc.stats.TotalProcessed++
		original := doc
		var docIssues []QualityIssue

		for _, rule := range dc.rules {
			fixed, err := rule.Apply(doc)
			if err != nil {
				docIssues = append(docIssues, QualityIssue{
					Rule:       rule.Name(),
					Severity:   "high",
					Message:    err.Error(),
					DocumentID: doc.ID,
					Timestamp:  time.Now(),
				})
				dc.stats.Issues[rule.Name()]++
				continue
			}
			doc = fixed
		}

		if len(docIssues) > 0 {
			dc.stats.Rejected++
			issues = append(issues, docIssues...)
			dc.issues = append(dc.issues, docIssues...)
			continue
		}
		if doc != original {
			dc.stats.Corrected++
		}
		dc.stats.Passed++
		cleaned = append(cleaned, doc)
	}

	dc.stats.LastClean = time.Now()
	return cleaned, issues
}

// GetStats 获取统计信息
func (dc *DocumentCleaner) GetStats() CleaningStats {
	dc.mu.RLock()
	defer dc.mu.RUnlock()

	stats := dc.stats
	stats.Issues = make(map[string]int64, len(dc.stats.Issues))
	for k, v := range dc.stats.Issues {
		stats.Issues[k] = v
	}
	return stats
}

// GetIssues 获取最近的问题
func (dc *DocumentCleaner) GetIssues(limit int) []QualityIssue {
	dc.mu.RLock()
	defer dc.mu.RUnlock()

	if limit <= 0 || limit > len(dc.issues) {
		limit = len(dc.issues)
	}
	issues := make([]QualityIssue, limit)
	copy(issues, dc.issues[len(dc.issues)-limit:])
	return issues
}

// ============ 清洗规则实现 ============

// NormalizationRule Unicode NFC 规范化
type NormalizationRule struct{}

func NewNormalizationRule() *NormalizationRule {
	return &NormalizationRule{}
}

func (r *NormalizationRule) Name() string {
	return "unicode_normalization"
}

func (r *NormalizationRule) Apply(doc ml.Document) (ml.Document, error) {
	doc.Author = norm.NFC.String(doc.Author)
	doc.Text = norm.NFC.String(doc.Text)
	return doc, nil
}

// WhitespaceRule 去除首尾空白, 作者名内部空白合并为单个空格
type WhitespaceRule struct{}

func NewWhitespaceRule() *WhitespaceRule {
	return &WhitespaceRule{}
}

func (r *WhitespaceRule) Name() string {
	return "whitespace"
}

func (r *WhitespaceRule) Apply(doc ml.Document) (ml.Document, error) {
	doc.Author = strings.Join(strings.Fields(doc.Author), " ")
	// Inner spacing of the text is left alone, the tokenizer handles it.
	doc.Text = strings.TrimSpace(doc.Text)
	return doc, nil
}

// RequiredFieldsRule 必填字段检查
type RequiredFieldsRule struct{}

func NewRequiredFieldsRule() *RequiredFieldsRule {
	return &RequiredFieldsRule{}
}

func (r *RequiredFieldsRule) Name() string {
	return "required_fields"
}

func (r *RequiredFieldsRule) Apply(doc ml.Document) (ml.Document, error) {
	return doc, doc.Validate()
}

// YearRangeRule 年份范围检查
type YearRangeRule struct {
	MinYear int
	MaxYear int
}

func NewYearRangeRule() *YearRangeRule {
	return &YearRangeRule{
		MinYear: 1000,
		MaxYear: time.Now().Year() + 1,
	}
}

func (r *YearRangeRule) Name() string {
	return "year_range"
}

func (r *YearRangeRule) Apply(doc ml.Document) (ml.Document, error) {
	if doc.Year < r.MinYear || doc.Year > r.MaxYear {
		return doc, fmt.Errorf("%w: year %d outside [%d, %d]", ml.ErrInvalidInput, doc.Year, r.MinYear, r.MaxYear)
	}
	return doc, nil
}
