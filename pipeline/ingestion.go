package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v2"

	"vwlab/db"
	"vwlab/ml"
)

// Record 数据集中的一条记录
type Record struct {
	ID     string   `yaml:"id" json:"id"`
	Author string   `yaml:"author" json:"author"`
	Text   string   `yaml:"text" json:"text"`
	Year   int      `yaml:"year" json:"year"`
	Label  *float64 `yaml:"label" json:"label,omitempty"`
}

// Document 转换为 ml.Document
func (r Record) Document() ml.Document {
	return ml.Document{ID: r.ID, Author: r.Author, Text: r.Text, Year: r.Year}
}

// Dataset 数据集: 带标签的训练文档和待预测文档
type Dataset struct {
	Documents []Record `yaml:"documents" json:"documents"`
	Probes    []Record `yaml:"probes" json:"probes"`
}

// LoadDataset 从 YAML 或 JSON 文件加载数据集
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	var dataset Dataset
	if err := yaml.Unmarshal(data, &dataset); err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", path, err)
	}
	if len(dataset.Documents) == 0 {
		return nil, fmt.Errorf("%w: dataset %s has no documents", ml.ErrInvalidInput, path)
	}
	dataset.AssignIDs()
	return &dataset, nil
}

// DefaultDataset 内置的示例数据集
func DefaultDataset() *Dataset {
	label := func(v float64) *float64 { return &v }
	dataset := &Dataset{
		Documents: []Record{
			{
				ID:     "broyden",
				Author: "Broyden",
				Text:   "Lorem ipsum dolor sit amet, consectetur adipiscing elit, sed do eiusmod tempor incididunt ut labore et dolore magna aliqua. Fringilla urna porttitor rhoncus dolor purus non. 1999",
				Year:   1999,
				Label:  label(0),
			},
			{
				ID:     "fletcher",
				Author: "Fletcher",
				Text:   "Tristique magna sit amet purus gravida quis blandit. 1989",
				Year:   1989,
				Label:  label(1),
			},
			{
				ID:     "goldfarb",
				Author: "Goldfarb",
				Text:   "Senectus et netus et malesuada fames ac turpis. Nunc id cursus metus aliquam eleifend mi in nulla. Interdum consectetur libero id faucibus nisl tincidunt eget. Egestas diam in arcu cursus euismod quis viverra nibh cras. 1960",
				Year:   1960,
				Label:  label(1),
			},
		},
		Probes: []Record{
			{
				ID:     "shanno",
				Author: "Shanno",
				Text:   "Lorem ipsum dolor sit amet, consectetur adipiscing elit, sed do eiusmod tempor incididunt ut labore et dolore magna aliqua.",
				Year:   2019,
			},
		},
	}
	return dataset
}

// AssignIDs 为缺少 ID 的记录生成 doc-N / probe-N
func (d *Dataset) AssignIDs() {
	for i := range d.Documents {
		if d.Documents[i].ID == "" {
			d.Documents[i].ID = fmt.Sprintf("doc-%d", i)
		}
	}
	for i := range d.Probes {
		if d.Probes[i].ID == "" {
			d.Probes[i].ID = fmt.Sprintf("probe-%d", i)
		}
	}
}

// Training 返回带标签的文档及其标签, 缺少标签的记录视为无效输入
func (d *Dataset) Training() ([]ml.Document, []float64, error) {
	docs := make([]ml.Document, 0, len(d.Documents))
	labels := make([]float64, 0, len(d.Documents))
	for i, record := range d.Documents {
		if record.Label == nil {
			return nil, nil, fmt.Errorf("%w: document %d (%s) has no label", ml.ErrInvalidInput, i, record.ID)
		}
		docs = append(docs, record.Document())
		labels = append(labels, *record.Label)
	}
	return docs, labels, nil
}

// ProbeDocuments 返回待预测文档
func (d *Dataset) ProbeDocuments() []ml.Document {
	docs := make([]ml.Document, 0, len(d.Probes))
	for _, record := range d.Probes {
		docs = append(docs, record.Document())
	}
	return docs
}

// Clean 逐条清洗记录, 返回只含通过记录的新数据集(标签保留)和被拒绝记录的问题
func (d *Dataset) Clean(cleaner *DocumentCleaner) (*Dataset, []QualityIssue) {
	cleaned := &Dataset{
		Documents: make([]Record, 0, len(d.Documents)),
		Probes:    make([]Record, 0, len(d.Probes)),
	}
	var issues []QualityIssue
	clean := func(records []Record) []Record {
		kept := make([]Record, 0, len(records))
		for _, record := range records {
			docs, recordIssues := cleaner.Clean([]ml.Document{record.Document()})
			issues = append(issues, recordIssues...)
			if len(docs) == 0 {
				continue
			}
			kept = append(kept, Record{
				ID:     docs[0].ID,
				Author: docs[0].Author,
				Text:   docs[0].Text,
				Year:   docs[0].Year,
				Label:  record.Label,
			})
		}
		return kept
	}
	cleaned.Documents = clean(d.Documents)
	cleaned.Probes = clean(d.Probes)
	return cleaned, issues
}

// ExtractAll 并发计算每个文档的词频, 结果顺序与输入一致
func ExtractAll(ctx context.Context, pre *ml.Preprocessor, docs []ml.Document, workers int) ([]ml.TermFrequencies, error) {
	if pre == nil {
		return nil, errors.New("preprocessor is required")
	}
	if workers < 1 {
		workers = 1
	}
	results := make([]ml.TermFrequencies, len(docs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range docs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = pre.Extract(docs[i].Text)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Storage 数据存储接口
type Storage interface {
	SaveDocument(doc ml.Document, label *float64) error
	SaveFeatures(docID string, frequencies ml.TermFrequencies) error
}

type sqliteStorage struct{}

// SQLiteStorage 使用 db 包的全局数据库
func SQLiteStorage() Storage {
	return sqliteStorage{}
}

func (sqliteStorage) SaveDocument(doc ml.Document, label *float64) error {
	return db.SaveDocument(doc, label)
}

func (sqliteStorage) SaveFeatures(docID string, frequencies ml.TermFrequencies) error {
	return db.SaveFeatures(docID, frequencies)
}

// IngestionStats 摄取统计
type IngestionStats struct {
	Received int64 `json:"received"`
	Stored   int64 `json:"stored"`
	Rejected int64 `json:"rejected"`
}

// Ingester 数据摄取器: 清洗, 提取特征, 存储
type Ingester struct {
	cleaner *DocumentCleaner
	pre     *ml.Preprocessor
	storage Storage
	workers int
	logger  *zap.Logger

	received atomic.Int64
	stored   atomic.Int64
	rejected atomic.Int64
}

// NewIngester 创建数据摄取器
func NewIngester(cleaner *DocumentCleaner, pre *ml.Preprocessor, storage Storage, workers int, logger *zap.Logger) *Ingester {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cleaner == nil {
		cleaner = NewDocumentCleaner(logger)
	}
	if pre == nil {
		// Without a cache NewPreprocessor cannot fail.
		pre, _ = ml.NewPreprocessor(nil, 0)
	}
	return &Ingester{
		cleaner: cleaner,
		pre:     pre,
		storage: storage,
		workers: workers,
		logger:  logger,
	}
}

// Ingest 处理记录, 被拒绝的记录以 QualityIssue 返回而不是中断整个批次
func (in *Ingester) Ingest(ctx context.Context, records []Record) ([]QualityIssue, error) {
	in.received.Add(int64(len(records)))

	labels := make(map[string]*float64, len(records))
	docs := make([]ml.Document, 0, len(records))
	for i, record := range records {
		if record.ID == "" {
			record.ID = fmt.Sprintf("doc-%d", i)
		}
		labels[record.ID] = record.Label
		docs = append(docs, record.Document())
	}

	cleaned, issues := in.cleaner.Clean(docs)
	in.rejected.Add(int64(len(docs) - len(cleaned)))
	for _, issue := range issues {
		in.logger.Warn("document rejected",
			zap.String("document", issue.DocumentID),
			zap.String("rule", issue.Rule),
			zap.String("message", issue.Message))
	}

	frequencies, err := ExtractAll(ctx, in.pre, cleaned, in.workers)
	if err != nil {
		return issues, err
	}

	for i, doc := range cleaned {
		if err := ctx.Err(); err != nil {
			return issues, err
		}
		if err := in.storage.SaveDocument(doc, labels[doc.ID]); err != nil {
			return issues, fmt.Errorf("save document %s: %w", doc.ID, err)
		}
		if err := in.storage.SaveFeatures(doc.ID, frequencies[i]); err != nil {
			return issues, fmt.Errorf("save features %s: %w", doc.ID, err)
		}
		in.stored.Add(1)
	}
	in.logger.Info("ingestion finished",
		zap.Int("received", len(records)),
		zap.Int("stored", len(cleaned)),
		zap.Int("rejected", len(docs)-len(cleaned)))
	return issues, nil
}

// GetStats 获取统计信息
func (in *Ingester) GetStats() IngestionStats {
	return IngestionStats{
		Received: in.received.Load(),
		Stored:   in.stored.Load(),
		Rejected: in.rejected.Load(),
	}
}
