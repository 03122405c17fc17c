package pipeline

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/cyberprophet/sentiment-analysis/data"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// CleaningRule 清洗规则
type CleaningRule interface {
	Apply(data.Record) (data.Record, error)
	Name() string
}

// QualityIssue 质量问题
type QualityIssue struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// DataCleaner 数据清洗器
type DataCleaner struct {
	rules  []CleaningRule
	logger *zap.Logger

	mu     sync.RWMutex
	issues []QualityIssue
	stats  CleaningStats
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

// NewDataCleaner 创建数据清洗器
func NewDataCleaner(dropDuplicates bool, logger *zap.Logger) *DataCleaner {
	if logger == nil {
		logger = zap.NewNop()
	}
	cleaner := &DataCleaner{
		logger: logger,
		stats: CleaningStats{
			Issues: make(map[string]int64),
		},
	}

	cleaner.AddRule(NewWhitespaceRule())
	cleaner.AddRule(NewEmptyTextRule())
	cleaner.AddRule(NewTextLengthRule(0))
	if dropDuplicates {
		cleaner.AddRule(NewDuplicateDetectionRule())
	}
	return cleaner
}

func (dc *DataCleaner) AddRule(rule CleaningRule) {
	dc.rules = append(dc.rules, rule)
	dc.logger.Debug("Added cleaning rule", zap.String("rule", rule.Name()))
}

// Clean runs every rule over each record. A record failing any rule is
// dropped; the survivors keep their input order.
func (dc *DataCleaner) Clean(records []data.Record) ([]data.Record, []QualityIssue) {
	cleaned := make([]data.Record, 0, len(records))
	var issues []QualityIssue

	dc.mu.Lock()
	defer dc.mu.Unlock()

	for _, record := range records {
		dc.stats.TotalProcessed++

		original := record
		var recordIssues []QualityIssue
		for _, rule := range dc.rules {
			next, err := rule.Apply(record)
			if err != nil {
				recordIssues = append(recordIssues, QualityIssue{
					Type:      rule.Name(),
					Message:   err.Error(),
					Text:      original.Text,
					Timestamp: time.Now(),
				})
				dc.stats.Issues[rule.Name()]++
				break
			}
			record = next
		}

		if len(recordIssues) > 0 {
			dc.stats.Rejected++
			issues = append(issues, recordIssues...)
			continue
		}
		if record.Text != original.Text {
			dc.stats.Corrected++
		}
		dc.stats.Passed++
		cleaned = append(cleaned, record)
	}

	dc.issues = append(dc.issues, issues...)
	dc.stats.LastClean = time.Now()
	return cleaned, issues
}

func (dc *DataCleaner) GetStats() CleaningStats {
	dc.mu.RLock()
	defer dc.mu.RUnlock()

	stats := dc.stats
	stats.Issues = make(map[string]int64, len(dc.stats.Issues))
	for k, v := range dc.stats.Issues {
		stats.Issues[k] = v
	}
	return stats
}

// GetIssues returns the most recent issues, at most limit of them.
func (dc *DataCleaner) GetIssues(limit int) []QualityIssue {
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

// WhitespaceRule 空白规范化规则
type WhitespaceRule struct{}

func NewWhitespaceRule() *WhitespaceRule {
	return &WhitespaceRule{}
}

func (r *WhitespaceRule) Name() string {
	return "whitespace"
}

func (r *WhitespaceRule) Apply(record data.Record) (data.Record, error) {
	record.Text = strings.Join(strings.Fields(record.Text), " ")
	return record, nil
}

// EmptyTextRule 空文本规则
type EmptyTextRule struct{}

func NewEmptyTextRule() *EmptyTextRule {
	return &EmptyTextRule{}
}

func (r *EmptyTextRule) Name() string {
	return "empty_text"
}

func (r *EmptyTextRule) Apply(record data.Record) (data.Record, error) {
	if strings.TrimSpace(record.Text) == "" {
		return record, errors.New("text is empty")
	}
	return record, nil
}

// TextLengthRule 文本长度规则
type TextLengthRule struct {
	MaxRunes int
}

// NewTextLengthRule caps the text length; maxRunes <= 0 uses 5000.
func NewTextLengthRule(maxRunes int) *TextLengthRule {
	if maxRunes <= 0 {
		maxRunes = 5000
	}
	return &TextLengthRule{MaxRunes: maxRunes}
}

func (r *TextLengthRule) Name() string {
	return "text_length"
}

func (r *TextLengthRule) Apply(record data.Record) (data.Record, error) {
	if n := utf8.RuneCountInString(record.Text); n > r.MaxRunes {
		return record, errors.Errorf("text has %d characters, limit is %d", n, r.MaxRunes)
	}
	return record, nil
}

// DuplicateDetectionRule 重复检测规则
type DuplicateDetectionRule struct {
	seen map[string]struct{}
	mu   sync.Mutex
}

func NewDuplicateDetectionRule() *DuplicateDetectionRule {
	return &DuplicateDetectionRule{
		seen: make(map[string]struct{}),
	}
}

func (r *DuplicateDetectionRule) Name() string {
	return "duplicate_detection"
}

func (r *DuplicateDetectionRule) Apply(record data.Record) (data.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.seen[record.Text]; exists {
		return record, errors.Errorf("duplicate text %q", record.Text)
	}
	r.seen[record.Text] = struct{}{}
	return record, nil
}
