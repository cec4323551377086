package pipeline

import (
	"testing"

	"vwlab/ml"
)

func TestNewDocumentCleaner(t *testing.T) {
	cleaner := NewDocumentCleaner(nil)
	if cleaner == nil {
		t.Fatal("NewDocumentCleaner returned nil")
	}
	if len(cleaner.rules) == 0 {
		t.Error("No default rules added")
	}
}

func TestDocumentCleanerClean(t *testing.T) {
	cleaner := NewDocumentCleaner(nil)
	docs := []ml.Document{
		{ID: "ok", Author: "Broyden", Text: "Lorem ipsum", Year: 1999},
		{ID: "spaces", Author: "  Jane   Doe ", Text: " dolor  sit \n", Year: 2001},
		{ID: "no-author", Author: "   ", Text: "Lorem", Year: 1999},
		{ID: "ancient", Author: "Euclid", Text: "Elements", Year: 300},
	}

	cleaned, issues := cleaner.Clean(docs)
	if len(cleaned) != 2 {
		t.Fatalf("expected 2 cleaned documents, got %d", len(cleaned))
	}
	if cleaned[1].Author != "Jane Doe" {
		t.Errorf("expected collapsed author, got %q", cleaned[1].Author)
	}
	if cleaned[1].Text != "dolor  sit" {
		t.Errorf("expected trimmed text with inner spacing kept, got %q", cleaned[1].Text)
	}
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %d: %+v", len(issues), issues)
	}
	if issues[0].DocumentID != "no-author" || issues[0].Rule != "required_fields" {
		t.Errorf("unexpected first issue: %+v", issues[0])
	}
	if issues[1].DocumentID != "ancient" || issues[1].Rule != "year_range" {
		t.Errorf("unexpected second issue: %+v", issues[1])
	}

	stats := cleaner.GetStats()
	if stats.TotalProcessed != 4 || stats.Passed != 2 || stats.Rejected != 2 || stats.Corrected != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.Issues["year_range"] != 1 {
		t.Errorf("expected one year_range issue, got %d", stats.Issues["year_range"])
	}
	if got := cleaner.GetIssues(1); len(got) != 1 || got[0].DocumentID != "ancient" {
		t.Errorf("unexpected latest issue: %+v", got)
	}
}

func TestNormalizationRule(t *testing.T) {
	rule := NewNormalizationRule()
	doc, err := rule.Apply(ml.Document{Author: "Cafe\u0301", Text: "e\u0301te\u0301"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Author != "Caf\u00e9" || doc.Text != "\u00e9t\u00e9" {
		t.Errorf("expected NFC composed strings, got %q %q", doc.Author, doc.Text)
	}
}
