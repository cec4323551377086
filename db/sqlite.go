package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"vwlab/ml"
)

var database *sql.DB

var errNotInitialized = errors.New("database not initialized")

// InitDB opens the SQLite database and creates the schema
func InitDB(path string) error {
	var err error
	database, err = sql.Open("sqlite3", path)
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS documents (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        doc_id TEXT NOT NULL UNIQUE,
        author TEXT NOT NULL,
        text TEXT NOT NULL,
        year INTEGER NOT NULL,
        label REAL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    CREATE TABLE IF NOT EXISTS features (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        doc_id TEXT NOT NULL,
        term TEXT NOT NULL,
        count INTEGER NOT NULL,
        UNIQUE(doc_id, term)
    );
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        doc_id TEXT NOT NULL,
        model_path TEXT NOT NULL,
        prediction REAL NOT NULL,
        created_at DATETIME NOT NULL
    );
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        run_id TEXT NOT NULL UNIQUE,
        model_path TEXT NOT NULL,
        epochs INTEGER NOT NULL,
        examples INTEGER NOT NULL,
        accuracy REAL NOT NULL,
        duration_ms INTEGER NOT NULL,
        trained_at DATETIME NOT NULL
    );
    `

	if _, err = database.Exec(query); err != nil {
		database.Close()
		database = nil
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Close closes the database opened by InitDB
func Close() error {
	if database == nil {
		return nil
	}
	err := database.Close()
	database = nil
	return err
}

// SaveDocument stores a document with its optional label, replacing an earlier
// copy with the same ID
func SaveDocument(doc ml.Document, label *float64) error {
	if database == nil {
		return errNotInitialized
	}
	if doc.ID == "" {
		return fmt.Errorf("%w: document id required", ml.ErrInvalidInput)
	}
	var value sql.NullFloat64
	if label != nil {
		value = sql.NullFloat64{Float64: *label, Valid: true}
	}
	_, err := database.Exec(`
        INSERT OR REPLACE INTO documents (doc_id, author, text, year, label)
        VALUES (?, ?, ?, ?, ?)`,
		doc.ID, doc.Author, doc.Text, doc.Year, value)
	return err
}

// LabelledDocument is a stored document and its label, if it has one
type LabelledDocument struct {
	Document ml.Document `json:"document"`
	Label    *float64    `json:"label,omitempty"`
}

// LoadDocuments returns stored documents in insertion order
func LoadDocuments() ([]LabelledDocument, error) {
	if database == nil {
		return nil, errNotInitialized
	}
	rows, err := database.Query(`
        SELECT doc_id, author, text, year, label
        FROM documents
        ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]LabelledDocument, 0)
	for rows.Next() {
		var d LabelledDocument
		var label sql.NullFloat64
		if err := rows.Scan(&d.Document.ID, &d.Document.Author, &d.Document.Text, &d.Document.Year, &label); err != nil {
			return nil, err
		}
		if label.Valid {
			v := label.Float64
			d.Label = &v
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// SaveFeatures replaces the stored term counts of a document
func SaveFeatures(docID string, frequencies ml.TermFrequencies) error {
	if database == nil {
		return errNotInitialized
	}
	tx, err := database.Begin()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM features WHERE doc_id = ?`, docID); err != nil {
		tx.Rollback()
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO features (doc_id, term, count) VALUES (?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, term := range frequencies.Keys() {
		if _, err := stmt.Exec(docID, term, frequencies[term]); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// LoadFeatures returns the stored term counts of a document
func LoadFeatures(docID string) (ml.TermFrequencies, error) {
	if database == nil {
		return nil, errNotInitialized
	}
	rows, err := database.Query(`SELECT term, count FROM features WHERE doc_id = ?`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	frequencies := make(ml.TermFrequencies)
	for rows.Next() {
		var term string
		var count int
		if err := rows.Scan(&term, &count); err != nil {
			return nil, err
		}
		frequencies[term] = count
	}
	return frequencies, rows.Err()
}

// SavePrediction records a prediction made by the model at modelPath
func SavePrediction(docID, modelPath string, prediction float64) error {
	if database == nil {
		return errNotInitialized
	}
	_, err := database.Exec(`
        INSERT INTO predictions (doc_id, model_path, prediction, created_at)
        VALUES (?, ?, ?, ?)`,
		docID, modelPath, prediction, time.Now().UTC())
	return err
}

type TrainingLog struct {
	RunID     string        `json:"run_id"`
	ModelPath string        `json:"model_path"`
	Epochs    int           `json:"epochs"`
	Examples  int           `json:"examples"`
	Accuracy  float64       `json:"accuracy"`
	Duration  time.Duration `json:"duration"`
	TrainedAt time.Time     `json:"trained_at"`
}

func SaveTrainingLog(log TrainingLog) error {
	if database == nil {
		return errNotInitialized
	}
	_, err := database.Exec(`
        INSERT INTO training_log (run_id, model_path, epochs, examples, accuracy, duration_ms, trained_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		log.RunID, log.ModelPath, log.Epochs, log.Examples, log.Accuracy, log.Duration.Milliseconds(), log.TrainedAt.UTC())
	return err
}

func LoadTrainingLog() ([]TrainingLog, error) {
	if database == nil {
		return nil, errNotInitialized
	}
	rows, err := database.Query(`
        SELECT run_id, model_path, epochs, examples, accuracy, duration_ms, trained_at
        FROM training_log
        ORDER BY trained_at DESC, id DESC
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]TrainingLog, 0)
	for rows.Next() {
		var log TrainingLog
		var durationMS int64
		if err := rows.Scan(&log.RunID, &log.ModelPath, &log.Epochs, &log.Examples, &log.Accuracy, &durationMS, &log.TrainedAt); err != nil {
			return nil, err
		}
		log.Duration = time.Duration(durationMS) * time.Millisecond
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// LatestTrainingLog returns the most recent training run, or nil when there is none
func LatestTrainingLog() (*TrainingLog, error) {
	logs, err := LoadTrainingLog()
	if err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		return nil, nil
	}
	return &logs[0], nil
}
