package db

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

var database *sql.DB

var errNotInitialized = errors.New("database not initialized")

// InitDB opens the SQLite database at path and creates the tables if needed.
func InitDB(path string) error {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return errors.Wrapf(err, "open database %s", path)
	}

	query := `
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        model_name VARCHAR(50) NOT NULL,
        dataset TEXT,
        seed INTEGER,
        accuracy REAL,
        auc REAL,
        f1_score REAL,
        precision REAL,
        recall REAL,
        log_loss REAL,
        trained_at DATETIME NOT NULL,
        data_points INTEGER,
        test_points INTEGER
    );
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        run_id INTEGER NOT NULL REFERENCES training_log(id),
        text TEXT NOT NULL,
        predicted_label INTEGER NOT NULL,
        probability REAL NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    CREATE INDEX IF NOT EXISTS idx_predictions_run ON predictions(run_id);
    `
	if _, err := conn.Exec(query); err != nil {
		conn.Close()
		return errors.Wrap(err, "create tables")
	}

	if database != nil {
		database.Close()
	}
	database = conn
	return nil
}

// Close releases the database opened by InitDB.
func Close() error {
	if database == nil {
		return nil
	}
	err := database.Close()
	database = nil
	return err
}

type TrainingLog struct {
	ID         int64     `json:"id"`
	ModelName  string    `json:"model_name"`
	Dataset    string    `json:"dataset"`
	Seed       int64     `json:"seed"`
	Accuracy   float64   `json:"accuracy"`
	AUC        float64   `json:"auc"`
	F1Score    float64   `json:"f1_score"`
	Precision  float64   `json:"precision"`
	Recall     float64   `json:"recall"`
	LogLoss    float64   `json:"log_loss"`
	TrainedAt  time.Time `json:"trained_at"`
	DataPoints int       `json:"data_points"`
	TestPoints int       `json:"test_points"`
}

// SaveTrainingLog inserts one run and returns its id.
func SaveTrainingLog(entry TrainingLog) (int64, error) {
	if database == nil {
		return 0, errNotInitialized
	}
	if entry.ModelName == "" {
		return 0, errors.New("model name required")
	}
	if entry.TrainedAt.IsZero() {
		entry.TrainedAt = time.Now().UTC()
	}
	result, err := database.Exec(`
        INSERT INTO training_log (
            model_name, dataset, seed, accuracy, auc, f1_score, precision, recall,
            log_loss, trained_at, data_points, test_points
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `,
		entry.ModelName,
		entry.Dataset,
		entry.Seed,
		entry.Accuracy,
		entry.AUC,
		entry.F1Score,
		entry.Precision,
		entry.Recall,
		entry.LogLoss,
		entry.TrainedAt,
		entry.DataPoints,
		entry.TestPoints,
	)
	if err != nil {
		return 0, errors.Wrap(err, "insert training log")
	}
	return result.LastInsertId()
}

// LoadTrainingLog returns all runs, newest first.
func LoadTrainingLog() ([]TrainingLog, error) {
	if database == nil {
		return nil, errNotInitialized
	}
	rows, err := database.Query(`
        SELECT id, model_name, dataset, seed, accuracy, auc, f1_score, precision, recall,
               log_loss, trained_at, data_points, test_points
        FROM training_log
        ORDER BY trained_at DESC, id DESC
    `)
	if err != nil {
		return nil, errors.Wrap(err, "query training log")
	}
	defer rows.Close()

	logs := make([]TrainingLog, 0)
	for rows.Next() {
		var log TrainingLog
		if err := rows.Scan(&log.ID, &log.ModelName, &log.Dataset, &log.Seed, &log.Accuracy, &log.AUC,
			&log.F1Score, &log.Precision, &log.Recall, &log.LogLoss, &log.TrainedAt, &log.DataPoints, &log.TestPoints); err != nil {
			return nil, errors.Wrap(err, "scan training log")
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

type PredictionRow struct {
	Text           string  `json:"text"`
	PredictedLabel bool    `json:"predicted_label"`
	Probability    float64 `json:"probability"`
}

// SavePredictions stores the predictions made with the model of run runID.
func SavePredictions(runID int64, predictions []PredictionRow) error {
	if database == nil {
		return errNotInitialized
	}
	if len(predictions) == 0 {
		return nil
	}

	tx, err := database.Begin()
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	stmt, err := tx.Prepare(`
        INSERT INTO predictions (run_id, text, predicted_label, probability)
        VALUES (?, ?, ?, ?)
    `)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "prepare prediction insert")
	}
	defer stmt.Close()

	for _, p := range predictions {
		label := 0
		if p.PredictedLabel {
			label = 1
		}
		if _, err := stmt.Exec(runID, p.Text, label, p.Probability); err != nil {
			tx.Rollback()
			return errors.Wrap(err, "insert prediction")
		}
	}
	return tx.Commit()
}

// LoadPredictions returns the predictions of run runID in insertion order.
func LoadPredictions(runID int64) ([]PredictionRow, error) {
	if database == nil {
		return nil, errNotInitialized
	}
	rows, err := database.Query(`
        SELECT text, predicted_label, probability
        FROM predictions
        WHERE run_id = ?
        ORDER BY id
    `, runID)
	if err != nil {
		return nil, errors.Wrap(err, "query predictions")
	}
	defer rows.Close()

	predictions := make([]PredictionRow, 0)
	for rows.Next() {
		var p PredictionRow
		var label int
		if err := rows.Scan(&p.Text, &label, &p.Probability); err != nil {
			return nil, errors.Wrap(err, "scan prediction")
		}
		p.PredictedLabel = label == 1
		predictions = append(predictions, p)
	}
	return predictions, rows.Err()
}

// Store exposes the package database to callers that take an interface.
type Store struct{}

func (Store) SaveTrainingLog(entry TrainingLog) (int64, error) {
	return SaveTrainingLog(entry)
}

func (Store) SavePredictions(runID int64, predictions []PredictionRow) error {
	return SavePredictions(runID, predictions)
}
