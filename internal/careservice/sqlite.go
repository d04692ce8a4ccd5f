package careservice

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/joelkehle/triage-console/internal/triage"
)

// SQLiteStore persists patients and visits. Symptoms and analysis results are
// stored as JSON text.
type SQLiteStore struct {
	db    *sqlx.DB
	clock func() time.Time
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS patients (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	age        INTEGER NOT NULL DEFAULT 0,
	sex        TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS patients_name ON patients (name);

CREATE TABLE IF NOT EXISTS visits (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	patient_id      INTEGER NOT NULL REFERENCES patients (id),
	symptoms        TEXT NOT NULL DEFAULT '[]',
	analysis_result TEXT NOT NULL DEFAULT '[]',
	locked_disease  TEXT NOT NULL DEFAULT '',
	created_at      TEXT NOT NULL
);
`

type patientRow struct {
	ID        int64  `db:"id"`
	Name      string `db:"name"`
	Age       int    `db:"age"`
	Sex       string `db:"sex"`
	CreatedAt string `db:"created_at"`
}

type visitRow struct {
	ID             int64  `db:"id"`
	PatientID      int64  `db:"patient_id"`
	Symptoms       string `db:"symptoms"`
	AnalysisResult string `db:"analysis_result"`
	LockedDisease  string `db:"locked_disease"`
	CreatedAt      string `db:"created_at"`
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db, clock: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func timeToString(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, v)
	return t
}

func marshalJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func (s *SQLiteStore) FindOrCreatePatient(ctx context.Context, name string, age int, sex string) (Patient, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Patient{}, err
	}
	defer tx.Rollback()

	var row patientRow
	err = tx.GetContext(ctx, &row, `SELECT id, name, age, sex, created_at FROM patients WHERE name = ? ORDER BY id LIMIT 1`, name)
	switch {
	case err == nil:
		return row.toPatient(), nil
	case !errors.Is(err, sql.ErrNoRows):
		return Patient{}, fmt.Errorf("lookup patient: %w", err)
	}

	now := s.clock()
	res, err := tx.ExecContext(ctx, `INSERT INTO patients (name, age, sex, created_at) VALUES (?, ?, ?, ?)`,
		name, age, sex, timeToString(now))
	if err != nil {
		return Patient{}, fmt.Errorf("insert patient: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Patient{}, err
	}
	if err := tx.Commit(); err != nil {
		return Patient{}, err
	}
	return Patient{ID: id, Name: name, Age: age, Sex: sex, CreatedAt: now.UTC()}, nil
}

func (s *SQLiteStore) RecordVisit(ctx context.Context, patientID int64, symptoms []string, results []triage.AnalysisResult) (Visit, error) {
	if symptoms == nil {
		symptoms = []string{}
	}
	if results == nil {
		results = []triage.AnalysisResult{}
	}
	now := s.clock()
	res, err := s.db.ExecContext(ctx, `INSERT INTO visits (patient_id, symptoms, analysis_result, created_at) VALUES (?, ?, ?, ?)`,
		patientID, marshalJSON(symptoms), marshalJSON(results), timeToString(now))
	if err != nil {
		return Visit{}, fmt.Errorf("insert visit: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Visit{}, err
	}
	return Visit{
		ID:        id,
		PatientID: patientID,
		Symptoms:  symptoms,
		Results:   results,
		CreatedAt: now.UTC(),
	}, nil
}

func (s *SQLiteStore) LockLatestVisit(ctx context.Context, patientID int64, disease string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE visits SET locked_disease = ?
		WHERE id = (SELECT id FROM visits WHERE patient_id = ? ORDER BY id DESC LIMIT 1)`,
		disease, patientID)
	if err != nil {
		return false, fmt.Errorf("lock visit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) Visits(ctx context.Context, patientID int64) ([]Visit, error) {
	var rows []visitRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT id, patient_id, symptoms, analysis_result, locked_disease, created_at
		FROM visits WHERE patient_id = ? ORDER BY id`, patientID); err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	out := make([]Visit, 0, len(rows))
	for _, r := range rows {
		v := Visit{
			ID:            r.ID,
			PatientID:     r.PatientID,
			LockedDisease: r.LockedDisease,
			CreatedAt:     parseTime(r.CreatedAt),
		}
		if err := json.Unmarshal([]byte(r.Symptoms), &v.Symptoms); err != nil {
			return nil, fmt.Errorf("decode visit %d symptoms: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(r.AnalysisResult), &v.Results); err != nil {
			return nil, fmt.Errorf("decode visit %d results: %w", r.ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (r patientRow) toPatient() Patient {
	return Patient{
		ID:        r.ID,
		Name:      r.Name,
		Age:       r.Age,
		Sex:       r.Sex,
		CreatedAt: parseTime(r.CreatedAt),
	}
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
