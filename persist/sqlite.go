package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/scitune/scitune/param"
	"github.com/scitune/scitune/pkg/errors"
	"github.com/scitune/scitune/tune"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS trials (
	run_id       TEXT    NOT NULL REFERENCES runs(id),
	seq          INTEGER NOT NULL,
	config       TEXT    NOT NULL,
	fold_metrics TEXT,
	metric       REAL    NOT NULL,
	predictions  TEXT,
	failure      TEXT    NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, seq)
);
`

// SQLiteStore archives search runs in a SQLite database, one run per UUID.
type SQLiteStore struct {
	db *sql.DB
}

// RunInfo summarizes one archived run.
type RunInfo struct {
	ID        string
	CreatedAt time.Time
	Trials    int
}

// OpenSQLite opens (creating if needed) a run archive at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening sqlite database %s", path)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "initializing run archive schema")
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun archives every trial of the store under a fresh run ID.
func (s *SQLiteStore) SaveRun(ctx context.Context, store *tune.ResultStore) (string, error) {
	runID := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", errors.Wrap(err, "beginning save transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at) VALUES (?, ?)`,
		runID, time.Now().UTC(),
	); err != nil {
		return "", errors.Wrap(err, "inserting run")
	}

	for _, t := range store.All() {
		configJSON, err := json.Marshal(t.Config)
		if err != nil {
			return "", errors.Wrapf(err, "encoding configuration of trial %d", t.Seq)
		}

		var foldJSON, predJSON []byte
		if t.FoldMetrics != nil {
			if foldJSON, err = json.Marshal(t.FoldMetrics); err != nil {
				return "", errors.Wrapf(err, "encoding fold metrics of trial %d", t.Seq)
			}
		}
		if t.Predictions != nil {
			if predJSON, err = json.Marshal(t.Predictions); err != nil {
				return "", errors.Wrapf(err, "encoding predictions of trial %d", t.Seq)
			}
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO trials (run_id, seq, config, fold_metrics, metric, predictions, failure)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, t.Seq, string(configJSON), nullable(foldJSON), t.Metric, nullable(predJSON), t.Failure,
		); err != nil {
			return "", errors.Wrapf(err, "inserting trial %d", t.Seq)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", errors.Wrap(err, "committing run")
	}
	return runID, nil
}

// LoadRun rebuilds an archived run. Returns ErrRunNotFound for unknown IDs.
func (s *SQLiteStore) LoadRun(ctx context.Context, runID string) (*tune.ResultStore, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&exists)
	if err != nil {
		return nil, errors.Wrapf(err, "looking up run %s", runID)
	}
	if exists == 0 {
		return nil, errors.Wrapf(errors.ErrRunNotFound, "run %s", runID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, config, fold_metrics, metric, predictions, failure
		 FROM trials WHERE run_id = ? ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "loading trials of run %s", runID)
	}
	defer rows.Close()

	var trials []*tune.Trial
	for rows.Next() {
		var (
			seq        uint64
			configJSON string
			foldJSON   sql.NullString
			metric     float64
			predJSON   sql.NullString
			failure    string
		)
		if err := rows.Scan(&seq, &configJSON, &foldJSON, &metric, &predJSON, &failure); err != nil {
			return nil, errors.Wrapf(err, "scanning trial of run %s", runID)
		}

		var config param.Configuration
		if err := json.Unmarshal([]byte(configJSON), &config); err != nil {
			return nil, errors.Wrapf(err, "decoding configuration of run %s", runID)
		}

		t := &tune.Trial{
			Config:  config,
			Metric:  metric,
			Failure: failure,
			Seq:     seq,
		}
		if foldJSON.Valid {
			if err := json.Unmarshal([]byte(foldJSON.String), &t.FoldMetrics); err != nil {
				return nil, errors.Wrapf(err, "decoding fold metrics of run %s", runID)
			}
		}
		if predJSON.Valid {
			if err := json.Unmarshal([]byte(predJSON.String), &t.Predictions); err != nil {
				return nil, errors.Wrapf(err, "decoding predictions of run %s", runID)
			}
		}
		trials = append(trials, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "iterating trials of run %s", runID)
	}

	return tune.RestoreResultStore(trials), nil
}

// ListRuns returns the archived runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.created_at, COUNT(t.seq)
		 FROM runs r LEFT JOIN trials t ON t.run_id = r.id
		 GROUP BY r.id, r.created_at
		 ORDER BY r.created_at DESC`,
	)
	if err != nil {
		return nil, errors.Wrap(err, "listing runs")
	}
	defer rows.Close()

	var infos []RunInfo
	for rows.Next() {
		var info RunInfo
		if err := rows.Scan(&info.ID, &info.CreatedAt, &info.Trials); err != nil {
			return nil, errors.Wrap(err, "scanning run info")
		}
		infos = append(infos, info)
	}
	return infos, errors.Wrap(rows.Err(), "iterating runs")
}

func nullable(b []byte) interface{} {
	if b == nil {
		return nil
	}
	return string(b)
}
