package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"LayerSentinel/internal/pipeline"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps :memory: databases coherent; writes are serialized anyway.
	db.SetMaxOpenConns(1)

	// WAL mode lets dashboards read while the daemon writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log.With().Str("component", "recorder").Logger()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS score_runs (
			run_id      TEXT PRIMARY KEY,
			timestamp   INTEGER NOT NULL,
			duration_ms INTEGER,
			layers      INTEGER,
			scored      INTEGER,
			top_layer   TEXT,
			top_score   INTEGER,
			news_tier   TEXT,
			news_live   INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON score_runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS layer_scores (
			id                    INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id                TEXT NOT NULL,
			timestamp             INTEGER NOT NULL,
			layer                 TEXT NOT NULL,
			etf                   TEXT,
			score                 INTEGER,
			raw_score             INTEGER,
			clamped               INTEGER,
			performance           REAL,
			benchmark_performance REAL,
			relative_strength     REAL,
			fundamental           INTEGER,
			evidence              TEXT,
			error                 TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_layer_scores ON layer_scores(layer, timestamp)`,

		`CREATE TABLE IF NOT EXISTS news_items (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id       TEXT NOT NULL,
			title        TEXT,
			link         TEXT,
			publisher    TEXT,
			published_at INTEGER,
			class        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_news_run ON news_items(run_id)`,

		`CREATE TABLE IF NOT EXISTS macro_snapshots (
			run_id        TEXT PRIMARY KEY,
			timestamp     INTEGER NOT NULL,
			breadth       REAL,
			breadth_class TEXT,
			vix           REAL,
			vix_tier      TEXT,
			yield_last    REAL,
			yield_delta   REAL,
			yield_shock   INTEGER,
			light         TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_macro_ts ON macro_snapshots(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// SaveRun stores the run summary, every layer outcome and the tagged news.
func (r *SQLiteRecorder) SaveRun(ctx context.Context, rep *pipeline.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	ts := rep.StartedAt.Unix()
	var topLayer sql.NullString
	var topScore sql.NullInt64
	if rep.Top != nil && rep.Top.Result != nil {
		topLayer = sql.NullString{String: rep.Top.Layer.Name, Valid: true}
		topScore = sql.NullInt64{Int64: int64(rep.Top.Result.Score), Valid: true}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO score_runs
		(run_id, timestamp, duration_ms, layers, scored, top_layer, top_score, news_tier, news_live)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		rep.RunID, ts, rep.Duration.Milliseconds(), len(rep.Outcomes), rep.Scored(),
		topLayer, topScore, string(rep.News.Tier), boolInt(rep.News.Live),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, o := range rep.Outcomes {
		if !o.OK() {
			if _, err := tx.ExecContext(ctx, `INSERT INTO layer_scores
				(run_id, timestamp, layer, etf, error) VALUES (?,?,?,?,?)`,
				rep.RunID, ts, o.Layer.Name, o.Layer.ETF, errString(o.Err),
			); err != nil {
				return fmt.Errorf("insert layer %s: %w", o.Layer.Name, err)
			}
			continue
		}
		res := o.Result
		if _, err := tx.ExecContext(ctx, `INSERT INTO layer_scores
			(run_id, timestamp, layer, etf, score, raw_score, clamped, performance,
			 benchmark_performance, relative_strength, fundamental, evidence)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
			rep.RunID, ts, o.Layer.Name, o.Layer.ETF, res.Score, res.RawScore, boolInt(res.Clamped),
			res.Performance, res.BenchmarkPerformance, res.RelativeStrength, boolInt(res.Fundamental),
			strings.Join(res.Evidence, "\n"),
		); err != nil {
			return fmt.Errorf("insert layer %s: %w", o.Layer.Name, err)
		}
	}

	for _, it := range rep.Tagged {
		if _, err := tx.ExecContext(ctx, `INSERT INTO news_items
			(run_id, title, link, publisher, published_at, class) VALUES (?,?,?,?,?,?)`,
			rep.RunID, it.Title, it.Link, it.Publisher, it.PublishedAt, string(it.Class),
		); err != nil {
			return fmt.Errorf("insert news: %w", err)
		}
	}

	return tx.Commit()
}

// SaveMacro stores one macro reading. Missing indicators are stored as NULL.
func (r *SQLiteRecorder) SaveMacro(ctx context.Context, rep *pipeline.MacroReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rd := rep.Reading
	var breadth sql.NullFloat64
	var breadthClass sql.NullString
	if rd.Breadth != nil {
		breadth = sql.NullFloat64{Float64: rd.Breadth.Ratio, Valid: true}
		breadthClass = sql.NullString{String: string(rd.Breadth.Class), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO macro_snapshots
		(run_id, timestamp, breadth, breadth_class, vix, vix_tier, yield_last, yield_delta, yield_shock, light)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		rep.RunID, rep.At.Unix(), breadth, breadthClass,
		nullFloat(rd.VIX), string(rd.VIXTier), nullFloat(rd.YieldLast), nullFloat(rd.YieldDelta),
		boolInt(rd.YieldShock), string(rep.Light),
	)
	return err
}

// LayerHistory returns the newest scored entries for a layer, newest first.
func (r *SQLiteRecorder) LayerHistory(ctx context.Context, layer string, limit int) ([]HistoryPoint, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := r.db.QueryContext(ctx, `SELECT run_id, timestamp, score, performance, relative_strength, fundamental
		FROM layer_scores WHERE layer = ? AND error IS NULL
		ORDER BY timestamp DESC, id DESC LIMIT ?`, layer, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []HistoryPoint
	for rows.Next() {
		var p HistoryPoint
		var ts int64
		var fundamental int
		if err := rows.Scan(&p.RunID, &ts, &p.Score, &p.Performance, &p.RelativeStrength, &fundamental); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		p.At = time.Unix(ts, 0).UTC()
		p.Fundamental = fundamental != 0
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
