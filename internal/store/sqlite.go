package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"stock-analyst/internal/analysis"
	"stock-analyst/internal/analyzer"
	apperrors "stock-analyst/internal/errors"
	"stock-analyst/internal/models"
	"stock-analyst/pkg/utils"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	now       func() time.Time
	mu        sync.RWMutex
	syncTimes map[string]time.Time
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db:        db,
		now:       time.Now,
		syncTimes: make(map[string]time.Time),
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Daily bars, one row per symbol and day
	CREATE TABLE IF NOT EXISTS bars (
		symbol TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume REAL NOT NULL,
		fetched_at INTEGER NOT NULL,
		PRIMARY KEY (symbol, timestamp)
	);

	-- Analysis reports, stored whole as JSON with summary columns
	CREATE TABLE IF NOT EXISTS analysis_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		generated_at INTEGER NOT NULL,
		technical INTEGER NOT NULL,
		fundamental INTEGER NOT NULL,
		sentiment INTEGER NOT NULL,
		short_term TEXT NOT NULL,
		medium_term TEXT NOT NULL,
		long_term TEXT NOT NULL,
		report TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Watchlist table
	CREATE TABLE IF NOT EXISTS watchlist (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		list_name TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(symbol, list_name)
	);

	-- Sync status table
	CREATE TABLE IF NOT EXISTS sync_status (
		data_type TEXT PRIMARY KEY,
		last_sync INTEGER NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_reports_symbol_generated ON analysis_reports(symbol, generated_at);
	CREATE INDEX IF NOT EXISTS idx_watchlist_list ON watchlist(list_name);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Bars Methods
// ============================================================================

func finitePoint(p models.PricePoint) bool {
	for _, v := range []float64{p.Open, p.High, p.Low, p.Close, p.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// SaveBars upserts bars for symbol. Bars with non-finite values are skipped.
func (s *SQLiteStore) SaveBars(ctx context.Context, symbol string, bars []models.PricePoint) error {
	if len(bars) == 0 {
		return nil
	}
	symbol = utils.NormalizeSymbol(symbol)
	fetchedAt := s.now().UnixNano()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO bars (symbol, timestamp, open, high, low, close, volume, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if !finitePoint(b) {
			continue
		}
		_, err := stmt.ExecContext(ctx, symbol, b.Timestamp.Unix(), b.Open, b.High, b.Low, b.Close, b.Volume, fetchedAt)
		if err != nil {
			return fmt.Errorf("failed to insert bar: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetBars retrieves bars in [from, to], oldest first. A zero to means no
// upper bound.
func (s *SQLiteStore) GetBars(ctx context.Context, symbol string, from, to time.Time) ([]models.PricePoint, error) {
	upper := int64(math.MaxInt64)
	if !to.IsZero() {
		upper = to.Unix()
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, open, high, low, close, volume
		FROM bars
		WHERE symbol = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC
	`, utils.NormalizeSymbol(symbol), from.Unix(), upper)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query bars: %w", apperrors.ErrDatabaseError, err)
	}
	defer rows.Close()

	var bars []models.PricePoint
	for rows.Next() {
		var b models.PricePoint
		var ts int64
		if err := rows.Scan(&ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan bar: %w", err)
		}
		b.Timestamp = time.Unix(ts, 0).UTC()
		bars = append(bars, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bars: %w", err)
	}

	return bars, nil
}

// GetBarsFreshness returns when bars for symbol were last written, or the
// zero time when there are none.
func (s *SQLiteStore) GetBarsFreshness(ctx context.Context, symbol string) (time.Time, error) {
	var fetchedAt sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(fetched_at) FROM bars WHERE symbol = ?
	`, utils.NormalizeSymbol(symbol)).Scan(&fetchedAt)
	if err != nil && err != sql.ErrNoRows {
		return time.Time{}, fmt.Errorf("failed to get bars freshness: %w", err)
	}
	if !fetchedAt.Valid {
		return time.Time{}, nil
	}
	return time.Unix(0, fetchedAt.Int64).UTC(), nil
}

// ============================================================================
// Report Methods
// ============================================================================

// SaveReport stores a report and returns its id.
func (s *SQLiteStore) SaveReport(ctx context.Context, report *analyzer.Report) (int64, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to encode report: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO analysis_reports
			(symbol, generated_at, technical, fundamental, sentiment, short_term, medium_term, long_term, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.Symbol(),
		report.GeneratedAt.UnixNano(),
		report.Scores.Technical.Value,
		report.Scores.Fundamental.Value,
		report.Scores.Sentiment.Value,
		string(report.Recommendation.ShortTerm),
		string(report.Recommendation.MediumTerm),
		string(report.Recommendation.LongTerm),
		string(data),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to save report: %w", apperrors.ErrDatabaseError, err)
	}
	return res.LastInsertId()
}

const reportColumns = `id, symbol, generated_at, technical, fundamental, sentiment, short_term, medium_term, long_term, report`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row rowScanner) (*ReportRecord, error) {
	var rec ReportRecord
	var generated int64
	var shortTerm, medium, longTerm, data string
	if err := row.Scan(&rec.ID, &rec.Symbol, &generated, &rec.Technical, &rec.Fundamental, &rec.Sentiment,
		&shortTerm, &medium, &longTerm, &data); err != nil {
		return nil, err
	}
	rec.GeneratedAt = time.Unix(0, generated).UTC()
	rec.ShortTerm = analysis.Stance(shortTerm)
	rec.MediumTerm = analysis.Stance(medium)
	rec.LongTerm = analysis.Stance(longTerm)

	report, err := analyzer.DecodeReport([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode report %d: %w", rec.ID, err)
	}
	rec.Report = report
	return &rec, nil
}

// GetReports retrieves stored reports matching filter, newest first.
func (s *SQLiteStore) GetReports(ctx context.Context, filter ReportFilter) ([]ReportRecord, error) {
	query := `SELECT ` + reportColumns + ` FROM analysis_reports WHERE 1=1`
	args := []interface{}{}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, utils.NormalizeSymbol(filter.Symbol))
	}
	if !filter.Since.IsZero() {
		query += " AND generated_at >= ?"
		args = append(args, filter.Since.UnixNano())
	}
	if !filter.Until.IsZero() {
		query += " AND generated_at <= ?"
		args = append(args, filter.Until.UnixNano())
	}

	query += " ORDER BY generated_at DESC, id DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query reports: %w", apperrors.ErrDatabaseError, err)
	}
	defer rows.Close()

	var records []ReportRecord
	for rows.Next() {
		rec, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		records = append(records, *rec)
	}

	return records, rows.Err()
}

// GetReportByID retrieves a single report.
func (s *SQLiteStore) GetReportByID(ctx context.Context, id int64) (*ReportRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM analysis_reports WHERE id = ?`, id)
	rec, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report %d: %w", id, apperrors.ErrDataNotFound)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ============================================================================
// Watchlist Methods
// ============================================================================

func listOrDefault(listName string) string {
	if strings.TrimSpace(listName) == "" {
		return DefaultWatchlist
	}
	return listName
}

// AddToWatchlist adds a symbol to a watchlist.
func (s *SQLiteStore) AddToWatchlist(ctx context.Context, symbol, listName string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO watchlist (symbol, list_name) VALUES (?, ?)
	`, utils.NormalizeSymbol(symbol), listOrDefault(listName))
	if err != nil {
		return fmt.Errorf("failed to add to watchlist: %w", err)
	}
	return nil
}

// RemoveFromWatchlist removes a symbol from a watchlist.
func (s *SQLiteStore) RemoveFromWatchlist(ctx context.Context, symbol, listName string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM watchlist WHERE symbol = ? AND list_name = ?
	`, utils.NormalizeSymbol(symbol), listOrDefault(listName))
	if err != nil {
		return fmt.Errorf("failed to remove from watchlist: %w", err)
	}
	return nil
}

// GetWatchlist retrieves symbols in a watchlist, in insertion order.
func (s *SQLiteStore) GetWatchlist(ctx context.Context, listName string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol FROM watchlist WHERE list_name = ? ORDER BY id ASC
	`, listOrDefault(listName))
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}

	return symbols, rows.Err()
}

// GetAllWatchlists retrieves all watchlists.
func (s *SQLiteStore) GetAllWatchlists(ctx context.Context) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT list_name, symbol FROM watchlist ORDER BY list_name, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlists: %w", err)
	}
	defer rows.Close()

	watchlists := make(map[string][]string)
	for rows.Next() {
		var listName, symbol string
		if err := rows.Scan(&listName, &symbol); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist entry: %w", err)
		}
		watchlists[listName] = append(watchlists[listName], symbol)
	}

	return watchlists, rows.Err()
}

// ============================================================================
// Sync Methods
// ============================================================================

// GetLastSync returns the last sync time recorded under key.
func (s *SQLiteStore) GetLastSync(key string) time.Time {
	s.mu.RLock()
	if t, ok := s.syncTimes[key]; ok {
		s.mu.RUnlock()
		return t
	}
	s.mu.RUnlock()

	var lastSync int64
	err := s.db.QueryRow(`
		SELECT last_sync FROM sync_status WHERE data_type = ?
	`, key).Scan(&lastSync)
	if err != nil {
		return time.Time{}
	}
	t := time.Unix(0, lastSync).UTC()

	s.mu.Lock()
	s.syncTimes[key] = t
	s.mu.Unlock()

	return t
}

// SetLastSync records the last sync time under key.
func (s *SQLiteStore) SetLastSync(key string, t time.Time) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO sync_status (data_type, last_sync, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
	`, key, t.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to set last sync: %w", err)
	}

	s.mu.Lock()
	s.syncTimes[key] = t.UTC()
	s.mu.Unlock()

	return nil
}
