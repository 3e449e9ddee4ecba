package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"dealscout/models"
)

// SQLiteStore is the default local record store.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, storeErr("open", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, storeErr("migrate", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS properties (
		id TEXT PRIMARY KEY,
		address TEXT NOT NULL,
		city TEXT,
		state TEXT,
		zip TEXT,
		price REAL,
		beds INTEGER,
		baths REAL,
		sqft INTEGER,
		property_type TEXT DEFAULT 'unknown',
		source TEXT,
		url TEXT,
		listed_at DATETIME,
		repair_cost REAL,
		arv REAL,
		days_on_market INTEGER,
		created_at DATETIME,
		updated_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS buyers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		min_price REAL DEFAULT 0,
		max_price REAL,
		localities JSON,
		property_types JSON,
		min_beds INTEGER DEFAULT 0,
		min_baths REAL DEFAULT 0,
		min_sqft INTEGER DEFAULT 0,
		active BOOLEAN DEFAULT TRUE,
		created_at DATETIME,
		updated_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS matches (
		id TEXT NOT NULL,
		property_id TEXT NOT NULL,
		buyer_id TEXT NOT NULL,
		score INTEGER NOT NULL,
		notified BOOLEAN DEFAULT FALSE,
		created_at DATETIME,
		UNIQUE(property_id, buyer_id),
		FOREIGN KEY (property_id) REFERENCES properties(id),
		FOREIGN KEY (buyer_id) REFERENCES buyers(id)
	);

	CREATE TABLE IF NOT EXISTS crawl_runs (
		id INTEGER PRIMARY KEY,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		found INTEGER DEFAULT 0,
		stored INTEGER DEFAULT 0,
		price_filtered INTEGER DEFAULT 0,
		dropped INTEGER DEFAULT 0,
		fetch_failures INTEGER DEFAULT 0,
		error_message TEXT
	);

	CREATE TABLE IF NOT EXISTS activity_log (
		id INTEGER PRIMARY KEY,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		level TEXT,
		source TEXT,
		message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_properties_city ON properties(city, state);
	CREATE INDEX IF NOT EXISTS idx_properties_source ON properties(source);
	CREATE INDEX IF NOT EXISTS idx_matches_buyer ON matches(buyer_id, notified);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON crawl_runs(status, started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) UpsertProperty(ctx context.Context, p *models.Property) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO properties (id, address, city, state, zip, price, beds, baths, sqft,
			property_type, source, url, listed_at, repair_cost, arv, days_on_market, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			address = excluded.address,
			city = COALESCE(NULLIF(excluded.city, ''), city),
			state = COALESCE(NULLIF(excluded.state, ''), state),
			zip = COALESCE(NULLIF(excluded.zip, ''), zip),
			price = COALESCE(excluded.price, price),
			beds = COALESCE(excluded.beds, beds),
			baths = COALESCE(excluded.baths, baths),
			sqft = COALESCE(excluded.sqft, sqft),
			property_type = excluded.property_type,
			url = COALESCE(NULLIF(excluded.url, ''), url),
			repair_cost = COALESCE(excluded.repair_cost, repair_cost),
			arv = COALESCE(excluded.arv, arv),
			days_on_market = COALESCE(excluded.days_on_market, days_on_market),
			updated_at = excluded.updated_at`,
		p.ID, p.Address, p.City, p.State, p.Zip, p.Price, p.Beds, p.Baths, p.SqFt,
		string(p.PropertyType), p.Source, p.URL, p.ListedAt, p.RepairCost, p.ARV,
		p.DaysOnMarket, p.CreatedAt, p.UpdatedAt)
	return storeErr("upsert property", err)
}

const propertyColumns = `id, address, city, state, zip, price, beds, baths, sqft,
	property_type, source, url, listed_at, repair_cost, arv, days_on_market, created_at, updated_at`

func (s *SQLiteStore) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = ?`, id)
	p, err := scanProperty(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get property", err)
	}
	return p, nil
}

func (s *SQLiteStore) ListProperties(ctx context.Context, f PropertyFilter) ([]models.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE 1=1`
	var args []interface{}

	if f.Source != "" {
		query += " AND source = ?"
		args = append(args, f.Source)
	}
	if f.City != "" {
		query += " AND city = ? COLLATE NOCASE"
		args = append(args, f.City)
	}
	if f.MaxPrice > 0 {
		query += " AND price IS NOT NULL AND price <= ?"
		args = append(args, f.MaxPrice)
	}
	query += " ORDER BY created_at DESC, id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list properties", err)
	}
	defer rows.Close()

	var props []models.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, storeErr("list properties", err)
		}
		props = append(props, *p)
	}
	return props, storeErr("list properties", rows.Err())
}

// rowScanner lets scanProperty serve both QueryRow and Query results.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProperty(row rowScanner) (*models.Property, error) {
	var (
		p     models.Property
		ptype string
		price sql.NullFloat64
		beds  sql.NullInt64
		baths sql.NullFloat64
		sqft  sql.NullInt64
		cost  sql.NullFloat64
		arv   sql.NullFloat64
		dom   sql.NullInt64
	)
	err := row.Scan(&p.ID, &p.Address, &p.City, &p.State, &p.Zip, &price, &beds, &baths, &sqft,
		&ptype, &p.Source, &p.URL, &p.ListedAt, &cost, &arv, &dom, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.PropertyType = models.PropertyType(ptype)
	p.Price = nullFloat(price)
	p.Beds = nullInt(beds)
	p.Baths = nullFloat(baths)
	p.SqFt = nullInt(sqft)
	p.RepairCost = nullFloat(cost)
	p.ARV = nullFloat(arv)
	p.DaysOnMarket = nullInt(dom)
	return &p, nil
}

func (s *SQLiteStore) UpsertBuyer(ctx context.Context, b *models.Buyer) error {
	if err := b.Validate(); err != nil {
		return storeErr("upsert buyer", err)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO buyers (id, name, email, min_price, max_price, localities, property_types,
			min_beds, min_baths, min_sqft, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			min_price = excluded.min_price,
			max_price = excluded.max_price,
			localities = excluded.localities,
			property_types = excluded.property_types,
			min_beds = excluded.min_beds,
			min_baths = excluded.min_baths,
			min_sqft = excluded.min_sqft,
			active = excluded.active,
			updated_at = excluded.updated_at`,
		b.ID, b.Name, b.Email, b.MinPrice, b.MaxPrice,
		marshalStrings(b.Localities), marshalTypes(b.PropertyTypes),
		b.MinBeds, b.MinBaths, b.MinSqFt, b.Active, b.CreatedAt, b.UpdatedAt)
	return storeErr("upsert buyer", err)
}

func (s *SQLiteStore) ListBuyers(ctx context.Context, activeOnly bool) ([]models.Buyer, error) {
	query := `SELECT id, name, email, min_price, max_price, localities, property_types,
		min_beds, min_baths, min_sqft, active, created_at, updated_at FROM buyers`
	if activeOnly {
		query += " WHERE active"
	}
	query += " ORDER BY name"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storeErr("list buyers", err)
	}
	defer rows.Close()

	var buyers []models.Buyer
	for rows.Next() {
		var (
			b          models.Buyer
			localities string
			types      string
		)
		if err := rows.Scan(&b.ID, &b.Name, &b.Email, &b.MinPrice, &b.MaxPrice, &localities, &types,
			&b.MinBeds, &b.MinBaths, &b.MinSqFt, &b.Active, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, storeErr("list buyers", err)
		}
		b.Localities = unmarshalStrings(localities)
		b.PropertyTypes = unmarshalTypes(types)
		buyers = append(buyers, b)
	}
	return buyers, storeErr("list buyers", rows.Err())
}

func (s *SQLiteStore) UpsertMatch(ctx context.Context, m *models.Match) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	// Re-scoring overwrites the score; identity, notified flag, and
	// creation time of the existing match are preserved.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO matches (id, property_id, buyer_id, score, notified, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(property_id, buyer_id) DO UPDATE SET
			score = excluded.score`,
		m.ID.String(), m.PropertyID, m.BuyerID, m.Score, m.Notified, m.CreatedAt)
	return storeErr("upsert match", err)
}

func (s *SQLiteStore) ListMatches(ctx context.Context, buyerID string) ([]models.Match, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, property_id, buyer_id, score, notified, created_at
		FROM matches WHERE buyer_id = ?
		ORDER BY score DESC, property_id ASC`, buyerID)
	if err != nil {
		return nil, storeErr("list matches", err)
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		var (
			m  models.Match
			id string
		)
		if err := rows.Scan(&id, &m.PropertyID, &m.BuyerID, &m.Score, &m.Notified, &m.CreatedAt); err != nil {
			return nil, storeErr("list matches", err)
		}
		m.ID, _ = uuid.Parse(id)
		matches = append(matches, m)
	}
	return matches, storeErr("list matches", rows.Err())
}

func (s *SQLiteStore) MarkMatchNotified(ctx context.Context, propertyID, buyerID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE matches SET notified = TRUE WHERE property_id = ? AND buyer_id = ?`,
		propertyID, buyerID)
	return storeErr("mark match notified", err)
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run *models.CrawlRun) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO crawl_runs (started_at, status, found, stored, price_filtered, dropped, fetch_failures, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt, string(run.Status), run.Found, run.Stored, run.PriceFiltered,
		run.Dropped, run.FetchFailures, run.ErrorMessage)
	if err != nil {
		return storeErr("create run", err)
	}
	run.ID, err = res.LastInsertId()
	return storeErr("create run", err)
}

func (s *SQLiteStore) UpdateRun(ctx context.Context, run *models.CrawlRun) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE crawl_runs SET finished_at = ?, status = ?, found = ?, stored = ?,
			price_filtered = ?, dropped = ?, fetch_failures = ?, error_message = ?
		WHERE id = ?`,
		run.FinishedAt, string(run.Status), run.Found, run.Stored,
		run.PriceFiltered, run.Dropped, run.FetchFailures, run.ErrorMessage, run.ID)
	return storeErr("update run", err)
}

func (s *SQLiteStore) LogActivity(ctx context.Context, level models.LogLevel, source, message string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activity_log (level, source, message) VALUES (?, ?, ?)`,
		string(level), source, message)
	return storeErr("log activity", err)
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
