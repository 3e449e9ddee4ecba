package storage

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dealscout/models"
)

// PostgresStore is the shared record store, selected when DATABASE_URL is
// configured. Same surface as SQLiteStore.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, storeErr("parse config", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, storeErr("create pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, storeErr("ping", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, storeErr("migrate", err)
	}
	return store, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS properties (
		id TEXT PRIMARY KEY,
		address TEXT NOT NULL,
		city TEXT,
		state TEXT,
		zip TEXT,
		price DOUBLE PRECISION,
		beds INTEGER,
		baths DOUBLE PRECISION,
		sqft INTEGER,
		property_type TEXT DEFAULT 'unknown',
		source TEXT,
		url TEXT,
		listed_at TIMESTAMPTZ,
		repair_cost DOUBLE PRECISION,
		arv DOUBLE PRECISION,
		days_on_market INTEGER,
		created_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS buyers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		min_price DOUBLE PRECISION DEFAULT 0,
		max_price DOUBLE PRECISION,
		localities JSONB,
		property_types JSONB,
		min_beds INTEGER DEFAULT 0,
		min_baths DOUBLE PRECISION DEFAULT 0,
		min_sqft INTEGER DEFAULT 0,
		active BOOLEAN DEFAULT TRUE,
		created_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS matches (
		id UUID NOT NULL,
		property_id TEXT NOT NULL REFERENCES properties(id),
		buyer_id TEXT NOT NULL REFERENCES buyers(id),
		score INTEGER NOT NULL,
		notified BOOLEAN DEFAULT FALSE,
		created_at TIMESTAMPTZ,
		UNIQUE(property_id, buyer_id)
	);

	CREATE TABLE IF NOT EXISTS crawl_runs (
		id BIGSERIAL PRIMARY KEY,
		started_at TIMESTAMPTZ,
		finished_at TIMESTAMPTZ,
		status TEXT,
		found INTEGER DEFAULT 0,
		stored INTEGER DEFAULT 0,
		price_filtered INTEGER DEFAULT 0,
		dropped INTEGER DEFAULT 0,
		fetch_failures INTEGER DEFAULT 0,
		error_message TEXT
	);

	CREATE TABLE IF NOT EXISTS activity_log (
		id BIGSERIAL PRIMARY KEY,
		timestamp TIMESTAMPTZ DEFAULT NOW(),
		level TEXT,
		source TEXT,
		message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_properties_city ON properties(city, state);
	CREATE INDEX IF NOT EXISTS idx_properties_source ON properties(source);
	CREATE INDEX IF NOT EXISTS idx_matches_buyer ON matches(buyer_id, notified);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *PostgresStore) UpsertProperty(ctx context.Context, p *models.Property) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO properties (id, address, city, state, zip, price, beds, baths, sqft,
			property_type, source, url, listed_at, repair_cost, arv, days_on_market, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO UPDATE SET
			address = EXCLUDED.address,
			city = COALESCE(NULLIF(EXCLUDED.city, ''), properties.city),
			state = COALESCE(NULLIF(EXCLUDED.state, ''), properties.state),
			zip = COALESCE(NULLIF(EXCLUDED.zip, ''), properties.zip),
			price = COALESCE(EXCLUDED.price, properties.price),
			beds = COALESCE(EXCLUDED.beds, properties.beds),
			baths = COALESCE(EXCLUDED.baths, properties.baths),
			sqft = COALESCE(EXCLUDED.sqft, properties.sqft),
			property_type = EXCLUDED.property_type,
			url = COALESCE(NULLIF(EXCLUDED.url, ''), properties.url),
			repair_cost = COALESCE(EXCLUDED.repair_cost, properties.repair_cost),
			arv = COALESCE(EXCLUDED.arv, properties.arv),
			days_on_market = COALESCE(EXCLUDED.days_on_market, properties.days_on_market),
			updated_at = EXCLUDED.updated_at`,
		p.ID, p.Address, p.City, p.State, p.Zip, p.Price, p.Beds, p.Baths, p.SqFt,
		string(p.PropertyType), p.Source, p.URL, p.ListedAt, p.RepairCost, p.ARV,
		p.DaysOnMarket, p.CreatedAt, p.UpdatedAt)
	return storeErr("upsert property", err)
}

func (s *PostgresStore) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = $1`, id)
	p, err := scanProperty(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get property", err)
	}
	return p, nil
}

func (s *PostgresStore) ListProperties(ctx context.Context, f PropertyFilter) ([]models.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE TRUE`
	var args []interface{}

	if f.Source != "" {
		args = append(args, f.Source)
		query += ` AND source = $` + strconv.Itoa(len(args))
	}
	if f.City != "" {
		args = append(args, f.City)
		query += ` AND LOWER(city) = LOWER($` + strconv.Itoa(len(args)) + `)`
	}
	if f.MaxPrice > 0 {
		args = append(args, f.MaxPrice)
		query += ` AND price IS NOT NULL AND price <= $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC, id`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
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

func (s *PostgresStore) UpsertBuyer(ctx context.Context, b *models.Buyer) error {
	if err := b.Validate(); err != nil {
		return storeErr("upsert buyer", err)
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO buyers (id, name, email, min_price, max_price, localities, property_types,
			min_beds, min_baths, min_sqft, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			min_price = EXCLUDED.min_price,
			max_price = EXCLUDED.max_price,
			localities = EXCLUDED.localities,
			property_types = EXCLUDED.property_types,
			min_beds = EXCLUDED.min_beds,
			min_baths = EXCLUDED.min_baths,
			min_sqft = EXCLUDED.min_sqft,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at`,
		b.ID, b.Name, b.Email, b.MinPrice, b.MaxPrice,
		marshalStrings(b.Localities), marshalTypes(b.PropertyTypes),
		b.MinBeds, b.MinBaths, b.MinSqFt, b.Active, b.CreatedAt, b.UpdatedAt)
	return storeErr("upsert buyer", err)
}

func (s *PostgresStore) ListBuyers(ctx context.Context, activeOnly bool) ([]models.Buyer, error) {
	query := `SELECT id, name, email, min_price, max_price, localities::text, property_types::text,
		min_beds, min_baths, min_sqft, active, created_at, updated_at FROM buyers`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY name`

	rows, err := s.pool.Query(ctx, query)
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

func (s *PostgresStore) UpsertMatch(ctx context.Context, m *models.Match) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO matches (id, property_id, buyer_id, score, notified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (property_id, buyer_id) DO UPDATE SET
			score = EXCLUDED.score`,
		m.ID, m.PropertyID, m.BuyerID, m.Score, m.Notified, m.CreatedAt)
	return storeErr("upsert match", err)
}

func (s *PostgresStore) ListMatches(ctx context.Context, buyerID string) ([]models.Match, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, property_id, buyer_id, score, notified, created_at
		FROM matches WHERE buyer_id = $1
		ORDER BY score DESC, property_id ASC`, buyerID)
	if err != nil {
		return nil, storeErr("list matches", err)
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		var m models.Match
		if err := rows.Scan(&m.ID, &m.PropertyID, &m.BuyerID, &m.Score, &m.Notified, &m.CreatedAt); err != nil {
			return nil, storeErr("list matches", err)
		}
		matches = append(matches, m)
	}
	return matches, storeErr("list matches", rows.Err())
}

func (s *PostgresStore) MarkMatchNotified(ctx context.Context, propertyID, buyerID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE matches SET notified = TRUE WHERE property_id = $1 AND buyer_id = $2`,
		propertyID, buyerID)
	return storeErr("mark match notified", err)
}

func (s *PostgresStore) CreateRun(ctx context.Context, run *models.CrawlRun) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO crawl_runs (started_at, status, found, stored, price_filtered, dropped, fetch_failures, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		run.StartedAt, string(run.Status), run.Found, run.Stored, run.PriceFiltered,
		run.Dropped, run.FetchFailures, run.ErrorMessage,
	).Scan(&run.ID)
	return storeErr("create run", err)
}

func (s *PostgresStore) UpdateRun(ctx context.Context, run *models.CrawlRun) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE crawl_runs SET finished_at = $2, status = $3, found = $4, stored = $5,
			price_filtered = $6, dropped = $7, fetch_failures = $8, error_message = $9
		WHERE id = $1`,
		run.ID, run.FinishedAt, string(run.Status), run.Found, run.Stored,
		run.PriceFiltered, run.Dropped, run.FetchFailures, run.ErrorMessage)
	return storeErr("update run", err)
}

func (s *PostgresStore) LogActivity(ctx context.Context, level models.LogLevel, source, message string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO activity_log (level, source, message) VALUES ($1, $2, $3)`,
		string(level), source, message)
	return storeErr("log activity", err)
}
