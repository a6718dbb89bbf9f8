package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"shopchat/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			email TEXT NOT NULL,
			age INTEGER,
			gender TEXT,
			state TEXT,
			city TEXT,
			country TEXT,
			traffic_source TEXT,
			created_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS distribution_centers (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			latitude REAL,
			longitude REAL
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id INTEGER PRIMARY KEY,
			cost REAL,
			category TEXT,
			name TEXT NOT NULL,
			brand TEXT,
			retail_price REAL,
			department TEXT,
			sku TEXT,
			distribution_center_id INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_products_name ON products(name)`,
		`CREATE INDEX IF NOT EXISTS idx_products_category ON products(category)`,
		`CREATE TABLE IF NOT EXISTS orders (
			order_id INTEGER PRIMARY KEY,
			user_id INTEGER NOT NULL,
			status TEXT NOT NULL,
			gender TEXT,
			created_at DATETIME NOT NULL,
			returned_at DATETIME,
			shipped_at DATETIME,
			delivered_at DATETIME,
			num_of_item INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			start_time DATETIME NOT NULL,
			end_time DATETIME,
			status TEXT NOT NULL,
			title TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id, start_time)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id INTEGER NOT NULL,
			sequence_number INTEGER NOT NULL,
			sender_type TEXT NOT NULL,
			content TEXT NOT NULL,
			timestamp DATETIME NOT NULL,
			metadata TEXT,
			UNIQUE (session_id, sequence_number),
			FOREIGN KEY (session_id) REFERENCES sessions(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, sequence_number)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSession creates a new session and fills in its generated ID.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *domain.Session) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (user_id, start_time, end_time, status, title) VALUES (?, ?, ?, ?, ?)`,
		session.UserID, session.StartTime, session.EndTime, session.Status, nullString(session.Title))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	session.ID = id
	return nil
}

// GetSession retrieves a session by ID. Returns nil when absent.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID int64) (*domain.Session, error) {
	var session domain.Session
	var endTime sql.NullTime
	var title sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, start_time, end_time, status, title FROM sessions WHERE id = ?`,
		sessionID).Scan(&session.ID, &session.UserID, &session.StartTime, &endTime, &session.Status, &title)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if endTime.Valid {
		session.EndTime = &endTime.Time
	}
	if title.Valid {
		session.Title = title.String
	}
	return &session, nil
}

// UpdateSession persists the mutable session fields (status, end time, title).
func (s *SQLiteStore) UpdateSession(ctx context.Context, session *domain.Session) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, end_time = ?, title = ? WHERE id = ?`,
		session.Status, session.EndTime, nullString(session.Title), session.ID)
	return err
}

// ListSessionsByUser lists a user's sessions, newest first.
func (s *SQLiteStore) ListSessionsByUser(ctx context.Context, userID int64) ([]domain.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, start_time, end_time, status, title FROM sessions WHERE user_id = ? ORDER BY start_time DESC, id DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var session domain.Session
		var endTime sql.NullTime
		var title sql.NullString
		if err := rows.Scan(&session.ID, &session.UserID, &session.StartTime, &endTime, &session.Status, &title); err != nil {
			return nil, err
		}
		if endTime.Valid {
			session.EndTime = &endTime.Time
		}
		if title.Valid {
			session.Title = title.String
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// CreateMessage appends a message to a session's log and fills in its ID.
func (s *SQLiteStore) CreateMessage(ctx context.Context, message *domain.Message) error {
	var metadata sql.NullString
	if len(message.Metadata) > 0 {
		metadata = sql.NullString{String: string(message.Metadata), Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (session_id, sequence_number, sender_type, content, timestamp, metadata) VALUES (?, ?, ?, ?, ?, ?)`,
		message.SessionID, message.SequenceNumber, message.Sender, message.Content, message.Timestamp, metadata)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	message.ID = id
	return nil
}

// GetMessagesBySession retrieves a session's messages in ascending sequence order.
func (s *SQLiteStore) GetMessagesBySession(ctx context.Context, sessionID int64) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, sequence_number, sender_type, content, timestamp, metadata FROM messages WHERE session_id = ? ORDER BY sequence_number ASC`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		var metadata sql.NullString
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.SequenceNumber, &msg.Sender, &msg.Content, &msg.Timestamp, &metadata); err != nil {
			return nil, err
		}
		if metadata.Valid {
			msg.Metadata = json.RawMessage(metadata.String)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// NextSequence returns the next sequence number for a session: max + 1, or 1
// for an empty session. Callers must hold the per-session lock; this is a
// plain read, not a compare-and-swap.
func (s *SQLiteStore) NextSequence(ctx context.Context, sessionID int64) (int, error) {
	var next int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence_number), 0) + 1 FROM messages WHERE session_id = ?`,
		sessionID).Scan(&next)
	if err != nil {
		return 0, err
	}
	return next, nil
}

// GetUser retrieves a user by ID. Returns nil when absent.
func (s *SQLiteStore) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	var user domain.User
	var age sql.NullInt64
	var gender, state, city, country, trafficSource sql.NullString
	var createdAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, email, age, gender, state, city, country, traffic_source, created_at FROM users WHERE id = ?`,
		userID).Scan(&user.ID, &user.FirstName, &user.LastName, &user.Email, &age, &gender, &state, &city, &country, &trafficSource, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	user.Age = int(age.Int64)
	user.Gender = gender.String
	user.State = state.String
	user.City = city.String
	user.Country = country.String
	user.TrafficSource = trafficSource.String
	if createdAt.Valid {
		user.CreatedAt = &createdAt.Time
	}
	return &user, nil
}

// GetProduct retrieves a product by ID. Returns nil when absent.
func (s *SQLiteStore) GetProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, cost, category, name, brand, retail_price, department, sku, distribution_center_id FROM products WHERE id = ?`,
		productID)
	product, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return product, nil
}

// SearchProducts performs a case-insensitive substring match of query against
// product name or category, returning at most limit rows.
func (s *SQLiteStore) SearchProducts(ctx context.Context, query string, limit int) ([]domain.Product, error) {
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, cost, category, name, brand, retail_price, department, sku, distribution_center_id
		 FROM products
		 WHERE name LIKE ? COLLATE NOCASE OR category LIKE ? COLLATE NOCASE
		 ORDER BY id ASC
		 LIMIT ?`,
		pattern, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *product)
	}
	return products, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var product domain.Product
	var cost, retailPrice sql.NullFloat64
	var category, brand, department, sku sql.NullString
	var dcID sql.NullInt64
	if err := row.Scan(&product.ID, &cost, &category, &product.Name, &brand, &retailPrice, &department, &sku, &dcID); err != nil {
		return nil, err
	}
	product.Cost = cost.Float64
	product.Category = category.String
	product.Brand = brand.String
	product.RetailPrice = retailPrice.Float64
	product.Department = department.String
	product.SKU = sku.String
	product.DistributionCenterID = dcID.Int64
	return &product, nil
}

// GetOrder retrieves an order by ID. Returns nil when absent.
func (s *SQLiteStore) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	var order domain.Order
	var gender sql.NullString
	var returnedAt, shippedAt, deliveredAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT order_id, user_id, status, gender, created_at, returned_at, shipped_at, delivered_at, num_of_item FROM orders WHERE order_id = ?`,
		orderID).Scan(&order.ID, &order.UserID, &order.Status, &gender, &order.CreatedAt, &returnedAt, &shippedAt, &deliveredAt, &order.NumItems)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	order.Gender = gender.String
	if returnedAt.Valid {
		order.ReturnedAt = &returnedAt.Time
	}
	if shippedAt.Valid {
		order.ShippedAt = &shippedAt.Time
	}
	if deliveredAt.Valid {
		order.DeliveredAt = &deliveredAt.Time
	}
	return &order, nil
}

// CountUsers returns the number of users.
func (s *SQLiteStore) CountUsers(ctx context.Context) (int64, error) {
	return s.count(ctx, "users")
}

// CountProducts returns the number of products.
func (s *SQLiteStore) CountProducts(ctx context.Context) (int64, error) {
	return s.count(ctx, "products")
}

func (s *SQLiteStore) count(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// InsertDistributionCenters bulk-inserts distribution centers in one transaction.
func (s *SQLiteStore) InsertDistributionCenters(ctx context.Context, centers []domain.DistributionCenter) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR REPLACE INTO distribution_centers (id, name, latitude, longitude) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, dc := range centers {
			if _, err := stmt.ExecContext(ctx, dc.ID, dc.Name, dc.Latitude, dc.Longitude); err != nil {
				return err
			}
		}
		return nil
	})
}

// InsertProducts bulk-inserts products in one transaction.
func (s *SQLiteStore) InsertProducts(ctx context.Context, products []domain.Product) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR REPLACE INTO products (id, cost, category, name, brand, retail_price, department, sku, distribution_center_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, p := range products {
			if _, err := stmt.ExecContext(ctx, p.ID, p.Cost, p.Category, p.Name, p.Brand, p.RetailPrice, p.Department, p.SKU, p.DistributionCenterID); err != nil {
				return err
			}
		}
		return nil
	})
}

// InsertUsers bulk-inserts users in one transaction.
func (s *SQLiteStore) InsertUsers(ctx context.Context, users []domain.User) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR REPLACE INTO users (id, first_name, last_name, email, age, gender, state, city, country, traffic_source, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, u := range users {
			if _, err := stmt.ExecContext(ctx, u.ID, u.FirstName, u.LastName, u.Email, u.Age, u.Gender, u.State, u.City, u.Country, u.TrafficSource, u.CreatedAt); err != nil {
				return err
			}
		}
		return nil
	})
}

// InsertOrders bulk-inserts orders in one transaction.
func (s *SQLiteStore) InsertOrders(ctx context.Context, orders []domain.Order) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR REPLACE INTO orders (order_id, user_id, status, gender, created_at, returned_at, shipped_at, delivered_at, num_of_item)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, o := range orders {
			if _, err := stmt.ExecContext(ctx, o.ID, o.UserID, o.Status, o.Gender, o.CreatedAt, o.ReturnedAt, o.ShippedAt, o.DeliveredAt, o.NumItems); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
