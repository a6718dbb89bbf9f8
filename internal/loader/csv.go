// Package loader performs the one-time import of retail reference data from
// CSV files into the store.
package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"shopchat/internal/domain"
	"shopchat/internal/repository"
)

// Loader imports CSV reference data.
type Loader struct {
	store   store.Store
	dataDir string
}

// New creates a loader reading from dataDir.
func New(store store.Store, dataDir string) *Loader {
	return &Loader{store: store, dataDir: dataDir}
}

// Run imports all reference data files. Import is skipped when the store
// already holds users or products; each file is inserted in one transaction.
// Missing files are logged and skipped.
func (l *Loader) Run(ctx context.Context) error {
	users, err := l.store.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	products, err := l.store.CountProducts(ctx)
	if err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if users > 0 || products > 0 {
		log.Printf("Database already contains data. Skipping CSV data loading.")
		return nil
	}

	log.Printf("Loading initial data from CSVs...")
	if err := l.loadDistributionCenters(ctx); err != nil {
		return err
	}
	if err := l.loadProducts(ctx); err != nil {
		return err
	}
	if err := l.loadUsers(ctx); err != nil {
		return err
	}
	if err := l.loadOrders(ctx); err != nil {
		return err
	}
	log.Printf("Initial data loading complete.")
	return nil
}

func (l *Loader) loadDistributionCenters(ctx context.Context) error {
	var centers []domain.DistributionCenter
	err := l.readCSV("distribution_centers.csv", func(row record) error {
		id, err := strconv.ParseInt(row.get("id"), 10, 64)
		if err != nil {
			return fmt.Errorf("bad distribution center id %q: %w", row.get("id"), err)
		}
		centers = append(centers, domain.DistributionCenter{
			ID:        id,
			Name:      row.get("name"),
			Latitude:  parseFloat(row.get("latitude")),
			Longitude: parseFloat(row.get("longitude")),
		})
		return nil
	})
	if err != nil {
		return err
	}
	if len(centers) == 0 {
		return nil
	}
	if err := l.store.InsertDistributionCenters(ctx, centers); err != nil {
		return fmt.Errorf("failed to insert distribution centers: %w", err)
	}
	log.Printf("Loaded %d distribution centers", len(centers))
	return nil
}

func (l *Loader) loadProducts(ctx context.Context) error {
	var products []domain.Product
	err := l.readCSV("products.csv", func(row record) error {
		id, err := strconv.ParseInt(row.get("id"), 10, 64)
		if err != nil {
			return fmt.Errorf("bad product id %q: %w", row.get("id"), err)
		}
		dcID, _ := strconv.ParseInt(row.get("distribution_center_id"), 10, 64)
		products = append(products, domain.Product{
			ID:                   id,
			Cost:                 parseFloat(row.get("cost")),
			Category:             row.get("category"),
			Name:                 row.get("name"),
			Brand:                row.get("brand"),
			RetailPrice:          parseFloat(row.get("retail_price")),
			Department:           row.get("department"),
			SKU:                  row.get("sku"),
			DistributionCenterID: dcID,
		})
		return nil
	})
	if err != nil {
		return err
	}
	if len(products) == 0 {
		return nil
	}
	if err := l.store.InsertProducts(ctx, products); err != nil {
		return fmt.Errorf("failed to insert products: %w", err)
	}
	log.Printf("Loaded %d products", len(products))
	return nil
}

func (l *Loader) loadUsers(ctx context.Context) error {
	var users []domain.User
	err := l.readCSV("users.csv", func(row record) error {
		id, err := strconv.ParseInt(row.get("id"), 10, 64)
		if err != nil {
			return fmt.Errorf("bad user id %q: %w", row.get("id"), err)
		}
		age, _ := strconv.Atoi(row.get("age"))
		users = append(users, domain.User{
			ID:            id,
			FirstName:     row.get("first_name"),
			LastName:      row.get("last_name"),
			Email:         row.get("email"),
			Age:           age,
			Gender:        row.get("gender"),
			State:         row.get("state"),
			City:          row.get("city"),
			Country:       row.get("country"),
			TrafficSource: row.get("traffic_source"),
			CreatedAt:     parseTimestamp(row.get("created_at")),
		})
		return nil
	})
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return nil
	}
	if err := l.store.InsertUsers(ctx, users); err != nil {
		return fmt.Errorf("failed to insert users: %w", err)
	}
	log.Printf("Loaded %d users", len(users))
	return nil
}

func (l *Loader) loadOrders(ctx context.Context) error {
	var orders []domain.Order
	err := l.readCSV("orders.csv", func(row record) error {
		id, err := strconv.ParseInt(row.get("order_id"), 10, 64)
		if err != nil {
			return fmt.Errorf("bad order id %q: %w", row.get("order_id"), err)
		}
		userID, _ := strconv.ParseInt(row.get("user_id"), 10, 64)
		numItems, _ := strconv.Atoi(row.get("num_of_item"))
		createdAt := parseTimestamp(row.get("created_at"))
		if createdAt == nil {
			return fmt.Errorf("order %d has no parseable created_at", id)
		}
		orders = append(orders, domain.Order{
			ID:          id,
			UserID:      userID,
			Status:      row.get("status"),
			Gender:      row.get("gender"),
			CreatedAt:   *createdAt,
			ReturnedAt:  parseTimestamp(row.get("returned_at")),
			ShippedAt:   parseTimestamp(row.get("shipped_at")),
			DeliveredAt: parseTimestamp(row.get("delivered_at")),
			NumItems:    numItems,
		})
		return nil
	})
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		return nil
	}
	if err := l.store.InsertOrders(ctx, orders); err != nil {
		return fmt.Errorf("failed to insert orders: %w", err)
	}
	log.Printf("Loaded %d orders", len(orders))
	return nil
}

// record is one CSV row with access by header name.
type record struct {
	header map[string]int
	fields []string
}

func (r record) get(name string) string {
	idx, ok := r.header[name]
	if !ok || idx >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[idx])
}

// readCSV streams a headered CSV file row by row. A missing file is logged
// and skipped, not an error.
func (l *Loader) readCSV(name string, fn func(record) error) error {
	path := filepath.Join(l.dataDir, name)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("WARN: %s not found, skipping", path)
			return nil
		}
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	headerRow, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read %s header: %w", name, err)
	}
	header := make(map[string]int, len(headerRow))
	for i, h := range headerRow {
		header[strings.TrimSpace(h)] = i
	}

	for {
		fields, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		if err := fn(record{header: header, fields: fields}); err != nil {
			return err
		}
	}
}

// timestampFormats lists the layouts seen in the source data, most specific
// first.
var timestampFormats = []string{
	"2006-01-02 15:04:05.999999-07:00",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05.999",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// parseTimestamp tries each known layout in order; unparseable or empty
// values become nil.
func parseTimestamp(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "null") {
		return nil
	}
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	log.Printf("WARN: could not parse timestamp %q, tried all known formats", value)
	return nil
}

func parseFloat(value string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(value), 64)
	return f
}
