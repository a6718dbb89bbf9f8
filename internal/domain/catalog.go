package domain

import "time"

// User is a registered customer.
type User struct {
	ID            int64      `json:"id"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	Email         string     `json:"email"`
	Age           int        `json:"age,omitempty"`
	Gender        string     `json:"gender,omitempty"`
	State         string     `json:"state,omitempty"`
	City          string     `json:"city,omitempty"`
	Country       string     `json:"country,omitempty"`
	TrafficSource string     `json:"trafficSource,omitempty"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"`
}

// Product is a catalog entry.
type Product struct {
	ID                   int64   `json:"id"`
	Cost                 float64 `json:"cost"`
	Category             string  `json:"category"`
	Name                 string  `json:"name"`
	Brand                string  `json:"brand"`
	RetailPrice          float64 `json:"retailPrice"`
	Department           string  `json:"department,omitempty"`
	SKU                  string  `json:"sku,omitempty"`
	DistributionCenterID int64   `json:"distributionCenterId,omitempty"`
}

// Order is a customer order.
type Order struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"userId"`
	Status      string     `json:"status"`
	Gender      string     `json:"gender,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	ReturnedAt  *time.Time `json:"returnedAt,omitempty"`
	ShippedAt   *time.Time `json:"shippedAt,omitempty"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
	NumItems    int        `json:"numOfItem"`
}

// DistributionCenter is a warehouse products ship from.
type DistributionCenter struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
