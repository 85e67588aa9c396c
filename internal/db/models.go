package db

import (
	"time"
)

type Status struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type CustomerType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Customer struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone,omitempty"`
	CustomerTypeID int64     `json:"customer_type_id"`
	CustomerType   string    `json:"customer_type,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type Department struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type IntakeWindow struct {
	ID       int64     `json:"id"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

type Item struct {
	ID                 int64      `json:"id"`
	Code               string     `json:"code"`
	CustomerID         int64      `json:"customer_id"`
	DepartmentID       int64      `json:"department_id"`
	StatusID           int64      `json:"status_id"`
	IntakeWindowID     int64      `json:"intake_window_id"`
	ItemDescription    string     `json:"item_description"`
	ProblemDescription string     `json:"problem_description"`
	Advice             string     `json:"advice,omitempty"`
	RegisteredAt       time.Time  `json:"registered_at"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
	ReadyAt            *time.Time `json:"ready_at,omitempty"`
	DeliveredAt        *time.Time `json:"delivered_at,omitempty"`
}

// ItemDetail is an Item joined with the names a caller normally needs.
type ItemDetail struct {
	Item
	Status        string        `json:"status"`
	CustomerName  string        `json:"customer_name"`
	CustomerPhone string        `json:"customer_phone,omitempty"`
	CustomerType  string        `json:"customer_type"`
	Department    string        `json:"department"`
	Materials     []UsageDetail `json:"materials,omitempty"`
	RepairOutcome string        `json:"repair_outcome,omitempty"`
}

// ItemSummary is the compact shape carried in status-group snapshots.
type ItemSummary struct {
	Code            string    `json:"code"`
	Status          string    `json:"status"`
	ItemDescription string    `json:"item_description"`
	Department      string    `json:"department"`
	RegisteredAt    time.Time `json:"registered_at"`
}

type Material struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type UsageDetail struct {
	MaterialID     int64  `json:"material_id"`
	Material       string `json:"material"`
	Quantity       int64  `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	TotalCents     int64  `json:"total_cents"`
}

type Printer struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	ConnectionID    string     `json:"connection_id,omitempty"`
	Connected       bool       `json:"connected"`
	LastConnectedAt *time.Time `json:"last_connected_at,omitempty"`
}

type PrintJob struct {
	ID           int64      `json:"id"`
	PrinterID    int64      `json:"printer_id"`
	ItemID       int64      `json:"item_id"`
	Payload      string     `json:"payload"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

type UserType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	UserTypeID   int64     `json:"user_type_id"`
	UserType     string    `json:"user_type,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Print job lifecycle states.
const (
	PrintJobPending   = "pending"
	PrintJobSent      = "sent"
	PrintJobCompleted = "completed"
	PrintJobFailed    = "failed"
)
