package models

import (
	"time"
)

// Customer represents a customer account
type Customer struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email,omitempty"`
	Phone     string    `db:"phone" json:"phone,omitempty"`
	Address   string    `db:"address" json:"address,omitempty"`
	Company   string    `db:"company" json:"company,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NewCustomer creates a new customer
func NewCustomer(name, email, phone, address, company string) *Customer {
	now := GetCurrentTime()

	return &Customer{
		ID:        GenerateID("cus"),
		Name:      name,
		Email:     email,
		Phone:     phone,
		Address:   address,
		Company:   company,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DisplayName prefers the company name for business customers
func (c *Customer) DisplayName() string {
	if c.Company != "" {
		return c.Company
	}
	return c.Name
}
