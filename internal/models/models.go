package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role distinguishes the administrator from supporters. Basket and checkout
// operations are only defined for supporters.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleSupporter Role = "supporter"
)

type User struct {
	Username  string    `json:"username"`
	Password  string    `json:"-"` // bcrypt hash
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Need is a fundable item in the shared cupboard. Name is the unique key.
// A need whose quantity reaches zero is deleted, never kept as a zero-stock
// row.
type Need struct {
	Name     string          `json:"name"`
	Cost     decimal.Decimal `json:"cost"` // unit cost
	Quantity int             `json:"quantity"`
	ImageURL string          `json:"image_url,omitempty"`
}

// BasketLine is one entry of a supporter's funding basket: how many of a
// need the supporter intends to fund. Quantity is always > 0; a line at 0 is
// removed from the basket instead.
type BasketLine struct {
	NeedName string `json:"need_name"`
	Quantity int    `json:"quantity"`
}

// BasketNeed is the basket view of a need: the quantity reserved in the
// basket (0 when not in the basket) annotated with the cupboard's live stock.
type BasketNeed struct {
	Name     string          `json:"name"`
	Cost     decimal.Decimal `json:"cost"`
	Quantity int             `json:"quantity"`
	Stock    int             `json:"stock"`
}

// Supporter is the persisted form of a supporter account together with the
// last-saved snapshot of their funding basket.
type Supporter struct {
	Username      string       `json:"username"`
	FundingBasket []BasketLine `json:"funding_basket"`
}

// Receipt accumulates everything a supporter has funded toward one need.
// TotalCost is the cumulative cost funded, not a unit cost. Both totals are
// monotonically non-decreasing and receipts are never deleted.
type Receipt struct {
	SupporterUsername string          `json:"supporter_username"`
	NeedName          string          `json:"need_name"`
	TotalCost         decimal.Decimal `json:"total_cost"`
	TotalQuantity     int             `json:"total_quantity"`
}

// FundedLine is the per-line outcome of a checkout. A need that vanished
// between basketing and checkout yields Funded == false; a need with less
// stock than requested yields FundedQuantity < Quantity.
type FundedLine struct {
	NeedName       string          `json:"need_name"`
	Quantity       int             `json:"quantity"`        // requested
	FundedQuantity int             `json:"funded_quantity"` // actually debited
	CostFunded     decimal.Decimal `json:"cost_funded"`
	Funded         bool            `json:"funded"`
}

// FundingTotal is one leaderboard row: a supporter and the sum of their
// receipt costs.
type FundingTotal struct {
	SupporterUsername string          `json:"supporter_username"`
	Total             decimal.Decimal `json:"total"`
}

// NeedMessage is a note from the admin to a supporter about one need. There
// is at most one message per (receiver, need) pair; sending again replaces
// the previous message.
type NeedMessage struct {
	ReceiverUsername string    `json:"receiver_username"`
	NeedName         string    `json:"need_name"`
	SenderUsername   string    `json:"sender_username"`
	Message          string    `json:"message"`
	CreatedAt        time.Time `json:"created_at"`
}
