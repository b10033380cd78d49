package store

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/theeman05/SWEN-261-StudentUFund/internal/models"
)

func scanReceipt(row interface{ Scan(...any) error }) (*models.Receipt, error) {
	var r models.Receipt
	var total string
	if err := row.Scan(&r.SupporterUsername, &r.NeedName, &total, &r.TotalQuantity); err != nil {
		return nil, err
	}
	t, err := decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("invalid stored receipt total: %w", err)
	}
	r.TotalCost = t
	return &r, nil
}

// AccumulateReceipt adds the given cost and quantity to the receipt for
// (supporter, need), creating it when this is the supporter's first funding
// of that need. Get-or-create and the addition run in one transaction so
// concurrent checkouts cannot lose an update.
func (s *Store) AccumulateReceipt(supporterUsername, needName string, deltaCost decimal.Decimal, deltaQuantity int) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var total string
	var quantity int
	err = tx.QueryRow(
		`SELECT total_cost, total_quantity FROM receipts WHERE supporter_username = ? AND need_name = ?`,
		supporterUsername, needName,
	).Scan(&total, &quantity)

	switch {
	case err == sql.ErrNoRows:
		_, err = tx.Exec(
			`INSERT INTO receipts (supporter_username, need_name, total_cost, total_quantity) VALUES (?, ?, ?, ?)`,
			supporterUsername, needName, deltaCost.String(), deltaQuantity,
		)
	case err == nil:
		var current decimal.Decimal
		current, err = decimal.NewFromString(total)
		if err != nil {
			return fmt.Errorf("invalid stored receipt total: %w", err)
		}
		_, err = tx.Exec(
			`UPDATE receipts SET total_cost = ?, total_quantity = ? WHERE supporter_username = ? AND need_name = ?`,
			current.Add(deltaCost).String(), quantity+deltaQuantity, supporterUsername, needName,
		)
	}
	if err != nil {
		return err
	}

	return tx.Commit()
}

// GetReceipt returns nil, nil when the supporter has never funded the need.
func (s *Store) GetReceipt(supporterUsername, needName string) (*models.Receipt, error) {
	query := `
		SELECT supporter_username, need_name, total_cost, total_quantity
		FROM receipts WHERE supporter_username = ? AND need_name = ?
	`
	receipt, err := scanReceipt(s.DB.QueryRow(query, supporterUsername, needName))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

func (s *Store) GetReceipts() ([]models.Receipt, error) {
	return s.queryReceipts(
		`SELECT supporter_username, need_name, total_cost, total_quantity
		 FROM receipts ORDER BY supporter_username, need_name`,
	)
}

func (s *Store) GetReceiptsFor(supporterUsername string) ([]models.Receipt, error) {
	return s.queryReceipts(
		`SELECT supporter_username, need_name, total_cost, total_quantity
		 FROM receipts WHERE supporter_username = ? ORDER BY need_name`,
		supporterUsername,
	)
}

func (s *Store) queryReceipts(query string, args ...any) ([]models.Receipt, error) {
	rows, err := s.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var receipts []models.Receipt
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, *r)
	}
	return receipts, rows.Err()
}

// GetFundingTotal sums every receipt the supporter holds. A supporter with
// no receipts totals zero.
func (s *Store) GetFundingTotal(supporterUsername string) (decimal.Decimal, error) {
	receipts, err := s.GetReceiptsFor(supporterUsername)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, r := range receipts {
		total = total.Add(r.TotalCost)
	}
	return total, nil
}

// GetFundingLeaderboard returns every supporter with at least one receipt,
// ordered by total funded, highest first. Totals are summed in Go since the
// costs are stored as decimal strings.
func (s *Store) GetFundingLeaderboard() ([]models.FundingTotal, error) {
	receipts, err := s.GetReceipts()
	if err != nil {
		return nil, err
	}

	totals := make(map[string]decimal.Decimal)
	var order []string
	for _, r := range receipts {
		if _, ok := totals[r.SupporterUsername]; !ok {
			order = append(order, r.SupporterUsername)
		}
		totals[r.SupporterUsername] = totals[r.SupporterUsername].Add(r.TotalCost)
	}

	board := make([]models.FundingTotal, 0, len(order))
	for _, username := range order {
		board = append(board, models.FundingTotal{SupporterUsername: username, Total: totals[username]})
	}
	// Highest total first; equal totals fall back to username order.
	sort.Slice(board, func(i, j int) bool {
		if !board[i].Total.Equal(board[j].Total) {
			return board[i].Total.GreaterThan(board[j].Total)
		}
		return board[i].SupporterUsername < board[j].SupporterUsername
	})
	return board, nil
}
