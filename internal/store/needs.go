package store

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/theeman05/SWEN-261-StudentUFund/internal/models"
)

// ErrNeedExists is returned when creating a need whose name is already taken.
var ErrNeedExists = fmt.Errorf("need already exists")

func scanNeed(row interface{ Scan(...any) error }) (*models.Need, error) {
	var n models.Need
	var cost string
	if err := row.Scan(&n.Name, &cost, &n.Quantity, &n.ImageURL); err != nil {
		return nil, err
	}
	c, err := decimal.NewFromString(cost)
	if err != nil {
		return nil, fmt.Errorf("invalid stored cost for need %q: %w", n.Name, err)
	}
	n.Cost = c
	return &n, nil
}

func (s *Store) CreateNeed(need *models.Need) error {
	query := `
		INSERT INTO needs (name, cost, quantity, image_url, created_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
	`
	_, err := s.DB.Exec(query, need.Name, need.Cost.String(), need.Quantity, need.ImageURL)
	if err != nil && isUniqueViolation(err) {
		return ErrNeedExists
	}
	return err
}

// GetNeed returns nil, nil when no need with the given name exists.
func (s *Store) GetNeed(name string) (*models.Need, error) {
	query := `SELECT name, cost, quantity, COALESCE(image_url, '') FROM needs WHERE name = ?`
	need, err := scanNeed(s.DB.QueryRow(query, name))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return need, nil
}

func (s *Store) GetNeeds() ([]models.Need, error) {
	return s.FindNeeds("")
}

// FindNeeds returns needs whose name contains the given text, ordered by
// name. Empty text matches everything.
func (s *Store) FindNeeds(containsText string) ([]models.Need, error) {
	query := `
		SELECT name, cost, quantity, COALESCE(image_url, '')
		FROM needs
		WHERE instr(name, ?) > 0 OR ? = ''
		ORDER BY name
	`
	rows, err := s.DB.Query(query, containsText, containsText)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var needs []models.Need
	for rows.Next() {
		n, err := scanNeed(rows)
		if err != nil {
			return nil, err
		}
		needs = append(needs, *n)
	}
	return needs, rows.Err()
}

// UpdateNeed overwrites the need's cost and quantity. Returns false when no
// need with that name exists.
func (s *Store) UpdateNeed(need *models.Need) (bool, error) {
	query := `UPDATE needs SET cost = ?, quantity = ? WHERE name = ?`
	res, err := s.DB.Exec(query, need.Cost.String(), need.Quantity, need.Name)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *Store) UpdateNeedImage(name, imageURL string) (bool, error) {
	res, err := s.DB.Exec(`UPDATE needs SET image_url = ? WHERE name = ?`, imageURL, name)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// DeleteNeed returns false when no need with that name exists.
func (s *Store) DeleteNeed(name string) (bool, error) {
	res, err := s.DB.Exec(`DELETE FROM needs WHERE name = ?`, name)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// DebitNeed atomically reduces a need's stock by up to qty. The debit is
// clamped to the live stock so quantity never goes negative; a need whose
// stock reaches zero is deleted from the cupboard. Returns the unit cost and
// the quantity actually debited, and found == false when the need does not
// exist.
func (s *Store) DebitNeed(name string, qty int) (unitCost decimal.Decimal, funded int, found bool, err error) {
	tx, err := s.DB.Begin()
	if err != nil {
		return decimal.Zero, 0, false, err
	}
	defer tx.Rollback()

	var cost string
	var stock int
	err = tx.QueryRow(`SELECT cost, quantity FROM needs WHERE name = ?`, name).Scan(&cost, &stock)
	if err == sql.ErrNoRows {
		return decimal.Zero, 0, false, nil
	}
	if err != nil {
		return decimal.Zero, 0, false, err
	}

	unitCost, err = decimal.NewFromString(cost)
	if err != nil {
		return decimal.Zero, 0, false, fmt.Errorf("invalid stored cost for need %q: %w", name, err)
	}

	funded = qty
	if funded > stock {
		funded = stock
	}

	if stock-funded <= 0 {
		_, err = tx.Exec(`DELETE FROM needs WHERE name = ?`, name)
	} else {
		_, err = tx.Exec(`UPDATE needs SET quantity = ? WHERE name = ?`, stock-funded, name)
	}
	if err != nil {
		return decimal.Zero, 0, false, err
	}

	if err := tx.Commit(); err != nil {
		return decimal.Zero, 0, false, err
	}
	return unitCost, funded, true, nil
}
