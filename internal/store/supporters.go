package store

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/theeman05/SWEN-261-StudentUFund/internal/models"
)

// ErrUserExists is returned when registering a username that is already taken.
var ErrUserExists = fmt.Errorf("user already exists")

// GetUserByUsername returns nil, nil when no user with the username exists.
func (s *Store) GetUserByUsername(username string) (*models.User, error) {
	query := `SELECT username, password, role, created_at FROM users WHERE username = ?`
	row := s.DB.QueryRow(query, username)

	var user models.User
	if err := row.Scan(&user.Username, &user.Password, &user.Role, &user.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) CreateUser(username, hashedPassword string, role models.Role) error {
	query := `INSERT INTO users (username, password, role) VALUES (?, ?, ?)`
	_, err := s.DB.Exec(query, username, hashedPassword, role)
	if err != nil && isUniqueViolation(err) {
		return ErrUserExists
	}
	return err
}

// GetSupporter loads a supporter together with their persisted basket
// snapshot. Returns nil, nil when the username does not belong to a
// supporter.
func (s *Store) GetSupporter(username string) (*models.Supporter, error) {
	user, err := s.GetUserByUsername(username)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Role != models.RoleSupporter {
		return nil, nil
	}

	rows, err := s.DB.Query(
		`SELECT need_name, quantity FROM basket_lines WHERE supporter_username = ? ORDER BY need_name`,
		username,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	supporter := &models.Supporter{Username: username}
	for rows.Next() {
		var line models.BasketLine
		if err := rows.Scan(&line.NeedName, &line.Quantity); err != nil {
			return nil, err
		}
		supporter.FundingBasket = append(supporter.FundingBasket, line)
	}
	return supporter, rows.Err()
}

// ReplaceBasket rewrites the supporter's persisted basket snapshot in one
// transaction. Lines with quantity <= 0 are not persisted.
func (s *Store) ReplaceBasket(username string, lines []models.BasketLine) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM basket_lines WHERE supporter_username = ?`, username); err != nil {
		return err
	}

	sorted := make([]models.BasketLine, len(lines))
	copy(sorted, lines)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].NeedName < sorted[j].NeedName })

	for _, line := range sorted {
		if line.Quantity <= 0 {
			continue
		}
		_, err := tx.Exec(
			`INSERT INTO basket_lines (supporter_username, need_name, quantity) VALUES (?, ?, ?)`,
			username, line.NeedName, line.Quantity,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}
