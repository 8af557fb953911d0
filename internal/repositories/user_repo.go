package repositories

import (
	"database/sql"
	"strings"
	"time"

	"busbooking/internal/config"
	"busbooking/internal/domain"
	"busbooking/internal/domain/models"
)

// UserRepository wraps DB access for users.
type UserRepository struct {
	DB *sql.DB
}

func (r UserRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return config.DB
}

const userColumns = `id, first_name, last_name, email, password_hash, phone, role, is_active,
	COALESCE(reset_token,''), reset_expires, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var u models.User
	var resetExpires sql.NullTime
	err := row.Scan(
		&u.ID,
		&u.FirstName,
		&u.LastName,
		&u.Email,
		&u.PasswordHash,
		&u.Phone,
		&u.Role,
		&u.IsActive,
		&u.ResetToken,
		&resetExpires,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return models.User{}, err
	}
	if resetExpires.Valid {
		t := resetExpires.Time
		u.ResetExpires = &t
	}
	return u, nil
}

func (r UserRepository) Create(u models.User) error {
	_, err := r.db().Exec(`
		INSERT INTO users (id, first_name, last_name, email, password_hash, phone, role, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())`,
		u.ID, u.FirstName, u.LastName, u.Email, u.PasswordHash, u.Phone, u.Role, u.IsActive,
	)
	return err
}

func (r UserRepository) GetByID(id string) (models.User, error) {
	row := r.db().QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ? LIMIT 1`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return models.User{}, domain.NotFoundError{Resource: "user"}
	}
	return u, err
}

func (r UserRepository) GetByEmail(email string) (models.User, error) {
	row := r.db().QueryRow(`SELECT `+userColumns+` FROM users WHERE email = ? LIMIT 1`, strings.ToLower(strings.TrimSpace(email)))
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return models.User{}, domain.NotFoundError{Resource: "user"}
	}
	return u, err
}

// GetByResetToken resolves a user from a non-expired reset token.
func (r UserRepository) GetByResetToken(token string, now time.Time) (models.User, error) {
	row := r.db().QueryRow(`SELECT `+userColumns+` FROM users WHERE reset_token = ? AND reset_expires > ? LIMIT 1`, token, now)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return models.User{}, domain.NotFoundError{Resource: "reset token"}
	}
	return u, err
}

func (r UserRepository) EmailExists(email string) (bool, error) {
	var n int
	err := r.db().QueryRow(`SELECT COUNT(*) FROM users WHERE email = ?`, strings.ToLower(strings.TrimSpace(email))).Scan(&n)
	return n > 0, err
}

// UpdateProfile persists the mutable profile fields.
func (r UserRepository) UpdateProfile(u models.User) error {
	res, err := r.db().Exec(`
		UPDATE users SET first_name = ?, last_name = ?, phone = ?, updated_at = NOW()
		WHERE id = ?`,
		u.FirstName, u.LastName, u.Phone, u.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundError{Resource: "user"}
	}
	return nil
}

func (r UserRepository) UpdatePassword(id, passwordHash string) error {
	_, err := r.db().Exec(`
		UPDATE users SET password_hash = ?, reset_token = NULL, reset_expires = NULL, updated_at = NOW()
		WHERE id = ?`, passwordHash, id)
	return err
}

func (r UserRepository) SetResetToken(id, token string, expires time.Time) error {
	_, err := r.db().Exec(`
		UPDATE users SET reset_token = ?, reset_expires = ?, updated_at = NOW()
		WHERE id = ?`, token, expires, id)
	return err
}

// List returns users for the admin panel, newest first.
func (r UserRepository) List(limit, offset int) ([]models.User, int, error) {
	var total int
	if err := r.db().QueryRow(`SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db().Query(`SELECT `+userColumns+` FROM users ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

func (r UserRepository) UpdateRole(id, role string) error {
	res, err := r.db().Exec(`UPDATE users SET role = ?, updated_at = NOW() WHERE id = ?`, role, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundError{Resource: "user"}
	}
	return nil
}

// SetActive flips the active flag; the admin "delete" path deactivates.
func (r UserRepository) SetActive(id string, active bool) error {
	res, err := r.db().Exec(`UPDATE users SET is_active = ?, updated_at = NOW() WHERE id = ?`, active, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundError{Resource: "user"}
	}
	return nil
}

func (r UserRepository) Delete(id string) error {
	res, err := r.db().Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundError{Resource: "user"}
	}
	return nil
}
