package model

import (
	"database/sql"
	"errors"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Session struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Token        string    `json:"token"`         // access token
	RefreshToken string    `json:"refresh_token"` // refresh token
	UserAgent    string    `json:"user_agent"`
	ClientIP     string    `json:"client_ip"`
	IsBlocked    bool      `json:"is_blocked"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateUser inserts a new user and fills in its ID.
func (u *User) CreateUser(db *sql.DB) error {
	res, err := db.Exec(
		`INSERT INTO users (username, password, email) VALUES (?, ?, ?)`,
		u.Username, u.Password, u.Email)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}

func GetUserByUsername(db *sql.DB, username string) (*User, error) {
	var u User
	err := db.QueryRow(
		`SELECT id, username, password, email FROM users WHERE username = ?`,
		username).Scan(&u.ID, &u.Username, &u.Password, &u.Email)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func GetUserByID(db *sql.DB, id int64) (*User, error) {
	var u User
	err := db.QueryRow(
		`SELECT id, username, password, email FROM users WHERE id = ?`,
		id).Scan(&u.ID, &u.Username, &u.Password, &u.Email)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateSession records a new login session.
func (s *Session) CreateSession(db *sql.DB) error {
	res, err := db.Exec(
		`INSERT INTO sessions (user_id, token, refresh_token, user_agent, client_ip, is_blocked, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.UserID, s.Token, s.RefreshToken, s.UserAgent, s.ClientIP, s.IsBlocked, s.ExpiresAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = id
	return nil
}

func GetSessionByToken(db *sql.DB, token string) (*Session, error) {
	var s Session
	err := db.QueryRow(
		`SELECT id, user_id, token, refresh_token, is_blocked, expires_at FROM sessions WHERE token = ?`,
		token).Scan(&s.ID, &s.UserID, &s.Token, &s.RefreshToken, &s.IsBlocked, &s.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func GetSessionByRefreshToken(db *sql.DB, refreshToken string) (*Session, error) {
	var s Session
	err := db.QueryRow(
		`SELECT id, user_id, token, refresh_token, is_blocked, expires_at FROM sessions WHERE refresh_token = ?`,
		refreshToken).Scan(&s.ID, &s.UserID, &s.Token, &s.RefreshToken, &s.IsBlocked, &s.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateSessionToken swaps the access token after a refresh.
func UpdateSessionToken(db *sql.DB, sessionID int64, newToken string) error {
	_, err := db.Exec(`UPDATE sessions SET token = ? WHERE id = ?`, newToken, sessionID)
	return err
}

func DeleteSessionByToken(db *sql.DB, token string) error {
	_, err := db.Exec(`DELETE FROM sessions WHERE token = ?`, token)
	return err
}
