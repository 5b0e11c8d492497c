package database

import (
	"database/sql"
	"fmt"
	"log"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		username VARCHAR(50) UNIQUE NOT NULL,
		email VARCHAR(100) UNIQUE NOT NULL,
		password_hash VARCHAR(200) NOT NULL,
		balance DOUBLE PRECISION NOT NULL DEFAULT 0,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS projects (
		id SERIAL PRIMARY KEY,
		project_id VARCHAR(20) UNIQUE NOT NULL,
		exclusive_id VARCHAR(30) UNIQUE,
		name VARCHAR(100) NOT NULL,
		code VARCHAR(50) UNIQUE NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price DOUBLE PRECISION NOT NULL,
		success_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
		available BOOLEAN NOT NULL DEFAULT TRUE,
		is_exclusive BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS number_requests (
		id SERIAL PRIMARY KEY,
		request_id VARCHAR(100) UNIQUE NOT NULL,
		user_id INTEGER NOT NULL REFERENCES users(id),
		project_id INTEGER NOT NULL REFERENCES projects(id),
		number VARCHAR(20) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'available',
		sms_code VARCHAR(20) NOT NULL DEFAULT '',
		provider_request_id VARCHAR(100) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		released_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_number_requests_user ON number_requests (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_number_requests_number ON number_requests (number)`,
	`CREATE TABLE IF NOT EXISTS sms_messages (
		id SERIAL PRIMARY KEY,
		number_request_id INTEGER NOT NULL REFERENCES number_requests(id),
		sender VARCHAR(50) NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		received_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id),
		amount DOUBLE PRECISION NOT NULL,
		balance DOUBLE PRECISION NOT NULL,
		type VARCHAR(20) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		reference_id VARCHAR(200) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS blacklisted_numbers (
		id SERIAL PRIMARY KEY,
		number VARCHAR(20) UNIQUE NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id SERIAL PRIMARY KEY,
		user_id INTEGER REFERENCES users(id),
		title VARCHAR(200) NOT NULL,
		content TEXT NOT NULL,
		type VARCHAR(20) NOT NULL DEFAULT 'system',
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS user_favorites (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id),
		project_id INTEGER NOT NULL REFERENCES projects(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, project_id)
	)`,
	`CREATE TABLE IF NOT EXISTS user_exclusive_projects (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id),
		project_id INTEGER NOT NULL REFERENCES projects(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, project_id)
	)`,
}

// Migrate creates any missing tables and indexes.
func Migrate(db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}

type seedProject struct {
	name        string
	code        string
	description string
	price       float64
	successRate float64
	exclusive   bool
}

var seedProjects = []seedProject{
	{"WeChat Login", "wechat_login", "WeChat verification code login", 1.0, 0.98, false},
	{"Alipay Login", "alipay_login", "Alipay verification code login", 1.2, 0.97, false},
	{"Douyin Login", "douyin_login", "Douyin verification code login", 1.5, 0.95, true},
}

// SeedDefaults inserts the default project catalogue when projects are
// missing. Project ids are 5-digit strings; exclusive projects get an
// exclusive id of the form "<project_id>----<8 lowercase letters>".
func SeedDefaults(db *sql.DB) error {
	for _, p := range seedProjects {
		var exists bool
		if err := db.QueryRow(`SELECT EXISTS (SELECT 1 FROM projects WHERE code = $1)`, p.code).Scan(&exists); err != nil {
			return err
		}
		if exists {
			continue
		}

		projectID := GenerateProjectID(db)
		var exclusiveID sql.NullString
		if p.exclusive {
			exclusiveID = sql.NullString{String: projectID + "----" + GenerateExclusiveSuffix(), Valid: true}
		}

		_, err := db.Exec(`
			INSERT INTO projects (project_id, exclusive_id, name, code, description, price, success_rate, available, is_exclusive)
			VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8)`,
			projectID, exclusiveID, p.name, p.code, p.description, p.price, p.successRate, p.exclusive)
		if err != nil {
			return fmt.Errorf("failed to seed project %s: %w", p.code, err)
		}
		log.Printf("Seeded project %s (%s)", p.name, p.code)
	}
	return nil
}
