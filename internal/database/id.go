package database

import (
	"database/sql"
	"math/rand"
	"strconv"
)

// GenerateProjectID returns a 5-digit project id not yet present in the
// projects table.
func GenerateProjectID(db *sql.DB) string {
	for {
		id := strconv.Itoa(10000 + rand.Intn(90000))
		var exists bool
		if err := db.QueryRow(`SELECT EXISTS (SELECT 1 FROM projects WHERE project_id = $1)`, id).Scan(&exists); err != nil {
			return id
		}
		if !exists {
			return id
		}
	}
}

// GenerateExclusiveSuffix returns the 8 lowercase letters appended to an
// exclusive project id.
func GenerateExclusiveSuffix() string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	b := make([]byte, 8)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}
