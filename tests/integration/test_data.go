package integration

import (
	"fmt"
	"time"
)

// TestCredentials generates unique account credentials using a timestamp
func TestCredentials(suffix string) (username, email, password string) {
	ts := time.Now().UnixNano()
	username = fmt.Sprintf("test-%d-%s", ts, suffix)
	email = fmt.Sprintf("test-%d-%s@example.com", ts, suffix)
	password = "TestPassword123!"
	return
}

// CriminalsCSV builds a small criminals import file
func CriminalsCSV(rows ...string) string {
	out := "first_name,last_name,offense_type,offense_class,description,offense_source\n"
	for _, row := range rows {
		out += row + "\n"
	}
	return out
}

// UsersCSV builds a small users import file
func UsersCSV(rows ...string) string {
	out := "first_name,last_name,email,expiration_date\n"
	for _, row := range rows {
		out += row + "\n"
	}
	return out
}
