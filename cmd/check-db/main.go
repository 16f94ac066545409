// Package main is a diagnostic tool for testing database connectivity and
// inspecting live tenant data. It connects to the database, queries the
// organizations and public_jobs tables, and prints a summary to stdout. The
// binary exits with a non-zero code on any failure so it can be embedded in
// health checks or CI/CD pipeline steps to gate deployments on a reachable,
// populated database.
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
)

func main() {
	dbPassword := os.Getenv("DATABASE_PASSWORD")
	if dbPassword == "" {
		dbPassword = "licope"
	}

	connStr := fmt.Sprintf("host=localhost port=5432 user=licope password=%s dbname=licope sslmode=disable", dbPassword)
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	// Check organizations
	fmt.Println("=== ORGANIZATIONS ===")
	rows, err := db.Query("SELECT id, name, display_name FROM organizations")
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, name, displayName string
		if err := rows.Scan(&id, &name, &displayName); err != nil {
			log.Printf("Warning: failed to scan organization row: %v", err)
			continue
		}

		var members, published int
		if err := db.QueryRow("SELECT COUNT(*) FROM members WHERE org_id = $1", id).Scan(&members); err != nil {
			log.Printf("Warning: failed to count members for %s: %v", name, err)
		}
		if err := db.QueryRow("SELECT COUNT(*) FROM public_jobs WHERE org_id = $1", id).Scan(&published); err != nil {
			log.Printf("Warning: failed to count public jobs for %s: %v", name, err)
		}
		fmt.Printf("Org: %s (%q, ID: %s) - members: %d, published jobs: %d\n",
			name, displayName, id, members, published)
	}

	// Check pending moderation queue
	fmt.Println("\n=== PENDING LICOLOG POSTS ===")
	var pending int
	if err := db.QueryRow("SELECT COUNT(*) FROM licolog_posts WHERE status = 'pending'").Scan(&pending); err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	fmt.Printf("Pending posts across all tenants: %d\n", pending)

	// Check unnotified applications
	fmt.Println("\n=== APPLICATION OUTBOX ===")
	var unnotified int
	if err := db.QueryRow("SELECT COUNT(*) FROM applications WHERE notified_at IS NULL").Scan(&unnotified); err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	if unnotified == 0 {
		fmt.Println("Outbox is empty")
	} else {
		fmt.Printf("Applications awaiting notification: %d\n", unnotified)
	}
}
