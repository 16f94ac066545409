// Package main is a development utility for seeding the first owner account of a
// tenant. It generates a random password with its bcrypt hash pre-computed and
// prints ready-to-run SQL INSERT statements for the organization and the owner
// member, so developers can bootstrap a usable login in a local database without
// running the full invite flow. Do not use generated credentials in production;
// create the tenant through proper provisioning instead.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	// Generate a random password
	randomBytes := make([]byte, 18)
	_, err := rand.Read(randomBytes)
	if err != nil {
		log.Fatal(err)
	}
	password := base64.RawURLEncoding.EncodeToString(randomBytes)

	// Hash with bcrypt
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), 10)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("==========================================================")
	fmt.Println("Owner Account Generated")
	fmt.Println("==========================================================")
	fmt.Printf("\nEmail: owner@dev.local\n")
	fmt.Printf("\nPassword: %s\n", password)
	fmt.Printf("\nHash: %s\n", string(hashBytes))
	fmt.Println("\n==========================================================")
	fmt.Println("SQL:")
	fmt.Println("==========================================================")
	fmt.Printf(`
INSERT INTO organizations (id, name, display_name)
VALUES (gen_random_uuid(), 'dev-org', 'Dev Organization');

INSERT INTO members (id, org_id, email, password_hash, display_name, role)
VALUES (
    gen_random_uuid(),
    (SELECT id FROM organizations WHERE name = 'dev-org'),
    'owner@dev.local',
    '%s',
    'Dev Owner',
    'owner'
);
`, string(hashBytes))
	fmt.Println("\n==========================================================")
	fmt.Printf("Login: POST /api/v1/auth/login {\"email\": \"owner@dev.local\", \"password\": \"%s\"}\n", password)
	fmt.Println("==========================================================")
}
