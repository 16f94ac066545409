// Package main is a utility for generating bcrypt hashes of member passwords.
// The backend stores only bcrypt hashes of passwords, never the raw values,
// so this tool is used when manually seeding the first owner account or
// verifying member records in the database without running the full server.
// Running it locally produces a hash that can be inserted directly into the
// members table.
package main

import (
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	password := "changeme"
	if len(os.Args) > 1 {
		password = os.Args[1]
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		panic(err)
	}
	fmt.Println(string(hash))
}
