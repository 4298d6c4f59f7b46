package main

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// generate-jwt-token mints a bearer token for manual testing of
// urlcleaner-server's POST /clean against its HMAC-secret auth strategy.
func main() {
	// Set token expiration time (24 hours)
	expirationTime := time.Now().Add(24 * time.Hour)

	// Create JWT claims
	claims := jwt.MapClaims{
		"sub":  "test-caller",         // Subject (token bearer)
		"exp":  expirationTime.Unix(), // Expiration time
		"iat":  time.Now().Unix(),     // Issued at time
		"name": "Test Caller",         // Custom claim
	}

	// Create JWT token
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	// Sign token with secret key
	secretKey := "secret-key-for-testing"

	tokenString, err := token.SignedString([]byte(secretKey))
	if err != nil {
		fmt.Printf("Error generating JWT token: %v\n", err)
		return
	}

	// Display results
	fmt.Println("=== JWT Token Generated ===")
	fmt.Printf("Token: %s\n", tokenString)
	fmt.Printf("Expires at: %s\n", expirationTime.Format(time.RFC3339))
	fmt.Println("\nUsage example:")
	fmt.Println("curl -X POST -H \"Authorization: Bearer " + tokenString + "\" -d '{\"tasks\":[\"https://example.com\"]}' http://localhost:8080/clean")
	fmt.Println("\n=== Copy this token for testing ===")
	fmt.Println(tokenString)
}
