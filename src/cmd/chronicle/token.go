// FILE: src/cmd/chronicle/token.go
package main

import (
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/term"
)

// runToken generates credentials for viewer stream access: either a
// random static bearer token, or a signed JWT when a secret is given.
func runToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenLen := fs.Int("l", 32, "Token length in bytes")
	jwtSign := fs.Bool("jwt", false, "Sign a JWT instead of generating a static token (prompts for the secret)")
	subject := fs.String("sub", "viewer", "JWT subject claim")
	ttl := fs.Duration("ttl", 24*time.Hour, "JWT validity duration")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *jwtSign {
		return signJWT(*subject, *ttl)
	}
	return generateStaticToken(*tokenLen)
}

func generateStaticToken(length int) error {
	if length < 16 {
		fmt.Fprintf(os.Stderr, "Warning: token length < 16 bytes is insecure\n")
	}

	token := make([]byte, length)
	if _, err := rand.Read(token); err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	b64 := base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(token)

	fmt.Println("# Add to chronicle.toml under [viewer.auth]:")
	fmt.Printf("token = \"%s\"\n", b64)
	return nil
}

func signJWT(subject string, ttl time.Duration) error {
	fmt.Fprint(os.Stderr, "Enter JWT secret: ")
	secret, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to read secret: %w", err)
	}
	if len(secret) == 0 {
		return fmt.Errorf("empty JWT secret")
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})

	signed, err := token.SignedString(secret)
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}

	fmt.Printf("# Bearer token valid until %s:\n%s\n",
		now.Add(ttl).Format(time.RFC3339), signed)
	return nil
}
