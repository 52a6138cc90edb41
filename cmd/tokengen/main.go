// Command tokengen issues a signed access token for a user. It is how roles
// are provisioned: the role is written into the token here and only read by
// the API.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"bistro/internal/auth"
	"bistro/internal/model"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("tokengen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	sub := fs.String("sub", "", "user id (uuid); a new one is generated when empty")
	email := fs.String("email", "", "user email")
	role := fs.String("role", string(model.RoleCustomer), "role: admin, staff or customer")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	issuerName := fs.String("issuer", envOr("JWT_ISSUER", "bistro"), "token issuer")
	if err := fs.Parse(args); err != nil {
		return err
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}

	id := model.Identity{Email: *email, Role: model.Role(*role)}
	if !id.Role.IsValid() {
		return fmt.Errorf("unknown role %q", *role)
	}
	if *sub == "" {
		id.UserID = uuid.New()
	} else {
		parsed, err := uuid.Parse(*sub)
		if err != nil {
			return fmt.Errorf("invalid sub: %w", err)
		}
		id.UserID = parsed
	}

	issuer, err := auth.NewIssuer(secret, *issuerName, *ttl)
	if err != nil {
		return err
	}

	token, err := issuer.Issue(id)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	fmt.Fprintf(stderr, "user %s (%s)\n", id.UserID, id.Role)
	fmt.Fprintln(stdout, token)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
