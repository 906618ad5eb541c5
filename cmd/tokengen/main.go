package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/tendant/simple-usermgmt/pkg/tokengenerator"
)

func main() {
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "Secret key for signing the token (defaults to $JWT_SECRET)")
	issuer := flag.String("issuer", envOr("JWT_ISSUER", "simple-usermgmt"), "Issuer of the token (defaults to $JWT_ISSUER)")
	audience := flag.String("audience", "", "Audience of the token")
	userID := flag.String("user", "", "User ID placed in user_id and sub")
	email := flag.String("email", "", "Email placed in extra_claims")
	roles := flag.String("roles", "Admin", "Comma-separated role names")
	expiry := flag.Duration("expiry", 30*time.Minute, "Token expiry duration (e.g., 30m, 1h, 24h)")
	outputFormat := flag.String("format", "compact", "Output format: compact, full, or debug")
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "Error: -user is required")
		os.Exit(2)
	}

	tokenGen := tokengenerator.NewJwtTokenGenerator(*secret, *issuer, *audience)
	tokenStr, expiryTime, err := tokenGen.GenerateToken(*userID, *expiry, tokengenerator.ExtraClaims{
		Username: *email,
		Email:    *email,
		Roles:    splitRoles(*roles),
	})
	if err != nil {
		slog.Error("Failed to generate token", "err", err)
		fmt.Fprintf(os.Stderr, "Error: Failed to generate token: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "compact":
		fmt.Println(tokenStr)
	case "full":
		fmt.Printf("Token: %s\nExpires: %s\n", tokenStr, expiryTime.Format(time.RFC3339))
	case "debug":
		claims, err := tokenGen.ParseToken(tokenStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to parse generated token: %v\n", err)
			os.Exit(1)
		}
		claimsJSON, _ := json.MarshalIndent(claims, "", "  ")
		fmt.Printf("=== Token ===\n%s\n\n=== Claims ===\n%s\n\nExpires: %s\n",
			tokenStr, claimsJSON, expiryTime.Format(time.RFC3339))
	default:
		fmt.Fprintf(os.Stderr, "Error: Unknown output format: %s\n", *outputFormat)
		os.Exit(1)
	}
}

func splitRoles(s string) []string {
	var out []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
