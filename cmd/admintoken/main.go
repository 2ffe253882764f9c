// Command admintoken prints a bearer token for the admin giveaway endpoints.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"gtm-backend/internal/common/auth"
	"gtm-backend/internal/common/config"
)

func main() {
	subject := flag.String("sub", "operator", "token subject")
	ttl := flag.Duration("ttl", 0, "token lifetime (default ADMIN_TOKEN_TTL)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	if *ttl <= 0 {
		*ttl = cfg.Admin.TokenTTL
	}

	token, err := auth.NewSigner(cfg.Admin.JWTSecret, *ttl).Generate(*subject, auth.RoleAdmin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
