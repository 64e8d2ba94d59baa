package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"whatsapp-intake/backend/pkg/jwt"

	"github.com/joho/godotenv"
)

func main() {
	consumerPtr := flag.String("consumer", "", "Name of the API consumer the token is issued to")
	scopesPtr := flag.String("scopes", "messages:read,messages:write", "Comma separated scopes")
	expiryPtr := flag.Duration("expiry", 30*24*time.Hour, "Token lifetime")
	helpPtr := flag.Bool("help", false, "Show usage information")

	flag.Parse()

	if *helpPtr || *consumerPtr == "" {
		fmt.Println("API token tool usage:")
		fmt.Println("  -consumer NAME   Consumer the token is issued to (required)")
		fmt.Println("  -scopes LIST     Comma separated scopes (default messages:read,messages:write)")
		fmt.Println("  -expiry DUR      Token lifetime (default 720h)")
		fmt.Println("The signing key is read from API_JWT_SECRET (.env is honoured).")
		os.Exit(0)
	}

	_ = godotenv.Load()

	svc, err := jwt.NewService(os.Getenv("API_JWT_SECRET"), *expiryPtr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	var scopes []jwt.Scope
	for _, s := range strings.Split(*scopesPtr, ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, jwt.Scope(s))
		}
	}

	token, err := svc.GenerateToken(*consumerPtr, scopes...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
