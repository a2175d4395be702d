// dnscheck verifies Cloudflare credentials and prints the visible zones.
// Useful when setting up a new deployment before pointing the bot at it.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/spacatty/subzone/internal/dns"
)

func main() {
	_ = godotenv.Load()

	token := os.Getenv("CLOUDFLARE_API_TOKEN")
	if len(os.Args) > 1 {
		token = os.Args[1]
	}
	if token == "" {
		fmt.Println("Usage: dnscheck [api-token]")
		fmt.Println("")
		fmt.Println("Reads CLOUDFLARE_API_TOKEN from the environment (or .env) when no argument is given.")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	provider := dns.NewCloudflare(token)

	if err := provider.VerifyToken(ctx); err != nil {
		fmt.Printf("❌ Token verification failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✅ Token is valid")

	zones, err := provider.ListZones(ctx)
	if err != nil {
		fmt.Printf("❌ Failed to list zones: %v\n", err)
		os.Exit(1)
	}

	if len(zones) == 0 {
		fmt.Println("No zones visible to this token.")
		return
	}

	fmt.Printf("Zones (%d):\n", len(zones))
	for _, z := range zones {
		fmt.Printf("  %s  %s\n", z.ID, z.Name)
	}
}
