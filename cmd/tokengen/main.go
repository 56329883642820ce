// Command tokengen mints credentials for the placement API: HS256
// bearer tokens signed with JWT_SECRET and bcrypt hashes for API_KEY_HASH.
//
//	tokengen token -sub ops-console -role OPERATOR -ttl 24h
//	tokengen apikey -key <plain key>
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/facility-placement/internal/utils"
)

func main() {
	_ = godotenv.Load(".env")
	if len(os.Args) < 2 {
		usage()
	}
	var err error
	switch os.Args[1] {
	case "token":
		err = runToken(os.Args[2:])
	case "apikey":
		err = runAPIKey(os.Args[2:])
	default:
		usage()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "tokengen:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: tokengen token -sub NAME -role OPERATOR|VIEWER [-ttl 24h]")
	fmt.Fprintln(os.Stderr, "       tokengen apikey -key KEY [-cost 12]")
	os.Exit(2)
}

func runToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	sub := fs.String("sub", "", "token subject")
	role := fs.String("role", utils.RoleViewer, "OPERATOR or VIEWER")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	_ = fs.Parse(args)

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return fmt.Errorf("JWT_SECRET is not set")
	}
	if *sub == "" {
		return fmt.Errorf("-sub is required")
	}
	r := strings.ToUpper(*role)
	if r != utils.RoleOperator && r != utils.RoleViewer {
		return fmt.Errorf("unknown role %q", *role)
	}
	tok, err := utils.NewAccessToken(secret, *sub, r, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(tok.Token)
	fmt.Fprintf(os.Stderr, "expires %s\n", tok.Exp.Format(time.RFC3339))
	return nil
}

func runAPIKey(args []string) error {
	fs := flag.NewFlagSet("apikey", flag.ExitOnError)
	key := fs.String("key", "", "plain API key to hash")
	cost := fs.Int("cost", bcrypt.DefaultCost+2, "bcrypt cost")
	_ = fs.Parse(args)

	if *key == "" {
		return fmt.Errorf("-key is required")
	}
	hash, err := utils.HashAPIKey(*key, *cost)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}
