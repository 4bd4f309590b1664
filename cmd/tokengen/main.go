// Command tokengen mints a bearer token for a given owner id. Token issuance
// belongs to the identity service; this tool exists for local development
// and API exploration against a dev server. The signing secret comes from
// the usual configuration layers, so "-s" works the same as for the server.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/dmitrijs2005/notescan/internal/flagx"
	"github.com/dmitrijs2005/notescan/internal/server/auth"
	"github.com/dmitrijs2005/notescan/internal/server/config"
)

func main() {

	_ = godotenv.Load()

	cfg := config.LoadConfig()

	var ownerID string
	args := flagx.FilterArgs(os.Args[1:], []string{"-owner"})
	fs := flag.NewFlagSet("tokengen", flag.ContinueOnError)
	fs.StringVar(&ownerID, "owner", "", "owner id to embed in the token")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("%v", err)
	}

	if ownerID == "" {
		log.Fatal("-owner is required")
	}

	token, err := auth.GenerateToken(ownerID, []byte(cfg.SecretKey), cfg.AccessTokenValidityDuration)
	if err != nil {
		log.Fatalf("%v", err)
	}

	fmt.Println(token)
}
