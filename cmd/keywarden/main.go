package main

import (
	"encoding/base64"
	"flag"
	"fmt"
	"log"

	"github.com/keywarden/keywarden/internal/auth/app"
	"github.com/keywarden/keywarden/pkg/cryptox"
)

func main() {
	keygen := flag.Bool("keygen", false,
		"print a freshly generated signing key for KEYWARDEN_SIGNING_KEY and exit")
	flag.Parse()

	if *keygen {
		key, err := cryptox.GenerateKey(cryptox.KeySize256)
		if err != nil {
			log.Fatalf("failed to generate signing key: %v", err)
		}
		fmt.Println(base64.RawURLEncoding.EncodeToString(key))
		return
	}

	cfg := app.LoadConfig()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
