// Command devtoken prints a signed access token for a local user id. Tokens
// are normally issued by the identity provider; this is for development only.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lealre/community-backend/internal/auth"
	"github.com/lealre/community-backend/internal/logx"
)

func main() {
	userId := flag.String("user", "", "user id to put in the token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()

	logger := logx.Logger()

	secret := os.Getenv("TOKEN_SECRET")
	if secret == "" {
		logger.Fatal().Msg("TOKEN_SECRET is required")
	}
	if *userId == "" {
		logger.Fatal().Msg("-user is required")
	}

	token, err := auth.MakeJWT(*userId, secret, *ttl)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to sign token")
	}
	fmt.Println(token)
}
