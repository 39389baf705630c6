// Command devtoken mints HS256 access tokens accepted by a server running
// with --jwt-secret, for local development and manual testing.
package main

import (
	"fmt"
	"log"
	"time"

	"github.com/alecthomas/kong"
	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
)

var cli = struct {
	Subject  string        `arg:"" help:"User id placed in the sub claim."`
	Role     string        `name:"role" enum:"DRIVER,PASSENGER" default:"PASSENGER"`
	Secret   string        `name:"jwt-secret" env:"JWT_SECRET" required:""`
	Issuer   string        `name:"jwt-issuer" env:"JWT_ISSUER" default:"carpool-dev"`
	Audience string        `name:"audience" env:"AUDIENCE" default:"carpool-api"`
	TTL      time.Duration `name:"ttl" default:"24h"`
}{}

func main() {
	_ = godotenv.Load()
	kong.Parse(&cli, kong.Description("Mint a development access token."))

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  cli.Subject,
		"role": cli.Role,
		"iss":  cli.Issuer,
		"aud":  cli.Audience,
		"iat":  now.Unix(),
		"exp":  now.Add(cli.TTL).Unix(),
	})
	signed, err := token.SignedString([]byte(cli.Secret))
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	fmt.Println(signed)
}
