// Package main печатает токен оператора для служебного HTTP API бота.
//
// Использование:
//
//	OPERATOR_SECRET=... opstoken -name dispatcher
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/mmeshcher/lavita-bot/internal/middleware"
)

func main() {
	name := flag.String("name", "operator", "operator name embedded in the token")
	flag.Parse()

	_ = godotenv.Load()

	secret := os.Getenv("OPERATOR_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "OPERATOR_SECRET is not set")
		os.Exit(1)
	}

	fmt.Println(middleware.NewOperatorAuth(secret).Sign(*name))
}
