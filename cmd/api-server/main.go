package main

import (
	"log"
	"os"

	"bizsite-api/internal/build"
	"bizsite-api/internal/cli"
)

// @title Bizsite API
// @description Сесії та токени: login, refresh, logout, керування користувачами.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	app := cli.NewApp()
	app.Name = "bizsite-api"
	app.Version = build.Version
	app.Usage = "Auth API server with configuration management"

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
