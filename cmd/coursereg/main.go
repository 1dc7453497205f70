package main

import (
	"os"

	_ "github.com/coursereg/registration-system/docs"
)

// @title Course Registration API
// @version 1.0
// @description Course catalog, enrollment ledger and administration for a university registration system.

// @host localhost:8080
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token for authorization

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
