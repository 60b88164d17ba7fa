package main

import (
	_ "github.com/joho/godotenv/autoload" // Autoload .env file.

	"github.com/regaloya/regaloya-api/cmd/app"
)

// @termsOfService  http://swagger.io/terms/
// @contact.name   RegaloYa API Support
// @contact.email  soporte@regaloya.app
//
// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html
//
// @securityDefinitions.apikey SessionCookie
// @in cookie
// @name regaloya_session
// @description Session cookie set by /auth/login and /auth/register
//
// @externalDocs.description  OpenAPI
// @externalDocs.url          https://swagger.io/resources/open-api/
func main() {
	if err := app.Start(); err != nil {
		panic(err)
	}
}
