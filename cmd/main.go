package main

import (
	"github.com/mgmassand/life-curriculum-assistant/app"
)

// @title           Life Curriculum Assistant API
// @version         1.0
// @description     Authentication and session core of the Life Curriculum Assistant.

// @host      localhost:8080
// @BasePath  /
// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name access_token
func main() {
	app.Run()
}
