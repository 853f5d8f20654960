// Package main runs the URL shortener HTTP service.
//
//	@title						Shortener API
//	@version					1.0
//	@description				Creates short codes for long URLs, redirects visitors and counts clicks.
//	@host						localhost:8080
//	@BasePath					/
//	@schemes					http https
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT bearer token, formatted as "Bearer {token}". The subject claim identifies the link owner.
package main

import (
	"time"

	"go.uber.org/fx"

	_ "github.com/sp3dr4/shortener/docs"
	appFX "github.com/sp3dr4/shortener/internal/fx"
)

// stopTimeout bounds the whole shutdown sequence: draining HTTP connections,
// then pending click increments, then closing the store.
const stopTimeout = time.Minute

func main() {
	fx.New(
		appFX.HTTPServerModules,
		fx.StopTimeout(stopTimeout),
	).Run()
}
