// Package migrations embebe los scripts goose del esquema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
