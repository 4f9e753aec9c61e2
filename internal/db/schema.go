package db

import (
	_ "embed"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

// NoRecords is the position of the placeholder row kept for a tab that
// listed no rows, so that the tab survives a round trip.
const NoRecords = -1
