// Package db provides the embedded schema for the PostgreSQL snapshot store.
package db

import _ "embed"

// Schema contains the DDL statements for all snapshot tables.
//
//go:embed migrations/001_schema.sql
var Schema string
