// Package db provides the embedded database schema and seed data.
package db

import _ "embed"

// Schema contains the DDL statements for all application tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// Products is the JSON product catalog served by the storefront.
//
//go:embed seed/products.json
var Products []byte

// Promos is the default set of promo codes.
//
//go:embed seed/promos.json
var Promos []byte
