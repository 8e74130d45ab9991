// Package database provides connection management for MySQL, PostgreSQL and
// SQLite through Bun: YAML and environment configuration, retrying connects,
// health checks, table migrations for registered models, query logging hooks
// and classification of driver errors.
package database
