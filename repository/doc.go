// Package repository provides a generic repository over a persistence
// context for CRUD operations, attribute and criteria searches, pagination
// and bulk statements, with blank-string sanitization of entities before
// they are written.
package repository
