// Package criteria builds typed WHERE clauses, orderings and bulk statements
// for Bun models. A Root resolves field names against the model's table, a
// Builder turns paths and values into Predicates, and Query, Delete and Update
// carry them to Bun query builders.
package criteria
