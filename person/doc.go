// Package person holds the Person entity and its repository.
package person
