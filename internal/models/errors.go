package models

import "errors"

var (
	// ErrCardNotFound means the card data source affirmatively has no such card.
	ErrCardNotFound = errors.New("card not found")
	// ErrLookupFailed means the card data source could not be reached or
	// returned an error. It never means the card does not exist.
	ErrLookupFailed = errors.New("card lookup failed")

	ErrDeckNotFound = errors.New("deck not found")
)
