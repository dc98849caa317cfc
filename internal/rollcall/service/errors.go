package service

import "errors"

var (
	ErrNoStorage   = errors.New("stored reconciliation is not configured")
	ErrEmptyImport = errors.New("no punches to import")
	ErrEmptyRoster = errors.New("roster has no entries")

	// ErrMatchMismatch means stored identities were read with a different
	// match mode than the one requested.
	ErrMatchMismatch = errors.New("stored data was imported with a different match mode")
)
