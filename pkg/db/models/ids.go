package models

import "github.com/google/uuid"

// assignID gives rows a client-side uuid so inserts behave the same on postgres and sqlite.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
