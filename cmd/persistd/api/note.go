package api

import "github.com/kbukum/persistkit/persistence"

// Note is the entity persistd stores.
type Note struct {
	persistence.BaseModel
	Title string `gorm:"size:200;not null;uniqueIndex:idx_notes_title" json:"title"`
	Body  string `json:"body"`
}

// NoteInput is the request body for creating or replacing a note.
type NoteInput struct {
	Title string `json:"title" validate:"required,max=200"`
	Body  string `json:"body" validate:"max=10000"`
}

// Models lists the entities registered for auto-migration.
func Models() []interface{} {
	return []interface{}{&Note{}}
}
