package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/cast"
	"gorm.io/gorm"

	apperrors "github.com/kbukum/persistkit/errors"
	"github.com/kbukum/persistkit/persistence"
	"github.com/kbukum/persistkit/server"
	"github.com/kbukum/persistkit/server/middleware"
	"github.com/kbukum/persistkit/util"
	"github.com/kbukum/persistkit/validation"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxPage         = 10000 // keeps (page-1)*size far from int overflow
)

// NoteHandler serves the /v1/notes resource. Every method runs on the
// request's persistence handle.
type NoteHandler struct{}

// List returns a page of notes ordered by creation time.
func (NoteHandler) List(c *gin.Context) {
	h, ok := handle(c)
	if !ok {
		return
	}
	page, size := pagination(c)

	db, err := h.Session()
	if err != nil {
		server.RespondWithError(c, persistence.FromDatabase(err, "note"))
		return
	}
	var total int64
	if err := db.Model(&Note{}).Count(&total).Error; err != nil {
		server.RespondWithError(c, persistence.FromDatabase(err, "note"))
		return
	}
	notes := make([]Note, 0, size)
	if err := db.Order("created_at").Limit(size).Offset((page - 1) * size).Find(&notes).Error; err != nil {
		server.RespondWithError(c, persistence.FromDatabase(err, "note"))
		return
	}
	server.RespondOKWithMeta(c, notes, &server.Meta{Page: page, PageSize: size, Total: int(total)})
}

// Get returns one note.
func (NoteHandler) Get(c *gin.Context) {
	h, ok := handle(c)
	if !ok {
		return
	}
	id, ok := noteID(c)
	if !ok {
		return
	}
	var note Note
	if err := h.Find(&note, "id = ?", id); err != nil {
		server.RespondWithError(c, notFound(err, id))
		return
	}
	server.RespondOK(c, note)
}

// Create stores a new note.
func (NoteHandler) Create(c *gin.Context) {
	h, ok := handle(c)
	if !ok {
		return
	}
	in, ok := bindInput(c)
	if !ok {
		return
	}
	note := Note{Title: in.Title, Body: in.Body}
	if err := h.Persist(&note); err != nil {
		server.RespondWithError(c, persistence.FromDatabase(err, "note"))
		return
	}
	server.RespondCreated(c, note)
}

// Update replaces a note's title and body inside one transaction.
func (NoteHandler) Update(c *gin.Context) {
	h, ok := handle(c)
	if !ok {
		return
	}
	id, ok := noteID(c)
	if !ok {
		return
	}
	in, ok := bindInput(c)
	if !ok {
		return
	}

	var note Note
	err := h.Transaction(func(*gorm.DB) error {
		if err := h.Find(&note, "id = ?", id); err != nil {
			return err
		}
		note.Title, note.Body = in.Title, in.Body
		return h.Merge(&note)
	})
	if err != nil {
		server.RespondWithError(c, notFound(err, id))
		return
	}
	server.RespondOK(c, note)
}

// Delete removes a note.
func (NoteHandler) Delete(c *gin.Context) {
	h, ok := handle(c)
	if !ok {
		return
	}
	id, ok := noteID(c)
	if !ok {
		return
	}
	if err := h.Remove(&Note{}, "id = ?", id); err != nil {
		server.RespondWithError(c, notFound(err, id))
		return
	}
	server.RespondNoContent(c)
}

func handle(c *gin.Context) (*persistence.Handle, bool) {
	h, ok := middleware.HandleFrom(c)
	if !ok {
		server.RespondWithError(c, apperrors.NotInitialized("persistence handle"))
	}
	return h, ok
}

func noteID(c *gin.Context) (uuid.UUID, bool) {
	id, err := util.ParseID("id", c.Param("id"))
	if err != nil {
		server.RespondWithError(c, err)
		return uuid.Nil, false
	}
	return id, true
}

func bindInput(c *gin.Context) (NoteInput, bool) {
	var in NoteInput
	if err := c.ShouldBindJSON(&in); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			server.RespondWithError(c, apperrors.PayloadTooLarge(tooLarge.Limit).WithCause(err))
			return in, false
		}
		server.RespondWithError(c, apperrors.InvalidInput("", "malformed JSON body").WithCause(err))
		return in, false
	}
	if err := validation.Validate(in); err != nil {
		server.RespondWithError(c, err)
		return in, false
	}
	return in, true
}

// notFound maps a database error to an AppError that carries the note id.
func notFound(err error, id uuid.UUID) error {
	appErr := persistence.FromDatabase(err, "note")
	if appErr.Code == apperrors.ErrCodeNotFound {
		return apperrors.NotFound("note", id.String()).WithCause(err)
	}
	return appErr
}

func pagination(c *gin.Context) (page, size int) {
	page = cast.ToInt(c.DefaultQuery("page", "1"))
	size = cast.ToInt(c.DefaultQuery("page_size", cast.ToString(defaultPageSize)))
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}
