package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/persistkit/cmd/persistd/api"
	"github.com/kbukum/persistkit/cmd/persistd/migrations"
	apperrors "github.com/kbukum/persistkit/errors"
	"github.com/kbukum/persistkit/logger"
	"github.com/kbukum/persistkit/persistence"
	"github.com/kbukum/persistkit/persistence/migration"
	"github.com/kbukum/persistkit/persistence/testutil"
	"github.com/kbukum/persistkit/server/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const bodyLimit = 1024

type fixture struct {
	mgr    *persistence.Manager
	router *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mgr := testutil.NewManager(t, "notes")
	f, err := mgr.Initialize(context.Background(), "notes", nil)
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { mgr.Teardown(context.Background()) })

	m, err := migration.New(f, migrations.FS, ".", logger.NewNop())
	if err != nil {
		t.Fatalf("migration.New failed: %v", err)
	}
	if err := m.Up(); err != nil {
		t.Fatalf("migrate up failed: %v", err)
	}

	r := gin.New()
	r.Use(middleware.BodySizeLimit(bodyLimit))
	api.Register(r, mgr)
	return &fixture{mgr: mgr, router: r}
}

func (fx *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	fx.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("invalid JSON %q: %v", rr.Body.String(), err)
	}
	return v
}

type noteBody struct {
	Data api.Note `json:"data"`
}

type listBody struct {
	Data []api.Note `json:"data"`
	Meta struct {
		Page     int `json:"page"`
		PageSize int `json:"pageSize"`
		Total    int `json:"total"`
	} `json:"meta"`
}

func expectError(t *testing.T, rr *httptest.ResponseRecorder, status int, code apperrors.ErrorCode) apperrors.ErrorBody {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("status = %d, want %d (%s)", rr.Code, status, rr.Body.String())
	}
	body := decode[apperrors.ErrorResponse](t, rr)
	if body.Error.Code != code {
		t.Errorf("code = %s, want %s", body.Error.Code, code)
	}
	return body.Error
}

func TestNoteLifecycle(t *testing.T) {
	fx := newFixture(t)

	rr := fx.do(t, "POST", "/v1/notes", `{"title":"first","body":"hello"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rr.Code, rr.Body.String())
	}
	created := decode[noteBody](t, rr).Data
	if created.ID.String() == "" || created.Title != "first" {
		t.Fatalf("unexpected note: %+v", created)
	}
	path := "/v1/notes/" + created.ID.String()

	rr = fx.do(t, "GET", path, "")
	if rr.Code != http.StatusOK || decode[noteBody](t, rr).Data.Body != "hello" {
		t.Fatalf("get: %d %s", rr.Code, rr.Body.String())
	}

	rr = fx.do(t, "PUT", path, `{"title":"first","body":"edited"}`)
	if rr.Code != http.StatusOK || decode[noteBody](t, rr).Data.Body != "edited" {
		t.Fatalf("update: %d %s", rr.Code, rr.Body.String())
	}

	if rr = fx.do(t, "DELETE", path, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete: %d %s", rr.Code, rr.Body.String())
	}

	body := expectError(t, fx.do(t, "GET", path, ""), http.StatusNotFound, apperrors.ErrCodeNotFound)
	if body.Details["id"] != created.ID.String() {
		t.Errorf("details = %v", body.Details)
	}
	expectError(t, fx.do(t, "DELETE", path, ""), http.StatusNotFound, apperrors.ErrCodeNotFound)
}

func TestNoteList(t *testing.T) {
	fx := newFixture(t)
	for _, title := range []string{"a", "b", "c"} {
		if rr := fx.do(t, "POST", "/v1/notes", `{"title":"`+title+`"}`); rr.Code != http.StatusCreated {
			t.Fatalf("create %s: %d", title, rr.Code)
		}
	}

	rr := fx.do(t, "GET", "/v1/notes?page=2&page_size=2", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list: %d %s", rr.Code, rr.Body.String())
	}
	list := decode[listBody](t, rr)
	if list.Meta.Total != 3 || list.Meta.Page != 2 || list.Meta.PageSize != 2 {
		t.Errorf("meta = %+v", list.Meta)
	}
	if len(list.Data) != 1 {
		t.Errorf("expected 1 note on page 2, got %d", len(list.Data))
	}

	list = decode[listBody](t, fx.do(t, "GET", "/v1/notes?page=zero&page_size=1000", ""))
	if list.Meta.Page != 1 || list.Meta.PageSize != 100 || len(list.Data) != 3 {
		t.Errorf("invalid paging should fall back to defaults: %+v", list.Meta)
	}
}

func TestNoteListPageIsCapped(t *testing.T) {
	fx := newFixture(t)
	if rr := fx.do(t, "POST", "/v1/notes", `{"title":"only"}`); rr.Code != http.StatusCreated {
		t.Fatalf("create: %d", rr.Code)
	}

	rr := fx.do(t, "GET", "/v1/notes?page=9223372036854775807&page_size=100", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list: %d %s", rr.Code, rr.Body.String())
	}
	list := decode[listBody](t, rr)
	if list.Meta.Page != 10000 || list.Meta.Total != 1 || len(list.Data) != 0 {
		t.Errorf("huge page should be capped: %+v, %d notes", list.Meta, len(list.Data))
	}
}

func TestNoteCreateBodyTooLarge(t *testing.T) {
	fx := newFixture(t)
	big := `{"title":"big","body":"` + strings.Repeat("x", 2*bodyLimit) + `"}`

	// Declared length is rejected before the handler runs.
	expectError(t, fx.do(t, "POST", "/v1/notes", big), http.StatusRequestEntityTooLarge, apperrors.ErrCodeTooLarge)

	// Undeclared length fails while the handler decodes the body.
	req := httptest.NewRequest(http.MethodPost, "/v1/notes", io.MultiReader(strings.NewReader(big)))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	fx.router.ServeHTTP(rr, req)
	expectError(t, rr, http.StatusRequestEntityTooLarge, apperrors.ErrCodeTooLarge)

	list := decode[listBody](t, fx.do(t, "GET", "/v1/notes", ""))
	if list.Meta.Total != 0 {
		t.Errorf("oversized notes must not be stored, total = %d", list.Meta.Total)
	}
}

func TestNoteErrors(t *testing.T) {
	fx := newFixture(t)
	if rr := fx.do(t, "POST", "/v1/notes", `{"title":"dup"}`); rr.Code != http.StatusCreated {
		t.Fatalf("create: %d", rr.Code)
	}

	expectError(t, fx.do(t, "POST", "/v1/notes", `{"title":"dup"}`), http.StatusConflict, apperrors.ErrCodeAlreadyExists)
	expectError(t, fx.do(t, "POST", "/v1/notes", `{"body":"no title"}`), http.StatusBadRequest, apperrors.ErrCodeInvalidInput)
	expectError(t, fx.do(t, "POST", "/v1/notes", `{"title":`), http.StatusBadRequest, apperrors.ErrCodeInvalidInput)
	expectError(t, fx.do(t, "GET", "/v1/notes/not-a-uuid", ""), http.StatusBadRequest, apperrors.ErrCodeInvalidInput)
	expectError(t, fx.do(t, "PUT", "/v1/notes/00000000-0000-0000-0000-000000000001", `{"title":"x"}`), http.StatusNotFound, apperrors.ErrCodeNotFound)
}

func TestFactoryStatus(t *testing.T) {
	fx := newFixture(t)

	rr := fx.do(t, "GET", "/v1/factory", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: %d %s", rr.Code, rr.Body.String())
	}
	open := decode[struct {
		Data api.FactoryStatus `json:"data"`
	}](t, rr).Data
	if open.State != "open" || open.Stats == nil || open.Stats.Unit != "notes" || !open.Stats.Open {
		t.Errorf("unexpected status: %+v", open)
	}

	fx.mgr.Teardown(context.Background())

	rr = fx.do(t, "GET", "/v1/factory", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status after teardown: %d", rr.Code)
	}
	closed := decode[struct {
		Data api.FactoryStatus `json:"data"`
	}](t, rr).Data
	if closed.State != "closed" || closed.Stats == nil || closed.Stats.Open {
		t.Errorf("unexpected status after teardown: %+v", closed)
	}

	expectError(t, fx.do(t, "GET", "/v1/notes", ""), http.StatusServiceUnavailable, apperrors.ErrCodeFactoryClosed)
}

func TestFactoryStatusUninitialized(t *testing.T) {
	r := gin.New()
	api.Register(r, testutil.NewManager(t, "notes"))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/v1/factory", http.NoBody))
	if rr.Code != http.StatusServiceUnavailable || !strings.Contains(rr.Body.String(), `"uninitialized"`) {
		t.Errorf("got %d %s", rr.Code, rr.Body.String())
	}
}
