package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/promptdeck/promptdeck/internal/domain"
	"github.com/promptdeck/promptdeck/internal/services"
)

// fakePromptSvc implements PromptService for handler tests.
type fakePromptSvc struct {
	listItems    []domain.Prompt
	listCategory string
	listErr      error

	created   *domain.Prompt
	createErr error

	updated   *domain.Prompt
	updateErr error

	deleteID  uint
	deleteErr error
}

func (f *fakePromptSvc) List(_ context.Context, category string) ([]domain.Prompt, error) {
	f.listCategory = category
	return f.listItems, f.listErr
}

func (f *fakePromptSvc) Create(_ context.Context, title, content, category string) (*domain.Prompt, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = &domain.Prompt{ID: 1, Title: title, Content: content, Category: category}
	return f.created, nil
}

func (f *fakePromptSvc) Update(_ context.Context, id uint, title, content, category string) (*domain.Prompt, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.updated = &domain.Prompt{ID: id, Title: title, Content: content, Category: category}
	return f.updated, nil
}

func (f *fakePromptSvc) Delete(_ context.Context, id uint) error {
	f.deleteID = id
	return f.deleteErr
}

func newPromptTestRouter(svc PromptService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(svc, nil, nil)
	r := gin.New()
	r.GET("/api/prompts", h.ListPrompts)
	r.POST("/api/prompts", h.CreatePrompt)
	r.PUT("/api/prompts/:id", h.UpdatePrompt)
	r.DELETE("/api/prompts/:id", h.DeletePrompt)
	return r
}

func jsonReq(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestListPrompts_PassesCategory(t *testing.T) {
	svc := &fakePromptSvc{listItems: []domain.Prompt{{ID: 1, Title: "a"}}}
	r := newPromptTestRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/prompts?category=Dev", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if svc.listCategory != "Dev" {
		t.Fatalf("category = %q", svc.listCategory)
	}
	var got []domain.Prompt
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil || len(got) != 1 {
		t.Fatalf("body = %s, err=%v", w.Body.String(), err)
	}
}

func TestCreatePrompt_Created(t *testing.T) {
	svc := &fakePromptSvc{}
	r := newPromptTestRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, jsonReq(http.MethodPost, "/api/prompts",
		`{"title":"T","content":"C","category":"Dev"}`))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d; body=%s", w.Code, w.Body.String())
	}
	if svc.created == nil || svc.created.Title != "T" {
		t.Fatalf("service not called correctly: %+v", svc.created)
	}
}

func TestCreatePrompt_ValidationTo400(t *testing.T) {
	svc := &fakePromptSvc{createErr: services.ErrTitleRequired}
	r := newPromptTestRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, jsonReq(http.MethodPost, "/api/prompts", `{"title":"","content":"C"}`))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	var resp ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Code != ErrCodeBadRequest {
		t.Fatalf("code = %q", resp.Code)
	}
}

func TestCreatePrompt_BadJSON(t *testing.T) {
	r := newPromptTestRouter(&fakePromptSvc{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, jsonReq(http.MethodPost, "/api/prompts", `{broken`))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestUpdatePrompt_BadID(t *testing.T) {
	r := newPromptTestRouter(&fakePromptSvc{})

	for _, id := range []string{"abc", "-1", "0"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, jsonReq(http.MethodPut, "/api/prompts/"+id, `{"title":"T","content":"C"}`))
		if w.Code != http.StatusBadRequest {
			t.Errorf("id %q: status = %d, want 400", id, w.Code)
		}
	}
}

func TestUpdatePrompt_NotFoundTo404(t *testing.T) {
	svc := &fakePromptSvc{updateErr: services.ErrPromptNotFound}
	r := newPromptTestRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, jsonReq(http.MethodPut, "/api/prompts/5", `{"title":"T","content":"C"}`))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	var resp ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Code != ErrCodeNotFound {
		t.Fatalf("code = %q", resp.Code)
	}
}

func TestUpdatePrompt_Success(t *testing.T) {
	svc := &fakePromptSvc{}
	r := newPromptTestRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, jsonReq(http.MethodPut, "/api/prompts/5", `{"title":"T2","content":"C2"}`))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if svc.updated == nil || svc.updated.ID != 5 || svc.updated.Title != "T2" {
		t.Fatalf("update args: %+v", svc.updated)
	}
}

func TestDeletePrompt(t *testing.T) {
	svc := &fakePromptSvc{}
	r := newPromptTestRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/prompts/3", nil))

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	if svc.deleteID != 3 {
		t.Fatalf("delete id = %d", svc.deleteID)
	}

	// Not found maps to 404.
	svc.deleteErr = services.ErrPromptNotFound
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/prompts/3", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestVerboseErrors_GateDetails(t *testing.T) {
	svc := &fakePromptSvc{listErr: errInternal}
	r := newPromptTestRouter(svc)

	SetVerboseErrors(false)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/prompts", nil))
	if strings.Contains(w.Body.String(), "boom") {
		t.Fatalf("details leaked without verbose mode: %s", w.Body.String())
	}

	SetVerboseErrors(true)
	t.Cleanup(func() { SetVerboseErrors(false) })
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/prompts", nil))
	if !strings.Contains(w.Body.String(), "boom") {
		t.Fatalf("details missing in verbose mode: %s", w.Body.String())
	}
}

var errInternal = errBoom{}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }
