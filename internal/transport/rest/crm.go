package rest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi"

	"github.com/winstonacademy/crm-gateway/internal/session"
	"github.com/winstonacademy/crm-gateway/internal/transport"
	"github.com/winstonacademy/crm-gateway/pkg/logger"
)

// ContentClient is the slice of the Strapi client the CRM proxy needs.
type ContentClient interface {
	ListDocuments(ctx context.Context, bearer, collection string, query url.Values) (json.RawMessage, error)
	GetDocument(ctx context.Context, bearer, collection, id string) (json.RawMessage, error)
	CreateDocument(ctx context.Context, bearer, collection string, record json.RawMessage) (json.RawMessage, error)
	UpdateDocument(ctx context.Context, bearer, collection, id string, record json.RawMessage) (json.RawMessage, error)
	DeleteDocument(ctx context.Context, bearer, collection, id string) (json.RawMessage, error)
}

// CRMHandler proxies the CRM collections to Strapi under the session's
// token. It forwards raw collection JSON and renders nothing.
type CRMHandler struct {
	*transport.BaseHandler
	Content ContentClient
	Manager *session.Manager
}

func NewCRMHandler(content ContentClient, manager *session.Manager) *CRMHandler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &CRMHandler{
		BaseHandler: transport.NewBaseHandler(lg),
		Content:     content,
		Manager:     manager,
	}
}

func (h *CRMHandler) List(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bearer, err := h.Manager.ValidToken()
		if err != nil {
			h.WriteAppError(w, err)
			return
		}

		payload, err := h.Content.ListDocuments(r.Context(), bearer, collection, r.URL.Query())
		if err != nil {
			h.WriteAppError(w, err)
			return
		}
		h.WriteRaw(w, http.StatusOK, payload)
	}
}

func (h *CRMHandler) Get(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bearer, err := h.Manager.ValidToken()
		if err != nil {
			h.WriteAppError(w, err)
			return
		}

		payload, err := h.Content.GetDocument(r.Context(), bearer, collection, chi.URLParam(r, "id"))
		if err != nil {
			h.WriteAppError(w, err)
			return
		}
		h.WriteRaw(w, http.StatusOK, payload)
	}
}

func (h *CRMHandler) Create(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bearer, err := h.Manager.ValidToken()
		if err != nil {
			h.WriteAppError(w, err)
			return
		}

		record, err := io.ReadAll(r.Body)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		payload, err := h.Content.CreateDocument(r.Context(), bearer, collection, record)
		if err != nil {
			h.WriteAppError(w, err)
			return
		}
		h.WriteRaw(w, http.StatusCreated, payload)
	}
}

func (h *CRMHandler) Update(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bearer, err := h.Manager.ValidToken()
		if err != nil {
			h.WriteAppError(w, err)
			return
		}

		record, err := io.ReadAll(r.Body)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		payload, err := h.Content.UpdateDocument(r.Context(), bearer, collection, chi.URLParam(r, "id"), record)
		if err != nil {
			h.WriteAppError(w, err)
			return
		}
		h.WriteRaw(w, http.StatusOK, payload)
	}
}

func (h *CRMHandler) Delete(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bearer, err := h.Manager.ValidToken()
		if err != nil {
			h.WriteAppError(w, err)
			return
		}

		payload, err := h.Content.DeleteDocument(r.Context(), bearer, collection, chi.URLParam(r, "id"))
		if err != nil {
			h.WriteAppError(w, err)
			return
		}
		h.WriteRaw(w, http.StatusOK, payload)
	}
}
