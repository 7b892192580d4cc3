package httpnode

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"xdao.co/streams-tangle/cidutil"
	"xdao.co/streams-tangle/ledger"
	"xdao.co/streams-tangle/node"
)

// maxRequestBytes limits submitted message bodies (hex doubles the payload).
const maxRequestBytes = 4 * ledger.MaxMessageBytes

// Handler serves a node.Node over the REST API that Client speaks.
type Handler struct {
	node node.Node
	log  *zap.Logger
	mux  *http.ServeMux
}

// NewHandler returns an http.Handler exposing n. A nil logger disables logging.
func NewHandler(n node.Node, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{node: n, log: log, mux: http.NewServeMux()}
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /api/v1/info", h.handleInfo)
	h.mux.HandleFunc("GET /api/v1/tips", h.handleTips)
	h.mux.HandleFunc("POST /api/v1/messages", h.handleSubmit)
	h.mux.HandleFunc("GET /api/v1/messages", h.handleLookup)
	h.mux.HandleFunc("GET /api/v1/messages/{id}", h.handleFetch)
	return h
}

// RequestIDHeader correlates client requests with handler logs. The handler
// echoes it, generating one when the client sent none.
const RequestIDHeader = "X-Request-Id"

type requestIDKey struct{}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, id)
	h.mux.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey{}).(string)
	return id
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	info, err := h.node.Info(r.Context())
	if err != nil || !info.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.node.Info(r.Context())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, infoToJSON(info))
}

func (h *Handler) handleTips(w http.ResponseWriter, r *http.Request) {
	tips, err := h.node.Tips(r.Context())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, tipsJSON{TipMessageIDs: idsToJSON(tips[:])})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var j messageJSON
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&j); err != nil {
		h.writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	msg, err := messageFromJSON(j)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, codeRejected, err.Error())
		return
	}
	id, err := h.node.Submit(r.Context(), msg)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.log.Debug("message attached", zap.String("id", cidutil.Hex(id)), zap.String("request_id", requestID(r)))
	h.writeData(w, http.StatusCreated, submitJSON{MessageID: cidutil.Hex(id)})
}

func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("index")
	index, err := hex.DecodeString(raw)
	if err != nil || len(index) == 0 {
		h.writeError(w, http.StatusBadRequest, codeBadRequest, "index must be non-empty hex")
		return
	}
	ids, err := h.node.Lookup(r.Context(), index)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, indexJSON{Index: raw, Count: len(ids), MessageIDs: idsToJSON(ids)})
}

func (h *Handler) handleFetch(w http.ResponseWriter, r *http.Request) {
	id, err := cidutil.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
		return
	}
	msg, err := h.node.Fetch(r.Context(), id)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, messageToJSON(msg))
}

func (h *Handler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, node.ErrNotFound):
		h.writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, node.ErrInvalidID), errors.Is(err, ledger.ErrInvalidID):
		h.writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, node.ErrRejected):
		h.writeError(w, http.StatusBadRequest, codeRejected, err.Error())
	case errors.Is(err, node.ErrIDMismatch), errors.Is(err, ledger.ErrIDMismatch):
		h.writeError(w, http.StatusInternalServerError, codeIDMismatch, err.Error())
	case errors.Is(err, node.ErrUnavailable):
		h.writeError(w, http.StatusServiceUnavailable, codeUnavailable, err.Error())
	default:
		h.log.Error("node request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestID(r)),
			zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, codeInternal, err.Error())
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, msg string) {
	h.write(w, status, envelope{Error: &apiError{Code: code, Message: msg}})
}

func (h *Handler) writeData(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, codeInternal, err.Error())
		return
	}
	h.write(w, status, envelope{Data: b})
}

func (h *Handler) write(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		h.log.Debug("write reply failed", zap.Error(err))
	}
}
