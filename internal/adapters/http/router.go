package httpadapter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/qazdocs/docsign/internal/core/domain"
	"github.com/qazdocs/docsign/internal/core/ports"
)

// maxUploadBytes caps multipart uploads at 20 MiB.
const maxUploadBytes = 20 << 20

// DocumentService is the slice of the lifecycle use case the router needs.
type DocumentService interface {
	Create(ctx context.Context, input ports.CreateDocumentInput) (*domain.Document, error)
	Cancel(ctx context.Context, documentID, requesterID string) error
	Content(ctx context.Context, documentID string) ([]byte, error)
}

type Router struct {
	docs      DocumentService
	submitter ports.SignatureSubmitter
	lister    ports.DocumentLister
	auth      ports.Authenticator
	users     ports.UserDirectory

	metricsHandler http.Handler
	recorder       SubmissionRecorder
	logger         *slog.Logger

	rateLimitRPS     int
	rateLimitBurst   int
	maxInFlight      int
	backpressureWait time.Duration
}

// SubmissionRecorder receives business-level counters from the handlers.
type SubmissionRecorder interface {
	RecordSubmission(service, outcome string, newSignatures int)
	RecordDocumentCreated(service string)
}

type nopRecorder struct{}

func (nopRecorder) RecordSubmission(string, string, int) {}
func (nopRecorder) RecordDocumentCreated(string)         {}

type RouterOption func(*Router)

func WithMetricsHandler(h http.Handler) RouterOption {
	return func(rt *Router) { rt.metricsHandler = h }
}

func WithSubmissionRecorder(r SubmissionRecorder) RouterOption {
	return func(rt *Router) {
		if r != nil {
			rt.recorder = r
		}
	}
}

func WithRateLimit(rps, burst int) RouterOption {
	return func(rt *Router) {
		rt.rateLimitRPS = rps
		rt.rateLimitBurst = burst
	}
}

func WithBackpressure(maxInFlight int, wait time.Duration) RouterOption {
	return func(rt *Router) {
		rt.maxInFlight = maxInFlight
		rt.backpressureWait = wait
	}
}

func NewRouter(
	docs DocumentService,
	submitter ports.SignatureSubmitter,
	lister ports.DocumentLister,
	auth ports.Authenticator,
	users ports.UserDirectory,
	logger *slog.Logger,
	opts ...RouterOption,
) *Router {
	rt := &Router{
		docs:      docs,
		submitter: submitter,
		lister:    lister,
		auth:      auth,
		users:     users,
		recorder:  nopRecorder{},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	if rt.metricsHandler != nil {
		mux.Handle("/metrics", rt.metricsHandler)
	}

	mux.HandleFunc("/api/v1/auth/nonce", rt.authNonce)
	mux.HandleFunc("/api/v1/auth/check", rt.authCheck)

	mux.HandleFunc("/api/v1/users/me", rt.currentUser)
	mux.HandleFunc("/api/v1/users/email", rt.updateEmail)
	mux.HandleFunc("/api/v1/users/logout", rt.logout)

	mux.HandleFunc("/api/v1/documents", rt.createDocument)
	mux.HandleFunc("/api/v1/documents/pending", rt.listPending)
	mux.HandleFunc("/api/v1/documents/signed", rt.listSigned)
	mux.HandleFunc("/api/v1/documents/partners", rt.searchPartners)
	mux.HandleFunc("/api/v1/documents/", rt.documentAction)

	mux.HandleFunc("/api/v1/sign", rt.submitSignature)

	var handler http.Handler = mux
	if rt.maxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.maxInFlight, rt.backpressureWait)
	}
	if rt.rateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	}
	return requestIDMiddleware(rt.accessLog(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) authNonce(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	nonce, err := rt.auth.Nonce(r.Context())
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"nonce": nonce})
}

func (rt *Router) authCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Nonce     string `json:"nonce"`
		Signature string `json:"signature"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Nonce) == "" || strings.TrimSpace(req.Signature) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "nonce and signature are required"})
		return
	}

	user, err := rt.auth.VerifySignature(r.Context(), req.Nonce, req.Signature)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	setIdentityCookie(w, user.ID)
	writeJSON(w, http.StatusOK, user)
}

func (rt *Router) currentUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	userID, ok := rt.requireUser(w, r)
	if !ok {
		return
	}
	user, err := rt.users.GetByID(r.Context(), userID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (rt *Router) updateEmail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	userID, ok := rt.requireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "valid email is required"})
		return
	}

	if err := rt.users.UpdateEmail(r.Context(), userID, email); err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"email": email})
}

func (rt *Router) logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	clearIdentityCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (rt *Router) createDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	userID, ok := rt.requireUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read upload"})
		return
	}

	doc, err := rt.docs.Create(r.Context(), ports.CreateDocumentInput{
		OwnerID:    userID,
		Title:      strings.TrimSpace(r.FormValue("title")),
		Filename:   fileHeader.Filename,
		Content:    content,
		PartnerIDs: splitPartnerIDs(r.Form["partners"]),
	})
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	rt.recorder.RecordDocumentCreated("api")
	writeJSON(w, http.StatusCreated, doc)
}

func (rt *Router) listPending(w http.ResponseWriter, r *http.Request) {
	rt.listDocuments(w, r, rt.lister.ListPending)
}

func (rt *Router) listSigned(w http.ResponseWriter, r *http.Request) {
	rt.listDocuments(w, r, rt.lister.ListSigned)
}

func (rt *Router) listDocuments(
	w http.ResponseWriter,
	r *http.Request,
	list func(ctx context.Context, userID string) ([]domain.DocumentSummary, error),
) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	userID, ok := rt.requireUser(w, r)
	if !ok {
		return
	}
	docs, err := list(r.Context(), userID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if docs == nil {
		docs = []domain.DocumentSummary{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (rt *Router) searchPartners(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	userID, ok := rt.requireUser(w, r)
	if !ok {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query parameter 'q' is required"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	users, err := rt.users.SearchPartners(r.Context(), query, limit, userID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if users == nil {
		users = []domain.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (rt *Router) documentAction(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/documents/")
	id, action, found := strings.Cut(rest, "/")
	if !found || id == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	switch action {
	case "cancel":
		rt.cancelDocument(w, r, id)
	case "content":
		rt.documentContent(w, r, id)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

func (rt *Router) cancelDocument(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	userID, ok := rt.requireUser(w, r)
	if !ok {
		return
	}
	if err := rt.docs.Cancel(r.Context(), id, userID); err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (rt *Router) documentContent(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if _, ok := rt.requireUser(w, r); !ok {
		return
	}
	content, err := rt.docs.Content(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"document_id": id,
		"file_base64": base64.StdEncoding.EncodeToString(content),
	})
}

func (rt *Router) submitSignature(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if _, ok := rt.requireUser(w, r); !ok {
		return
	}

	var req struct {
		DocumentID string `json:"document_id"`
		Signature  string `json:"signature"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.DocumentID) == "" || strings.TrimSpace(req.Signature) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document_id and signature are required"})
		return
	}

	result, err := rt.submitter.Submit(r.Context(), ports.SubmitSignatureInput{
		DocumentID: req.DocumentID,
		Signature:  req.Signature,
	})
	if err != nil {
		rt.recorder.RecordSubmission("api", "error", -1)
		rt.writeError(w, r, err)
		return
	}

	outcome := "committed"
	if result.NewSignatures == 0 {
		outcome = "no_new_signatures"
	}
	rt.recorder.RecordSubmission("api", outcome, result.NewSignatures)
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= 500 {
		rt.logger.Error("request_failed",
			slog.String("request_id", requestIDFromContext(r.Context())),
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func splitPartnerIDs(values []string) []string {
	var ids []string
	for _, v := range values {
		for _, id := range strings.Split(v, ",") {
			id = strings.TrimSpace(id)
			if id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
