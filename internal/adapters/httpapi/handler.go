package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/officeapi/internal/core/domain"
	"github.com/atvirokodosprendimai/officeapi/internal/core/usecase"
	"github.com/atvirokodosprendimai/officeapi/internal/core/validation"
	"github.com/go-chi/chi/v5"
)

type ctxKey string

const (
	timeFormat             = "2006-01-02T15:04:05.999999999Z07:00"
	tenantIDCtxKey  ctxKey = "tenant_id"
	apiActorCtxKey  ctxKey = "api_actor"
	maxJSONBodySize        = 1 << 20
)

type Handler struct {
	officeService *usecase.OfficeService
	auditService  *usecase.AuditService
	authService   *usecase.AuthService
	metrics       *Metrics
}

func NewHandler(officeService *usecase.OfficeService, auditService *usecase.AuditService, authService *usecase.AuthService, metrics *Metrics) *Handler {
	return &Handler{officeService: officeService, auditService: auditService, authService: authService, metrics: metrics}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	if h.metrics != nil {
		r.Use(h.metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}
	r.Get("/healthz", h.healthz)
	r.Get("/v1/offices/schema", h.officeSchema)

	r.Group(func(pr chi.Router) {
		pr.Use(h.requireAPIKey)
		pr.Post("/v1/offices", h.createOffice)
		pr.Get("/v1/offices", h.listOffices)
		pr.Get("/v1/offices/{id}", h.getOffice)
		pr.Put("/v1/offices/{id}", h.updateOffice)

		pr.Get("/v1/audit", h.listAudit)
	})

	return r
}

type officeResponse struct {
	ID                  int64   `json:"id"`
	Name                string  `json:"name"`
	ExternalID          string  `json:"external_id,omitempty"`
	ParentID            *int64  `json:"parent_id,omitempty"`
	Hierarchy           string  `json:"hierarchy"`
	OpeningDate         *string `json:"opening_date,omitempty"`
	CIN                 string  `json:"cin,omitempty"`
	ROC                 string  `json:"roc,omitempty"`
	CompanyName         string  `json:"company_name,omitempty"`
	CompanyStatus       string  `json:"company_status,omitempty"`
	RegistrationAddress string  `json:"registration_address,omitempty"`
	Funds               *int64  `json:"funds,omitempty"`
	RegistrationNumber  *int64  `json:"registration_number,omitempty"`
	IncorporatedDate    *string `json:"incorporated_date,omitempty"`
	CreatedAt           string  `json:"created_at"`
	UpdatedAt           string  `json:"updated_at"`
}

type violationResponse struct {
	Resource   string `json:"resource"`
	Parameter  string `json:"parameter"`
	Code       string `json:"code"`
	Value      any    `json:"value"`
	MessageKey string `json:"message_key"`
}

func (h *Handler) createOffice(w http.ResponseWriter, r *http.Request) {
	payload, ok := readBody(w, r)
	if !ok {
		return
	}

	office, err := h.officeService.Create(r.Context(), tenantIDFromContext(r.Context()), payload, mutationMeta(r))
	if err != nil {
		h.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOfficeResponse(office))
}

func (h *Handler) updateOffice(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	payload, ok := readBody(w, r)
	if !ok {
		return
	}

	office, err := h.officeService.Update(r.Context(), tenantIDFromContext(r.Context()), id, payload, mutationMeta(r))
	if err != nil {
		h.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toOfficeResponse(office))
}

func (h *Handler) getOffice(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	office, err := h.officeService.Get(r.Context(), tenantIDFromContext(r.Context()), id)
	if err != nil {
		h.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toOfficeResponse(office))
}

func (h *Handler) listOffices(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	filter := domain.OfficeListFilter{Limit: limit}
	if raw := r.URL.Query().Get("parent"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "parent must be integer")
			return
		}
		filter.ParentID = &parsed
	}
	if raw := r.URL.Query().Get("after"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "after must be integer")
			return
		}
		filter.AfterID = parsed
	}

	offices, err := h.officeService.List(r.Context(), tenantIDFromContext(r.Context()), filter)
	if err != nil {
		h.handleDomainError(w, err)
		return
	}

	result := make([]officeResponse, 0, len(offices))
	for _, office := range offices {
		result = append(result, toOfficeResponse(office))
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": result})
}

func (h *Handler) listAudit(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	filter := domain.AuditFilter{
		TenantID: tenantIDFromContext(r.Context()),
		Action:   r.URL.Query().Get("action"),
		Limit:    limit,
	}
	if raw := r.URL.Query().Get("office"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "office must be integer")
			return
		}
		filter.OfficeID = parsed
	}
	if raw := r.URL.Query().Get("after"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "after must be integer")
			return
		}
		filter.AfterID = parsed
	}

	events, err := h.auditService.List(r.Context(), filter)
	if err != nil {
		h.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": events})
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) officeSchema(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, validation.OfficeSchema().JSONSchema())
}

func (h *Handler) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(r.Header.Get("X-API-Key"))
		if token == "" {
			auth := strings.TrimSpace(r.Header.Get("Authorization"))
			if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
				token = strings.TrimSpace(auth[7:])
			}
		}

		apiKey, err := h.authService.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, usecase.ErrUnauthorized) {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		ctx := context.WithValue(r.Context(), tenantIDCtxKey, apiKey.TenantID)
		ctx = context.WithValue(ctx, apiActorCtxKey, apiKey.Name)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// readBody drains the request body for hand-off to payload validation. Only
// transport-level failures are rejected here; malformed JSON is the
// validator's call to make.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read request body")
		return nil, false
	}
	return payload, true
}

func mutationMeta(r *http.Request) domain.MutationMetadata {
	return domain.MutationMetadata{
		Actor:     actorFromContext(r.Context()),
		Source:    "api",
		RequestID: r.Header.Get("X-Request-Id"),
	}
}

func toOfficeResponse(office domain.Office) officeResponse {
	return officeResponse{
		ID:                  office.ID,
		Name:                office.Name,
		ExternalID:          office.ExternalID,
		ParentID:            office.ParentID,
		Hierarchy:           office.Hierarchy,
		OpeningDate:         formatDate(office.OpeningDate),
		CIN:                 office.CIN,
		ROC:                 office.ROC,
		CompanyName:         office.CompanyName,
		CompanyStatus:       office.CompanyStatus,
		RegistrationAddress: office.RegistrationAddress,
		Funds:               office.Funds,
		RegistrationNumber:  office.RegistrationNumber,
		IncorporatedDate:    formatDate(office.IncorporatedDate),
		CreatedAt:           office.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt:           office.UpdatedAt.UTC().Format(timeFormat),
	}
}

func formatDate(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	formatted := t.Format(validation.DateLayout)
	return &formatted
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, "office not found")
		return 0, false
	}
	return id, true
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be integer")
			return 0, false
		}
		limit = parsed
	}
	return limit, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		log.Printf("encode json response: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

func (h *Handler) handleDomainError(w http.ResponseWriter, err error) {
	var validationErr *validation.ValidationError
	var unsupportedErr *validation.UnsupportedParametersError

	switch {
	case errors.As(err, &validationErr):
		if h.metrics != nil {
			for _, v := range validationErr.Violations {
				h.metrics.observeValidationFailure(v.Parameter, v.Code)
			}
		}
		writeJSON(w, http.StatusBadRequest, toValidationResponse(validationErr))
	case errors.As(err, &unsupportedErr):
		if h.metrics != nil {
			h.metrics.observeValidationFailure("", "unsupported.parameters")
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":      "unsupported parameters",
			"resource":   unsupportedErr.Resource,
			"parameters": unsupportedErr.Parameters,
		})
	case errors.Is(err, validation.ErrMalformedPayload):
		if h.metrics != nil {
			h.metrics.observeValidationFailure("", "malformed.payload")
		}
		writeError(w, http.StatusBadRequest, "invalid json body")
	case errors.Is(err, domain.ErrParentNotFound):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrDuplicateName):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func toValidationResponse(err *validation.ValidationError) map[string]any {
	violations := make([]violationResponse, 0, len(err.Violations))
	for _, v := range err.Violations {
		violations = append(violations, violationResponse{
			Resource:   v.Resource,
			Parameter:  v.Parameter,
			Code:       v.Code,
			Value:      v.Value,
			MessageKey: v.MessageKey(),
		})
	}
	return map[string]any{
		"error":       "validation errors exist",
		"message_key": validation.GlobalMessageKey,
		"errors":      violations,
	}
}

func tenantIDFromContext(ctx context.Context) string {
	tenant, _ := ctx.Value(tenantIDCtxKey).(string)
	return tenant
}

func actorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(apiActorCtxKey).(string)
	if actor == "" {
		return "api"
	}
	return actor
}
