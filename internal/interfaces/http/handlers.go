package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/expense-claims/internal/application/service"
	"github.com/garyjia/expense-claims/internal/auth"
	"github.com/garyjia/expense-claims/internal/domain/lifecycle"
)

const (
	subjectKey = "employee_id"

	msgUnauthorized       = "Unauthorized"
	msgInvalidCredentials = "Invalid username or password"
	msgUserNotFound       = "User not found"
	msgClaimNotFound      = "Claim not found or not authorized"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	sessionService service.SessionService
	claimService   service.ClaimService
	health         HealthChecker
	maxBodyBytes   int64
	logger         Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	sessionService service.SessionService,
	claimService service.ClaimService,
	health HealthChecker,
	maxBodyBytes int64,
	logger Logger,
) *Handlers {
	if maxBodyBytes <= 0 {
		maxBodyBytes = 10 << 20
	}
	return &Handlers{
		sessionService: sessionService,
		claimService:   claimService,
		health:         health,
		maxBodyBytes:   maxBodyBytes,
		logger:         logger,
	}
}

// ErrorResponse is the error envelope of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse acknowledges a successful request
type MessageResponse struct {
	Message string `json:"message"`
}

// LoginResponse is returned by POST /api/login
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Message     string `json:"message"`
}

// CreateClaimResponse is returned by POST /api/claims
type CreateClaimResponse struct {
	Message string `json:"message"`
	ClaimID int64  `json:"ClaimID"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Components interface{} `json:"components,omitempty"`
}

// Root handles GET /
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "API is running successfully!"})
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if h.health != nil {
		status := h.health.Health(c.Request.Context())
		response.Components = status.Components
		if !status.Overall {
			response.Status = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, response)
			return
		}
	}

	c.JSON(http.StatusOK, response)
}

// Login handles POST /api/login
func (h *Handlers) Login(c *gin.Context) {
	fields, err := h.readFields(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: msgInvalidCredentials})
		return
	}

	req := service.LoginRequest{}
	if v, ok := fields["username"]; ok {
		req.Username = v
	}
	if v, ok := fields["password"]; ok {
		req.Password = v
	}

	session, err := h.sessionService.Authenticate(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: msgInvalidCredentials})
			return
		}
		h.logger.Error("Login failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to process login"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken: session.Token.Raw,
		Message:     session.Greeting,
	})
}

// Logout handles POST /api/logout
func (h *Handlers) Logout(c *gin.Context) {
	raw := bearerToken(c.GetHeader("Authorization"))
	if err := h.sessionService.EndSession(c.Request.Context(), raw); err != nil {
		h.logger.Error("Logout failed", "error", err)
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Logged out successfully!"})
}

// Dashboard handles GET /api/claims/dashboard
func (h *Handlers) Dashboard(c *gin.Context) {
	dashboard, err := h.claimService.ListDashboard(c.Request.Context(), subject(c))
	if err != nil {
		h.respondError(c, opDashboard, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// ExportStatement handles GET /api/claims/export
func (h *Handlers) ExportStatement(c *gin.Context) {
	employeeID := subject(c)

	var buf bytes.Buffer
	if err := h.claimService.ExportStatement(c.Request.Context(), employeeID, &buf); err != nil {
		h.respondError(c, opExport, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="claims-%d.xlsx"`, employeeID))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// CreateClaim handles POST /api/claims
func (h *Handlers) CreateClaim(c *gin.Context) {
	fields, err := h.readFields(c)
	if err != nil {
		h.respondError(c, opCreate, err)
		return
	}

	payload := claimPayload(fields)
	if payload.Invoice, err = h.readInvoice(c); err != nil {
		h.respondError(c, opCreate, err)
		return
	}

	claimID, err := h.claimService.CreateClaim(c.Request.Context(), subject(c), payload)
	if err != nil {
		h.respondError(c, opCreate, err)
		return
	}

	c.JSON(http.StatusCreated, CreateClaimResponse{
		Message: "Claim created successfully!",
		ClaimID: claimID,
	})
}

// UpdateClaim handles PUT /api/claims/:id
func (h *Handlers) UpdateClaim(c *gin.Context) {
	claimID, ok := claimIDParam(c)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: msgClaimNotFound})
		return
	}

	fields, err := h.readFields(c)
	if err != nil {
		h.respondError(c, opUpdate, err)
		return
	}

	if err := h.claimService.UpdateClaim(c.Request.Context(), subject(c), claimID, claimPayload(fields)); err != nil {
		h.respondError(c, opUpdate, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Claim updated successfully!"})
}

// DeleteClaim handles DELETE /api/claims/:id
func (h *Handlers) DeleteClaim(c *gin.Context) {
	claimID, ok := claimIDParam(c)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: msgClaimNotFound})
		return
	}

	if err := h.claimService.DeleteClaim(c.Request.Context(), subject(c), claimID); err != nil {
		h.respondError(c, opDelete, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Claim deleted successfully!"})
}

type operation int

const (
	opDashboard operation = iota
	opExport
	opCreate
	opUpdate
	opDelete
)

// respondError maps service errors to status codes. Unexpected errors are
// logged and replaced by a generic message.
func (h *Handlers) respondError(c *gin.Context, op operation, err error) {
	var missing *lifecycle.MissingFieldError
	var invalid *lifecycle.ValidationError

	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: msgUnauthorized})
	case errors.Is(err, lifecycle.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: msgUserNotFound})
	case errors.Is(err, lifecycle.ErrNotFoundOrUnauthorized):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: msgClaimNotFound})
	case errors.Is(err, lifecycle.ErrImmutable):
		verb := "updated"
		if op == opDelete {
			verb = "deleted"
		}
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "Only pending or rejected claims can be " + verb})
	case errors.As(err, &missing):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: missing.Error()})
	case errors.As(err, &invalid):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: invalid.Error()})
	default:
		status, msg := unexpectedError(op)
		h.logger.Error("Request failed", "error", err, "path", c.Request.URL.Path, "employee_id", subject(c))
		c.JSON(status, ErrorResponse{Error: msg})
	}
}

func unexpectedError(op operation) (int, string) {
	switch op {
	case opDashboard:
		return http.StatusUnprocessableEntity, "Failed to process the request"
	case opExport:
		return http.StatusInternalServerError, "Failed to export claims"
	case opCreate:
		return http.StatusInternalServerError, "Failed to create claim"
	case opUpdate:
		return http.StatusInternalServerError, "Failed to update the claim"
	default:
		return http.StatusInternalServerError, "Failed to delete the claim"
	}
}

// subject returns the employee identifier set by authMiddleware
func subject(c *gin.Context) int64 {
	return c.GetInt64(subjectKey)
}

// claimIDParam parses :id. A non-numeric id is reported as not found.
func claimIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// readFields reads a flat set of request fields from a JSON object,
// urlencoded form or multipart form. JSON scalars are converted to their
// textual form; null counts as absent.
func (h *Handlers) readFields(c *gin.Context) (map[string]string, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := c.Request.ParseMultipartForm(h.maxBodyBytes); err != nil {
			return nil, lifecycle.NewValidationError("", "Invalid form data")
		}
		return firstValues(c.Request.MultipartForm.Value), nil
	case "application/x-www-form-urlencoded":
		if err := c.Request.ParseForm(); err != nil {
			return nil, lifecycle.NewValidationError("", "Invalid form data")
		}
		return firstValues(c.Request.PostForm), nil
	default:
		return readJSONFields(c)
	}
}

// readJSONFields binds the body as a JSON object. An empty body yields no
// fields.
func readJSONFields(c *gin.Context) (map[string]string, error) {
	fields := make(map[string]string)

	raw := make(map[string]interface{})
	if err := c.ShouldBindJSON(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return fields, nil
		}
		return nil, lifecycle.NewValidationError("", "Invalid JSON body")
	}

	for key, value := range raw {
		switch v := value.(type) {
		case nil:
			continue
		case string:
			fields[key] = v
		case json.Number:
			fields[key] = v.String()
		case bool:
			fields[key] = strconv.FormatBool(v)
		default:
			return nil, lifecycle.NewValidationError(key, "must be a scalar value")
		}
	}
	return fields, nil
}

func firstValues(values map[string][]string) map[string]string {
	fields := make(map[string]string, len(values))
	for key, v := range values {
		if len(v) > 0 {
			fields[key] = v[0]
		}
	}
	return fields
}

// claimPayload copies the known claim fields. Unknown keys, including
// EmployeeID and ClaimID, are dropped.
func claimPayload(fields map[string]string) *service.ClaimPayload {
	get := func(name string) *string {
		if v, ok := fields[name]; ok {
			return &v
		}
		return nil
	}

	return &service.ClaimPayload{
		ProjectID:           get(service.FieldProjectID),
		CurrencyID:          get(service.FieldCurrencyID),
		ExpenseDate:         get(service.FieldExpenseDate),
		Amount:              get(service.FieldAmount),
		Purpose:             get(service.FieldPurpose),
		Status:              get(service.FieldStatus),
		ChargeToDefaultDept: get(service.FieldChargeToDefaultDept),
		AlternativeDeptCode: get(service.FieldAlternativeDeptCode),
	}
}

// readInvoice returns the optional multipart invoice file
func (h *Handlers) readInvoice(c *gin.Context) (*service.InvoiceFile, error) {
	if c.Request.MultipartForm == nil {
		return nil, nil
	}

	header, err := c.FormFile(service.FieldInvoice)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, lifecycle.NewValidationError(service.FieldInvoice, "unreadable file")
	}
	if header.Filename == "" {
		return nil, nil
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open invoice: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read invoice: %w", err)
	}

	return &service.InvoiceFile{Filename: header.Filename, Content: content}, nil
}
