package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"

	"github.com/AntonStoeckl/library-loans/core"
	"github.com/AntonStoeckl/library-loans/features/query/listcopies"
	"github.com/AntonStoeckl/library-loans/shell"
)

// Handler serves the loan HTTP API.
type Handler struct {
	service      LoanService
	validate     *validator.Validate
	logger       shell.Logger
	phoneRegions []string
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithLogger sets the logger for unexpected failures.
func WithLogger(logger shell.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithPhoneRegions sets the regions tried when normalizing phone numbers without a country prefix.
func WithPhoneRegions(regions ...string) HandlerOption {
	return func(h *Handler) {
		h.phoneRegions = regions
	}
}

// NewHandler creates a Handler on top of the service.
func NewHandler(service LoanService, opts ...HandlerOption) *Handler {
	h := &Handler{
		service:      service,
		validate:     newValidator(),
		phoneRegions: DefaultPhoneRegions,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// RegisterRoutes adds all routes to the router.
func (h *Handler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/readers/:reader_id/checkout", h.Checkout)
	router.POST("/readers/:reader_id/return", h.Return)
	router.POST("/readers/:reader_id/reserve", h.Reserve)
	router.POST("/readers/:reader_id/cancel", h.Cancel)

	router.GET("/readers/:reader_id/borrows", h.Borrows)
	router.GET("/readers/:reader_id/reserves", h.Reserves)
	router.GET("/readers/:reader_id/fines/average", h.AverageFine)
	router.GET("/copies", h.Copies)
	router.GET("/copies/:copy_id/availability", h.Availability)

	router.POST("/readers", h.RegisterReader)
	router.POST("/copies", h.AddCopy)

	router.GET("/health", h.Health)

	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, msgNotFound)
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	})
}

// Router returns a new router with all routes registered.
func (h *Handler) Router() *httprouter.Router {
	router := httprouter.New()
	h.RegisterRoutes(router)

	return router
}

// Checkout handles POST /readers/:reader_id/checkout.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.readerAction(w, r, ps, func(ctx context.Context, copyID core.CopyID, readerID core.ReaderID) (any, error) {
		borrow, err := h.service.Checkout(ctx, copyID, readerID)
		return toBorrowResponse(borrow), err
	})
}

// Return handles POST /readers/:reader_id/return.
func (h *Handler) Return(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.readerAction(w, r, ps, func(ctx context.Context, copyID core.CopyID, readerID core.ReaderID) (any, error) {
		borrow, err := h.service.Return(ctx, copyID, readerID)
		return toBorrowResponse(borrow), err
	})
}

// Reserve handles POST /readers/:reader_id/reserve.
func (h *Handler) Reserve(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.readerAction(w, r, ps, func(ctx context.Context, copyID core.CopyID, readerID core.ReaderID) (any, error) {
		reserve, err := h.service.Reserve(ctx, copyID, readerID)
		return toReserveResponse(reserve), err
	})
}

// Cancel handles POST /readers/:reader_id/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.readerAction(w, r, ps, func(ctx context.Context, copyID core.CopyID, readerID core.ReaderID) (any, error) {
		reserve, err := h.service.Cancel(ctx, copyID, readerID)
		return toReserveResponse(reserve), err
	})
}

// Borrows handles GET /readers/:reader_id/borrows. Without ?active the full history is returned.
func (h *Handler) Borrows(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	readerID, ok := h.readerIDFrom(w, ps)
	if !ok {
		return
	}

	activeOnly, ok := h.activeFlagFrom(w, r)
	if !ok {
		return
	}

	load := h.service.BorrowHistoryOf
	if activeOnly {
		load = h.service.ActiveBorrowsOf
	}

	borrows, err := load(r.Context(), readerID)
	if err != nil {
		h.writeServiceError(w, r, err, http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, toBorrowsResponse(borrows))
}

// Reserves handles GET /readers/:reader_id/reserves. Without ?active the full history is returned.
func (h *Handler) Reserves(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	readerID, ok := h.readerIDFrom(w, ps)
	if !ok {
		return
	}

	activeOnly, ok := h.activeFlagFrom(w, r)
	if !ok {
		return
	}

	load := h.service.ReserveHistoryOf
	if activeOnly {
		load = h.service.ActiveReservesOf
	}

	reserves, err := load(r.Context(), readerID)
	if err != nil {
		h.writeServiceError(w, r, err, http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, toReservesResponse(reserves))
}

// AverageFine handles GET /readers/:reader_id/fines/average.
func (h *Handler) AverageFine(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	readerID, ok := h.readerIDFrom(w, ps)
	if !ok {
		return
	}

	average, err := h.service.AverageFineOf(r.Context(), readerID)
	if err != nil {
		h.writeServiceError(w, r, err, http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, toAverageFineResponse(average))
}

// Availability handles GET /copies/:copy_id/availability.
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	copyID, err := uuid.Parse(ps.ByName("copy_id"))
	if err != nil {
		writeError(w, http.StatusNotFound, msgCopyNotFound)
		return
	}

	availability, err := h.service.Availability(r.Context(), copyID)
	if err != nil {
		h.writeServiceError(w, r, err, http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, toAvailabilityResponse(availability))
}

// Copies handles GET /copies. Optional filters: ?available=true|false, ?book_id and ?branch_id.
func (h *Handler) Copies(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query, err := copyQueryFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidCopyFilter)
		return
	}

	listing, err := h.service.ListCopies(r.Context(), query)
	if err != nil {
		h.writeServiceError(w, r, err, http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, toCopiesResponse(listing))
}

// RegisterReader handles POST /readers.
func (h *Handler) RegisterReader(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req RegisterReaderRequest
	if !h.decode(w, r, &req) {
		return
	}

	phone, err := normalizePhone(req.Phone, h.phoneRegions)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidPhone)
		return
	}

	reader, err := h.service.RegisterReader(r.Context(), req.Name, req.Address, phone)
	if err != nil {
		h.writeServiceError(w, r, err, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, toReaderResponse(reader))
}

// AddCopy handles POST /copies.
func (h *Handler) AddCopy(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req AddCopyRequest
	if !h.decode(w, r, &req) {
		return
	}

	added, err := h.service.AddCopy(r.Context(), uuid.MustParse(req.BookID), uuid.MustParse(req.BranchID))
	if err != nil {
		h.writeServiceError(w, r, err, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, toCopyResponse(added))
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// newValidator reports fields by their json name.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	return v
}

type actionFunc func(ctx context.Context, copyID core.CopyID, readerID core.ReaderID) (any, error)

func (h *Handler) readerAction(w http.ResponseWriter, r *http.Request, ps httprouter.Params, act actionFunc) {
	readerID, ok := h.readerIDFrom(w, ps)
	if !ok {
		return
	}

	var req CopyRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := act(r.Context(), uuid.MustParse(req.CopyID), readerID)
	if err != nil {
		h.writeServiceError(w, r, err, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// readerIDFrom answers 404 for a reader id that is not a uuid, no such reader can exist.
func (h *Handler) readerIDFrom(w http.ResponseWriter, ps httprouter.Params) (core.ReaderID, bool) {
	readerID, err := uuid.Parse(ps.ByName("reader_id"))
	if err != nil {
		writeError(w, http.StatusNotFound, msgReaderNotFound)
		return core.ReaderID{}, false
	}

	return readerID, true
}

func (h *Handler) activeFlagFrom(w http.ResponseWriter, r *http.Request) (bool, bool) {
	raw := r.URL.Query().Get("active")
	if raw == "" {
		return false, true
	}

	active, err := strconv.ParseBool(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidActiveFlag)
		return false, false
	}

	return active, true
}

func copyQueryFrom(r *http.Request) (listcopies.Query, error) {
	params := r.URL.Query()
	query := listcopies.BuildQuery()

	if raw := params.Get("available"); raw != "" {
		available, err := strconv.ParseBool(raw)
		if err != nil {
			return query, err
		}

		query = query.OnlyAvailable(available)
	}

	if raw := params.Get("book_id"); raw != "" {
		bookID, err := uuid.Parse(raw)
		if err != nil {
			return query, err
		}

		query = query.OfBook(bookID)
	}

	if raw := params.Get("branch_id"); raw != "" {
		branchID, err := uuid.Parse(raw)
		if err != nil {
			return query, err
		}

		query = query.AtBranch(branchID)
	}

	return query, nil
}

// decode reads and validates the JSON body into dst. It answers 400 itself and reports false on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
			fe := validationErrs[0]
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Field '%s' failed on the '%s' rule.", fe.Field(), fe.Tag()))
			return false
		}

		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return false
	}

	return true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, copyNotFoundStatus int) {
	status, message := statusFor(err, copyNotFoundStatus)

	if status == http.StatusInternalServerError && h.logger != nil {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, shell.LogAttrError, err.Error())
	}

	writeError(w, status, message)
}
