package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	billingapp "shop-billing/internal/billing/application"
	billing "shop-billing/internal/billing/domain"
	"shop-billing/internal/billing/interfaces"
	"shop-billing/internal/observability/metrics"
)

// Handler serves the shop query routes.
type Handler struct {
	service        *billingapp.QueryService
	logger         *log.Logger
	allowedOrigins []string
	router         chi.Router
}

// Option configures the handler.
type Option func(*Handler)

// WithLogger sets the logger for failed requests.
func WithLogger(logger *log.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithAllowedOrigins enables CORS for the given origins.
func WithAllowedOrigins(origins []string) Option {
	return func(h *Handler) {
		h.allowedOrigins = origins
	}
}

// NewHandler constructs a handler.
func NewHandler(service *billingapp.QueryService, opts ...Option) (*Handler, error) {
	if service == nil {
		return nil, errors.New("shop handler: nil query service")
	}
	h := &Handler{service: service}
	for _, opt := range opts {
		opt(h)
	}
	h.router = h.routes()
	return h, nil
}

// ServeHTTP dispatches to the shop routes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	if len(h.allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: h.allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		}))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{Ret: http.StatusNotFound, Data: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, envelope{Ret: http.StatusMethodNotAllowed, Data: "method not allowed"})
	})

	r.Route("/shop", func(r chi.Router) {
		r.Get("/all", h.listShops)
		r.Get("/all/daily-bill/{accDate}", h.allDailyBills)
		r.Get("/all/monthly-bill/{accDate}", h.allMonthlyBills)

		r.Get("/{shopID}", h.getShop)
		r.Get("/{shopID}/ancestors", h.ancestors)
		r.Get("/{shopID}/sub-shops", h.subShops)
		r.Get("/{shopID}/daily-bill", h.dailyBillHistory)
		r.Get("/{shopID}/daily-bill/{accDate}", h.dailyBill)
		r.Get("/{shopID}/monthly-bill", h.monthlyBillHistory)
		r.Get("/{shopID}/monthly-bill/{accDate}", h.monthlyBill)
		r.Get("/{shopID}/sub-shop-daily-bills/{accDate}", h.subShopDailyBills)
		r.Get("/{shopID}/sub-shop-monthly-bills/{accDate}", h.subShopMonthlyBills)
		r.Get("/{shopID}/device-daily-bills/{accDate}", h.deviceDailyBills)
		r.Get("/{shopID}/bills.xlsx", h.exportXLSX)
		r.Get("/{shopID}/bills.pdf", h.exportPDF)
	})
	return r
}

func (h *Handler) listShops(w http.ResponseWriter, r *http.Request) {
	shops, err := h.service.ListShops(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, toShopDTOs(shops))
}

func (h *Handler) getShop(w http.ResponseWriter, r *http.Request) {
	shop, err := h.service.GetShop(r.Context(), chi.URLParam(r, "shopID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, toShopDTO(*shop))
}

func (h *Handler) ancestors(w http.ResponseWriter, r *http.Request) {
	chain, err := h.service.Ancestors(r.Context(), chi.URLParam(r, "shopID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, toShopDTOs(chain))
}

func (h *Handler) subShops(w http.ResponseWriter, r *http.Request) {
	shops, err := h.service.SubShops(r.Context(), chi.URLParam(r, "shopID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, toShopDTOs(shops))
}

func (h *Handler) dailyBill(w http.ResponseWriter, r *http.Request) {
	bill, err := h.service.DailyBill(r.Context(), chi.URLParam(r, "shopID"), chi.URLParam(r, "accDate"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, toBillDTO(bill))
}

func (h *Handler) monthlyBill(w http.ResponseWriter, r *http.Request) {
	bill, err := h.service.MonthlyBill(r.Context(), chi.URLParam(r, "shopID"), chi.URLParam(r, "accDate"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, toBillDTO(bill))
}

func (h *Handler) dailyBillHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	h.writeBillList(w, r, func(ctx context.Context) ([]billing.Bill, error) {
		return h.service.DailyBillHistory(ctx, chi.URLParam(r, "shopID"), query.Get("from"), query.Get("to"))
	})
}

func (h *Handler) monthlyBillHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	h.writeBillList(w, r, func(ctx context.Context) ([]billing.Bill, error) {
		return h.service.MonthlyBillHistory(ctx, chi.URLParam(r, "shopID"), query.Get("from"), query.Get("to"))
	})
}

func (h *Handler) allDailyBills(w http.ResponseWriter, r *http.Request) {
	h.writeBillMap(w, r, func(ctx context.Context) (map[string]billing.Bill, error) {
		return h.service.DailyBillsForSubtree(ctx, billingapp.ScopeAll, chi.URLParam(r, "accDate"))
	})
}

func (h *Handler) allMonthlyBills(w http.ResponseWriter, r *http.Request) {
	h.writeBillMap(w, r, func(ctx context.Context) (map[string]billing.Bill, error) {
		return h.service.MonthlyBillsForSubtree(ctx, billingapp.ScopeAll, chi.URLParam(r, "accDate"))
	})
}

func (h *Handler) subShopDailyBills(w http.ResponseWriter, r *http.Request) {
	h.writeBillMap(w, r, func(ctx context.Context) (map[string]billing.Bill, error) {
		return h.service.DailyBillsForSubtree(ctx, chi.URLParam(r, "shopID"), chi.URLParam(r, "accDate"))
	})
}

func (h *Handler) subShopMonthlyBills(w http.ResponseWriter, r *http.Request) {
	h.writeBillMap(w, r, func(ctx context.Context) (map[string]billing.Bill, error) {
		return h.service.MonthlyBillsForSubtree(ctx, chi.URLParam(r, "shopID"), chi.URLParam(r, "accDate"))
	})
}

func (h *Handler) deviceDailyBills(w http.ResponseWriter, r *http.Request) {
	h.writeBillMap(w, r, func(ctx context.Context) (map[string]billing.Bill, error) {
		return h.service.DeviceDailyBills(ctx, chi.URLParam(r, "shopID"), chi.URLParam(r, "accDate"))
	})
}

func (h *Handler) exportXLSX(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", interfaces.BuildBillReportXLSX)
}

func (h *Handler) exportPDF(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "pdf", "application/pdf", interfaces.BuildBillReportPDF)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request, format, contentType string, build func(*billingapp.BillReport) ([]byte, error)) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveExport(format, result, time.Since(start))
	}()

	query := r.URL.Query()
	granularity := query.Get("granularity")
	if granularity == "" {
		granularity = "daily"
	}
	report, err := h.service.BillReport(r.Context(), chi.URLParam(r, "shopID"), query.Get("date"), granularity)
	if err != nil {
		result = metrics.ResultError
		h.writeError(w, r, err)
		return
	}
	data, err := build(report)
	if err != nil {
		result = metrics.ResultError
		h.writeError(w, r, err)
		return
	}

	filename := "bills-" + report.Scope + "-" + interfaces.PeriodLabel(report.Granularity, report.PeriodStart) + "." + format
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=\""+filename+"\"")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) writeBillList(w http.ResponseWriter, r *http.Request, query func(context.Context) ([]billing.Bill, error)) {
	bills, err := query(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	result := make([]billDTO, 0, len(bills))
	for _, bill := range bills {
		result = append(result, toBillDTO(bill))
	}
	writeData(w, result)
}

func (h *Handler) writeBillMap(w http.ResponseWriter, r *http.Request, query func(context.Context) (map[string]billing.Bill, error)) {
	bills, err := query(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	result := make(map[string]billDTO, len(bills))
	for id, bill := range bills {
		result[id] = toBillDTO(bill)
	}
	writeData(w, result)
}

type envelope struct {
	Ret  int `json:"ret"`
	Data any `json:"data"`
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Ret: 0, Data: data})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if r.Context().Err() != nil {
		// Client went away; nothing to write to.
		return
	}
	status := StatusFor(err)
	if status >= http.StatusInternalServerError && h.logger != nil {
		h.logger.Printf("shop query failed: method=%s path=%s code=%s err=%v", r.Method, r.URL.Path, billing.Code(err), err)
	}
	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, envelope{Ret: status, Data: errorMessage(err)})
}

// StatusFor maps an error kind to an HTTP status.
func StatusFor(err error) int {
	switch billing.Code(err) {
	case billing.CodeOK:
		return http.StatusOK
	case billing.CodeNotFound:
		return http.StatusNotFound
	case billing.CodeInvalidArgument:
		return http.StatusBadRequest
	case billing.CodePoolExhausted:
		return http.StatusTooManyRequests
	case billing.CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	case billing.CodeCanceled:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func errorMessage(err error) string {
	switch billing.Code(err) {
	case billing.CodeNotFound, billing.CodeInvalidArgument:
		return err.Error()
	case billing.CodePoolExhausted:
		return "server busy"
	case billing.CodeStoreUnavailable:
		return "store unavailable"
	case billing.CodeCycleDetected:
		return "corrupt shop hierarchy"
	default:
		return "internal error"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
