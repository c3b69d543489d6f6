package dispatch

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/roaddasher/dasher/internal/middleware"
	"github.com/roaddasher/dasher/internal/types/earnings"
	"github.com/roaddasher/dasher/internal/types/order"
)

const defaultPageLimit = 20

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type loginReq struct {
	AccessToken string `json:"access_token"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	token, err := h.svc.LoginWithFacebook(r.Context(), req.AccessToken)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"access_token": token})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	// Tokens are stateless; logout is the client discarding its copy.
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) AvailableOrders(w http.ResponseWriter, r *http.Request) {
	driverID := middleware.DriverIDFromContext(r.Context())
	orders, err := h.svc.AvailableOrders(r.Context(), driverID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"orders": wireOrders(orders)})
}

func (h *Handler) CurrentOrder(w http.ResponseWriter, r *http.Request) {
	driverID := middleware.DriverIDFromContext(r.Context())
	o, err := h.svc.CurrentOrder(r.Context(), driverID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	resp := map[string]any{}
	if o != nil {
		resp["order"] = o.Wire()
	}
	writeJSON(w, resp)
}

type orderActionReq struct {
	OrderID int64  `json:"order_id"`
	Reason  string `json:"reason"`
	Status  string `json:"status"`
}

func (h *Handler) AcceptOrder(w http.ResponseWriter, r *http.Request) {
	var req orderActionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	driverID := middleware.DriverIDFromContext(r.Context())
	if err := h.svc.AcceptOrder(r.Context(), driverID, req.OrderID); err != nil {
		http.Error(w, err.Error(), orderErrorCode(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) RejectOrder(w http.ResponseWriter, r *http.Request) {
	var req orderActionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	driverID := middleware.DriverIDFromContext(r.Context())
	if err := h.svc.RejectOrder(r.Context(), driverID, req.OrderID, req.Reason); err != nil {
		http.Error(w, err.Error(), orderErrorCode(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req orderActionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	driverID := middleware.DriverIDFromContext(r.Context())
	if err := h.svc.UpdateOrderStatus(r.Context(), driverID, req.OrderID, req.Status); err != nil {
		http.Error(w, err.Error(), orderErrorCode(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) OrderHistory(w http.ResponseWriter, r *http.Request) {
	driverID := middleware.DriverIDFromContext(r.Context())
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", defaultPageLimit)
	orders, err := h.svc.OrderHistory(r.Context(), driverID, page, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"orders": wireOrders(orders)})
}

func (h *Handler) TodayEarnings(w http.ResponseWriter, r *http.Request) {
	h.earningsSummary(w, r, earnings.PeriodToday)
}

func (h *Handler) WeeklyEarnings(w http.ResponseWriter, r *http.Request) {
	h.earningsSummary(w, r, earnings.PeriodWeekly)
}

func (h *Handler) earningsSummary(w http.ResponseWriter, r *http.Request, p earnings.Period) {
	driverID := middleware.DriverIDFromContext(r.Context())
	e, err := h.svc.EarningsSummary(r.Context(), driverID, p)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, e.Wire())
}

func (h *Handler) EarningsHistory(w http.ResponseWriter, r *http.Request) {
	driverID := middleware.DriverIDFromContext(r.Context())
	page := queryInt(r, "page", 1)
	recs, err := h.svc.EarningRecords(r.Context(), driverID, page, defaultPageLimit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]*earnings.RecordPayload, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].Wire())
	}
	writeJSON(w, map[string]any{"records": out})
}

type driverStatusReq struct {
	IsOnline bool `json:"is_online"`
}

func (h *Handler) UpdateDriverStatus(w http.ResponseWriter, r *http.Request) {
	var req driverStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	driverID := middleware.DriverIDFromContext(r.Context())
	if err := h.svc.SetOnline(r.Context(), driverID, req.IsOnline); err != nil {
		http.Error(w, err.Error(), orderErrorCode(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

type locationReq struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (h *Handler) UpdateDriverLocation(w http.ResponseWriter, r *http.Request) {
	var req locationReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	driverID := middleware.DriverIDFromContext(r.Context())
	if err := h.svc.ReportLocation(r.Context(), driverID, req.Latitude, req.Longitude); err != nil {
		http.Error(w, err.Error(), orderErrorCode(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

func orderErrorCode(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrOrderTaken), errors.Is(err, ErrIllegalTransition), errors.Is(err, ErrNotAssigned):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidStatus):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func wireOrders(orders []order.Order) []*order.Payload {
	out := make([]*order.Payload, 0, len(orders))
	for i := range orders {
		out = append(out, orders[i].Wire())
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}
