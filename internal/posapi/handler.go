package posapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/common/httpx"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/common/logger"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/domain"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/pos/cart"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/pos/checkout"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/pos/settlement"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/pos/table"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/remote"
)

type Handler struct {
	svc *Service
	lg  *logger.Logger
}

func NewHandler(svc *Service, lg *logger.Logger) *Handler {
	return &Handler{svc: svc, lg: lg}
}

func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/catalog", h.catalog)
	mux.HandleFunc("GET /api/tables", h.tables)
	mux.HandleFunc("GET /api/customers", h.customers)
	mux.HandleFunc("GET /api/cart", h.cart)
	mux.HandleFunc("POST /api/tables/select", h.selectTable)
	mux.HandleFunc("POST /api/tables/transfer", h.transfer)
	mux.HandleFunc("POST /api/cart/items", h.addItem)
	mux.HandleFunc("DELETE /api/cart/items/{id}", h.removeItem)
	mux.HandleFunc("POST /api/cart/items/{id}/quantity", h.adjustQuantity)
	mux.HandleFunc("POST /api/cart/items/{id}/note", h.setNote)
	mux.HandleFunc("POST /api/cart/clear", h.clearCart)
	mux.HandleFunc("POST /api/session/employee", h.bindEmployee)
	mux.HandleFunc("POST /api/session/customer", h.selectCustomer)
	mux.HandleFunc("POST /api/checkout/preview", h.preview)
	mux.HandleFunc("POST /api/checkout/settle", h.settle)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (h *Handler) catalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Catalog())
}

func (h *Handler) tables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Tables())
}

func (h *Handler) customers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.CustomerList())
}

func (h *Handler) cart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Cart())
}

func (h *Handler) selectTable(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TableID string `json:"table_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	h.respond(w, h.svc.SelectTable(req.TableID), h.svc.Cart())
}

func (h *Handler) transfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TargetTableID string `json:"target_table_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	h.respond(w, h.svc.Transfer(req.TargetTableID), h.svc.Cart())
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string `json:"product_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	h.respond(w, h.svc.AddItem(req.ProductID), h.svc.Cart())
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	h.respond(w, h.svc.RemoveItem(r.PathValue("id")), h.svc.Cart())
}

func (h *Handler) adjustQuantity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Delta int `json:"delta"`
	}
	if !decode(w, r, &req) {
		return
	}
	h.respond(w, h.svc.AdjustQuantity(r.PathValue("id"), req.Delta), h.svc.Cart())
}

func (h *Handler) setNote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Note string `json:"note"`
	}
	if !decode(w, r, &req) {
		return
	}
	h.respond(w, h.svc.SetNote(r.PathValue("id"), req.Note), h.svc.Cart())
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	h.svc.ClearCart()
	writeJSON(w, http.StatusOK, h.svc.Cart())
}

func (h *Handler) bindEmployee(w http.ResponseWriter, r *http.Request) {
	var emp domain.Employee
	if !decode(w, r, &emp) {
		return
	}
	if emp.ID == "" {
		writeError(w, http.StatusUnprocessableEntity, "employee id is required")
		return
	}
	h.svc.BindEmployee(emp)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) selectCustomer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CustomerID string `json:"customer_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.SelectCustomer(req.CustomerID); err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type checkoutRequest struct {
	ManualDiscount decimal.Decimal  `json:"manual_discount"`
	Tendered       *decimal.Decimal `json:"tendered,omitempty"`
	PaymentMethod  string           `json:"payment_method,omitempty"`
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if !decode(w, r, &req) {
		return
	}
	bd, err := h.svc.Preview(req.ManualDiscount, req.Tendered)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bd)
}

type settleResponse struct {
	Invoice  domain.Invoice       `json:"invoice"`
	Lines    []domain.InvoiceLine `json:"lines"`
	Points   int64                `json:"points_earned"`
	NewTier  domain.Tier          `json:"new_tier,omitempty"`
	Warnings []string             `json:"warnings,omitempty"`
}

func (h *Handler) settle(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Tendered == nil {
		writeError(w, http.StatusUnprocessableEntity, "tendered amount is required")
		return
	}
	res, err := h.svc.Settle(r.Context(), req.ManualDiscount, *req.Tendered, req.PaymentMethod)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settleResponse{
		Invoice:  res.Invoice,
		Lines:    res.Lines,
		Points:   res.PointsEarned,
		NewTier:  res.NewTier,
		Warnings: res.Warnings,
	})
}

// writeEngineError maps the engine's error taxonomy to HTTP statuses:
// operator mistakes are 422, transfer conflicts 409, remote store failures
// 502, partial settlements 500 with the reconciliation detail.
func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	var lwe *settlement.LineWriteError
	switch {
	case errors.Is(err, cart.ErrNoTableSelected),
		errors.Is(err, settlement.ErrEmptyCart),
		errors.Is(err, settlement.ErrNoEmployee),
		errors.Is(err, checkout.ErrInsufficientPayment),
		errors.Is(err, checkout.ErrDiscountExceedsTotal),
		errors.Is(err, checkout.ErrNegativeDiscount),
		errors.Is(err, ErrUnknownProduct),
		errors.Is(err, ErrUnknownCustomer),
		errors.Is(err, table.ErrUnknownTable):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, table.ErrTransferRejected),
		errors.Is(err, settlement.ErrAlreadyRunning):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &lwe):
		h.lg.Error("settlement_partial", err, map[string]any{
			"invoice_id": lwe.InvoiceID, "lines_committed": lwe.Written,
		})
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		var we *remote.WriteError
		if errors.As(err, &we) {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		h.lg.Error("request_failed", err, nil)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) respond(w http.ResponseWriter, err error, ok any) {
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ok)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Run serves the terminal API until ctx is canceled.
func Run(ctx context.Context, port int, svc *Service, lg *logger.Logger) error {
	h := NewHandler(svc, lg)
	srv := httpx.New(":"+strconv.Itoa(port), h.Routes())
	lg.Info("listening", map[string]any{"port": port})
	return srv.Run(ctx)
}
