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
	"github.com/shopspring/decimal"

	"github.com/samantaanjo/go_storefront/internal/cart"
	"github.com/samantaanjo/go_storefront/internal/domain"
	"github.com/samantaanjo/go_storefront/internal/pricing"
	"github.com/samantaanjo/go_storefront/internal/repository"
)

// CartService is the slice of the cart layer the handlers need.
type CartService interface {
	Items(ctx context.Context, owner string) ([]domain.CartItem, error)
	AddItem(ctx context.Context, owner string, productID int64, quantity int) error
	RemoveItem(ctx context.Context, owner string, productID int64) error
}

// CartMerger merges the anonymous cart into the authenticated one on login.
type CartMerger interface {
	MergeOnLogin(ctx context.Context, anonOwner, authOwner string) error
}

type CartHandler struct {
	carts   CartService
	timeout time.Duration
}

func NewCartHandler(carts CartService, timeout time.Duration) *CartHandler {
	return &CartHandler{carts: carts, timeout: timeout}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type CartItemDTO struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type CartResponseDTO struct {
	Items []CartItemDTO   `json:"items"`
	Total decimal.Decimal `json:"total"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	owner := getIdentity(r.Context())
	if owner.IsZero() {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session identity")
		return
	}

	items, err := h.carts.Items(ctx, owner.String())
	if err != nil {
		log.Printf("failed to read cart: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(items))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	owner := getIdentity(r.Context())
	if owner.IsZero() {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session identity")
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	if err := h.carts.AddItem(ctx, owner.String(), req.ProductID, req.Quantity); err != nil {
		if errors.Is(err, cart.ErrProductNotFound) {
			respondError(w, http.StatusNotFound, "product_not_found", "unknown product")
			return
		}
		log.Printf("failed to add cart item: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	items, err := h.carts.Items(ctx, owner.String())
	if err != nil {
		log.Printf("failed to read cart after add: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondJSON(w, http.StatusCreated, cartResponse(items))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	owner := getIdentity(r.Context())
	if owner.IsZero() {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session identity")
		return
	}

	productIDStr := chi.URLParam(r, "product_id")
	productID, err := strconv.ParseInt(productIDStr, 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	if err := h.carts.RemoveItem(ctx, owner.String(), productID); err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			respondError(w, http.StatusNotFound, "item_not_found", "item is not in the cart")
			return
		}
		log.Printf("failed to remove cart item: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	items, err := h.carts.Items(ctx, owner.String())
	if err != nil {
		log.Printf("failed to read cart after remove: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(items))
}

func cartResponse(items []domain.CartItem) CartResponseDTO {
	resp := CartResponseDTO{
		Items: make([]CartItemDTO, 0, len(items)),
		Total: pricing.Total(items),
	}
	for _, it := range items {
		resp.Items = append(resp.Items, CartItemDTO{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return resp
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
