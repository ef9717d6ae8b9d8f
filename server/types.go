package server

import (
	contractx "github.com/prasertk/shopassist/agent/contract"
)

type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	ImageData string `json:"image_data,omitempty"`
}

type ChatResponse struct {
	SessionID         string                   `json:"session_id"`
	Response          string                   `json:"response"`
	RequiresAction    bool                     `json:"requires_action"`
	PendingAction     *contractx.PendingAction `json:"pending_action,omitempty"`
	SuggestedProducts []contractx.Product      `json:"suggested_products,omitempty"`
}

type ConfirmRequest struct {
	Action    contractx.PendingAction `json:"action"`
	Confirmed bool                    `json:"confirmed"`
}

type SearchRequest struct {
	Query    string                   `json:"query"`
	Filters  *contractx.SearchFilters `json:"filters,omitempty"`
	Page     int                      `json:"page,omitempty"`
	PageSize int                      `json:"page_size,omitempty"`
}

type SearchResponse struct {
	Products []contractx.Product `json:"products"`
	Total    int                 `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
}

type CartActionRequest struct {
	ActionType string `json:"action_type"`
	ProductID  string `json:"product_id"`
	Quantity   int    `json:"quantity,omitempty"`
}

type CheckoutRequest struct {
	Email      string `json:"email"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

type CheckoutResponse struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
	CheckoutID  string `json:"checkout_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}
