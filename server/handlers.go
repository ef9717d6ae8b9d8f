package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/prasertk/shopassist/agent/contract"
	"github.com/prasertk/shopassist/agent/orchestrator"
)

const defaultPageSize = 10

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "shopping assistant API is running"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	lock := s.sessionLock(strings.TrimSpace(req.SessionID))
	lock.Lock()
	result, err := s.agent.ProcessTurn(r.Context(), orchestrator.TurnInput{
		SessionID: req.SessionID,
		Text:      req.Message,
		ImageData: req.ImageData,
	})
	lock.Unlock()
	if err != nil {
		writeAgentError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		SessionID:         req.SessionID,
		Response:          result.ResponseText,
		RequiresAction:    result.RequiresAction,
		PendingAction:     result.PendingAction,
		SuggestedProducts: result.SuggestedProducts,
	})
}

func (s *Server) handleConfirmAction(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Action.SessionID) == "" {
		writeError(w, http.StatusBadRequest, "action session_id is required")
		return
	}

	lock := s.sessionLock(req.Action.SessionID)
	lock.Lock()
	result := s.agent.ConfirmAction(r.Context(), req.Action, req.Confirmed)
	lock.Unlock()

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	products, err := s.catalog.Search(r.Context(), req.Query, req.Filters)
	if err != nil {
		writeAgentError(w, err)
		return
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	total := len(products)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Products: products[start:end],
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	details, err := s.catalog.Details(r.Context(), r.PathValue("product_id"))
	if err != nil {
		writeAgentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := s.cart.Get(r.Context(), r.PathValue("session_id"))
	if err != nil {
		writeAgentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (s *Server) handleUpdateCart(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")

	var req CartActionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// omitted quantity means one item, for update as well as add
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}

	var (
		cart *contractx.Cart
		err  error
	)
	switch req.ActionType {
	case "add":
		cart, err = s.cart.Add(r.Context(), sessionID, req.ProductID, quantity)
	case "remove":
		cart, err = s.cart.Remove(r.Context(), sessionID, req.ProductID)
	case "update":
		cart, err = s.cart.UpdateQuantity(r.Context(), sessionID, req.ProductID, quantity)
	case "clear":
		cart, err = s.cart.Clear(r.Context(), sessionID)
	default:
		writeError(w, http.StatusBadRequest, "invalid action type")
		return
	}
	if err != nil {
		writeAgentError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cart)
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")

	var req CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	cart, err := s.cart.Get(r.Context(), sessionID)
	if err != nil {
		writeAgentError(w, err)
		return
	}
	if len(cart.Items) == 0 {
		writeError(w, http.StatusBadRequest, "cart is empty")
		return
	}

	session, err := s.payment.CreateCheckoutSession(r.Context(), cart, req.Email, req.SuccessURL, req.CancelURL)
	if err != nil {
		writeAgentError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, CheckoutResponse{
		SessionID:   sessionID,
		CheckoutURL: session.URL,
		CheckoutID:  session.ID,
	})
}

func decodeJSON(r *http.Request, into any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		return errors.New("invalid request body: " + err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeAgentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, contractx.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, contractx.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
