package handler

import (
	"net/http"

	"github.com/xenking/repairdesk/internal/domain/client"
)

type createClientRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Document string `json:"document"`
	Address  string `json:"address"`
}

type clientResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Document string `json:"document,omitempty"`
	Address  string `json:"address,omitempty"`
}

func toClientResponse(c *client.Client) clientResponse {
	return clientResponse{
		ID:       c.ID,
		Name:     c.Name,
		Email:    c.Email,
		Phone:    c.Phone,
		Document: c.Document,
		Address:  c.Address,
	}
}

func (h *Handler) createClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createClientRequest
	if err := decode(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	c, err := h.clients.Create(ctx, client.Client{
		Name:     h.clean(req.Name),
		Email:    h.clean(req.Email),
		Phone:    h.clean(req.Phone),
		Document: h.clean(req.Document),
		Address:  h.clean(req.Address),
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toClientResponse(c))
}

func (h *Handler) listClients(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := h.clients.List(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	resp := make([]clientResponse, len(list))
	for i := range list {
		resp[i] = toClientResponse(&list[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	c, err := h.clients.Get(ctx, id)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toClientResponse(c))
}

func (h *Handler) deleteClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.clients.Delete(ctx, id); err != nil {
		writeError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
