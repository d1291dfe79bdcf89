package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/baharkarakas/checkflow/internal/api/httpx"
	"github.com/baharkarakas/checkflow/internal/middleware"
	"github.com/baharkarakas/checkflow/internal/services"
)

type CheckHandler struct {
	Commands *services.CommandService
	Audit    *services.AuditService
}

func NewCheckHandler(commands *services.CommandService, audit *services.AuditService) *CheckHandler {
	return &CheckHandler{Commands: commands, Audit: audit}
}

type issueReq struct {
	Counterparty string           `json:"counterparty"`
	Amount       *decimal.Decimal `json:"amount"`
	MaturityDate string           `json:"maturity_date,omitempty"`
}

type decideReq struct {
	CheckIDs   []int64 `json:"check_ids,omitempty" validate:"omitempty,dive,gt=0"`
	IssuerName string  `json:"issuer_name,omitempty"`
	All        bool    `json:"all,omitempty"`
}

type forwardReq struct {
	To string `json:"to"`
}

type revokeReq struct {
	CheckIDs []int64 `json:"check_ids" validate:"omitempty,dive,gt=0"`
}

func (h *CheckHandler) Balance(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, services.QueryBalance{}, http.StatusOK)
}

func (h *CheckHandler) List(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, services.QueryChecks{}, http.StatusOK)
}

func (h *CheckHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req issueReq
	if !decode(w, r, &req) {
		return
	}
	cmd := services.IssueCheck{Counterparty: req.Counterparty, Amount: req.Amount}
	if req.MaturityDate != "" {
		t, err := services.ParseMaturity(req.MaturityDate)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_date", err.Error(), nil)
			return
		}
		cmd.Maturity = &t
	}
	h.run(w, r, cmd, http.StatusCreated)
}

func (h *CheckHandler) Accept(w http.ResponseWriter, r *http.Request) {
	var req decideReq
	if !decode(w, r, &req) {
		return
	}
	h.run(w, r, services.AcceptCheck{CheckIDs: req.CheckIDs, IssuerName: req.IssuerName, All: req.All}, http.StatusOK)
}

func (h *CheckHandler) Deny(w http.ResponseWriter, r *http.Request) {
	var req decideReq
	if !decode(w, r, &req) {
		return
	}
	h.run(w, r, services.DenyCheck{CheckIDs: req.CheckIDs, IssuerName: req.IssuerName}, http.StatusOK)
}

func (h *CheckHandler) AcceptOne(w http.ResponseWriter, r *http.Request) {
	if id, ok := checkID(w, r); ok {
		h.run(w, r, services.AcceptCheck{CheckIDs: []int64{id}}, http.StatusOK)
	}
}

func (h *CheckHandler) DenyOne(w http.ResponseWriter, r *http.Request) {
	if id, ok := checkID(w, r); ok {
		h.run(w, r, services.DenyCheck{CheckIDs: []int64{id}}, http.StatusOK)
	}
}

func (h *CheckHandler) Forward(w http.ResponseWriter, r *http.Request) {
	id, ok := checkID(w, r)
	if !ok {
		return
	}
	var req forwardReq
	if !decode(w, r, &req) {
		return
	}
	h.run(w, r, services.ForwardCheck{CheckID: id, ToCounterparty: req.To}, http.StatusOK)
}

func (h *CheckHandler) RevokeOne(w http.ResponseWriter, r *http.Request) {
	if id, ok := checkID(w, r); ok {
		h.run(w, r, services.RevokeOp{CheckIDs: []int64{id}}, http.StatusOK)
	}
}

func (h *CheckHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	var req revokeReq
	if !decode(w, r, &req) {
		return
	}
	h.run(w, r, services.RevokeOp{CheckIDs: req.CheckIDs}, http.StatusOK)
}

// Command accepts the interpreter's wire format as is.
func (h *CheckHandler) Command(w http.ResponseWriter, r *http.Request) {
	var req services.WireRequest
	if !decode(w, r, &req) {
		return
	}
	p, _ := middleware.PartyFrom(r.Context())
	env, err := req.Envelope(p.ID)
	switch {
	case errors.Is(err, services.ErrUnsupported):
		httpx.WriteError(w, http.StatusUnprocessableEntity, "unsupported", err.Error(), nil)
		return
	case errors.Is(err, services.ErrInvalidDate):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_date", err.Error(), nil)
		return
	case err != nil:
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed", err.Error(), nil)
		return
	}
	h.execute(w, r, env, http.StatusOK)
}

func (h *CheckHandler) History(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PartyFrom(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.Audit.History(r.Context(), p.ID, limit)
	if err != nil {
		slog.Error("history", "party_id", p.ID, "err", err)
		httpx.WriteInternal(w)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *CheckHandler) run(w http.ResponseWriter, r *http.Request, cmd services.Command, okStatus int) {
	p, _ := middleware.PartyFrom(r.Context())
	h.execute(w, r, services.Envelope{CallerID: p.ID, Command: cmd}, okStatus)
}

func (h *CheckHandler) execute(w http.ResponseWriter, r *http.Request, env services.Envelope, okStatus int) {
	out, err := h.Commands.Execute(r.Context(), env)
	if err != nil {
		slog.Error("command",
			"operation", env.Command.Operation(),
			"party_id", env.CallerID,
			"request_id", middleware.RequestIDFrom(r.Context()),
			"err", err,
		)
		httpx.WriteInternal(w)
		return
	}
	httpx.WriteJSON(w, statusFor(out.Result, okStatus), out)
}

func statusFor(res services.Result, okStatus int) int {
	switch {
	case res.Success:
		return okStatus
	case res.Failure == services.MissingParameters:
		return http.StatusBadRequest
	}
	return http.StatusUnprocessableEntity
}

func checkID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid check id", nil)
		return 0, false
	}
	return id, true
}

// Health reports liveness with the server time.
func Health(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}
