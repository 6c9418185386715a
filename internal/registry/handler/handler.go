package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"atelier/internal/registry/models"
	"atelier/pkg/domain"
	dErrors "atelier/pkg/domain-errors"
	"atelier/pkg/platform/httputil"
	"atelier/pkg/requestcontext"
)

// Service defines the registry operations exposed over HTTP.
type Service interface {
	TransferAdmin(ctx context.Context, caller, newAdmin domain.Address) error
	SetPaused(ctx context.Context, caller domain.Address, paused bool) (bool, error)
	Mint(ctx context.Context, caller domain.Address, req models.MintRequest) (domain.TokenID, error)
	Transfer(ctx context.Context, caller domain.Address, id domain.TokenID, recipient domain.Address) error
	Approve(ctx context.Context, caller domain.Address, id domain.TokenID, operator domain.Address) error
	RevokeApproval(ctx context.Context, caller domain.Address, id domain.TokenID) error
	Burn(ctx context.Context, caller domain.Address, id domain.TokenID) error
	UpdateMetadata(ctx context.Context, caller domain.Address, id domain.TokenID, update models.MetadataUpdate) (uint32, error)
	FreezeMetadata(ctx context.Context, caller domain.Address, id domain.TokenID) error

	Token(ctx context.Context, id domain.TokenID) (*models.Token, bool, error)
	Status(ctx context.Context) (models.Control, error)
	OwnedTokens(ctx context.Context, owner domain.Address) (models.OwnerIndex, error)
	TokenByIndex(ctx context.Context, owner domain.Address, index int) (domain.TokenID, bool, error)
}

// Handler wires registry endpoints to the registry service.
type Handler struct {
	service Service
	auth    func(http.Handler) http.Handler
	logger  *slog.Logger
}

// New constructs a registry handler. auth guards every mutating route and must
// store the caller via requestcontext.WithCaller.
func New(service Service, auth func(http.Handler) http.Handler, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		auth:    auth,
		logger:  logger,
	}
}

// Register mounts registry endpoints on the router. Reads are public.
func (h *Handler) Register(r chi.Router) {
	r.Get("/admin", h.HandleStatus)
	r.Get("/tokens/{id}", h.HandleGetToken)
	r.Get("/owners/{address}", h.HandleGetOwner)
	r.Get("/owners/{address}/tokens/{index}", h.HandleTokenByIndex)

	r.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Post("/admin/transfer", h.HandleTransferAdmin)
		r.Post("/admin/paused", h.HandleSetPaused)
		r.Post("/tokens", h.HandleMint)
		r.Post("/tokens/{id}/transfer", h.HandleTransfer)
		r.Post("/tokens/{id}/approval", h.HandleApprove)
		r.Delete("/tokens/{id}/approval", h.HandleRevokeApproval)
		r.Delete("/tokens/{id}", h.HandleBurn)
		r.Put("/tokens/{id}/metadata", h.HandleUpdateMetadata)
		r.Post("/tokens/{id}/metadata/freeze", h.HandleFreezeMetadata)
	})
}

// =============================================================================
// Admin
// =============================================================================

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	control, err := h.service.Status(r.Context())
	if err != nil {
		h.fail(w, r, "failed to load registry status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		Admin:       control.Admin,
		Paused:      control.Paused,
		LastTokenID: control.LastTokenID,
	})
}

func (h *Handler) HandleTransferAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[TransferAdminRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.service.TransferAdmin(ctx, caller, req.newAdmin); err != nil {
		h.fail(w, r, "admin transfer failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleSetPaused(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[PauseRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	paused, err := h.service.SetPaused(ctx, caller, *req.Paused)
	if err != nil {
		h.fail(w, r, "set paused failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, PausedResponse{Paused: paused})
}

// =============================================================================
// Tokens
// =============================================================================

func (h *Handler) HandleMint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[MintRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	id, err := h.service.Mint(ctx, caller, req.toModel())
	if err != nil {
		h.fail(w, r, "mint failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, MintResponse{TokenID: id})
}

func (h *Handler) HandleGetToken(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tokenID(w, r)
	if !ok {
		return
	}
	token, found, err := h.service.Token(r.Context(), id)
	if err != nil {
		h.fail(w, r, "failed to load token", err)
		return
	}
	if !found {
		httputil.WriteJSON(w, http.StatusNotFound, TokenResponse{Found: false})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tokenResponse(token))
}

func (h *Handler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := h.tokenID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[TransferRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.service.Transfer(ctx, caller, id, req.recipient); err != nil {
		h.fail(w, r, "transfer failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := h.tokenID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ApproveRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.service.Approve(ctx, caller, id, req.operator); err != nil {
		h.fail(w, r, "approve failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleRevokeApproval(w http.ResponseWriter, r *http.Request) {
	h.tokenCall(w, r, "revoke approval failed", h.service.RevokeApproval)
}

func (h *Handler) HandleBurn(w http.ResponseWriter, r *http.Request) {
	h.tokenCall(w, r, "burn failed", h.service.Burn)
}

func (h *Handler) HandleFreezeMetadata(w http.ResponseWriter, r *http.Request) {
	h.tokenCall(w, r, "freeze metadata failed", h.service.FreezeMetadata)
}

func (h *Handler) HandleUpdateMetadata(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := h.tokenID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[MetadataRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	version, err := h.service.UpdateMetadata(ctx, caller, id, req.toModel())
	if err != nil {
		h.fail(w, r, "metadata update failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, VersionResponse{Version: version})
}

// tokenCall handles the bodiless mutations that take only a token id.
func (h *Handler) tokenCall(w http.ResponseWriter, r *http.Request, failure string, call func(context.Context, domain.Address, domain.TokenID) error) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := h.tokenID(w, r)
	if !ok {
		return
	}
	if err := call(r.Context(), caller, id); err != nil {
		h.fail(w, r, failure, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Owners
// =============================================================================

func (h *Handler) HandleGetOwner(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	owned, err := h.service.OwnedTokens(r.Context(), owner)
	if err != nil {
		h.fail(w, r, "failed to load owner index", err)
		return
	}
	tokens := []domain.TokenID(owned)
	if tokens == nil {
		tokens = []domain.TokenID{}
	}
	httputil.WriteJSON(w, http.StatusOK, OwnerResponse{Owner: owner, Balance: owned.Count(), Tokens: tokens})
}

func (h *Handler) HandleTokenByIndex(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "index must be an integer"))
		return
	}
	id, found, err := h.service.TokenByIndex(r.Context(), owner, index)
	if err != nil {
		h.fail(w, r, "failed to read owner index", err)
		return
	}
	if !found {
		httputil.WriteJSON(w, http.StatusNotFound, TokenByIndexResponse{Found: false})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, TokenByIndexResponse{Found: true, TokenID: id})
}

// =============================================================================
// Helpers
// =============================================================================

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (domain.Address, bool) {
	caller, ok := requestcontext.Caller(r.Context())
	if !ok || caller.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return domain.Address{}, false
	}
	return caller, true
}

func (h *Handler) tokenID(w http.ResponseWriter, r *http.Request) (domain.TokenID, bool) {
	id, err := domain.ParseTokenID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return 0, false
	}
	return id, true
}

func (h *Handler) owner(w http.ResponseWriter, r *http.Request) (domain.Address, bool) {
	owner, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return domain.Address{}, false
	}
	return owner, true
}

// fail logs and writes err. Rejections are logged by the service.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if _, rejected := models.CodeOf(err); !rejected {
		ctx := r.Context()
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
