package support

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-support/backend/internal/middleware"
	supportService "github.com/zhouzirui/z-support/backend/internal/service/support"
	"github.com/zhouzirui/z-support/backend/pkg/utils"
)

// Handler 客服工单的HTTP处理器
type Handler struct {
	svc         *supportService.Service
	adminSecret string
}

// New 创建工单处理器
func New(svc *supportService.Service, adminSecret string) *Handler {
	return &Handler{
		svc:         svc,
		adminSecret: adminSecret,
	}
}

// RegisterRoutes 注册用户端与管理端路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/tickets", h.handleOpenTicket)
	r.Get("/tickets/{ticketID}", h.handleGetTicket)
	r.Post("/tickets/{ticketID}/messages", h.handleSubmit)

	r.Route("/admin", func(admin chi.Router) {
		admin.Use(middleware.RequireAdmin(h.adminSecret))
		admin.Get("/tickets", h.handleListTickets)
		admin.Get("/tickets/{ticketID}", h.handleGetTicket)
		admin.Post("/tickets/{ticketID}/replies", h.handleReply)
		admin.Post("/tickets/{ticketID}/close", h.handleClose)
	})
}

type messagePayload struct {
	Text string `json:"text"`
}

// handleOpenTicket 为新访客分配工单号
func (h *Handler) handleOpenTicket(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.OpenTicket(r.Context())
	if err != nil {
		log.Printf("[support] open ticket failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to open ticket")
		return
	}
	utils.RespondJSON(w, http.StatusCreated, view)
}

// handleGetTicket 查询单个工单
func (h *Handler) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Get(r.Context(), chi.URLParam(r, "ticketID"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, view)
}

// handleSubmit 用户发送消息
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload messagePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	view, err := h.svc.Submit(r.Context(), chi.URLParam(r, "ticketID"), payload.Text)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusAccepted, view)
}

// handleReply 管理员回复
func (h *Handler) handleReply(w http.ResponseWriter, r *http.Request) {
	var payload messagePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	view, err := h.svc.Reply(r.Context(), chi.URLParam(r, "ticketID"), payload.Text)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusAccepted, view)
}

// handleClose 管理员关闭工单
func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.CloseTicket(r.Context(), chi.URLParam(r, "ticketID"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, view)
}

// handleListTickets 按状态列出工单
func (h *Handler) handleListTickets(w http.ResponseWriter, r *http.Request) {
	status, ok := supportService.ParseStatus(r.URL.Query().Get("status"))
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "status must be open, closed or all")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			utils.RespondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	views, err := h.svc.List(r.Context(), supportService.ListFilter{Status: status, Limit: limit})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, views)
}

// respondServiceError 把业务错误映射为状态码；追加与关闭失败以警告形式返回
func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, supportService.ErrTicketNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, supportService.ErrTicketClosed):
		utils.RespondWarning(w, http.StatusConflict, err.Error())
	case errors.Is(err, supportService.ErrEmptyMessage), errors.Is(err, supportService.ErrInvalidTicketID):
		utils.RespondWarning(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("[support] request failed: %v", err)
		utils.RespondWarning(w, http.StatusInternalServerError, "your request could not be saved, please try again")
	}
}
