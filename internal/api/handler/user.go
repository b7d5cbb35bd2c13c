package handler

import (
	"civicdesk/backend/internal/api/resp"
	"civicdesk/backend/internal/models"

	"github.com/gin-gonic/gin"
)

type roleRequest struct {
	Role       models.Role `json:"role" binding:"required,role"`
	Department string      `json:"department"`
}

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.Auth.ListUsers(c.Request.Context(), models.Role(c.Query("role")))
	if err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, users)
}

// ListStaff returns the officials and admins a complaint can be assigned to.
func (h *Handler) ListStaff(c *gin.Context) {
	users, err := h.Auth.ListStaff(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, users)
}

func (h *Handler) UpdateUserRole(c *gin.Context) {
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.BadRequest(c, "role must be one of citizen, official, admin")
		return
	}
	u, err := h.Auth.UpdateRole(c.Request.Context(), currentUser(c), c.Param("id"), req.Role, req.Department)
	if err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, u)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	if err := h.Auth.DeleteUser(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, gin.H{"id": c.Param("id")})
}
