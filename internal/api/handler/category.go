package handler

import (
	"civicdesk/backend/internal/api/resp"
	"civicdesk/backend/internal/category"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListCategories(c *gin.Context) {
	list, err := h.Categories.List(c.Request.Context(), true)
	if err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, list)
}

// ListAllCategories includes inactive ones for the admin console.
func (h *Handler) ListAllCategories(c *gin.Context) {
	list, err := h.Categories.List(c.Request.Context(), false)
	if err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, list)
}

func (h *Handler) CreateCategory(c *gin.Context) {
	var in category.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		resp.BadRequest(c, "invalid category payload")
		return
	}
	cat, err := h.Categories.Create(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	resp.Created(c, cat)
}

func (h *Handler) UpdateCategory(c *gin.Context) {
	var in category.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		resp.BadRequest(c, "invalid category payload")
		return
	}
	cat, err := h.Categories.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, cat)
}

func (h *Handler) DeleteCategory(c *gin.Context) {
	res, err := h.Categories.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, res)
}
