package handler

import (
	"github.com/gin-gonic/gin"

	"seochat/internal/app"
	"seochat/internal/transport/http/response"
)

type ClientHandler struct {
	tenants *app.TenantService
}

type RegisterClientRequest struct {
	Name    string `form:"name" json:"name" binding:"required"`
	Website string `form:"website" json:"website" binding:"required"`
}

type PromptRequest struct {
	Name   string `form:"name" json:"name" binding:"required"`
	Prompt string `form:"prompt" json:"prompt"`
}

type UpdateDataRequest struct {
	Name          string `form:"name" json:"name" binding:"required"`
	ExtractedText string `form:"extracted_text" json:"extracted_text"`
}

func NewClientHandler(tenants *app.TenantService) *ClientHandler {
	return &ClientHandler{tenants: tenants}
}

func (h *ClientHandler) Register(c *gin.Context) {
	var req RegisterClientRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, app.ErrInvalidInput)
		return
	}

	result, err := h.tenants.RegisterWebsite(c.Request.Context(), req.Name, req.Website)
	if err != nil {
		response.Error(c, err)
		return
	}

	message := "client data updated"
	if result.Created {
		message = "client data saved"
	}
	response.OK(c, gin.H{"message": message, "client_id": result.ClientID})
}

func (h *ClientHandler) SetPrompt(c *gin.Context) {
	var req PromptRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, app.ErrInvalidInput)
		return
	}
	if err := h.tenants.SetPrompt(c.Request.Context(), req.Name, req.Prompt); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "prompt saved"})
}

func (h *ClientHandler) Get(c *gin.Context) {
	client, err := h.tenants.GetProfile(c.Request.Context(), c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{
		"name":           client.Name,
		"website":        client.Website,
		"extracted_text": client.ExtractedText,
		"custom_prompt":  client.CustomPrompt,
	})
}

func (h *ClientHandler) UpdateData(c *gin.Context) {
	var req UpdateDataRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, app.ErrInvalidInput)
		return
	}
	if err := h.tenants.UpdateExtractedText(c.Request.Context(), req.Name, req.ExtractedText); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "data updated"})
}
