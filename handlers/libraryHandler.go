package handlers

import (
	"SmartDentist/middlewares"
	"SmartDentist/models"
	"SmartDentist/services"
	"net/http"

	"github.com/gin-gonic/gin"
)

type LibraryHandler struct {
	service  *services.LibraryService
	mediaURL string
}

func NewLibraryHandler(service *services.LibraryService, mediaURL string) *LibraryHandler {
	return &LibraryHandler{service: service, mediaURL: mediaURL}
}

func (h *LibraryHandler) ListEntries(c *gin.Context) {
	entries, err := h.service.List(c.Request.Context())
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	urls := newMediaURLs(c, h.mediaURL)
	out := make([]*libraryResponse, 0, len(entries))
	for i := range entries {
		out = append(out, urls.library(&entries[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *LibraryHandler) GetEntry(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	entry, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newMediaURLs(c, h.mediaURL).library(entry))
}

func (h *LibraryHandler) CreateEntry(c *gin.Context) {
	var entry models.ImplantLibrary
	if err := c.ShouldBindJSON(&entry); err != nil {
		middlewares.HttpError(c, err.Error(), http.StatusBadRequest, err)
		return
	}
	entry.ID = 0
	if err := h.service.Create(c.Request.Context(), &entry); err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newMediaURLs(c, h.mediaURL).library(&entry))
}
