package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "crazypromo/internal/errors"
	"crazypromo/internal/feeds"
	"crazypromo/internal/models"
	"crazypromo/internal/services"
)

// FeedHandler handles partner feed imports.
type FeedHandler struct {
	feedService  services.FeedServicer
	storeService services.StoreServicer
	auditService services.AuditServicer
	maxBytes     int64
}

// NewFeedHandler creates a new FeedHandler. maxBytes caps an uploaded
// payload; zero uses feeds.DefaultMaxBytes.
func NewFeedHandler(feedService services.FeedServicer, storeService services.StoreServicer, auditService services.AuditServicer, maxBytes int64) *FeedHandler {
	if maxBytes <= 0 {
		maxBytes = feeds.DefaultMaxBytes
	}
	return &FeedHandler{
		feedService:  feedService,
		storeService: storeService,
		auditService: auditService,
		maxBytes:     maxBytes,
	}
}

// FeedStoreResponse is a store whose feed can be synchronised
type FeedStoreResponse struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Slug         string          `json:"slug"`
	FeedType     models.FeedType `json:"feed_type"`
	LastFeedSync *time.Time      `json:"last_feed_sync,omitempty"`
}

// readPayload returns the uploaded file of a multipart request, or the raw
// request body otherwise.
func (h *FeedHandler) readPayload(c *gin.Context) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)

	var src io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		file, _, err := c.Request.FormFile("file")
		if err != nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "file is required")
		}
		defer func() { _ = file.Close() }()
		src = file
	}

	data, err := io.ReadAll(src)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "feed payload is too large")
		}
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "failed to read feed payload")
	}
	if len(data) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "feed payload is empty")
	}
	return data, nil
}

// ImportFeed imports an uploaded feed payload for a store
// @Summary     Import feed
// @Description Parse a JSON, XML or CSV feed and reconcile its entries with the store's products. Send the payload as the request body or as a multipart "file".
// @Tags        feeds
// @Accept      json,xml,plain,mpfd
// @Produce     json
// @Security    BearerAuth
// @Param       store_id query string true "Store ID or slug"
// @Param       provider query string false "lomadee, awin or csv (default: the store's feed type)"
// @Success     200 {object} services.ImportResult "Import summary"
// @Failure     400 {object} ErrorResponse "Invalid input or unsupported feed type"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Store not found"
// @Failure     422 {object} ErrorResponse "Feed could not be parsed"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /admin/feeds/import [post]
func (h *FeedHandler) ImportFeed(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	storeID := c.Query("store_id")
	if storeID == "" {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "store_id is required"))
		return
	}

	data, err := h.readPayload(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.feedService.ImportFeed(c.Request.Context(), storeID, feeds.Provider(c.Query("provider")), data)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "IMPORT_FEED", "store", result.StoreID, c.ClientIP(),
		map[string]interface{}{"provider": result.Provider, "imported": result.Imported, "updated": result.Updated, "errors": result.Errors})
	c.JSON(http.StatusOK, result)
}

// SyncStore fetches and imports a store's configured feed
// @Summary     Sync store feed
// @Description Download the store's configured feed and import it
// @Tags        feeds
// @Produce     json
// @Security    ApiKeyAuth
// @Param       store_id path string true "Store ID or slug"
// @Success     200 {object} services.ImportResult "Import summary"
// @Failure     400 {object} ErrorResponse "Store has no feed configured"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     404 {object} ErrorResponse "Store not found"
// @Failure     422 {object} ErrorResponse "Feed could not be parsed"
// @Failure     502 {object} ErrorResponse "Feed could not be fetched"
// @Router      /pipeline/feeds/{store_id}/sync [post]
func (h *FeedHandler) SyncStore(c *gin.Context) {
	result, err := h.feedService.SyncStore(c.Request.Context(), c.Param("store_id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListFeedStores lists the stores with a configured feed
// @Summary     List feed stores
// @Description Active stores with a feed URL and type, for the feed synchroniser
// @Tags        feeds
// @Produce     json
// @Security    ApiKeyAuth
// @Success     200 {array} FeedStoreResponse "Feed stores"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /pipeline/feeds/stores [get]
func (h *FeedHandler) ListFeedStores(c *gin.Context) {
	stores, err := h.storeService.ListFeedStores(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}

	out := make([]FeedStoreResponse, len(stores))
	for i, s := range stores {
		out[i] = FeedStoreResponse{ID: s.ID, Name: s.Name, Slug: s.Slug, FeedType: s.FeedType, LastFeedSync: s.LastFeedSync}
	}
	c.JSON(http.StatusOK, gin.H{"stores": out})
}
