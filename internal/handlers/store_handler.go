package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"crazypromo/internal/affiliate"
	"crazypromo/internal/models"
	"crazypromo/internal/services"
)

// StoreHandler handles partner store requests.
type StoreHandler struct {
	storeService services.StoreServicer
	auditService services.AuditServicer
}

// NewStoreHandler creates a new StoreHandler.
func NewStoreHandler(storeService services.StoreServicer, auditService services.AuditServicer) *StoreHandler {
	return &StoreHandler{storeService: storeService, auditService: auditService}
}

// AffiliateConfigRequest is the affiliate link configuration of a store.
type AffiliateConfigRequest struct {
	Type           affiliate.LinkType `json:"type" binding:"required,affiliate_type"`
	ParamName      string             `json:"param_name"`
	PathPrefix     string             `json:"path_prefix"`
	CustomTemplate string             `json:"custom_template"`
	MerchantID     string             `json:"merchant_id"`
}

func (r *AffiliateConfigRequest) toConfig() *affiliate.Config {
	if r == nil {
		return nil
	}
	return &affiliate.Config{
		Type:           r.Type,
		ParamName:      r.ParamName,
		PathPrefix:     r.PathPrefix,
		CustomTemplate: r.CustomTemplate,
		MerchantID:     r.MerchantID,
	}
}

// CreateStoreRequest represents the request payload for creating a store
type CreateStoreRequest struct {
	Name            string                  `json:"name" binding:"required,max=200"`
	Website         string                  `json:"website" binding:"omitempty,url"`
	Logo            string                  `json:"logo" binding:"omitempty,url"`
	Description     string                  `json:"description" binding:"max=2000"`
	AffiliateID     string                  `json:"affiliate_id" binding:"max=200"`
	AffiliateConfig *AffiliateConfigRequest `json:"affiliate_config"`
	Commission      float64                 `json:"commission" binding:"gte=0,lte=100"`
	FeedURL         string                  `json:"feed_url" binding:"omitempty,url"`
	FeedType        models.FeedType         `json:"feed_type" binding:"omitempty,feed_type"`
	FeedMapping     map[string]string       `json:"feed_mapping"`
}

// UpdateStoreRequest represents the request payload for updating a store.
// Omitted fields are left unchanged.
type UpdateStoreRequest struct {
	Name            *string                 `json:"name" binding:"omitempty,min=1,max=200"`
	Website         *string                 `json:"website" binding:"omitempty"`
	Logo            *string                 `json:"logo"`
	Description     *string                 `json:"description" binding:"omitempty,max=2000"`
	AffiliateID     *string                 `json:"affiliate_id" binding:"omitempty,max=200"`
	AffiliateConfig *AffiliateConfigRequest `json:"affiliate_config"`
	Commission      *float64                `json:"commission" binding:"omitempty,gte=0,lte=100"`
	FeedURL         *string                 `json:"feed_url"`
	FeedType        *models.FeedType        `json:"feed_type" binding:"omitempty,feed_type"`
	FeedMapping     map[string]string       `json:"feed_mapping"`
	IsActive        *bool                   `json:"is_active"`
}

// ListStores returns stores, active ones only unless include_inactive is set
// @Summary     List stores
// @Description Get a paginated list of partner stores ordered by name
// @Tags        stores
// @Produce     json
// @Param       page query int false "Page number" minimum(1)
// @Param       page_size query int false "Items per page" minimum(1) maximum(100)
// @Param       include_inactive query bool false "Include inactive stores"
// @Success     200 {object} pagination.PageResponse[models.Store] "Stores"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /stores [get]
func (h *StoreHandler) ListStores(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.storeService.ListStores(c.Request.Context(), !queryBool(c, "include_inactive"), page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetStore returns one store
// @Summary     Get store
// @Description Get a store by ID or slug
// @Tags        stores
// @Produce     json
// @Param       id path string true "Store ID or slug"
// @Success     200 {object} models.Store "Store"
// @Failure     404 {object} ErrorResponse "Store not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /stores/{id} [get]
func (h *StoreHandler) GetStore(c *gin.Context) {
	store, err := h.storeService.GetStore(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"store": store})
}

// CreateStore creates a partner store
// @Summary     Create store
// @Description Create a partner store with optional affiliate and feed settings
// @Tags        stores
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateStoreRequest true "Store details"
// @Success     201 {object} models.Store "Store created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     409 {object} ErrorResponse "Duplicate slug"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /admin/stores [post]
func (h *StoreHandler) CreateStore(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	store, err := h.storeService.CreateStore(c.Request.Context(), services.StoreInput{
		Name:            req.Name,
		Website:         req.Website,
		Logo:            req.Logo,
		Description:     req.Description,
		AffiliateID:     req.AffiliateID,
		AffiliateConfig: req.AffiliateConfig.toConfig(),
		Commission:      req.Commission,
		FeedURL:         req.FeedURL,
		FeedType:        req.FeedType,
		FeedMapping:     req.FeedMapping,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "CREATE_STORE", "store", store.ID, c.ClientIP(),
		map[string]interface{}{"name": store.Name, "feed_type": store.FeedType})
	c.JSON(http.StatusCreated, gin.H{"store": store})
}

// UpdateStore updates a partner store
// @Summary     Update store
// @Description Update store fields. Changing affiliate settings regenerates the affiliate links of the store's products.
// @Tags        stores
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Store ID"
// @Param       request body UpdateStoreRequest true "Store changes"
// @Success     200 {object} models.Store "Store updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Store not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /admin/stores/{id} [put]
func (h *StoreHandler) UpdateStore(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	store, err := h.storeService.UpdateStore(c.Request.Context(), c.Param("id"), services.StoreUpdate{
		Name:            req.Name,
		Website:         req.Website,
		Logo:            req.Logo,
		Description:     req.Description,
		AffiliateID:     req.AffiliateID,
		AffiliateConfig: req.AffiliateConfig.toConfig(),
		Commission:      req.Commission,
		FeedURL:         req.FeedURL,
		FeedType:        req.FeedType,
		FeedMapping:     req.FeedMapping,
		IsActive:        req.IsActive,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "UPDATE_STORE", "store", store.ID, c.ClientIP(), nil)
	c.JSON(http.StatusOK, gin.H{"store": store})
}

// DeleteStore deletes a store without products
// @Summary     Delete store
// @Description Delete a store. Stores that still have products cannot be deleted.
// @Tags        stores
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Store ID"
// @Success     200 {object} map[string]string "Store deleted"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Store not found"
// @Failure     409 {object} ErrorResponse "Store has products"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /admin/stores/{id} [delete]
func (h *StoreHandler) DeleteStore(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id := c.Param("id")
	if err := h.storeService.DeleteStore(c.Request.Context(), id); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "DELETE_STORE", "store", id, c.ClientIP(), nil)
	c.JSON(http.StatusOK, gin.H{"message": "Store deleted successfully"})
}
