package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"product-catalog/internal/catalog"
	"product-catalog/internal/catalog/validate"

	"github.com/gin-gonic/gin"
)

type CatalogService interface {
	CreateProducts(ctx context.Context, inputs []catalog.ProductInput) ([]catalog.Product, error)
	ListProducts(ctx context.Context) ([]catalog.Product, error)
	GetProduct(ctx context.Context, id string) (catalog.Product, error)
	UpdateProduct(ctx context.Context, id string, input catalog.ProductInput) (catalog.Product, error)
	DeleteProduct(ctx context.Context, id string) (catalog.Product, error)
	Reset(ctx context.Context) error
	ListWithUsers(ctx context.Context) ([]catalog.Product, int, error)
	Health(ctx context.Context) error
}

type Handler struct {
	service     CatalogService
	serviceName string
}

func NewHandler(svc CatalogService, serviceName string) *Handler {
	return &Handler{service: svc, serviceName: serviceName}
}

type errorResponse struct {
	Error  string `json:"error" example:"product not found"`
	Detail string `json:"detail,omitempty" example:"no row with id 7"`
}

type validationResponse struct {
	Error   string           `json:"error" example:"validation failed"`
	Details []validate.Error `json:"details"`
}

type healthResponse struct {
	Status  string `json:"status" example:"ok"`
	Service string `json:"service" example:"catalog-api"`
}

type dbHealthResponse struct {
	OK    bool   `json:"ok" example:"true"`
	Error string `json:"error,omitempty"`
}

type withUsersResponse struct {
	Products   []catalog.Product `json:"products"`
	UsersCount int               `json:"usersCount" example:"3"`
}

type messageResponse struct {
	Message string `json:"message" example:"catalog reset"`
}

// Health godoc
// @Summary      Service liveness
// @Tags         health
// @Produce      json
// @Success      200  {object}  healthResponse
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{Status: "ok", Service: h.serviceName})
}

// DBHealth godoc
// @Summary      Store round-trip health check
// @Tags         health
// @Produce      json
// @Success      200  {object}  dbHealthResponse
// @Failure      500  {object}  dbHealthResponse
// @Router       /db/health [get]
func (h *Handler) DBHealth(c *gin.Context) {
	if err := h.service.Health(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, dbHealthResponse{OK: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dbHealthResponse{OK: true})
}

// ListProducts godoc
// @Summary      List all products in insertion order
// @Tags         products
// @Produce      json
// @Success      200  {array}   catalog.Product
// @Failure      500  {object}  errorResponse
// @Router       /products [get]
func (h *Handler) ListProducts(c *gin.Context) {
	list, err := h.service.ListProducts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetProduct godoc
// @Summary      Get a product by id
// @Tags         products
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  catalog.Product
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /products/{id} [get]
func (h *Handler) GetProduct(c *gin.Context) {
	p, err := h.service.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// CreateProducts godoc
// @Summary      Create one product or a batch
// @Description  Accepts a single JSON object or a JSON array. The response
// @Description  mirrors the request shape. A batch is written all-or-nothing.
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        body  body      catalog.ProductInput  true  "Product data (object or array)"
// @Success      201   {object}  catalog.Product
// @Failure      400   {object}  validationResponse
// @Failure      500   {object}  errorResponse
// @Router       /products [post]
func (h *Handler) CreateProducts(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	inputs, isBatch, err := decodeCreateBody(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	created, err := h.service.CreateProducts(c.Request.Context(), inputs)
	if err != nil {
		respondError(c, err)
		return
	}

	if isBatch {
		c.JSON(http.StatusCreated, created)
		return
	}
	c.JSON(http.StatusCreated, created[0])
}

// decodeCreateBody accepts either a single product object or an array of
// them, mirroring the shape back to the caller via isBatch.
func decodeCreateBody(raw []byte) (inputs []catalog.ProductInput, isBatch bool, err error) {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(raw, &inputs); err != nil {
			return nil, true, err
		}
		return inputs, true, nil
	}

	var single catalog.ProductInput
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, false, err
	}
	return []catalog.ProductInput{single}, false, nil
}

// UpdateProduct godoc
// @Summary      Replace a product's name and price
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id    path      string                true  "Product ID"
// @Param        body  body      catalog.ProductInput  true  "Replacement fields"
// @Success      200   {object}  catalog.Product
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /products/{id} [put]
func (h *Handler) UpdateProduct(c *gin.Context) {
	var input catalog.ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	p, err := h.service.UpdateProduct(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// DeleteProduct godoc
// @Summary      Delete a product by id
// @Tags         products
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  catalog.Product
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /products/{id} [delete]
func (h *Handler) DeleteProduct(c *gin.Context) {
	deleted, err := h.service.DeleteProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, deleted)
}

// ResetCatalog godoc
// @Summary      Delete every product and restart the id sequence
// @Tags         products
// @Produce      json
// @Success      200  {object}  messageResponse
// @Failure      500  {object}  errorResponse
// @Router       /tables [put]
func (h *Handler) ResetCatalog(c *gin.Context) {
	if err := h.service.Reset(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "catalog reset"})
}

// ListWithUsers godoc
// @Summary      List products together with the remote user count
// @Tags         products
// @Produce      json
// @Success      200  {object}  withUsersResponse
// @Failure      502  {object}  errorResponse
// @Router       /products/with-users [get]
func (h *Handler) ListWithUsers(c *gin.Context) {
	list, count, err := h.service.ListWithUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, withUsersResponse{Products: list, UsersCount: count})
}

// respondError translates the unified error taxonomy into HTTP statuses.
// Anything it does not recognize is a store failure.
func respondError(c *gin.Context, err error) {
	var batchErrs validate.Errors
	if errors.As(err, &batchErrs) {
		c.JSON(http.StatusBadRequest, validationResponse{Error: "validation failed", Details: batchErrs})
		return
	}

	var singleErr validate.Error
	if errors.As(err, &singleErr) {
		c.JSON(http.StatusBadRequest, errorResponse{Error: singleErr.Detail})
		return
	}

	switch {
	case errors.Is(err, catalog.ErrInvalidID):
		c.JSON(http.StatusBadRequest, errorResponse{Error: catalog.ErrInvalidID.Error()})
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: catalog.ErrNotFound.Error()})
	case errors.Is(err, catalog.ErrUsersUnavailable):
		c.JSON(http.StatusBadGateway, errorResponse{Error: catalog.ErrUsersUnavailable.Error(), Detail: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "store error", Detail: err.Error()})
	}
}
