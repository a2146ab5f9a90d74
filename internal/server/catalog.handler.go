package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *handler) createCustomer(c *gin.Context) {
	var req customerRequest
	if !bindJSON(c, &req) {
		return
	}
	customer, err := h.svc.Customers.CreateCustomer(c.Request.Context(), req.Email, req.FullName, req.Points)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, "customer created", toCustomer(customer))
}

func (h *handler) getCustomer(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	customer, err := h.svc.Customers.GetCustomer(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, "customer found", toCustomer(customer))
}

func (h *handler) createProduct(c *gin.Context) {
	var req productRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.Products.CreateProduct(c.Request.Context(), req.Name, req.Stock, req.Price)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, "product created", toProductWithPrice(p))
}

func (h *handler) listProducts(c *gin.Context) {
	page, ok := queryPage(c)
	if !ok {
		return
	}
	products, err := h.svc.Products.ListProducts(c.Request.Context(), page)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProduct(p))
	}
	writeJSON(c, http.StatusOK, "products listed", out)
}

func (h *handler) getProduct(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	p, err := h.svc.Products.GetProduct(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, "product found", toProductWithPrice(p))
}

func (h *handler) setActivePrice(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req priceRequest
	if !bindJSON(c, &req) {
		return
	}
	price, err := h.svc.Products.SetActivePrice(c.Request.Context(), id, req.Price)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, "price updated", toPrice(*price))
}

func (h *handler) restock(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req restockRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.Products.Restock(c.Request.Context(), id, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, "product restocked", toProduct(*p))
}

func (h *handler) deleteProduct(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Products.DeleteProduct(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, "product deleted", nil)
}
