package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"shop-orders/internal/domain"
	"shop-orders/internal/service"
)

func (h *handler) createOrder(c *gin.Context) {
	var req orderRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Orders.CreateOrder(c.Request.Context(), req.toService())
	if err != nil {
		writeError(c, err)
		return
	}
	skipped := res.SkippedVouchers
	if skipped == nil {
		skipped = []service.SkippedVoucher{}
	}
	writeJSON(c, http.StatusCreated, "order placed", createOrderResponse{Order: toOrder(res.Order), SkippedVouchers: skipped})
}

func (h *handler) getOrder(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	o, err := h.svc.Orders.GetOrderDetails(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, "order found", toOrder(o))
}

func (h *handler) listCustomerOrders(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	page, ok := queryPage(c)
	if !ok {
		return
	}
	res, err := h.svc.Orders.ListCustomerOrders(c.Request.Context(), id, page)
	if err != nil {
		writeError(c, err)
		return
	}
	out := orderPageResponse{
		Orders: make([]orderResponse, 0, len(res.Orders)),
		Total:  res.Total,
		Page:   res.Page.Number,
		Size:   res.Page.Size,
	}
	for i := range res.Orders {
		out.Orders = append(out.Orders, toOrder(&res.Orders[i]))
	}
	writeJSON(c, http.StatusOK, "orders listed", out)
}

func (h *handler) orderTotal(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	total, err := h.svc.Orders.CalculateOrderTotal(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, "order total", totalResponse{OrderID: id, Total: money(total)})
}

func (h *handler) updateOrderStatus(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}
	status, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	o, err := h.svc.Orders.UpdateOrderStatus(c.Request.Context(), id, status)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, "order status updated", toOrder(o))
}

func (h *handler) cancelOrder(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	o, err := h.svc.Orders.CancelOrderAndRestoreStock(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, "order cancelled", toOrder(o))
}

// checkout answers 202 while the gateway outcome is unknown; the
// reconciliation worker settles the payment later.
func (h *handler) checkout(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	p, err := h.svc.Payments.Checkout(c.Request.Context(), id)
	switch {
	case err == nil:
		writeJSON(c, http.StatusOK, "payment succeeded", toPayment(p))
	case p != nil && errors.Is(err, domain.ErrPaymentPending):
		writeJSON(c, http.StatusAccepted, "payment is being confirmed", toPayment(p))
	default:
		writeError(c, err)
	}
}

func (h *handler) getPayment(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	p, err := h.svc.Payments.GetPayment(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, "payment found", toPayment(p))
}
