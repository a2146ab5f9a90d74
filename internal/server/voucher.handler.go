package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *handler) createVoucher(c *gin.Context) {
	var req voucherRequest
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.svc.Vouchers.CreateVoucher(c.Request.Context(), req.toService())
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, "voucher created", toVoucher(v))
}

func (h *handler) getVoucher(c *gin.Context) {
	v, err := h.svc.Vouchers.GetVoucher(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, "voucher found", toVoucher(v))
}

// previewVoucher shows the discount a voucher would give without using it.
func (h *handler) previewVoucher(c *gin.Context) {
	var req previewRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.Vouchers.PreviewVoucher(c.Request.Context(), c.Param("code"), req.CustomerID, req.Amount)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, "voucher applicable", previewResponse{
		Code:        p.Code,
		Amount:      money(p.Amount),
		Discount:    money(p.Discount),
		AmountAfter: money(p.AmountAfter),
	})
}

func (h *handler) redeemVoucher(c *gin.Context) {
	var req redeemRequest
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.svc.Vouchers.RedeemVoucher(c.Request.Context(), req.CustomerID, c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, "voucher redeemed", toVoucher(v))
}

func (h *handler) listCustomerVouchers(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	vouchers, err := h.svc.Vouchers.ListCustomerVouchers(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]voucherResponse, 0, len(vouchers))
	for i := range vouchers {
		out = append(out, toVoucher(&vouchers[i]))
	}
	writeJSON(c, http.StatusOK, "vouchers listed", out)
}
