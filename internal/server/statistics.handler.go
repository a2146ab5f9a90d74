package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *handler) queryYear(c *gin.Context) (int, bool) {
	return queryInt(c, "year", h.now().UTC().Year())
}

func (h *handler) monthlyRevenue(c *gin.Context) {
	year, ok := h.queryYear(c)
	if !ok {
		return
	}
	report, err := h.svc.Statistics.GetMonthlyRevenueForYear(c.Request.Context(), year)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, "monthly revenue", toRevenue(report))
}

func (h *handler) productSales(c *gin.Context) {
	year, ok := h.queryYear(c)
	if !ok {
		return
	}
	sales, err := h.svc.Statistics.GetProductSalesForYear(c.Request.Context(), year)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]productSalesResponse, 0, len(sales))
	for _, s := range sales {
		out = append(out, productSalesResponse{
			ProductID:   s.ProductID,
			ProductName: s.ProductName,
			Quantity:    s.Quantity,
			Revenue:     money(s.Revenue),
		})
	}
	writeJSON(c, http.StatusOK, "product sales", out)
}
