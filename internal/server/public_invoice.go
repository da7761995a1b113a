package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/smallbiznis/chaseless/internal/payment/domain"
)

// GetPublicInvoice is the payer page. A return from checkout only says the
// payment is pending; the invoice turns paid when the processor confirms.
func (s *Server) GetPublicInvoice(c *gin.Context) {
	inv, err := s.invoiceSvc.GetPublic(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	body := gin.H{"data": inv}
	if inv.Status.Payable() {
		body["fees"] = paymentdomain.ComputeFees(inv.TotalAmount, s.fees.Get(), s.cfg.Stripe.Currency)
	}
	if c.Query("payment_success") == "true" && inv.Status.Payable() {
		body["payment_pending_confirmation"] = true
	}
	c.JSON(http.StatusOK, body)
}
