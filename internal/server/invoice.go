package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/chaseless/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/chaseless/internal/payment/domain"
	"github.com/smallbiznis/chaseless/internal/providers/pdf"
	"go.uber.org/zap"
)

type updateStatusRequest struct {
	Status string `json:"status"`
}

type mutationResponse struct {
	Data     invoicedomain.Invoice `json:"data"`
	Notified bool                  `json:"notified"`
	Warning  string                `json:"warning,omitempty"`
}

func newMutationResponse(m invoicedomain.Mutation) mutationResponse {
	return mutationResponse{Data: m.Invoice, Notified: m.Notified, Warning: m.Warning}
}

func (s *Server) ListInvoices(c *gin.Context) {
	items, err := s.invoiceSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	item, err := s.invoiceSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) CreateInvoice(c *gin.Context) {
	var req invoicedomain.UpsertInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	m, err := s.invoiceSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newMutationResponse(m))
}

func (s *Server) ReplaceInvoice(c *gin.Context) {
	var req invoicedomain.UpsertInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	m, err := s.invoiceSvc.Replace(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, newMutationResponse(m))
}

func (s *Server) UpdateInvoiceStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	m, err := s.invoiceSvc.TransitionStatus(c.Request.Context(), strings.TrimSpace(c.Param("id")), req.Status)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, newMutationResponse(m))
}

func (s *Server) NextInvoiceNumber(c *gin.Context) {
	number, err := s.invoiceSvc.NextNumber(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"invoice_number": number}})
}

func (s *Server) GetInvoiceRules(c *gin.Context) {
	rules, err := s.invoiceSvc.Rules(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rules})
}

func (s *Server) DownloadInvoicePDF(c *gin.Context) {
	ctx := c.Request.Context()
	id := strings.TrimSpace(c.Param("id"))

	inv, err := s.invoiceSvc.Export(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	currency := s.cfg.Stripe.Currency
	fees := paymentdomain.ComputeFees(inv.TotalAmount, s.fees.Get(), currency)
	doc := pdf.FromInvoice(inv, s.invoiceLink(id), fees.PayerAmount, currency)

	if profile, err := s.issuerSvc.Get(ctx); err == nil {
		doc.IssuerEmail = profile.Email
	} else {
		s.log.Warn("issuer profile unavailable for pdf", zap.String("invoice_id", id), zap.Error(err))
	}

	out, err := s.pdf.Invoice(ctx, doc)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="invoice-%s.pdf"`, inv.InvoiceNumber))
	c.Data(http.StatusOK, "application/pdf", out)
}

func (s *Server) invoiceLink(id string) string {
	return s.cfg.FrontendURL + "/invoice/" + id
}
