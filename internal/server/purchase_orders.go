package server

import (
	"fmt"
	"net/http"

	"github.com/constructoai/backoffice/internal/purchaseorder"
	"github.com/gin-gonic/gin"
)

func (s *Server) ListPurchaseOrders(c *gin.Context) {
	summaries, err := s.purchaseOrderSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"purchase_orders": summaries,
		"count":           len(summaries),
	})
}

// SavePurchaseOrder upserts by number; an order posted without one gets the
// next number for the current year.
func (s *Server) SavePurchaseOrder(c *gin.Context) {
	var order purchaseorder.Order
	if err := c.ShouldBindJSON(&order); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.purchaseOrderSvc.Save(c.Request.Context(), &order); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) NextPurchaseOrderNumber(c *gin.Context) {
	number, err := s.purchaseOrderSvc.NextNumber(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"number": number})
}

func (s *Server) GetPurchaseOrder(c *gin.Context) {
	order, err := s.purchaseOrderSvc.Load(c.Request.Context(), c.Param("number"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) DeletePurchaseOrder(c *gin.Context) {
	if err := s.purchaseOrderSvc.Delete(c.Request.Context(), c.Param("number")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) DuplicatePurchaseOrder(c *gin.Context) {
	copied, err := s.purchaseOrderSvc.Duplicate(c.Request.Context(), c.Param("number"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, copied)
}

// RenderPurchaseOrderHTML serves the browser preview of the document.
func (s *Server) RenderPurchaseOrderHTML(c *gin.Context) {
	ctx := c.Request.Context()

	order, err := s.purchaseOrderSvc.Load(ctx, c.Param("number"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	profile, err := s.companyStore.Get(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	page, err := s.poRenderer.HTML(order, profile)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

// RenderPurchaseOrderPDF streams the printable document with the current
// company letterhead.
func (s *Server) RenderPurchaseOrderPDF(c *gin.Context) {
	ctx := c.Request.Context()

	order, err := s.purchaseOrderSvc.Load(ctx, c.Param("number"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	profile, err := s.companyStore.Get(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	pdf, err := s.poRenderer.PDF(order, profile)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", order.Number))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
