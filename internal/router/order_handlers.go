package router

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"seara_joias/internal/cart"
	"seara_joias/internal/model"
	"seara_joias/internal/store"
	rediscache "seara_joias/pkg/redis"
)

type checkoutRequest struct {
	Customer       string      `json:"customer" binding:"required"`
	Phone          string      `json:"phone"`
	Email          string      `json:"email"`
	PaymentMethod  string      `json:"payment_method" binding:"required"`
	DeliveryMethod string      `json:"delivery_method" binding:"required"`
	Items          []cart.Line `json:"items" binding:"required"`
}

// createOrder is the checkout submission: the client's accumulated cart
// lines become an order in awaiting_confirmation. The response carries the
// WhatsApp hand-off link the storefront redirects to.
func createOrder(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req checkoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ct := cart.New()
		for _, line := range req.Items {
			ct.Add(line)
		}
		o, err := ct.Checkout(c.Request.Context(), d.Orders, cart.CheckoutInfo{
			Customer:       req.Customer,
			Phone:          req.Phone,
			Email:          req.Email,
			PaymentMethod:  req.PaymentMethod,
			DeliveryMethod: req.DeliveryMethod,
		})
		if err != nil {
			fail(c, err)
			return
		}
		if d.Notifier != nil {
			d.Notifier.OrderCreated(o)
		}
		c.JSON(http.StatusCreated, gin.H{
			"order":         o,
			"whatsapp_link": cart.WhatsAppLink(d.Cfg.StorePhone, o),
		})
	}
}

func listOrders(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			list []model.Order
			err  error
		)
		if status := c.Query("status"); status != "" {
			list, err = d.Orders.ListByStatus(c.Request.Context(), model.OrderStatus(status))
		} else {
			list, err = d.Orders.List(c.Request.Context())
		}
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func getOrder(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := d.Orders.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

type updateOrderRequest struct {
	Customer       *string            `json:"customer"`
	Phone          *string            `json:"phone"`
	Email          *string            `json:"email"`
	Items          *[]model.OrderItem `json:"items"`
	PaymentMethod  *string            `json:"payment_method"`
	DeliveryMethod *string            `json:"delivery_method"`
}

func updateOrder(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		o, err := d.Orders.Update(c.Request.Context(), c.Param("id"), store.OrderPatch{
			Customer:       req.Customer,
			Phone:          req.Phone,
			Email:          req.Email,
			Items:          req.Items,
			PaymentMethod:  req.PaymentMethod,
			DeliveryMethod: req.DeliveryMethod,
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

func deleteOrder(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := d.Orders.Delete(c.Request.Context(), c.Param("id")); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"msg": "order deleted"})
	}
}

func confirmOrder(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		res, err := d.Manager.Confirm(c.Request.Context(), id)
		if err != nil {
			fail(c, err)
			return
		}
		if d.RDB != nil && !res.AlreadyConfirmed {
			if o, err := d.Orders.Get(c.Request.Context(), id); err == nil {
				for _, it := range o.Items {
					if err := rediscache.InvalidateStock(c.Request.Context(), d.RDB, it.ProductID); err != nil {
						log.Printf("stock cache invalidate %s: %v", it.ProductID, err)
					}
				}
			}
		}
		c.JSON(http.StatusOK, res)
	}
}

type advanceRequest struct {
	Status string `json:"status" binding:"required"`
}

func advanceOrder(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req advanceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := d.Manager.Advance(c.Request.Context(), c.Param("id"), model.OrderStatus(req.Status)); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"msg": "status updated"})
	}
}

func cancelOrder(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := d.Manager.Cancel(c.Request.Context(), c.Param("id")); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"msg": "order cancelled"})
	}
}

// orderFeed streams lifecycle updates to the admin dashboard.
func orderFeed(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d.Hub == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live feed disabled"})
			return
		}
		d.Hub.Serve(c.Writer, c.Request)
	}
}
