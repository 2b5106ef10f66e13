package router

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"seara_joias/internal/model"
	"seara_joias/internal/store"
	rediscache "seara_joias/pkg/redis"
)

func listProducts(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := store.ProductFilter{
			Category:      c.Query("category"),
			PromotionOnly: c.Query("promotion") == "true",
		}
		list, err := d.Products.List(c.Request.Context(), filter)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func getProduct(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := d.Products.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// getProductStock serves the storefront stock badge through the Redis
// cache, falling back to the store on a miss.
func getProductStock(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		ctx := c.Request.Context()

		if d.RDB != nil {
			if stock, ok, err := rediscache.GetCachedStock(ctx, d.RDB, id); err == nil && ok {
				c.JSON(http.StatusOK, gin.H{"product_id": id, "stock": stock})
				return
			}
		}

		p, err := d.Products.Get(ctx, id)
		if err != nil {
			fail(c, err)
			return
		}
		if d.RDB != nil {
			if err := rediscache.CacheStock(ctx, d.RDB, id, p.Stock, d.Cfg.StockCacheTTL); err != nil {
				log.Printf("stock cache set %s: %v", id, err)
			}
		}
		c.JSON(http.StatusOK, gin.H{"product_id": id, "stock": p.Stock})
	}
}

type createProductRequest struct {
	Name          string           `json:"name" binding:"required"`
	Description   string           `json:"description"`
	OriginalPrice int64            `json:"original_price"`
	CurrentPrice  int64            `json:"current_price"`
	Category      string           `json:"category" binding:"required"`
	Images        []string         `json:"images"`
	Features      []string         `json:"features"`
	Stock         int64            `json:"stock"`
	Promotion     *model.Promotion `json:"promotion"`
}

func createProduct(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		p := &model.Product{
			Name:          req.Name,
			Description:   req.Description,
			OriginalPrice: req.OriginalPrice,
			CurrentPrice:  req.CurrentPrice,
			Category:      req.Category,
			Images:        req.Images,
			Features:      req.Features,
			Stock:         req.Stock,
			Promotion:     req.Promotion,
		}
		if err := d.Products.Create(c.Request.Context(), p); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, p)
	}
}

type updateProductRequest struct {
	Name          *string         `json:"name"`
	Description   *string         `json:"description"`
	OriginalPrice *int64          `json:"original_price"`
	CurrentPrice  *int64          `json:"current_price"`
	Category      *string         `json:"category"`
	Images        *[]string       `json:"images"`
	Features      *[]string       `json:"features"`
	Stock         *int64          `json:"stock"`
	Promotion     json.RawMessage `json:"promotion"`
}

func updateProduct(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		patch := store.ProductPatch{
			Name:          req.Name,
			Description:   req.Description,
			OriginalPrice: req.OriginalPrice,
			CurrentPrice:  req.CurrentPrice,
			Category:      req.Category,
			Images:        req.Images,
			Features:      req.Features,
			Stock:         req.Stock,
		}
		if req.Promotion != nil {
			// "promotion": null clears the sub-record.
			var promo *model.Promotion
			if string(req.Promotion) != "null" {
				promo = &model.Promotion{}
				if err := json.Unmarshal(req.Promotion, promo); err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": "invalid promotion"})
					return
				}
			}
			patch.Promotion = &promo
		}
		p, err := d.Products.Update(c.Request.Context(), c.Param("id"), patch)
		if err != nil {
			fail(c, err)
			return
		}
		if d.RDB != nil && req.Stock != nil {
			if err := rediscache.InvalidateStock(c.Request.Context(), d.RDB, p.ID); err != nil {
				log.Printf("stock cache invalidate %s: %v", p.ID, err)
			}
		}
		c.JSON(http.StatusOK, p)
	}
}

func deleteProduct(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := d.Products.Delete(c.Request.Context(), id); err != nil {
			fail(c, err)
			return
		}
		if d.RDB != nil {
			if err := rediscache.InvalidateStock(c.Request.Context(), d.RDB, id); err != nil {
				log.Printf("stock cache invalidate %s: %v", id, err)
			}
		}
		c.JSON(http.StatusOK, gin.H{"msg": "product deleted"})
	}
}
