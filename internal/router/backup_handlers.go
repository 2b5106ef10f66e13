package router

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tealeg/xlsx"

	"seara_joias/internal/model"
	"seara_joias/internal/store"
)

// backupPayload is the dump/restore wire format. Orders are included in
// the dump for safekeeping but only products are restored; orders are
// history, not configuration.
type backupPayload struct {
	ExportedAt time.Time       `json:"exported_at"`
	Products   []model.Product `json:"products"`
	Orders     []model.Order   `json:"orders,omitempty"`
}

func exportBackup(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := d.Products.List(c.Request.Context(), store.ProductFilter{})
		if err != nil {
			fail(c, err)
			return
		}
		orders, err := d.Orders.List(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		c.Header("Content-Disposition",
			fmt.Sprintf("attachment; filename=backup-%s.json", time.Now().Format("20060102-150405")))
		c.JSON(http.StatusOK, backupPayload{
			ExportedAt: time.Now(),
			Products:   products,
			Orders:     orders,
		})
	}
}

func restoreBackup(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload backupPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		restored := 0
		for i := range payload.Products {
			p := payload.Products[i]
			if err := upsertProduct(c, d, &p); err != nil {
				fail(c, err)
				return
			}
			restored++
		}
		c.JSON(http.StatusOK, gin.H{"restored": restored})
	}
}

var productSheetHeader = []string{
	"id", "name", "category", "description", "original_price", "current_price", "stock",
}

func exportProductsXLSX(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := d.Products.List(c.Request.Context(), store.ProductFilter{})
		if err != nil {
			fail(c, err)
			return
		}

		file := xlsx.NewFile()
		sheet, err := file.AddSheet("Products")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create sheet"})
			return
		}
		header := sheet.AddRow()
		for _, h := range productSheetHeader {
			header.AddCell().SetString(h)
		}
		for _, p := range products {
			row := sheet.AddRow()
			row.AddCell().SetString(p.ID)
			row.AddCell().SetString(p.Name)
			row.AddCell().SetString(p.Category)
			row.AddCell().SetString(p.Description)
			row.AddCell().SetInt64(p.OriginalPrice)
			row.AddCell().SetInt64(p.CurrentPrice)
			row.AddCell().SetInt64(p.Stock)
		}

		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename=products.xlsx")
		if err := file.Write(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to write workbook"})
		}
	}
}

func importProductsXLSX(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "xlsx file is required"})
			return
		}
		f, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open file"})
			return
		}
		defer f.Close()

		wb, err := xlsx.OpenReaderAt(f, fileHeader.Size)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid xlsx file"})
			return
		}
		if len(wb.Sheets) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "workbook has no sheets"})
			return
		}

		imported := 0
		for i, row := range wb.Sheets[0].Rows {
			if i == 0 || len(row.Cells) < len(productSheetHeader) {
				continue // header or short row
			}
			p := model.Product{
				ID:          row.Cells[0].String(),
				Name:        row.Cells[1].String(),
				Category:    row.Cells[2].String(),
				Description: row.Cells[3].String(),
			}
			for _, col := range []struct {
				idx int
				dst *int64
			}{
				{4, &p.OriginalPrice},
				{5, &p.CurrentPrice},
				{6, &p.Stock},
			} {
				v, err := parseSheetInt(row, i, col.idx)
				if err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				*col.dst = v
			}

			if err := upsertProduct(c, d, &p); err != nil {
				fail(c, err)
				return
			}
			imported++
		}
		c.JSON(http.StatusOK, gin.H{"imported": imported})
	}
}

// parseSheetInt reads a numeric cell, naming the offending row and column
// on failure so the operator can fix the sheet. Rows and columns are
// reported 1-based, the way spreadsheets display them.
func parseSheetInt(row *xlsx.Row, rowIdx, colIdx int) (int64, error) {
	raw := strings.TrimSpace(row.Cells[colIdx].String())
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("row %d, column %q: %q is not a whole number",
			rowIdx+1, productSheetHeader[colIdx], raw)
	}
	return v, nil
}

// upsertProduct updates an existing record by id or creates it.
func upsertProduct(c *gin.Context, d Deps, p *model.Product) error {
	ctx := c.Request.Context()
	if p.ID != "" {
		_, err := d.Products.Update(ctx, p.ID, store.ProductPatch{
			Name:          &p.Name,
			Description:   &p.Description,
			OriginalPrice: &p.OriginalPrice,
			CurrentPrice:  &p.CurrentPrice,
			Category:      &p.Category,
			Images:        &p.Images,
			Features:      &p.Features,
			Stock:         &p.Stock,
			Promotion:     &p.Promotion,
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}
	return d.Products.Create(ctx, p)
}
