package portal

import (
	"database/sql"
	"log"
	"strconv"

	"clienthub/db"

	"github.com/gin-gonic/gin"
)

func ListInvoices(containerID int) ([]Invoice, error) {
	rows, err := db.DB.Query(
		`SELECT id, container_id, number, amount_cents, status, created_at
		 FROM invoices WHERE container_id = ? ORDER BY created_at DESC, id DESC`,
		containerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invoices := []Invoice{}
	for rows.Next() {
		var invoice Invoice
		if err := rows.Scan(&invoice.ID, &invoice.ContainerID, &invoice.Number, &invoice.AmountCents, &invoice.Status, &invoice.CreatedAt); err != nil {
			log.Println("Error scanning invoice:", err)
			continue
		}
		invoices = append(invoices, invoice)
	}
	return invoices, rows.Err()
}

func HandleCreateInvoice(c *gin.Context) {
	var json struct {
		Number      string `json:"number" binding:"required"`
		AmountCents int64  `json:"amount_cents" binding:"required"`
	}
	if err := c.ShouldBindJSON(&json); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	container := requestContainer(c)

	var invoice Invoice
	query := `INSERT INTO invoices (container_id, number, amount_cents, status, created_at) VALUES (?, ?, ?, ?, ?)
	          RETURNING id, container_id, number, amount_cents, status, created_at`
	err := db.DB.QueryRow(query, container.ID, json.Number, json.AmountCents, InvoiceSent, nowStamp()).
		Scan(&invoice.ID, &invoice.ContainerID, &invoice.Number, &invoice.AmountCents, &invoice.Status, &invoice.CreatedAt)
	if err != nil {
		c.JSON(500, gin.H{"error": "Database error inserting invoice"})
		return
	}

	c.JSON(201, gin.H{"invoice": invoice})
}

func HandleListInvoices(c *gin.Context) {
	invoices, err := ListInvoices(requestContainer(c).ID)
	if err != nil {
		c.JSON(500, gin.H{"error": "Database error listing invoices"})
		return
	}
	c.JSON(200, gin.H{"invoices": invoices})
}

func HandleDeleteInvoice(c *gin.Context) {
	invoiceID, err := strconv.Atoi(c.Param("invoiceID"))
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid invoice id"})
		return
	}

	container := requestContainer(c)

	res, err := db.DB.Exec(`DELETE FROM invoices WHERE id = ? AND container_id = ?`, invoiceID, container.ID)
	if err != nil {
		c.JSON(500, gin.H{"error": "Database error deleting invoice"})
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		c.JSON(404, gin.H{"error": "Invoice not found"})
		return
	}

	c.JSON(200, gin.H{"invoice_id": invoiceID})
}

// HandlePayInvoice flips an invoice to paid. Payment capture itself
// happens outside this service; this endpoint records the result.
func HandlePayInvoice(c *gin.Context) {
	invoiceID, err := strconv.Atoi(c.Param("invoiceID"))
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid invoice id"})
		return
	}

	container := requestContainer(c)

	var invoice Invoice
	query := `UPDATE invoices SET status = ? WHERE id = ? AND container_id = ?
	          RETURNING id, container_id, number, amount_cents, status, created_at`
	err = db.DB.QueryRow(query, InvoicePaid, invoiceID, container.ID).
		Scan(&invoice.ID, &invoice.ContainerID, &invoice.Number, &invoice.AmountCents, &invoice.Status, &invoice.CreatedAt)
	if err == sql.ErrNoRows {
		c.JSON(404, gin.H{"error": "Invoice not found"})
		return
	}
	if err != nil {
		c.JSON(500, gin.H{"error": "Database error updating invoice"})
		return
	}

	c.JSON(200, gin.H{"invoice": invoice})
}
