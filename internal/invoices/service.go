package invoices

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/storelinehq/storeline-backend/pkg/db/models"
	"github.com/storelinehq/storeline-backend/pkg/tenant"
)

// ObjectStore uploads rendered invoices and returns their URLs.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// Service renders plain-text invoices and uploads them to object
// storage. Generation runs after order placement commits and is best
// effort; a failed upload never fails the order.
type Service struct {
	store ObjectStore
}

func NewService(store ObjectStore) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	return &Service{store: store}, nil
}

var invoiceTmpl = template.Must(template.New("invoice").Parse(`INVOICE {{.Number}}
Date: {{.Date}}
Currency: {{.Currency}}

Items:
{{- range .Lines}}
  {{.Title}} x{{.Qty}} @ {{.Unit}} = {{.Total}}
{{- end}}

Subtotal:  {{.Subtotal}}
Discount: -{{.Discount}}
Tax:       {{.Tax}}
Delivery:  {{.Delivery}}
Total:     {{.Total}}
`))

type invoiceLine struct {
	Title string
	Qty   int
	Unit  string
	Total string
}

type invoiceData struct {
	Number   string
	Date     string
	Currency string
	Lines    []invoiceLine
	Subtotal string
	Discount string
	Tax      string
	Delivery string
	Total    string
}

// Generate renders the invoice for a placed order and uploads it.
func (s *Service) Generate(ctx context.Context, t *tenant.Tenant, order *models.Order) (string, error) {
	if order == nil {
		return "", fmt.Errorf("order required")
	}

	data := invoiceData{
		Number:   order.Number,
		Currency: order.Currency,
		Subtotal: formatCents(order.SubtotalCents),
		Discount: formatCents(order.DiscountCents),
		Tax:      formatCents(order.TaxCents),
		Delivery: formatCents(order.DeliveryFeeCents),
		Total:    formatCents(order.TotalCents),
	}
	if order.PlacedAt != nil {
		data.Date = order.PlacedAt.Format("2006-01-02")
	}
	for _, item := range order.Items {
		title := item.Snapshot.Title
		if item.Snapshot.VariantName != "" {
			title += " (" + item.Snapshot.VariantName + ")"
		}
		data.Lines = append(data.Lines, invoiceLine{
			Title: title,
			Qty:   item.Qty,
			Unit:  formatCents(item.UnitPriceCents),
			Total: formatCents(item.TotalCents),
		})
	}

	var buf bytes.Buffer
	if err := invoiceTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render invoice: %w", err)
	}

	key := fmt.Sprintf("invoices/%s/%s.txt", t.ID, strings.ToLower(order.Number))
	url, err := s.store.Put(ctx, key, "text/plain; charset=utf-8", buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("upload invoice: %w", err)
	}
	return url, nil
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
