package services

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"

	"etalase/internal/models"
)

const productTableTemplate = `{{define "table"}}<table border="{{.Border}}" style="border-collapse: collapse; width: 100%; text-align: left;">
<thead><tr><th style="padding: 8px; background-color: #f2f2f2;">Field</th><th style="padding: 8px; background-color: #f2f2f2;">Value</th></tr></thead>
<tbody>
<tr><td style="padding: 8px;">Product Name</td><td style="padding: 8px;">{{.Name}}</td></tr>
<tr><td style="padding: 8px;">Description</td><td style="padding: 8px;">{{.Description}}</td></tr>
<tr><td style="padding: 8px;">Price</td><td style="padding: 8px;">{{.Price}}</td></tr>
<tr><td style="padding: 8px;">Stock</td><td style="padding: 8px;">{{.Stock}}</td></tr>
<tr><td style="padding: 8px;">Images</td><td style="padding: 8px;">{{if .Images}}{{range .Images}}<img src="{{.}}" alt="Product Image" width="100" style="margin-right: 5px;" />{{end}}{{else}}No images available{{end}}</td></tr>
</tbody>
</table>{{end}}`

var (
	singleProductTemplate = template.Must(template.New("single").Parse(productTableTemplate +
		`<h2>Product Details</h2>{{template "table" .}}`))

	productReportTemplate = template.Must(template.New("report").Parse(productTableTemplate +
		`<h2>{{.Title}}</h2>{{range .Rows}}<h3>Product: {{.Name}}</h3>{{template "table" .}}<hr style="border-top: 1px solid #ddd;" />{{end}}`))
)

// reportStyle captures the layout differences between the on-demand and scheduled reports.
type reportStyle struct {
	title       string
	subject     string
	border      int
	priceFormat string
}

var (
	singleStyle = reportStyle{border: 1, priceFormat: "$%.2f"}

	allProductsStyle = reportStyle{
		title:       "All Product Details",
		subject:     "Product Details for All Products",
		border:      2,
		priceFormat: "%.2f$",
	}

	scheduledStyle = reportStyle{
		title:       "Daily Product Report",
		subject:     "Product Report using CRON",
		border:      1,
		priceFormat: "$%.2f",
	}
)

type productRow struct {
	Border      int
	Name        string
	Description string
	Price       string
	Stock       string
	Images      []string
}

func newProductRow(p models.Product, style reportStyle) productRow {
	row := productRow{
		Border:      style.border,
		Name:        p.ProductName,
		Description: p.Description,
		Price:       fmt.Sprintf(style.priceFormat, p.Price),
		Stock:       strconv.Itoa(p.Stock),
		Images:      p.Images,
	}
	if row.Description == "" {
		row.Description = "N/A"
	}
	// A stock of zero renders as N/A, same as a missing one.
	if p.Stock == 0 {
		row.Stock = "N/A"
	}
	return row
}

func renderProduct(p models.Product) (string, error) {
	var buf bytes.Buffer
	if err := singleProductTemplate.Execute(&buf, newProductRow(p, singleStyle)); err != nil {
		return "", fmt.Errorf("failed to render product email: %w", err)
	}
	return buf.String(), nil
}

func renderReport(products []models.Product, style reportStyle) (string, error) {
	rows := make([]productRow, 0, len(products))
	for _, p := range products {
		rows = append(rows, newProductRow(p, style))
	}

	var buf bytes.Buffer
	data := struct {
		Title string
		Rows  []productRow
	}{Title: style.title, Rows: rows}
	if err := productReportTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render product report: %w", err)
	}
	return buf.String(), nil
}
