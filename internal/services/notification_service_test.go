package services_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"etalase/internal/mailer/mailertest"
	"etalase/internal/models"
	"etalase/internal/repositories/repositoriestest"
	"etalase/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNotificationService(t *testing.T, products ...models.Product) (*services.NotificationService, *mailertest.Recorder) {
	t.Helper()
	repo := repositoriestest.NewProductRepository()
	for i := range products {
		require.NoError(t, repo.Create(&products[i]))
	}
	recorder := &mailertest.Recorder{}
	return services.NewNotificationService(recorder, repo, "shop@example.com"), recorder
}

func TestNotificationService_SendProductEmail(t *testing.T) {
	service, recorder := newNotificationService(t)

	dir := t.TempDir()
	service.WithAttachmentsDir(dir)
	for _, name := range []string{"manual.pdf", "notes.TXT", "photo.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	product := &models.Product{
		ProductName: "Lamp <script>",
		Price:       12.5,
		Stock:       0,
		Images:      models.ImageList{"uploads/lamp.png"},
	}
	err := service.SendProductEmail("buyer@example.com", "Your lamp", product, []string{
		filepath.Join(dir, "manual.pdf"),
		"notes.TXT",
		filepath.Join(dir, "photo.png"),
		filepath.Join(dir, "missing.pdf"),
	})
	require.NoError(t, err)

	sent := recorder.Sent()
	require.Len(t, sent, 1)
	msg := sent[0]
	assert.Equal(t, "shop@example.com", msg.From)
	assert.Equal(t, "buyer@example.com", msg.To)
	assert.Equal(t, "Your lamp", msg.Subject)

	assert.Contains(t, msg.HTML, "<h2>Product Details</h2>")
	assert.Contains(t, msg.HTML, `border="1"`)
	assert.Contains(t, msg.HTML, "$12.50")
	assert.Contains(t, msg.HTML, "Lamp &lt;script&gt;")
	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.HTML, `<img src="uploads/lamp.png"`)
	assert.Contains(t, msg.HTML, `<td style="padding: 8px;">N/A</td>`, "empty description and zero stock render as N/A")

	require.Len(t, msg.Attachments, 2)
	assert.Equal(t, "manual.pdf", msg.Attachments[0].Filename)
	assert.Equal(t, "application/pdf", msg.Attachments[0].ContentType)
	assert.Equal(t, "notes.TXT", msg.Attachments[1].Filename)
}

func TestNotificationService_SendProductEmail_AttachmentsStayInsideDir(t *testing.T) {
	service, recorder := newNotificationService(t)
	product := &models.Product{ProductName: "Lamp", Price: 3}

	outside := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))

	require.NoError(t, service.SendProductEmail("buyer@example.com", "s", product, []string{outside}))
	assert.Empty(t, recorder.Sent()[0].Attachments, "no directory configured")

	root := t.TempDir()
	dir := filepath.Join(root, "attachments")
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sibling.pdf"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok.pdf"), []byte("x"), 0o644))
	require.NoError(t, os.Symlink(outside, filepath.Join(dir, "link.txt")))
	service.WithAttachmentsDir(dir)

	err := service.SendProductEmail("buyer@example.com", "s", product, []string{
		outside,
		"../sibling.pdf",
		filepath.Join(dir, "..", "sibling.pdf"),
		"link.txt",
		"ok.pdf",
	})
	require.NoError(t, err)

	attachments := recorder.Sent()[1].Attachments
	require.Len(t, attachments, 1)
	assert.Equal(t, "ok.pdf", attachments[0].Filename)
}

func TestNotificationService_SendProductEmail_NoImages(t *testing.T) {
	service, recorder := newNotificationService(t)

	err := service.SendProductEmail("buyer@example.com", "s", &models.Product{ProductName: "Lamp", Price: 3, Stock: 7}, nil)
	require.NoError(t, err)

	html := recorder.Sent()[0].HTML
	assert.Contains(t, html, "No images available")
	assert.Contains(t, html, `<td style="padding: 8px;">7</td>`)
	assert.Empty(t, recorder.Sent()[0].Attachments)
}

func TestNotificationService_SendProductEmail_InvalidProduct(t *testing.T) {
	service, recorder := newNotificationService(t)

	for _, product := range []*models.Product{nil, {Price: 10}, {ProductName: "Lamp"}} {
		err := service.SendProductEmail("buyer@example.com", "s", product, nil)
		assert.True(t, errors.Is(err, services.ErrInvalidProduct))
	}
	assert.Empty(t, recorder.Sent())
}

func TestNotificationService_SendFailure(t *testing.T) {
	service, recorder := newNotificationService(t)
	recorder.Err = errors.New("smtp: 535 authentication failed")

	err := service.SendProductEmail("buyer@example.com", "s", &models.Product{ProductName: "Lamp", Price: 3}, nil)
	assert.True(t, errors.Is(err, services.ErrSendFailure))
	assert.Contains(t, err.Error(), "535")
}

func TestNotificationService_SendAllProductsReport(t *testing.T) {
	service, recorder := newNotificationService(t)
	assert.True(t, errors.Is(service.SendAllProductsReport("boss@example.com"), services.ErrNoProducts))
	assert.Empty(t, recorder.Sent())

	service, recorder = newNotificationService(t,
		models.Product{ProductName: "Lamp", Description: "Warm", Price: 12.5, Stock: 3},
		models.Product{ProductName: "Desk", Description: "Oak", Price: 99, Stock: 1},
	)
	require.NoError(t, service.SendAllProductsReport("boss@example.com"))

	sent := recorder.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Product Details for All Products", sent[0].Subject)
	assert.Contains(t, sent[0].HTML, "<h2>All Product Details</h2>")
	assert.Contains(t, sent[0].HTML, "<h3>Product: Lamp</h3>")
	assert.Contains(t, sent[0].HTML, "<h3>Product: Desk</h3>")
	assert.Contains(t, sent[0].HTML, `border="2"`)
	assert.Contains(t, sent[0].HTML, "12.50$")
}

func TestNotificationService_SendScheduledReport(t *testing.T) {
	service, recorder := newNotificationService(t)
	sent, err := service.SendScheduledReport("reports@example.com")
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Empty(t, recorder.Sent())

	service, recorder = newNotificationService(t, models.Product{ProductName: "Lamp", Price: 12.5, Stock: 3})
	sent, err = service.SendScheduledReport("reports@example.com")
	require.NoError(t, err)
	assert.True(t, sent)

	msg := recorder.Sent()[0]
	assert.Equal(t, "reports@example.com", msg.To)
	assert.Equal(t, "Product Report using CRON", msg.Subject)
	assert.Contains(t, msg.HTML, "<h2>Daily Product Report</h2>")
	assert.Contains(t, msg.HTML, `border="1"`)
	assert.Contains(t, msg.HTML, "$12.50")
}
