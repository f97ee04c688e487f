package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"etalase/internal/mailer"
	"etalase/internal/metrics"
	"etalase/internal/models"
	"etalase/internal/repositories"

	"github.com/rs/zerolog/log"
)

// attachableExtensions lists the file types that may be attached to a product e-mail.
var attachableExtensions = map[string]bool{".pdf": true, ".txt": true}

// attachmentContentType is sent for every attachment, text files included.
const attachmentContentType = "application/pdf"

// NotificationService renders product e-mails and hands them to a Mailer.
type NotificationService struct {
	mailer         mailer.Mailer
	products       repositories.ProductRepository
	from           string
	attachmentsDir string
}

// NewNotificationService creates a new NotificationService sending as from.
func NewNotificationService(m mailer.Mailer, products repositories.ProductRepository, from string) *NotificationService {
	return &NotificationService{
		mailer:   m,
		products: products,
		from:     from,
	}
}

// WithAttachmentsDir allows attachments from dir. Without it no attachment is ever sent.
func (s *NotificationService) WithAttachmentsDir(dir string) *NotificationService {
	s.attachmentsDir = dir
	return s
}

// SendProductEmail mails the details of a single product. Attachment paths are resolved
// inside the attachments directory; paths outside it, missing files and anything other
// than .pdf/.txt files are skipped.
func (s *NotificationService) SendProductEmail(to, subject string, product *models.Product, attachmentPaths []string) error {
	if product == nil || product.ProductName == "" || product.Price == 0 {
		return ErrInvalidProduct
	}

	html, err := renderProduct(*product)
	if err != nil {
		return err
	}

	return s.send("product", mailer.Message{
		From:        s.from,
		To:          to,
		Subject:     subject,
		HTML:        html,
		Attachments: s.collectAttachments(attachmentPaths),
	})
}

// SendAllProductsReport mails every product in the catalog. An empty catalog is
// reported as ErrNoProducts and nothing is sent.
func (s *NotificationService) SendAllProductsReport(to string) error {
	products, err := s.products.GetAll()
	if err != nil {
		return err
	}
	if len(products) == 0 {
		return ErrNoProducts
	}
	return s.sendReport("all_products", to, products, allProductsStyle)
}

// SendScheduledReport mails the periodic product report. It returns false without
// sending when the catalog is empty.
func (s *NotificationService) SendScheduledReport(to string) (bool, error) {
	products, err := s.products.GetAll()
	if err != nil {
		return false, err
	}
	if len(products) == 0 {
		return false, nil
	}
	if err := s.sendReport("scheduled_report", to, products, scheduledStyle); err != nil {
		return false, err
	}
	return true, nil
}

func (s *NotificationService) sendReport(kind, to string, products []models.Product, style reportStyle) error {
	html, err := renderReport(products, style)
	if err != nil {
		return err
	}
	return s.send(kind, mailer.Message{
		From:    s.from,
		To:      to,
		Subject: style.subject,
		HTML:    html,
	})
}

func (s *NotificationService) send(kind string, msg mailer.Message) error {
	if err := s.mailer.Send(msg); err != nil {
		metrics.Emails.WithLabelValues(kind, metrics.ResultFailed).Inc()
		log.Error().Err(err).Str("kind", kind).Str("to", msg.To).Msg("failed to send email")
		return fmt.Errorf("%w: %v", ErrSendFailure, err)
	}
	metrics.Emails.WithLabelValues(kind, metrics.ResultOK).Inc()
	log.Info().Str("kind", kind).Str("to", msg.To).Msg("email sent")
	return nil
}

func (s *NotificationService) collectAttachments(paths []string) []mailer.Attachment {
	if len(paths) == 0 {
		return nil
	}
	if s.attachmentsDir == "" {
		log.Warn().Int("count", len(paths)).Msg("attachments are disabled, skipping")
		return nil
	}
	root, err := filepath.EvalSymlinks(s.attachmentsDir)
	if err != nil {
		log.Error().Err(err).Str("dir", s.attachmentsDir).Msg("attachments directory is not readable")
		return nil
	}
	root, err = filepath.Abs(root)
	if err != nil {
		log.Error().Err(err).Str("dir", s.attachmentsDir).Msg("attachments directory is not readable")
		return nil
	}

	var attachments []mailer.Attachment
	for _, path := range paths {
		if !attachableExtensions[strings.ToLower(filepath.Ext(path))] {
			continue
		}
		resolved, ok := resolveInside(root, path)
		if !ok {
			log.Warn().Str("path", path).Msg("skipping attachment that is missing or outside the attachments directory")
			continue
		}
		if info, err := os.Stat(resolved); err != nil || info.IsDir() {
			log.Warn().Str("path", path).Msg("skipping attachment that is not a file")
			continue
		}
		attachments = append(attachments, mailer.Attachment{
			Path:        resolved,
			Filename:    filepath.Base(resolved),
			ContentType: attachmentContentType,
		})
	}
	return attachments
}

// resolveInside maps path onto an existing file under root. Relative paths are taken
// from root; symlinks are followed before the containment check.
func resolveInside(root, path string) (string, bool) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", false
	}
	resolved, err = filepath.Abs(resolved)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return resolved, true
}
