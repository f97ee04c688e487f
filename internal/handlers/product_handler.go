package handlers

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strconv"
	"strings"

	"etalase/internal/middleware"
	"etalase/internal/models"
	"etalase/internal/services"
	"etalase/internal/storage"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// ProductHandler handles HTTP requests for the product catalog and product e-mails.
type ProductHandler struct {
	products      *services.ProductService
	notifications *services.NotificationService
	images        storage.ImageStore
	baseURL       string
	validate      *validator.Validate
}

// NewProductHandler creates a new ProductHandler. baseURL is used to recognise
// absolute image URLs sent back by clients.
func NewProductHandler(
	products *services.ProductService,
	notifications *services.NotificationService,
	images storage.ImageStore,
	baseURL string,
	validate *validator.Validate,
) *ProductHandler {
	return &ProductHandler{
		products:      products,
		notifications: notifications,
		images:        images,
		baseURL:       baseURL,
		validate:      validate,
	}
}

// RegisterRoutes registers the product routes on router. The caller is expected to
// have put the auth gate in front of router.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/", h.HandleList)
	router.Get("/filter", h.HandleFilter)
	router.Post("/create", h.HandleCreate)
	router.Put("/update/:id", h.HandleUpdate)
	router.Delete("/delete/:id", h.HandleDelete)
	router.Post("/send-email", h.HandleSendEmail)
	router.Post("/send-emails-to-all", h.HandleSendAll)
}

// HandleList returns every product with resolved image URLs.
func (h *ProductHandler) HandleList(c *fiber.Ctx) error {
	products, err := h.products.ListProducts()
	if err != nil {
		zerolog.Ctx(c.UserContext()).Error().Err(err).Msg("failed to list products")
		return respondError(c, fiber.StatusInternalServerError, "Server error", err)
	}
	return c.JSON(products)
}

// HandleCreate creates a product from a multipart form with up to five images.
func (h *ProductHandler) HandleCreate(c *fiber.Ctx) error {
	form := multipartForm(c)
	files := formFiles(form)
	if err := storage.ValidateAll(files); err != nil {
		return h.respondUploadError(c, err)
	}

	refs, err := h.saveImages(c.UserContext(), files)
	if err != nil {
		zerolog.Ctx(c.UserContext()).Error().Err(err).Msg("failed to store images")
		return respondError(c, fiber.StatusInternalServerError, "Server error", err)
	}

	product, err := h.products.CreateProduct(services.ProductInput{
		ProductName: formField(form, "productname"),
		Description: formField(form, "description"),
		Price:       formField(form, "price"),
		Stock:       formField(form, "stock"),
		Images:      refs,
	})
	if err != nil {
		h.discardImages(c.UserContext(), refs)
		return h.respondProductError(c, err)
	}

	h.logChange(c, "product created", product.ID)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Product created",
		"product": product,
	})
}

// updateRequest is the JSON form of an update. Price and stock may be numbers or strings.
type updateRequest struct {
	ProductName *string     `json:"productname"`
	Description *string     `json:"description"`
	Price       interface{} `json:"price"`
	Stock       interface{} `json:"stock"`
	Images      []string    `json:"images"`
}

// HandleUpdate updates a product from either a multipart form or a JSON body.
// The stored image list becomes the new uploads followed by the references sent in "images".
func (h *ProductHandler) HandleUpdate(c *fiber.Ctx) error {
	var (
		input services.ProductInput
		files []*multipart.FileHeader
		kept  []string
	)

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		form := multipartForm(c)
		files = formFiles(form)
		for _, fh := range files {
			if err := storage.Validate(fh); err != nil {
				return h.respondUploadError(c, err)
			}
		}
		input = services.ProductInput{
			ProductName: formField(form, "productname"),
			Description: formField(form, "description"),
			Price:       formField(form, "price"),
			Stock:       formField(form, "stock"),
		}
		if form != nil {
			kept = form.Value["images"]
		}
	} else {
		var req updateRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return respondError(c, fiber.StatusBadRequest, "Invalid request body", err)
			}
		}
		input = services.ProductInput{
			ProductName: req.ProductName,
			Description: req.Description,
			Price:       scalarString(req.Price),
			Stock:       scalarString(req.Stock),
		}
		kept = req.Images
	}

	if len(files) == 0 && len(kept) == 0 {
		return respondMessage(c, fiber.StatusBadRequest, "At least one image is required")
	}

	refs, err := h.saveImages(c.UserContext(), files)
	if err != nil {
		zerolog.Ctx(c.UserContext()).Error().Err(err).Msg("failed to store images")
		return respondError(c, fiber.StatusInternalServerError, "Server error", err)
	}
	input.Images = append([]string{}, refs...)
	for _, ref := range kept {
		if ref = storage.NormalizeRef(ref, h.baseURL); ref != "" {
			input.Images = append(input.Images, ref)
		}
	}

	product, err := h.products.UpdateProduct(c.Params("id"), input)
	if err != nil {
		h.discardImages(c.UserContext(), refs)
		return h.respondProductError(c, err)
	}

	h.logChange(c, "product updated", product.ID)
	return c.JSON(fiber.Map{
		"message": "Product updated",
		"product": product,
	})
}

// HandleDelete removes a product.
func (h *ProductHandler) HandleDelete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.products.DeleteProduct(id); err != nil {
		return h.respondProductError(c, err)
	}
	h.logChange(c, "product deleted", id)
	return respondMessage(c, fiber.StatusOK, "Product deleted")
}

// HandleFilter searches products by name, creation date and stock.
func (h *ProductHandler) HandleFilter(c *fiber.Ctx) error {
	params := services.FilterParams{
		ProductName: c.Query("productname"),
		CreatedDate: c.Query("createdDate"),
	}
	if c.Context().QueryArgs().Has("stock") {
		stock := c.Query("stock")
		params.Stock = &stock
	}

	products, err := h.products.FilterProducts(params)
	if err != nil {
		return h.respondProductError(c, err)
	}
	return c.JSON(products)
}

// sendEmailRequest is the body of POST /send-email.
type sendEmailRequest struct {
	To                  string          `json:"to" validate:"required,email"`
	Subject             string          `json:"subject"`
	Product             *models.Product `json:"product"`
	AttachmentFilePaths []string        `json:"attachmentFilePaths"`
}

// HandleSendEmail mails the details of the product in the request body.
func (h *ProductHandler) HandleSendEmail(c *fiber.Ctx) error {
	var req sendEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if req.Product == nil || req.Product.ProductName == "" {
		return respondMessage(c, fiber.StatusBadRequest, "Product data is missing")
	}
	if err := h.validate.Struct(req); err != nil {
		return respondValidation(c, err)
	}

	err := h.notifications.SendProductEmail(req.To, req.Subject, req.Product, req.AttachmentFilePaths)
	switch {
	case err == nil:
		return respondMessage(c, fiber.StatusOK, "Email sent successfully")
	case errors.Is(err, services.ErrInvalidProduct):
		return respondError(c, fiber.StatusBadRequest, "Product data is missing", err)
	default:
		return respondError(c, fiber.StatusInternalServerError, "Error sending email", err)
	}
}

// sendAllRequest is the body of POST /send-emails-to-all.
type sendAllRequest struct {
	To string `json:"to" validate:"required,email"`
}

// HandleSendAll mails the whole catalog to one recipient.
func (h *ProductHandler) HandleSendAll(c *fiber.Ctx) error {
	var req sendAllRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := h.validate.Struct(req); err != nil {
		return respondValidation(c, err)
	}

	err := h.notifications.SendAllProductsReport(req.To)
	switch {
	case err == nil:
		return respondMessage(c, fiber.StatusOK, "Email sent successfully with all products")
	case errors.Is(err, services.ErrNoProducts):
		return respondMessage(c, fiber.StatusNotFound, "No products found in the database")
	default:
		return respondError(c, fiber.StatusInternalServerError, "Error sending email", err)
	}
}

func (h *ProductHandler) saveImages(ctx context.Context, files []*multipart.FileHeader) ([]string, error) {
	refs := make([]string, 0, len(files))
	for _, fh := range files {
		ref, err := h.images.Save(ctx, fh)
		if err != nil {
			h.discardImages(ctx, refs)
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// discardImages removes uploads belonging to a request that failed.
func (h *ProductHandler) discardImages(ctx context.Context, refs []string) {
	for _, ref := range refs {
		if err := h.images.Delete(ctx, ref); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("ref", ref).Msg("failed to remove orphaned upload")
		}
	}
}

func (h *ProductHandler) respondUploadError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, storage.ErrTooManyImages):
		return respondError(c, fiber.StatusBadRequest, "Too many files", err)
	case errors.Is(err, storage.ErrImageTooLarge):
		return respondError(c, fiber.StatusBadRequest, "File too large", err)
	default:
		return respondError(c, fiber.StatusBadRequest, "Only images are allowed", err)
	}
}

func (h *ProductHandler) respondProductError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrMissingFields):
		return respondMessage(c, fiber.StatusBadRequest, "Missing required fields")
	case errors.Is(err, services.ErrNoImages):
		return respondMessage(c, fiber.StatusBadRequest, "At least one image is required")
	case errors.Is(err, services.ErrInvalidPrice):
		return respondMessage(c, fiber.StatusBadRequest, "Invalid price value")
	case errors.Is(err, services.ErrInvalidStock):
		return respondMessage(c, fiber.StatusBadRequest, "Invalid stock value")
	case errors.Is(err, services.ErrInvalidDate):
		return respondMessage(c, fiber.StatusBadRequest, "Invalid date format")
	case errors.Is(err, services.ErrProductNotFound):
		return respondMessage(c, fiber.StatusNotFound, "Product not found")
	case errors.Is(err, services.ErrNoMatches):
		return respondMessage(c, fiber.StatusNotFound, "No products found matching the criteria")
	default:
		zerolog.Ctx(c.UserContext()).Error().Err(err).Msg("product request failed")
		return respondError(c, fiber.StatusInternalServerError, "Server error", err)
	}
}

func (h *ProductHandler) logChange(c *fiber.Ctx, msg, productID string) {
	event := zerolog.Ctx(c.UserContext()).Info().Str("product_id", productID)
	if id, ok := middleware.IdentityFrom(c); ok {
		event = event.Str("user_id", id.UserID)
	}
	event.Msg(msg)
}

// multipartForm returns the parsed form, or nil when the body is not multipart.
func multipartForm(c *fiber.Ctx) *multipart.Form {
	form, err := c.MultipartForm()
	if err != nil {
		return nil
	}
	return form
}

func formFiles(form *multipart.Form) []*multipart.FileHeader {
	if form == nil {
		return nil
	}
	return form.File["images"]
}

// formField returns the first value of name, or nil when the field was not sent.
func formField(form *multipart.Form, name string) *string {
	if form == nil {
		return nil
	}
	values, ok := form.Value[name]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}

// scalarString renders a decoded JSON scalar as the string a form field would carry.
func scalarString(v interface{}) *string {
	var s string
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		s = val
	case float64:
		s = strconv.FormatFloat(val, 'f', -1, 64)
	default:
		s = fmt.Sprint(val)
	}
	return &s
}
