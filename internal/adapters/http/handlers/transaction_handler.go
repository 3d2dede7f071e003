package handlers

import (
	"bytes"

	"cmm-stock/internal/adapters/persistence/models"
	"cmm-stock/internal/core/domain"
	"cmm-stock/internal/core/services"
	"cmm-stock/internal/pkg/pagination"
	"cmm-stock/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// TransactionHandler handles the endpoints of one transaction class.
// /transaksi and /transaksi-keluar each get their own instance.
type TransactionHandler struct {
	service *services.TransactionService
	class   domain.TransactionClass
}

// NewTransactionHandler creates a handler bound to class
func NewTransactionHandler(service *services.TransactionService, class domain.TransactionClass) *TransactionHandler {
	return &TransactionHandler{
		service: service,
		class:   class,
	}
}

// CreatedResponse is returned after a transaction is created
type CreatedResponse struct {
	Message   string              `json:"message"`
	Transaksi *models.Transaction `json:"transaksi"`
}

// LatestIDResponse carries the id the next creation would receive
type LatestIDResponse struct {
	HumanID string `json:"idtransaksivarchar"`
}

func (h *TransactionHandler) notFound() string {
	return h.class.Label() + " not found"
}

// List handles listing transactions
// @Summary List transactions
// @Description Without query parameters the whole table is returned as an array. With page or limit a paginated envelope is returned.
// @Tags Transactions
// @Produce json
// @Security BearerAuth
// @Param search query string false "Substring over id, plate, driver, source, item and uom"
// @Param sort query string false "Column to sort by"
// @Param order query string false "asc or desc"
// @Param from query string false "Earliest tanggal_pickup, YYYY-MM-DD"
// @Param to query string false "Latest tanggal_pickup, YYYY-MM-DD"
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {array} models.Transaction
// @Failure 401 {object} response.ErrorBody
// @Router /transaksi [get]
// @Router /transaksi-keluar [get]
func (h *TransactionHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	rows, total, err := h.service.List(c.Context(), h.class, params)
	if err != nil {
		return response.FromError(c, err, h.notFound())
	}

	if params.Paged {
		return response.OK(c, pagination.NewResponse(rows, params, total))
	}
	return response.OK(c, rows)
}

// Get handles getting one transaction
// @Summary Get transaction by id
// @Tags Transactions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction id, e.g. CMMIN0101240000"
// @Success 200 {object} models.Transaction
// @Failure 404 {object} response.ErrorBody
// @Router /transaksi/{id} [get]
// @Router /transaksi-keluar/{id} [get]
func (h *TransactionHandler) Get(c *fiber.Ctx) error {
	rec, err := h.service.Get(c.Context(), h.class, c.Params("id"))
	if err != nil {
		return response.FromError(c, err, h.notFound())
	}
	return response.OK(c, rec)
}

// Create handles creating a transaction (Admin, Manager)
// @Summary Create transaction
// @Tags Transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.TransactionInput true "Transaction"
// @Success 201 {object} CreatedResponse
// @Failure 400 {object} response.ErrorBody
// @Failure 403 {object} response.ErrorBody
// @Failure 409 {object} response.ErrorBody
// @Router /transaksi [post]
// @Router /transaksi-keluar [post]
func (h *TransactionHandler) Create(c *fiber.Ctx) error {
	var input services.TransactionInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	rec, err := h.service.Create(c.Context(), h.class, &input)
	if err != nil {
		return response.FromError(c, err, h.notFound())
	}

	return response.Created(c, CreatedResponse{
		Message:   h.class.Label() + " Created",
		Transaksi: rec,
	})
}

// Update handles updating a transaction (Admin, Manager)
// @Summary Update transaction
// @Tags Transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction id"
// @Param body body services.TransactionInput true "Transaction"
// @Success 200 {object} models.Transaction
// @Failure 400 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /transaksi/{id} [put]
// @Router /transaksi-keluar/{id} [put]
func (h *TransactionHandler) Update(c *fiber.Ctx) error {
	var input services.TransactionInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	rec, err := h.service.Update(c.Context(), h.class, c.Params("id"), &input)
	if err != nil {
		return response.FromError(c, err, h.notFound())
	}
	return response.OK(c, rec)
}

// Delete handles deleting a transaction (Admin, Manager)
// @Summary Delete transaction
// @Tags Transactions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction id"
// @Success 200 {object} response.Message
// @Failure 404 {object} response.ErrorBody
// @Router /transaksi/{id} [delete]
// @Router /transaksi-keluar/{id} [delete]
func (h *TransactionHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Context(), h.class, c.Params("id")); err != nil {
		return response.FromError(c, err, h.notFound())
	}
	return response.OK(c, response.Message{Message: h.class.Label() + " deleted"})
}

// LatestID returns the id the next creation would receive (Admin, Manager)
// @Summary Next transaction id
// @Tags Transactions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} LatestIDResponse
// @Failure 403 {object} response.ErrorBody
// @Router /transaksi/latest-id [get]
// @Router /transaksi-keluar/latest-id [get]
func (h *TransactionHandler) LatestID(c *fiber.Ctx) error {
	id, err := h.service.PeekNextID(c.Context(), h.class)
	if err != nil {
		return response.FromError(c, err, h.notFound())
	}
	return response.OK(c, LatestIDResponse{HumanID: id})
}

// Export downloads the table as an XLSX workbook (Admin, Manager)
// @Summary Export transactions
// @Tags Transactions
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {file} file
// @Failure 403 {object} response.ErrorBody
// @Router /transaksi/export [get]
// @Router /transaksi-keluar/export [get]
func (h *TransactionHandler) Export(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := h.service.Export(c.Context(), h.class, &buf); err != nil {
		return response.FromError(c, err, h.notFound())
	}

	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Attachment(h.class.Table() + ".xlsx")
	return c.Send(buf.Bytes())
}
