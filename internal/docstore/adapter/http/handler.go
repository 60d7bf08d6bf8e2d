package http

import (
	"context"
	"sort"
	"time"

	"cosmosdb-wrapper/internal/docstore/domain/model"
	"cosmosdb-wrapper/internal/docstore/domain/repository"
	"cosmosdb-wrapper/internal/docstore/usecase"
	"cosmosdb-wrapper/internal/shared/errors"
	"cosmosdb-wrapper/internal/shared/logger"
	"cosmosdb-wrapper/internal/shared/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// HTTPHandler exposes the document helpers as a REST API:
//
//	PUT  /v1/databases/:db                                    resolve database
//	PUT  /v1/databases/:db/containers/:container              resolve container
//	POST /v1/databases/:db/containers/:container/query        query items
//	GET  /v1/databases/:db/containers/:container/items        all items, or ?uri= lookup
//	GET  /v1/databases/:db/containers/:container/items/:id    by id, or point read with ?pk=
//	POST /v1/databases/:db/containers/:container/items        upsert
type HTTPHandler struct {
	UC             usecase.DocumentUsecase
	Client         repository.Client
	Log            logger.Logger
	RequestTimeout time.Duration
}

// NewHTTPHandler creates a new HTTPHandler
func NewHTTPHandler(uc usecase.DocumentUsecase, client repository.Client, log logger.Logger, requestTimeout time.Duration) *HTTPHandler {
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}
	return &HTTPHandler{
		UC:             uc,
		Client:         client,
		Log:            log.WithComponent("http"),
		RequestTimeout: requestTimeout,
	}
}

// ContainerRequest is the body of PUT .../containers/:container
type ContainerRequest struct {
	PartitionKeyPath string `json:"partitionKeyPath"`
}

// QueryRequest is the body of POST .../query
type QueryRequest struct {
	Query      string                 `json:"query"`
	Parameters map[string]interface{} `json:"parameters"`
}

// RegisterRoutes registers the API under /v1
func (h *HTTPHandler) RegisterRoutes(router fiber.Router) {
	v1 := router.Group("/v1")

	v1.Put("/databases/:db", h.ResolveDatabase)

	containers := v1.Group("/databases/:db/containers")
	containers.Put("/:container", h.ResolveContainer)
	containers.Post("/:container/query", h.QueryItems)
	containers.Get("/:container/items", h.ListItems)
	containers.Get("/:container/items/:id", h.GetItem)
	containers.Post("/:container/items", h.CreateItem)
}

func (h *HTTPHandler) ResolveDatabase(c *fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	db, err := h.UC.ResolveDatabase(ctx, h.Client, c.Params("db"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"id": db.Name()})
}

func (h *HTTPHandler) ResolveContainer(c *fiber.Ctx) error {
	var req ContainerRequest
	if err := c.BodyParser(&req); err != nil {
		return h.badRequest(c, "Failed to parse request body: "+err.Error())
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	db, err := h.UC.OpenDatabase(ctx, h.Client, c.Params("db"))
	if err != nil {
		return h.fail(c, err)
	}
	container, err := h.UC.ResolveContainer(ctx, db, c.Params("container"), req.PartitionKeyPath)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"id":               container.Name(),
		"partitionKeyPath": container.PartitionKeyPath(),
	})
}

func (h *HTTPHandler) QueryItems(c *fiber.Ctx) error {
	var req QueryRequest
	if err := c.BodyParser(&req); err != nil {
		return h.badRequest(c, "Failed to parse request body: "+err.Error())
	}
	if req.Query == "" {
		return h.badRequest(c, "Request must contain a 'query' field")
	}

	names := make([]string, 0, len(req.Parameters))
	for name := range req.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)
	params := make([]model.QueryParameter, 0, len(names))
	for _, name := range names {
		params = append(params, model.Param(name, req.Parameters[name]))
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	container, err := h.openContainer(ctx, c)
	if err != nil {
		if errors.IsNotFound(err) {
			return h.items(c, nil)
		}
		return h.fail(c, err)
	}
	docs, err := h.UC.QueryItems(ctx, container, model.NewQuery(req.Query, params...))
	if err != nil {
		return h.fail(c, err)
	}
	return h.items(c, docs)
}

// ListItems returns every item, or the single item whose uri matches ?uri=. A missing
// container lists as empty.
func (h *HTTPHandler) ListItems(c *fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	uri := c.Query("uri")
	container, err := h.openContainer(ctx, c)
	if err != nil {
		if uri == "" && errors.IsNotFound(err) {
			return h.items(c, nil)
		}
		return h.fail(c, err)
	}

	if uri != "" {
		doc, err := h.UC.GetItemByURI(ctx, container, uri)
		if err != nil {
			return h.fail(c, err)
		}
		return h.item(c, doc)
	}

	docs, err := h.UC.ReadAllItems(ctx, container)
	if err != nil {
		return h.fail(c, err)
	}
	return h.items(c, docs)
}

// GetItem looks an item up by id, or point-reads it when ?pk= is given
func (h *HTTPHandler) GetItem(c *fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	container, err := h.openContainer(ctx, c)
	if err != nil {
		return h.fail(c, err)
	}

	id := c.Params("id")
	var doc model.Document
	if c.Context().QueryArgs().Has("pk") {
		pk, perr := partitionKeyParam(c.Query("pk"), c.Query("pkType", model.PartitionKeyString))
		if perr != nil {
			return h.fail(c, perr)
		}
		doc, err = h.UC.ReadItem(ctx, container, id, pk)
	} else {
		doc, err = h.UC.GetItemByID(ctx, container, id)
	}
	if err != nil {
		return h.fail(c, err)
	}
	return h.item(c, doc)
}

func (h *HTTPHandler) CreateItem(c *fiber.Ctx) error {
	var doc model.Document
	if err := c.BodyParser(&doc); err != nil {
		return h.badRequest(c, "Failed to parse request body: "+err.Error())
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	container, err := h.openContainer(ctx, c)
	if err != nil {
		return h.fail(c, err)
	}
	stored, err := h.UC.CreateItem(ctx, container, doc)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(stored)
}

func (h *HTTPHandler) openContainer(ctx context.Context, c *fiber.Ctx) (repository.Container, error) {
	db, err := h.UC.OpenDatabase(ctx, h.Client, c.Params("db"))
	if err != nil {
		return nil, err
	}
	return h.UC.OpenContainer(ctx, db, c.Params("container"))
}

func (h *HTTPHandler) requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	ctx := utils.WithContainer(utils.WithDatabase(c.UserContext(), c.Params("db")), c.Params("container"))
	return context.WithTimeout(ctx, h.RequestTimeout)
}

func (h *HTTPHandler) items(c *fiber.Ctx, docs []model.Document) error {
	if docs == nil {
		docs = []model.Document{}
	}
	return c.JSON(fiber.Map{"items": docs, "count": len(docs)})
}

func (h *HTTPHandler) item(c *fiber.Ctx, doc model.Document) error {
	if doc == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "not_found",
			"message": "Item not found",
		})
	}
	return c.JSON(doc)
}

func (h *HTTPHandler) badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":   "invalid_request",
		"message": message,
	})
}

func (h *HTTPHandler) fail(c *fiber.Ctx, err error) error {
	status := errors.HTTPStatus(err)
	code := "internal_error"
	switch {
	case errors.IsValidation(err):
		code = "invalid_request"
	case errors.IsNotFound(err):
		code = "not_found"
		status = fiber.StatusNotFound
	case errors.IsConflict(err):
		code = "conflict"
	case errors.IsConsistency(err):
		code = "consistency_violation"
	}

	if status >= fiber.StatusInternalServerError {
		h.Log.WithContext(c.UserContext()).Error("Request failed",
			zap.String("path", c.Path()),
			zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{
		"error":     code,
		"message":   err.Error(),
		"requestId": utils.GetRequestIDOrDefault(c.UserContext(), ""),
	})
}

// partitionKeyParam converts the ?pk= value according to ?pkType=
func partitionKeyParam(raw, kind string) (interface{}, error) {
	pk, err := model.ParsePartitionKey(raw, kind)
	if err != nil {
		return nil, errors.NewValidationError(err.Error()).WithCause(errors.ErrInvalidInput)
	}
	return pk, nil
}
