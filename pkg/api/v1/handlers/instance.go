package handlers

import (
	"errors"
	"fmt"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/celestiaorg/ec2api/internal/api/v1/middleware"
	"github.com/celestiaorg/ec2api/internal/compute"
	"github.com/celestiaorg/ec2api/internal/constants"
	"github.com/celestiaorg/ec2api/internal/logger"
	"github.com/celestiaorg/ec2api/internal/services"
	"github.com/celestiaorg/ec2api/internal/types"
)

// InstanceHandler handles HTTP requests for instance operations
type InstanceHandler struct {
	factory compute.ClientFactory
	opts    services.Options
}

// NewInstanceHandler creates a new instance handler. An EC2 client is built per request from
// the profile and region headers.
func NewInstanceHandler(factory compute.ClientFactory, opts services.Options) *InstanceHandler {
	return &InstanceHandler{
		factory: factory,
		opts:    opts,
	}
}

// CreateInstance handles the request to create instances
func (h *InstanceHandler) CreateInstance(c *fiber.Ctx) error {
	var req types.CreateInstanceRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).
				JSON(types.ErrInvalidInput(fmt.Sprintf("%s: %v", ErrMsgInvalidReqBody, err)))
		}
	}

	h.opts.PrepareRequest(&req)
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(types.ErrInvalidInput(err.Error()))
	}

	service, err := h.newService(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(types.ErrServer(fmt.Sprintf("%s: %v", ErrMsgClientConstruction, err)))
	}

	instanceIDs, err := service.CreateInstance(c.UserContext(), req)
	if err != nil {
		return h.errorResponse(c, "create instances", err)
	}

	return c.JSON(types.InstanceResponse{
		InstanceIDs: instanceIDs,
		Status:      types.StatusRunning,
	})
}

// TerminateInstance handles the request to terminate instances
func (h *InstanceHandler) TerminateInstance(c *fiber.Ctx) error {
	var req types.TerminateInstanceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(types.ErrInvalidInput(fmt.Sprintf("%s: %v", ErrMsgInvalidReqBody, err)))
	}

	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(types.ErrInvalidInput(err.Error()))
	}

	service, err := h.newService(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(types.ErrServer(fmt.Sprintf("%s: %v", ErrMsgClientConstruction, err)))
	}

	instanceIDs, err := service.TerminateInstance(c.UserContext(), req.InstanceIDs)
	if err != nil {
		return h.errorResponse(c, "terminate instances", err)
	}

	return c.JSON(types.InstanceResponse{
		InstanceIDs: instanceIDs,
		Status:      types.StatusTerminated,
	})
}

// newService builds the EC2 client for this request
func (h *InstanceHandler) newService(c *fiber.Ctx) (*services.Instance, error) {
	client, err := h.factory.NewClient(c.UserContext(), c.Get(constants.HeaderProfile), c.Get(constants.HeaderRegion))
	if err != nil {
		logger.ErrorWithFields("Failed to create EC2 client", logger.Fields{
			"request_id": middleware.RequestIDFromCtx(c),
			"profile":    c.Get(constants.HeaderProfile),
			"region":     c.Get(constants.HeaderRegion),
			"error":      err.Error(),
		})
		return nil, err
	}
	return services.NewInstanceService(client, h.opts), nil
}

// errorResponse maps a workflow error onto the response: credential and client errors are bad
// requests, anything else is a server error without provider detail
func (h *InstanceHandler) errorResponse(c *fiber.Ctx, action string, err error) error {
	fields := logger.Fields{
		"request_id": middleware.RequestIDFromCtx(c),
		"action":     action,
		"error":      err.Error(),
	}

	if errors.Is(err, services.ErrInvalidRequest) {
		logger.WarnWithFields("Invalid request", fields)
		return c.Status(fiber.StatusBadRequest).
			JSON(types.ErrInvalidInput(err.Error()))
	}

	kind := compute.KindOf(err)
	fields["kind"] = kind.String()
	if code := compute.APIErrorCode(err); code != "" {
		fields["aws_error_code"] = code
	}

	switch kind {
	case compute.KindCredentials:
		logger.WarnWithFields("AWS credentials error", fields)
		return c.Status(fiber.StatusBadRequest).
			JSON(types.ErrInvalidInput(ErrMsgCredentials))
	case compute.KindClient:
		logger.WarnWithFields("AWS client error", fields)
		return c.Status(fiber.StatusBadRequest).
			JSON(types.ErrInvalidInput(fmt.Sprintf("%s: %s", ErrMsgClient, providerDetail(err))))
	default:
		logger.ErrorWithFields("Unexpected error", fields)
		return c.Status(fiber.StatusInternalServerError).
			JSON(types.ErrServer(ErrMsgUnexpected))
	}
}

// providerDetail is the provider's own message, without the operation wrapping
func providerDetail(err error) string {
	var pe *compute.ProviderError
	if errors.As(err, &pe) {
		return pe.Err.Error()
	}
	return err.Error()
}
