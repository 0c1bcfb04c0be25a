package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/milesvalue/internal/models"
	"github.com/dharmasatrya/milesvalue/internal/reference"
	"github.com/dharmasatrya/milesvalue/internal/valuation"
)

type MileageHandler struct {
	engine    *valuation.Engine
	reference *reference.Data
}

func NewMileageHandler(engine *valuation.Engine, ref *reference.Data) *MileageHandler {
	if ref == nil {
		ref = reference.Default()
	}
	return &MileageHandler{engine: engine, reference: ref}
}

// Evaluate values the cash price against the programs in the request, or
// against the reference charts for the route when none are given.
func (h *MileageHandler) Evaluate(c echo.Context) error {
	startTime := time.Now()

	var req models.EvaluateRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest[[]models.ValuationResult](c, startTime, "Failed to parse request body: "+err.Error())
	}

	programs := req.Programs
	if len(programs) == 0 {
		if req.Route == nil {
			return invalidRequest[[]models.ValuationResult](c, startTime, "programs or route is required")
		}
		dep := strings.ToUpper(strings.TrimSpace(req.Route.Departure))
		arr := strings.ToUpper(strings.TrimSpace(req.Route.Arrival))
		programs = h.reference.Programs(dep, arr)
	}

	env := h.engine.Evaluate(req.CashPrice, programs, req.CabinClass)
	if !env.Success {
		return c.JSON(statusFor(env.Error), env)
	}
	return c.JSON(http.StatusOK, env)
}
