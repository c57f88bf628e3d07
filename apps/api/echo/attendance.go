package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mahadhurio/core/attendance"
)

type attendanceApi struct {
	svc        *attendance.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerAttendanceAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	limiter echo.MiddlewareFunc,
	svc *attendance.Service,
	validate *validator.Validate,
	translator ut.Translator,
) {
	api := attendanceApi{
		svc:        svc,
		validate:   validate,
		translator: translator,
	}

	ag := g.Group("/attendance", jwt)

	if limiter != nil {
		ag.POST("", api.capture, limiter)
	} else {
		ag.POST("", api.capture)
	}
	ag.GET("/:id", api.retrieve)
	ag.POST("/:id/class-rep-verification", api.decideClassRep)
	ag.POST("/:id/supervisor-verification", api.decideSupervisor)
	ag.POST("/:id/escalations", api.openEscalation)
	ag.PUT("/escalations/:id", api.resolveEscalation)
}

// Handlers

func (api *attendanceApi) capture(ctx echo.Context) error {
	var data attendance.NewCapture
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCapture")
	}
	data.UserAgent = ctx.Request().UserAgent()
	data.IPAddress = ctx.RealIP()
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	rec, err := api.svc.Capture(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "capturing attendance")
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *attendanceApi) retrieve(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	rec, err := api.svc.GetRecord(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting attendance record")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceApi) decideClassRep(ctx echo.Context) error {
	return api.decide(ctx, api.svc.DecideClassRep)
}

func (api *attendanceApi) decideSupervisor(ctx echo.Context) error {
	return api.decide(ctx, api.svc.DecideSupervisor)
}

func (api *attendanceApi) decide(
	ctx echo.Context,
	do func(ctx2 context.Context, actor attendance.Actor, recordID string, nd attendance.NewDecision) (attendance.Record, error),
) error {
	var data attendance.NewDecision
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDecision")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	rec, err := do(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceApi) openEscalation(ctx echo.Context) error {
	var data attendance.NewEscalation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEscalation")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	req, err := api.svc.OpenEscalation(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "opening escalation")
	}
	return ctx.JSON(http.StatusCreated, req)
}

func (api *attendanceApi) resolveEscalation(ctx echo.Context) error {
	var data attendance.ResolveEscalation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResolveEscalation")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	req, err := api.svc.ResolveEscalation(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "resolving escalation")
	}
	return ctx.JSON(http.StatusOK, req)
}
