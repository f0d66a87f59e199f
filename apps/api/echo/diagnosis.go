package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/unbfeelings/backend/core/diagnosis"
)

type diagnosisApi struct {
	ServerDeps
}

func registerDiagnosisAPI(g *echo.Group, deps ServerDeps) {
	api := diagnosisApi{deps}

	dg := g.Group("/diagnosis")
	dg.GET("", api.diagnosis)
	dg.GET("/weekly_count", api.weeklyCount)
}

func (api *diagnosisApi) diagnosis(ctx echo.Context) error {
	var q diagnosis.Query
	if err := ctx.Bind(&q); err != nil {
		return errors.Wrap(err, "binding to Query")
	}

	week, err := api.DiagnosisSvc.Diagnosis(ctx.Request().Context(), q)
	if err != nil {
		return errors.Wrap(err, "making diagnosis")
	}
	return ctx.JSON(http.StatusOK, week)
}

func (api *diagnosisApi) weeklyCount(ctx echo.Context) error {
	var q diagnosis.Query
	if err := ctx.Bind(&q); err != nil {
		return errors.Wrap(err, "binding to Query")
	}

	counts, err := api.DiagnosisSvc.WeeklyCount(ctx.Request().Context(), q)
	if err != nil {
		return errors.Wrap(err, "counting posts")
	}
	return ctx.JSON(http.StatusOK, counts)
}
