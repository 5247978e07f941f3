package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mentorbro/core"
	"github.com/trezcool/mentorbro/core/program"
)

type programTaskApi struct {
	svc *program.Service
}

func registerProgramTaskAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *program.Service) {
	api := programTaskApi{svc: svc}

	tg := g.Group("/program-tasks", jwt)
	tg.GET("", api.query)
	tg.POST("", api.create, adminMiddleware())
	tg.GET("/weeks/:week", api.retrieveByWeek)

	dg := tg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, adminMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())
}

// Handlers

func (api *programTaskApi) create(ctx echo.Context) error {
	var data program.NewTask
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTask")
	}

	t, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating program task")
	}
	return ctx.JSON(http.StatusCreated, t)
}

// query lists the active tasks of `?program=` (all programs if absent), ordered by week.
func (api *programTaskApi) query(ctx echo.Context) error {
	tasks, err := api.svc.Query(ctx.Request().Context(), ctx.QueryParam("program"))
	if err != nil {
		return errors.Wrap(err, "querying program tasks")
	}
	return ctx.JSON(http.StatusOK, tasks)
}

func (api *programTaskApi) retrieve(ctx echo.Context) error {
	t, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting program task")
	}
	return ctx.JSON(http.StatusOK, t)
}

// retrieveByWeek returns the active task of `?program=` for a week.
func (api *programTaskApi) retrieveByWeek(ctx echo.Context) error {
	programID := ctx.QueryParam("program")
	if programID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "program", Error: "this field is required"})
	}
	week, err := strconv.Atoi(ctx.Param("week"))
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "week", Error: "week must be a number"})
	}

	t, err := api.svc.GetByWeek(ctx.Request().Context(), programID, week)
	if err != nil {
		return errors.Wrap(err, "getting program task by week")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *programTaskApi) update(ctx echo.Context) error {
	var data program.UpdateTask
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTask")
	}

	t, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating program task")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *programTaskApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting program task")
	}
	return ctx.NoContent(http.StatusNoContent)
}
