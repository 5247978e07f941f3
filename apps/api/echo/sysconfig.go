package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mentorbro/core/sysconfig"
)

type systemConfigApi struct {
	svc *sysconfig.Service
}

func registerSystemConfigAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *sysconfig.Service) {
	api := systemConfigApi{svc: svc}

	cg := g.Group("/system-config", jwt, adminMiddleware())
	cg.GET("", api.retrieve)
	cg.PUT("", api.update)
	cg.POST("/ensure", api.ensure)
	cg.GET("/credentials/:section", api.checkCredentials)
}

type CredentialsStatus struct {
	Section string `json:"section"`
	Valid   bool   `json:"valid"`
}

// Handlers

func (api *systemConfigApi) retrieve(ctx echo.Context) error {
	conf, err := api.svc.Current(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting system config")
	}
	return ctx.JSON(http.StatusOK, conf)
}

func (api *systemConfigApi) update(ctx echo.Context) error {
	var data sysconfig.Update
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to sysconfig.Update")
	}

	conf, err := api.svc.Update(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "updating system config")
	}
	return ctx.JSON(http.StatusOK, conf)
}

func (api *systemConfigApi) ensure(ctx echo.Context) error {
	conf, err := api.svc.EnsureDefault(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "ensuring default system config")
	}
	return ctx.JSON(http.StatusOK, conf)
}

func (api *systemConfigApi) checkCredentials(ctx echo.Context) error {
	section := ctx.Param("section")
	valid, err := api.svc.HasValidCredentials(ctx.Request().Context(), section)
	if err != nil {
		return errors.Wrap(err, "checking credentials")
	}
	return ctx.JSON(http.StatusOK, CredentialsStatus{Section: section, Valid: valid})
}
