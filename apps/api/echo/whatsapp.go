package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mentorbro/core"
	"github.com/trezcool/mentorbro/core/notify"
)

type (
	SendTextRequest struct {
		To      string `json:"to"`
		Message string `json:"message"`
	}

	NotificationData struct {
		StudentName  string        `json:"studentName"`
		StudentEmail string        `json:"studentEmail"`
		BatchName    string        `json:"batchName"`
		TaskName     string        `json:"taskName"`
		Date         core.FlexTime `json:"date"`
		Time         string        `json:"time"`
		SecondTime   string        `json:"secondTime"`
		ReviewerName string        `json:"reviewerName"`
		CancelledBy  string        `json:"cancelledBy"`
		Reason       string        `json:"reason"`
		Status       string        `json:"status"`
		Score        *float64      `json:"score"`
		Message      string        `json:"message"`
	}

	SendNotificationRequest struct {
		To           string              `json:"to"`
		TemplateType notify.TemplateType `json:"templateType"`
		Data         NotificationData    `json:"data"`
	}
)

func (d NotificationData) toData() notify.Data {
	return notify.Data{
		StudentName:  d.StudentName,
		StudentEmail: d.StudentEmail,
		BatchName:    d.BatchName,
		TaskName:     d.TaskName,
		Date:         d.Date.Time,
		Time:         d.Time,
		SecondTime:   d.SecondTime,
		ReviewerName: d.ReviewerName,
		CancelledBy:  d.CancelledBy,
		Reason:       d.Reason,
		Status:       d.Status,
		Score:        d.Score,
		Message:      d.Message,
	}
}

type whatsappApi struct {
	transport notify.Transport
}

func registerWhatsappAPI(g *echo.Group, jwt echo.MiddlewareFunc, transport notify.Transport) {
	api := whatsappApi{transport: transport}

	wg := g.Group("/whatsapp", jwt, adminMiddleware())
	wg.POST("/send-text", api.sendText)
	wg.POST("/send-notification", api.sendNotification)
}

// respond renders a transport Result: failed sends are client errors.
func respond(ctx echo.Context, res notify.Result) error {
	if !res.Success {
		return ctx.JSON(http.StatusBadRequest, res)
	}
	return ctx.JSON(http.StatusOK, res)
}

// Handlers

func (api *whatsappApi) sendText(ctx echo.Context) error {
	var data SendTextRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SendTextRequest")
	}
	return respond(ctx, api.transport.SendTextMessage(ctx.Request().Context(), data.To, data.Message))
}

func (api *whatsappApi) sendNotification(ctx echo.Context) error {
	var data SendNotificationRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SendNotificationRequest")
	}
	res := api.transport.SendNotification(ctx.Request().Context(), data.To, data.TemplateType, data.Data.toData())
	return respond(ctx, res)
}
