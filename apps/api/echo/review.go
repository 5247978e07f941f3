package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mentorbro/core"
	"github.com/trezcool/mentorbro/core/review"
)

type (
	ListResponse struct {
		Data       interface{}     `json:"data"`
		Pagination core.Pagination `json:"pagination"`
	}

	BulkUpdateRequest struct {
		Updates []review.BulkUpdateItem `json:"updates"`
	}

	SyncResponse struct {
		Synced int `json:"synced"`
	}
)

type reviewApi struct {
	svc *review.Service
}

func registerReviewAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *review.Service) {
	api := reviewApi{svc: svc}

	rg := g.Group("/task-reviews", jwt)
	rg.POST("", api.create)
	rg.GET("", api.query, adminMiddleware())
	rg.GET("/stats", api.adminStats, adminMiddleware())
	rg.PUT("/bulk", api.bulkUpdate, adminMiddleware())
	rg.POST("/sync-pending-tasks", api.syncAllPendingTasks, adminMiddleware())

	// detail endpoints
	dg := rg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, roleMiddleware(RoleAdmin, RoleReviewer))
	dg.DELETE("", api.destroy, adminMiddleware())
	dg.PATCH("/assign", api.assignReviewer, roleMiddleware(RoleAdmin, RoleReviewer))
	dg.PATCH("/unassign", api.unassignReviewer, roleMiddleware(RoleAdmin, RoleReviewer))
	dg.PATCH("/cancel", api.cancel)
	dg.PATCH("/complete", api.complete, roleMiddleware(RoleAdmin, RoleReviewer))
	dg.POST("/sync-pending-tasks", api.syncPendingTasks, adminMiddleware())

	sg := g.Group("/students/:id", jwt, selfOrAdminMiddleware("id"))
	sg.GET("/task-reviews", api.queryByStudent)
	sg.GET("/task-reviews/last", api.lastForStudent)
	sg.GET("/next-week", api.nextWeekForStudent)

	vg := g.Group("/reviewers/:id", jwt, selfOrAdminMiddleware("id"))
	vg.GET("/task-reviews", api.queryByReviewer)
	vg.GET("/earnings", api.earnings)
}

// authorize loads the review of the path and checks that the caller takes part in it.
// Admins take part in every review.
func (api *reviewApi) authorize(ctx echo.Context) (review.TaskReviewDetails, Claims, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return review.TaskReviewDetails{}, Claims{}, errors.Wrap(err, "getting context claims")
	}
	r, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return review.TaskReviewDetails{}, claims, err
	}

	switch claims.Role {
	case RoleAdmin:
	case RoleStudent:
		if r.StudentID != claims.Subject {
			return r, claims, errHttpForbidden
		}
	case RoleReviewer:
		if r.ReviewerID != claims.Subject {
			return r, claims, errHttpForbidden
		}
	default:
		return r, claims, errHttpForbidden
	}
	return r, claims, nil
}

type listFunc func(ctx context.Context, ordering []core.DBOrdering, page core.Page) ([]review.TaskReviewDetails, core.Pagination, error)

func (api *reviewApi) list(ctx echo.Context, fetch listFunc) error {
	var ord Ordering
	ord.Bind(ctx)
	page, err := bindPage(ctx)
	if err != nil {
		return err
	}

	reviews, pagination, err := fetch(ctx.Request().Context(), ord.Orderings, page)
	if err != nil {
		return errors.Wrap(err, "querying reviews")
	}
	return ctx.JSON(http.StatusOK, ListResponse{Data: reviews, Pagination: pagination})
}

// Handlers

func (api *reviewApi) create(ctx echo.Context) error {
	var data review.NewTaskReview
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTaskReview")
	}

	// students only book their own reviews
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	switch claims.Role {
	case RoleAdmin:
	case RoleStudent:
		if data.StudentID == "" {
			data.StudentID = claims.Subject
		}
		if data.StudentID != claims.Subject {
			return errHttpForbidden
		}
	default:
		return errHttpForbidden
	}

	r, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating review")
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *reviewApi) query(ctx echo.Context) error {
	filter, err := bindReviewFilter(ctx)
	if err != nil {
		return err
	}
	return api.list(ctx, func(c context.Context, ordering []core.DBOrdering, page core.Page) ([]review.TaskReviewDetails, core.Pagination, error) {
		return api.svc.Query(c, filter, ordering, page)
	})
}

func (api *reviewApi) queryByStudent(ctx echo.Context) error {
	id := ctx.Param("id")
	return api.list(ctx, func(c context.Context, ordering []core.DBOrdering, page core.Page) ([]review.TaskReviewDetails, core.Pagination, error) {
		return api.svc.GetByStudentID(c, id, ordering, page)
	})
}

func (api *reviewApi) queryByReviewer(ctx echo.Context) error {
	id := ctx.Param("id")
	return api.list(ctx, func(c context.Context, ordering []core.DBOrdering, page core.Page) ([]review.TaskReviewDetails, core.Pagination, error) {
		return api.svc.GetByReviewerID(c, id, ordering, page)
	})
}

func (api *reviewApi) retrieve(ctx echo.Context) error {
	r, _, err := api.authorize(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *reviewApi) update(ctx echo.Context) error {
	var data review.UpdateTaskReview
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTaskReview")
	}
	_, claims, err := api.authorize(ctx)
	if err != nil {
		return err
	}
	if claims.Role != RoleAdmin && data.AdminOnly() {
		return errHttpForbidden
	}

	r, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating review")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *reviewApi) bulkUpdate(ctx echo.Context) error {
	var data BulkUpdateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkUpdateRequest")
	}

	res, err := api.svc.BulkUpdate(ctx.Request().Context(), data.Updates)
	if err != nil {
		return errors.Wrap(err, "bulk updating reviews")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *reviewApi) destroy(ctx echo.Context) error {
	if err := api.svc.Remove(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "removing review")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *reviewApi) assignReviewer(ctx echo.Context) error {
	var data review.AssignReviewer
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignReviewer")
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	// reviewers may only pick up an open slot for themselves
	if claims.Role == RoleReviewer {
		current, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return err
		}
		if core.CleanString(data.ReviewerID) != claims.Subject || (current.ReviewerID != "" && current.ReviewerID != claims.Subject) {
			return errHttpForbidden
		}
	}

	r, err := api.svc.AssignReviewer(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "assigning reviewer")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *reviewApi) unassignReviewer(ctx echo.Context) error {
	// reviewers go through authorize, so they can only drop their own reviews
	if _, _, err := api.authorize(ctx); err != nil {
		return err
	}

	r, err := api.svc.UnassignReviewer(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "unassigning reviewer")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *reviewApi) cancel(ctx echo.Context) error {
	var data review.CancelTaskReview
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CancelTaskReview")
	}
	_, claims, err := api.authorize(ctx)
	if err != nil {
		return err
	}
	data.CancelledBy = core.FirstNonEmpty(data.CancelledBy, claims.Role)

	r, err := api.svc.Cancel(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "cancelling review")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *reviewApi) complete(ctx echo.Context) error {
	var data review.CompleteTaskReview
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CompleteTaskReview")
	}
	if _, _, err := api.authorize(ctx); err != nil {
		return err
	}

	r, err := api.svc.Complete(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "completing review")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *reviewApi) syncPendingTasks(ctx echo.Context) error {
	r, err := api.svc.SyncPendingTasks(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "syncing pending tasks")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *reviewApi) syncAllPendingTasks(ctx echo.Context) error {
	n, err := api.svc.SyncAllPendingTasks(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "syncing all pending tasks")
	}
	return ctx.JSON(http.StatusOK, SyncResponse{Synced: n})
}

func (api *reviewApi) lastForStudent(ctx echo.Context) error {
	r, err := api.svc.GetLastReviewForStudent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting last review")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *reviewApi) nextWeekForStudent(ctx echo.Context) error {
	next, err := api.svc.GetNextWeekForStudent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting next week")
	}
	return ctx.JSON(http.StatusOK, next)
}

func (api *reviewApi) adminStats(ctx echo.Context) error {
	filter, err := bindAdminStatsFilter(ctx)
	if err != nil {
		return err
	}
	stats, err := api.svc.GetAdminStats(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "getting admin stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *reviewApi) earnings(ctx echo.Context) error {
	earnings, err := api.svc.GetReviewerEarnings(ctx.Request().Context(), ctx.Param("id"), ctx.QueryParam("period"))
	if err != nil {
		return errors.Wrap(err, "getting reviewer earnings")
	}
	return ctx.JSON(http.StatusOK, earnings)
}
