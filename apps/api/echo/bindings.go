package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/mentorbro/core"
	"github.com/trezcool/mentorbro/core/review"
)

const (
	orderingParam = "ordering"
	pageParam     = "page"
	limitParam    = "limit"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind parses `?ordering=field,-other`: a leading "-" sorts descending.
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

func queryInt(ctx echo.Context, name string) (int, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, core.NewValidationError(nil, core.FieldError{Field: name, Error: name + " must be a number"})
	}
	return n, nil
}

func queryBool(ctx echo.Context, name string) (*bool, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil, core.NewValidationError(nil, core.FieldError{Field: name, Error: name + " must be true or false"})
	}
	return &b, nil
}

func queryTime(ctx echo.Context, name string) (*core.FlexTime, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return nil, nil
	}
	var ft core.FlexTime
	if err := ft.UnmarshalParam(val); err != nil {
		return nil, core.NewValidationError(nil, core.FieldError{Field: name, Error: name + " must be a date"})
	}
	return &ft, nil
}

func bindPage(ctx echo.Context) (core.Page, error) {
	page, err := queryInt(ctx, pageParam)
	if err != nil {
		return core.Page{}, err
	}
	limit, err := queryInt(ctx, limitParam)
	if err != nil {
		return core.Page{}, err
	}
	return core.Page{Page: page, Limit: limit}, nil
}

func bindReviewFilter(ctx echo.Context) (review.QueryFilter, error) {
	completed, err := queryBool(ctx, "isReviewCompleted")
	if err != nil {
		return review.QueryFilter{}, err
	}
	return review.QueryFilter{
		StudentID:         ctx.QueryParam("student"),
		Reviewer:          ctx.QueryParam("reviewer"),
		ProgramID:         ctx.QueryParam("program"),
		IsReviewCompleted: completed,
		ReviewStatus:      ctx.QueryParam("reviewStatus"),
	}, nil
}

func bindAdminStatsFilter(ctx echo.Context) (review.AdminStatsFilter, error) {
	var filter review.AdminStatsFilter
	from, err := queryTime(ctx, "from")
	if err != nil {
		return filter, err
	}
	to, err := queryTime(ctx, "to")
	if err != nil {
		return filter, err
	}
	if from != nil {
		filter.From = &from.Time
	}
	if to != nil {
		filter.To = &to.Time
	}
	return filter, nil
}
