package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/stage/core"
	"github.com/trezcool/stage/core/curriculum"
	"github.com/trezcool/stage/core/offer"
	"github.com/trezcool/stage/core/user"
)

const orderingParam = "ordering"

// bindOrdering parses the `ordering` query param, eg. `?ordering=-created_at,name`.
func bindOrdering(ctx echo.Context, allowed ...string) ([]core.DBOrdering, error) {
	return core.ParseOrderings(ctx.QueryParam(orderingParam), allowed...)
}

func bindUserFilter(ctx echo.Context) (user.QueryFilter, error) {
	filter := user.QueryFilter{
		Search: ctx.QueryParam("search"),
		Roles:  ctx.QueryParams()["role"],
	}
	if s := ctx.QueryParam("is_active"); s != "" {
		isActive, err := strconv.ParseBool(s)
		if err != nil {
			return filter, core.NewFieldError("is_active", "must be a boolean")
		}
		filter.IsActive = &isActive
	}
	filter.Clean()
	return filter, nil
}

func bindCurriculumFilter(ctx echo.Context) (curriculum.QueryFilter, error) {
	filter := curriculum.QueryFilter{StudentID: core.CleanString(ctx.QueryParam("student_id"))}
	if s := ctx.QueryParam("validity"); s != "" {
		validity, err := curriculum.ParseValidity(s)
		if err != nil {
			return filter, core.NewFieldError("validity", "must be one of: valid, invalid, pending")
		}
		filter.Validity = &validity
	}
	return filter, nil
}

func bindOfferFilter(ctx echo.Context) (offer.QueryFilter, error) {
	filter := offer.QueryFilter{
		CreatorID:  core.CleanString(ctx.QueryParam("creator_id")),
		Department: core.CleanString(ctx.QueryParam("department")),
	}
	if s := ctx.QueryParam("validity"); s != "" {
		validity, err := curriculum.ParseValidity(s)
		if err != nil {
			return filter, core.NewFieldError("validity", "must be one of: valid, invalid, pending")
		}
		filter.Validity = &validity
	}
	return filter, nil
}
