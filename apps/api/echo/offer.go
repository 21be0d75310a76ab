package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/stage/core/curriculum"
	"github.com/trezcool/stage/core/offer"
)

const (
	contextOfferKey       = "offer"
	contextApplicationKey = "application"
)

var (
	errOfferNotFoundInCtx       = errors.New("offer object not found in echo.Context")
	errApplicationNotFoundInCtx = errors.New("application object not found in echo.Context")
)

type offerAPI struct {
	*Deps
}

func registerOfferAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := offerAPI{Deps: deps}

	og := g.Group("/offers", jwt)
	og.POST("", api.create, monitorOrManagerMiddleware())
	og.GET("", api.query)

	// detail endpoints
	dg := og.Group("/:id", api.visibleOfferMiddleware())
	dg.GET("", api.retrieve)
	dg.POST("/validate", api.validate, managerMiddleware())
	dg.POST("/apply", api.apply, studentMiddleware())

	ag := g.Group("/applications", jwt)
	ag.GET("", api.studentApplications, studentMiddleware())
	ag.GET("/applicants", api.applicants, monitorOrManagerMiddleware())

	adg := ag.Group("/:id", monitorOrManagerMiddleware(), api.offerCreatorMiddleware())
	adg.PUT("/interview", api.setInterviewDate)
	adg.PUT("/decision", api.decide)
}

// Handlers

func (api *offerAPI) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var no offer.NewOffer
	if err = ctx.Bind(&no); err != nil {
		return errors.Wrap(err, "binding to NewOffer")
	}
	no.CreatorID = claims.Subject
	if err = no.Validate(api.Validate); err != nil {
		return err
	}

	o, err := api.OfferSvc.Create(ctx.Request().Context(), no)
	if err != nil {
		return errors.Wrap(err, "creating offer")
	}
	return ctx.JSON(http.StatusCreated, o)
}

// query lists all offers to managers, their own offers to monitors, and validated offers to everyone else.
func (api *offerAPI) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	filter, err := bindOfferFilter(ctx)
	if err != nil {
		return err
	}
	ordering, err := bindOrdering(ctx, offer.OrderingFields...)
	if err != nil {
		return err
	}

	switch {
	case claims.IsManager:
	case claims.IsMonitor:
		filter.CreatorID = claims.Subject
	default:
		valid := curriculum.Valid
		filter.Validity = &valid
	}

	offers, err := api.OfferSvc.Query(ctx.Request().Context(), filter, ordering)
	if err != nil {
		return errors.Wrap(err, "querying offers")
	}
	if offers == nil {
		offers = []offer.Offer{}
	}
	return ctx.JSON(http.StatusOK, offers)
}

func (api *offerAPI) retrieve(ctx echo.Context) error {
	o, ok := ctx.Get(contextOfferKey).(offer.Offer)
	if !ok {
		return errors.Wrap(errOfferNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, o)
}

func (api *offerAPI) validate(ctx echo.Context) error {
	o, ok := ctx.Get(contextOfferKey).(offer.Offer)
	if !ok {
		return errors.Wrap(errOfferNotFoundInCtx, "retrieving object from context")
	}

	var data offer.Validation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Validation")
	}
	if err := api.Validate.Struct(data); err != nil {
		return err
	}

	if err := api.OfferSvc.Validate(ctx.Request().Context(), o.ID, *data.Valid); err != nil {
		return errors.Wrap(err, "validating offer")
	}
	o, err := api.OfferSvc.GetByID(ctx.Request().Context(), o.ID)
	if err != nil {
		return errors.Wrap(err, "getting validated offer")
	}
	return ctx.JSON(http.StatusOK, o)
}

func (api *offerAPI) apply(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	o, ok := ctx.Get(contextOfferKey).(offer.Offer)
	if !ok {
		return errors.Wrap(errOfferNotFoundInCtx, "retrieving object from context")
	}

	app, err := api.OfferSvc.Apply(ctx.Request().Context(), claims.Subject, o.ID)
	if err != nil {
		return errors.Wrap(err, "applying to offer")
	}
	return ctx.JSON(http.StatusCreated, app)
}

func (api *offerAPI) studentApplications(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	apps, err := api.OfferSvc.StudentApplications(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "getting student applications")
	}
	if apps == nil {
		apps = []offer.Application{}
	}
	return ctx.JSON(http.StatusOK, apps)
}

// applicants lists the applicants to the offers of the monitor. Managers may see any creator's, or all of them.
func (api *offerAPI) applicants(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	creatorID := claims.Subject
	if claims.IsManager {
		creatorID = ctx.QueryParam("creator_id")
	}

	applicants, err := api.OfferSvc.Applicants(ctx.Request().Context(), creatorID)
	if err != nil {
		return errors.Wrap(err, "getting applicants")
	}
	if applicants == nil {
		applicants = []offer.Applicant{}
	}
	return ctx.JSON(http.StatusOK, applicants)
}

func (api *offerAPI) setInterviewDate(ctx echo.Context) error {
	app, ok := ctx.Get(contextApplicationKey).(offer.Application)
	if !ok {
		return errors.Wrap(errApplicationNotFoundInCtx, "retrieving object from context")
	}

	var data offer.Interview
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Interview")
	}
	if err := api.Validate.Struct(data); err != nil {
		return err
	}

	app, err := api.OfferSvc.SetInterviewDate(ctx.Request().Context(), app.ID, *data.Date)
	if err != nil {
		return errors.Wrap(err, "setting interview date")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *offerAPI) decide(ctx echo.Context) error {
	app, ok := ctx.Get(contextApplicationKey).(offer.Application)
	if !ok {
		return errors.Wrap(errApplicationNotFoundInCtx, "retrieving object from context")
	}

	var data offer.Decision
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Decision")
	}
	if err := api.Validate.Struct(data); err != nil {
		return err
	}

	app, err := api.OfferSvc.Decide(ctx.Request().Context(), app.ID, *data.Accepted)
	if err != nil {
		return errors.Wrap(err, "deciding application")
	}
	return ctx.JSON(http.StatusOK, app)
}

// Middlewares

// visibleOfferMiddleware loads the `:id` offer in the context. Offers that are not validated yet
// are only visible to their creator and to managers.
func (api *offerAPI) visibleOfferMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}

			o, err := api.OfferSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == offer.ErrNotFound {
					return errHTTPNotFound
				}
				return errors.Wrap(err, "finding offer by ID")
			}
			if o.Validity != curriculum.Valid && o.CreatorID != claims.Subject && !claims.IsManager {
				return errHTTPNotFound
			}
			ctx.Set(contextOfferKey, o)
			return next(ctx)
		}
	}
}

// offerCreatorMiddleware loads the `:id` application in the context when it was sent to an offer of the
// context user, or when the context user is a manager.
func (api *offerAPI) offerCreatorMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}

			app, err := api.OfferSvc.GetApplication(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == offer.ErrApplicationNotFound {
					return errHTTPNotFound
				}
				return errors.Wrap(err, "finding application by ID")
			}
			if !claims.IsManager {
				o, err := api.OfferSvc.GetByID(ctx.Request().Context(), app.OfferID)
				if err != nil {
					return errors.Wrap(err, "finding application offer")
				}
				if o.CreatorID != claims.Subject {
					return errHTTPNotFound
				}
			}
			ctx.Set(contextApplicationKey, app)
			return next(ctx)
		}
	}
}
