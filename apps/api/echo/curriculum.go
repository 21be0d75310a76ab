package echoapi

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/stage/core"
	"github.com/trezcool/stage/core/curriculum"
)

const (
	contextCurriculumKey = "object"
	uploadFileField      = "file"
)

var errCurriculumNotFoundInCtx = errors.New("curriculum object not found in echo.Context")

type curriculumAPI struct {
	*Deps
}

func registerCurriculumAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := curriculumAPI{Deps: deps}

	cg := g.Group("/curriculums", jwt)
	cg.POST("", api.upload, studentMiddleware())
	cg.GET("", api.query, managerMiddleware())

	// detail endpoints
	dg := cg.Group("/:id", api.ownerOrManagerMiddleware())
	dg.GET("", api.retrieve)
	dg.GET("/download", api.download)
	dg.POST("/validate", api.validate, managerMiddleware())
	dg.DELETE("", api.destroy, api.ownerMiddleware())

	g.GET("/students/with-valid-curriculum", api.studentsWithValidCurriculum, jwt, managerMiddleware())

	sg := g.Group("/students/:id/curriculums", jwt, selfOrManagerMiddleware())
	sg.GET("", api.studentCurriculums)
	sg.PUT("/principal", api.setPrincipal, api.selfMiddleware())
}

// Handlers

func (api *curriculumAPI) upload(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	fh, err := ctx.FormFile(uploadFileField)
	if err != nil {
		if err == http.ErrMissingFile {
			return core.NewFieldError(uploadFileField, "this field is required")
		}
		return echo.NewHTTPError(http.StatusBadRequest, "invalid multipart form").SetInternal(err)
	}
	data, err := api.readFile(fh)
	if err != nil {
		return err
	}

	name := ctx.FormValue("name")
	if strings.TrimSpace(name) == "" {
		name = path.Base(fh.Filename)
	}
	contentType := fh.Header.Get(echo.HeaderContentType)
	if contentType == "" || contentType == echo.MIMEOctetStream {
		contentType = http.DetectContentType(data)
	}
	// drop params, eg. "; charset=binary"
	contentType = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])

	nc := curriculum.NewCurriculum{
		StudentID:   claims.Subject,
		Name:        name,
		ContentType: contentType,
		Data:        data,
	}
	if err = nc.Validate(api.Validate, api.Conf.Server.MaxUploadSize); err != nil {
		return err
	}

	cv, err := api.CurriculumSvc.Upload(ctx.Request().Context(), nc)
	if err != nil {
		return errors.Wrap(err, "uploading curriculum")
	}
	cv.Data = nil
	return ctx.JSON(http.StatusCreated, cv)
}

// readFile reads at most MaxUploadSize+1 bytes so that oversized files fail validation.
func (api *curriculumAPI) readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, errors.Wrap(err, "opening uploaded file")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if maxSize := api.Conf.Server.MaxUploadSize; maxSize > 0 {
		r = io.LimitReader(f, maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading uploaded file")
	}
	return data, nil
}

func (api *curriculumAPI) query(ctx echo.Context) error {
	filter, err := bindCurriculumFilter(ctx)
	if err != nil {
		return err
	}
	ordering, err := bindOrdering(ctx, curriculum.OrderingFields...)
	if err != nil {
		return err
	}

	cvs, err := api.CurriculumSvc.Query(ctx.Request().Context(), filter, ordering)
	if err != nil {
		return errors.Wrap(err, "querying curricula")
	}
	if cvs == nil {
		cvs = []curriculum.Curriculum{}
	}
	return ctx.JSON(http.StatusOK, cvs)
}

func (api *curriculumAPI) retrieve(ctx echo.Context) error {
	cv, ok := ctx.Get(contextCurriculumKey).(curriculum.Curriculum)
	if !ok {
		return errors.Wrap(errCurriculumNotFoundInCtx, "retrieving object from context")
	}
	cv.Data = nil
	return ctx.JSON(http.StatusOK, cv)
}

func (api *curriculumAPI) download(ctx echo.Context) error {
	cv, ok := ctx.Get(contextCurriculumKey).(curriculum.Curriculum)
	if !ok {
		return errors.Wrap(errCurriculumNotFoundInCtx, "retrieving object from context")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", cv.Name))
	return ctx.Blob(http.StatusOK, cv.ContentType, cv.Data)
}

func (api *curriculumAPI) validate(ctx echo.Context) error {
	cv, ok := ctx.Get(contextCurriculumKey).(curriculum.Curriculum)
	if !ok {
		return errors.Wrap(errCurriculumNotFoundInCtx, "retrieving object from context")
	}

	var data curriculum.Validation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Validation")
	}
	if err := api.Validate.Struct(data); err != nil {
		return err
	}

	if err := api.CurriculumSvc.Validate(ctx.Request().Context(), cv.ID, *data.Valid); err != nil {
		return errors.Wrap(err, "validating curriculum")
	}
	cv, err := api.CurriculumSvc.GetByID(ctx.Request().Context(), cv.ID)
	if err != nil {
		return errors.Wrap(err, "getting validated curriculum")
	}
	cv.Data = nil
	return ctx.JSON(http.StatusOK, cv)
}

func (api *curriculumAPI) destroy(ctx echo.Context) error {
	cv, ok := ctx.Get(contextCurriculumKey).(curriculum.Curriculum)
	if !ok {
		return errors.Wrap(errCurriculumNotFoundInCtx, "retrieving object from context")
	}
	if err := api.CurriculumSvc.Delete(ctx.Request().Context(), cv.ID); err != nil {
		return errors.Wrap(err, "deleting curriculum")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *curriculumAPI) studentCurriculums(ctx echo.Context) error {
	sc, err := api.CurriculumSvc.StudentCurriculums(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting student curricula")
	}
	return ctx.JSON(http.StatusOK, sc)
}

func (api *curriculumAPI) studentsWithValidCurriculum(ctx echo.Context) error {
	students, err := api.CurriculumSvc.StudentsWithValidCurriculum(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting students with a valid curriculum")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *curriculumAPI) setPrincipal(ctx echo.Context) error {
	var data PrincipalRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PrincipalRequest")
	}
	data.CurriculumID = core.CleanString(data.CurriculumID)
	if err := api.Validate.Struct(data); err != nil {
		return err
	}

	if err := api.CurriculumSvc.SetPrincipal(ctx.Request().Context(), ctx.Param("id"), data.CurriculumID); err != nil {
		return errors.Wrap(err, "setting principal curriculum")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// Middlewares

// ownerOrManagerMiddleware loads the `:id` curriculum in the context when it belongs to the context user,
// or when the context user is a manager.
func (api *curriculumAPI) ownerOrManagerMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}

			cv, err := api.CurriculumSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == curriculum.ErrNotFound {
					return errHTTPNotFound
				}
				return errors.Wrap(err, "finding curriculum by ID")
			}
			if cv.StudentID != claims.Subject && !claims.IsManager {
				return errHTTPNotFound
			}
			ctx.Set(contextCurriculumKey, cv)
			return next(ctx)
		}
	}
}

func (api *curriculumAPI) ownerMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			cv, ok := ctx.Get(contextCurriculumKey).(curriculum.Curriculum)
			if !ok {
				return errors.Wrap(errCurriculumNotFoundInCtx, "retrieving object from context")
			}
			if cv.StudentID != claims.Subject {
				return errHTTPForbidden
			}
			return next(ctx)
		}
	}
}

// selfMiddleware only lets the student identified by the `:id` path param through.
func (api *curriculumAPI) selfMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if ctx.Param("id") != claims.Subject {
				return errHTTPForbidden
			}
			return next(ctx)
		}
	}
}

type (
	PrincipalRequest struct {
		CurriculumID string `json:"curriculum_id" validate:"required"`
	}

	SuccessResponse struct {
		Success bool `json:"success"`
	}
)
