package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/student"
)

type studentApi struct {
	svc student.Service
}

func registerStudentAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := studentApi{svc: deps.StudentSvc}

	// the acting user's own profile
	sg := g.Group("/students", authed...)
	sg.GET("/profile", api.retrieveOwnProfile)
	sg.POST("/profile", api.createOwnProfile)
	sg.PUT("/profile", api.updateOwnProfile)

	pg := sg.Group("/profiles", adminMiddleware())
	pg.GET("", api.queryProfiles)
	pg.POST("", api.createProfile)
	pdg := pg.Group("/:id", api.profileMiddleware)
	pdg.GET("", api.retrieveProfile)
	pdg.PUT("", api.updateProfile)
	pdg.DELETE("", api.destroyProfile)

	eg := g.Group("/enrollments", authed...)
	eg.GET("", api.queryEnrollments)
	eg.POST("", api.enroll, adminMiddleware())
	edg := eg.Group("/:id", api.enrollmentMiddleware)
	edg.GET("", api.retrieveEnrollment)
	edg.PUT("", api.updateEnrollment, adminMiddleware())
	edg.DELETE("", api.destroyEnrollment, adminMiddleware())
}

// Profiles

func (api *studentApi) retrieveOwnProfile(ctx echo.Context) error {
	p, err := api.svc.GetProfileWithEnrollments(ctx.Request().Context(), actorID(ctx))
	if err != nil {
		return errors.Wrap(err, "finding own profile")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *studentApi) createOwnProfile(ctx echo.Context) error {
	var data student.NewProfile
	if err := bindBody(ctx, &data, "NewProfile"); err != nil {
		return err
	}
	data.UserID = actorID(ctx)

	p, err := api.svc.CreateProfile(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating own profile")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *studentApi) updateOwnProfile(ctx echo.Context) error {
	p, err := api.svc.GetProfileByUser(ctx.Request().Context(), actorID(ctx))
	if err != nil {
		return errors.Wrap(err, "finding own profile")
	}

	var data student.UpdateProfile
	if err = bindBody(ctx, &data, "UpdateProfile"); err != nil {
		return err
	}

	p, err = api.svc.UpdateProfile(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "updating own profile")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *studentApi) profileMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		p, err := api.svc.GetProfile(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "finding profile by ID")
		}
		ctx.Set(contextObjectKey, p)
		return next(ctx)
	}
}

func (api *studentApi) queryProfiles(ctx echo.Context) error {
	filter := new(student.ProfileFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []student.Profile{})
	}
	filter.Search = core.CleanString(filter.Search)
	ordering := new(Ordering)
	ordering.Bind(ctx)

	profiles, err := api.svc.QueryProfiles(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying profiles")
	}
	if profiles == nil {
		profiles = []student.Profile{}
	}
	return ctx.JSON(http.StatusOK, profiles)
}

func (api *studentApi) createProfile(ctx echo.Context) error {
	var data student.NewProfile
	if err := bindBody(ctx, &data, "NewProfile"); err != nil {
		return err
	}

	p, err := api.svc.CreateProfile(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating profile")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *studentApi) retrieveProfile(ctx echo.Context) error {
	p, ok := ctx.Get(contextObjectKey).(student.Profile)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving profile from context")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *studentApi) updateProfile(ctx echo.Context) error {
	p, ok := ctx.Get(contextObjectKey).(student.Profile)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving profile from context")
	}

	var data student.UpdateProfile
	if err := bindBody(ctx, &data, "UpdateProfile"); err != nil {
		return err
	}

	p, err := api.svc.UpdateProfile(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *studentApi) destroyProfile(ctx echo.Context) error {
	if err := api.svc.DeleteProfile(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting profile")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Enrollments

// enrollmentMiddleware loads the `:id` enrollment; students only get to their own.
func (api *studentApi) enrollmentMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		e, err := api.svc.GetEnrollment(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "finding enrollment by ID")
		}
		if err := core.CheckOwner(actorID(ctx), e.StudentID, isAdmin(ctx)); err != nil {
			return err
		}
		ctx.Set(contextObjectKey, e)
		return next(ctx)
	}
}

func (api *studentApi) queryEnrollments(ctx echo.Context) error {
	filter := new(student.EnrollmentFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []student.Enrollment{})
	}
	if !isAdmin(ctx) {
		filter.StudentID = actorID(ctx)
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	enrollments, err := api.svc.QueryEnrollments(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrollments == nil {
		enrollments = []student.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrollments)
}

func (api *studentApi) enroll(ctx echo.Context) error {
	var data student.NewEnrollment
	if err := bindBody(ctx, &data, "NewEnrollment"); err != nil {
		return err
	}

	e, err := api.svc.Enroll(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *studentApi) retrieveEnrollment(ctx echo.Context) error {
	e, ok := ctx.Get(contextObjectKey).(student.Enrollment)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving enrollment from context")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *studentApi) updateEnrollment(ctx echo.Context) error {
	e, ok := ctx.Get(contextObjectKey).(student.Enrollment)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving enrollment from context")
	}

	var data student.UpdateEnrollment
	if err := bindBody(ctx, &data, "UpdateEnrollment"); err != nil {
		return err
	}

	e, err := api.svc.UpdateEnrollment(ctx.Request().Context(), e, data)
	if err != nil {
		return errors.Wrap(err, "updating enrollment")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *studentApi) destroyEnrollment(ctx echo.Context) error {
	if err := api.svc.DeleteEnrollment(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	return ctx.NoContent(http.StatusNoContent)
}
