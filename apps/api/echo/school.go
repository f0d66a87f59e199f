package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/unbfeelings/backend/core/school"
)

type schoolApi struct {
	ServerDeps
}

func registerSchoolAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := schoolApi{deps}
	admin := []echo.MiddlewareFunc{jwt, adminMiddleware(deps.UserSvc)}

	cg := g.Group("/campuses")
	cg.GET("", api.queryCampuses)
	cg.POST("", api.createCampus, admin...)
	cg.GET("/:id", api.retrieveCampus)
	cg.PUT("/:id", api.updateCampus, admin...)
	cg.PATCH("/:id", api.updateCampus, admin...)
	cg.DELETE("/:id", api.destroyCampus, admin...)

	crg := g.Group("/courses")
	crg.GET("", api.queryCourses)
	crg.POST("", api.createCourse, admin...)
	crg.GET("/:id", api.retrieveCourse)
	crg.PUT("/:id", api.updateCourse, admin...)
	crg.PATCH("/:id", api.updateCourse, admin...)
	crg.DELETE("/:id", api.destroyCourse, admin...)

	sg := g.Group("/subjects")
	sg.GET("", api.querySubjects)
	sg.POST("", api.createSubject, admin...)
	sg.GET("/:id", api.retrieveSubject)
	sg.PUT("/:id", api.updateSubject, admin...)
	sg.PATCH("/:id", api.updateSubject, admin...)
	sg.DELETE("/:id", api.destroySubject, admin...)
}

func isPartial(ctx echo.Context) bool {
	return ctx.Request().Method == http.MethodPatch
}

// Campuses

func (api *schoolApi) createCampus(ctx echo.Context) error {
	var data school.NewCampus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCampus")
	}
	if err := data.Validate(api.Validate); err != nil {
		return err
	}

	campus, err := api.SchoolSvc.CreateCampus(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating campus")
	}
	return ctx.JSON(http.StatusCreated, campus)
}

func (api *schoolApi) queryCampuses(ctx echo.Context) error {
	ordering, page, err := bindList(ctx, api.Conf, school.CampusOrderingFields)
	if err != nil {
		return err
	}

	campuses, count, err := api.SchoolSvc.QueryCampuses(ctx.Request().Context(), ordering, page.Pagination)
	if err != nil {
		return errors.Wrap(err, "querying campuses")
	}
	return sendPage(ctx, page, campuses, count)
}

func (api *schoolApi) retrieveCampus(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	campus, err := api.SchoolSvc.GetCampus(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding campus by ID")
	}
	return ctx.JSON(http.StatusOK, campus)
}

func (api *schoolApi) updateCampus(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	c := ctx.Request().Context()
	campus, err := api.SchoolSvc.GetCampus(c, id)
	if err != nil {
		return errors.Wrap(err, "finding campus by ID")
	}

	var data school.UpdateCampus
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCampus")
	}
	if err = data.Validate(campus, isPartial(ctx), api.Validate); err != nil {
		return err
	}

	if campus, err = api.SchoolSvc.UpdateCampus(c, id, data); err != nil {
		return errors.Wrap(err, "updating campus")
	}
	return ctx.JSON(http.StatusOK, campus)
}

func (api *schoolApi) destroyCampus(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err = api.SchoolSvc.DeleteCampus(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting campus")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Courses

func (api *schoolApi) createCourse(ctx echo.Context) error {
	var data school.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.Validate); err != nil {
		return err
	}

	course, err := api.SchoolSvc.CreateCourse(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, course)
}

func (api *schoolApi) queryCourses(ctx echo.Context) error {
	var filter school.CourseFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to CourseFilter")
	}
	ordering, page, err := bindList(ctx, api.Conf, school.CourseOrderingFields)
	if err != nil {
		return err
	}

	courses, count, err := api.SchoolSvc.QueryCourses(ctx.Request().Context(), filter, ordering, page.Pagination)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return sendPage(ctx, page, courses, count)
}

func (api *schoolApi) retrieveCourse(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	course, err := api.SchoolSvc.GetCourse(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding course by ID")
	}
	return ctx.JSON(http.StatusOK, course)
}

func (api *schoolApi) updateCourse(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	c := ctx.Request().Context()
	course, err := api.SchoolSvc.GetCourse(c, id)
	if err != nil {
		return errors.Wrap(err, "finding course by ID")
	}

	var data school.UpdateCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err = data.Validate(course, isPartial(ctx), api.Validate); err != nil {
		return err
	}

	if course, err = api.SchoolSvc.UpdateCourse(c, id, data); err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, course)
}

func (api *schoolApi) destroyCourse(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err = api.SchoolSvc.DeleteCourse(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Subjects

func (api *schoolApi) createSubject(ctx echo.Context) error {
	var data school.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.Validate); err != nil {
		return err
	}

	subject, err := api.SchoolSvc.CreateSubject(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, subject)
}

func (api *schoolApi) querySubjects(ctx echo.Context) error {
	var filter school.SubjectFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to SubjectFilter")
	}
	ordering, page, err := bindList(ctx, api.Conf, school.SubjectOrderingFields)
	if err != nil {
		return err
	}

	subjects, count, err := api.SchoolSvc.QuerySubjects(ctx.Request().Context(), filter, ordering, page.Pagination)
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	return sendPage(ctx, page, subjects, count)
}

func (api *schoolApi) retrieveSubject(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	subject, err := api.SchoolSvc.GetSubject(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding subject by ID")
	}
	return ctx.JSON(http.StatusOK, subject)
}

func (api *schoolApi) updateSubject(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	c := ctx.Request().Context()
	subject, err := api.SchoolSvc.GetSubject(c, id)
	if err != nil {
		return errors.Wrap(err, "finding subject by ID")
	}

	var data school.UpdateSubject
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSubject")
	}
	if err = data.Validate(subject, isPartial(ctx), api.Validate); err != nil {
		return err
	}

	if subject, err = api.SchoolSvc.UpdateSubject(c, id, data); err != nil {
		return errors.Wrap(err, "updating subject")
	}
	return ctx.JSON(http.StatusOK, subject)
}

func (api *schoolApi) destroySubject(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err = api.SchoolSvc.DeleteSubject(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return ctx.NoContent(http.StatusNoContent)
}
