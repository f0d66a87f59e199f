package echoapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/unbfeelings/backend/core/school"
	"github.com/unbfeelings/backend/core/user"
)

var errObjNotFoundInCtx = errors.New("object not found in echo.Context")

type studentApi struct {
	ServerDeps
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := studentApi{deps}

	sg := g.Group("/students")
	sg.GET("", api.query)
	sg.POST("", api.create)
	sg.GET("/anonymous_name", api.anonymousName)
	sg.GET("/blocks", api.queryBlocked, jwt)
	sg.GET("/:id", api.retrieve)

	owner := ownerOrAdminMiddleware(deps.UserSvc, api.loadStudent)
	sg.PUT("/:id", api.update, jwt, owner)
	sg.PATCH("/:id", api.update, jwt, owner)
	sg.DELETE("/:id", api.destroy, jwt, owner)
	sg.GET("/:id/blocks", api.queryBlocked, jwt, owner)

	bg := g.Group("/blocks", jwt)
	bg.POST("", api.block)
	bg.DELETE("/:id", api.unblock, ownerOrAdminMiddleware(deps.UserSvc, api.loadBlock))
}

// StudentResponse is the student representation, with its course nested.
type StudentResponse struct {
	ID        int           `json:"id"`
	Email     string        `json:"email"`
	Name      string        `json:"name"`
	Course    school.Course `json:"course"`
	CreatedAt time.Time     `json:"created_at"`
}

// studentResponses fetches each course once.
func (api *studentApi) studentResponses(ctx context.Context, students ...user.Student) ([]StudentResponse, error) {
	courses := make(map[int]school.Course)
	resps := make([]StudentResponse, 0, len(students))
	for _, st := range students {
		course, ok := courses[st.CourseID]
		if !ok {
			var err error
			if course, err = api.SchoolSvc.GetCourse(ctx, st.CourseID); err != nil {
				return nil, errors.Wrap(err, "finding student course")
			}
			courses[st.CourseID] = course
		}
		resps = append(resps, StudentResponse{
			ID:        st.ID,
			Email:     st.Email,
			Name:      st.Name,
			Course:    course,
			CreatedAt: st.CreatedAt,
		})
	}
	return resps, nil
}

func (api *studentApi) sendStudent(ctx echo.Context, code int, st user.Student) error {
	resps, err := api.studentResponses(ctx.Request().Context(), st)
	if err != nil {
		return err
	}
	return ctx.JSON(code, resps[0])
}

func (api *studentApi) loadStudent(ctx echo.Context, id int) (interface{}, int, error) {
	st, err := api.UserSvc.GetStudent(ctx.Request().Context(), id)
	if err != nil {
		return nil, 0, errors.Wrap(err, "finding student by ID")
	}
	return st, st.ID, nil
}

func (api *studentApi) loadBlock(ctx echo.Context, id int) (interface{}, int, error) {
	blk, err := api.UserSvc.GetBlock(ctx.Request().Context(), id)
	if err != nil {
		return nil, 0, errors.Wrap(err, "finding block by ID")
	}
	return blk, blk.BlockerID, nil
}

// Handlers

func (api *studentApi) create(ctx echo.Context) error {
	var data user.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.Validate); err != nil {
		return err
	}

	st, err := api.UserSvc.CreateStudent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return api.sendStudent(ctx, http.StatusCreated, st)
}

func (api *studentApi) query(ctx echo.Context) error {
	var filter user.StudentFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to StudentFilter")
	}
	filter.Clean()
	ordering, page, err := bindList(ctx, api.Conf, user.StudentOrderingFields)
	if err != nil {
		return err
	}

	c := ctx.Request().Context()
	students, count, err := api.UserSvc.QueryStudents(c, filter, ordering, page.Pagination)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	resps, err := api.studentResponses(c, students...)
	if err != nil {
		return err
	}
	return sendPage(ctx, page, resps, count)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	st, err := api.UserSvc.GetStudent(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding student by ID")
	}
	return api.sendStudent(ctx, http.StatusOK, st)
}

func (api *studentApi) update(ctx echo.Context) error {
	st, ok := ctx.Get(contextObjectKey).(user.Student)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving student from context")
	}

	var data user.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}

	ctxUsr, err := getContextUser(ctx, api.UserSvc)
	if err != nil {
		return err
	}
	if !ctxUsr.IsAdmin() {
		// `IsActive` can only be changed by admin
		data.IsActive = nil
	}

	if err = data.Validate(st, isPartial(ctx), api.Validate); err != nil {
		return err
	}

	if st, err = api.UserSvc.UpdateStudent(ctx.Request().Context(), st.ID, data); err != nil {
		return errors.Wrap(err, "updating student")
	}
	return api.sendStudent(ctx, http.StatusOK, st)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	st, ok := ctx.Get(contextObjectKey).(user.Student)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving student from context")
	}
	if err := api.UserSvc.Delete(ctx.Request().Context(), st.ID); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studentApi) anonymousName(ctx echo.Context) error {
	name, err := user.AnonymousName()
	if err != nil {
		return errors.Wrap(err, "picking anonymous name")
	}
	return ctx.JSON(http.StatusOK, AnonymousNameResponse{AnonymousName: name})
}

// Blocks

// queryBlocked lists the students blocked by the student in the path, or by the requester.
func (api *studentApi) queryBlocked(ctx echo.Context) error {
	blockerID := 0
	if st, ok := ctx.Get(contextObjectKey).(user.Student); ok {
		blockerID = st.ID
	} else {
		ctxUsr, err := getContextUser(ctx, api.UserSvc)
		if err != nil {
			return err
		}
		blockerID = ctxUsr.ID
	}
	var page Pagination
	if err := page.Bind(ctx, api.Conf); err != nil {
		return err
	}

	c := ctx.Request().Context()
	students, count, err := api.UserSvc.QueryBlockedStudents(c, blockerID, page.Pagination)
	if err != nil {
		return errors.Wrap(err, "querying blocked students")
	}
	resps, err := api.studentResponses(c, students...)
	if err != nil {
		return err
	}
	return sendPage(ctx, page, resps, count)
}

func (api *studentApi) block(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.UserSvc)
	if err != nil {
		return err
	}

	var data user.NewBlock
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBlock")
	}
	if err = data.Validate(api.Validate); err != nil {
		return err
	}

	blk, err := api.UserSvc.Block(ctx.Request().Context(), ctxUsr.ID, data)
	if err != nil {
		return errors.Wrap(err, "blocking student")
	}
	return ctx.JSON(http.StatusCreated, blk)
}

func (api *studentApi) unblock(ctx echo.Context) error {
	blk, ok := ctx.Get(contextObjectKey).(user.Block)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving block from context")
	}
	if err := api.UserSvc.Unblock(ctx.Request().Context(), blk.ID); err != nil {
		return errors.Wrap(err, "deleting block")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type AnonymousNameResponse struct {
	AnonymousName string `json:"anonymous_name"`
}
