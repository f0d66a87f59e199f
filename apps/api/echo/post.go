package echoapi

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/unbfeelings/backend/core/post"
	"github.com/unbfeelings/backend/core/user"
)

type postApi struct {
	ServerDeps
}

func registerPostAPI(g *echo.Group, jwt, optJWT echo.MiddlewareFunc, deps ServerDeps) {
	api := postApi{deps}

	pg := g.Group("/posts")
	pg.GET("", api.query, optJWT)
	pg.POST("", api.create, jwt)
	pg.GET("/:id", api.retrieve, optJWT)

	owner := ownerOrAdminMiddleware(deps.UserSvc, api.loadPost)
	pg.PUT("/:id", api.update, jwt, owner)
	pg.PATCH("/:id", api.update, jwt, owner)
	pg.DELETE("/:id", api.destroy, jwt, owner)

	g.GET("/tags", api.queryTags)
}

func (api *postApi) loadPost(ctx echo.Context, id int) (interface{}, int, error) {
	p, err := api.PostSvc.Get(ctx.Request().Context(), id)
	if err != nil {
		return nil, 0, errors.Wrap(err, "finding post by ID")
	}
	return p, p.AuthorID, nil
}

// blockedAuthors returns the students blocked by the requester, if any.
func (api *postApi) blockedAuthors(ctx echo.Context) ([]int, error) {
	if _, err := getContextClaims(ctx); err != nil {
		return nil, nil
	}
	ctxUsr, err := getContextUser(ctx, api.UserSvc)
	if err != nil {
		return nil, err
	}
	ids, err := api.UserSvc.BlockedIDs(ctx.Request().Context(), ctxUsr.ID)
	if err != nil {
		return nil, errors.Wrap(err, "finding blocked students")
	}
	return ids, nil
}

// Handlers

func (api *postApi) create(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.UserSvc)
	if err != nil {
		return err
	}
	c := ctx.Request().Context()
	if _, err = api.UserSvc.GetStudent(c, ctxUsr.ID); err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errNotAStudent
		}
		return errors.Wrap(err, "finding student by ID")
	}

	var data post.NewPost
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPost")
	}
	if err = data.Validate(api.Validate); err != nil {
		return err
	}

	p, err := api.PostSvc.Create(c, ctxUsr.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating post")
	}
	return ctx.JSON(http.StatusCreated, p)
}

// query hides the posts of the students the requester blocked.
func (api *postApi) query(ctx echo.Context) error {
	var filter post.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()
	ordering, page, err := bindList(ctx, api.Conf, post.OrderingFields)
	if err != nil {
		return err
	}

	if filter.ExcludeAuthors, err = api.blockedAuthors(ctx); err != nil {
		return err
	}

	posts, count, err := api.PostSvc.Query(ctx.Request().Context(), filter, ordering, page.Pagination)
	if err != nil {
		return errors.Wrap(err, "querying posts")
	}
	return sendPage(ctx, page, posts, count)
}

// retrieve answers not found for posts of students the requester blocked.
func (api *postApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	p, err := api.PostSvc.Get(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding post by ID")
	}
	blocked, err := api.blockedAuthors(ctx)
	if err != nil {
		return err
	}
	if slices.Contains(blocked, p.AuthorID) {
		return post.ErrNotFound
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *postApi) update(ctx echo.Context) error {
	p, ok := ctx.Get(contextObjectKey).(post.Post)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving post from context")
	}

	var data post.UpdatePost
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePost")
	}
	if err := data.Validate(p, isPartial(ctx), api.Validate); err != nil {
		return err
	}

	p, err := api.PostSvc.Update(ctx.Request().Context(), p.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating post")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *postApi) destroy(ctx echo.Context) error {
	p, ok := ctx.Get(contextObjectKey).(post.Post)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving post from context")
	}
	if err := api.PostSvc.Delete(ctx.Request().Context(), p.ID); err != nil {
		return errors.Wrap(err, "deleting post")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *postApi) queryTags(ctx echo.Context) error {
	var page Pagination
	if err := page.Bind(ctx, api.Conf); err != nil {
		return err
	}

	tags, count, err := api.PostSvc.QueryTags(ctx.Request().Context(), page.Pagination)
	if err != nil {
		return errors.Wrap(err, "querying tags")
	}
	return sendPage(ctx, page, tags, count)
}
