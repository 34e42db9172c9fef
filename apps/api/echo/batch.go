package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/batch"
)

type batchApi struct {
	svc batch.Service
}

func registerBatchAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := batchApi{svc: deps.BatchSvc}

	bg := g.Group("/batches", append(append([]echo.MiddlewareFunc{}, authed...), adminMiddleware())...)
	bg.GET("", api.query)
	bg.POST("", api.create)

	dg := bg.Group("/:id", api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

func (api *batchApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		b, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "finding batch by ID")
		}
		ctx.Set(contextObjectKey, b)
		return next(ctx)
	}
}

func (api *batchApi) query(ctx echo.Context) error {
	filter := new(batch.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []batch.Batch{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	batches, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying batches")
	}
	if batches == nil {
		batches = []batch.Batch{}
	}
	return ctx.JSON(http.StatusOK, batches)
}

func (api *batchApi) create(ctx echo.Context) error {
	var data batch.NewBatch
	if err := bindBody(ctx, &data, "NewBatch"); err != nil {
		return err
	}

	b, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating batch")
	}
	return ctx.JSON(http.StatusCreated, b)
}

func (api *batchApi) retrieve(ctx echo.Context) error {
	b, ok := ctx.Get(contextObjectKey).(batch.Batch)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving batch from context")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *batchApi) update(ctx echo.Context) error {
	b, ok := ctx.Get(contextObjectKey).(batch.Batch)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving batch from context")
	}

	var data batch.UpdateBatch
	if err := bindBody(ctx, &data, "UpdateBatch"); err != nil {
		return err
	}

	b, err := api.svc.Update(ctx.Request().Context(), b, data)
	if err != nil {
		return errors.Wrap(err, "updating batch")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *batchApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting batch")
	}
	return ctx.NoContent(http.StatusNoContent)
}
