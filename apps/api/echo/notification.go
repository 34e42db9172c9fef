package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/notification"
)

type notificationApi struct {
	svc notification.Service
}

func registerNotificationAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := notificationApi{svc: deps.NotificationSvc}

	ng := g.Group("/notifications", authed...)
	ng.GET("", api.query)
	ng.GET("/unread/count", api.unreadCount)
	ng.POST("/:id/read", api.markRead)

	ag := g.Group("/admin-notifications", append(append([]echo.MiddlewareFunc{}, authed...), adminMiddleware())...)
	ag.GET("", api.queryAdmin)
	ag.GET("/unread/count", api.adminUnreadCount)
	ag.POST("/:id/read", api.markAdminRead)
}

func bindNotificationFilter(ctx echo.Context) (*notification.QueryFilter, bool) {
	filter := new(notification.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return nil, false
	}
	return filter, true
}

func (api *notificationApi) query(ctx echo.Context) error {
	filter, ok := bindNotificationFilter(ctx)
	if !ok {
		return ctx.JSON(http.StatusOK, []notification.Notification{})
	}
	ntfs, err := api.svc.Query(ctx.Request().Context(), actorID(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	if ntfs == nil {
		ntfs = []notification.Notification{}
	}
	return ctx.JSON(http.StatusOK, ntfs)
}

func (api *notificationApi) unreadCount(ctx echo.Context) error {
	cnt, err := api.svc.UnreadCount(ctx.Request().Context(), actorID(ctx))
	if err != nil {
		return errors.Wrap(err, "counting unread notifications")
	}
	return ctx.JSON(http.StatusOK, notification.UnreadCount{Count: cnt})
}

func (api *notificationApi) markRead(ctx echo.Context) error {
	n, err := api.svc.MarkRead(ctx.Request().Context(), actorID(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "marking notification as read")
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *notificationApi) queryAdmin(ctx echo.Context) error {
	filter, ok := bindNotificationFilter(ctx)
	if !ok {
		return ctx.JSON(http.StatusOK, []notification.Notification{})
	}
	ntfs, err := api.svc.QueryAdmin(ctx.Request().Context(), actorID(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying admin notifications")
	}
	if ntfs == nil {
		ntfs = []notification.Notification{}
	}
	return ctx.JSON(http.StatusOK, ntfs)
}

func (api *notificationApi) adminUnreadCount(ctx echo.Context) error {
	cnt, err := api.svc.AdminUnreadCount(ctx.Request().Context(), actorID(ctx))
	if err != nil {
		return errors.Wrap(err, "counting unread admin notifications")
	}
	return ctx.JSON(http.StatusOK, notification.UnreadCount{Count: cnt})
}

func (api *notificationApi) markAdminRead(ctx echo.Context) error {
	n, err := api.svc.MarkAdminRead(ctx.Request().Context(), actorID(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "marking admin notification as read")
	}
	return ctx.JSON(http.StatusOK, n)
}
