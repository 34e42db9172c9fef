package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/payment"
)

type paymentApi struct {
	svc payment.Service
}

func registerPaymentAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := paymentApi{svc: deps.PaymentSvc}

	admin := append(append([]echo.MiddlewareFunc{}, authed...), adminMiddleware())

	pg := g.Group("/payment-plans", admin...)
	pg.GET("", api.queryPlans)
	pg.POST("", api.createPlan)
	pdg := pg.Group("/:id", api.planMiddleware)
	pdg.GET("", api.retrievePlan)
	pdg.PUT("", api.updatePlan)
	pdg.DELETE("", api.destroyPlan)
	pdg.GET("/installments", api.queryInstallments)
	pdg.POST("/installments", api.addInstallment)

	ig := g.Group("/installments/:id", append(admin, api.installmentMiddleware)...)
	ig.PUT("", api.updateInstallment)
	ig.DELETE("", api.destroyInstallment)

	tg := g.Group("/payments", authed...)
	tg.GET("", api.queryTransactions)
	tg.POST("", api.recordPayment, adminMiddleware())
	tg.GET("/:id", api.retrieveTransaction)
}

// Plans

func (api *paymentApi) planMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		p, err := api.svc.GetPlan(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "finding payment plan by ID")
		}
		ctx.Set(contextObjectKey, p)
		return next(ctx)
	}
}

func contextPlan(ctx echo.Context) (payment.PlanWithInstallments, error) {
	p, ok := ctx.Get(contextObjectKey).(payment.PlanWithInstallments)
	if !ok {
		return payment.PlanWithInstallments{}, errors.Wrap(errObjNotFoundInCtx, "retrieving payment plan from context")
	}
	return p, nil
}

func (api *paymentApi) queryPlans(ctx echo.Context) error {
	filter := new(payment.PlanFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []payment.Plan{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	plans, err := api.svc.QueryPlans(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying payment plans")
	}
	if plans == nil {
		plans = []payment.Plan{}
	}
	return ctx.JSON(http.StatusOK, plans)
}

func (api *paymentApi) createPlan(ctx echo.Context) error {
	var data payment.NewPlan
	if err := bindBody(ctx, &data, "NewPlan"); err != nil {
		return err
	}

	p, err := api.svc.CreatePlan(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating payment plan")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *paymentApi) retrievePlan(ctx echo.Context) error {
	p, err := contextPlan(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *paymentApi) updatePlan(ctx echo.Context) error {
	p, err := contextPlan(ctx)
	if err != nil {
		return err
	}

	var data payment.UpdatePlan
	if err = bindBody(ctx, &data, "UpdatePlan"); err != nil {
		return err
	}

	updated, err := api.svc.UpdatePlan(ctx.Request().Context(), p.Plan, data)
	if err != nil {
		return errors.Wrap(err, "updating payment plan")
	}
	return ctx.JSON(http.StatusOK, updated)
}

func (api *paymentApi) destroyPlan(ctx echo.Context) error {
	if err := api.svc.DeletePlan(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting payment plan")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Installments

func (api *paymentApi) queryInstallments(ctx echo.Context) error {
	insts, err := api.svc.QueryInstallments(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying installments")
	}
	if insts == nil {
		insts = []payment.Installment{}
	}
	return ctx.JSON(http.StatusOK, insts)
}

func (api *paymentApi) addInstallment(ctx echo.Context) error {
	var data payment.NewInstallment
	if err := bindBody(ctx, &data, "NewInstallment"); err != nil {
		return err
	}

	inst, err := api.svc.AddInstallment(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding installment")
	}
	return ctx.JSON(http.StatusCreated, inst)
}

func (api *paymentApi) installmentMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		inst, err := api.svc.GetInstallment(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "finding installment by ID")
		}
		ctx.Set(contextObjectKey, inst)
		return next(ctx)
	}
}

func (api *paymentApi) updateInstallment(ctx echo.Context) error {
	inst, ok := ctx.Get(contextObjectKey).(payment.Installment)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving installment from context")
	}

	var data payment.UpdateInstallment
	if err := bindBody(ctx, &data, "UpdateInstallment"); err != nil {
		return err
	}

	inst, err := api.svc.UpdateInstallment(ctx.Request().Context(), inst, data)
	if err != nil {
		return errors.Wrap(err, "updating installment")
	}
	return ctx.JSON(http.StatusOK, inst)
}

func (api *paymentApi) destroyInstallment(ctx echo.Context) error {
	if err := api.svc.DeleteInstallment(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting installment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Transactions

func (api *paymentApi) queryTransactions(ctx echo.Context) error {
	filter := new(payment.TransactionFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []payment.Transaction{})
	}
	if !isAdmin(ctx) {
		filter.StudentID = actorID(ctx)
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	txs, err := api.svc.QueryTransactions(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	if txs == nil {
		txs = []payment.Transaction{}
	}
	return ctx.JSON(http.StatusOK, txs)
}

func (api *paymentApi) recordPayment(ctx echo.Context) error {
	var data payment.NewTransaction
	if err := bindBody(ctx, &data, "NewTransaction"); err != nil {
		return err
	}

	tx, err := api.svc.RecordPayment(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "recording payment")
	}
	return ctx.JSON(http.StatusCreated, tx)
}

func (api *paymentApi) retrieveTransaction(ctx echo.Context) error {
	tx, err := api.svc.GetTransaction(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding payment by ID")
	}
	if err := core.CheckOwner(actorID(ctx), tx.StudentID, isAdmin(ctx)); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tx)
}
