package echoapi_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/notification"
	"github.com/trezcool/academia/core/payment"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/testutil"
)

func Test_paymentApi_plans(t *testing.T) {
	env, app := newTestApp(t)
	admin := testutil.CreateUser(t, env.UserRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	stdnt := testutil.CreateUser(t, env.UserRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	b := testutil.CreateBatch(t, env.BatchRepo, "Cohort 1", "cohort-1", core.NewDate(2024, 1, 1), core.NewDate(2024, 6, 30), "500")
	e := testutil.CreateEnrollment(t, env.StudentRepo, stdnt.ID, b.ID, "500", "50")
	adminToken := getToken(t, env, admin)

	planBody := []byte(fmt.Sprintf(`{"enrollment_id":%q,"plan_name":"3x150","total_amount":"450","number_of_installments":3}`, e.ID))

	runHTTPTests(t, app, []httpTest{
		{name: "Admin required", method: http.MethodPost, path: "/v1/payment-plans", token: getToken(t, env, stdnt), body: planBody, wantCode: http.StatusForbidden},
		{
			name: "unknown enrollment", method: http.MethodPost, path: "/v1/payment-plans", token: adminToken,
			body:     []byte(`{"enrollment_id":"nope","plan_name":"x","total_amount":"1","number_of_installments":1}`),
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "enrollment not found"}),
		},
		{
			name: "installments required", method: http.MethodPost, path: "/v1/payment-plans", token: adminToken,
			body:     []byte(fmt.Sprintf(`{"enrollment_id":%q,"plan_name":"x","total_amount":"1"}`, e.ID)),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"number_of_installments": "this field is required"}),
		},
	})

	rec := serve(app, http.MethodPost, "/v1/payment-plans", adminToken, planBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var p payment.Plan
	decodeBody(t, rec, &p)
	assert.Equal(t, e.ID, p.EnrollmentID)
	assert.Equal(t, admin.ID, p.CreatedBy.String)

	t.Run("student emailed", func(t *testing.T) {
		sent := env.Email.SentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, "New Payment Plan Created for Hero", sent[0].Subject)
		assert.Equal(t, stdnt.Email, sent[0].To[0].Address)
	})

	t.Run("installments", func(t *testing.T) {
		path := "/v1/payment-plans/" + p.ID + "/installments"

		rec := serve(app, http.MethodPost, path, adminToken, []byte(`{"amount":"150","due_date":"2024-02-01"}`))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var first payment.Installment
		decodeBody(t, rec, &first)
		assert.Equal(t, 1, first.Number)
		assert.Equal(t, payment.InstallmentPending, first.Status)

		rec = serve(app, http.MethodPost, path, adminToken, []byte(`{"installment_number":3,"amount":"150","due_date":"2024-04-01"}`))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		// next number after the highest one
		rec = serve(app, http.MethodPost, path, adminToken, []byte(`{"amount":"150","due_date":"2024-05-01"}`))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var auto payment.Installment
		decodeBody(t, rec, &auto)
		assert.Equal(t, 4, auto.Number)

		rec = serve(app, http.MethodPost, path, adminToken, []byte(`{"installment_number":1,"amount":"150","due_date":"2024-03-01"}`))
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.JSONEq(t, `{"installment_number":"this plan already has an installment with this number"}`, rec.Body.String())

		rec = serve(app, http.MethodPost, path, adminToken, []byte(`{"amount":"150","due_date":"2024-03-01","status":"LATE"}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = serve(app, http.MethodGet, path, adminToken)
		require.Equal(t, http.StatusOK, rec.Code)
		var insts []payment.Installment
		decodeBody(t, rec, &insts)
		require.Len(t, insts, 3)
		assert.Equal(t, []int{1, 3, 4}, []int{insts[0].Number, insts[1].Number, insts[2].Number})

		rec = serve(app, http.MethodGet, "/v1/payment-plans/"+p.ID, adminToken)
		require.Equal(t, http.StatusOK, rec.Code)
		var withInsts payment.PlanWithInstallments
		decodeBody(t, rec, &withInsts)
		assert.Len(t, withInsts.Installments, 3)

		// renumbering onto a taken number
		rec = serve(app, http.MethodPut, "/v1/installments/"+auto.ID, adminToken, []byte(`{"installment_number":3}`))
		assert.Equal(t, http.StatusConflict, rec.Code)

		rec = serve(app, http.MethodPut, "/v1/installments/"+first.ID, adminToken, []byte(`{"status":"OVERDUE"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		ntfs, err := env.NotificationSvc.Query(ctxBg, stdnt.ID, &notification.QueryFilter{Type: notification.TypePaymentOverdue})
		require.NoError(t, err)
		require.Len(t, ntfs, 1)
		assert.Equal(t, "Installment 1 of '3x150' (₦150.00) was due on 2024-02-01 and is now overdue.", ntfs[0].Message)

		// still overdue: no new notification
		rec = serve(app, http.MethodPut, "/v1/installments/"+first.ID, adminToken, []byte(`{"amount":"160"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		ntfs, err = env.NotificationSvc.Query(ctxBg, stdnt.ID, &notification.QueryFilter{Type: notification.TypePaymentOverdue})
		require.NoError(t, err)
		assert.Len(t, ntfs, 1)

		rec = serve(app, http.MethodDelete, "/v1/installments/"+auto.ID, adminToken)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec = serve(app, http.MethodPut, "/v1/installments/"+auto.ID, adminToken, []byte(`{}`))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("update keeps enrollment", func(t *testing.T) {
		rec := serve(app, http.MethodPut, "/v1/payment-plans/"+p.ID, adminToken, []byte(`{"plan_name":"Renamed","enrollment_id":"other"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var updated payment.Plan
		decodeBody(t, rec, &updated)
		assert.Equal(t, "Renamed", updated.Name)
		assert.Equal(t, e.ID, updated.EnrollmentID)
	})
}

func Test_paymentApi_transactions(t *testing.T) {
	env, app := newTestApp(t)
	admin := testutil.CreateUser(t, env.UserRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	stdnt := testutil.CreateUser(t, env.UserRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	other := testutil.CreateUser(t, env.UserRepo, "Other", "other", "other@test.cd", "", []string{user.RoleStudent}, true)
	b := testutil.CreateBatch(t, env.BatchRepo, "Cohort 1", "cohort-1", core.NewDate(2024, 1, 1), core.NewDate(2024, 6, 30), "500")
	e := testutil.CreateEnrollment(t, env.StudentRepo, stdnt.ID, b.ID, "500", "0")
	otherEnrl := testutil.CreateEnrollment(t, env.StudentRepo, other.ID, b.ID, "500", "0")
	otherPlan := testutil.CreatePlan(t, env.PaymentRepo, otherEnrl.ID, "Other plan", "500", 1)
	otherInst := testutil.CreateInstallment(t, env.PaymentRepo, otherPlan.ID, 1, "500", core.NewDate(2024, 2, 1), payment.InstallmentPending)
	plan := testutil.CreatePlan(t, env.PaymentRepo, e.ID, "Plan", "500", 1)
	inst := testutil.CreateInstallment(t, env.PaymentRepo, plan.ID, 1, "500", core.NewDate(2024, 2, 1), payment.InstallmentPending)

	adminToken := getToken(t, env, admin)
	stdntToken := getToken(t, env, stdnt)

	body := func(installmentID, amount string) []byte {
		return []byte(fmt.Sprintf(`{"enrollment_id":%q,"installment_id":%q,"amount":%q,"payment_method":"CASH"}`, e.ID, installmentID, amount))
	}

	runHTTPTests(t, app, []httpTest{
		{name: "Admin required", method: http.MethodPost, path: "/v1/payments", token: stdntToken, body: body("", "100"), wantCode: http.StatusForbidden},
		{
			name: "installment of another enrollment", method: http.MethodPost, path: "/v1/payments", token: adminToken,
			body: body(otherInst.ID, "100"), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"installment_id": payment.ErrInstallmentMismatch.Error()}),
		},
		{name: "zero amount", method: http.MethodPost, path: "/v1/payments", token: adminToken, body: body("", "0"), wantCode: http.StatusBadRequest},
		{name: "amount over column precision", method: http.MethodPost, path: "/v1/payments", token: adminToken, body: body("", "100000000"), wantCode: http.StatusBadRequest},
		{
			name: "unknown method", method: http.MethodPost, path: "/v1/payments", token: adminToken,
			body:     []byte(fmt.Sprintf(`{"enrollment_id":%q,"amount":"1","payment_method":"BITCOIN"}`, e.ID)),
			wantCode: http.StatusBadRequest,
		},
		{name: "unknown installment", method: http.MethodPost, path: "/v1/payments", token: adminToken, body: body("nope", "100"), wantCode: http.StatusNotFound},
	})

	rec := serve(app, http.MethodPost, "/v1/payments", adminToken, body(inst.ID, "250.5"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var tx payment.Transaction
	decodeBody(t, rec, &tx)
	assert.Equal(t, stdnt.ID, tx.StudentID, "the payer is the enrolled student")
	assert.Equal(t, payment.TransactionSuccess, tx.Status)
	assert.Equal(t, core.Today(), tx.PaymentDate)

	ntfs, err := env.NotificationSvc.Query(ctxBg, stdnt.ID, &notification.QueryFilter{Type: notification.TypePaymentReceived})
	require.NoError(t, err)
	require.Len(t, ntfs, 1)
	assert.Equal(t, "Your payment of ₦250.50 has been received successfully.", ntfs[0].Message)
	assert.Equal(t, tx.ID, ntfs[0].RelatedPaymentID.String)

	rec = serve(app, http.MethodPost, "/v1/payments", adminToken, []byte(fmt.Sprintf(`{"enrollment_id":%q,"amount":"10","payment_method":"UPI"}`, otherEnrl.ID)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var otherTx payment.Transaction
	decodeBody(t, rec, &otherTx)

	runHTTPTests(t, app, []httpTest{
		{name: "student sees own payments", path: "/v1/payments?student_id=" + other.ID, token: stdntToken, wantData: marshalList(t, tx)},
		{name: "admin filters by enrollment", path: "/v1/payments?enrollment_id=" + otherEnrl.ID, token: adminToken, wantData: marshalList(t, otherTx)},
		{name: "owner reads", path: "/v1/payments/" + tx.ID, token: stdntToken, wantData: marshalObj(t, tx)},
		{name: "other student forbidden", path: "/v1/payments/" + otherTx.ID, token: stdntToken, wantCode: http.StatusForbidden},
		{name: "unknown", path: "/v1/payments/nope", token: adminToken, wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "payment transaction not found"})},
	})

	t.Run("deleting the installment keeps the payment", func(t *testing.T) {
		rec := serve(app, http.MethodDelete, "/v1/installments/"+inst.ID, adminToken)
		require.Equal(t, http.StatusNoContent, rec.Code)

		got, err := env.PaymentSvc.GetTransaction(ctxBg, tx.ID)
		require.NoError(t, err)
		assert.False(t, got.InstallmentID.Valid)
	})
}
