package testutil

import (
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/batch"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/notification"
	"github.com/trezcool/academia/core/payment"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/user"
	appfs "github.com/trezcool/academia/fs"
	emailsvc "github.com/trezcool/academia/services/email"
	"github.com/trezcool/academia/services/eventbus"
	logsvc "github.com/trezcool/academia/services/logger"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
)

// NewValidator returns a validator with every custom validation & translation registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	batch.InitValidators(validate, translator)
	payment.InitValidators(validate, translator)
	return validate, translator
}

// Env wires the services on an in-memory database, a synchronous event bus & a recording email mock.
type Env struct {
	Conf       *core.Config
	Logger     core.Logger
	DB         *inmemdb.DB
	Bus        *eventbus.Bus
	Email      *emailsvc.ConsoleServiceMock
	Validate   *validator.Validate
	Translator ut.Translator

	UserRepo         user.Repository
	BatchRepo        batch.Repository
	CourseRepo       course.Repository
	StudentRepo      student.Repository
	PaymentRepo      payment.Repository
	NotificationRepo notification.Repository

	UserSvc         user.Service
	BatchSvc        batch.Service
	CourseSvc       course.Service
	StudentSvc      student.Service
	PaymentSvc      payment.Service
	NotificationSvc notification.Service
}

func NewEnv(t *testing.T) *Env {
	t.Helper()

	env := &Env{
		Conf:   core.NewTestConfig(),
		Logger: logsvc.NewNop(),
		DB:     PrepareDB(t),
	}
	env.Validate, env.Translator = NewValidator()
	env.Bus = eventbus.New(eventbus.OptionsFromConfig(env.Conf), env.Logger)
	env.Email = emailsvc.NewConsoleServiceMock(env.Conf, env.Logger)
	core.ParseEmailTemplates(env.Conf, appfs.FS, appfs.EmailTemplatesDir, env.Logger)

	env.UserRepo = inmemdb.NewUserRepository(env.DB)
	env.BatchRepo = inmemdb.NewBatchRepository(env.DB)
	env.CourseRepo = inmemdb.NewCourseRepository(env.DB)
	env.StudentRepo = inmemdb.NewStudentRepository(env.DB)
	env.PaymentRepo = inmemdb.NewPaymentRepository(env.DB)
	env.NotificationRepo = inmemdb.NewNotificationRepository(env.DB)

	env.UserSvc = user.NewService(env.UserRepo, env.Validate, env.Bus)
	env.BatchSvc = batch.NewService(env.BatchRepo, env.Validate, env.Bus, env.Conf)
	env.CourseSvc = course.NewService(env.CourseRepo, env.Validate, env.Conf)
	env.StudentSvc = student.NewService(env.StudentRepo, env.UserSvc, env.BatchSvc, env.CourseSvc, env.Validate, env.Bus, env.Conf)
	env.PaymentSvc = payment.NewService(env.PaymentRepo, env.UserSvc, env.StudentSvc, env.Validate, env.Bus)
	env.NotificationSvc = notification.NewService(env.NotificationRepo)

	notification.NewNotifier(env.NotificationRepo, env.UserSvc, env.Email, env.Conf, env.Logger).Subscribe(env.Bus)
	return env
}
