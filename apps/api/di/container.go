// Package di builds the API's dependency injection container.
package di

import (
	"io"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/batch"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/event"
	"github.com/trezcool/academia/core/notification"
	"github.com/trezcool/academia/core/payment"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/user"
	emailsvc "github.com/trezcool/academia/services/email"
	"github.com/trezcool/academia/services/eventbus"
	logsvc "github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/storage/database"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
	sqlxrepos "github.com/trezcool/academia/storage/database/sqlx"
)

type (
	// Loggers holds the application logger & the one dedicated to storage.
	Loggers struct {
		dig.Out
		Logger   core.Logger
		DBLogger core.Logger `name:"dbLogger"`
		Rollbar  *logsvc.RollbarLogger
	}

	// Repositories are backed by Postgres, or by in-memory tables with the `memory` engine.
	Repositories struct {
		dig.Out
		DB            io.Closer `name:"db"`
		Users         user.Repository
		Batches       batch.Repository
		Courses       course.Repository
		Students      student.Repository
		Payments      payment.Repository
		Notifications notification.Repository
	}

	repositoriesParams struct {
		dig.In
		Conf     *core.Config
		DBLogger core.Logger `name:"dbLogger"`
	}

	serverParams struct {
		dig.In
		Conf            *core.Config
		Logger          core.Logger
		UserSvc         user.Service
		BatchSvc        batch.Service
		CourseSvc       course.Service
		StudentSvc      student.Service
		PaymentSvc      payment.Service
		NotificationSvc notification.Service
		Validate        *validator.Validate
		Translator      ut.Translator
	}
)

func newLoggers(conf *core.Config) (Loggers, error) {
	std, err := logsvc.NewZapLogger(conf)
	if err != nil {
		return Loggers{}, errors.Wrap(err, "setting up zap")
	}
	logger := logsvc.NewRollbarLogger(std.Named("API"), conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return Loggers{
		Logger:   logger,
		DBLogger: logsvc.NewRollbarLogger(std.Named("DB"), conf),
		Rollbar:  logger,
	}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func newRepositories(p repositoriesParams) (Repositories, error) {
	if p.Conf.Database.InMemory() {
		db := inmemdb.Open()
		return Repositories{
			DB:            nopCloser{},
			Users:         inmemdb.NewUserRepository(db),
			Batches:       inmemdb.NewBatchRepository(db),
			Courses:       inmemdb.NewCourseRepository(db),
			Students:      inmemdb.NewStudentRepository(db),
			Payments:      inmemdb.NewPaymentRepository(db),
			Notifications: inmemdb.NewNotificationRepository(db),
		}, nil
	}

	if err := database.CreateIfNotExist(p.Conf); err != nil {
		return Repositories{}, err
	}
	db, err := database.Open(p.Conf)
	if err != nil {
		return Repositories{}, err
	}
	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return Repositories{}, err
	}
	p.DBLogger.Info("database ready", map[string]interface{}{"engine": p.Conf.Database.Engine, "name": p.Conf.Database.Name})

	return Repositories{
		DB:            db,
		Users:         sqlxrepos.NewUserRepository(db),
		Batches:       sqlxrepos.NewBatchRepository(db),
		Courses:       sqlxrepos.NewCourseRepository(db),
		Students:      sqlxrepos.NewStudentRepository(db),
		Payments:      sqlxrepos.NewPaymentRepository(db),
		Notifications: sqlxrepos.NewNotificationRepository(db),
	}, nil
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	batch.InitValidators(validate, translator)
	payment.InitValidators(validate, translator)
	return validate, translator
}

func newEventBus(conf *core.Config, logger core.Logger) (*eventbus.Bus, event.Publisher) {
	bus := eventbus.New(eventbus.OptionsFromConfig(conf), logger)
	return bus, bus
}

func newNotifier(
	repo notification.Repository,
	usrSvc user.Service,
	email core.EmailService,
	bus *eventbus.Bus,
	conf *core.Config,
	logger core.Logger,
) *notification.Notifier {
	ntf := notification.NewNotifier(repo, usrSvc, email, conf, logger)
	ntf.Subscribe(bus)
	return ntf
}

func newServer(p serverParams) echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:            p.Conf,
		Logger:          p.Logger,
		UserSvc:         p.UserSvc,
		BatchSvc:        p.BatchSvc,
		CourseSvc:       p.CourseSvc,
		StudentSvc:      p.StudentSvc,
		PaymentSvc:      p.PaymentSvc,
		NotificationSvc: p.NotificationSvc,
		Validate:        p.Validate,
		Translator:      p.Translator,
	})
}

// New returns a new dependency injection dig.Container
func New(conf *core.Config) *dig.Container {
	c := dig.New()

	must(c.Provide(func() *core.Config { return conf }))
	must(c.Provide(newLoggers))
	must(c.Provide(newRepositories))
	must(c.Provide(newEmailService))
	must(c.Provide(newValidator))
	must(c.Provide(newEventBus))
	must(c.Provide(user.NewService))
	must(c.Provide(batch.NewService))
	must(c.Provide(course.NewService))
	must(c.Provide(student.NewService))
	must(c.Provide(payment.NewService))
	must(c.Provide(notification.NewService))
	must(c.Provide(newNotifier))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
