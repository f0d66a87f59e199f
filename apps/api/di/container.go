package di

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/unbfeelings/backend/apps/api/echo"
	"github.com/unbfeelings/backend/core"
	"github.com/unbfeelings/backend/core/diagnosis"
	"github.com/unbfeelings/backend/core/post"
	"github.com/unbfeelings/backend/core/school"
	"github.com/unbfeelings/backend/core/user"
	emailsvc "github.com/unbfeelings/backend/services/email"
	eventsvc "github.com/unbfeelings/backend/services/events"
	logsvc "github.com/unbfeelings/backend/services/logger"
	"github.com/unbfeelings/backend/storage/cache"
	"github.com/unbfeelings/backend/storage/database"
	sqlxrepos "github.com/unbfeelings/backend/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) *logsvc.RollbarLogger {
	return logsvc.NewRollbarLogger(log.New(os.Stdout, "API : ", log.LstdFlags), conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		ctx := context.Background()
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}
		if err = database.Ping(ctx, db); err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

// newCache falls back to an in-process cache when redis is not configured or unreachable.
func newCache(conf *core.Config, logger core.Logger) core.Cache {
	if conf.Redis.Addr == "" {
		return cache.NewMemoryCache()
	}
	client, err := cache.OpenRedis(context.Background(), conf)
	if err != nil {
		logger.Warn(fmt.Sprintf("redis unavailable, using memory cache: %v", err), err)
		return cache.NewMemoryCache()
	}
	return cache.NewRedisCache(client)
}

// newNatsConn returns a nil connection when NATS is not configured.
func newNatsConn(conf *core.Config, logger core.Logger) *nats.Conn {
	if conf.Nats.URL == "" {
		return nil
	}
	nc, err := eventsvc.Connect(conf)
	if err != nil {
		logger.Error(fmt.Sprintf("post events disabled: %v", err), err)
		return nil
	}
	return nc
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

type postServiceParams struct {
	dig.In
	Repo         post.Repository
	Subjects     post.SubjectFinder
	Logger       core.Logger
	DiagnosisSvc diagnosis.Service
	Nats         *nats.Conn
}

// newPostService subscribes the diagnosis cache and the NATS publisher to post events.
func newPostService(p postServiceParams) post.Service {
	listeners := []post.Listener{p.DiagnosisSvc}
	if p.Nats != nil {
		listeners = append(listeners, eventsvc.NewPostPublisher(p.Nats))
	}
	return post.NewService(p.Repo, p.Subjects, p.Logger, listeners...)
}

// newUserService and newSchoolService drop cached diagnoses when rows they change are part of one.
func newUserService(repo user.Repository, courses user.CourseFinder, mailSvc core.EmailService, conf *core.Config, diagSvc diagnosis.Service) user.Service {
	return user.NewService(repo, courses, mailSvc, conf, diagSvc)
}

func newSchoolService(repo school.Repository, diagSvc diagnosis.Service) school.Service {
	return school.NewService(repo, diagSvc)
}

func newDiagnosisService(
	posts post.Repository,
	students user.Repository,
	subjects school.Repository,
	c core.Cache,
	logger core.Logger,
	conf *core.Config,
) diagnosis.Service {
	return diagnosis.NewService(posts, students, subjects, c, logger, conf)
}

type serverParams struct {
	dig.In
	Conf         *core.Config
	Logger       core.Logger
	Validate     *validator.Validate
	Translator   ut.Translator
	UserSvc      user.Service
	SchoolSvc    school.Service
	PostSvc      post.Service
	DiagnosisSvc diagnosis.Service
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:         p.Conf,
		Logger:       p.Logger,
		Validate:     p.Validate,
		Translator:   p.Translator,
		UserSvc:      p.UserSvc,
		SchoolSvc:    p.SchoolSvc,
		PostSvc:      p.PostSvc,
		DiagnosisSvc: p.DiagnosisSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(func(l *logsvc.RollbarLogger) core.Logger { return l }))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newCache))
	must(c.Provide(newNatsConn))
	must(c.Provide(newEmailService))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))

	// repositories
	must(c.Provide(sqlxrepos.NewUserRepository, dig.As(new(user.Repository))))
	must(c.Provide(sqlxrepos.NewSchoolRepository, dig.As(new(school.Repository), new(user.CourseFinder), new(post.SubjectFinder))))
	must(c.Provide(sqlxrepos.NewPostRepository, dig.As(new(post.Repository))))

	// services
	must(c.Provide(newUserService))
	must(c.Provide(newSchoolService))
	must(c.Provide(newDiagnosisService))
	must(c.Provide(newPostService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
