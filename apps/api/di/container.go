// Package di wires the API dependencies with a dig.Container.
package di

import (
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/stage/apps/api/echo"
	"github.com/trezcool/stage/core"
	"github.com/trezcool/stage/core/curriculum"
	"github.com/trezcool/stage/core/offer"
	"github.com/trezcool/stage/core/user"
	emailsvc "github.com/trezcool/stage/services/email"
	logsvc "github.com/trezcool/stage/services/logger"
	"github.com/trezcool/stage/storage/database"
	sqlxrepos "github.com/trezcool/stage/storage/database/sqlx"
)

type (
	// LoggerParams are the named loggers of the app.
	LoggerParams struct {
		dig.In
		API *logsvc.RollbarLogger `name:"apiLogger"`
		DB  *logsvc.RollbarLogger `name:"dbLogger"`
	}

	validatorResult struct {
		dig.Out
		Validate   *validator.Validate
		Translator ut.Translator
	}

	validatorParams struct {
		dig.In
		Validate   *validator.Validate
		Translator ut.Translator
	}
)

func newAPILogger(conf *core.Config) *logsvc.RollbarLogger {
	return logsvc.NewRollbarLogger(log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
}

func newDBLogger(conf *core.Config) *logsvc.RollbarLogger {
	return logsvc.NewRollbarLogger(log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
}

// newLogger exposes the API logger to the packages that only need a core.Logger.
func newLogger(loggers LoggerParams) core.Logger {
	return loggers.API
}

func newDB(conf *core.Config, loggers LoggerParams) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}
		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}
		if err = database.Ping(db.DB, 10); err != nil {
			return nil, err
		}
		if err = database.Migrate(db.DB); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggers.DB.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newEmailService(conf *core.Config, loggers LoggerParams) core.EmailService {
	return emailsvc.NewService(log.New(os.Stdout, "EMAIL : ", log.LstdFlags), loggers.API, conf)
}

func newValidator() validatorResult {
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	return validatorResult{Validate: validate, Translator: translator}
}

func newStudentFinder(usrSvc user.Service) curriculum.StudentFinder {
	return usrSvc
}

func newCurriculumReader(cvSvc curriculum.Service) offer.CurriculumReader {
	return cvSvc
}

func newUserFinder(usrSvc user.Service) offer.UserFinder {
	return usrSvc
}

func newDeps(
	conf *core.Config,
	logger core.Logger,
	v validatorParams,
	usrSvc user.Service,
	cvSvc curriculum.Service,
	offerSvc offer.Service,
) *echoapi.Deps {
	return &echoapi.Deps{
		Conf:          conf,
		Logger:        logger,
		Validate:      v.Validate,
		Translator:    v.Translator,
		UserSvc:       usrSvc,
		CurriculumSvc: cvSvc,
		OfferSvc:      offerSvc,
	}
}

func newServer(deps *echoapi.Deps) *echoapi.Server {
	return echoapi.NewServer(deps, false)
}

// New returns the dig.Container of the API.
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newAPILogger, dig.Name("apiLogger")))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newLogger))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(newValidator))
	must(c.Provide(sqlxrepos.NewUserRepository))
	must(c.Provide(sqlxrepos.NewCurriculumRepository))
	must(c.Provide(user.NewService))
	must(c.Provide(newStudentFinder))
	must(c.Provide(curriculum.NewService))
	must(c.Provide(sqlxrepos.NewOfferRepository))
	must(c.Provide(newCurriculumReader))
	must(c.Provide(newUserFinder))
	must(c.Provide(offer.NewService))
	must(c.Provide(newDeps))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
