// Package testutil holds fixtures shared by the tests of the API & repositories.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/stage/core/curriculum"
	"github.com/trezcool/stage/core/offer"
	"github.com/trezcool/stage/core/user"
	"github.com/trezcool/stage/storage/database"
)

// testDBURLEnv names the env var holding the Postgres URL of the test database.
const testDBURLEnv = "TEST_DATABASE_URL"

// PrepareDB opens & migrates the test database, then empties its tables.
// The test is skipped when TEST_DATABASE_URL is not set.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dbURL := os.Getenv(testDBURLEnv)
	if dbURL == "" {
		t.Skipf("%s not set", testDBURLEnv)
	}
	db, err := database.OpenURL(dbURL)
	if err != nil {
		t.Fatalf("database.OpenURL() failed: %v", err)
	}
	if err = database.Ping(db.DB, 10); err != nil {
		t.Fatalf("database.Ping() failed: %v", err)
	}
	if err = database.Migrate(db.DB); err != nil {
		t.Fatalf("database.Migrate() failed: %v", err)
	}
	ResetDB(t, db)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func ResetDB(t *testing.T, db *sqlx.DB) {
	t.Helper()
	if _, err := db.Exec(`TRUNCATE offer_application, offer, principal_curriculum, curriculum, "user" CASCADE`); err != nil {
		t.Fatalf("ResetDB() failed: %v", err)
	}
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC().Truncate(time.Microsecond)
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC().Truncate(time.Microsecond)
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateCurriculum stores a small PDF curriculum with the given validity.
func CreateCurriculum(
	t *testing.T,
	repo curriculum.Repository,
	studentID, name string,
	validity curriculum.Validity,
	createdAt ...time.Time,
) curriculum.Curriculum {
	t.Helper()

	tstamp := time.Now().UTC().Truncate(time.Microsecond)
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC().Truncate(time.Microsecond)
	}
	cv, err := repo.CreateCurriculum(context.Background(), curriculum.Curriculum{
		StudentID:   studentID,
		Name:        name,
		ContentType: "application/pdf",
		Data:        PDF,
		CreatedAt:   tstamp,
	})
	if err != nil {
		t.Fatalf("CreateCurriculum() failed: %v", err)
	}
	if validity != curriculum.Pending {
		if err = repo.ReviewCurriculum(context.Background(), cv.ID, validity); err != nil {
			t.Fatalf("CreateCurriculum() failed: %v", err)
		}
		cv.Validity = validity
	}
	return cv
}

// CreateOffer stores an offer of creatorID with the given validity.
func CreateOffer(
	t *testing.T,
	repo offer.Repository,
	creatorID, title, department string,
	salary float64,
	validity curriculum.Validity,
	createdAt ...time.Time,
) offer.Offer {
	t.Helper()

	tstamp := time.Now().UTC().Truncate(time.Microsecond)
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC().Truncate(time.Microsecond)
	}
	o, err := repo.CreateOffer(context.Background(), offer.Offer{
		CreatorID:   creatorID,
		Title:       title,
		Description: "Stage de 15 semaines.",
		Department:  department,
		Address:     "1 rue du Stage, Montréal",
		Salary:      salary,
		CreatedAt:   tstamp,
	})
	if err != nil {
		t.Fatalf("CreateOffer() failed: %v", err)
	}
	if validity != curriculum.Pending {
		if err = repo.ReviewOffer(context.Background(), o.ID, validity); err != nil {
			t.Fatalf("CreateOffer() failed: %v", err)
		}
		o.Validity = validity
	}
	return o
}

// CreateApplication stores the application of a student to an offer, sent with cvID.
func CreateApplication(t *testing.T, repo offer.Repository, offerID, studentID, cvID string, createdAt ...time.Time) offer.Application {
	t.Helper()

	tstamp := time.Now().UTC().Truncate(time.Microsecond)
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC().Truncate(time.Microsecond)
	}
	app, err := repo.CreateApplication(context.Background(), offer.Application{
		OfferID:      offerID,
		StudentID:    studentID,
		CurriculumID: cvID,
		Status:       offer.StatusCVSent,
		CreatedAt:    tstamp,
	})
	if err != nil {
		t.Fatalf("CreateApplication() failed: %v", err)
	}
	return app
}

// PDF is the smallest content http.DetectContentType reports as "application/pdf".
var PDF = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")
