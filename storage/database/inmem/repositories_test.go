package inmemdb_test

import (
	"testing"

	"github.com/trezcool/stage/core/curriculum"
	"github.com/trezcool/stage/core/offer"
	"github.com/trezcool/stage/core/user"
	inmemdb "github.com/trezcool/stage/storage/database/inmem"
	testutil "github.com/trezcool/stage/tests"
)

func newRepos(t *testing.T) (user.Repository, curriculum.Repository) {
	usrRepo, cvRepo, _ := newOfferRepos(t)
	return usrRepo, cvRepo
}

func newOfferRepos(*testing.T) (user.Repository, curriculum.Repository, offer.Repository) {
	db := inmemdb.Open()
	return inmemdb.NewUserRepository(db), inmemdb.NewCurriculumRepository(db), inmemdb.NewOfferRepository(db)
}

func TestUserRepository(t *testing.T) {
	testutil.TestUserRepository(t, newRepos)
}

func TestCurriculumRepository(t *testing.T) {
	testutil.TestCurriculumRepository(t, newRepos)
}

func TestOfferRepository(t *testing.T) {
	testutil.TestOfferRepository(t, newOfferRepos)
}
