package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/stage/core"
	"github.com/trezcool/stage/core/curriculum"
	"github.com/trezcool/stage/core/offer"
	"github.com/trezcool/stage/core/user"
)

// NewReposFunc returns empty repositories sharing one database.
type NewReposFunc func(t *testing.T) (user.Repository, curriculum.Repository)

// NewOfferReposFunc returns empty repositories sharing one database, offers included.
type NewOfferReposFunc func(t *testing.T) (user.Repository, curriculum.Repository, offer.Repository)

const unknownID = "7c4f3a4e-5b1e-4f7e-9a59-1d1c0c4d8a11"

// TestUserRepository checks the behaviour every user.Repository must have.
func TestUserRepository(t *testing.T, newRepos NewReposFunc) {
	ctx := context.Background()

	t.Run("uniqueness", func(t *testing.T) {
		repo, _ := newRepos(t)
		jane := CreateUser(t, repo, "Jane", "jane", "jane@stage.test", "", nil, true)

		assert.Equal(t, user.ErrUsernameExists, repo.CheckUsernameUniqueness(ctx, "jane", "other@stage.test"))
		assert.Equal(t, user.ErrEmailExists, repo.CheckUsernameUniqueness(ctx, "other", "jane@stage.test"))
		assert.NoError(t, repo.CheckUsernameUniqueness(ctx, "other", "other@stage.test"))
		assert.NoError(t, repo.CheckUsernameUniqueness(ctx, "jane", "jane@stage.test", jane))
	})

	t.Run("get", func(t *testing.T) {
		repo, _ := newRepos(t)
		jane := CreateUser(t, repo, "Jane", "jane", "jane@stage.test", "Secret-123!", []string{user.RoleStudent}, true)

		for _, filter := range []user.GetFilter{
			{ID: jane.ID},
			{Username: "jane"},
			{Email: "jane@stage.test"},
			{UsernameOrEmail: "jane"},
			{UsernameOrEmail: "jane@stage.test"},
		} {
			got, err := repo.GetUser(ctx, filter)
			require.NoError(t, err, "%+v", filter)
			assert.Equal(t, jane.ID, got.ID)
			assert.Equal(t, []string{user.RoleStudent}, got.Roles)
			assert.NoError(t, got.CheckPassword("Secret-123!"))
		}

		_, err := repo.GetUser(ctx, user.GetFilter{ID: "not-a-uuid"})
		assert.Equal(t, user.ErrNotFound, err)
		_, err = repo.GetUser(ctx, user.GetFilter{Username: "lol"})
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("query", func(t *testing.T) {
		repo, _ := newRepos(t)
		now := time.Now()
		jane := CreateUser(t, repo, "Jane", "jane", "jane@stage.test", "", []string{user.RoleStudent}, true, now.Add(-time.Hour))
		boss := CreateUser(t, repo, "Boss", "boss", "", "", []string{user.RoleManager}, false, now)
		inactive := false

		got, err := repo.QueryUsers(ctx, user.QueryFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{jane.ID, boss.ID}, userIDs(got))

		got, err = repo.QueryUsers(ctx, user.QueryFilter{Search: "JAN"})
		require.NoError(t, err)
		assert.Equal(t, []string{jane.ID}, userIDs(got))

		got, err = repo.QueryUsers(ctx, user.QueryFilter{Roles: []string{"manager"}})
		require.NoError(t, err)
		assert.Equal(t, []string{boss.ID}, userIDs(got))

		got, err = repo.QueryUsers(ctx, user.QueryFilter{IsActive: &inactive})
		require.NoError(t, err)
		assert.Equal(t, []string{boss.ID}, userIDs(got))
	})

	t.Run("update", func(t *testing.T) {
		repo, _ := newRepos(t)
		jane := CreateUser(t, repo, "Jane", "jane", "", "", nil, true)

		jane.Name = "Jane Doe"
		jane.IsActive = false
		jane.LastLogin = time.Now().UTC().Truncate(time.Microsecond)
		_, err := repo.UpdateUser(ctx, jane)
		require.NoError(t, err)

		got, err := repo.GetUser(ctx, user.GetFilter{ID: jane.ID})
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", got.Name)
		assert.False(t, got.IsActive)
		assert.True(t, jane.LastLogin.Equal(got.LastLogin))

		_, err = repo.UpdateUser(ctx, user.User{ID: unknownID, Name: "Ghost"})
		assert.Equal(t, user.ErrNotFound, err)
	})
}

// TestCurriculumRepository checks the behaviour every curriculum.Repository must have.
func TestCurriculumRepository(t *testing.T, newRepos NewReposFunc) {
	ctx := context.Background()

	t.Run("create & get", func(t *testing.T) {
		usrRepo, repo := newRepos(t)
		jane := CreateUser(t, usrRepo, "Jane", "jane", "", "", nil, true)
		cv := CreateCurriculum(t, repo, jane.ID, "cv.pdf", curriculum.Pending)

		got, err := repo.GetCurriculum(ctx, cv.ID)
		require.NoError(t, err)
		assert.Equal(t, jane.ID, got.StudentID)
		assert.Equal(t, curriculum.Pending, got.Validity)
		assert.Equal(t, PDF, got.Data)

		_, err = repo.GetCurriculum(ctx, "not-a-uuid")
		assert.Equal(t, curriculum.ErrNotFound, err)
	})

	t.Run("query", func(t *testing.T) {
		usrRepo, repo := newRepos(t)
		jane := CreateUser(t, usrRepo, "Jane", "jane", "", "", nil, true)
		john := CreateUser(t, usrRepo, "John", "john", "", "", nil, true)
		now := time.Now()
		a := CreateCurriculum(t, repo, jane.ID, "B.pdf", curriculum.Valid, now.Add(-3*time.Hour))
		b := CreateCurriculum(t, repo, jane.ID, "a.pdf", curriculum.Pending, now.Add(-2*time.Hour))
		c := CreateCurriculum(t, repo, john.ID, "c.pdf", curriculum.Invalid, now.Add(-time.Hour))
		pending, invalid := curriculum.Pending, curriculum.Invalid

		tests := []struct {
			name     string
			filter   curriculum.QueryFilter
			ordering []core.DBOrdering
			want     []string
		}{
			{name: "all", want: []string{a.ID, b.ID, c.ID}},
			{name: "by name", ordering: []core.DBOrdering{{Field: "name", Ascending: true}}, want: []string{b.ID, a.ID, c.ID}},
			{name: "by name desc", ordering: []core.DBOrdering{{Field: "name"}}, want: []string{c.ID, a.ID, b.ID}},
			{name: "student", filter: curriculum.QueryFilter{StudentID: jane.ID}, want: []string{a.ID, b.ID}},
			{name: "bad student id", filter: curriculum.QueryFilter{StudentID: "lol"}, want: []string{}},
			{name: "pending", filter: curriculum.QueryFilter{Validity: &pending}, want: []string{b.ID}},
			{name: "invalid", filter: curriculum.QueryFilter{Validity: &invalid}, want: []string{c.ID}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := repo.QueryCurriculums(ctx, tt.filter, tt.ordering)
				require.NoError(t, err)
				assert.Equal(t, tt.want, curriculumIDs(got))
				for _, cv := range got {
					assert.Empty(t, cv.Data)
				}
			})
		}
	})

	t.Run("review", func(t *testing.T) {
		usrRepo, repo := newRepos(t)
		jane := CreateUser(t, usrRepo, "Jane", "jane", "", "", nil, true)
		cv := CreateCurriculum(t, repo, jane.ID, "cv.pdf", curriculum.Pending)

		require.NoError(t, repo.ReviewCurriculum(ctx, cv.ID, curriculum.Invalid))
		assert.Equal(t, curriculum.ErrAlreadyTreated, repo.ReviewCurriculum(ctx, cv.ID, curriculum.Valid))
		assert.Equal(t, curriculum.ErrNotFound, repo.ReviewCurriculum(ctx, unknownID, curriculum.Valid))

		got, err := repo.GetCurriculum(ctx, cv.ID)
		require.NoError(t, err)
		assert.Equal(t, curriculum.Invalid, got.Validity)
	})

	t.Run("principal", func(t *testing.T) {
		usrRepo, repo := newRepos(t)
		jane := CreateUser(t, usrRepo, "Jane", "jane", "", "", nil, true)
		first := CreateCurriculum(t, repo, jane.ID, "first.pdf", curriculum.Valid)
		second := CreateCurriculum(t, repo, jane.ID, "second.pdf", curriculum.Valid)

		id, err := repo.GetPrincipalID(ctx, jane.ID)
		require.NoError(t, err)
		assert.Empty(t, id)

		require.NoError(t, repo.SetPrincipalID(ctx, jane.ID, first.ID))
		require.NoError(t, repo.SetPrincipalID(ctx, jane.ID, first.ID))
		require.NoError(t, repo.SetPrincipalID(ctx, jane.ID, second.ID))
		assert.Equal(t, curriculum.ErrNotFound, repo.SetPrincipalID(ctx, jane.ID, unknownID))

		id, err = repo.GetPrincipalID(ctx, jane.ID)
		require.NoError(t, err)
		assert.Equal(t, second.ID, id)
	})

	t.Run("delete", func(t *testing.T) {
		usrRepo, repo := newRepos(t)
		jane := CreateUser(t, usrRepo, "Jane", "jane", "", "", nil, true)
		cv := CreateCurriculum(t, repo, jane.ID, "cv.pdf", curriculum.Pending)

		require.NoError(t, repo.DeleteCurriculum(ctx, cv.ID))
		assert.Equal(t, curriculum.ErrNotFound, repo.DeleteCurriculum(ctx, cv.ID))
		_, err := repo.GetCurriculum(ctx, cv.ID)
		assert.Equal(t, curriculum.ErrNotFound, err)
	})
}

// TestOfferRepository checks the behaviour every offer.Repository must have.
func TestOfferRepository(t *testing.T, newRepos NewOfferReposFunc) {
	ctx := context.Background()

	t.Run("create & get", func(t *testing.T) {
		usrRepo, _, repo := newRepos(t)
		acme := CreateUser(t, usrRepo, "Acme", "acme", "", "", []string{user.RoleMonitor}, true)
		o := CreateOffer(t, repo, acme.ID, "Développeur Go", "Informatique", 21.5, curriculum.Pending)

		got, err := repo.GetOffer(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, o.ID, got.ID)
		assert.Equal(t, acme.ID, got.CreatorID)
		assert.Equal(t, "Développeur Go", got.Title)
		assert.Equal(t, 21.5, got.Salary)
		assert.Equal(t, curriculum.Pending, got.Validity)
		assert.True(t, o.CreatedAt.Equal(got.CreatedAt))

		_, err = repo.GetOffer(ctx, "not-a-uuid")
		assert.Equal(t, offer.ErrNotFound, err)
		_, err = repo.GetOffer(ctx, unknownID)
		assert.Equal(t, offer.ErrNotFound, err)
	})

	t.Run("query", func(t *testing.T) {
		usrRepo, _, repo := newRepos(t)
		acme := CreateUser(t, usrRepo, "Acme", "acme", "", "", []string{user.RoleMonitor}, true)
		initech := CreateUser(t, usrRepo, "Initech", "initech", "", "", []string{user.RoleMonitor}, true)
		now := time.Now()
		a := CreateOffer(t, repo, acme.ID, "Backend", "Informatique", 20, curriculum.Valid, now.Add(-3*time.Hour))
		b := CreateOffer(t, repo, acme.ID, "analyste", "Comptabilité", 18, curriculum.Pending, now.Add(-2*time.Hour))
		c := CreateOffer(t, repo, initech.ID, "Conseiller", "informatique", 25, curriculum.Invalid, now.Add(-time.Hour))
		valid, pending := curriculum.Valid, curriculum.Pending

		tests := []struct {
			name     string
			filter   offer.QueryFilter
			ordering []core.DBOrdering
			want     []string
		}{
			{name: "all", want: []string{a.ID, b.ID, c.ID}},
			{name: "creator", filter: offer.QueryFilter{CreatorID: acme.ID}, want: []string{a.ID, b.ID}},
			{name: "bad creator id", filter: offer.QueryFilter{CreatorID: "lol"}, want: []string{}},
			{name: "department", filter: offer.QueryFilter{Department: "INFORMATIQUE"}, want: []string{a.ID, c.ID}},
			{name: "valid", filter: offer.QueryFilter{Validity: &valid}, want: []string{a.ID}},
			{name: "pending", filter: offer.QueryFilter{Validity: &pending}, want: []string{b.ID}},
			{name: "by title", ordering: []core.DBOrdering{{Field: "title", Ascending: true}}, want: []string{b.ID, a.ID, c.ID}},
			{name: "by salary desc", ordering: []core.DBOrdering{{Field: "salary"}}, want: []string{c.ID, a.ID, b.ID}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := repo.QueryOffers(ctx, tt.filter, tt.ordering)
				require.NoError(t, err)
				assert.Equal(t, tt.want, offerIDs(got))
			})
		}
	})

	t.Run("review", func(t *testing.T) {
		usrRepo, _, repo := newRepos(t)
		acme := CreateUser(t, usrRepo, "Acme", "acme", "", "", []string{user.RoleMonitor}, true)
		o := CreateOffer(t, repo, acme.ID, "Backend", "Informatique", 20, curriculum.Pending)

		require.NoError(t, repo.ReviewOffer(ctx, o.ID, curriculum.Valid))
		assert.Equal(t, offer.ErrAlreadyTreated, repo.ReviewOffer(ctx, o.ID, curriculum.Invalid))
		assert.Equal(t, offer.ErrNotFound, repo.ReviewOffer(ctx, unknownID, curriculum.Valid))

		got, err := repo.GetOffer(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, curriculum.Valid, got.Validity)
	})

	t.Run("applications", func(t *testing.T) {
		usrRepo, cvRepo, repo := newRepos(t)
		acme := CreateUser(t, usrRepo, "Acme", "acme", "", "", []string{user.RoleMonitor}, true)
		initech := CreateUser(t, usrRepo, "Initech", "initech", "", "", []string{user.RoleMonitor}, true)
		jane := CreateUser(t, usrRepo, "Jane", "jane", "", "", []string{user.RoleStudent}, true)
		john := CreateUser(t, usrRepo, "John", "john", "", "", []string{user.RoleStudent}, true)
		janeCV := CreateCurriculum(t, cvRepo, jane.ID, "jane.pdf", curriculum.Valid)
		johnCV := CreateCurriculum(t, cvRepo, john.ID, "john.pdf", curriculum.Valid)
		backend := CreateOffer(t, repo, acme.ID, "Backend", "Informatique", 20, curriculum.Valid)
		consult := CreateOffer(t, repo, initech.ID, "Conseiller", "Informatique", 25, curriculum.Valid)

		now := time.Now()
		a := CreateApplication(t, repo, backend.ID, jane.ID, janeCV.ID, now.Add(-3*time.Hour))
		b := CreateApplication(t, repo, backend.ID, john.ID, johnCV.ID, now.Add(-2*time.Hour))
		c := CreateApplication(t, repo, consult.ID, jane.ID, janeCV.ID, now.Add(-time.Hour))

		_, err := repo.CreateApplication(ctx, offer.Application{
			OfferID:      backend.ID,
			StudentID:    jane.ID,
			CurriculumID: janeCV.ID,
			CreatedAt:    now.UTC(),
		})
		assert.Equal(t, offer.ErrAlreadyApplied, err)

		got, err := repo.GetApplication(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, backend.ID, got.OfferID)
		assert.Equal(t, jane.ID, got.StudentID)
		assert.Equal(t, janeCV.ID, got.CurriculumID)
		assert.Equal(t, offer.StatusCVSent, got.Status)
		assert.Nil(t, got.InterviewDate)

		_, err = repo.GetApplication(ctx, unknownID)
		assert.Equal(t, offer.ErrApplicationNotFound, err)

		date := now.Add(48 * time.Hour).UTC().Truncate(time.Second)
		b.Status = offer.StatusAwaitingReply
		b.InterviewDate = &date
		require.NoError(t, repo.UpdateApplication(ctx, b))
		assert.Equal(t, offer.ErrApplicationNotFound, repo.UpdateApplication(ctx, offer.Application{ID: unknownID}))

		got, err = repo.GetApplication(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, offer.StatusAwaitingReply, got.Status)
		require.NotNil(t, got.InterviewDate)
		assert.True(t, date.Equal(*got.InterviewDate))

		awaiting := offer.StatusAwaitingReply
		tests := []struct {
			name   string
			filter offer.ApplicationFilter
			want   []string
		}{
			{name: "all", want: []string{a.ID, b.ID, c.ID}},
			{name: "offer", filter: offer.ApplicationFilter{OfferID: backend.ID}, want: []string{a.ID, b.ID}},
			{name: "offer creator", filter: offer.ApplicationFilter{OfferCreatorID: initech.ID}, want: []string{c.ID}},
			{name: "student", filter: offer.ApplicationFilter{StudentID: jane.ID}, want: []string{a.ID, c.ID}},
			{name: "status", filter: offer.ApplicationFilter{Status: &awaiting}, want: []string{b.ID}},
			{name: "bad student id", filter: offer.ApplicationFilter{StudentID: "lol"}, want: []string{}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := repo.QueryApplications(ctx, tt.filter)
				require.NoError(t, err)
				assert.Equal(t, tt.want, applicationIDs(got))
			})
		}
	})
}

func offerIDs(offers []offer.Offer) []string {
	ids := make([]string, 0, len(offers))
	for _, o := range offers {
		ids = append(ids, o.ID)
	}
	return ids
}

func applicationIDs(apps []offer.Application) []string {
	ids := make([]string, 0, len(apps))
	for _, app := range apps {
		ids = append(ids, app.ID)
	}
	return ids
}

func userIDs(users []user.User) []string {
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids
}

func curriculumIDs(cvs []curriculum.Curriculum) []string {
	ids := make([]string, 0, len(cvs))
	for _, cv := range cvs {
		ids = append(ids, cv.ID)
	}
	return ids
}
