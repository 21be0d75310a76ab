package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/stage/core"
	"github.com/trezcool/stage/core/curriculum"
	"github.com/trezcool/stage/core/offer"
)

type offerRepository struct {
	db *DB
}

var _ offer.Repository = (*offerRepository)(nil) // interface compliance check

func NewOfferRepository(db *DB) offer.Repository {
	return &offerRepository{db: db}
}

func (repo *offerRepository) CreateOffer(_ context.Context, o offer.Offer) (offer.Offer, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	o.ID = uuid.New().String()
	repo.db.offers[o.ID] = &o
	repo.db.track(o.ID)
	return o, nil
}

func (repo *offerRepository) GetOffer(_ context.Context, id string) (offer.Offer, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if o, ok := repo.db.offers[id]; ok {
		return *o, nil
	}
	return offer.Offer{}, offer.ErrNotFound
}

func (repo *offerRepository) QueryOffers(_ context.Context, filter offer.QueryFilter, ordering []core.DBOrdering) ([]offer.Offer, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	offers := make([]offer.Offer, 0)
	for _, o := range repo.db.offers {
		if filter.CreatorID != "" && o.CreatorID != filter.CreatorID {
			continue
		}
		if filter.Department != "" && !strings.EqualFold(o.Department, filter.Department) {
			continue
		}
		if filter.Validity != nil && o.Validity != *filter.Validity {
			continue
		}
		offers = append(offers, *o)
	}

	sort.SliceStable(offers, func(i, j int) bool { return repo.db.order[offers[i].ID] < repo.db.order[offers[j].ID] })
	for k := len(ordering) - 1; k >= 0; k-- {
		ord := ordering[k]
		sort.SliceStable(offers, func(i, j int) bool {
			a, b := offers[i], offers[j]
			if !ord.Ascending {
				a, b = b, a
			}
			switch ord.Field {
			case "title":
				return strings.ToLower(a.Title) < strings.ToLower(b.Title)
			case "department":
				return strings.ToLower(a.Department) < strings.ToLower(b.Department)
			case "salary":
				return a.Salary < b.Salary
			case "created_at":
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return false
		})
	}
	return offers, nil
}

func (repo *offerRepository) ReviewOffer(_ context.Context, id string, validity curriculum.Validity) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	o, ok := repo.db.offers[id]
	if !ok {
		return offer.ErrNotFound
	}
	if o.Validity != curriculum.Pending {
		return offer.ErrAlreadyTreated
	}
	o.Validity = validity
	return nil
}

func (repo *offerRepository) CreateApplication(_ context.Context, app offer.Application) (offer.Application, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.offers[app.OfferID]; !ok {
		return offer.Application{}, offer.ErrNotFound
	}
	for _, a := range repo.db.apps {
		if a.OfferID == app.OfferID && a.StudentID == app.StudentID {
			return offer.Application{}, offer.ErrAlreadyApplied
		}
	}

	app.ID = uuid.New().String()
	app.InterviewDate = copyTime(app.InterviewDate)
	repo.db.apps[app.ID] = &app
	repo.db.track(app.ID)
	return app, nil
}

func (repo *offerRepository) GetApplication(_ context.Context, id string) (offer.Application, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if app, ok := repo.db.apps[id]; ok {
		a := *app
		a.InterviewDate = copyTime(app.InterviewDate)
		return a, nil
	}
	return offer.Application{}, offer.ErrApplicationNotFound
}

func (repo *offerRepository) QueryApplications(_ context.Context, filter offer.ApplicationFilter) ([]offer.Application, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	apps := make([]offer.Application, 0)
	for _, app := range repo.db.apps {
		if filter.OfferID != "" && app.OfferID != filter.OfferID {
			continue
		}
		if filter.StudentID != "" && app.StudentID != filter.StudentID {
			continue
		}
		if filter.Status != nil && app.Status != *filter.Status {
			continue
		}
		if filter.OfferCreatorID != "" {
			if o, ok := repo.db.offers[app.OfferID]; !ok || o.CreatorID != filter.OfferCreatorID {
				continue
			}
		}
		a := *app
		a.InterviewDate = copyTime(app.InterviewDate)
		apps = append(apps, a)
	}

	sort.SliceStable(apps, func(i, j int) bool { return repo.db.order[apps[i].ID] < repo.db.order[apps[j].ID] })
	sort.SliceStable(apps, func(i, j int) bool { return apps[i].CreatedAt.Before(apps[j].CreatedAt) })
	return apps, nil
}

func (repo *offerRepository) UpdateApplication(_ context.Context, app offer.Application) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stored, ok := repo.db.apps[app.ID]
	if !ok {
		return offer.ErrApplicationNotFound
	}
	stored.Status = app.Status
	stored.InterviewDate = copyTime(app.InterviewDate)
	return nil
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
