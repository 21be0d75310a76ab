// Package inmemdb implements the repositories in memory. Used in tests & local demos.
package inmemdb

import (
	"sync"

	"github.com/trezcool/stage/core/curriculum"
	"github.com/trezcool/stage/core/offer"
	"github.com/trezcool/stage/core/user"
)

type (
	DB struct {
		mutex      sync.RWMutex
		users      map[string]*user.User
		curriculum map[string]*curriculum.Curriculum
		principals map[string]string // {studentID: curriculumID}
		offers     map[string]*offer.Offer
		apps       map[string]*offer.Application
		seq        int // keeps insertion order
		order      map[string]int
	}
)

func Open() *DB {
	return &DB{
		users:      make(map[string]*user.User),
		curriculum: make(map[string]*curriculum.Curriculum),
		principals: make(map[string]string),
		offers:     make(map[string]*offer.Offer),
		apps:       make(map[string]*offer.Application),
		order:      make(map[string]int),
	}
}

func (db *DB) track(id string) {
	db.seq++
	db.order[id] = db.seq
}
