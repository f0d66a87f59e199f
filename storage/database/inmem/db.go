package inmemdb

import (
	"cmp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/unbfeelings/backend/core"
	"github.com/unbfeelings/backend/core/post"
	"github.com/unbfeelings/backend/core/school"
	"github.com/unbfeelings/backend/core/user"
)

type (
	// DB is an in-memory database, mainly used in tests.
	// A single lock guards all the tables so that cascades and restrictions stay consistent.
	DB struct {
		mutex   sync.RWMutex
		pkCount int

		users    map[int]*user.User
		students map[int]int // user ID -> course ID
		blocks   map[int]*user.Block

		campuses map[int]*school.Campus
		courses  map[int]*school.Course
		subjects map[int]*school.Subject

		posts    map[int]*postRow
		tags     map[int]*post.Tag
		postTags map[int][]int // post ID -> tag IDs
	}

	postRow struct {
		ID        int
		AuthorID  int
		SubjectID int
		Emotion   string
		CreatedAt time.Time
	}
)

func Open() *DB {
	return &DB{
		users:    make(map[int]*user.User),
		students: make(map[int]int),
		blocks:   make(map[int]*user.Block),
		campuses: make(map[int]*school.Campus),
		courses:  make(map[int]*school.Course),
		subjects: make(map[int]*school.Subject),
		posts:    make(map[int]*postRow),
		tags:     make(map[int]*post.Tag),
		postTags: make(map[int][]int),
	}
}

func (db *DB) nextPK() int {
	db.pkCount++
	return db.pkCount
}

// compareFunc compares two rows on a single field.
type compareFunc[T any] func(a, b T) int

// sortRows sorts rows following ordering, then by ID. Unknown fields are ignored.
func sortRows[T any](rows []T, ordering []core.DBOrdering, fields map[string]compareFunc[T]) {
	byID := fields["id"]
	slices.SortStableFunc(rows, func(a, b T) int {
		for _, ord := range ordering {
			compare, ok := fields[ord.Field]
			if !ok {
				continue
			}
			c := compare(a, b)
			if !ord.Ascending {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return byID(a, b)
	})
}

func paginate[T any](rows []T, page core.Pagination) []T {
	start, end := page.Paginate(len(rows))
	return rows[start:end]
}

func compareTimes(a, b time.Time) int {
	return a.Compare(b)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func sortedIDs[V any](table map[int]V) []int {
	ids := make([]int, 0, len(table))
	for id := range table {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, cmp.Compare[int])
	return ids
}
