package inmemdb

import (
	"cmp"
	"context"
	"slices"

	"github.com/unbfeelings/backend/core"
	"github.com/unbfeelings/backend/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

var studentFields = map[string]compareFunc[user.Student]{
	"id":         func(a, b user.Student) int { return cmp.Compare(a.ID, b.ID) },
	"email":      func(a, b user.Student) int { return cmp.Compare(a.Email, b.Email) },
	"name":       func(a, b user.Student) int { return cmp.Compare(a.Name, b.Name) },
	"created_at": func(a, b user.Student) int { return compareTimes(a.CreatedAt, b.CreatedAt) },
}

func (repo *userRepository) student(id int) (user.Student, bool) {
	courseID, ok := repo.db.students[id]
	if !ok {
		return user.Student{}, false
	}
	usr, ok := repo.db.users[id]
	if !ok {
		return user.Student{}, false
	}
	return user.Student{User: *usr, CourseID: courseID}, true
}

func (repo *userRepository) findByEmail(email string) (*user.User, bool) {
	for _, usr := range repo.db.users {
		if usr.Email == email {
			return usr, true
		}
	}
	return nil, false
}

func (repo *userRepository) CheckEmailUniqueness(_ context.Context, email string, excludedIDs ...int) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if usr, ok := repo.findByEmail(email); ok && !slices.Contains(excludedIDs, usr.ID) {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) createUser(usr user.User) user.User {
	usr.ID = repo.db.nextPK()
	repo.db.users[usr.ID] = &usr
	return usr
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.findByEmail(usr.Email); ok {
		return user.User{}, user.ErrEmailExists
	}
	return repo.createUser(usr), nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	switch {
	case filter.ID != 0:
		if usr, ok := repo.db.users[filter.ID]; ok {
			return *usr, nil
		}
	case filter.Email != "":
		if usr, ok := repo.findByEmail(filter.Email); ok {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	usr.CreatedAt = orig.CreatedAt
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) UpdateOrCreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.findByEmail(usr.Email)
	if !ok {
		return repo.createUser(usr), nil
	}
	usr.ID = orig.ID
	usr.CreatedAt = orig.CreatedAt
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) DeleteUser(_ context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.users[id]; !ok {
		return user.ErrNotFound
	}

	// cascade: student profile, posts and blocks
	var refreshTags []int
	for postID, p := range repo.db.posts {
		if p.AuthorID == id {
			refreshTags = append(refreshTags, repo.db.postTags[postID]...)
			delete(repo.db.postTags, postID)
			delete(repo.db.posts, postID)
		}
	}
	repo.db.refreshTagQuantities(refreshTags)

	for blkID, blk := range repo.db.blocks {
		if blk.BlockerID == id || blk.BlockedID == id {
			delete(repo.db.blocks, blkID)
		}
	}
	delete(repo.db.students, id)
	delete(repo.db.users, id)
	return nil
}

// Students

func (repo *userRepository) CreateStudent(_ context.Context, st user.Student) (user.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.findByEmail(st.Email); ok {
		return user.Student{}, user.ErrEmailExists
	}
	st.User = repo.createUser(st.User)
	repo.db.students[st.ID] = st.CourseID
	return st, nil
}

func (repo *userRepository) QueryStudents(_ context.Context, filter user.StudentFilter, ordering []core.DBOrdering, page core.Pagination) ([]user.Student, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	students := make([]user.Student, 0, len(repo.db.students))
	for id := range repo.db.students {
		st, ok := repo.student(id)
		if !ok {
			continue
		}
		if filter.CourseID != 0 && st.CourseID != filter.CourseID {
			continue
		}
		if filter.Search != "" && !(containsFold(st.Name, filter.Search) || containsFold(st.Email, filter.Search)) {
			continue
		}
		students = append(students, st)
	}
	sortRows(students, ordering, studentFields)
	return paginate(students, page), len(students), nil
}

func (repo *userRepository) GetStudent(_ context.Context, id int) (user.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if st, ok := repo.student(id); ok {
		return st, nil
	}
	return user.Student{}, user.ErrNotFound
}

func (repo *userRepository) UpdateStudent(_ context.Context, st user.Student) (user.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.student(st.ID)
	if !ok {
		return user.Student{}, user.ErrNotFound
	}
	if other, ok := repo.findByEmail(st.Email); ok && other.ID != st.ID {
		return user.Student{}, user.ErrEmailExists
	}
	st.CreatedAt = orig.CreatedAt
	usr := st.User
	repo.db.users[st.ID] = &usr
	repo.db.students[st.ID] = st.CourseID
	return st, nil
}

// Blocks

func (repo *userRepository) CreateBlock(_ context.Context, blk user.Block) (user.Block, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, b := range repo.db.blocks {
		if b.BlockerID == blk.BlockerID && b.BlockedID == blk.BlockedID {
			return user.Block{}, user.ErrAlreadyBlocked
		}
	}
	blk.ID = repo.db.nextPK()
	repo.db.blocks[blk.ID] = &blk
	return blk, nil
}

func (repo *userRepository) GetBlock(_ context.Context, id int) (user.Block, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if blk, ok := repo.db.blocks[id]; ok {
		return *blk, nil
	}
	return user.Block{}, user.ErrBlockNotFound
}

func (repo *userRepository) DeleteBlock(_ context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.blocks[id]; !ok {
		return user.ErrBlockNotFound
	}
	delete(repo.db.blocks, id)
	return nil
}

// blocksOf returns the blocks made by blockerID, oldest first.
func (repo *userRepository) blocksOf(blockerID int) []user.Block {
	var blocks []user.Block
	for _, id := range sortedIDs(repo.db.blocks) {
		if blk := repo.db.blocks[id]; blk.BlockerID == blockerID {
			blocks = append(blocks, *blk)
		}
	}
	return blocks
}

func (repo *userRepository) QueryBlockedStudents(_ context.Context, blockerID int, page core.Pagination) ([]user.Student, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	blocks := repo.blocksOf(blockerID)
	students := make([]user.Student, 0, len(blocks))
	for _, blk := range blocks {
		if st, ok := repo.student(blk.BlockedID); ok {
			students = append(students, st)
		}
	}
	return paginate(students, page), len(students), nil
}

func (repo *userRepository) BlockedIDs(_ context.Context, blockerID int) ([]int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	blocks := repo.blocksOf(blockerID)
	ids := make([]int, 0, len(blocks))
	for _, blk := range blocks {
		ids = append(ids, blk.BlockedID)
	}
	return ids, nil
}
