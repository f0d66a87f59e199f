package inmemdb

import (
	"cmp"
	"context"
	"slices"

	"github.com/unbfeelings/backend/core"
	"github.com/unbfeelings/backend/core/post"
)

type postRepository struct {
	db *DB
}

var _ post.Repository = (*postRepository)(nil)

func NewPostRepository(db *DB) *postRepository {
	return &postRepository{db: db}
}

var postFields = map[string]compareFunc[post.Post]{
	"id":         func(a, b post.Post) int { return cmp.Compare(a.ID, b.ID) },
	"created_at": func(a, b post.Post) int { return compareTimes(a.CreatedAt, b.CreatedAt) },
	"emotion":    func(a, b post.Post) int { return cmp.Compare(a.Emotion, b.Emotion) },
	"subject":    func(a, b post.Post) int { return cmp.Compare(a.Subject.ID, b.Subject.ID) },
}

var defaultPostOrdering = []core.DBOrdering{{Field: "created_at"}, {Field: "id"}}

// refreshTagQuantities recounts the posts using each of the given tags.
func (db *DB) refreshTagQuantities(tagIDs []int) {
	for _, tagID := range tagIDs {
		tag, ok := db.tags[tagID]
		if !ok {
			continue
		}
		tag.Quantity = 0
		for _, ids := range db.postTags {
			if slices.Contains(ids, tagID) {
				tag.Quantity++
			}
		}
	}
}

// getOrCreateTags returns the IDs of the tags with the given descriptions, creating the missing ones.
func (db *DB) getOrCreateTags(descriptions []string) []int {
	ids := make([]int, 0, len(descriptions))
	for _, desc := range descriptions {
		var found bool
		for _, tag := range db.tags {
			if tag.Description == desc {
				ids = append(ids, tag.ID)
				found = true
				break
			}
		}
		if !found {
			tag := &post.Tag{ID: db.nextPK(), Description: desc}
			db.tags[tag.ID] = tag
			ids = append(ids, tag.ID)
		}
	}
	return ids
}

// setPostTags replaces the tags of a post and refreshes the quantity of the old and new ones.
func (db *DB) setPostTags(postID int, descriptions []string) {
	oldIDs := db.postTags[postID]
	newIDs := db.getOrCreateTags(descriptions)
	db.postTags[postID] = newIDs
	db.refreshTagQuantities(append(oldIDs, newIDs...))
}

func (repo *postRepository) post(row postRow) post.Post {
	p := post.Post{
		ID:        row.ID,
		AuthorID:  row.AuthorID,
		Emotion:   row.Emotion,
		CreatedAt: row.CreatedAt,
		Tags:      make([]post.Tag, 0, len(repo.db.postTags[row.ID])),
	}
	if s, ok := repo.db.subjects[row.SubjectID]; ok {
		p.Subject = *s
	}
	for _, tagID := range repo.db.postTags[row.ID] {
		if tag, ok := repo.db.tags[tagID]; ok {
			p.Tags = append(p.Tags, *tag)
		}
	}
	return p
}

func (repo *postRepository) CreatePost(_ context.Context, p post.Post, tags []string) (post.Post, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	row := postRow{
		ID:        repo.db.nextPK(),
		AuthorID:  p.AuthorID,
		SubjectID: p.Subject.ID,
		Emotion:   p.Emotion,
		CreatedAt: p.CreatedAt,
	}
	repo.db.posts[row.ID] = &row
	repo.db.setPostTags(row.ID, tags)
	return repo.post(row), nil
}

func (repo *postRepository) QueryPosts(_ context.Context, filter post.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]post.Post, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	posts := make([]post.Post, 0, len(repo.db.posts))
	for _, row := range repo.db.posts {
		switch {
		case filter.SubjectID != 0 && row.SubjectID != filter.SubjectID,
			filter.AuthorID != 0 && row.AuthorID != filter.AuthorID,
			filter.Emotion != "" && row.Emotion != filter.Emotion,
			!filter.CreatedFrom.IsZero() && row.CreatedAt.Before(filter.CreatedFrom),
			slices.Contains(filter.ExcludeAuthors, row.AuthorID):
			continue
		}
		posts = append(posts, repo.post(*row))
	}

	if len(ordering) == 0 {
		ordering = defaultPostOrdering
	}
	sortRows(posts, ordering, postFields)
	return paginate(posts, page), len(posts), nil
}

func (repo *postRepository) GetPost(_ context.Context, id int) (post.Post, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if row, ok := repo.db.posts[id]; ok {
		return repo.post(*row), nil
	}
	return post.Post{}, post.ErrNotFound
}

func (repo *postRepository) UpdatePost(_ context.Context, p post.Post, tags []string) (post.Post, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	row, ok := repo.db.posts[p.ID]
	if !ok {
		return post.Post{}, post.ErrNotFound
	}
	row.SubjectID = p.Subject.ID
	row.Emotion = p.Emotion
	if tags != nil {
		repo.db.setPostTags(row.ID, tags)
	}
	return repo.post(*row), nil
}

func (repo *postRepository) DeletePost(_ context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.posts[id]; !ok {
		return post.ErrNotFound
	}
	tagIDs := repo.db.postTags[id]
	delete(repo.db.postTags, id)
	delete(repo.db.posts, id)
	repo.db.refreshTagQuantities(tagIDs)
	return nil
}

func (repo *postRepository) QueryTags(_ context.Context, page core.Pagination) ([]post.Tag, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	tags := make([]post.Tag, 0, len(repo.db.tags))
	for _, tag := range repo.db.tags {
		tags = append(tags, *tag)
	}
	slices.SortFunc(tags, func(a, b post.Tag) int {
		if c := cmp.Compare(b.Quantity, a.Quantity); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return paginate(tags, page), len(tags), nil
}
