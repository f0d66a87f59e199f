package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/unbfeelings/backend/core"
	"github.com/unbfeelings/backend/core/post"
	"github.com/unbfeelings/backend/core/school"
)

type postRepository struct {
	db *sqlx.DB
}

var _ post.Repository = (*postRepository)(nil) // interface compliance check

func NewPostRepository(db *sqlx.DB) *postRepository {
	return &postRepository{db: db}
}

type (
	postRow struct {
		ID              int       `db:"id"`
		AuthorID        int       `db:"author_id"`
		Emotion         string    `db:"emotion"`
		CreatedAt       time.Time `db:"created_at"`
		SubjectID       int       `db:"subject_id"`
		SubjectName     string    `db:"subject_name"`
		SubjectCourseID int       `db:"subject_course_id"`
	}

	postTagRow struct {
		PostID int `db:"post_id"`
		post.Tag
	}
)

const postsTable = "posts p JOIN subjects s ON s.id = p.subject_id"

var (
	postColumns = []string{
		"p.id", "p.author_id", "p.emotion", "p.created_at",
		"s.id AS subject_id", "s.name AS subject_name", "s.course_id AS subject_course_id",
	}
	postOrderCols = map[string]string{"id": "p.id", "created_at": "p.created_at", "emotion": "p.emotion", "subject": "p.subject_id"}

	defaultPostOrdering = []core.DBOrdering{{Field: "created_at"}, {Field: "id"}}
)

func (row postRow) post() post.Post {
	return post.Post{
		ID:        row.ID,
		AuthorID:  row.AuthorID,
		Subject:   school.Subject{ID: row.SubjectID, Name: row.SubjectName, CourseID: row.SubjectCourseID},
		Tags:      make([]post.Tag, 0),
		Emotion:   row.Emotion,
		CreatedAt: row.CreatedAt.UTC(),
	}
}

// withTags loads the tags of rows.
func (repo *postRepository) withTags(ctx context.Context, rows []postRow) ([]post.Post, error) {
	posts := make([]post.Post, 0, len(rows))
	if len(rows) == 0 {
		return posts, nil
	}

	ids := make([]int, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	var tagRows []postTagRow
	qb := psql.Select("pt.post_id", "t.id", "t.description", "t.quantity").
		From("post_tags pt JOIN tags t ON t.id = pt.tag_id").
		Where(sq.Eq{"pt.post_id": ids}).
		OrderBy("t.id")
	if err := selectAll(ctx, repo.db, &tagRows, qb); err != nil {
		return nil, errors.Wrap(err, "selecting post tags")
	}
	tags := make(map[int][]post.Tag, len(rows))
	for _, tr := range tagRows {
		tags[tr.PostID] = append(tags[tr.PostID], tr.Tag)
	}

	for _, row := range rows {
		p := row.post()
		if t, ok := tags[p.ID]; ok {
			p.Tags = t
		}
		posts = append(posts, p)
	}
	return posts, nil
}

// refreshTagQuantities recounts the posts using each of the given tags.
func refreshTagQuantities(ctx context.Context, e sqlx.ExecerContext, tagIDs []int) error {
	if len(tagIDs) == 0 {
		return nil
	}
	qb := psql.Update("tags").
		Set("quantity", sq.Expr("(SELECT COUNT(*) FROM post_tags pt WHERE pt.tag_id = tags.id)")).
		Where(sq.Eq{"id": tagIDs})
	_, err := exec(ctx, e, qb)
	return errors.Wrap(err, "refreshing tag quantities")
}

// upsertTagQuery returns the ID of the tag, inserted if missing.
func upsertTagQuery(description string) sq.InsertBuilder {
	return psql.Insert("tags").Columns("description").Values(description).
		Suffix("ON CONFLICT (description) DO UPDATE SET description = EXCLUDED.description RETURNING id")
}

// getOrCreateTags returns the IDs of the tags with the given descriptions, creating the missing ones.
func getOrCreateTags(ctx context.Context, tx *sqlx.Tx, descriptions []string) ([]int, error) {
	ids := make([]int, 0, len(descriptions))
	for _, desc := range descriptions {
		var id int
		if err := get(ctx, tx, &id, upsertTagQuery(desc)); err != nil {
			return nil, errors.Wrapf(err, "upserting tag %q", desc)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func postTagIDs(ctx context.Context, tx *sqlx.Tx, postID int) ([]int, error) {
	var ids []int
	if err := selectAll(ctx, tx, &ids, psql.Select("tag_id").From("post_tags").Where(sq.Eq{"post_id": postID})); err != nil {
		return nil, errors.Wrap(err, "selecting post tag IDs")
	}
	return ids, nil
}

// setPostTags replaces the tags of a post and refreshes the quantity of the old and new ones.
func setPostTags(ctx context.Context, tx *sqlx.Tx, postID int, descriptions []string) error {
	oldIDs, err := postTagIDs(ctx, tx, postID)
	if err != nil {
		return err
	}
	newIDs, err := getOrCreateTags(ctx, tx, descriptions)
	if err != nil {
		return err
	}

	if _, err = exec(ctx, tx, psql.Delete("post_tags").Where(sq.Eq{"post_id": postID})); err != nil {
		return errors.Wrap(err, "deleting post tags")
	}
	if len(newIDs) > 0 {
		ins := psql.Insert("post_tags").Columns("post_id", "tag_id")
		for _, tagID := range newIDs {
			ins = ins.Values(postID, tagID)
		}
		if _, err = exec(ctx, tx, ins); err != nil {
			return errors.Wrap(err, "inserting post tags")
		}
	}
	return refreshTagQuantities(ctx, tx, append(oldIDs, newIDs...))
}

func (repo *postRepository) CreatePost(ctx context.Context, p post.Post, tags []string) (post.Post, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		qb := psql.Insert("posts").
			Columns("author_id", "subject_id", "emotion", "created_at").
			Values(p.AuthorID, p.Subject.ID, p.Emotion, p.CreatedAt.UTC()).
			Suffix("RETURNING id")
		if err := get(ctx, tx, &p.ID, qb); err != nil {
			return errors.Wrap(err, "inserting post")
		}
		return setPostTags(ctx, tx, p.ID, tags)
	})
	if err != nil {
		return post.Post{}, err
	}
	return repo.GetPost(ctx, p.ID)
}

func postsWhere(filter post.QueryFilter) sq.And {
	where := sq.And{}
	if filter.SubjectID != 0 {
		where = append(where, sq.Eq{"p.subject_id": filter.SubjectID})
	}
	if filter.AuthorID != 0 {
		where = append(where, sq.Eq{"p.author_id": filter.AuthorID})
	}
	if filter.Emotion != "" {
		where = append(where, sq.Eq{"p.emotion": filter.Emotion})
	}
	if !filter.CreatedFrom.IsZero() {
		where = append(where, sq.GtOrEq{"p.created_at": filter.CreatedFrom.UTC()})
	}
	if len(filter.ExcludeAuthors) > 0 {
		where = append(where, sq.NotEq{"p.author_id": filter.ExcludeAuthors})
	}
	return where
}

// postsQuery selects posts newest first unless ordering says otherwise.
func postsQuery(where sq.Sqlizer, ordering []core.DBOrdering, page core.Pagination) sq.SelectBuilder {
	if len(ordering) == 0 {
		ordering = defaultPostOrdering
	}
	qb := psql.Select(postColumns...).From(postsTable).Where(where)
	return paginate(orderBy(qb, ordering, postOrderCols, "p.id"), page)
}

func (repo *postRepository) QueryPosts(ctx context.Context, filter post.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]post.Post, int, error) {
	where := postsWhere(filter)
	n, err := count(ctx, repo.db, postsTable, where)
	if err != nil {
		return nil, 0, err
	}

	qb := postsQuery(where, ordering, page)
	var rows []postRow
	if err = selectAll(ctx, repo.db, &rows, qb); err != nil {
		return nil, 0, errors.Wrap(err, "selecting posts")
	}

	posts, err := repo.withTags(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return posts, n, nil
}

func (repo *postRepository) GetPost(ctx context.Context, id int) (post.Post, error) {
	var row postRow
	if err := get(ctx, repo.db, &row, psql.Select(postColumns...).From(postsTable).Where(sq.Eq{"p.id": id})); err != nil {
		return post.Post{}, trapNoRowsErr(err, post.ErrNotFound, "selecting post")
	}
	posts, err := repo.withTags(ctx, []postRow{row})
	if err != nil {
		return post.Post{}, err
	}
	return posts[0], nil
}

func (repo *postRepository) UpdatePost(ctx context.Context, p post.Post, tags []string) (post.Post, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		qb := psql.Update("posts").
			SetMap(map[string]interface{}{"subject_id": p.Subject.ID, "emotion": p.Emotion}).
			Where(sq.Eq{"id": p.ID})
		n, err := exec(ctx, tx, qb)
		if err != nil {
			return errors.Wrap(err, "updating post")
		}
		if n == 0 {
			return post.ErrNotFound
		}
		if tags == nil {
			return nil
		}
		return setPostTags(ctx, tx, p.ID, tags)
	})
	if err != nil {
		return post.Post{}, err
	}
	return repo.GetPost(ctx, p.ID)
}

func (repo *postRepository) DeletePost(ctx context.Context, id int) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		tagIDs, err := postTagIDs(ctx, tx, id)
		if err != nil {
			return err
		}
		n, err := exec(ctx, tx, psql.Delete("posts").Where(sq.Eq{"id": id}))
		if err != nil {
			return errors.Wrap(err, "deleting post")
		}
		if n == 0 {
			return post.ErrNotFound
		}
		return refreshTagQuantities(ctx, tx, tagIDs)
	})
}

func (repo *postRepository) QueryTags(ctx context.Context, page core.Pagination) ([]post.Tag, int, error) {
	n, err := count(ctx, repo.db, "tags", sq.And{})
	if err != nil {
		return nil, 0, err
	}

	tags := make([]post.Tag, 0)
	qb := paginate(psql.Select("id", "description", "quantity").From("tags").OrderBy("quantity DESC", "id"), page)
	if err = selectAll(ctx, repo.db, &tags, qb); err != nil {
		return nil, 0, errors.Wrap(err, "selecting tags")
	}
	return tags, n, nil
}
