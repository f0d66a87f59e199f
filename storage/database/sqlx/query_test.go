package sqlxrepos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unbfeelings/backend/core"
	"github.com/unbfeelings/backend/core/post"
)

func TestPostsQueries(t *testing.T) {
	where := postsWhere(post.QueryFilter{SubjectID: 3, Emotion: post.EmotionBad, ExcludeAuthors: []int{4, 5}})

	t.Run("count", func(t *testing.T) {
		query, args, err := countQuery(postsTable, where).ToSql()
		require.NoError(t, err)
		assert.Equal(t,
			"SELECT COUNT(*) FROM posts p JOIN subjects s ON s.id = p.subject_id "+
				"WHERE (p.subject_id = $1 AND p.emotion = $2 AND p.author_id NOT IN ($3,$4))",
			query)
		assert.Equal(t, []interface{}{3, post.EmotionBad, 4, 5}, args)
	})

	t.Run("default ordering", func(t *testing.T) {
		query, args, err := postsQuery(where, nil, core.Pagination{Page: 2, PageSize: 10}).ToSql()
		require.NoError(t, err)
		assert.Contains(t, query, "s.id AS subject_id, s.name AS subject_name, s.course_id AS subject_course_id")
		assert.Contains(t, query, "FROM posts p JOIN subjects s ON s.id = p.subject_id WHERE")
		assert.Contains(t, query, "p.author_id NOT IN ($3,$4)")
		assert.Contains(t, query, "ORDER BY p.created_at DESC, p.id DESC, p.id")
		assert.Contains(t, query, "LIMIT 10 OFFSET 10")
		assert.Equal(t, []interface{}{3, post.EmotionBad, 4, 5}, args)
	})

	t.Run("unknown ordering fields", func(t *testing.T) {
		ordering := []core.DBOrdering{{Field: "password"}, {Field: "subject", Ascending: true}}
		query, _, err := postsQuery(where, ordering, core.Pagination{}).ToSql()
		require.NoError(t, err)
		assert.Contains(t, query, "ORDER BY p.subject_id ASC, p.id")
		assert.NotContains(t, query, "password")
		assert.NotContains(t, query, "LIMIT")
	})

	t.Run("no blocked authors", func(t *testing.T) {
		query, args, err := countQuery(postsTable, postsWhere(post.QueryFilter{AuthorID: 7})).ToSql()
		require.NoError(t, err)
		assert.NotContains(t, query, "NOT IN")
		assert.Contains(t, query, "p.author_id = $1")
		assert.Equal(t, []interface{}{7}, args)
	})
}

func TestUpsertTagQuery(t *testing.T) {
	query, args, err := upsertTagQuery("exams").ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		"INSERT INTO tags (description) VALUES ($1) "+
			"ON CONFLICT (description) DO UPDATE SET description = EXCLUDED.description RETURNING id",
		query)
	assert.Equal(t, []interface{}{"exams"}, args)
}

func TestBlockedStudentsQueries(t *testing.T) {
	countQ, selectQ := blockedStudentsQueries(8, core.Pagination{Page: 1, PageSize: 5})

	query, args, err := countQ.ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT COUNT(*) FROM users u JOIN students s ON s.user_id = u.id "+
			"JOIN blocks b ON b.blocked_id = u.id WHERE b.blocker_id = $1",
		query)
	assert.Equal(t, []interface{}{8}, args)

	query, args, err = selectQ.ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "u.password_hash")
	assert.Contains(t, query, "s.course_id FROM users u JOIN students s ON s.user_id = u.id JOIN blocks b ON b.blocked_id = u.id")
	assert.Contains(t, query, "WHERE b.blocker_id = $1 ORDER BY b.id LIMIT 5 OFFSET 0")
	assert.Equal(t, []interface{}{8}, args)
}
