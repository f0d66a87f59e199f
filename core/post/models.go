package post

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/unbfeelings/backend/core"
	"github.com/unbfeelings/backend/core/school"
)

// Emotions
const (
	EmotionGood    = "g"
	EmotionBad     = "b"
	EmotionNeutral = "n"
)

// Post events
const (
	EventCreated = "post.created"
	EventUpdated = "post.updated"
	EventDeleted = "post.deleted"
)

type Tag struct {
	ID          int    `json:"id" db:"id"`
	Description string `json:"description" db:"description"`
	Quantity    int    `json:"quantity" db:"quantity"` // number of posts using the tag
}

type Post struct {
	ID        int            `json:"id"`
	AuthorID  int            `json:"author_id"`
	Subject   school.Subject `json:"subject"`
	Tags      []Tag          `json:"tag"`
	Emotion   string         `json:"emotion"`
	CreatedAt time.Time      `json:"created_at"` // UTC
}

// Event is sent to the Listeners whenever a post changes.
type Event struct {
	Type string `json:"type"`
	Post Post   `json:"post"`
}

// Ordering fields accepted by the posts query endpoint.
var OrderingFields = []string{"id", "created_at", "emotion", "subject"}

type NewPost struct {
	SubjectID int      `json:"subject" validate:"required"`
	Emotion   string   `json:"emotion" validate:"required,oneof=g b n"`
	Tags      []string `json:"tag" validate:"omitempty,max=10,dive,max=50"`
}

func (np *NewPost) Validate(validate *validator.Validate) error {
	np.Emotion = core.CleanString(np.Emotion, true /* lower */)
	np.Tags = core.CleanStrings(np.Tags, true /* lower */)
	return validate.Struct(np)
}

// UpdatePost is used for both full (PUT) and partial (PATCH) updates.
// On partial updates, missing fields keep their original value.
// Tags are only replaced when provided.
type UpdatePost struct {
	SubjectID int      `json:"subject" validate:"required"`
	Emotion   string   `json:"emotion" validate:"required,oneof=g b n"`
	Tags      []string `json:"tag" validate:"omitempty,max=10,dive,max=50"`
}

func (up *UpdatePost) Validate(orig Post, partial bool, validate *validator.Validate) error {
	up.Emotion = core.CleanString(up.Emotion, true /* lower */)
	up.Tags = core.CleanStrings(up.Tags, true /* lower */)
	if partial {
		if up.SubjectID == 0 {
			up.SubjectID = orig.Subject.ID
		}
		if up.Emotion == "" {
			up.Emotion = orig.Emotion
		}
	}
	return validate.Struct(up)
}

type QueryFilter struct {
	SubjectID int    `query:"subject"`
	AuthorID  int    `query:"author"`
	Emotion   string `query:"emotion"`

	CreatedFrom    time.Time `query:"-"`
	ExcludeAuthors []int     `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Emotion = core.CleanString(qf.Emotion, true /* lower */)
}
