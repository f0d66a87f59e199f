package eventsvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"github.com/unbfeelings/backend/core"
	"github.com/unbfeelings/backend/core/post"
)

type (
	// Publisher publishes raw messages on a subject; *nats.Conn is one.
	Publisher interface {
		Publish(subject string, data []byte) error
	}

	// postEvent is the message published on the post event subjects.
	postEvent struct {
		PostID    int      `json:"post_id"`
		AuthorID  int      `json:"author_id"`
		SubjectID int      `json:"subject_id"`
		CourseID  int      `json:"course_id"`
		Emotion   string   `json:"emotion"`
		Tags      []string `json:"tags"`
		Timestamp string   `json:"timestamp"`
	}

	postPublisher struct {
		pub Publisher
	}
)

var _ post.Listener = (*postPublisher)(nil)

// Connect connects to the configured NATS server.
func Connect(conf *core.Config) (*nats.Conn, error) {
	nc, err := nats.Connect(conf.Nats.URL, nats.Name(conf.AppName))
	if err != nil {
		return nil, errors.Wrap(err, "connecting to NATS")
	}
	return nc, nil
}

// NewPostPublisher returns a post.Listener publishing post events on the `post.*` subjects.
func NewPostPublisher(pub Publisher) post.Listener {
	return &postPublisher{pub: pub}
}

func (p *postPublisher) OnPostEvent(_ context.Context, evt post.Event) error {
	tags := make([]string, 0, len(evt.Post.Tags))
	for _, tag := range evt.Post.Tags {
		tags = append(tags, tag.Description)
	}

	data, err := json.Marshal(postEvent{
		PostID:    evt.Post.ID,
		AuthorID:  evt.Post.AuthorID,
		SubjectID: evt.Post.Subject.ID,
		CourseID:  evt.Post.Subject.CourseID,
		Emotion:   evt.Post.Emotion,
		Tags:      tags,
		Timestamp: evt.Post.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return errors.Wrap(err, "encoding event")
	}
	return errors.Wrapf(p.pub.Publish(evt.Type, data), "publishing %s", evt.Type)
}
