package diagnosis

import (
	"time"

	"github.com/unbfeelings/backend/core/post"
)

// Targets
const (
	TargetUniversity = ""
	TargetStudent    = "student"
	TargetSubject    = "subject"
)

// Query selects the posts a diagnosis is made of.
type Query struct {
	Target   string `query:"target"`
	TargetID string `query:"target_id"`
}

// WeekPosts holds the posts of the lookback window by weekday.
// Fields are declared in weekday order so that they are always encoded Sunday first.
type WeekPosts struct {
	Sunday    []post.Post `json:"sunday"`
	Monday    []post.Post `json:"monday"`
	Tuesday   []post.Post `json:"tuesday"`
	Wednesday []post.Post `json:"wednesday"`
	Thursday  []post.Post `json:"thursday"`
	Friday    []post.Post `json:"friday"`
	Saturday  []post.Post `json:"saturday"`
}

func newWeekPosts() WeekPosts {
	return WeekPosts{
		Sunday:    []post.Post{},
		Monday:    []post.Post{},
		Tuesday:   []post.Post{},
		Wednesday: []post.Post{},
		Thursday:  []post.Post{},
		Friday:    []post.Post{},
		Saturday:  []post.Post{},
	}
}

func (wp *WeekPosts) day(d time.Weekday) *[]post.Post {
	return [...]*[]post.Post{
		&wp.Sunday, &wp.Monday, &wp.Tuesday, &wp.Wednesday, &wp.Thursday, &wp.Friday, &wp.Saturday,
	}[d]
}

func (wp *WeekPosts) add(d time.Weekday, p post.Post) {
	posts := wp.day(d)
	*posts = append(*posts, p)
}

type DayCount struct {
	BadCount  int `json:"bad_count"`
	GoodCount int `json:"good_count"`
}

// WeekCounts holds the good and bad post counts of the lookback window by weekday.
type WeekCounts struct {
	Sunday    DayCount `json:"sunday"`
	Monday    DayCount `json:"monday"`
	Tuesday   DayCount `json:"tuesday"`
	Wednesday DayCount `json:"wednesday"`
	Thursday  DayCount `json:"thursday"`
	Friday    DayCount `json:"friday"`
	Saturday  DayCount `json:"saturday"`
}

func (wc *WeekCounts) day(d time.Weekday) *DayCount {
	return [...]*DayCount{
		&wc.Sunday, &wc.Monday, &wc.Tuesday, &wc.Wednesday, &wc.Thursday, &wc.Friday, &wc.Saturday,
	}[d]
}

func (wc *WeekCounts) add(d time.Weekday, emotion string) {
	switch emotion {
	case post.EmotionGood:
		wc.day(d).GoodCount++
	case post.EmotionBad:
		wc.day(d).BadCount++
	}
}
