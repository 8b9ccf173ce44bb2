package tracker

import (
	"math"

	"github.com/Rohan-80800/PositLearn-sub001/internal/domain"
)

// ModuleTally counts the items of one module and how many are done.
type ModuleTally struct {
	Videos           int
	CompletedVideos  int
	Quizzes          int
	CompletedQuizzes int
}

// Tally counts a module's completions. A quiz is completed once its best
// score reaches 100; completed video ids outside the module are ignored.
func Tally(module domain.Module, completedVideoIDs []string, results map[string]domain.QuizProgress) ModuleTally {
	done := toSet(completedVideoIDs)
	t := ModuleTally{Videos: len(module.Videos), Quizzes: len(module.Quizzes)}
	for _, v := range module.Videos {
		if _, ok := done[v.ID]; ok {
			t.CompletedVideos++
		}
	}
	for _, q := range module.Quizzes {
		if p, ok := results[q.ID]; ok && p.MaxScore >= domain.TotalPoints {
			t.CompletedQuizzes++
		}
	}
	return t
}

// ComputeCompletion sums module tallies into a rounded percentage.
// An empty path is 0% complete.
func ComputeCompletion(modules []ModuleTally) domain.Completion {
	var c domain.Completion
	for _, m := range modules {
		c.Completed += m.CompletedVideos + m.CompletedQuizzes
		c.Total += m.Videos + m.Quizzes
	}
	if c.Total == 0 {
		return c
	}
	c.Percent = int(math.Round(100 * float64(c.Completed) / float64(c.Total)))
	return c
}

// ViewCompletion recomputes the completion of a learning path view.
func ViewCompletion(view domain.LearningPathView) domain.Completion {
	tallies := make([]ModuleTally, 0, len(view.Modules))
	for _, m := range view.Modules {
		tallies = append(tallies, Tally(m.Module, m.CompletedVideos, view.QuizResults))
	}
	return ComputeCompletion(tallies)
}

// CertificateEligible reports whether a certificate should be offered.
func CertificateEligible(percent int) bool {
	return percent == 100
}

// NextUnlocked returns the item that a completed video unlocks: the first
// quiz of the module after its last video, else the following video.
func NextUnlocked(module domain.Module, justCompletedVideoID string) (domain.PathItem, bool) {
	for i, v := range module.Videos {
		if v.ID != justCompletedVideoID {
			continue
		}
		if i == len(module.Videos)-1 {
			if len(module.Quizzes) == 0 {
				return domain.PathItem{}, false
			}
			q := module.Quizzes[0]
			return domain.PathItem{Kind: domain.ItemQuiz, ID: q.ID, Title: q.Title}, true
		}
		nv := module.Videos[i+1]
		return domain.PathItem{Kind: domain.ItemVideo, ID: nv.ID, Title: nv.Title}, true
	}
	return domain.PathItem{}, false
}

// QuizUnlocked applies the eligibility rule: every prerequisite video of
// the quiz is completed. A quiz without prerequisites is always open.
func QuizUnlocked(quiz domain.Quiz, completedVideoIDs []string) bool {
	done := toSet(completedVideoIDs)
	for _, id := range quiz.VideoIDs {
		if _, ok := done[id]; !ok {
			return false
		}
	}
	return true
}

// Sequence interleaves a module's quizzes into its video order. A quiz
// follows the last of its prerequisite videos; quizzes without (known)
// prerequisites close the module.
func Sequence(module domain.Module) []domain.PathItem {
	items := make([]domain.PathItem, 0, len(module.Videos)+len(module.Quizzes))
	seen := make(map[string]struct{}, len(module.Videos))
	placed := make(map[string]struct{}, len(module.Quizzes))
	for _, v := range module.Videos {
		items = append(items, domain.PathItem{Kind: domain.ItemVideo, ID: v.ID, Title: v.Title})
		seen[v.ID] = struct{}{}
		for _, q := range module.Quizzes {
			if _, ok := placed[q.ID]; ok || len(q.VideoIDs) == 0 {
				continue
			}
			if coveredBy(q.VideoIDs, seen) {
				items = append(items, domain.PathItem{Kind: domain.ItemQuiz, ID: q.ID, Title: q.Title})
				placed[q.ID] = struct{}{}
			}
		}
	}
	for _, q := range module.Quizzes {
		if _, ok := placed[q.ID]; !ok {
			items = append(items, domain.PathItem{Kind: domain.ItemQuiz, ID: q.ID, Title: q.Title})
		}
	}
	return items
}

func coveredBy(ids []string, seen map[string]struct{}) bool {
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			return false
		}
	}
	return true
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
