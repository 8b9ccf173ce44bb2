package cli

import "github.com/Rohan-80800/PositLearn-sub001/internal/domain"

// sampleProject is served when no Postgres catalog is configured and is the
// default payload of the seed command.
func sampleProject() domain.Project {
	return domain.Project{
		ID:   "go-fundamentals",
		Name: "Go Fundamentals",
		Modules: []domain.Module{
			{
				ID:    "basics",
				Title: "Language basics",
				Videos: []domain.Video{
					{ID: "basics-intro", Title: "Why Go"},
					{ID: "basics-types", Title: "Types and values"},
					{ID: "basics-funcs", Title: "Functions"},
				},
				Quizzes: []domain.Quiz{
					{
						ID:       "basics-types-check",
						Title:    "Types check",
						VideoIDs: []string{"basics-intro", "basics-types"},
						Questions: []domain.Question{
							{Text: "Zero value of an int?", Options: []string{"0", "nil", "undefined"}, Correct: "0"},
							{Text: "Which declares and assigns?", Options: []string{":=", "=", "=="}, Correct: ":="},
						},
					},
					{
						ID:       "basics-final",
						Title:    "Basics final",
						VideoIDs: []string{"basics-intro", "basics-types", "basics-funcs"},
						Questions: []domain.Question{
							{Text: "Functions can return several values.", Options: []string{"true", "false"}, Correct: "true"},
							{Text: "Keyword to defer a call?", Options: []string{"defer", "later", "finally"}, Correct: "defer"},
							{Text: "Exported names start with?", Options: []string{"an upper-case letter", "an underscore"}, Correct: "an upper-case letter"},
						},
					},
				},
			},
			{
				ID:    "concurrency",
				Title: "Concurrency",
				Videos: []domain.Video{
					{ID: "conc-goroutines", Title: "Goroutines"},
					{ID: "conc-channels", Title: "Channels"},
				},
				Quizzes: []domain.Quiz{
					{
						ID:       "conc-check",
						Title:    "Concurrency check",
						VideoIDs: []string{"conc-goroutines", "conc-channels"},
						Questions: []domain.Question{
							{Text: "Start a goroutine with?", Options: []string{"go", "async", "spawn"}, Correct: "go"},
							{Text: "Receiving from a closed channel?", Options: []string{"returns the zero value", "panics"}, Correct: "returns the zero value"},
						},
					},
				},
			},
		},
	}
}
