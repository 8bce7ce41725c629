package quiz

// Result is the outcome of a played quiz.
type Result struct {
	Correct int
	Total   int

	// Wrong holds the indexes of questions answered incorrectly or left
	// unanswered.
	Wrong []int
}

// Score compares answers with the correct answers by index. Missing
// answers count as wrong.
func Score(questions []Question, answers []string) Result {
	r := Result{Total: len(questions)}
	for i, q := range questions {
		if i < len(answers) && answers[i] == q.CorrectAnswer {
			r.Correct++
			continue
		}
		r.Wrong = append(r.Wrong, i)
	}
	return r
}

// Percent returns the score as a percentage, 0 for an empty quiz.
func (r Result) Percent() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Correct) * 100 / float64(r.Total)
}
