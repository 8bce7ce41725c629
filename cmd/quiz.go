package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/abhisek/edusarthi/internal/prompt"
	"github.com/abhisek/edusarthi/internal/quiz"
	"github.com/abhisek/edusarthi/internal/tutor"
	"github.com/spf13/cobra"
)

var quizCmd = &cobra.Command{
	Use:   "quiz [topic]",
	Short: "Generate a multiple-choice quiz",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		play, _ := cmd.Flags().GetBool("play")
		if asJSON && play {
			return errors.New("--json and --play cannot be combined")
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		req, err := taskRequest(cmd, args, prompt.TaskQuiz, a)
		if err != nil {
			return err
		}

		res := tutor.NewService(a.provider, a.cfg.Tutor, a.log).Quiz(cmd.Context(), req)
		if res.Err != nil {
			var malformed *tutor.MalformedOutputError
			if errors.As(res.Err, &malformed) {
				return fmt.Errorf("the quiz could not be read, please try again: %w", res.Err)
			}
			return fmt.Errorf("could not generate a quiz: %w", res.Err)
		}
		if res.Dropped > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "note: %d invalid question(s) were skipped\n", res.Dropped)
		}

		out := cmd.OutOrStdout()
		switch {
		case asJSON:
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"questions": res.Questions})
		case play:
			answers := askQuestions(cmd.InOrStdin(), out, res.Questions)
			printScore(out, res.Questions, answers)
			return nil
		default:
			printQuiz(out, res.Questions)
			return nil
		}
	},
}

func printQuiz(w io.Writer, questions []quiz.Question) {
	for i, q := range questions {
		fmt.Fprintf(w, "%d. %s\n", i+1, q.Question)
		for j, opt := range q.Options {
			fmt.Fprintf(w, "   %c) %s\n", 'a'+j, opt)
		}
		fmt.Fprintf(w, "   Answer: %s\n\n", q.CorrectAnswer)
	}
}

// askQuestions plays the quiz on in/out. An answer may be the option
// letter, its number or the option text. EOF leaves the rest unanswered.
func askQuestions(in io.Reader, out io.Writer, questions []quiz.Question) []string {
	scanner := bufio.NewScanner(in)
	answers := make([]string, 0, len(questions))
	for i, q := range questions {
		fmt.Fprintf(out, "\n%d/%d. %s\n", i+1, len(questions), q.Question)
		for j, opt := range q.Options {
			fmt.Fprintf(out, "   %c) %s\n", 'a'+j, opt)
		}
		fmt.Fprint(out, "Your answer: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			break
		}
		answers = append(answers, pickOption(q.Options, scanner.Text()))
	}
	return answers
}

// pickOption maps a typed answer to an option. Unmatched input is
// returned trimmed so it scores as wrong.
func pickOption(options []string, input string) string {
	input = strings.TrimSpace(input)
	if len(input) == 1 {
		if idx := int(strings.ToLower(input)[0] - 'a'); idx >= 0 && idx < len(options) {
			return options[idx]
		}
	}
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(options) {
		return options[n-1]
	}
	for _, opt := range options {
		if strings.EqualFold(opt, input) {
			return opt
		}
	}
	return input
}

func printScore(w io.Writer, questions []quiz.Question, answers []string) {
	r := quiz.Score(questions, answers)
	fmt.Fprintf(w, "\nScore: %d/%d (%.0f%%)\n", r.Correct, r.Total, r.Percent())
	for _, i := range r.Wrong {
		fmt.Fprintf(w, "  %d. %s\n     Correct answer: %s\n", i+1, questions[i].Question, questions[i].CorrectAnswer)
	}
}

func init() {
	quizCmd.Flags().String("image", "", "Path to a JPEG image to build the quiz from")
	quizCmd.Flags().Bool("json", false, "Print the quiz as JSON")
	quizCmd.Flags().Bool("play", false, "Answer the quiz interactively and get a score")
}
