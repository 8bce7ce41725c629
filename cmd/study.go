package cmd

import (
	"fmt"
	"strings"

	"github.com/abhisek/edusarthi/internal/prompt"
	"github.com/abhisek/edusarthi/internal/tutor"
	"github.com/spf13/cobra"
)

var notesCmd = &cobra.Command{
	Use:   "notes [topic]",
	Short: "Generate study notes for a topic or an image",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTextTask(cmd, args, prompt.TaskNotes)
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Get a step-by-step answer to a question",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTextTask(cmd, args, prompt.TaskQnA)
	},
}

// taskRequest reads the topic from args and the image from --image, and
// rejects a request that has neither.
func taskRequest(cmd *cobra.Command, args []string, kind prompt.Task, a *app) (tutor.TaskRequest, error) {
	topic := strings.TrimSpace(strings.Join(args, " "))
	image, err := readImage(cmd)
	if err != nil {
		return tutor.TaskRequest{}, err
	}
	if err := prompt.CheckInput(topic, image); err != nil {
		return tutor.TaskRequest{}, fmt.Errorf("%w: pass a topic or --image", err)
	}
	return tutor.TaskRequest{
		Kind:     kind,
		Topic:    topic,
		Image:    image,
		Language: a.lang,
		Level:    a.level,
	}, nil
}

func runTextTask(cmd *cobra.Command, args []string, kind prompt.Task) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	req, err := taskRequest(cmd, args, kind, a)
	if err != nil {
		return err
	}

	svc := tutor.NewService(a.provider, a.cfg.Tutor, a.log)
	var res tutor.Result
	if kind == prompt.TaskQnA {
		res = svc.Answer(cmd.Context(), req)
	} else {
		res = svc.Notes(cmd.Context(), req)
	}

	if res.Err != nil && !res.Fallback {
		return res.Err
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Text)
	if res.Fallback {
		fmt.Fprintln(cmd.ErrOrStderr(), "error:", res.Err)
	}
	return nil
}

func init() {
	notesCmd.Flags().String("image", "", "Path to a JPEG image to study from")
	askCmd.Flags().String("image", "", "Path to a JPEG image of the question")
}
