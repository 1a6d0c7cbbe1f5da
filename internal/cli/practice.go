package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"mock-interview/internal/client"
	"mock-interview/internal/executor"
	"mock-interview/internal/interview"
	"mock-interview/internal/resume"
)

var practiceCmd = &cobra.Command{
	Use:   "practice",
	Short: "Practice an interview in the terminal",
	Long: `Practice an interview in the terminal against a running server.

Type an answer and press enter to submit it. Commands:
  /skip   skip the current question
  /end    end the interview early and get the scorecard
  /retry  resend the last answer after a failed evaluation`,
	RunE: runPractice,
}

var (
	serverFlag    string
	userFlag      string
	industryFlag  string
	positionFlag  string
	typeFlag      string
	questionsFlag int
	resumeKeyFlag string
	resumeMime    string
	outDirFlag    string
)

func init() {
	practiceCmd.Flags().StringVar(&serverFlag, "server", "http://localhost:8080", "Interview API base URL")
	practiceCmd.Flags().StringVar(&userFlag, "user", os.Getenv("USER"), "User id sent as X-User-ID")
	practiceCmd.Flags().StringVar(&industryFlag, "industry", "", "Target industry (required)")
	practiceCmd.Flags().StringVar(&positionFlag, "position", "", "Target position (required)")
	practiceCmd.Flags().StringVar(&typeFlag, "type", string(interview.TypeFirst), "Interview stage: first, second or final")
	practiceCmd.Flags().IntVar(&questionsFlag, "questions", 5, "Number of questions")
	practiceCmd.Flags().StringVar(&resumeKeyFlag, "resume-key", "", "Object key of an uploaded resume")
	practiceCmd.Flags().StringVar(&resumeMime, "resume-mime", resume.MimePDF, "MIME type of the uploaded resume")
	practiceCmd.Flags().StringVar(&outDirFlag, "out", "", "Directory to save the final scorecard JSON")
}

func runPractice(cmd *cobra.Command, args []string) error {
	req := client.StartRequest{
		Settings: interview.Settings{
			Industry:      industryFlag,
			Position:      positionFlag,
			InterviewType: interview.InterviewType(typeFlag),
			QuestionCount: questionsFlag,
		},
	}
	if resumeKeyFlag != "" {
		req.ResumeFile = &resume.File{Key: resumeKeyFlag, MimeType: resumeMime}
	}

	ex := executor.New(client.New(serverFlag, userFlag), executor.TextOnly{})
	p := &practice{ex: ex, in: bufio.NewScanner(os.Stdin), out: cmd.OutOrStdout(), outDir: outDirFlag}
	return p.run(cmd.Context(), req)
}

// practice drives the executor from line-based input
type practice struct {
	ex     *executor.Executor
	in     *bufio.Scanner
	out    io.Writer
	outDir string
}

func (p *practice) run(ctx context.Context, req client.StartRequest) error {
	if err := p.ex.Begin(ctx, req); err != nil {
		if errors.Is(err, interview.ErrQuotaExceeded) {
			fmt.Fprintln(p.out, "🚫 No free sessions remain this month. Please come back next month.")
		}
		return err
	}

	v := p.ex.View()
	fmt.Fprintf(p.out, "🎯 %s (%s)\n%s\n", v.Interviewer.Name, v.Interviewer.Role, v.OpeningMessage)

	for {
		v := p.ex.View()
		var err error

		switch v.State {
		case executor.StateReadyToAnswer:
			p.printQuestion(v)
			err = p.answer(ctx, true)
		case executor.StateListening:
			err = p.answer(ctx, false)
		case executor.StateFeedback:
			p.printFeedback(v.Feedback)
			err = p.afterFeedback(ctx, v.Feedback)
		case executor.StateComplete:
			return p.printResult(v)
		default:
			return fmt.Errorf("unexpected state %s", v.State)
		}

		switch {
		case err == nil:
		case errors.Is(err, interview.ErrEmptyAnswer):
			fmt.Fprintln(p.out, "⚠️ The answer is empty, please type something.")
		case errors.Is(err, interview.ErrUpstream):
			fmt.Fprintf(p.out, "❌ The interviewer is unavailable: %v\n", err)
			if p.ex.State() != executor.StateFeedback {
				fmt.Fprintln(p.out, "Press enter to try again.")
			}
		default:
			return err
		}
	}
}

// answer reads one line in ready-to-answer or listening state
func (p *practice) answer(ctx context.Context, begin bool) error {
	line, ok := p.readLine("> ")
	if !ok {
		return p.ex.End(ctx)
	}

	switch line {
	case "/skip":
		return p.ex.Skip(ctx)
	case "/end":
		return p.ex.End(ctx)
	}

	if begin {
		if err := p.ex.StartAnswering(ctx); err != nil {
			return err
		}
	}
	return p.ex.SubmitAnswer(ctx, line)
}

func (p *practice) afterFeedback(ctx context.Context, fb *executor.Feedback) error {
	prompt := "[enter] next question, /end to finish: "
	if fb != nil && fb.Err != nil {
		prompt = "/retry to resend, [enter] next question, /end to finish: "
	}
	line, ok := p.readLine(prompt)
	if !ok {
		return p.ex.End(ctx)
	}

	switch line {
	case "/retry":
		return p.ex.RetryEvaluation(ctx)
	case "/end":
		return p.ex.End(ctx)
	default:
		return p.ex.NextQuestion(ctx)
	}
}

func (p *practice) readLine(prompt string) (string, bool) {
	fmt.Fprint(p.out, prompt)
	if !p.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.in.Text()), true
}

func (p *practice) printQuestion(v executor.View) {
	fmt.Fprintln(p.out)
	if v.Transition != "" {
		fmt.Fprintln(p.out, v.Transition)
	}
	fmt.Fprintf(p.out, "❓ Question %d/%d\n%s\n", v.QuestionIndex+1, v.QuestionCount, v.Question)
}

func (p *practice) printFeedback(fb *executor.Feedback) {
	if fb == nil {
		return
	}
	if fb.Err != nil || fb.Evaluation == nil {
		fmt.Fprintln(p.out, "⚠️ This answer could not be scored.")
		return
	}
	ev := fb.Evaluation
	fmt.Fprintf(p.out, "📝 Score: %d\n%s\n", ev.Score, ev.ShortFeedback)
	for _, g := range ev.GoodPoints {
		fmt.Fprintf(p.out, "  ✅ %s\n", g)
	}
	for _, i := range ev.ImprovementPoints {
		fmt.Fprintf(p.out, "  💡 %s\n", i)
	}
}

func (p *practice) printResult(v executor.View) error {
	if v.Result == nil || v.Result.Summary == nil {
		fmt.Fprintln(p.out, "Interview ended.")
		return nil
	}
	s := v.Result.Summary

	fmt.Fprintf(p.out, "\n🏁 Total score: %d (grade %s, pass likelihood %s)\n", s.TotalScore, s.Grade, s.PassLikelihood)
	for _, c := range interview.Categories() {
		fmt.Fprintf(p.out, "  • %-13s %3d\n", c, s.OverallScores[c])
	}
	fmt.Fprintf(p.out, "Answered %d, skipped %d\n\n%s\n", s.AnsweredCount, s.SkippedCount, s.OverallFeedback)
	printList(p.out, "Strengths", s.Strengths)
	printList(p.out, "Improvements", s.Improvements)
	printList(p.out, "Next steps", s.NextSteps)

	if v.QuotaExhausted {
		fmt.Fprintln(p.out, "\n🚫 No free sessions remain this month.")
	}

	if p.outDir == "" {
		return nil
	}
	return saveResult(p.outDir, v.Result)
}

func printList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(w, "  - %s\n", it)
	}
}

func saveResult(dir string, sess *interview.Session) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("summary_%s.json", sess.ID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("saving result: %w", err)
	}
	fmt.Printf("💾 Scorecard saved to %s\n", path)
	return nil
}
