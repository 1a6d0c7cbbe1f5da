package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mock-interview/internal/api"
	"mock-interview/internal/config"
	"mock-interview/internal/events"
	"mock-interview/internal/interviewer"
	"mock-interview/internal/metrics"
	"mock-interview/internal/quota"
	"mock-interview/internal/resume"
	"mock-interview/internal/scheduler"
	"mock-interview/internal/scoring"
	"mock-interview/internal/server"
	"mock-interview/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the interview HTTP API",
	Long: `Run the interview HTTP API.

Configuration comes from environment variables (a .env file is loaded
when present) and from the interview profile YAML named by
INTERVIEW_CONFIG.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Println("🚀 Starting mock interview server...")

	appCfg, err := config.LoadAppConfig()
	if err != nil {
		return err
	}
	if err := appCfg.OpenAI.ValidateConfig(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	profile, err := config.LoadOrDefault(appCfg.Profile)
	if err != nil {
		return fmt.Errorf("loading interview profile: %w", err)
	}

	st, err := openStore(appCfg)
	if err != nil {
		return err
	}
	defer st.Close()
	fmt.Printf("✅ Session store ready (%s)\n", appCfg.Store.Driver)

	m := metrics.NewMetrics()
	turns := interviewer.New(api.NewOpenAIClient(appCfg.OpenAI), profile, m)
	fmt.Printf("✅ AI interviewer ready %v\n", appCfg.OpenAI.GetModelInfo())

	publisher, err := events.Open(appCfg.Events.RabbitMQURL, appCfg.Events.Exchange)
	if err != nil {
		log.Printf("⚠️ Session events disabled: %v", err)
		publisher = events.Noop{}
	}
	defer publisher.Close()

	var resumes session.ResumeSource
	if appCfg.R2.Enabled() {
		fetcher, err := resume.NewR2Fetcher(cmd.Context(), appCfg.R2)
		if err != nil {
			log.Printf("⚠️ Resume uploads disabled: %v", err)
		} else {
			resumes = fetcher
			fmt.Println("✅ Resume bucket configured")
		}
	}

	ctrl := session.New(session.Deps{
		Store:   st,
		Quota:   quota.New(st, appCfg.Quota.Monthly, appCfg.Quota.Location()),
		Turns:   turns,
		Scoring: scoring.NewAggregator(profile.Scoring),
		Config:  profile,
		Metrics: m,
		Events:  publisher,
		Resumes: resumes,
		TTL:     appCfg.Store.SessionTTL,
	})

	sched := scheduler.New(appCfg.Purge.Schedule)
	sched.SetPurgeFunction(st.PurgeExpired)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting purge scheduler: %w", err)
	}
	defer sched.Stop()

	fmt.Println("\n📋 Configuration:")
	fmt.Printf("• Question counts: %v\n", profile.GetQuestionCounts())
	fmt.Printf("• Free sessions per month: %d (%s)\n", appCfg.Quota.Monthly, appCfg.Quota.Timezone)
	fmt.Printf("• Session TTL: %s\n", appCfg.Store.SessionTTL)

	srv := server.New(ctrl, m, appCfg.Server)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Printf("🛑 Received %s, shutting down...", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), appCfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Println("✅ Server stopped")
	return nil
}
