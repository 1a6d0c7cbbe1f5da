package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"mock-interview/internal/config"
	"mock-interview/internal/quota"
)

var quotaCmd = &cobra.Command{
	Use:   "quota <user-id>",
	Short: "Show the monthly free-session quota of a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuota,
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired interview sessions",
	Long: `Delete expired interview sessions from the store.

Expired sessions are already invisible to the API; purge reclaims their
rows. The serve command runs the same purge on PURGE_SCHEDULE.`,
	RunE: runPurge,
}

func runQuota(cmd *cobra.Command, args []string) error {
	appCfg, err := config.LoadAppConfig()
	if err != nil {
		return err
	}
	st, err := openStore(appCfg)
	if err != nil {
		return err
	}
	defer st.Close()

	status, err := quota.New(st, appCfg.Quota.Monthly, appCfg.Quota.Location()).Status(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Printf("User %s, period %s: %d of %d free sessions remaining\n", args[0], status.Period, status.Remaining, status.Limit)
	return nil
}

func runPurge(cmd *cobra.Command, args []string) error {
	appCfg, err := config.LoadAppConfig()
	if err != nil {
		return err
	}
	st, err := openStore(appCfg)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := st.PurgeExpired(cmd.Context())
	if err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}
	fmt.Printf("Removed %d expired session(s).\n", n)
	return nil
}
