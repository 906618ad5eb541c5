package bootstrap

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// PrintSeedResult writes a banner describing a seeding run that created the
// default user. Nothing is printed for skipped runs.
func PrintSeedResult(w io.Writer, cfg Config, result *SeedResult) {
	if result == nil || !result.UserCreated {
		return
	}

	border := strings.Repeat("=", 80)
	fmt.Fprintf(w, "\n%s\nBOOTSTRAP COMPLETED\n%s\n", border, border)

	fmt.Fprintln(w, "\nDefault user:")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	fmt.Fprintf(w, "  Email:     %s\n", cfg.Email)
	fmt.Fprintf(w, "  User ID:   %s\n", result.UserID)
	if result.RoleAssigned {
		fmt.Fprintf(w, "  Role:      %s\n", cfg.AdminRoleName)
	} else {
		fmt.Fprintln(w, "  Role:      (not assigned, see errors below)")
	}

	fmt.Fprintln(w, "\nSecurity reminders:")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	fmt.Fprintln(w, "  * Change the default password after the first login")
	fmt.Fprintln(w, "  * Remove BOOTSTRAP_PASSWORD from the environment once seeded")

	if len(result.Errors) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		fmt.Fprintln(w, strings.Repeat("-", 80))
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  * %s\n", e)
		}
	}
	fmt.Fprintf(w, "%s\n\n", border)
}

// LogSeedSummary logs a concise summary without credentials.
func LogSeedSummary(result *SeedResult) {
	if result == nil {
		return
	}
	slog.Info("Bootstrap summary",
		"outcome", result.Outcome(),
		"user_created", result.UserCreated,
		"role_created", result.RoleCreated,
		"role_assigned", result.RoleAssigned,
		"user_id", result.UserID,
		"errors", len(result.Errors),
	)
}
