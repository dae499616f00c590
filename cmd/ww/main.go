package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	cl "wealthwars/internal/cli"
	"wealthwars/internal/config"
	"wealthwars/internal/syncq"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	if cfg.NoColor {
		color.NoColor = true
	}
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "ww",
		Short:        "Wealth Wars CLI client",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&apiBase, "api", apiBase, "game server base URL")

	root.AddCommand(
		newRegisterCmd(&apiBase),
		newLogoutCmd(),
		newCatalogCmd(&apiBase),
		newMeCmd(&apiBase),
		newBuyCmd(&apiBase),
		newActivateCmd(&apiBase),
		newMaintainCmd(&apiBase),
		newSlotCmd(&apiBase),
		newTierCmd(&apiBase),
		newDefendCmd(&apiBase),
		newEligibilityCmd(&apiBase),
		newQuoteCmd(&apiBase),
		newAttackCmd(&apiBase),
		newLeaderboardCmd(&apiBase),
		newSyncCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string, playerID string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"), playerID)
}

// sessionClient loads the saved session and returns a client acting as it.
func sessionClient(apiBase *string) (cl.Session, *cl.Client, error) {
	sess, err := cl.LoadSession()
	if err != nil {
		return cl.Session{}, nil, fmt.Errorf("register first: %w", err)
	}
	return sess, newClient(apiBase, sess.PlayerID), nil
}

func requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 30*time.Second)
}

func newRegisterCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "register [username]",
		Short: "Create a player and remember it locally",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := ""
			if len(args) > 0 {
				username = strings.TrimSpace(args[0])
			} else {
				var err error
				username, err = promptRequired("Username")
				if err != nil {
					return err
				}
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			out, err := newClient(apiBase, "").Register(ctx, username)
			if err != nil {
				return err
			}
			id, _ := out["id"].(string)
			if err := cl.SaveSession(cl.Session{PlayerID: id, Username: username}); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Registered %s (%s). Session saved.", username, id))
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the local player",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Logged out.")
			return nil
		},
	}
}

func newCatalogCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List every business and its ability",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			out, err := newClient(apiBase, "").Catalog(ctx)
			if err != nil {
				return err
			}
			return renderCatalog(out)
		},
	}
}

func newMeCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show your portfolio, slots and synergies",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := sessionClient(apiBase)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			out, err := client.Me(ctx)
			if err != nil {
				return err
			}
			return renderProfile(out)
		},
	}
}

func newBuyCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "buy <business_id>",
		Short: "Purchase a business with wealth",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, client, err := sessionClient(apiBase)
			if err != nil {
				return err
			}
			id := strings.TrimSpace(args[0])
			ctx, cancel := requestContext(cmd)
			defer cancel()
			if _, err := client.Buy(ctx, id); err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:   "POST",
					Path:     cl.BuyPath(id),
					PlayerID: sess.PlayerID,
				})
			}
			printSuccess(fmt.Sprintf("Purchased %s.", id))
			return nil
		},
	}
}

func newActivateCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "activate <business_id>",
		Short: "Activate a business ability",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, client, err := sessionClient(apiBase)
			if err != nil {
				return err
			}
			id := strings.TrimSpace(args[0])
			ctx, cancel := requestContext(cmd)
			defer cancel()
			out, err := client.Activate(ctx, id)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:   "POST",
					Path:     cl.ActivatePath(id),
					PlayerID: sess.PlayerID,
				})
			}
			return renderActivation(out, id)
		},
	}
}

func newMaintainCmd(apiBase *string) *cobra.Command {
	var action string
	cmd := &cobra.Command{
		Use:   "maintain <business_id>",
		Short: "Repair or upgrade a business (routine|major|upgrade|emergency)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, client, err := sessionClient(apiBase)
			if err != nil {
				return err
			}
			id := strings.TrimSpace(args[0])
			ctx, cancel := requestContext(cmd)
			defer cancel()
			out, err := client.Maintain(ctx, id, action)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:   "POST",
					Path:     cl.MaintainPath(id),
					Body:     map[string]any{"action": action},
					PlayerID: sess.PlayerID,
				})
			}
			return renderMaintenance(out)
		},
	}
	cmd.Flags().StringVar(&action, "action", "routine", "maintenance action")
	return cmd
}

func newSlotCmd(apiBase *string) *cobra.Command {
	slot := &cobra.Command{
		Use:   "slot",
		Short: "Manage active business slots",
	}
	slot.AddCommand(&cobra.Command{
		Use:   "assign <slot> <business_id>",
		Short: "Put a business in a slot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, client, err := sessionClient(apiBase)
			if err != nil {
				return err
			}
			slotID, err := slotArg(args[0])
			if err != nil {
				return err
			}
			id := strings.TrimSpace(args[1])
			ctx, cancel := requestContext(cmd)
			defer cancel()
			out, err := client.AssignSlot(ctx, slotID, id)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:   "PUT",
					Path:     cl.SlotPath(slotID),
					Body:     map[string]any{"business_id": id},
					PlayerID: sess.PlayerID,
				})
			}
			return renderSlots(out)
		},
	})
	slot.AddCommand(&cobra.Command{
		Use:   "clear <slot>",
		Short: "Empty a slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, client, err := sessionClient(apiBase)
			if err != nil {
				return err
			}
			slotID, err := slotArg(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			out, err := client.ClearSlot(ctx, slotID)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:   "DELETE",
					Path:     cl.SlotPath(slotID),
					PlayerID: sess.PlayerID,
				})
			}
			return renderSlots(out)
		},
	})
	return slot
}

func newTierCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tier <novice|apprentice|skilled|expert|master>",
		Short: "Change work frequency tier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, client, err := sessionClient(apiBase)
			if err != nil {
				return err
			}
			tier := strings.ToLower(strings.TrimSpace(args[0]))
			ctx, cancel := requestContext(cmd)
			defer cancel()
			out, err := client.SetTier(ctx, tier)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:   "POST",
					Path:     "/v1/work-frequency",
					Body:     map[string]any{"tier": tier},
					PlayerID: sess.PlayerID,
				})
			}
			return renderSlots(out)
		},
	}
}

func newDefendCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "defend <credits>",
		Short: "Fund your defense reserve for the next attack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, client, err := sessionClient(apiBase)
			if err != nil {
				return err
			}
			amount, err := positiveInt(args[0], "amount")
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			out, err := client.Defend(ctx, amount)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:   "POST",
					Path:     "/v1/defense",
					Body:     map[string]any{"amount": amount},
					PlayerID: sess.PlayerID,
				})
			}
			printSuccess(fmt.Sprintf("Defense reserve now %v credits.", out["defense_reserve"]))
			return nil
		},
	}
}

func newEligibilityCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "eligibility [player_id]",
		Short: "Check whether a player can be attacked",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var playerID string
			if len(args) > 0 {
				playerID = strings.TrimSpace(args[0])
			} else {
				sess, err := cl.LoadSession()
				if err != nil {
					return fmt.Errorf("register first or pass a player id: %w", err)
				}
				playerID = sess.PlayerID
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			out, err := newClient(apiBase, "").Eligibility(ctx, playerID)
			if err != nil {
				return err
			}
			return renderEligibility(out, playerID)
		},
	}
}

func takeoverBody(args []string, currency string) (map[string]any, error) {
	body := map[string]any{
		"defender_id": strings.TrimSpace(args[0]),
		"business_id": strings.TrimSpace(args[1]),
		"currency":    strings.ToLower(strings.TrimSpace(currency)),
	}
	if len(args) > 2 {
		amount, err := positiveInt(args[2], "bid")
		if err != nil {
			return nil, err
		}
		body["amount"] = amount
	}
	return body, nil
}

func newQuoteCmd(apiBase *string) *cobra.Command {
	var currency string
	cmd := &cobra.Command{
		Use:   "quote <defender_id> <business_id> [bid]",
		Short: "Price a takeover without rolling",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := sessionClient(apiBase)
			if err != nil {
				return err
			}
			body, err := takeoverBody(args, currency)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			out, err := client.Quote(ctx, body)
			if err != nil {
				return err
			}
			return renderQuote(out)
		},
	}
	cmd.Flags().StringVar(&currency, "currency", "credits", "bid currency (credits|wealth)")
	return cmd
}

func newAttackCmd(apiBase *string) *cobra.Command {
	var currency string
	cmd := &cobra.Command{
		Use:   "attack <defender_id> <business_id> <bid>",
		Short: "Attempt a hostile takeover",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, client, err := sessionClient(apiBase)
			if err != nil {
				return err
			}
			body, err := takeoverBody(args, currency)
			if err != nil {
				return err
			}
			idem := uuid.NewString()
			ctx, cancel := requestContext(cmd)
			defer cancel()
			out, err := client.Attack(ctx, body, idem)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:         "POST",
					Path:           "/v1/takeovers",
					Body:           body,
					PlayerID:       sess.PlayerID,
					IdempotencyKey: idem,
				})
			}
			return renderTakeover(out)
		},
	}
	cmd.Flags().StringVar(&currency, "currency", "credits", "bid currency (credits|wealth)")
	return cmd
}

func newLeaderboardCmd(apiBase *string) *cobra.Command {
	var limit int
	var byWAR bool
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Top players by portfolio value plus wealth",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			client := newClient(apiBase, "")
			if byWAR {
				out, err := client.WARLeaderboard(ctx, limit)
				if err != nil {
					return err
				}
				return renderLeaderboard(out, "WAR Leaderboard")
			}
			out, err := client.Leaderboard(ctx, limit)
			if err != nil {
				return err
			}
			return renderLeaderboard(out, "Leaderboard")
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "rows to show")
	cmd.Flags().BoolVar(&byWAR, "war", false, "rank by wealth-to-asset ratio")
	return cmd
}

func newSyncCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay commands queued while offline",
		RunE: func(cmd *cobra.Command, args []string) error {
			queue, err := syncq.Load()
			if err != nil {
				return err
			}
			if len(queue) == 0 {
				printInfo("Sync queue is empty.")
				return nil
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			sent, remaining, errs := syncq.Replay(queue, func(q syncq.Command) error {
				_, err := newClient(apiBase, q.PlayerID).Do(ctx, q.Method, q.Path, q.Body, q.IdempotencyKey)
				return err
			})
			for i, q := range remaining {
				printError(fmt.Sprintf("Sync failed for %s %s: %v", q.Method, q.Path, errs[i]))
			}
			// Commands the server rejected will never succeed; drop them.
			kept := remaining[:0]
			for i, q := range remaining {
				if !cl.IsAPIError(errs[i]) {
					kept = append(kept, q)
				}
			}
			if err := syncq.Save(kept); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Sync complete: replayed=%d remaining=%d", sent, len(kept)))
			return nil
		},
	}
}

func queueOnNetworkError(err error, cmd syncq.Command) error {
	if err == nil {
		return nil
	}
	if cl.IsAPIError(err) {
		return err
	}
	if qerr := syncq.Push(cmd); qerr != nil {
		return fmt.Errorf("request failed and could not be queued: %v (queue: %w)", err, qerr)
	}
	printWarn(fmt.Sprintf("Server unreachable, queued %s %s. Run `ww sync` later.", cmd.Method, cmd.Path))
	return nil
}

func slotArg(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid slot %q", s)
	}
	return v, nil
}

func positiveInt(s, label string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s", label)
	}
	return v, nil
}
