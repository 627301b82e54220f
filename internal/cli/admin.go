package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/quizdrill/quizdrill/internal/app"
	"github.com/quizdrill/quizdrill/internal/domain"
)

// apiClient speaks the parent-dashboard HTTP API on behalf of the admin
// commands. It logs in with --username/--password unless --token is given.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
	verbose bool
	dryRun  bool
}

func newAPIClient(ctx context.Context) (*apiClient, error) {
	c := &apiClient{
		baseURL: strings.TrimRight(apiURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		verbose: verbose,
		dryRun:  dryRun,
	}
	switch {
	case token != "":
		c.token = token
	case username != "":
		if err := c.login(ctx, username, password); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("authentication required: pass --token or --username/--password")
	}
	return c, nil
}

func (c *apiClient) login(ctx context.Context, username, password string) error {
	var resp struct {
		Token string `json:"token"`
	}
	payload := map[string]string{"username": username, "password": password}
	if err := c.send(ctx, http.MethodPost, "/auth/login", payload, &resp); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	c.token = resp.Token
	return nil
}

// do performs a request, honouring --dry-run for anything that mutates.
func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	if c.dryRun && method != http.MethodGet {
		data, _ := json.Marshal(body)
		fmt.Fprintf(os.Stderr, "dry-run: %s %s %s\n", method, path, data)
		return nil
	}
	return c.send(ctx, method, path, body, out)
}

func (c *apiClient) send(ctx context.Context, method, path string, body, out any) error {
	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.verbose {
		fmt.Fprintf(os.Stderr, "> %s %s\n", method, c.baseURL+path)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if c.verbose {
		fmt.Fprintf(os.Stderr, "< %s\n", resp.Status)
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Message != "" {
			return fmt.Errorf("%s: %s", resp.Status, apiErr.Message)
		}
		return fmt.Errorf("request failed: %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func newUpdateMultiplierCmd() *cobra.Command {
	var user, quizType string
	var value float64

	cmd := &cobra.Command{
		Use:   "update-multiplier",
		Short: "Set a user's score multiplier for one quiz type",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := domain.ParseQuizType(quizType); err != nil {
				return err
			}
			client, err := newAPIClient(cmd.Context())
			if err != nil {
				return err
			}
			body := map[string]any{"quizType": quizType, "multiplier": value}
			if err := client.do(cmd.Context(), http.MethodPatch, "/parent/users/"+url.PathEscape(user)+"/multiplier", body, nil); err != nil {
				return err
			}
			if !client.dryRun {
				fmt.Printf("multiplier for %s on %s set to %v\n", user, quizType, value)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id")
	cmd.Flags().StringVar(&quizType, "quiz-type", "", "quiz type slug (e.g. simple-math)")
	cmd.Flags().Float64Var(&value, "value", 1, "multiplier value (>= 0)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("quiz-type")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func newUpdateCreditsCmd() *cobra.Command {
	var user string
	var earned, claimed, earnedDelta, claimedDelta int

	cmd := &cobra.Command{
		Use:   "update-credits",
		Short: "Set or adjust a user's credit balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := app.CreditPatch{}
			if cmd.Flags().Changed("earned") {
				patch.Earned = &earned
			}
			if cmd.Flags().Changed("claimed") {
				patch.Claimed = &claimed
			}
			if cmd.Flags().Changed("earned-delta") {
				patch.EarnedDelta = &earnedDelta
			}
			if cmd.Flags().Changed("claimed-delta") {
				patch.ClaimedDelta = &claimedDelta
			}
			if patch == (app.CreditPatch{}) {
				return fmt.Errorf("nothing to update: pass --earned, --claimed, --earned-delta or --claimed-delta")
			}

			client, err := newAPIClient(cmd.Context())
			if err != nil {
				return err
			}
			var credits domain.Credits
			if err := client.do(cmd.Context(), http.MethodPatch, "/parent/users/"+url.PathEscape(user)+"/credits", patch, &credits); err != nil {
				return err
			}
			if !client.dryRun {
				fmt.Printf("credits for %s: earned=%d claimed=%d\n", user, credits.Earned, credits.Claimed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id")
	cmd.Flags().IntVar(&earned, "earned", 0, "set earned credits")
	cmd.Flags().IntVar(&claimed, "claimed", 0, "set claimed credits")
	cmd.Flags().IntVar(&earnedDelta, "earned-delta", 0, "adjust earned credits by this amount")
	cmd.Flags().IntVar(&claimedDelta, "claimed-delta", 0, "adjust claimed credits by this amount")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newListUsersCmd() *cobra.Command {
	var search string
	var limit int
	var showMultipliers, showCredits bool

	cmd := &cobra.Command{
		Use:   "list-users",
		Short: "List users with their totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient(cmd.Context())
			if err != nil {
				return err
			}

			query := url.Values{}
			if search != "" {
				query.Set("search", search)
			}
			if limit > 0 {
				query.Set("limit", strconv.Itoa(limit))
			}
			path := "/parent/users"
			if len(query) > 0 {
				path += "?" + query.Encode()
			}

			var resp struct {
				Users []domain.UserSummary `json:"users"`
			}
			if err := client.do(cmd.Context(), http.MethodGet, path, nil, &resp); err != nil {
				return err
			}
			for _, u := range resp.Users {
				fmt.Printf("%s\ttotal=%.1f\tsessions=%d\n", u.UserID, u.TotalScore, u.Sessions)
				if showMultipliers {
					printMultipliers(u.Multipliers)
				}
				if showCredits && u.Credits != nil {
					fmt.Printf("\tcredits: earned=%d claimed=%d\n", u.Credits.Earned, u.Credits.Claimed)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "filter user ids by substring")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of users to return")
	cmd.Flags().BoolVar(&showMultipliers, "show-multipliers", false, "include per-quiz-type multipliers")
	cmd.Flags().BoolVar(&showCredits, "show-credits", false, "include credit balances")
	return cmd
}

func newGetUserCmd() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "get-user",
		Short: "Show one user's totals, multipliers and credits",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient(cmd.Context())
			if err != nil {
				return err
			}
			var summary domain.UserSummary
			if err := client.do(cmd.Context(), http.MethodGet, "/parent/users/"+url.PathEscape(user), nil, &summary); err != nil {
				return err
			}
			fmt.Printf("%s\ttotal=%.1f\tsessions=%d\n", summary.UserID, summary.TotalScore, summary.Sessions)
			printMultipliers(summary.Multipliers)
			if summary.Credits != nil {
				fmt.Printf("\tcredits: earned=%d claimed=%d\n", summary.Credits.Earned, summary.Credits.Claimed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func printMultipliers(multipliers map[domain.QuizType]float64) {
	types := make([]string, 0, len(multipliers))
	for t := range multipliers {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Printf("\t%s: x%v\n", t, multipliers[domain.QuizType(t)])
	}
}
