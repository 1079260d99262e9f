package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/book-collection/internal/client"
	"github.com/magabrotheeeer/book-collection/internal/config"
	"github.com/magabrotheeeer/book-collection/internal/filter"
	"github.com/magabrotheeeer/book-collection/internal/lib/jwt"
	"github.com/magabrotheeeer/book-collection/internal/models"
)

var (
	apiURL   string
	apiToken string
	timeZone string

	search    string
	genres    []string
	minRating float64
	minPages  int
	maxPages  int
	page      int
	pageSize  int

	afterCheckout bool
	localStats    bool

	configPath string
	tokenEmail string
	tokenTTL   time.Duration

	rootCmd = &cobra.Command{
		Use:          "bookctl",
		Short:        "Manage a book collection from the terminal",
		SilenceUsage: true,
	}

	booksCmd = &cobra.Command{
		Use:   "books",
		Short: "List and manage books",
	}
	booksListCmd = &cobra.Command{
		Use:   "list",
		Short: "List books, optionally filtered",
		Args:  cobra.NoArgs,
		RunE:  runBooksList,
	}
	booksDeletedCmd = &cobra.Command{
		Use:   "deleted",
		Short: "List books deleted in the last 30 days",
		Args:  cobra.NoArgs,
		RunE:  runBooksDeleted,
	}
	booksRemoveCmd = &cobra.Command{
		Use:   "rm [id]",
		Short: "Delete a book",
		Args:  cobra.ExactArgs(1),
		RunE:  runBooksRemove,
	}
	booksRestoreCmd = &cobra.Command{
		Use:   "restore [id]",
		Short: "Restore a deleted book",
		Args:  cobra.ExactArgs(1),
		RunE:  runBooksRestore,
	}

	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show reading statistics",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}

	goalCmd = &cobra.Command{
		Use:   "goal",
		Short: "Show reading goal progress and history summary",
		Args:  cobra.NoArgs,
		RunE:  runGoal,
	}

	subscriptionCmd = &cobra.Command{
		Use:   "subscription",
		Short: "Resolve the subscription tier",
		Args:  cobra.NoArgs,
		RunE:  runSubscription,
	}

	tokenCmd = &cobra.Command{
		Use:   "token [subject]",
		Short: "Mint a development token signed with the configured HS256 secret",
		Args:  cobra.ExactArgs(1),
		RunE:  runToken,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", envOr("BOOKCTL_API_URL", "http://localhost:8080"), "API base URL")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", os.Getenv("BOOKCTL_TOKEN"), "bearer token")
	rootCmd.PersistentFlags().StringVar(&timeZone, "tz", envOr("BOOKCTL_TZ", os.Getenv("TZ")), "IANA time zone for day boundaries")

	booksListCmd.Flags().StringVarP(&search, "query", "q", "", "search in title and author")
	booksListCmd.Flags().StringSliceVarP(&genres, "genre", "g", nil, "genre filter, repeatable")
	booksListCmd.Flags().Float64Var(&minRating, "min-rating", 0, "minimum rating")
	booksListCmd.Flags().IntVar(&minPages, "min-pages", 0, "minimum page count")
	booksListCmd.Flags().IntVar(&maxPages, "max-pages", 0, "maximum page count, 0 for no limit")
	booksListCmd.Flags().IntVar(&page, "page", 1, "page number")
	booksListCmd.Flags().IntVar(&pageSize, "page-size", filter.DefaultPageSize, "books per page")

	statsCmd.Flags().BoolVar(&localStats, "local", false, "compute statistics from the downloaded collection")

	subscriptionCmd.Flags().BoolVar(&afterCheckout, "after-checkout", false, "poll until a fresh payment is confirmed")

	tokenCmd.Flags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "path to the server configuration")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "email claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")

	booksCmd.AddCommand(booksListCmd, booksDeletedCmd, booksRemoveCmd, booksRestoreCmd)
	rootCmd.AddCommand(booksCmd, statsCmd, goalCmd, subscriptionCmd, tokenCmd)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newClient() *client.Client {
	return client.New(apiURL, client.StaticToken(apiToken)).WithTimeZone(timeZone)
}

// loadStore downloads the whole collection into a client-side store.
func loadStore(ctx context.Context, c *client.Client) (*client.Store, error) {
	store := client.NewStore(c)
	if _, err := store.Refresh(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func clock() (time.Time, error) {
	if timeZone == "" {
		return time.Now(), nil
	}
	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time zone %q: %w", timeZone, err)
	}
	return time.Now().In(loc), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runBooksList(cmd *cobra.Command, _ []string) error {
	store, err := loadStore(cmd.Context(), newClient())
	if err != nil {
		return err
	}

	view := filter.NewView(pageSize)
	view.SetCriteria(filter.Criteria{
		Search:    search,
		Genres:    genres,
		MinRating: minRating,
		MinPages:  minPages,
		MaxPages:  maxPages,
	})
	view.SetPage(page)
	res := store.Filtered(view)

	w := cmd.OutOrStdout()
	printBooks(w, res.Books)
	_, err = fmt.Fprintf(w, "page %d of %d, %d books\n", res.Page, max(res.TotalPages, 1), res.Total)
	return err
}

func runBooksDeleted(cmd *cobra.Command, _ []string) error {
	books, err := newClient().RecentlyDeleted(cmd.Context())
	if err != nil {
		return err
	}
	printBooks(cmd.OutOrStdout(), books)
	return nil
}

func runBooksRemove(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	store := client.NewStore(newClient())
	if err := store.Remove(cmd.Context(), id); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "book %d deleted, %d books left\n", id, len(store.Books()))
	return err
}

func runBooksRestore(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	store := client.NewStore(newClient())
	if err := store.Restore(cmd.Context(), id); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "book %d restored, %d books in collection\n", id, len(store.Books()))
	return err
}

func runStats(cmd *cobra.Command, _ []string) error {
	c := newClient()
	if !localStats {
		res, err := c.Stats(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	}

	now, err := clock()
	if err != nil {
		return err
	}
	store, err := loadStore(cmd.Context(), c)
	if err != nil {
		return err
	}

	resolver := client.NewResolver(c)
	if _, err := resolver.Resolve(cmd.Context(), apiToken != "", false); err != nil {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "subscription check failed, showing free statistics: %v\n", err)
	}
	var excluded map[time.Weekday]bool
	if resolver.Premium() {
		settings, err := c.StreakSettings(cmd.Context())
		if err != nil {
			return err
		}
		excluded = settings.ExcludedWeekdays()
	}
	return printJSON(cmd.OutOrStdout(), store.Stats(now, resolver.Premium(), excluded))
}

func runGoal(cmd *cobra.Command, _ []string) error {
	c := newClient()
	progress, err := c.GoalProgress(cmd.Context())
	if err != nil {
		return err
	}
	summary, err := c.GoalStats(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), map[string]any{
		"progress": progress,
		"stats":    summary,
	})
}

func runSubscription(cmd *cobra.Command, _ []string) error {
	resolver := client.NewResolver(newClient())
	state, err := resolver.Resolve(cmd.Context(), apiToken != "", afterCheckout)
	if _, printErr := fmt.Fprintln(cmd.OutOrStdout(), state); printErr != nil {
		return printErr
	}
	return err
}

func runToken(cmd *cobra.Command, args []string) error {
	if configPath == "" {
		return errors.New("--config or CONFIG_PATH is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.JWTSecretKey == "" {
		return errors.New("auth.jwt_secret_key is not configured")
	}

	token, err := jwt.NewMaker(cfg.JWTSecretKey, cfg.Issuer, cfg.Audience, tokenTTL).GenerateToken(args[0], tokenEmail)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
	return err
}

func printBooks(w io.Writer, books []models.Book) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tGENRE\tRATING\tPAGES")
	for _, b := range books {
		rating := "-"
		if b.Rating != nil {
			rating = fmt.Sprintf("%.1f", *b.Rating)
		}
		pages := "-"
		if b.PageCount != nil {
			pages = fmt.Sprint(*b.PageCount)
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", b.ID, b.Title, b.Author, b.Genre, rating, pages)
	}
	_ = tw.Flush()
}

func parseID(s string) (int64, error) {
	var id int64
	if _, err := fmt.Sscan(s, &id); err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid book id %q", s)
	}
	return id, nil
}
