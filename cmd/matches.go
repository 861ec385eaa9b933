package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jobradar/jobradar/internal/model"
	"github.com/jobradar/jobradar/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var matchesCmd = &cobra.Command{
	Use:   "matches",
	Short: "List a user's matches, best score first",
	Run: func(cmd *cobra.Command, _ []string) {
		listMatches(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchesCmd)

	matchesCmd.Flags().StringP("user", "u", "", "user id (required)")
	matchesCmd.Flags().StringP("profile", "p", "", "limit the listing to one profile id")
	matchesCmd.Flags().IntP("limit", "n", 20, "maximum number of matches to list")
	matchesCmd.MarkFlagRequired("user")
}

// matchView joins a ledger record with its posting for display.
type matchView struct {
	Score      int        `json:"score"`
	Title      string     `json:"title,omitempty"`
	Company    string     `json:"company,omitempty"`
	URL        string     `json:"url,omitempty"`
	ProfileID  string     `json:"profileId,omitempty"`
	Reasons    []string   `json:"reasons,omitempty"`
	Viewed     bool       `json:"viewed"`
	Saved      bool       `json:"saved"`
	Applied    bool       `json:"applied"`
	NotifiedAt *time.Time `json:"notifiedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func listMatches(cmd *cobra.Command) {
	ctx := context.Background()

	logger := newLogger()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		logger.Fatal("config is required")
	}

	pool, err := openPool(ctx, config)
	if err != nil {
		logger.Fatal("connecting to postgres", zap.Error(err))
	}
	defer pool.Close()

	userID := cmd.Flag("user").Value.String()
	profileID := cmd.Flag("profile").Value.String()
	limit, _ := cmd.Flags().GetInt("limit")

	records, err := store.NewMatchStore(pool, 0).ListByUser(ctx, userID, profileID, limit)
	if err != nil {
		logger.Fatal("listing matches", zap.Error(err))
	}

	if len(records) == 0 {
		logger.Info("no matches for user", zap.String("user_id", userID))
		return
	}

	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.PostingID)
	}

	postings, err := store.NewPostingStore(pool).ByIDs(ctx, ids)
	if err != nil {
		logger.Fatal("loading postings", zap.Error(err))
	}

	byID := make(map[string]*model.Posting, len(postings))
	for _, p := range postings {
		byID[p.ID] = p
	}

	views := make([]matchView, 0, len(records))
	for _, r := range records {
		v := matchView{
			Score:      r.Score,
			ProfileID:  r.ProfileID,
			Reasons:    r.Reasons,
			Viewed:     r.Viewed,
			Saved:      r.Saved,
			Applied:    r.Applied,
			NotifiedAt: r.NotifiedAt,
			CreatedAt:  r.CreatedAt,
		}
		if p := byID[r.PostingID]; p != nil {
			v.Title = p.Title
			v.Company = p.Company
			v.URL = p.URL
		}
		views = append(views, v)
	}

	pretty, _ := json.MarshalIndent(views, "", "  ")
	fmt.Println(string(pretty))
}
