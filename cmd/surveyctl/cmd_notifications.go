package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sngm3741/salon-survey-services/api/internal/config"
	mongorepo "github.com/sngm3741/salon-survey-services/api/internal/infrastructure/mongo"
)

var pendingLimit int

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Inspect undelivered notifications and submissions",
}

var notificationsPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List failed notifications waiting for a retry",
	Args:  cobra.NoArgs,
	RunE:  runNotificationsPending,
}

func init() {
	notificationsPendingCmd.Flags().IntVar(&pendingLimit, "limit", 50, "表示件数の上限")
}

func runNotificationsPending(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return fmt.Errorf("MongoDB 接続に失敗しました: %w", err)
	}
	defer func() {
		_ = client.Disconnect(context.Background())
	}()

	repo := mongorepo.NewFailedNotificationRepository(client.Database(cfg.MongoDatabase), cfg.FailedNotificationCollection)
	docs, err := repo.Pending(ctx, pendingLimit)
	if err != nil {
		return fmt.Errorf("通知失敗データの取得に失敗しました: %w", err)
	}
	return printPending(cmd, docs)
}

func printPending(cmd *cobra.Command, docs []mongorepo.FailedNotificationDocument) error {
	if len(docs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "再送待ちの通知はありません")
		return nil
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTARGET\tATTEMPTS\tCREATED\tERROR")
	for _, doc := range docs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			doc.ID.Hex(), doc.Target, doc.Attempts, doc.CreatedAt.Format(time.RFC3339), doc.Error)
	}
	return w.Flush()
}
