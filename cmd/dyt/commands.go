package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/dyt-client/internal/app"
	"github.com/yourusername/dyt-client/internal/domain"
	"github.com/yourusername/dyt-client/internal/infrastructure"
	"github.com/yourusername/dyt-client/pkg/logger"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search for videos",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pick, _ := cmd.Flags().GetInt("pick")

		config, err := loadConfig()
		if err != nil {
			return err
		}
		s, err := openSession(config)
		if err != nil {
			return err
		}
		defer s.close()

		query := strings.Join(args, " ")
		if domain.Classify(query).IsDirect() {
			return fmt.Errorf("%q is a video reference, use 'dyt info' instead", query)
		}
		if err := s.controller.OnAnalyzeRequested(query); err != nil {
			return err
		}
		if pick > 0 {
			return s.controller.OnSearchResultSelected(pick - 1)
		}
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info [url or video id]",
	Short: "Show video or playlist details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}
		s, err := openSession(config)
		if err != nil {
			return err
		}
		defer s.close()

		return s.controller.OnAnalyzeRequested(args[0])
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download [url or video id]",
	Short: "Download a video or a whole playlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		audio, _ := cmd.Flags().GetBool("audio")
		video, _ := cmd.Flags().GetBool("video")
		quality, _ := cmd.Flags().GetString("quality")
		trimStart, _ := cmd.Flags().GetString("trim-start")
		trimEnd, _ := cmd.Flags().GetString("trim-end")
		output, _ := cmd.Flags().GetString("output")

		formatType, err := resolveFormat(format, audio, video)
		if err != nil {
			return err
		}
		if !domain.Classify(args[0]).IsDirect() {
			return fmt.Errorf("%q is not a video or playlist reference", args[0])
		}

		config, err := loadConfig()
		if err != nil {
			return err
		}
		if output != "" {
			config.Download.SaveDir = output
		}

		s, err := openSession(config)
		if err != nil {
			return err
		}
		defer s.close()

		c := s.controller
		if err := c.OnAnalyzeRequested(args[0]); err != nil {
			return err
		}

		state := c.State()
		if quality != "" && state.IsPlaylist {
			return errors.New("--quality applies to single videos; playlists use session.batch_quality")
		}
		if quality != "" {
			if err := c.OnQualitySelected(quality); err != nil {
				return err
			}
		}
		if trimStart != "" || trimEnd != "" {
			if err := applyTrim(c, trimStart, trimEnd); err != nil {
				return err
			}
		}

		if err := c.OnDownloadRequested(formatType); err != nil {
			return err
		}
		if err := s.wait(); err != nil {
			return err
		}

		failure, saved, report := s.presenter.outcome()
		switch {
		case report != nil:
			if report.SuccessCount < report.TotalCount {
				return fmt.Errorf("%d of %d videos failed", report.TotalCount-report.SuccessCount, report.TotalCount)
			}
		case failure != nil:
			return errors.New(domain.UserMessage(failure))
		case len(saved) == 0 && !config.Session.NativeHost:
			return errors.New("the file was not saved")
		}
		return nil
	},
}

func resolveFormat(format string, audio, video bool) (domain.FormatType, error) {
	switch {
	case audio && video:
		return "", errors.New("--audio and --video are mutually exclusive")
	case audio:
		return domain.FormatAudio, nil
	case video:
		return domain.FormatVideo, nil
	}

	f := domain.FormatType(strings.ToLower(format))
	if f == "mp4" {
		f = domain.FormatVideo
	}
	if !domain.ValidateFormatType(f) {
		return "", fmt.Errorf("unsupported format %q (use mp3 or video)", format)
	}
	return f, nil
}

func applyTrim(c *app.Controller, start, end string) error {
	if err := c.OnTrimToggled(true); err != nil {
		if errors.Is(err, domain.ErrNoTarget) {
			return errors.New("trimming applies to single videos only")
		}
		return err
	}
	if start != "" {
		if err := c.OnTrimTextChanged(domain.TrimStart, start); err != nil {
			return err
		}
	}
	if end != "" {
		if err := c.OnTrimTextChanged(domain.TrimEnd, end); err != nil {
			return err
		}
	}
	return nil
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded download attempts",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		batch, _ := cmd.Flags().GetString("batch")

		config, err := loadConfig()
		if err != nil {
			return err
		}
		if config.Ledger.DatabasePath == domain.InMemoryLedger {
			return errors.New("the ledger is kept in memory; set ledger.database_path to keep history")
		}

		repo, err := infrastructure.NewSQLiteTaskRepository(config.Ledger.DatabasePath)
		if err != nil {
			return err
		}
		defer repo.Close()

		filters := map[string]interface{}{}
		if status != "" {
			filters["status"] = status
		}
		if batch != "" {
			filters["batch_id"] = batch
		}

		records, err := repo.FindAll(filters)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tFORMAT\tSTATUS\tCREATED\tFILE")
		for _, r := range records {
			file := r.SavedPath
			if file == "" {
				file = r.Filename
			}
			if r.Status == domain.TaskFailed {
				file = r.ErrorMessage
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				truncate(r.ID, 8),
				truncate(orDefault(r.Title, r.URL), 40),
				r.FormatType,
				r.Status,
				r.CreatedAt.Format("2006-01-02 15:04"),
				file)
		}
		w.Flush()

		stats, err := repo.GetStats()
		if err != nil {
			return err
		}
		fmt.Printf("\nTotal: %d  Pending: %d  Streaming: %d  Completed: %d  Failed: %d\n",
			stats.Total, stats.Pending, stats.Streaming, stats.Completed, stats.Failed)
		return nil
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show session and error event logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		limit, _ := cmd.Flags().GetInt("limit")
		search, _ := cmd.Flags().GetString("search")
		follow, _ := cmd.Flags().GetBool("follow")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		config, err := loadConfig()
		if err != nil {
			return err
		}
		if config.Logging.EventsDir == "" {
			return errors.New("event logs are disabled; set logging.events_dir")
		}

		cat := logger.LogCategory(category)
		valid := false
		for _, known := range logger.Categories {
			valid = valid || known == cat
		}
		if !valid {
			return fmt.Errorf("unknown log category %q", category)
		}

		reader := logger.NewLogReader(config.Logging.EventsDir)
		show := func(entry logger.LogEntry) {
			if jsonOutput {
				data, _ := json.Marshal(entry)
				fmt.Println(string(data))
				return
			}
			fmt.Printf("%s %-5s %s%s\n", entry.Timestamp, strings.ToUpper(entry.Level), entry.Message, formatFields(entry.Fields))
		}

		var entries []logger.LogEntry
		if search != "" {
			entries, err = reader.SearchLogs(cat, time.Now(), search, limit)
		} else {
			entries, err = reader.ReadTodayLogs(cat, limit)
		}
		if err != nil {
			return err
		}
		for _, e := range entries {
			show(e)
		}

		if !follow {
			return nil
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		tail := make(chan logger.LogEntry)
		errCh := make(chan error, 1)
		go func() {
			errCh <- reader.TailLogs(ctx, cat, tail)
		}()
		for {
			select {
			case e := <-tail:
				show(e)
			case err := <-errCh:
				return err
			}
		}
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a config file with default values",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		path := filepath.Join(os.Getenv("HOME"), ".dyt", "config.yaml")
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		if err := app.SaveConfig(domain.DefaultConfig(), path); err != nil {
			return err
		}
		fmt.Printf("Config written to %s\n", path)
		return nil
	},
}

func init() {
	searchCmd.Flags().IntP("pick", "p", 0, "Show the details of result N")

	downloadCmd.Flags().StringP("format", "f", string(domain.FormatAudio), "Output format (mp3, video)")
	downloadCmd.Flags().BoolP("audio", "a", false, "Shorthand for --format mp3")
	downloadCmd.Flags().BoolP("video", "v", false, "Shorthand for --format video")
	downloadCmd.Flags().StringP("quality", "q", "", "Video quality, e.g. 720p (default: first available)")
	downloadCmd.Flags().String("trim-start", "", "Start of the kept range, as m:ss or h:mm:ss")
	downloadCmd.Flags().String("trim-end", "", "End of the kept range, as m:ss or h:mm:ss")
	downloadCmd.Flags().StringP("output", "o", "", "Directory for saved files (overrides download.save_dir)")

	historyCmd.Flags().StringP("status", "s", "", "Filter by status (pending, streaming, completed, failed)")
	historyCmd.Flags().String("batch", "", "Filter by playlist run id")

	logsCmd.Flags().String("category", string(logger.CategorySession), "Log category (session, error)")
	logsCmd.Flags().IntP("limit", "n", 50, "Number of entries to show")
	logsCmd.Flags().String("search", "", "Only show entries containing this text")
	logsCmd.Flags().BoolP("follow", "f", false, "Keep printing new entries")
	logsCmd.Flags().BoolP("json", "j", false, "Output in JSON format")

	configInitCmd.Flags().Bool("force", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return dimStyle.Render("  " + strings.Join(parts, " "))
}
