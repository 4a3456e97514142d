package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"alfredoptarigan/resume-matcher/internal/config"
	applog "alfredoptarigan/resume-matcher/internal/logger"
	"alfredoptarigan/resume-matcher/internal/services"
)

var (
	jobPath    string
	resumesDir string
	resumeExt  string
	xlsxPath   string
	jsonLogs   bool
	debugLogs  bool

	rootCmd = &cobra.Command{
		Use:   "rank-resumes",
		Short: "Rank a folder of resumes against a job description without the HTTP server",
		RunE:  runRank,
	}

	inspectCmd = &cobra.Command{
		Use:   "inspect [file...]",
		Short: "Print extracted name, email, category and page stats for resumes",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runInspect,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&jsonLogs, "json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().BoolVarP(&debugLogs, "debug", "d", false, "verbose/debug output")

	rootCmd.Flags().StringVar(&jobPath, "job", "", "job description file")
	rootCmd.Flags().StringVar(&resumesDir, "resumes", "", "directory holding the resumes")
	rootCmd.Flags().StringVar(&resumeExt, "ext", "", "resume extension (default RESUME_EXTENSION)")
	rootCmd.Flags().StringVar(&xlsxPath, "xlsx", "", "also write the ranking to this XLSX file")
	rootCmd.MarkFlagRequired("job")
	rootCmd.MarkFlagRequired("resumes")

	rootCmd.AddCommand(inspectCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runRank(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	cfg := config.Load()

	log, err := applog.New(jsonLogs, debugLogs)
	if err != nil {
		return fmt.Errorf("creating a logger: %w", err)
	}
	defer log.Sync()

	ext := cfg.Storage.ResumeExtension
	if resumeExt != "" {
		ext = strings.ToLower(resumeExt)
	}

	extractor := services.NewTextExtractor()
	classifier, err := services.LoadClassifier(extractor, cfg.Classifier.VectorizerPath, cfg.Classifier.ModelPath)
	if err != nil {
		return err
	}

	normalizer, err := services.NewNormalizer()
	if err != nil {
		return err
	}

	embedder, err := services.NewEmbedder(ctx, cfg.Embedding)
	if err != nil {
		return err
	}

	matcher := services.NewMatcherService(
		extractor,
		services.NewPDFParserService(),
		normalizer,
		classifier,
		embedder,
		services.NewCosineRanker(),
		ext,
		log,
	)

	results, err := matcher.RankBatch(ctx, jobPath, resumesDir)
	if err != nil {
		log.Error("❌ Ranking failed", zap.Error(err))
		return err
	}

	if xlsxPath != "" {
		buf, err := services.BuildReport(results)
		if err != nil {
			return err
		}
		if err := os.WriteFile(xlsxPath, buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		log.Info("📊 Report written", zap.String("path", xlsxPath))
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	extractor := services.NewTextExtractor()
	pdfParser := services.NewPDFParserService()
	classifier, err := services.LoadClassifier(extractor, cfg.Classifier.VectorizerPath, cfg.Classifier.ModelPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, path := range args {
		fmt.Fprintf(out, "📄 %s\n", path)
		if !extractor.Supports(path) {
			fmt.Fprintf(out, "   ⚠️  unsupported format, skipping\n")
			continue
		}

		text, err := extractor.Extract(path)
		if err != nil {
			fmt.Fprintf(out, "   ❌ %v\n", err)
			continue
		}

		if strings.HasSuffix(strings.ToLower(path), ".pdf") {
			content, err := pdfParser.ExtractTextWithMetaData(path)
			if err == nil {
				text = content.Text
				fmt.Fprintf(out, "   Pages: %d, characters: %d\n", content.PageCount, len(content.Text))
			}
		}

		category, err := classifier.Classify(path)
		if err != nil {
			category = fmt.Sprintf("error: %v", err)
		}

		fmt.Fprintf(out, "   Name: %q\n", services.ExtractName(text))
		fmt.Fprintf(out, "   Email: %q\n", services.ExtractEmail(text))
		fmt.Fprintf(out, "   Category: %s\n", category)
	}

	return nil
}
