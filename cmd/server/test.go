package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prasenjit/route-explorer/internal/models"
	"github.com/prasenjit/route-explorer/internal/tester"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Send one test request and print the result",
	RunE:  runTest,
}

var (
	testURL     string
	testMethod  string
	testHeaders []string
	testBody    string
	testTimeout int
	testRecord  bool
)

func init() {
	testCmd.Flags().StringVar(&testURL, "url", "", "Target URL")
	testCmd.Flags().StringVarP(&testMethod, "method", "X", "GET", "HTTP method")
	testCmd.Flags().StringArrayVarP(&testHeaders, "header", "H", nil, "Request header as 'Name: value' (repeatable)")
	testCmd.Flags().StringVarP(&testBody, "body", "d", "", "Request body")
	testCmd.Flags().IntVar(&testTimeout, "timeout", 0, "Timeout in seconds (default: settings.defaultTimeoutSeconds)")
	testCmd.Flags().BoolVar(&testRecord, "record", false, "Record the result in the test history")
	testCmd.MarkFlagRequired("url")
}

// parseHeaders turns "Name: value" pairs into a header map
func parseHeaders(raw []string) (map[string]string, error) {
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q, expected 'Name: value'", h)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

func runTest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Settings.EnableAPITesting {
		return fmt.Errorf("API testing is disabled")
	}

	headers, err := parseHeaders(testHeaders)
	if err != nil {
		return err
	}
	req, err := tester.Prepare(models.TestRequest{
		URL:            testURL,
		Method:         testMethod,
		Headers:        headers,
		Body:           testBody,
		TimeoutSeconds: testTimeout,
	}, cfg.Settings.DefaultTimeoutSeconds)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, cfg, testRecord)
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.executor.Execute(ctx, req)
	if err != nil {
		return err
	}

	if testRecord {
		entry, err := a.recorder.Record(ctx, models.Caller{UserID: "cli", UserAgent: "route-explorer"}, req, res)
		if err != nil {
			a.logger.Warn("test result not recorded", "error", err)
		} else if entry != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Recorded as log entry %d\n", entry.ID)
		}
	}
	return writeJSON(cmd.OutOrStdout(), res)
}
