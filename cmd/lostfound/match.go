package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/lostfound/internal/domain/image"
	"github.com/kailas-cloud/lostfound/internal/domain/query"
	searchuc "github.com/kailas-cloud/lostfound/internal/usecase/search"
)

type matchOptions struct {
	lookup    bool
	questions bool
	limit     int
	jsonOut   bool
}

// queryFile is the on-disk form of a lost-item query.
type queryFile struct {
	ImageURL    string    `json:"image_url"`
	Labels      []string  `json:"labels"`
	WebEntities []string  `json:"web_entities"`
	Embedding   []float32 `json:"embedding"`
	Description string    `json:"description"`
}

type matchOutput struct {
	Matches   []matchLine    `json:"matches"`
	Risk      string         `json:"risk"`
	Questions []questionLine `json:"questions,omitempty"`
}

type matchLine struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Score         float64  `json:"score"`
	Reason        string   `json:"reason"`
	MatchedLabels []string `json:"matched_labels"`
}

type questionLine struct {
	Question    string `json:"question"`
	Placeholder string `json:"placeholder"`
}

func newMatchCmd() *cobra.Command {
	opts := &matchOptions{}
	cmd := &cobra.Command{
		Use:   "match <query.json|->",
		Short: "Rank stored found items against a query file and print the risk verdict",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, _, err := loadRuntime("cli")
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			in, closeIn, err := openInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer closeIn()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			return runMatch(ctx, a.search, opts, in, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&opts.lookup, "lookup", false, "Annotate candidates without an embedding instead of trusting stored labels")
	cmd.Flags().BoolVar(&opts.questions, "questions", false, "Print verification questions for a high-risk top match")
	cmd.Flags().IntVar(&opts.limit, "limit", 5, "Number of matches to print (0 = all)")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Print JSON instead of a table")
	return cmd
}

func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(path) //nolint:gosec // user-supplied query file
	if err != nil {
		return nil, nil, fmt.Errorf("open query: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func runMatch(ctx context.Context, search *searchuc.Service, opts *matchOptions, in io.Reader, out io.Writer) error {
	var qf queryFile
	if err := json.NewDecoder(in).Decode(&qf); err != nil {
		return fmt.Errorf("decode query: %w", err)
	}
	if opts.limit < 0 {
		return fmt.Errorf("--limit must not be negative")
	}

	res, err := search.Search(ctx, searchuc.Request{
		Query: query.Query{
			Labels:      qf.Labels,
			WebEntities: qf.WebEntities,
			Embedding:   qf.Embedding,
			Description: qf.Description,
			Image:       image.Ref(qf.ImageURL),
		},
		Lookup:    opts.lookup,
		Questions: opts.questions,
		Limit:     opts.limit,
	})
	if err != nil {
		return err
	}

	result := matchOutput{Risk: string(res.Risk), Matches: make([]matchLine, len(res.Matches))}
	for i := range res.Matches {
		m := &res.Matches[i]
		result.Matches[i] = matchLine{
			ID:            m.Item.ID(),
			Title:         m.Item.Title(),
			Score:         m.Score,
			Reason:        string(m.Reason),
			MatchedLabels: m.MatchedLabels,
		}
	}
	for _, q := range res.Questions {
		result.Questions = append(result.Questions, questionLine{Question: q.Question, Placeholder: q.Placeholder})
	}

	if opts.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return printMatches(out, &result)
}

func printMatches(out io.Writer, r *matchOutput) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tID\tTITLE\tSCORE\tREASON\tMATCHED")
	for i, m := range r.Matches {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.3f\t%s\t%s\n",
			i+1, m.ID, m.Title, m.Score, m.Reason, strings.Join(m.MatchedLabels, ","))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nrisk: %s\n", r.Risk)
	for i, q := range r.Questions {
		fmt.Fprintf(out, "%d. %s (%s)\n", i+1, q.Question, q.Placeholder)
	}
	return nil
}
