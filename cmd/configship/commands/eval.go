package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/configship/internal/cli"
	"github.com/TimurManjosov/configship/internal/client"
	"github.com/TimurManjosov/configship/internal/engine"
	"github.com/TimurManjosov/configship/internal/snapshot"
	"github.com/TimurManjosov/configship/pkg/values"
)

var (
	evalEntityID   string
	evalAttrs      []string
	evalProperties []string
)

var evalCmd = &cobra.Command{
	Use:   "eval [feature-id...]",
	Short: "Evaluate features and properties against an entity",
	Long: `Evaluate feature flags and properties for one entity.

With --file the configuration is compiled and evaluated locally; otherwise
the request goes to a running sidecar. Without feature ids or --property
flags, everything in the snapshot is evaluated.

Examples:
  configship eval feature_x --file config.json --environment production --entity-id user-1 --attr country=US --attr age=30
  configship eval --file config.json --environment production --entity-id user-1
  configship eval feature_x --env dev --entity-id user-1 --attr plan=gold
  configship eval --property discount --env dev --entity-id user-1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if evalEntityID == "" {
			return fmt.Errorf("--entity-id is required")
		}

		var (
			rows []cli.ResultRow
			err  error
		)
		if sourceFile != "" {
			rows, err = evalLocal(args)
		} else {
			rows, err = evalRemote(cmd.Context(), args)
		}
		if err != nil {
			return err
		}

		if !quiet {
			return cli.PrintResults(rows, cli.OutputFormat(format))
		}

		return nil
	},
}

func evalLocal(featureIDs []string) ([]cli.ResultRow, error) {
	snap, err := loadSnapshot()
	if err != nil {
		return nil, err
	}

	attrs, err := parseAttrs(evalAttrs)
	if err != nil {
		return nil, err
	}
	entity := values.NewEntityContext(evalEntityID, attrs)

	features := featureIDs
	properties := evalProperties
	if len(features) == 0 && len(properties) == 0 {
		features = sortedFeatureIDs(snap)
		properties = sortedPropertyIDs(snap)
	}

	var rows []cli.ResultRow
	for _, id := range features {
		f, ok := snap.Features[id]
		if !ok {
			return nil, fmt.Errorf("feature '%s' not found", id)
		}
		res := engine.EvaluateFeature(snap, f, entity)
		rows = append(rows, cli.ResultRow{
			ID:             id,
			Kind:           "feature",
			Value:          res.Value.Interface(),
			Reason:         string(res.Reason),
			MatchedSegment: res.MatchedSegment,
		})
	}
	for _, id := range properties {
		p, ok := snap.Properties[id]
		if !ok {
			return nil, fmt.Errorf("property '%s' not found", id)
		}
		res := engine.EvaluateProperty(snap, p, entity)
		rows = append(rows, cli.ResultRow{
			ID:             id,
			Kind:           "property",
			Value:          res.Value.Interface(),
			Reason:         string(res.Reason),
			MatchedSegment: res.MatchedSegment,
		})
	}

	return rows, nil
}

func evalRemote(ctx context.Context, featureIDs []string) ([]cli.ResultRow, error) {
	envCfg, _, err := cli.GetEnvConfig(env, baseURL, apiKey)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	c := client.NewClient(envCfg.BaseURL, envCfg.APIKey)

	attrs, err := parseAttrs(evalAttrs)
	if err != nil {
		return nil, err
	}
	wireAttrs := make(map[string]any, len(attrs))
	for k, v := range attrs {
		wireAttrs[k] = v.Interface()
	}

	resp, err := c.Evaluate(ctx, client.EvaluateRequest{
		Entity:     &client.EvaluateEntity{ID: evalEntityID, Attributes: wireAttrs},
		Features:   featureIDs,
		Properties: evalProperties,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate: %w", err)
	}

	var rows []cli.ResultRow
	for _, r := range resp.Features {
		rows = append(rows, cli.ResultRow{
			ID: r.ID, Kind: "feature", Value: r.Value,
			Reason: r.Reason, MatchedSegment: r.MatchedSegment,
		})
	}
	for _, r := range resp.Properties {
		rows = append(rows, cli.ResultRow{
			ID: r.ID, Kind: "property", Value: r.Value,
			Reason: r.Reason, MatchedSegment: r.MatchedSegment,
		})
	}

	return rows, nil
}

func sortedFeatureIDs(snap *snapshot.Snapshot) []string {
	ids := make([]string, 0, len(snap.Features))
	for id := range snap.Features {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedPropertyIDs(snap *snapshot.Snapshot) []string {
	ids := make([]string, 0, len(snap.Properties))
	for id := range snap.Properties {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringVar(&evalEntityID, "entity-id", "", "Entity id to evaluate for")
	evalCmd.Flags().StringArrayVar(&evalAttrs, "attr", nil, "Entity attribute as key=value (repeatable)")
	evalCmd.Flags().StringArrayVar(&evalProperties, "property", nil, "Property id to evaluate (repeatable)")
}
