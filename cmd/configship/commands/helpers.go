package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/TimurManjosov/configship/internal/models"
	"github.com/TimurManjosov/configship/internal/snapshot"
	"github.com/TimurManjosov/configship/pkg/values"
)

// loadSnapshot decodes and compiles the configuration file named by --file.
func loadSnapshot() (*snapshot.Snapshot, error) {
	if sourceFile == "" {
		return nil, fmt.Errorf("--file is required for this command")
	}
	if environmentID == "" {
		return nil, fmt.Errorf("--environment is required for this command")
	}

	f, err := os.Open(sourceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open configuration file: %w", err)
	}
	defer f.Close()

	cfg, err := models.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	snap, err := snapshot.Build(cfg, environmentID, collectionID, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot: %w", err)
	}

	return snap, nil
}

// parseAttrs turns repeated key=value flags into typed attribute values.
// Values parse as bool, then integer, then float, falling back to string.
func parseAttrs(pairs []string) (map[string]values.Value, error) {
	attrs := make(map[string]values.Value, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid attribute %q, expected key=value", pair)
		}
		attrs[key] = parseAttrValue(raw)
	}
	return attrs, nil
}

func parseAttrValue(raw string) values.Value {
	if b, err := strconv.ParseBool(raw); err == nil && (raw == "true" || raw == "false") {
		return values.Bool(b)
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return values.Int64(i)
	}
	if u, err := strconv.ParseUint(raw, 10, 64); err == nil {
		return values.UInt64(u)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return values.Float64(f)
	}
	return values.String(raw)
}
