package benchmarks

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/inferencemax/dashboard/pkg/models"
)

// Defaults applied when a payload omits a field or carries a zero or
// non-numeric value for it.
const (
	defaultHardware    = "Unknown"
	defaultFramework   = "Unknown"
	defaultPrecision   = "FP16"
	defaultSeqLen      = 1024
	defaultParallelism = 1
	defaultConcurrency = 1
)

// ErrMissingModel is returned by DecodeRecord for payloads without a usable model.
var ErrMissingModel = errors.New("benchmark result has no model")

// Provenance identifies the CI run an artifact came from.
type Provenance struct {
	RunDate   string
	RunID     string
	CommitSHA string
}

// ProvenanceOf returns the provenance stamped on records parsed from run.
func ProvenanceOf(run models.WorkflowRun) Provenance {
	return Provenance{
		RunDate:   run.RunDate(),
		RunID:     strconv.FormatInt(run.ID, 10),
		CommitSHA: run.HeadSHA,
	}
}

// ParseArtifact decodes an artifact's text content into benchmark records.
// The content may hold one JSON object or an array of them. Content that is
// not JSON yields no records; objects that cannot be decoded are skipped.
func ParseArtifact(content string, prov Provenance) []models.BenchmarkRecord {
	dec := json.NewDecoder(strings.NewReader(content))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil
	}
	var trailing any
	if err := dec.Decode(&trailing); err != io.EOF {
		return nil
	}

	var items []any
	switch v := payload.(type) {
	case []any:
		items = v
	case map[string]any:
		items = []any{v}
	default:
		return nil
	}

	records := make([]models.BenchmarkRecord, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		rec, err := DecodeRecord(obj, prov)
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records
}

// DecodeRecord maps one loosely typed result object onto a BenchmarkRecord,
// applying the field defaults and converting TPOT from seconds to milliseconds.
func DecodeRecord(item map[string]any, prov Provenance) (models.BenchmarkRecord, error) {
	rawModel, _ := item["model"].(string)
	model := NormalizeModelName(rawModel)
	if model == "" {
		return models.BenchmarkRecord{}, ErrMissingModel
	}

	return models.BenchmarkRecord{
		Model:            model,
		Hardware:         strings.ToUpper(stringOr(item["hw"], defaultHardware)),
		Framework:        strings.ToUpper(stringOr(item["framework"], defaultFramework)),
		Precision:        strings.ToUpper(stringOr(item["precision"], defaultPrecision)),
		ISL:              intOr(item["isl"], defaultSeqLen),
		OSL:              intOr(item["osl"], defaultSeqLen),
		TP:               intOr(item["tp"], defaultParallelism),
		EP:               intOr(item["ep"], defaultParallelism),
		DPAttention:      truthy(item["dp_attention"]),
		Concurrency:      intOr(item["conc"], defaultConcurrency),
		TTFT:             firstMetric(item, "median_ttft", "mean_ttft"),
		TPOT:             firstMetric(item, "median_tpot", "mean_tpot") * 1000,
		Interactivity:    firstMetric(item, "median_intvty", "mean_intvty"),
		E2EL:             firstMetric(item, "median_e2el", "mean_e2el"),
		TputPerGPU:       firstMetric(item, "tput_per_gpu"),
		OutputTputPerGPU: firstMetric(item, "output_tput_per_gpu"),
		InputTputPerGPU:  firstMetric(item, "input_tput_per_gpu"),
		RunDate:          prov.RunDate,
		RunID:            prov.RunID,
		CommitSHA:        prov.CommitSHA,
	}, nil
}

// number reads a JSON number or a numeric string. Non-finite values
// ("inf", "NaN", overflowing literals) are rejected; they cannot be encoded
// back to JSON.
func number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		var err error
		if f, err = n.Float64(); err != nil {
			return 0, false
		}
	case float64:
		f = n
	case string:
		var err error
		if f, err = strconv.ParseFloat(strings.TrimSpace(n), 64); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// firstMetric returns the first positive value among keys, or 0.
func firstMetric(item map[string]any, keys ...string) float64 {
	for _, k := range keys {
		if f, ok := number(item[k]); ok && f > 0 {
			return f
		}
	}
	return 0
}

func intOr(v any, def int) int {
	f, ok := number(v)
	if !ok || int(f) <= 0 {
		return def
	}
	return int(f)
}

func stringOr(v any, def string) string {
	s, ok := v.(string)
	if !ok || s == "" {
		return def
	}
	return s
}

func truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return err == nil && parsed
	}
	return false
}

// compactJSON is used in logs to keep payload excerpts on one line.
func compactJSON(content string, limit int) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(content)); err != nil {
		buf.Reset()
		buf.WriteString(content)
	}
	s := buf.String()
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
