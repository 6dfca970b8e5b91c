package stats

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/brensch/broadside/api"
)

// DefaultExportName is the file name offered for the CSV export.
const DefaultExportName = "battleship_stats.csv"

// Record is one exported match.
type Record struct {
	Mode     string  `parquet:"mode,dict"`
	Winner   string  `parquet:"winner,dict"`
	Duration float64 `parquet:"duration"`
}

// Flatten lists every match, categories in display order.
func Flatten(resp api.StatsResponse) []Record {
	var out []Record
	for _, cat := range Categories {
		for _, r := range Records(resp, cat.Mode) {
			out = append(out, Record{Mode: string(cat.Mode), Winner: r.Winner, Duration: r.Duration})
		}
	}
	return out
}

// Group is the inverse of Flatten. Records of an unknown mode are dropped.
func Group(recs []Record) api.StatsResponse {
	resp := api.StatsResponse{UserVsMCTS: []api.MatchRecord{}, MCTSVsMLMCTS: []api.MatchRecord{}}
	for _, r := range recs {
		m := api.MatchRecord{Winner: r.Winner, Duration: r.Duration}
		switch api.GameMode(r.Mode) {
		case api.ModeUserVsMCTS:
			resp.UserVsMCTS = append(resp.UserVsMCTS, m)
		case api.ModeMCTSVsMLMCTS:
			resp.MCTSVsMLMCTS = append(resp.MCTSVsMLMCTS, m)
		}
	}
	return resp
}

// WriteCSV writes the header mode,winner,duration followed by one line per
// record. Durations use their shortest exact form.
func WriteCSV(w io.Writer, recs []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"mode", "winner", "duration"}); err != nil {
		return err
	}
	for _, r := range recs {
		if err := cw.Write([]string{r.Mode, r.Winner, strconv.FormatFloat(r.Duration, 'f', -1, 64)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the CSV export to path through a temp file.
func WriteCSVFile(path string, recs []Record) error {
	return atomicWrite(path, func(tmp string) error {
		f, err := os.Create(tmp)
		if err != nil {
			return err
		}
		if err := WriteCSV(f, recs); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	})
}

// WriteParquet archives the records as a zstd-compressed parquet file.
func WriteParquet(path string, recs []Record) error {
	return atomicWrite(path, func(tmp string) error {
		return parquet.WriteFile(tmp, recs,
			parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
			parquet.KeyValueMetadata("schema", "match_record_v1"),
		)
	})
}

// ReadParquet loads records written by WriteParquet.
func ReadParquet(path string) ([]Record, error) {
	recs, err := parquet.ReadFile[Record](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}
	return recs, nil
}

func atomicWrite(path string, write func(tmp string) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	_ = os.Remove(tmp)
	if err := write(tmp); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
