package dashboard

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// ExportCSV writes one run's data items to <dir>/dashboard_<runid>.csv
// for offline inspection. Scalar items become item,label,count rows;
// the timeline item becomes item,date,label,count rows.
func ExportCSV(dir string, report *Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, "dashboard_"+report.RunID+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"item", "date", "label", "count"}); err != nil {
		return "", fmt.Errorf("write export header: %w", err)
	}
	for _, item := range report.Items {
		if err := writeItem(w, item); err != nil {
			return "", fmt.Errorf("write item %s: %w", item.Name, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush export file: %w", err)
	}
	return path, nil
}

func writeItem(w *csv.Writer, item DataItem) error {
	if item.Timeline != nil {
		labels := sortedKeys(item.Timeline.Series)
		for i, date := range item.Timeline.Dates {
			for _, label := range labels {
				counts := item.Timeline.Series[label]
				if i >= len(counts) {
					continue
				}
				if err := w.Write([]string{item.Name, date, label, strconv.Itoa(counts[i])}); err != nil {
					return err
				}
			}
		}
		return nil
	}
	for _, label := range sortedKeys(item.Values) {
		if err := w.Write([]string{item.Name, "", label, strconv.Itoa(item.Values[label])}); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
