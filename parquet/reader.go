package parquet

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/soundlake/soundlake"
)

// ReadTable reads back a parquet directory tree written by WriteDir or
// WriteTable, recovering partition columns from the col=value directory
// names. Integral numbers come back as int64 and everything else as the
// json-decoded type (string, float64, bool, nil); TIMESTAMP_MILLIS columns
// come back as int64 epoch milliseconds.
func ReadTable(dir string) ([]soundlake.Row, error) {
	rows := []soundlake.Row{}
	err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(p, ".parquet") {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return errors.Wrap(err, "relativizing path")
		}
		partCols := partitionColumns(rel)
		fileRows, err := readFile(p)
		if err != nil {
			return errors.Wrapf(err, "reading %s", p)
		}
		for _, r := range fileRows {
			for k, v := range partCols {
				r[k] = v
			}
			rows = append(rows, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func readFile(path string) ([]soundlake.Row, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening file")
	}
	defer fr.Close()
	pr, err := reader.NewParquetReader(fr, nil, np)
	if err != nil {
		return nil, errors.Wrap(err, "getting parquet reader")
	}
	defer pr.ReadStop()

	num := int(pr.GetNumRows())
	res, err := pr.ReadByNumber(num)
	if err != nil {
		return nil, errors.Wrap(err, "reading rows")
	}
	buf, err := json.Marshal(res)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling rows")
	}
	raw := []map[string]interface{}{}
	if err := json.Unmarshal(buf, &raw); err != nil {
		return nil, errors.Wrap(err, "unmarshaling rows")
	}
	rows := make([]soundlake.Row, len(raw))
	for i, m := range raw {
		row := make(soundlake.Row, len(m))
		for k, v := range m {
			row[strings.ToLower(k)] = normalize(v)
		}
		rows[i] = row
	}
	return rows, nil
}

// partitionColumns parses the col=value components out of a relative file
// path.
func partitionColumns(rel string) soundlake.Row {
	out := soundlake.Row{}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		i := strings.Index(part, "=")
		if i < 0 {
			continue
		}
		col, val := part[:i], part[i+1:]
		if val == hiveNullPartition {
			out[col] = nil
			continue
		}
		out[col] = normalize(parsePartitionValue(val))
	}
	return out
}

func parsePartitionValue(val string) interface{} {
	if n, err := strconv.ParseInt(val, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(val, 64); err == nil {
		return f
	}
	return val
}

// normalize maps integral float64s to int64 so values round-tripped through
// json compare equal to the int64s the schema produced.
func normalize(v interface{}) interface{} {
	f, ok := v.(float64)
	if !ok {
		return v
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}
