package parquet

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/soundlake/soundlake"
)

// hiveNullPartition is the directory name used for a null partition value,
// matching what the usual engines write.
const hiveNullPartition = "__HIVE_DEFAULT_PARTITION__"

// parallelism for the underlying parquet marshalers.
const np = 4

// WriteDir writes a frame as a parquet directory tree rooted at dir. With
// partition columns, rows are split into col=value subdirectories and the
// partition columns themselves are not written into the data files; they
// are recovered from the directory names on read.
func WriteDir(dir string, schema soundlake.Schema, f *soundlake.Frame, partitionBy ...string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "making output dir")
	}
	if len(partitionBy) == 0 {
		return writeFile(filepath.Join(dir, "part-00000.parquet"), schema, f)
	}

	fileSchema := make(soundlake.Schema, 0, len(schema))
	for _, fld := range schema {
		if !contains(partitionBy, fld.Name) {
			fileSchema = append(fileSchema, fld)
		}
	}
	parts, err := f.PartitionBy(partitionBy...)
	if err != nil {
		return errors.Wrap(err, "partitioning")
	}
	for _, p := range parts {
		sub := dir
		for i, col := range p.Columns {
			sub = filepath.Join(sub, col+"="+partitionValue(p.Values[i]))
		}
		if err := os.MkdirAll(sub, 0755); err != nil {
			return errors.Wrap(err, "making partition dir")
		}
		if err := writeFile(filepath.Join(sub, "part-00000.parquet"), fileSchema, p.Frame); err != nil {
			return errors.Wrapf(err, "writing partition %s", sub)
		}
	}
	return nil
}

// WriteTable writes a frame as the named table under root with full
// overwrite semantics. The tree is first written to a staging directory and
// only renamed over the target once complete, so a crash mid-write leaves
// the previous table intact. The final table path is returned.
func WriteTable(root, name string, schema soundlake.Schema, f *soundlake.Frame, partitionBy ...string) (string, error) {
	target := filepath.Join(root, name)
	staging := filepath.Join(root, fmt.Sprintf(".%s.staging-%d", name, time.Now().UnixNano()))
	if err := WriteDir(staging, schema, f, partitionBy...); err != nil {
		os.RemoveAll(staging)
		return "", err
	}
	if err := os.RemoveAll(target); err != nil {
		os.RemoveAll(staging)
		return "", errors.Wrap(err, "removing previous table")
	}
	if err := os.Rename(staging, target); err != nil {
		os.RemoveAll(staging)
		return "", errors.Wrap(err, "publishing staged table")
	}
	return target, nil
}

func writeFile(path string, schema soundlake.Schema, f *soundlake.Frame) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return errors.Wrap(err, "creating file")
	}
	pw, err := writer.NewJSONWriter(schemaJSON(schema), fw, np)
	if err != nil {
		fw.Close()
		return errors.Wrap(err, "getting parquet writer")
	}
	for _, row := range f.Rows() {
		buf, err := json.Marshal(writableRow(schema, row))
		if err != nil {
			fw.Close()
			return errors.Wrap(err, "marshaling row")
		}
		if err := pw.Write(string(buf)); err != nil {
			fw.Close()
			return errors.Wrap(err, "writing row")
		}
	}
	if err := pw.WriteStop(); err != nil {
		fw.Close()
		return errors.Wrap(err, "finalizing parquet file")
	}
	return errors.Wrap(fw.Close(), "closing file")
}

// schemaJSON renders a soundlake.Schema in the json schema format the
// parquet writer expects.
func schemaJSON(schema soundlake.Schema) string {
	type node struct {
		Tag    string `json:"Tag"`
		Fields []node `json:"Fields,omitempty"`
	}
	root := node{Tag: "name=parquet_go_root, repetitiontype=REQUIRED"}
	for _, f := range schema {
		rep := "REQUIRED"
		if f.Nullable {
			rep = "OPTIONAL"
		}
		typ := ""
		switch f.Type {
		case soundlake.String:
			typ = "type=BYTE_ARRAY, convertedtype=UTF8"
		case soundlake.Int:
			typ = "type=INT32"
		case soundlake.Long:
			typ = "type=INT64"
		case soundlake.Double:
			typ = "type=DOUBLE"
		case soundlake.Timestamp:
			typ = "type=INT64, convertedtype=TIMESTAMP_MILLIS"
		}
		root.Fields = append(root.Fields, node{
			Tag: fmt.Sprintf("name=%s, %s, repetitiontype=%s", f.Name, typ, rep),
		})
	}
	buf, _ := json.Marshal(root)
	return string(buf)
}

// writableRow converts a row to the plain json types the parquet writer
// accepts, dropping null columns so they encode as parquet nulls.
func writableRow(schema soundlake.Schema, row soundlake.Row) map[string]interface{} {
	out := make(map[string]interface{}, len(schema))
	for _, f := range schema {
		v := row[f.Name]
		if v == nil {
			continue
		}
		if t, ok := v.(time.Time); ok {
			v = t.UnixNano() / int64(time.Millisecond)
		}
		out[f.Name] = v
	}
	return out
}

func partitionValue(v interface{}) string {
	switch tv := v.(type) {
	case nil:
		return hiveNullPartition
	case string:
		return tv
	case int64:
		return strconv.FormatInt(tv, 10)
	case float64:
		return strconv.FormatFloat(tv, 'g', -1, 64)
	case time.Time:
		return strconv.FormatInt(tv.UnixNano()/int64(time.Millisecond), 10)
	}
	return fmt.Sprintf("%v", v)
}

func contains(cols []string, name string) bool {
	for _, c := range cols {
		if c == name {
			return true
		}
	}
	return false
}
