package record

import "fmt"

// Decode loads a row into r. columns and values are parallel slices as
// returned by the driver. Every field of r must be present in the row;
// extra columns are ignored.
func Decode(r Record, columns []string, values []any) error {
	return DecodePrefixed(r, "", columns, values)
}

// DecodePrefixed is Decode for rows whose column names carry a prefix, as
// produced by joins aliasing columns to "<prefix><column>".
func DecodePrefixed(r Record, prefix string, columns []string, values []any) error {
	if len(columns) != len(values) {
		return fmt.Errorf("%w: %d columns but %d values", ErrDecode, len(columns), len(values))
	}
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}
	for _, f := range r.Fields() {
		i, ok := index[prefix+f.Name()]
		if !ok {
			return fmt.Errorf("%w: %s: column %q not in result", ErrDecode, r.TableName(), prefix+f.Name())
		}
		if err := f.col.Load(values[i]); err != nil {
			return fmt.Errorf("%w: %s.%s: %v", ErrDecode, r.TableName(), f.Name(), err)
		}
	}
	return nil
}
