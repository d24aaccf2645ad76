package odoo

// Record is a decoded model row. Odoo returns loosely typed values:
// ints may arrive as int64 or float64, absent fields as false, and
// many2one fields as the pair [id, name]. The accessors normalize that.
type Record map[string]interface{}

// Int returns the field as int64, or 0 when absent or not numeric.
func (r Record) Int(key string) int64 {
	v, _ := toInt64(r[key])
	return v
}

// Float returns the field as float64, or 0 when absent or not numeric.
func (r Record) Float(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

// Str returns the field as a string. Odoo sends false for empty
// char fields, which maps to "".
func (r Record) Str(key string) string {
	s, _ := r[key].(string)
	return s
}

// Bool returns the field as a bool.
func (r Record) Bool(key string) bool {
	b, _ := r[key].(bool)
	return b
}

// Ref returns the id of a many2one field ([id, name] pair). The second
// return is false when the field is unset.
func (r Record) Ref(key string) (int64, bool) {
	pair, ok := r[key].([]interface{})
	if !ok || len(pair) == 0 {
		return 0, false
	}
	return toInt64(pair[0])
}

// RefName returns the display name of a many2one field.
func (r Record) RefName(key string) string {
	pair, ok := r[key].([]interface{})
	if !ok || len(pair) < 2 {
		return ""
	}
	s, _ := pair[1].(string)
	return s
}

// IDs returns a one2many/many2many field as a list of ids.
func (r Record) IDs(key string) []int64 {
	raw, ok := r[key].([]interface{})
	if !ok {
		return nil
	}
	ids := make([]int64, 0, len(raw))
	for _, v := range raw {
		if id, ok := toInt64(v); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}

func toRecords(reply interface{}) []Record {
	raw, ok := reply.([]interface{})
	if !ok {
		return nil
	}
	recs := make([]Record, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]interface{}); ok {
			recs = append(recs, Record(m))
		}
	}
	return recs
}
