package intent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed means the provider output could not be turned into a Result.
var ErrMalformed = errors.New("malformed intent payload")

// Decode coerces provider output into a Result. It tolerates code fences
// and prose around the object, key casing differences, stringly typed
// booleans and numbers, and comma-separated tags. Fields with unusable
// values are dropped; the payload is rejected only when it is not a JSON
// object or carries neither TaskName nor any other payload.
func Decode(raw string) (Result, error) {
	obj, err := extractObject(raw)
	if err != nil {
		return Result{}, err
	}

	fields := normalizeKeys(obj)
	var r Result

	r.IsTask, _ = asBool(fields["istask"])
	r.TaskName, _ = asString(fields["taskname"])
	r.Deadline, _ = asString(fields["deadline"])
	r.Assignee, _ = asString(fields["assignee"])
	r.Description, _ = asString(fields["description"])
	r.DocumentTitle, _ = asString(fields["documenttitle"])
	r.DocumentContent, _ = asString(fields["documentcontent"])
	r.Tags = asStrings(fields["tags"])

	if p, ok := asString(fields["priority"]); ok {
		r.Priority = normalizePriority(p)
	}
	if tx, ok := fields["transactiondata"].(map[string]interface{}); ok {
		r.TransactionData = decodeTransaction(tx)
	}

	if r.TaskName == "" && r.DocumentContent == "" && r.TransactionData == nil {
		return Result{}, fmt.Errorf("%w: missing TaskName", ErrMalformed)
	}
	return r, nil
}

func extractObject(raw string) (map[string]interface{}, error) {
	s := strings.TrimSpace(raw)
	start := strings.Index(s, "{")
	if start < 0 {
		return nil, fmt.Errorf("%w: no JSON object in response", ErrMalformed)
	}

	// The decoder stops after the first value, so trailing prose is ignored.
	var obj map[string]interface{}
	if err := json.NewDecoder(strings.NewReader(s[start:])).Decode(&obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return obj, nil
}

// normalizeKeys lowercases keys and drops underscores so IsTask, isTask and
// is_task all land on "istask".
func normalizeKeys(obj map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(obj))
	for k, v := range obj {
		nk := strings.ToLower(strings.ReplaceAll(k, "_", ""))
		if nested, ok := v.(map[string]interface{}); ok {
			v = normalizeKeys(nested)
		}
		out[nk] = v
	}
	return out
}

func decodeTransaction(tx map[string]interface{}) *TransactionData {
	amount, ok := asNumber(tx["amount"])
	if !ok || amount <= 0 {
		return nil
	}

	kindRaw, _ := asString(tx["type"])
	if kindRaw == "" {
		kindRaw, _ = asString(tx["kind"])
	}
	kind := TxKind(strings.ToLower(strings.TrimSpace(kindRaw)))
	if !kind.Valid() {
		return nil
	}

	category, _ := asString(tx["category"])
	if category == "" {
		category = "General"
	}
	description, _ := asString(tx["description"])

	return &TransactionData{
		Amount:      amount,
		Kind:        kind,
		Category:    category,
		Description: description,
	}
}

func normalizePriority(p string) Priority {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "high":
		return PriorityHigh
	case "medium":
		return PriorityMedium
	case "low":
		return PriorityLow
	}
	return ""
}

func asString(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

func asBool(v interface{}) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return b, err == nil
	case float64:
		return t != 0, true
	}
	return false, false
}

func asNumber(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(t)
		f, err := strconv.ParseFloat(cleaned, 64)
		return f, err == nil
	}
	return 0, false
}

func asStrings(v interface{}) []string {
	switch t := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := asString(item); ok && s != "" {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(t, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
