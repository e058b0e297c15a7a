package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"

	"tableside/internal/models"
)

// codec keeps numbers as json.Number and sorts map keys so re-encoding is canonical
var codec = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	UseNumber:              true,
	ValidateJsonRawMessage: true,
}.Froze()

// Decode validates a raw tool call and returns the normalized invocation.
// A malformed payload yields a *models.ValidationError and no invocation.
func Decode(messageID, callID, toolName string, raw []byte) (Invocation, error) {
	tool := Name(strings.TrimSpace(toolName))
	if !Known(tool) {
		return Invocation{}, &models.ValidationError{Tool: toolName, Field: "toolName", Reason: "is not a known tool"}
	}

	payload, err := parseObject(tool, raw)
	if err != nil {
		return Invocation{}, err
	}

	f := fields{tool: tool, m: payload}
	var args Args
	switch tool {
	case ShowItem:
		args, err = decodeShowItem(f)
	case ShowCategory:
		args, err = decodeShowCategory(f)
	case AddToCart:
		args, err = decodeAddToCart(f)
	case ConfirmOrder:
		args, err = decodeConfirmOrder(f)
	case SearchMenu:
		args, err = decodeSearchMenu(f)
	}
	if err != nil {
		return Invocation{}, err
	}

	canonical, err := codec.Marshal(canonicalize(payload))
	if err != nil {
		return Invocation{}, fmt.Errorf("encode canonical arguments: %w", err)
	}

	return Invocation{
		ID:        InvocationID(messageID, tool, canonical),
		MessageID: messageID,
		CallID:    callID,
		Tool:      tool,
		Args:      args,
		Canonical: canonical,
	}, nil
}

func parseObject(tool Name, raw []byte) (map[string]interface{}, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return map[string]interface{}{}, nil
	}
	var payload map[string]interface{}
	if err := codec.Unmarshal(raw, &payload); err != nil {
		return nil, &models.ValidationError{Tool: string(tool), Reason: "arguments are not a JSON object"}
	}
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return payload, nil
}

func decodeShowItem(f fields) (Args, error) {
	var a ShowItemArgs
	var err error
	if a.Name, err = f.requiredString("name"); err != nil {
		return nil, err
	}
	if a.Price, err = f.requiredPrice("price"); err != nil {
		return nil, err
	}
	if a.Description, err = f.optionalString("description"); err != nil {
		return nil, err
	}
	if a.Category, err = f.optionalString("category"); err != nil {
		return nil, err
	}
	if a.Modifications, err = f.modifications("modifications"); err != nil {
		return nil, err
	}
	return a, nil
}

func decodeShowCategory(f fields) (Args, error) {
	var a ShowCategoryArgs
	var err error
	if a.Category, err = f.requiredString("category"); err != nil {
		return nil, err
	}
	items, err := f.objects("items", false)
	if err != nil {
		return nil, err
	}
	a.Items = make([]CategoryEntry, 0, len(items))
	for _, item := range items {
		var e CategoryEntry
		if e.Name, err = item.requiredString("name"); err != nil {
			return nil, err
		}
		if e.Price, err = item.requiredPrice("price"); err != nil {
			return nil, err
		}
		if e.Description, err = item.optionalString("description"); err != nil {
			return nil, err
		}
		a.Items = append(a.Items, e)
	}
	return a, nil
}

func decodeAddToCart(f fields) (Args, error) {
	var a AddToCartArgs
	var err error
	if a.Name, err = f.requiredString("name"); err != nil {
		return nil, err
	}
	if a.Price, err = f.requiredPrice("price"); err != nil {
		return nil, err
	}
	if a.Quantity, err = f.quantity("quantity"); err != nil {
		return nil, err
	}
	if a.Modifications, err = f.modifications("modifications"); err != nil {
		return nil, err
	}
	return a, nil
}

func decodeConfirmOrder(f fields) (Args, error) {
	var a ConfirmOrderArgs
	items, err := f.objects("items", true)
	if err != nil {
		return nil, err
	}
	a.Items = make([]OrderItemArgs, 0, len(items))
	for _, item := range items {
		var oi OrderItemArgs
		if oi.Name, err = item.requiredString("name"); err != nil {
			return nil, err
		}
		if oi.Price, err = item.requiredPrice("price"); err != nil {
			return nil, err
		}
		if oi.Quantity, err = item.quantity("quantity"); err != nil {
			return nil, err
		}
		if oi.Modifications, err = item.modifications("modifications"); err != nil {
			return nil, err
		}
		a.Items = append(a.Items, oi)
	}
	if a.Subtotal, err = f.requiredNumber("subtotal"); err != nil {
		return nil, err
	}
	if a.Tax, err = f.requiredNumber("tax"); err != nil {
		return nil, err
	}
	if a.Total, err = f.requiredNumber("total"); err != nil {
		return nil, err
	}
	if a.TableNumber, err = f.optionalInt("tableNumber"); err != nil {
		return nil, err
	}
	if a.TableNumber != nil && !models.ValidTableNumber(*a.TableNumber) {
		return nil, f.fail("tableNumber", fmt.Sprintf("must be between %d and %d", models.MinTableNumber, models.MaxTableNumber))
	}
	return a, nil
}

func decodeSearchMenu(f fields) (Args, error) {
	q, err := f.requiredString("query")
	if err != nil {
		return nil, err
	}
	return SearchMenuArgs{Query: q}, nil
}

// fields reads typed values out of a decoded JSON object
type fields struct {
	tool   Name
	prefix string
	m      map[string]interface{}
}

func (f fields) fail(key, reason string) error {
	return &models.ValidationError{Tool: string(f.tool), Field: f.prefix + key, Reason: reason}
}

func (f fields) present(key string) (interface{}, bool) {
	v, ok := f.m[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (f fields) requiredString(key string) (string, error) {
	v, ok := f.present(key)
	if !ok {
		return "", f.fail(key, "is required")
	}
	s, ok := v.(string)
	if !ok {
		return "", f.fail(key, "must be a string")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", f.fail(key, "must not be empty")
	}
	return s, nil
}

func (f fields) optionalString(key string) (string, error) {
	v, ok := f.present(key)
	if !ok {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", f.fail(key, "must be a string")
	}
	return strings.TrimSpace(s), nil
}

func (f fields) number(key string) (decimal.Decimal, bool, error) {
	v, ok := f.present(key)
	if !ok {
		return decimal.Zero, false, nil
	}
	d, ok := toDecimal(v)
	if !ok {
		return decimal.Zero, true, f.fail(key, "must be a number")
	}
	return d, true, nil
}

func (f fields) requiredNumber(key string) (decimal.Decimal, error) {
	d, ok, err := f.number(key)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		return decimal.Zero, f.fail(key, "is required")
	}
	return d, nil
}

func (f fields) requiredPrice(key string) (decimal.Decimal, error) {
	d, err := f.requiredNumber(key)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, f.fail(key, "must not be negative")
	}
	return d, nil
}

var maxInt = decimal.NewFromInt(math.MaxInt32)

func (f fields) optionalInt(key string) (*int, error) {
	d, ok, err := f.number(key)
	if err != nil || !ok {
		return nil, err
	}
	if !d.Equal(d.Truncate(0)) {
		return nil, f.fail(key, "must be an integer")
	}
	if d.Abs().GreaterThan(maxInt) {
		return nil, f.fail(key, "is too large")
	}
	n := int(d.IntPart())
	return &n, nil
}

// quantity defaults to 1 when absent and must be a positive integer otherwise
func (f fields) quantity(key string) (int, error) {
	n, err := f.optionalInt(key)
	if err != nil {
		return 0, err
	}
	if n == nil {
		return 1, nil
	}
	if *n < 1 {
		return 0, f.fail(key, "must be at least 1")
	}
	return *n, nil
}

// modifications defaults to an empty list and drops blank entries
func (f fields) modifications(key string) ([]string, error) {
	v, ok := f.present(key)
	if !ok {
		return []string{}, nil
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil, f.fail(key, "must be an array of strings")
	}
	mods := make([]string, 0, len(list))
	for _, e := range list {
		s, ok := e.(string)
		if !ok {
			return nil, f.fail(key, "must be an array of strings")
		}
		if s = strings.TrimSpace(s); s != "" {
			mods = append(mods, s)
		}
	}
	return mods, nil
}

func (f fields) objects(key string, nonEmpty bool) ([]fields, error) {
	v, ok := f.present(key)
	if !ok {
		return nil, f.fail(key, "is required")
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil, f.fail(key, "must be an array")
	}
	if nonEmpty && len(list) == 0 {
		return nil, f.fail(key, "must not be empty")
	}
	out := make([]fields, 0, len(list))
	for i, e := range list {
		m, ok := e.(map[string]interface{})
		if !ok {
			return nil, f.fail(fmt.Sprintf("%s[%d]", key, i), "must be an object")
		}
		out = append(out, fields{
			tool:   f.tool,
			prefix: fmt.Sprintf("%s%s[%d].", f.prefix, key, i),
			m:      m,
		})
	}
	return out, nil
}

func toDecimal(v interface{}) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	default:
		return decimal.Zero, false
	}
}

// canonicalize rewrites numbers so 12, 12.0 and 12.00 encode the same way
func canonicalize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = canonicalize(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = canonicalize(e)
		}
		return out
	case json.Number, float64:
		if d, ok := toDecimal(t); ok {
			return json.Number(d.String())
		}
		return t
	case string:
		return strings.TrimSpace(t)
	default:
		return t
	}
}
